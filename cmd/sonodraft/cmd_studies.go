package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var studiesFlags struct {
	jsonOut bool
}

var studiesCmd = &cobra.Command{
	Use:   "studies",
	Short: "List the studies linked from the open patient page",
	RunE:  runStudies,
}

func init() {
	studiesCmd.Flags().BoolVar(&studiesFlags.jsonOut, "json", false, "print JSON")
}

func runStudies(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	ctx := cmd.Context()

	term := newTerminal(cmd.InOrStdin(), cmd.ErrOrStderr())
	rt, err := openRuntime(ctx, cfg, logger, func(ctx context.Context) error {
		return term.waitForOperator(ctx, "Log in to UltraLinq in the browser window and open the patient's study list.")
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	listing, err := rt.sess.ListStudies(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if studiesFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}
	if len(listing.Studies) == 0 {
		fmt.Fprintf(out, "No studies found on %s\n", listing.Page)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDATE\tTYPE\tURL")
	for i, s := range listing.Studies {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, s.DateHint, s.TypeHint, s.URL)
	}
	return tw.Flush()
}
