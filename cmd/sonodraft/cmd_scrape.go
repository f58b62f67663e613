package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/sonodraft/internal/session"
)

var scrapeFlags struct {
	dryRun   bool
	noImages bool
	jsonOut  bool
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract the study open in the browser and draft its report",
	Long: `Reads the study page shown in the operator's tab (patient details, measurements,
conclusion and up to the configured number of images) and asks the report
service for a draft. With --dry-run the extracted record is printed instead.`,
	RunE: runScrape,
}

func init() {
	f := scrapeCmd.Flags()
	f.BoolVar(&scrapeFlags.dryRun, "dry-run", false, "print the extracted record without contacting the report service")
	f.BoolVar(&scrapeFlags.noImages, "no-images", false, "skip the image viewer")
	f.BoolVar(&scrapeFlags.jsonOut, "json", false, "print the full result as JSON")
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	ctx := cmd.Context()

	term := newTerminal(cmd.InOrStdin(), cmd.ErrOrStderr())
	rt, err := openRuntime(ctx, cfg, logger, func(ctx context.Context) error {
		return term.waitForOperator(ctx, "Log in to UltraLinq in the browser window and open the study to scrape.")
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.sess.ScrapeActive(ctx, session.ScrapeOptions{DryRun: scrapeFlags.dryRun, NoImages: scrapeFlags.noImages})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if scrapeFlags.dryRun || scrapeFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n\n", res.Record.Summary())
	fmt.Fprintln(out, res.Report)
	return nil
}
