package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/sonodraft/internal/eventlog"
)

var runsFlags struct {
	limit int
}

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show recent runs, or the transitions of one run, from the event log",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsFlags.limit, "limit", 20, "number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.EventLog == "" {
		return errors.New("event_log is not configured")
	}
	store, err := eventlog.Open(cfg.EventLog, newLogger(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if len(args) == 1 {
		events, err := store.Events(ctx, args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return fmt.Errorf("unknown run %s", args[0])
		}
		fmt.Fprintln(tw, "AT\tFROM\tTO\tSTUDY\tREASON")
		for _, e := range events {
			study := ""
			if e.URL != "" && e.Index != nil {
				study = fmt.Sprintf("%d %s", *e.Index+1, e.URL)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.At.Format(time.TimeOnly), e.From, e.To, study, e.Reason)
		}
		return tw.Flush()
	}

	runs, err := store.Runs(ctx, runsFlags.limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "RUN\tKIND\tSTARTED\tSTATE\tSTUDIES\tREASON")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			r.RunID, r.Kind, r.StartedAt.Format(time.DateTime), r.State, r.StudiesScraped, r.StudiesListed, r.Reason)
	}
	return tw.Flush()
}
