package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/sonodraft/internal/session"
	"github.com/hazyhaar/sonodraft/orchestrate"
	"github.com/hazyhaar/sonodraft/study"
)

var historyFlags struct {
	yes       bool
	studyType string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Run a longitudinal analysis over every study of the open patient",
	Long: `Lists the studies linked from the patient page in the operator's tab, asks for
confirmation and a study type, visits each study in turn, and sends the
aggregated history to the report service. Studies that cannot be read are
skipped; images are taken from the most recent study only.

With --yes and --type the questions are answered up front.`,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.BoolVar(&historyFlags.yes, "yes", false, "approve the plan without asking (requires --type)")
	f.StringVar(&historyFlags.studyType, "type", "", "study type: 1-4 or carotid, aorta, left_leg, right_leg")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyFlags.yes && historyFlags.studyType == "" {
		return errors.New("--yes requires --type")
	}
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

	var dec orchestrate.Decider = term
	if historyFlags.yes {
		analysis, err := study.ParseAnalysisType(historyFlags.studyType)
		if err != nil {
			return err
		}
		dec = &orchestrate.Scripted{Approve: true, StudyType: analysis}
	}

	progress := orchestrate.ObserverFunc(func(_ context.Context, ev orchestrate.Event) {
		if ev.To == orchestrate.Scraping {
			fmt.Fprintf(cmd.ErrOrStderr(), "Scraping study %d: %s\n", ev.Index+1, ev.URL)
		}
	})
	res, err := rt.sess.RunHistory(ctx, dec, progress)
	if res != nil && res.Result != nil {
		printHistory(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
	}
	return err
}

func printHistory(out, status io.Writer, res *session.HistoryResult) {
	if res.State != orchestrate.Done {
		fmt.Fprintf(status, "Aborted: %s\n", res.Reason)
		return
	}
	scraped := 0
	for _, o := range res.Outcomes {
		if o.Scraped {
			scraped++
		} else {
			fmt.Fprintf(status, "Skipped %s: %s\n", o.Reference.URL, o.Error)
		}
	}
	fmt.Fprintf(status, "Analyzed %d of %d studies (%s to %s)\n",
		scraped, len(res.Outcomes), res.Report.DateRange.Earliest, res.Report.DateRange.Latest)
	if res.Artifact != "" {
		fmt.Fprintf(status, "Saved %s\n", res.Artifact)
	}
	fmt.Fprintf(status, "\n")
	fmt.Fprintln(out, res.Report.Report)
}
