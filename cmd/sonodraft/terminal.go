package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hazyhaar/sonodraft/orchestrate"
	"github.com/hazyhaar/sonodraft/study"
)

// terminal asks the operator through a line-oriented console. It implements
// orchestrate.Decider.
type terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out}
}

// readLine returns the next line without its newline. A final line without
// a newline is returned as is; io.EOF is returned only for no input at all.
func (t *terminal) readLine(ctx context.Context) (string, error) {
	type line struct {
		s   string
		err error
	}
	reply := make(chan line, 1)
	go func() {
		s, err := t.in.ReadString('\n')
		if err == io.EOF && s != "" {
			err = nil
		}
		reply <- line{strings.TrimSpace(s), err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l := <-reply:
		return l.s, l.err
	}
}

// waitForOperator prints msg and blocks until Enter.
func (t *terminal) waitForOperator(ctx context.Context, msg string) error {
	fmt.Fprintf(t.out, "%s\nPress Enter to continue... ", msg)
	_, err := t.readLine(ctx)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Confirm lists the studies and the actions, then asks for a yes.
func (t *terminal) Confirm(ctx context.Context, plan orchestrate.Plan) (bool, error) {
	fmt.Fprintf(t.out, "Found %d studies:\n", len(plan.Studies))
	for i, s := range plan.Studies {
		fmt.Fprintf(t.out, "  %2d. %-10s  %-24s  %s\n", i+1, s.DateHint, s.TypeHint, s.URL)
	}
	fmt.Fprintln(t.out, "This will:")
	for _, a := range plan.Actions {
		fmt.Fprintf(t.out, "  - %s\n", a)
	}
	fmt.Fprint(t.out, "Proceed? [y/N] ")

	answer, err := t.readLine(ctx)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// SelectStudyType shows the menu. An unknown answer is returned unchanged
// so the run aborts with it in the reason.
func (t *terminal) SelectStudyType(ctx context.Context) (study.AnalysisType, error) {
	fmt.Fprintln(t.out, "Study type:")
	for i, a := range study.AnalysisTypes {
		fmt.Fprintf(t.out, "  %d. %s\n", i+1, a.Label())
	}
	fmt.Fprintf(t.out, "Choose [1-%d]: ", len(study.AnalysisTypes))

	answer, err := t.readLine(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if a, perr := study.ParseAnalysisType(answer); perr == nil {
		return a, nil
	}
	return study.AnalysisType(answer), nil
}
