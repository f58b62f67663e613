package orchestrate

import (
	"context"
	"sync"

	"github.com/hazyhaar/sonodraft/study"
)

// Plan is what the operator is asked to approve.
type Plan struct {
	Studies []study.StudyReference
	Actions []string
}

// Decider supplies the operator's decisions. Confirm is the only point at
// which a run can be cancelled by the operator.
type Decider interface {
	Confirm(ctx context.Context, plan Plan) (bool, error)
	SelectStudyType(ctx context.Context) (study.AnalysisType, error)
}

// Scripted is a Decider with fixed answers. It records the plans it saw.
type Scripted struct {
	Approve   bool
	StudyType study.AnalysisType
	Err       error

	mu    sync.Mutex
	plans []Plan
}

func (s *Scripted) Confirm(_ context.Context, plan Plan) (bool, error) {
	s.mu.Lock()
	s.plans = append(s.plans, plan)
	s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	return s.Approve, nil
}

func (s *Scripted) SelectStudyType(context.Context) (study.AnalysisType, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.StudyType, nil
}

// Plans returns the plans presented so far.
func (s *Scripted) Plans() []Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Plan(nil), s.plans...)
}
