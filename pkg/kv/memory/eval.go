package memory

import (
	"context"
	"strconv"

	"github.com/KingInYellow18/medianest-sub013/pkg/kv"
)

// Defaults used when the script arguments carry no parseable limit/window.
const (
	defaultEvalLimit  int64 = 10
	defaultEvalWindow int64 = 60
)

// SetEvalScenario selects which canned rate-limit response Eval returns.
func (s *Store) SetEvalScenario(scenario kv.EvalScenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evalScenario = scenario
}

// EvalScenario returns the currently selected canned scenario.
func (s *Store) EvalScenario() kv.EvalScenario {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evalScenario
}

// Eval does not interpret the script. It answers with the fixed-shape
// rate-limit tuple [allowed 0|1, limit, remaining, resetEpochSeconds],
// reading limit and window from the first two args when they parse as
// integers. The allowed/exceeded split is driven by SetEvalScenario so
// both branches of dependent rate-limit logic run deterministically.
func (s *Store) Eval(ctx context.Context, script string, keys []string, args ...string) ([]int64, error) {
	if err := s.guardData("EVAL"); err != nil {
		return nil, err
	}

	limit := defaultEvalLimit
	window := defaultEvalWindow
	if len(args) > 0 {
		if parsed, err := strconv.ParseInt(args[0], 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if len(args) > 1 {
		if parsed, err := strconv.ParseInt(args[1], 10, 64); err == nil && parsed > 0 {
			window = parsed
		}
	}

	s.mu.Lock()
	scenario := s.evalScenario
	reset := s.clock.Now().Unix() + window
	s.mu.Unlock()

	if scenario == kv.EvalExceeded {
		return []int64{0, limit, 0, reset}, nil
	}
	return []int64{1, limit, limit - 1, reset}, nil
}
