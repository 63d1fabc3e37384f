package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/courtside/internal/model"
)

// Snapshot captures a scenario's trace and final state.
// It is serialized with canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	State        map[string]any
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization, which only accepts maps, slices and scalars.
func (s *Snapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		traceList[i] = map[string]any{
			"step":    event.Step,
			"op":      event.Op,
			"args":    event.Args,
			"outcome": event.Outcome,
			"result":  event.Result,
		}
	}

	state := s.State
	if state == nil {
		state = map[string]any{}
	}
	return map[string]any{
		"scenario": s.ScenarioName,
		"trace":    traceList,
		"state":    state,
	}
}

// Marshal renders the snapshot as canonical JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return model.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass. Test failure (via
// goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		State:        result.State,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
