package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestSaga_RunsStepsInOrder(t *testing.T) {
	var order []string
	saga := &Saga{
		Name: "test",
		Steps: []Step{
			{Name: "one", Run: func(context.Context) error { order = append(order, "one"); return nil }},
			{Name: "two", Run: func(context.Context) error { order = append(order, "two"); return nil }},
		},
	}
	if err := saga.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "one" || order[1] != "two" {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestSaga_CompensatesCompletedStepsInReverse(t *testing.T) {
	var events []string
	saga := &Saga{
		Name: "test",
		Steps: []Step{
			{
				Name:       "one",
				Run:        func(context.Context) error { events = append(events, "run one"); return nil },
				Compensate: func(context.Context) error { events = append(events, "undo one"); return nil },
			},
			{
				Name:       "two",
				Run:        func(context.Context) error { events = append(events, "run two"); return nil },
				Compensate: func(context.Context) error { events = append(events, "undo two"); return nil },
			},
			{
				Name: "three",
				Run:  func(context.Context) error { return errors.New("boom") },
			},
		},
	}

	err := saga.Execute(context.Background())

	var sagaErr *SagaError
	if !errors.As(err, &sagaErr) {
		t.Fatalf("expected SagaError, got %v", err)
	}
	if sagaErr.Step != "three" {
		t.Fatalf("expected step three to be reported, got %s", sagaErr.Step)
	}
	if !sagaErr.Compensated {
		t.Fatal("expected compensation to be reported as complete")
	}

	want := []string{"run one", "run two", "undo two", "undo one"}
	if len(events) != len(want) {
		t.Fatalf("unexpected events: %v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestSaga_ReportsFailedCompensation(t *testing.T) {
	saga := &Saga{
		Name: "test",
		Steps: []Step{
			{
				Name:       "one",
				Run:        func(context.Context) error { return nil },
				Compensate: func(context.Context) error { return errors.New("cannot undo") },
			},
			{
				Name: "two",
				Run:  func(context.Context) error { return errors.New("boom") },
			},
		},
	}

	err := saga.Execute(context.Background())

	var sagaErr *SagaError
	if !errors.As(err, &sagaErr) {
		t.Fatalf("expected SagaError, got %v", err)
	}
	if sagaErr.Compensated {
		t.Fatal("expected compensation failure to be reported")
	}
}

func TestSaga_FirstStepFailureNeedsNoCompensation(t *testing.T) {
	saga := &Saga{
		Name: "test",
		Steps: []Step{
			{Name: "one", Run: func(context.Context) error { return errors.New("boom") }},
		},
	}

	err := saga.Execute(context.Background())

	var sagaErr *SagaError
	if !errors.As(err, &sagaErr) {
		t.Fatalf("expected SagaError, got %v", err)
	}
	if !sagaErr.Compensated {
		t.Fatal("nothing ran, so compensation is trivially complete")
	}
}
