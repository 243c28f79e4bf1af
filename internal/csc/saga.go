package csc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// State is a save saga state.
type State int

// Saga states. Submitting and Failed carry the batch index in Outcome.
const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
	StateRollingBack
	StateRolledBack
	StateRollbackFailed
)

var stateNames = map[State]string{
	StateIdle:           "idle",
	StateSubmitting:     "submitting",
	StateSucceeded:      "succeeded",
	StateFailed:         "failed",
	StateRollingBack:    "rolling_back",
	StateRolledBack:     "rolled_back",
	StateRollbackFailed: "rollback_failed",
}

var transitions = map[State][]State{
	StateIdle:        {StateSubmitting, StateSucceeded},
	StateSubmitting:  {StateSubmitting, StateSucceeded, StateFailed},
	StateFailed:      {StateRollingBack},
	StateRollingBack: {StateRolledBack, StateRollbackFailed},
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether the saga has finished in s.
func (s State) Terminal(hasRollback bool) bool {
	switch s {
	case StateSucceeded, StateRolledBack, StateRollbackFailed:
		return true
	case StateFailed:
		return !hasRollback
	}
	return false
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Step sends one batch.
type Step struct {
	Name string
	Send func(ctx context.Context) error
}

// Outcome records how a saga run ended.
type Outcome struct {
	State       State           `json:"state"`
	FailedBatch int             `json:"failedBatch"`
	Batches     int             `json:"batches"`
	Sent        int             `json:"sent"`
	Path        []State         `json:"path"`
	Err         error           `json:"-"`
	RollbackErr error           `json:"-"`
	Notices     []shared.Notice `json:"notices,omitempty"`
}

// MarshalJSON adds the error texts to the encoded outcome.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type plain Outcome
	body := struct {
		plain
		Error         string `json:"error,omitempty"`
		RollbackError string `json:"rollbackError,omitempty"`
	}{plain: plain(o)}
	if o.Err != nil {
		body.Error = o.Err.Error()
	}
	if o.RollbackErr != nil {
		body.RollbackError = o.RollbackErr.Error()
	}
	return json.Marshal(body)
}

// Succeeded reports whether every batch was accepted.
func (o Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}

// Saga submits batches one at a time, halting on the first failure and attempting
// a single rollback when one is provided.
type Saga struct {
	// OnTransition observes every state change; index is the current batch or -1.
	OnTransition func(state State, index int)
}

// Run drives steps to a terminal state. A nil rollback leaves Failed terminal.
func (s Saga) Run(ctx context.Context, steps []Step, rollback func(ctx context.Context) error) Outcome {
	out := Outcome{State: StateIdle, FailedBatch: -1, Batches: len(steps), Path: []State{StateIdle}}
	move := func(to State, index int) {
		if !canTransition(out.State, to) {
			panic(fmt.Sprintf("csc: illegal saga transition %s -> %s", out.State, to))
		}
		out.State = to
		out.Path = append(out.Path, to)
		if s.OnTransition != nil {
			s.OnTransition(to, index)
		}
	}

	for i, step := range steps {
		move(StateSubmitting, i)
		err := ctx.Err()
		if err == nil {
			err = step.Send(ctx)
		}
		if err != nil {
			out.FailedBatch = i
			out.Err = fmt.Errorf("csc: batch %d (%s): %w", i, step.Name, err)
			move(StateFailed, i)
			break
		}
		out.Sent++
	}
	if out.State != StateFailed {
		move(StateSucceeded, -1)
		return out
	}
	if rollback == nil {
		return out
	}

	move(StateRollingBack, out.FailedBatch)
	// the draft is restored even when the request that triggered the save went away
	if err := rollback(context.WithoutCancel(ctx)); err != nil {
		out.RollbackErr = fmt.Errorf("csc: rollback: %w", err)
		move(StateRollbackFailed, out.FailedBatch)
		return out
	}
	move(StateRolledBack, out.FailedBatch)
	return out
}
