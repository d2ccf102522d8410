package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/releasegrid/releasegrid/internal/registry"
)

// ExecutionRecord captures when one instance's action ran.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Recorder is a registry.Module that records every dispatch it receives.
// Tests inspect call counts and execution windows to verify scheduling
// order, zero-extra-calls on failure, and matrix independence.
type Recorder struct {
	// Action is the reference to register under. Defaults to "test.record".
	Action string
	// Delay is slept (cancellation-aware) inside each call.
	Delay time.Duration
	// FailOn maps instance IDs to the error their call returns.
	FailOn map[string]error

	mu      sync.Mutex
	calls   []registry.Request
	records map[string]*ExecutionRecord
}

// Register implements registry.Module.
func (r *Recorder) Register(reg *registry.Registry) {
	action := r.Action
	if action == "" {
		action = "test.record"
	}
	reg.RegisterRunner(action, registry.RunnerFunc(r.run))
}

func (r *Recorder) run(ctx context.Context, req registry.Request) error {
	start := time.Now()

	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	if r.records == nil {
		r.records = make(map[string]*ExecutionRecord)
	}
	r.calls = append(r.calls, req)
	r.records[req.InstanceID] = &ExecutionRecord{Start: start, End: time.Now()}
	r.mu.Unlock()

	if err, ok := r.FailOn[req.InstanceID]; ok {
		return err
	}
	return nil
}

// Calls returns the instance IDs dispatched so far, in dispatch order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.calls))
	for i, req := range r.calls {
		ids[i] = req.InstanceID
	}
	return ids
}

// CallCount returns how many times the given instance was dispatched.
func (r *Recorder) CallCount(instanceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, req := range r.calls {
		if req.InstanceID == instanceID {
			count++
		}
	}
	return count
}

// Record returns the execution window of the given instance, or nil if it
// never ran.
func (r *Recorder) Record(instanceID string) *ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[instanceID]
}

// Requests returns copies of every recorded dispatch.
func (r *Recorder) Requests() []registry.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]registry.Request, len(r.calls))
	copy(out, r.calls)
	return out
}
