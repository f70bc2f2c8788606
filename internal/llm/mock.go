package llm

import (
	"context"
	"fmt"
	"sync"
)

// Call is one recorded invocation.
type Call struct {
	System string
	User   string
}

// ScriptedInvoker is a mock invoker for testing. It returns Responses in
// order, one per call.
type ScriptedInvoker struct {
	Responses []string // Responses returned in call order
	Errors    []error  // Per-call errors; a non-nil entry wins over the response
	Err       error    // Error returned by every call (if any)

	mu    sync.Mutex
	calls []Call
}

// NewScriptedInvoker returns an invoker that answers with responses in order.
func NewScriptedInvoker(responses ...string) *ScriptedInvoker {
	return &ScriptedInvoker{Responses: responses}
}

// Invoke records the call and returns the next scripted response.
func (s *ScriptedInvoker) Invoke(ctx context.Context, system, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.calls)
	s.calls = append(s.calls, Call{System: system, User: user})

	if s.Err != nil {
		return "", s.Err
	}
	if n < len(s.Errors) && s.Errors[n] != nil {
		return "", s.Errors[n]
	}
	if n >= len(s.Responses) {
		return "", fmt.Errorf("scripted invoker: no response for call %d", n+1)
	}
	return s.Responses[n], nil
}

// Calls returns a copy of the recorded calls.
func (s *ScriptedInvoker) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}
