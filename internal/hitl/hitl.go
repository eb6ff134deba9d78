// Package hitl collects human input when a run cannot proceed without it.
package hitl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"inquest/internal/types"
)

// ErrNoResponse is returned when the human does not answer before the
// timeout. Callers treat this as an unresolved pause, never as consent.
var ErrNoResponse = errors.New("no human response received")

// Responder answers an escalation request on behalf of a human.
type Responder interface {
	Ask(ctx context.Context, req types.HITLRequest) (string, error)
}

// =============================================================================
// TERMINAL RESPONDER
// =============================================================================

// TerminalResponder prompts on a terminal and reads one line in reply.
type TerminalResponder struct {
	in      io.Reader
	out     io.Writer
	timeout time.Duration
}

// NewTerminalResponder creates a responder over the given streams. A zero
// timeout means wait indefinitely.
func NewTerminalResponder(in io.Reader, out io.Writer, timeout time.Duration) *TerminalResponder {
	return &TerminalResponder{in: in, out: out, timeout: timeout}
}

// Ask prints the escalation and blocks for a single line of input.
func (r *TerminalResponder) Ask(ctx context.Context, req types.HITLRequest) (string, error) {
	fmt.Fprintf(r.out, "\n--- HUMAN INPUT NEEDED ---\n")
	fmt.Fprintf(r.out, "Reason: %s\n", req.Reason)
	if req.ContextSummary != "" {
		fmt.Fprintf(r.out, "Context: %s\n", req.ContextSummary)
	}
	for i, opt := range req.Options {
		fmt.Fprintf(r.out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprintf(r.out, "%s\n> ", req.Question)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(r.in).ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrNoResponse, ctx.Err())
	case res := <-ch:
		if res.err != nil && res.line == "" {
			return "", fmt.Errorf("%w: %v", ErrNoResponse, res.err)
		}
		answer := strings.TrimSpace(res.line)
		if answer == "" {
			return "", ErrNoResponse
		}
		return answer, nil
	}
}
