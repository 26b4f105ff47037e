// Package llm implements the generative backends used to produce roast text.
// A Backend issues exactly one completion request per call under a hard
// timeout and normalizes the result; retrying across credentials is left to
// the caller.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("generation timed out")

	// ErrMalformedResponse is returned when a successful response carries no
	// generated text.
	ErrMalformedResponse = errors.New("malformed generation response")

	// ErrCircuitOpen is returned by Breaker while the credential's circuit is open.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Attempt is a single generation request against one credential.
type Attempt struct {
	Credential string
	Model      string
	Prompt     string
	Timeout    time.Duration
}

// Backend produces one completion for an attempt.
type Backend interface {
	Generate(ctx context.Context, attempt Attempt) (string, error)
}

// TimeoutError reports that the attempt's time budget elapsed before the
// backend answered.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generation timed out after %s", e.After)
}

// Is makes errors.Is(err, ErrTimeout) hold for any TimeoutError.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// HTTPError is a non-success response from the backend.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// Normalize trims surrounding whitespace and strips a single layer of
// matching enclosing quotes. Nothing else is altered.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			s = s[1 : len(s)-1]
		}
	}
	return s
}

type result struct {
	text string
	err  error
}

// callWithTimeout runs call with a context that expires after timeout and
// returns as soon as the deadline passes, even when call has not noticed the
// cancellation yet. Deadline expiry becomes a *TimeoutError.
func callWithTimeout(ctx context.Context, timeout time.Duration, call func(context.Context) (string, error)) (string, error) {
	if timeout <= 0 {
		return call(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		text, err := call(callCtx)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{After: timeout}
		}
		return r.text, r.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TimeoutError{After: timeout}
	}
}
