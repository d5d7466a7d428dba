// internal/controller/prompter.go
package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// ErrCancelled is returned by Line when the controller's context is done or
// the input source is exhausted; both are treated as the user's cancellation
// signal.
var ErrCancelled = errors.New("input cancelled")

// Prompter serves user input lines. A single reader goroutine feeds lines
// into a channel so every prompt can observe context cancellation instead of
// blocking on a read.
type Prompter struct {
	lines <-chan string
	out   io.Writer

	done      chan struct{}
	closeOnce sync.Once
}

// NewPrompter starts reading lines from r. The returned Prompter must be the
// only consumer of r.
func NewPrompter(r io.Reader, out io.Writer) *Prompter {
	lines := make(chan string)
	p := &Prompter{lines: lines, out: out, done: make(chan struct{})}
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-p.done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Warn("input read failed", "error", err)
		}
	}()
	return p
}

// Close releases the reader goroutine once it leaves its current read.
// Safe to call more than once.
func (p *Prompter) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

// Line prints the prompt and waits for the next input line or cancellation.
func (p *Prompter) Line(ctx context.Context, promptText string) (string, error) {
	fmt.Fprint(p.out, promptText)
	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", ErrCancelled
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		return "", ErrCancelled
	}
}
