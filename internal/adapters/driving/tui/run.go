// Package tui provides the interactive terminal front end. Provisioning
// commands hand it a run and it renders progress until the run returns.
package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/thomassicaud/teams-portal/internal/adapters/driving/tui/messages"
	"github.com/thomassicaud/teams-portal/internal/adapters/driving/tui/styles"
	"github.com/thomassicaud/teams-portal/internal/adapters/driving/tui/views/progress"
	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
)

const eventBuffer = 256

// ErrInterrupted is returned when the user quits before the run finished.
var ErrInterrupted = errors.New("interrupted")

// RunFunc is an operation that reports progress to sink.
type RunFunc func(ctx context.Context, sink driven.EventSink) (*domain.ProvisionResult, error)

// Options configures the program's terminal.
type Options struct {
	Input  io.Reader
	Output io.Writer
}

// channelSink forwards events to the view. Emit gives up when ctx ends so a
// quit view never blocks the run.
type channelSink struct {
	ctx context.Context
	ch  chan domain.Event
}

func (s *channelSink) Emit(ev domain.Event) {
	select {
	case s.ch <- ev:
	case <-s.ctx.Done():
	}
}

// Run starts fn and renders its progress until it returns or the user quits.
func Run(ctx context.Context, title string, fn RunFunc, opts Options) (*domain.ProvisionResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := &channelSink{ctx: ctx, ch: make(chan domain.Event, eventBuffer)}
	view := progress.NewView(styles.DefaultStyles(), title, sink.ch, cancel)

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}
	program := tea.NewProgram(view, programOpts...)

	finished := make(chan messages.RunFinished, 1)
	go func() {
		res, err := fn(ctx, sink)
		finished <- messages.RunFinished{Result: res, Err: err}
		program.Send(messages.RunFinished{Result: res, Err: err})
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-finished
		return nil, err
	}
	if !view.Done() {
		cancel()
		out := <-finished
		if out.Err == nil {
			out.Err = ErrInterrupted
		}
		return out.Result, out.Err
	}
	return view.Result()
}
