// Package writeworker serializes table mutations on a fixed set of lanes.
// All commands of one table run on the same lane in submission order.
package writeworker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"tabledb/pkg/listener"
	"tabledb/pkg/metrics"
	"tabledb/pkg/types"
)

var (
	ErrChannelClosed     = errors.New("write worker channel closed")
	ErrReceiveFromWorker = errors.New("failed to receive result from write worker")
)

// Processor executes commands on behalf of a lane.
type Processor interface {
	ProcessCommand(ctx context.Context, local *WorkerLocal, cmd Command)
}

// WorkerLocal is the state owned by one lane. Only code running on that lane
// receives it.
type WorkerLocal struct {
	index     int
	processed uint64
	logger    *slog.Logger
	state     any
}

func (l *WorkerLocal) Index() int {
	return l.index
}

func (l *WorkerLocal) Logger() *slog.Logger {
	return l.logger
}

// State returns the value the processor attached to this lane.
func (l *WorkerLocal) State() any {
	return l.state
}

func (l *WorkerLocal) SetState(v any) {
	l.state = v
}

type Options struct {
	// Name identifies the group in logs, usually the space id.
	Name              string
	WorkerNum         int
	CommandChannelCap int
	Logger            *slog.Logger
	Metrics           metrics.Collector
}

// Handle is the submission side of one lane.
type Handle struct {
	index int
	lane  *listener.Listener[Command]
}

func (h *Handle) Index() int {
	return h.index
}

func (h *Handle) send(ctx context.Context, cmd Command) error {
	if err := h.lane.Send(ctx, cmd); err != nil {
		if errors.Is(err, listener.ErrStopped) {
			return fmt.Errorf("%w: worker %d", ErrChannelClosed, h.index)
		}
		return err
	}
	return nil
}

// Group is a fixed set of lanes.
type Group struct {
	name      string
	handles   []*Handle
	processor Processor
	logger    *slog.Logger
	metrics   metrics.Collector
	stopped   atomic.Bool
}

// NewGroup starts opts.WorkerNum lanes running commands through processor.
// Commands execute under ctx without its cancellation, so a command accepted
// by a lane always runs to completion.
func NewGroup(ctx context.Context, opts Options, processor Processor) *Group {
	if opts.WorkerNum < 1 {
		opts.WorkerNum = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}

	g := &Group{
		name:      opts.Name,
		handles:   make([]*Handle, opts.WorkerNum),
		processor: processor,
		logger:    opts.Logger.With("write_group", opts.Name),
		metrics:   opts.Metrics,
	}

	runCtx := context.WithoutCancel(ctx)
	for i := range g.handles {
		local := &WorkerLocal{
			index:  i,
			logger: g.logger.With("worker", i),
		}
		lane := listener.New(
			fmt.Sprintf("write-worker-%s-%d", opts.Name, i),
			opts.CommandChannelCap,
			func(cmd Command) error {
				return g.run(runCtx, local, cmd)
			},
		)
		lane.Start(context.Background())
		g.handles[i] = &Handle{index: i, lane: lane}
	}

	g.logger.Info("write group started", "workers", opts.WorkerNum)
	return g
}

// ChooseWorker maps a table to its lane. The mapping depends only on the
// table id and the group size.
func (g *Group) ChooseWorker(tableID types.TableID) *Handle {
	return g.handles[uint64(tableID)%uint64(len(g.handles))]
}

// Stop rejects new commands, runs the queued ones and waits for every lane
// to exit.
func (g *Group) Stop() {
	if !g.stopped.CompareAndSwap(false, true) {
		return
	}
	for _, h := range g.handles {
		h.lane.Stop()
	}
	g.logger.Info("write group stopped")
}

func (g *Group) run(ctx context.Context, local *WorkerLocal, cmd Command) (err error) {
	local.processed++
	start := time.Now()
	labels := map[string]string{"kind": cmd.Kind()}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s %s panicked: %v", cmd.Kind(), cmd.ID(), r)
		}
		cmd.Finish()
		g.metrics.IncCounter("write_worker_commands_total", labels, 1)
		g.metrics.ObserveHistogram("write_worker_command_seconds", labels, time.Since(start).Seconds())
	}()

	local.logger.Debug("process command", "kind", cmd.Kind(), "cmd_id", cmd.ID(), "processed", local.processed)
	g.processor.ProcessCommand(ctx, local, cmd)
	return nil
}

// ProcessCommand submits cmd to handle's lane and waits for its result on rx.
// When ctx ends first the lane still runs the command.
func ProcessCommand[T any](ctx context.Context, cmd Command, handle *Handle, rx <-chan Result[T]) (T, error) {
	var zero T

	if err := handle.send(ctx, cmd); err != nil {
		return zero, err
	}

	select {
	case res, ok := <-rx:
		if !ok {
			return zero, fmt.Errorf("%w: command %s %s", ErrReceiveFromWorker, cmd.Kind(), cmd.ID())
		}
		return res.Value, res.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
