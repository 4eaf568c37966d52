// Package instance runs the table lifecycle: every mutation of a table is
// executed on the write worker the table is pinned to.
package instance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"
	"golang.org/x/sync/errgroup"

	"tabledb/internal/meta"
	"tabledb/internal/purger"
	"tabledb/internal/space"
	"tabledb/internal/table"
	"tabledb/internal/writeworker"
	"tabledb/pkg/dberrors"
	"tabledb/pkg/metrics"
	"tabledb/pkg/objectstore"
	"tabledb/pkg/types"
	"tabledb/pkg/wal"
)

// CommonContext carries the write buffer budgets shared by all operations.
// The budgets are read per request, they are not fixed when a space starts.
type CommonContext struct {
	DBWriteBufferSize    uint64
	SpaceWriteBufferSize uint64
}

type Options struct {
	WriteGroupWorkerNum         int
	WriteGroupCommandChannelCap int
	// TableOpts are merged under the options of every create request.
	TableOpts table.Options
	Logger    *slog.Logger
	Metrics   metrics.Collector
}

// Instance owns the data WAL, the manifest and the spaces.
type Instance struct {
	wal        wal.Manager
	manifest   meta.Manifest
	filePurger *purger.FilePurger
	tableOpts  table.Options
	opts       Options
	memUsage   *table.MemUsageCollector

	// ctx is inherited by write groups and the purger.
	ctx      context.Context
	spacesMu sync.Mutex
	spaces   *skipmap.FuncMap[types.SpaceID, *space.Space]
	closed   atomic.Bool

	logger  *slog.Logger
	metrics metrics.Collector
}

// New builds an instance on top of the given data WAL, manifest and object
// store. The instance closes the WAL and the manifest on Close.
func New(ctx context.Context, w wal.Manager, manifest meta.Manifest, store objectstore.Store, opts Options) *Instance {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.WriteGroupWorkerNum < 1 {
		opts.WriteGroupWorkerNum = 1
	}

	tableOpts := opts.TableOpts
	tableOpts.Sanitize()

	inst := &Instance{
		wal:        w,
		manifest:   manifest,
		filePurger: purger.New(store, 0, opts.Logger),
		tableOpts:  tableOpts,
		opts:       opts,
		memUsage:   table.NewMemUsageCollector(),
		ctx:        ctx,
		spaces: skipmap.NewFunc[types.SpaceID, *space.Space](func(a, b types.SpaceID) bool {
			return a < b
		}),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	inst.filePurger.Start(ctx)

	return inst
}

func (i *Instance) findSpace(spaceID types.SpaceID) (*space.Space, bool) {
	return i.spaces.Load(spaceID)
}

func (i *Instance) findOrCreateSpace(spaceID types.SpaceID) (*space.Space, error) {
	if sp, ok := i.spaces.Load(spaceID); ok {
		return sp, nil
	}

	i.spacesMu.Lock()
	defer i.spacesMu.Unlock()

	if i.closed.Load() {
		return nil, dberrors.ErrClosed
	}
	if sp, ok := i.spaces.Load(spaceID); ok {
		return sp, nil
	}

	group := writeworker.NewGroup(i.ctx, writeworker.Options{
		Name:              strconv.FormatUint(uint64(spaceID), 10),
		WorkerNum:         i.opts.WriteGroupWorkerNum,
		CommandChannelCap: i.opts.WriteGroupCommandChannelCap,
		Logger:            i.logger,
		Metrics:           i.metrics,
	}, i)
	sp := space.New(spaceID, group, i.memUsage)
	i.spaces.Store(spaceID, sp)

	i.logger.Info("space created", "space_id", spaceID)
	return sp, nil
}

// Tables lists the table metas the manifest holds for a space.
func (i *Instance) Tables(spaceID types.SpaceID) []meta.AddTable {
	return i.manifest.Tables(spaceID)
}

// MemUsage is the number of bytes buffered by all tables.
func (i *Instance) MemUsage() int64 {
	return i.memUsage.Usage()
}

// ProcessCommand runs on a write worker.
func (i *Instance) ProcessCommand(ctx context.Context, local *writeworker.WorkerLocal, cmd writeworker.Command) {
	switch c := cmd.(type) {
	case *CreateTableCommand:
		c.Respond(i.processCreateTableCommand(ctx, local, c.space, c.tableData))
	case *OpenTableCommand:
		c.Respond(i.processOpenTableCommand(ctx, local, c.space, c.tableData))
	case *CloseTableCommand:
		c.Respond(struct{}{}, i.processCloseTableCommand(ctx, local, c.space, c.tableData))
	case *DropTableCommand:
		c.Respond(i.processDropTableCommand(ctx, local, c.space, c.request))
	case *WriteCommand:
		c.Respond(i.processWriteCommand(ctx, local, c.cc, c.space, c.tableData, c.rows))
	default:
		local.Logger().Error("unknown write worker command", "kind", cmd.Kind(), "cmd_id", cmd.ID())
	}
}

// Close stops every write group after its queued commands ran, then the
// purger, the manifest and the WAL.
func (i *Instance) Close() error {
	if !i.closed.CompareAndSwap(false, true) {
		return nil
	}

	i.spacesMu.Lock()
	var eg errgroup.Group
	i.spaces.Range(func(_ types.SpaceID, sp *space.Space) bool {
		eg.Go(func() error {
			sp.Close()
			return nil
		})
		return true
	})
	_ = eg.Wait()
	i.spacesMu.Unlock()

	i.filePurger.Stop()

	var errs []error
	if err := i.manifest.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close manifest: %w", err))
	}
	if err := i.wal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close wal: %w", err))
	}

	i.logger.Info("instance closed")
	return errors.Join(errs...)
}

// processInWorker submits cmd to the worker of d. Errors produced by the
// worker keep their kind, failures to reach it become OperateByWriteWorker.
func processInWorker[T any](ctx context.Context, cmd writeworker.Command, d *table.Data, rx <-chan writeworker.Result[T]) (T, error) {
	return processOnHandle(ctx, cmd, d.WriteHandle(), rx, d.SpaceID, d.Name, d.ID)
}

func processOnHandle[T any](
	ctx context.Context,
	cmd writeworker.Command,
	handle *writeworker.Handle,
	rx <-chan writeworker.Result[T],
	spaceID types.SpaceID,
	tableName string,
	tableID types.TableID,
) (T, error) {
	v, err := writeworker.ProcessCommand(ctx, cmd, handle, rx)
	if err == nil {
		return v, nil
	}

	var instErr *Error
	if errors.As(err, &instErr) {
		return v, err
	}
	return v, newError(dberrors.ErrOperateByWriteWorker, spaceID, tableName, tableID, err)
}
