// Package engine exposes the instance through the tableengine contract.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"tabledb/internal/instance"
	"tabledb/internal/meta"
	"tabledb/internal/table"
	"tabledb/pkg/config"
	"tabledb/pkg/dberrors"
	"tabledb/pkg/metrics"
	"tabledb/pkg/objectstore"
	"tabledb/pkg/tableengine"
	"tabledb/pkg/types"
	"tabledb/pkg/wal"
)

// BuildSpaceID maps a schema to its space. The mapping is the identity.
func BuildSpaceID(schemaID types.SchemaID) types.SpaceID {
	return types.SpaceID(schemaID)
}

// TableEngineImpl is the analytic table engine.
type TableEngineImpl struct {
	instance *instance.Instance
	cc       instance.CommonContext
	closers  []io.Closer
	logger   *slog.Logger
}

var _ tableengine.TableEngine = (*TableEngineImpl)(nil)

// New wraps an instance. closers are closed after the instance.
func New(inst *instance.Instance, cc instance.CommonContext, logger *slog.Logger, closers ...io.Closer) *TableEngineImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableEngineImpl{
		instance: inst,
		cc:       cc,
		closers:  closers,
		logger:   logger,
	}
}

type OpenOptions struct {
	Logger *slog.Logger
	// Registerer receives the engine metrics. Nil disables metrics.
	Registerer prometheus.Registerer
}

// Open builds the storage described by cfg and returns a ready engine.
func Open(ctx context.Context, cfg config.Config, opts OpenOptions) (*TableEngineImpl, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var collector metrics.Collector = metrics.Nop{}
	if opts.Registerer != nil {
		collector = metrics.NewPrometheus(opts.Registerer)
	}

	tableOpts, err := table.MergeOptionsForCreate(cfg.TableOpts, table.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("invalid table_opts: %w", err)
	}

	dataWAL, err := wal.New(cfg.Storage.WALPath())
	if err != nil {
		return nil, err
	}
	manifestWAL, err := wal.New(cfg.Storage.ManifestPath())
	if err != nil {
		return nil, errors.Join(err, dataWAL.Close())
	}
	store, err := objectstore.NewLocal(cfg.Storage.ObjectStorePath())
	if err != nil {
		return nil, errors.Join(err, dataWAL.Close(), manifestWAL.Close())
	}

	manifest, err := meta.OpenWALManifest(ctx, manifestWAL, store, meta.Options{
		SnapshotEvery: cfg.Engine.ManifestSnapshotEvery,
		Logger:        opts.Logger,
		Metrics:       collector,
	})
	if err != nil {
		return nil, errors.Join(err, dataWAL.Close(), manifestWAL.Close())
	}

	inst := instance.New(ctx, dataWAL, manifest, store, instance.Options{
		WriteGroupWorkerNum:         cfg.Engine.WriteGroupWorkerNum,
		WriteGroupCommandChannelCap: cfg.Engine.WriteGroupCommandChannelCap,
		TableOpts:                   tableOpts,
		Logger:                      opts.Logger,
		Metrics:                     collector,
	})
	cc := instance.CommonContext{
		DBWriteBufferSize:    cfg.Engine.DBWriteBufferSize,
		SpaceWriteBufferSize: cfg.Engine.SpaceWriteBufferSize,
	}

	opts.Logger.Info("table engine opened", "data_dir", cfg.Storage.DataDir)
	return New(inst, cc, opts.Logger, manifestWAL), nil
}

func (e *TableEngineImpl) EngineType() string {
	return tableengine.AnalyticEngineType
}

func (e *TableEngineImpl) Close(_ context.Context) error {
	e.logger.Info("try to close table engine")

	errs := []error{e.instance.Close()}
	for _, c := range e.closers {
		errs = append(errs, c.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", dberrors.ErrClose, err)
	}

	e.logger.Info("table engine closed")
	return nil
}

func (e *TableEngineImpl) CreateTable(ctx context.Context, req tableengine.CreateTableRequest) (tableengine.Table, error) {
	spaceID := BuildSpaceID(req.SchemaID)
	e.logger.Info("table engine impl create table", "space_id", spaceID, "request", req.String())

	d, err := e.instance.CreateTable(ctx, e.cc, spaceID, req)
	if err != nil {
		return nil, err
	}
	return newTableImpl(e, req.SchemaID, d), nil
}

func (e *TableEngineImpl) DropTable(ctx context.Context, req tableengine.DropTableRequest) (bool, error) {
	spaceID := BuildSpaceID(req.SchemaID)
	e.logger.Info("table engine impl drop table", "space_id", spaceID, "request", req.String())

	dropped, err := e.instance.DropTable(ctx, e.cc, spaceID, req)
	if err != nil {
		return false, err
	}
	e.logger.Info("table engine impl drop table done", "space_id", spaceID, "table", req.TableName, "dropped", dropped)
	return dropped, nil
}

func (e *TableEngineImpl) OpenTable(ctx context.Context, req tableengine.OpenTableRequest) (tableengine.Table, error) {
	spaceID := BuildSpaceID(req.SchemaID)
	e.logger.Info("table engine impl open table", "space_id", spaceID, "request", req.String())

	d, err := e.instance.OpenTable(ctx, e.cc, spaceID, req)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, nil
	}
	return newTableImpl(e, req.SchemaID, d), nil
}

func (e *TableEngineImpl) CloseTable(ctx context.Context, req tableengine.CloseTableRequest) error {
	spaceID := BuildSpaceID(req.SchemaID)
	e.logger.Info("table engine impl close table", "space_id", spaceID, "request", req.String())

	return e.instance.CloseTable(ctx, e.cc, spaceID, req)
}

// Tables lists the tables stored for a schema, open or not.
func (e *TableEngineImpl) Tables(schemaID types.SchemaID) []meta.AddTable {
	return e.instance.Tables(BuildSpaceID(schemaID))
}
