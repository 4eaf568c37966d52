package instance

import (
	"context"

	"tabledb/internal/meta"
	"tabledb/internal/space"
	"tabledb/internal/table"
	"tabledb/internal/writeworker"
	"tabledb/pkg/dberrors"
	"tabledb/pkg/tableengine"
	"tabledb/pkg/types"
)

// CreateTable creates the table or returns the existing one with the same id.
func (i *Instance) CreateTable(
	ctx context.Context,
	_ CommonContext,
	spaceID types.SpaceID,
	req tableengine.CreateTableRequest,
) (*table.Data, error) {
	sp, err := i.findOrCreateSpace(spaceID)
	if err != nil {
		return nil, newError(dberrors.ErrCreateTableData, spaceID, req.TableName, req.TableID, err)
	}
	return i.doCreateTable(ctx, sp, req)
}

func (i *Instance) doCreateTable(ctx context.Context, sp *space.Space, req tableengine.CreateTableRequest) (*table.Data, error) {
	i.logger.Info("instance create table", "space_id", sp.ID, "request", req.String())

	opts, err := table.MergeOptionsForCreate(req.Options, i.tableOpts)
	if err != nil {
		return nil, newError(dberrors.ErrInvalidOptions, sp.ID, req.TableName, req.TableID, err)
	}
	opts.Sanitize()

	if d, ok := sp.FindTableByID(req.TableID); ok {
		return d, nil
	}

	writeHandle := sp.WriteGroup().ChooseWorker(req.TableID)
	d, err := table.NewData(table.DataParams{
		SpaceID: sp.ID,
		TableID: req.TableID,
		Name:    req.TableName,
		Schema:  req.Schema,
		Options: opts,
	}, writeHandle, i.filePurger, sp.MemUsage())
	if err != nil {
		return nil, newError(dberrors.ErrCreateTableData, sp.ID, req.TableName, req.TableID, err)
	}

	cmd, rx := newCreateTableCommand(sp, d)
	return processInWorker(ctx, cmd, d, rx)
}

// processCreateTableCommand must run on the table's write worker.
func (i *Instance) processCreateTableCommand(
	ctx context.Context,
	local *writeworker.WorkerLocal,
	sp *space.Space,
	d *table.Data,
) (*table.Data, error) {
	if existing, ok := sp.FindTableByID(d.ID); ok {
		// a concurrent create won the race on this worker
		return existing, nil
	}

	// Known to the manifest but not open, e.g. after a restart. Opening
	// keeps the rows in its WAL and avoids a second AddTable.
	if m, ok := i.manifest.TableMeta(sp.ID, d.ID); ok {
		local.Logger().Info("table exists in manifest, open instead of create",
			"space_id", sp.ID, "table", m.TableName, "table_id", m.ID)

		recovered, err := table.NewData(dataParamsFromMeta(m), d.WriteHandle(), i.filePurger, sp.MemUsage())
		if err != nil {
			return nil, newError(dberrors.ErrCreateTableData, sp.ID, m.TableName, m.ID, err)
		}
		return i.processOpenTableCommand(ctx, local, sp, recovered)
	}

	// Entries left behind by a dropped table with the same id stay below
	// the start sequence.
	last, err := i.wal.SequenceNum(ctx, d.RegionID())
	if err != nil {
		return nil, newError(dberrors.ErrReadWal, sp.ID, d.Name, d.ID, err)
	}

	update := meta.AddTable{
		SpaceID:       sp.ID,
		ID:            d.ID,
		TableName:     d.Name,
		Schema:        d.Schema(),
		Options:       d.Options(),
		StartSequence: last + 1,
	}
	if err := i.manifest.StoreUpdate(ctx, update); err != nil {
		return nil, newError(dberrors.ErrWriteManifest, sp.ID, d.Name, d.ID, err)
	}
	d.SetStartSequence(update.StartSequence)
	d.SetLastSequence(last)

	sp.InsertTable(d)
	local.Logger().Info("table created", "space_id", sp.ID, "table", d.Name, "table_id", d.ID)
	return d, nil
}

func dataParamsFromMeta(m meta.AddTable) table.DataParams {
	return table.DataParams{
		SpaceID:       m.SpaceID,
		TableID:       m.ID,
		Name:          m.TableName,
		Schema:        m.Schema,
		Options:       m.Options,
		StartSequence: m.StartSequence,
	}
}
