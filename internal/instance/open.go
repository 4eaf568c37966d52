package instance

import (
	"context"

	"tabledb/internal/space"
	"tabledb/internal/table"
	"tabledb/internal/writeworker"
	"tabledb/pkg/dberrors"
	"tabledb/pkg/schema"
	"tabledb/pkg/tableengine"
	"tabledb/pkg/types"
	"tabledb/pkg/wal"
)

// OpenTable opens a table recorded in the manifest. It returns a nil table
// and no error when the table does not exist.
func (i *Instance) OpenTable(
	ctx context.Context,
	_ CommonContext,
	spaceID types.SpaceID,
	req tableengine.OpenTableRequest,
) (*table.Data, error) {
	i.logger.Info("instance open table", "space_id", spaceID, "request", req.String())

	if sp, ok := i.findSpace(spaceID); ok {
		if d, ok := sp.FindTableByID(req.TableID); ok {
			return d, nil
		}
	}

	m, ok := i.manifest.TableMeta(spaceID, req.TableID)
	if !ok {
		return nil, nil
	}

	sp, err := i.findOrCreateSpace(spaceID)
	if err != nil {
		return nil, newError(dberrors.ErrReadMeta, spaceID, req.TableName, req.TableID, err)
	}

	d, err := table.NewData(dataParamsFromMeta(m), sp.WriteGroup().ChooseWorker(m.ID), i.filePurger, sp.MemUsage())
	if err != nil {
		return nil, newError(dberrors.ErrCreateTableData, sp.ID, m.TableName, m.ID, err)
	}

	cmd, rx := newOpenTableCommand(sp, d)
	return processInWorker(ctx, cmd, d, rx)
}

// processOpenTableCommand must run on the table's write worker.
func (i *Instance) processOpenTableCommand(
	ctx context.Context,
	local *writeworker.WorkerLocal,
	sp *space.Space,
	d *table.Data,
) (*table.Data, error) {
	if existing, ok := sp.FindTableByID(d.ID); ok {
		return existing, nil
	}
	// dropped while the command was queued
	if _, ok := i.manifest.TableMeta(sp.ID, d.ID); !ok {
		return nil, nil
	}

	replayed, err := i.recoverTableData(ctx, d)
	if err != nil {
		d.SetClosed()
		return nil, newError(dberrors.ErrReadWal, sp.ID, d.Name, d.ID, err)
	}

	sp.InsertTable(d)
	local.Logger().Info("table opened",
		"space_id", sp.ID,
		"table", d.Name,
		"table_id", d.ID,
		"replayed_rows", replayed,
		"last_sequence", d.LastSequence())
	return d, nil
}

// recoverTableData replays the table's WAL region from its start sequence
// into its memtable.
func (i *Instance) recoverTableData(ctx context.Context, d *table.Data) (int, error) {
	region := d.RegionID()

	last, err := i.wal.SequenceNum(ctx, region)
	if err != nil {
		return 0, err
	}

	replayed := 0
	err = wal.Replay(ctx, i.wal, region, d.StartSequence(), rowDecoder, func(entry wal.LogEntry[schema.Row]) error {
		replayed++
		return d.Apply(entry.Payload, entry.Sequence)
	})
	if err != nil {
		return replayed, err
	}

	d.SetLastSequence(last)
	return replayed, nil
}
