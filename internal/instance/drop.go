package instance

import (
	"context"

	"tabledb/internal/meta"
	"tabledb/internal/space"
	"tabledb/internal/writeworker"
	"tabledb/pkg/dberrors"
	"tabledb/pkg/tableengine"
	"tabledb/pkg/types"
)

// DropTable removes a table and reports whether one existed.
func (i *Instance) DropTable(
	ctx context.Context,
	_ CommonContext,
	spaceID types.SpaceID,
	req tableengine.DropTableRequest,
) (bool, error) {
	i.logger.Info("instance drop table", "space_id", spaceID, "request", req.String())

	sp, ok := i.findSpace(spaceID)
	if !ok {
		if _, stored := i.manifest.TableMeta(spaceID, req.TableID); !stored {
			return false, nil
		}
		var err error
		if sp, err = i.findOrCreateSpace(spaceID); err != nil {
			return false, newError(dberrors.ErrOperateByWriteWorker, spaceID, req.TableName, req.TableID, err)
		}
	}

	// routed by id, the table may not be open
	handle := sp.WriteGroup().ChooseWorker(req.TableID)
	cmd, rx := newDropTableCommand(sp, req)
	return processOnHandle(ctx, cmd, handle, rx, sp.ID, req.TableName, req.TableID)
}

// processDropTableCommand must run on the worker chosen for the table id.
func (i *Instance) processDropTableCommand(
	ctx context.Context,
	local *writeworker.WorkerLocal,
	sp *space.Space,
	req tableengine.DropTableRequest,
) (bool, error) {
	d, open := sp.FindTableByID(req.TableID)
	m, stored := i.manifest.TableMeta(sp.ID, req.TableID)
	if !open && !stored {
		return false, nil
	}

	name := req.TableName
	switch {
	case open:
		name = d.Name
	case stored:
		name = m.TableName
	}

	update := meta.DropTable{
		SpaceID:   sp.ID,
		ID:        req.TableID,
		TableName: name,
	}
	if err := i.manifest.StoreUpdate(ctx, update); err != nil {
		return false, newError(dberrors.ErrWriteManifest, sp.ID, name, req.TableID, err)
	}

	if open {
		sp.RemoveTable(req.TableID)
		d.SetDropped()
	}

	// The drop is durable at this point. WAL leftovers stay below the start
	// sequence of any later table with this id.
	region := types.TableRegionID(sp.ID, req.TableID)
	if last, err := i.wal.SequenceNum(ctx, region); err != nil {
		local.Logger().Warn("failed to read wal sequence of dropped table", "table_id", req.TableID, "error", err)
	} else if last > 0 {
		if err := i.wal.MarkDeleteEntriesUpTo(ctx, region, last); err != nil {
			local.Logger().Warn("failed to delete wal of dropped table", "table_id", req.TableID, "error", err)
		}
	}
	var purgeErr error
	if open {
		purgeErr = d.PurgeFiles(ctx)
	} else {
		purgeErr = i.filePurger.PurgeTable(ctx, sp.ID, req.TableID)
	}
	if purgeErr != nil {
		local.Logger().Warn("failed to schedule purge of dropped table", "table_id", req.TableID, "error", purgeErr)
	}

	local.Logger().Info("table dropped", "space_id", sp.ID, "table", name, "table_id", req.TableID)
	return true, nil
}
