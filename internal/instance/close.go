package instance

import (
	"context"

	"tabledb/internal/space"
	"tabledb/internal/table"
	"tabledb/internal/writeworker"
	"tabledb/pkg/tableengine"
	"tabledb/pkg/types"
)

// CloseTable unregisters an open table. Closing a table that is not open is
// a no-op.
func (i *Instance) CloseTable(
	ctx context.Context,
	_ CommonContext,
	spaceID types.SpaceID,
	req tableengine.CloseTableRequest,
) error {
	i.logger.Info("instance close table", "space_id", spaceID, "request", req.String())

	sp, ok := i.findSpace(spaceID)
	if !ok {
		return nil
	}
	d, ok := sp.FindTableByID(req.TableID)
	if !ok {
		return nil
	}

	cmd, rx := newCloseTableCommand(sp, d)
	_, err := processInWorker(ctx, cmd, d, rx)
	return err
}

// processCloseTableCommand must run on the table's write worker.
func (i *Instance) processCloseTableCommand(
	_ context.Context,
	local *writeworker.WorkerLocal,
	sp *space.Space,
	d *table.Data,
) error {
	current, ok := sp.FindTableByID(d.ID)
	if !ok || current != d {
		return nil
	}

	sp.RemoveTable(d.ID)
	d.SetClosed()
	local.Logger().Info("table closed", "space_id", sp.ID, "table", d.Name, "table_id", d.ID)
	return nil
}
