package instance

import (
	"bytes"
	"context"
	"fmt"

	"tabledb/internal/space"
	"tabledb/internal/table"
	"tabledb/internal/writeworker"
	"tabledb/pkg/dberrors"
	"tabledb/pkg/schema"
	"tabledb/pkg/types"
	"tabledb/pkg/wal"
)

// rowPayload is the WAL record of one written row.
type rowPayload struct {
	row schema.Row
}

var _ wal.Payload = rowPayload{}

func (p rowPayload) EncodeSize() int {
	return schema.RowEncodedSize(p.row)
}

func (p rowPayload) EncodeTo(buf *bytes.Buffer) error {
	b, err := schema.EncodeRow(p.row)
	if err != nil {
		return err
	}
	_, err = buf.Write(b)
	return err
}

var rowDecoder = wal.PayloadDecoderFunc[schema.Row](func(buf []byte) (schema.Row, error) {
	row, _, err := schema.DecodeRow(buf)
	return row, err
})

// workerState is the per lane scratch space of the instance.
type workerState struct {
	batch *wal.LogWriteBatch[rowPayload]
}

func stateOf(local *writeworker.WorkerLocal) *workerState {
	if st, ok := local.State().(*workerState); ok {
		return st
	}
	st := &workerState{batch: wal.NewLogWriteBatch[rowPayload](types.DefaultRegionID)}
	local.SetState(st)
	return st
}

// Write appends rows to the table's WAL region and applies them to its
// memtable. It returns the number of rows written.
func (i *Instance) Write(ctx context.Context, cc CommonContext, d *table.Data, rows []schema.Row) (int, error) {
	if d.IsDropped() {
		return 0, newError(dberrors.ErrTableDropped, d.SpaceID, d.Name, d.ID, nil)
	}
	if d.IsClosed() {
		return 0, newError(dberrors.ErrTableClosed, d.SpaceID, d.Name, d.ID, nil)
	}
	sp, ok := i.findSpace(d.SpaceID)
	if !ok {
		return 0, newError(dberrors.ErrTableClosed, d.SpaceID, d.Name, d.ID, nil)
	}

	cmd, rx := newWriteCommand(cc, sp, d, rows)
	return processInWorker(ctx, cmd, d, rx)
}

// processWriteCommand must run on the table's write worker.
func (i *Instance) processWriteCommand(
	ctx context.Context,
	local *writeworker.WorkerLocal,
	cc CommonContext,
	sp *space.Space,
	d *table.Data,
	rows []schema.Row,
) (int, error) {
	switch {
	case d.IsDropped():
		return 0, newError(dberrors.ErrTableDropped, d.SpaceID, d.Name, d.ID, nil)
	case d.IsClosed():
		return 0, newError(dberrors.ErrTableClosed, d.SpaceID, d.Name, d.ID, nil)
	case len(rows) == 0:
		return 0, nil
	}

	for idx, row := range rows {
		if err := d.ValidateRow(row); err != nil {
			return 0, newError(dberrors.ErrInvalidRow, d.SpaceID, d.Name, d.ID, fmt.Errorf("row %d: %w", idx, err))
		}
	}

	batch := stateOf(local).batch
	batch.Clear()
	batch.SetRegionID(d.RegionID())
	for _, row := range rows {
		batch.Push(wal.LogWriteEntry[rowPayload]{Payload: rowPayload{row: row}})
	}

	last, err := wal.Append(ctx, i.wal, batch)
	batch.Clear()
	if err != nil {
		return 0, newError(dberrors.ErrWriteWal, d.SpaceID, d.Name, d.ID, err)
	}

	// entries of one batch get consecutive sequences ending at last
	first := last - types.SequenceNumber(len(rows)) + 1
	for idx, row := range rows {
		if err := d.Apply(row, first+types.SequenceNumber(idx)); err != nil {
			return idx, newError(dberrors.ErrInvalidRow, d.SpaceID, d.Name, d.ID, err)
		}
	}
	d.SetLastSequence(last)

	i.checkFlush(local, cc, sp, d)
	return len(rows), nil
}

// checkFlush reports tables whose buffers exceed a budget. Flushing itself
// happens elsewhere.
func (i *Instance) checkFlush(local *writeworker.WorkerLocal, cc CommonContext, sp *space.Space, d *table.Data) {
	var reason string
	switch {
	case d.ShouldFlush():
		reason = "table"
	case sp.ShouldFlush(cc.SpaceWriteBufferSize):
		reason = "space"
	case cc.DBWriteBufferSize > 0 && i.memUsage.Usage() >= int64(cc.DBWriteBufferSize):
		reason = "instance"
	default:
		return
	}

	i.metrics.IncCounter("table_flush_required_total", map[string]string{"reason": reason}, 1)
	local.Logger().Warn("table needs flush",
		"space_id", d.SpaceID,
		"table", d.Name,
		"table_id", d.ID,
		"reason", reason,
		"table_mem", d.MemUsage(),
		"space_mem", sp.MemUsage().Usage(),
		"instance_mem", i.memUsage.Usage())
}
