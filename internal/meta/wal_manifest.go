package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/klauspost/compress/zstd"

	"tabledb/pkg/metrics"
	"tabledb/pkg/objectstore"
	"tabledb/pkg/types"
	"tabledb/pkg/wal"
)

// SnapshotKey is where the manifest snapshot lives in the object store.
const SnapshotKey = "manifest/snapshot"

// manifestRegion is the WAL region of the manifest log.
const manifestRegion = types.DefaultRegionID

var ErrManifestClosed = errors.New("manifest closed")

type Options struct {
	// SnapshotEvery triggers a snapshot after this many updates. Zero
	// disables automatic snapshots.
	SnapshotEvery int
	Logger        *slog.Logger
	Metrics       metrics.Collector
}

// snapshot is the persisted form of ManifestData.
type snapshot struct {
	Sequence types.SequenceNumber `json:"sequence"`
	Tables   []AddTable           `json:"tables"`
}

// WALManifest appends updates to a WAL and keeps the applied state in
// memory. Older log entries are folded into a snapshot in the object store.
type WALManifest struct {
	wal   wal.Manager
	store objectstore.Store
	opts  Options

	data *ManifestData

	// mu serializes appends so the log order equals the apply order.
	mu            sync.Mutex
	lastSeq       types.SequenceNumber
	sinceSnapshot int
	encoder       *zstd.Encoder
	decoder       *zstd.Decoder
	logger        *slog.Logger
}

var _ Manifest = (*WALManifest)(nil)

// OpenWALManifest loads the latest snapshot and replays the log written
// after it.
func OpenWALManifest(ctx context.Context, w wal.Manager, store objectstore.Store, opts Options) (*WALManifest, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	m := &WALManifest{
		wal:     w,
		store:   store,
		opts:    opts,
		data:    NewManifestData(),
		encoder: encoder,
		decoder: decoder,
		logger:  opts.Logger.With("component", "manifest"),
	}

	if err := m.load(ctx); err != nil {
		m.closeCodecs()
		return nil, err
	}
	return m, nil
}

func (m *WALManifest) load(ctx context.Context) error {
	start := types.MinSequenceNumber

	raw, err := m.store.Get(ctx, SnapshotKey)
	switch {
	case errors.Is(err, objectstore.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read manifest snapshot: %w", err)
	default:
		snap, err := m.decodeSnapshot(raw)
		if err != nil {
			return err
		}
		for _, meta := range snap.Tables {
			if err := m.data.Apply(meta); err != nil {
				return err
			}
		}
		m.lastSeq = snap.Sequence
		start = snap.Sequence + 1
	}

	replayed := 0
	err = wal.Replay(ctx, m.wal, manifestRegion, start, PayloadDecoder{}, func(entry wal.LogEntry[MetaUpdate]) error {
		replayed++
		m.lastSeq = entry.Sequence
		return m.data.Apply(entry.Payload)
	})
	if err != nil {
		return fmt.Errorf("failed to replay manifest: %w", err)
	}
	m.sinceSnapshot = replayed

	m.logger.Info("manifest loaded",
		"tables", len(m.data.all()),
		"replayed_updates", replayed,
		"last_sequence", m.lastSeq)
	return nil
}

func (m *WALManifest) StoreUpdate(ctx context.Context, update MetaUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.encoder == nil {
		return ErrManifestClosed
	}

	batch := wal.WithCapacity[*Payload](manifestRegion, 1)
	batch.Push(wal.LogWriteEntry[*Payload]{Payload: NewPayload(update)})

	seq, err := wal.Append(ctx, m.wal, batch)
	if err != nil {
		return fmt.Errorf("failed to append %s to manifest: %w", update.Kind(), err)
	}
	if err := m.data.Apply(update); err != nil {
		return err
	}
	m.lastSeq = seq
	m.sinceSnapshot++
	m.opts.Metrics.IncCounter("manifest_updates_total", map[string]string{"kind": update.Kind()}, 1)

	if m.opts.SnapshotEvery > 0 && m.sinceSnapshot >= m.opts.SnapshotEvery {
		// the update is already durable, a failed snapshot is retried next time
		if err := m.snapshotLocked(ctx); err != nil {
			m.logger.Warn("failed to snapshot manifest", "error", err)
		}
	}
	return nil
}

func (m *WALManifest) TableMeta(spaceID types.SpaceID, tableID types.TableID) (AddTable, bool) {
	return m.data.TableMeta(spaceID, tableID)
}

func (m *WALManifest) Tables(spaceID types.SpaceID) []AddTable {
	return m.data.Tables(spaceID)
}

// Snapshot writes the current state to the object store and truncates the
// log up to it.
func (m *WALManifest) Snapshot(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(ctx)
}

func (m *WALManifest) snapshotLocked(ctx context.Context) error {
	if m.encoder == nil {
		return ErrManifestClosed
	}

	snap := snapshot{
		Sequence: m.lastSeq,
		Tables:   m.data.all(),
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest snapshot: %w", err)
	}

	if err := m.store.Put(ctx, SnapshotKey, m.encoder.EncodeAll(raw, nil)); err != nil {
		return fmt.Errorf("failed to put manifest snapshot: %w", err)
	}
	if err := m.wal.MarkDeleteEntriesUpTo(ctx, manifestRegion, snap.Sequence); err != nil {
		return fmt.Errorf("failed to truncate manifest log: %w", err)
	}

	m.sinceSnapshot = 0
	m.logger.Info("manifest snapshot written", "sequence", snap.Sequence, "tables", len(snap.Tables))
	return nil
}

func (m *WALManifest) decodeSnapshot(compressed []byte) (snapshot, error) {
	var snap snapshot

	raw, err := m.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return snap, fmt.Errorf("failed to decompress manifest snapshot: %w", err)
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("failed to parse manifest snapshot: %w", err)
	}
	return snap, nil
}

// Close releases the codecs. The WAL is owned by the caller.
func (m *WALManifest) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCodecs()
	return nil
}

func (m *WALManifest) closeCodecs() {
	if m.encoder != nil {
		_ = m.encoder.Close()
		m.encoder = nil
	}
	if m.decoder != nil {
		m.decoder.Close()
		m.decoder = nil
	}
}
