// Package purger deletes the objects of dropped tables in the background.
package purger

import (
	"context"
	"fmt"
	"log/slog"

	"tabledb/pkg/listener"
	"tabledb/pkg/objectstore"
	"tabledb/pkg/types"
)

const defaultQueueCapacity = 64

// FilePurger deletes object store prefixes on a single background lane.
type FilePurger struct {
	store  objectstore.Store
	lane   *listener.Listener[string]
	logger *slog.Logger
	ctx    context.Context
}

func New(store objectstore.Store, capacity int, logger *slog.Logger) *FilePurger {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}

	p := &FilePurger{
		store:  store,
		logger: logger.With("component", "file_purger"),
		ctx:    context.Background(),
	}
	p.lane = listener.New("file-purger", capacity, p.purge, func() {
		p.logger.Info("file purger stopped")
	})
	return p
}

func (p *FilePurger) Start(ctx context.Context) {
	p.ctx = context.WithoutCancel(ctx)
	p.lane.Start(ctx)
}

// Stop waits for every queued prefix to be purged.
func (p *FilePurger) Stop() {
	p.lane.Stop()
}

// Purge schedules deletion of every object under prefix.
func (p *FilePurger) Purge(ctx context.Context, prefix string) error {
	if err := p.lane.Send(ctx, prefix); err != nil {
		return fmt.Errorf("failed to schedule purge of %q: %w", prefix, err)
	}
	return nil
}

// PurgeTable schedules deletion of the objects of one table.
func (p *FilePurger) PurgeTable(ctx context.Context, spaceID types.SpaceID, tableID types.TableID) error {
	return p.Purge(ctx, TablePrefix(spaceID, tableID))
}

func (p *FilePurger) purge(prefix string) error {
	n, err := objectstore.DeletePrefix(p.ctx, p.store, prefix)
	if err != nil {
		return fmt.Errorf("purge %q after %d objects: %w", prefix, n, err)
	}
	p.logger.Debug("purged table objects", "prefix", prefix, "objects", n)
	return nil
}

// TablePrefix is the object store prefix holding a table's files.
func TablePrefix(spaceID types.SpaceID, tableID types.TableID) string {
	return fmt.Sprintf("space/%d/table/%d/", spaceID, tableID)
}
