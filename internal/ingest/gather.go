package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
)

// Source is anything that resolves a handle into source items.
type Source interface {
	Fetch(ctx context.Context, handle string) ([]domain.SourceItem, error)
}

const maxConcurrentFetches = 4

// Gather fetches every handle concurrently. A failing handle only means
// fewer sources, so errors are logged and skipped; the result keeps handle
// order.
func Gather(ctx context.Context, src Source, handles []string, logger *infra.Logger) []domain.SourceItem {
	perHandle := make([][]domain.SourceItem, len(handles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, handle := range handles {
		g.Go(func() error {
			items, err := src.Fetch(gctx, handle)
			if err != nil {
				if logger != nil {
					logger.Warn().Err(err).Str("handle", handle).Msg("ingest: handle skipped")
				}
				return nil
			}
			perHandle[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var out []domain.SourceItem
	for _, items := range perHandle {
		out = append(out, items...)
	}
	return out
}
