package catalog

import (
	"context"
	"log/slog"
)

// Fetcher is the part of Client the loader needs.
type Fetcher interface {
	Files(ctx context.Context, toolID string) (*FilesResponse, error)
}

// Loader fetches and normalizes a tool's full catalog.
type Loader struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(f Fetcher, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{fetcher: f, logger: logger}
}

// Load returns every record of toolID, normalized. The returned slice is
// freshly allocated and owned by the caller.
func (l *Loader) Load(ctx context.Context, toolID string) ([]MeasurementRecord, error) {
	l.logger.Debug("loading catalog", "tool", toolID)

	resp, err := l.fetcher.Files(ctx, toolID)
	if err != nil {
		return nil, err
	}

	records := make([]MeasurementRecord, len(resp.Records))
	for i, rec := range resp.Records {
		records[i] = rec.Normalize(toolID)
	}

	l.logger.Info("catalog loaded", "tool", toolID, "records", len(records), "total", resp.Total)
	return records, nil
}
