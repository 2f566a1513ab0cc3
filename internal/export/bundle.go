package export

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/khanglvm/afm-viewer/internal/catalog"
)

// Source fetches the data a bundle is built from.
type Source interface {
	Detail(ctx context.Context, filename, toolID string) (*catalog.Detail, error)
	Profile(ctx context.Context, filename, point, toolID string, site *catalog.SiteInfo) ([]catalog.ProfilePoint, error)
}

// Bundle is every dataset of one measurement.
type Bundle struct {
	Info     map[string]any
	Summary  []map[string]any
	Detailed []map[string]any
	Profile  []catalog.ProfilePoint

	// Point is the measurement point Profile belongs to.
	Point string
}

// FetchBundle loads the detail of filename and, when point is set, the
// profile of that point. Both requests run concurrently.
func FetchBundle(ctx context.Context, src Source, filename, toolID, point string, site *catalog.SiteInfo) (*Bundle, error) {
	b := &Bundle{Point: point}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d, err := src.Detail(ctx, filename, toolID)
		if err != nil {
			return fmt.Errorf("failed to fetch detail: %w", err)
		}
		b.Info = d.Information
		b.Summary = d.Summary
		b.Detailed = d.Data
		return nil
	})

	if point != "" {
		g.Go(func() error {
			p, err := src.Profile(ctx, filename, point, toolID, site)
			if err != nil {
				return fmt.Errorf("failed to fetch profile: %w", err)
			}
			b.Profile = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

// BaseName returns AFM_<recipe>_<lot>_<YYYYMMDD>.
func (b *Bundle) BaseName(now time.Time) string {
	return GenerateFilename("AFM", b.Info, now)
}

// Write writes one CSV per non-empty dataset into dir and returns the
// written paths: <base>_info, <base>_summary, <base>_detailed and
// <base>_profile_point_<point>.
func (b *Bundle) Write(dir string, now time.Time) ([]string, error) {
	base := b.BaseName(now)

	type file struct {
		suffix  string
		rows    []Row
		headers []string
	}

	var files []file
	if len(b.Info) > 0 {
		files = append(files, file{suffix: "info", rows: FormatMeasurementInfo(b.Info)})
	}
	if len(b.Summary) > 0 {
		files = append(files, file{suffix: "summary", rows: FormatSummaryStatistics(b.Summary)})
	}
	if len(b.Detailed) > 0 {
		files = append(files, file{suffix: "detailed", rows: FormatDetailedData(b.Detailed)})
	}
	if len(b.Profile) > 0 {
		point := b.Point
		if point == "" {
			point = "last"
		}
		files = append(files, file{
			suffix:  "profile_point_" + point,
			rows:    FormatProfileData(b.Profile),
			headers: ProfileHeaders,
		})
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path, err := WriteFile(dir, base+"_"+f.suffix, ToCSV(f.rows, f.headers))
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
