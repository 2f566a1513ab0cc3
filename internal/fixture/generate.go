package fixture

import (
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/khanglvm/afm-viewer/internal/catalog"
)

var (
	recipes = []string{
		"FSOXCMP_DISHING_9PT",
		"CUCMP_EROSION_5PT",
		"STI_STEP_HEIGHT",
		"WLP_BUMP_PROFILE",
		"PAD_RECESS_MAP",
	}
	measuredInfos = []string{"1", "2", "repeat2", "standard"}
	points        = []string{"1_UL", "2_UR", "3_C", "4_LL", "5_LR"}
	statItems     = []string{"MEAN", "STDEV", "MIN", "MAX", "RANGE"}
)

const profileSamples = 64

// Generate writes n dummy measurements for toolID under dir. The same
// seed always yields the same catalog content relative to the current day.
func Generate(dir, toolID string, n int, seed uint64) ([]catalog.MeasurementRecord, error) {
	if err := checkName(toolID); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x5DEECE66D))
	today := time.Now().UTC().Truncate(24 * time.Hour)
	toolDir := filepath.Join(dir, toolID)

	recs := make([]catalog.MeasurementRecord, 0, n)
	for i := 0; i < n; i++ {
		measured := today.AddDate(0, 0, -rng.IntN(180))
		rec := newRecord(rng, toolID, measured, i)

		if err := writeJSON(filepath.Join(toolDir, "detail", rec.Filename+".json"), newDetail(rng, rec)); err != nil {
			return nil, fmt.Errorf("failed to write detail: %w", err)
		}
		for _, p := range points {
			path := filepath.Join(toolDir, "profile", baseName(rec.Filename)+"_"+p+".json")
			if err := writeJSON(path, newProfile(rng)); err != nil {
				return nil, fmt.Errorf("failed to write profile: %w", err)
			}
		}
		recs = append(recs, rec)
	}

	if err := writeJSON(filepath.Join(toolDir, catalogFile), recs); err != nil {
		return nil, fmt.Errorf("failed to write catalog: %w", err)
	}
	return recs, nil
}

// newRecord builds a record whose filename follows the
// #date#recipe#lot_time#slot_info#.csv pattern of real catalogs.
func newRecord(rng *rand.Rand, toolID string, measured time.Time, i int) catalog.MeasurementRecord {
	date := measured.Format("060102")
	recipe := recipes[rng.IntN(len(recipes))]
	lot := fmt.Sprintf("T%dHQR%02dT%c", rng.IntN(9)+1, rng.IntN(100), 'A'+rune(rng.IntN(26)))
	slot := fmt.Sprintf("%02d", rng.IntN(25)+1)
	info := measuredInfos[rng.IntN(len(measuredInfos))]
	// Derived from i so filenames stay unique within one catalog.
	hms := fmt.Sprintf("%02d%02d%02d", i/3600%24, i/60%60, i%60)

	filename := fmt.Sprintf("#%s#%s#%s_%s#%s_%s#.csv", date, recipe, lot, hms, slot, info)
	name := baseName(filename)

	profiles := make([]string, len(points))
	for j, p := range points {
		profiles[j] = name + "_" + p + ".pkl"
	}

	return catalog.MeasurementRecord{
		UniqueKey:     fmt.Sprintf("%s_%s_%04d", toolID, date, i),
		Filename:      filename,
		ToolName:      toolID,
		RecipeName:    recipe,
		LotID:         lot,
		SlotNumber:    slot,
		MeasuredInfo:  info,
		Date:          date,
		FormattedDate: measured.Format("2006-01-02"),
		Time:          hms,
		ProfileDirs:   profiles,
		DataDirs:      []string{name + ".pkl"},
		TiffDirs:      []string{catalog.NoFiles},
		AlignDirs:     []string{catalog.NoFiles},
		TipDirs:       []string{catalog.NoFiles},
	}
}

func newDetail(rng *rand.Rand, rec catalog.MeasurementRecord) *catalog.Detail {
	base := 50 + rng.Float64()*100

	data := make([]map[string]any, 0, len(points))
	means := make(map[string]float64, len(points))
	for _, p := range points {
		v := round3(base + rng.NormFloat64()*5)
		means[p] = v
		data = append(data, map[string]any{
			"measurement_point": p,
			"Site":              p,
			"Value":             v,
		})
	}

	summary := make([]map[string]any, 0, len(statItems))
	for _, item := range statItems {
		row := map[string]any{"ITEM": item}
		for _, p := range points {
			switch item {
			case "MEAN":
				row[p] = means[p]
			case "STDEV":
				row[p] = round3(rng.Float64() * 3)
			case "MIN":
				row[p] = round3(means[p] - rng.Float64()*5)
			case "MAX":
				row[p] = round3(means[p] + rng.Float64()*5)
			default:
				row[p] = round3(rng.Float64() * 10)
			}
		}
		summary = append(summary, row)
	}

	return &catalog.Detail{
		Filename: rec.Filename,
		Tool:     rec.ToolName,
		Information: map[string]any{
			"recipe_name": rec.RecipeName,
			"lot_id":      rec.LotID,
			"Lot ID":      rec.LotID,
			"Recipe ID":   rec.RecipeName,
			"Sample ID":   "S" + rec.SlotNumber,
			"Start Time":  rec.FormattedDate + " " + rec.Time[:2] + ":" + rec.Time[2:4] + ":" + rec.Time[4:],
			"Tool":        rec.ToolName,
			"Measurement": rec.MeasuredInfo,
		},
		Summary:         summary,
		Data:            data,
		AvailablePoints: append([]string(nil), points...),
	}
}

func newProfile(rng *rand.Rand) []catalog.ProfilePoint {
	pts := make([]catalog.ProfilePoint, profileSamples)
	depth := 20 + rng.Float64()*30
	for i := range pts {
		x := float64(i) * 0.5
		pts[i] = catalog.ProfilePoint{
			X: x,
			Y: 0,
			Z: round3(-depth*math.Exp(-math.Pow((x-16)/6, 2)) + rng.NormFloat64()*0.3),
		}
	}
	return pts
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
