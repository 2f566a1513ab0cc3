package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// WaferPoint is one cell of the wafer heat map.
type WaferPoint struct {
	Point    string  `json:"point"`
	Name     string  `json:"name"`
	Position string  `json:"position"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Value    float64 `json:"value"`
	HasValue bool    `json:"has_value"`
}

var positionCoords = map[string][2]int{
	"UL": {-3, 3},
	"UR": {3, 3},
	"LL": {-3, -3},
	"LR": {3, -3},
	"C":  {0, 0},
}

// BuildWaferMap lays out the detail's available points on the wafer.
// Points named <n>_<UL|UR|LL|LR|C> get fixed coordinates; anything else
// is arranged on a square grid. Values come from the summary row whose
// ITEM is MEAN.
func BuildWaferMap(d *Detail) []WaferPoint {
	if d == nil || len(d.AvailablePoints) == 0 {
		return []WaferPoint{}
	}

	mean := meanRow(d.Summary)
	gridSize := int(math.Ceil(math.Sqrt(float64(len(d.AvailablePoints)))))
	points := make([]WaferPoint, 0, len(d.AvailablePoints))

	for i, point := range d.AvailablePoints {
		number, position, _ := strings.Cut(point, "_")

		wp := WaferPoint{
			Point:    point,
			Name:     fmt.Sprintf("Point %s", number),
			Position: position,
		}

		if xy, ok := positionCoords[strings.ToUpper(position)]; ok {
			wp.X, wp.Y = xy[0], xy[1]
		} else {
			wp.X = (i%gridSize)*2 - gridSize
			wp.Y = (i/gridSize)*2 - gridSize
		}

		if mean != nil {
			if v, ok := toFloat(mean[point]); ok {
				wp.Value = v
				wp.HasValue = true
			}
		}

		points = append(points, wp)
	}

	return points
}

func meanRow(summary []map[string]any) map[string]any {
	for _, row := range summary {
		if item, _ := row["ITEM"].(string); item == "MEAN" {
			return row
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
