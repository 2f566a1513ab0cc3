package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasurementRecordUnmarshalScalars(t *testing.T) {
	data := `{
		"filename": "F1.csv",
		"recipe_name": "RCP_A",
		"lot_id": "LOT123",
		"slot_number": 7,
		"measured_info": "X1",
		"formatted_date": "2024-03-01"
	}`

	var rec MeasurementRecord
	require.NoError(t, json.Unmarshal([]byte(data), &rec))

	assert.Equal(t, "F1.csv", rec.Filename)
	assert.Equal(t, "RCP_A", rec.RecipeName)
	assert.Equal(t, "7", rec.SlotNumber)
	assert.Equal(t, "X1", rec.MeasuredInfo)
	assert.Equal(t, "2024-03-01", rec.FormattedDate)
}

func TestMeasurementRecordUnmarshalNull(t *testing.T) {
	var rec MeasurementRecord
	require.NoError(t, json.Unmarshal([]byte(`{"slot_number": null}`), &rec))
	assert.Empty(t, rec.SlotNumber)
	assert.Empty(t, rec.MeasuredInfo)
}

func TestNormalize(t *testing.T) {
	rec := MeasurementRecord{
		Filename:    "F1.csv",
		ProfileDirs: []string{"1_UL"},
	}.Normalize("MAPC01")

	assert.Equal(t, "MAPC01", rec.ToolName)
	assert.Equal(t, []string{"1_UL"}, rec.ProfileDirs)
	assert.Equal(t, []string{NoFiles}, rec.DataDirs)
	assert.Equal(t, []string{NoFiles}, rec.TipDirs)
	assert.True(t, rec.HasProfiles())
	assert.False(t, rec.HasRawData())
	assert.False(t, rec.HasImages())

	kept := MeasurementRecord{ToolName: "MAP608"}.Normalize("MAPC01")
	assert.Equal(t, "MAP608", kept.ToolName)
}

func TestSearchText(t *testing.T) {
	rec := MeasurementRecord{
		LotID:         "LOT123",
		RecipeName:    "RCP_A",
		Date:          "240301",
		FormattedDate: "2024-03-01",
		SlotNumber:    "07",
		MeasuredInfo:  "X1",
	}
	assert.Equal(t, "lot123 rcp_a 240301 2024-03-01 07 x1", rec.SearchText())
}

func TestTools(t *testing.T) {
	tools := Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "MAP608", tools[0].ID)
	assert.Equal(t, "MAPC01", tools[1].ID)

	tool, ok := LookupTool("MAPC01")
	assert.True(t, ok)
	assert.Equal(t, "R3 - Research Fab", tool.Description)

	_, ok = LookupTool("NOPE")
	assert.False(t, ok)

	assert.Equal(t, "MAPC01", NextTool("MAP608"))
	assert.Equal(t, "MAP608", NextTool("MAPC01"))
	assert.Equal(t, "MAP608", NextTool("unknown"))
}

func TestNewResultRoute(t *testing.T) {
	route, err := NewResultRoute(MeasurementRecord{Filename: "F 1.csv", RecipeName: "R/1", ToolName: "MAP608"})
	require.NoError(t, err)
	assert.Equal(t, "/result/R%2F1/F%201.csv", route.Path())
	assert.Equal(t, "MAP608", route.Tool)

	_, err = NewResultRoute(MeasurementRecord{RecipeName: "R"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "filename", verr.Field)

	_, err = NewResultRoute(MeasurementRecord{Filename: "F1.csv", RecipeName: "  "})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "recipe_name", verr.Field)
}
