package catalog

import (
	"net/url"
	"strings"
)

// ResultRoute identifies the result page of one measurement.
type ResultRoute struct {
	RecipeID string
	Filename string
	Tool     string
}

// NewResultRoute validates rec and returns its result page route.
func NewResultRoute(rec MeasurementRecord) (ResultRoute, error) {
	if strings.TrimSpace(rec.Filename) == "" {
		return ResultRoute{}, &ValidationError{Field: "filename"}
	}
	if strings.TrimSpace(rec.RecipeName) == "" {
		return ResultRoute{}, &ValidationError{Field: "recipe_name"}
	}
	return ResultRoute{
		RecipeID: rec.RecipeName,
		Filename: rec.Filename,
		Tool:     rec.ToolName,
	}, nil
}

// Path returns /result/<recipe>/<filename> with both segments escaped.
func (r ResultRoute) Path() string {
	return "/result/" + url.PathEscape(r.RecipeID) + "/" + url.PathEscape(r.Filename)
}
