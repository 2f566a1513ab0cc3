package catalog

import "sort"

// DefaultTool is selected when nothing else has been chosen.
const DefaultTool = "MAP608"

// Tool describes an AFM instrument whose catalog can be browsed.
type Tool struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

var knownTools = map[string]Tool{
	"MAP608": {ID: "MAP608", Description: "PKG - Wafer Level Packaging"},
	"MAPC01": {ID: "MAPC01", Description: "R3 - Research Fab"},
}

// Tools returns the known instruments ordered by id.
func Tools() []Tool {
	tools := make([]Tool, 0, len(knownTools))
	for _, t := range knownTools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].ID < tools[j].ID })
	return tools
}

// LookupTool returns the description of a known tool.
func LookupTool(id string) (Tool, bool) {
	t, ok := knownTools[id]
	return t, ok
}

// NextTool returns the tool after id in Tools() order, wrapping around.
// Unknown ids yield the first tool.
func NextTool(id string) string {
	tools := Tools()
	for i, t := range tools {
		if t.ID == id {
			return tools[(i+1)%len(tools)].ID
		}
	}
	return tools[0].ID
}
