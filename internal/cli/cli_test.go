package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/fixture"
	"github.com/khanglvm/afm-viewer/internal/search"
	"github.com/khanglvm/afm-viewer/internal/session"
	"github.com/khanglvm/afm-viewer/internal/storage"
)

// testEnv is a fixture catalog service plus a scratch session database
// and export directory.
type testEnv struct {
	apiURL    string
	db        string
	exportDir string
	records   []catalog.MeasurementRecord
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	recs, err := fixture.Generate(dir, "MAP608", 6, 42)
	require.NoError(t, err)
	_, err = fixture.Generate(dir, "MAPC01", 3, 7)
	require.NoError(t, err)

	ts := httptest.NewServer(fixture.NewServer(fixture.Config{Dir: dir}).Handler())
	t.Cleanup(ts.Close)

	return &testEnv{
		apiURL:    ts.URL + "/api",
		db:        filepath.Join(t.TempDir(), "session.db"),
		exportDir: filepath.Join(t.TempDir(), "exports"),
		records:   recs,
	}
}

// run executes afm-viewer with args against the environment.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	args = append(args, "--api-url", e.apiURL, "--db", e.db, "--export-dir", e.exportDir, "--log-level", "error")
	return execute(args...)
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "afm-viewer %v\n%s", args, out)
	return out
}

func (e *testEnv) runJSON(t *testing.T, dst any, args ...string) {
	t.Helper()
	out := e.mustRun(t, append(args, "--json")...)
	require.NoError(t, json.Unmarshal([]byte(out), dst), out)
}

func execute(args ...string) (string, error) {
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type searchOutput struct {
	Tool    string                      `json:"tool"`
	Query   string                      `json:"query"`
	Total   int                         `json:"total"`
	Results []catalog.MeasurementRecord `json:"results"`
}

func TestRootCmdHasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{
		"search", "browse", "detail", "profile", "wafer", "export", "history",
		"group", "tools", "activity", "serve", "config", "version",
	} {
		sub, _, err := cmd.Find([]string{name})
		if assert.NoError(t, err, name) {
			assert.Equal(t, name, sub.Name())
		}
	}

	for _, flag := range []string{"config", "api-url", "timeout", "tool", "db", "export-dir", "log-level", "json"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %s", flag)
	}
}

func TestSearchWholeCatalog(t *testing.T) {
	env := newTestEnv(t)

	var got searchOutput
	env.runJSON(t, &got, "search")

	assert.Equal(t, "MAP608", got.Tool)
	assert.Equal(t, 6, got.Total)
	assert.Len(t, got.Results, 6)
}

func TestSearchFiltersByLot(t *testing.T) {
	env := newTestEnv(t)
	lot := env.records[2].LotID
	want := search.Filter(env.records, lot)

	var got searchOutput
	env.runJSON(t, &got, "search", strings.ToLower(lot))

	require.Equal(t, len(want), got.Total)
	for i := range want {
		assert.Equal(t, want[i].Filename, got.Results[i].Filename)
	}
}

func TestSearchLimitAndTable(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "search", "--limit", "2")

	assert.Contains(t, out, "MAP608: 2 of 6 measurements")
	assert.Contains(t, out, "(2 rows)")
}

func TestSearchNoMatch(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "search", "zzzz-not-there")
	assert.Contains(t, out, `No measurements match "zzzz-not-there" in MAP608.`)
}

func TestSearchServiceDown(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := execute("search", "--api-url", "http://127.0.0.1:1/api", "--db", "memory", "--timeout", "2s")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrNetwork), "got %v", err)
	assert.Contains(t, err.Error(), "check the AFM data service at http://127.0.0.1:1/api")
}

func TestSearchPersistsQuery(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "search", "cmp")

	db := storage.NewStorage(env.db, nil)
	require.NoError(t, db.Init())
	defer db.Close()

	assert.Equal(t, "cmp", session.Open(db, session.Options{}).SearchQuery())
}

func TestDetailAddsToHistory(t *testing.T) {
	env := newTestEnv(t)
	rec := env.records[0]

	out := env.mustRun(t, "detail", rec.Filename)
	assert.Contains(t, out, rec.Filename)
	assert.Contains(t, out, "Information")
	assert.Contains(t, out, "Route: /result/"+rec.RecipeName+"/")

	var history []session.HistoryEntry
	env.runJSON(t, &history, "history")
	require.Len(t, history, 1)
	assert.Equal(t, rec.Filename, history[0].Record.Filename)

	env.mustRun(t, "history", "clear")
	env.runJSON(t, &history, "history")
	assert.Empty(t, history)
}

func TestDetailMissingFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "detail", "#000000#missing#.csv")
	require.Error(t, err)

	var apiErr *catalog.APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, 404, apiErr.Status)
}

func TestGroupLifecycle(t *testing.T) {
	env := newTestEnv(t)
	f1, f2 := env.records[0].Filename, env.records[1].Filename

	out := env.mustRun(t, "group", "add", f1, f2)
	assert.Contains(t, out, "✓ Added "+f1)

	out = env.mustRun(t, "group", "add", f1)
	assert.Contains(t, out, "already in the group")

	var items []session.GroupItem
	env.runJSON(t, &items, "group", "list")
	require.Len(t, items, 2)

	var snap session.GroupSnapshot
	env.runJSON(t, &snap, "group", "save", "--name", "pair", "--description", "  two files ")
	assert.Equal(t, "pair", snap.Name)
	assert.Equal(t, "two files", snap.Description)
	assert.Equal(t, 2, snap.ItemCount)

	env.mustRun(t, "group", "clear")
	out = env.mustRun(t, "group")
	assert.Contains(t, out, "The MAP608 group is empty.")

	env.mustRun(t, "group", "restore", snap.ID)
	env.runJSON(t, &items, "group", "list")
	assert.Len(t, items, 2)

	env.mustRun(t, "group", "remove", f2)
	env.runJSON(t, &items, "group", "list")
	require.Len(t, items, 1)
	assert.Equal(t, f1, items[0].Record.Filename)

	env.mustRun(t, "group", "drop", snap.ID)
	var snaps []session.GroupSnapshot
	env.runJSON(t, &snaps, "group", "snapshots")
	assert.Empty(t, snaps)
}

func TestGroupAddUnknownFile(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "group", "add", "#000000#missing#.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the MAP608 catalog")
}

func TestGroupSaveEmpty(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "group", "save")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group is empty")
}

func TestToolsUseSwitchesNamespace(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "group", "add", env.records[0].Filename)

	out := env.mustRun(t, "tools", "use", "MAPC01")
	assert.Contains(t, out, "✓ Selected MAPC01")

	var tools struct {
		Selected string         `json:"selected"`
		Tools    []catalog.Tool `json:"tools"`
		Saved    []string       `json:"saved"`
	}
	env.runJSON(t, &tools, "tools")
	assert.Equal(t, "MAPC01", tools.Selected)
	assert.Len(t, tools.Tools, 2)
	assert.Equal(t, []string{"MAP608"}, tools.Saved)

	var got searchOutput
	env.runJSON(t, &got, "search")
	assert.Equal(t, "MAPC01", got.Tool)
	assert.Equal(t, 3, got.Total)

	var items []session.GroupItem
	env.runJSON(t, &items, "group")
	assert.Empty(t, items)

	env.runJSON(t, &items, "group", "--tool", "MAP608")
	assert.Len(t, items, 1)
}

func TestToolsUseUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "tools", "use", "NOPE01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown tool "NOPE01"`)
}

func TestWafer(t *testing.T) {
	env := newTestEnv(t)
	f := env.records[0].Filename

	var points []catalog.WaferPoint
	env.runJSON(t, &points, "wafer", f)
	require.Len(t, points, 5)
	for _, p := range points {
		assert.True(t, p.HasValue, p.Point)
	}

	out := env.mustRun(t, "wafer", f, "--select", "3_C")
	assert.Contains(t, out, "point 3_C")
	assert.Contains(t, out, "(64 rows)")

	_, err := env.run(t, "wafer", f, "--select", "9_X")
	require.Error(t, err)
}

func TestProfileWithSite(t *testing.T) {
	env := newTestEnv(t)
	f := env.records[1].Filename

	var got struct {
		Selection session.Point          `json:"selection"`
		Profile   []catalog.ProfilePoint `json:"profile"`
	}
	env.runJSON(t, &got, "profile", f, "2_UR", "--point-no", "2")

	assert.Equal(t, "2_UR", got.Selection.Point)
	require.NotNil(t, got.Selection.Site)
	assert.Equal(t, "2", got.Selection.Site.PointNo)
	assert.Len(t, got.Profile, 64)
}

func TestExportFile(t *testing.T) {
	env := newTestEnv(t)
	rec := env.records[0]

	var got struct {
		Files []string `json:"files"`
	}
	env.runJSON(t, &got, "export", "file", rec.Filename, "--point", "3_C")
	require.Len(t, got.Files, 4)

	prefix := filepath.Join(env.exportDir, "AFM_"+rec.RecipeName+"_"+rec.LotID+"_")
	for _, f := range got.Files {
		assert.True(t, strings.HasPrefix(f, prefix), f)
		assert.FileExists(t, f)
	}
	assert.True(t, strings.HasSuffix(got.Files[3], "_profile_point_3_C.csv"), got.Files[3])

	data, err := os.ReadFile(got.Files[3])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `"x","y","z"`+"\n"), string(data[:20]))
}

func TestExportSearchAndGroup(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "export", "search", "--output", "all")
	assert.Contains(t, out, "Exported 1 file(s)")

	data, err := os.ReadFile(filepath.Join(env.exportDir, "all.csv"))
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	assert.Equal(t, `"filename","recipe_name","lot_id","slot_number","measured_info","formatted_date","tool_name"`, lines[0])
	assert.Len(t, lines, 7)

	_, err = env.run(t, "export", "group")
	require.Error(t, err)

	env.mustRun(t, "group", "add", env.records[0].Filename)
	env.mustRun(t, "export", "group", "--output", "pinned.csv")
	assert.FileExists(t, filepath.Join(env.exportDir, "pinned.csv"))
}

func TestActivityLog(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "search", "cmp")
	env.mustRun(t, "detail", env.records[0].Filename)

	var events []storage.ActivityEvent
	env.runJSON(t, &events, "activity")
	require.Len(t, events, 2)

	assert.Equal(t, storage.ActivityView, events[0].Kind)
	assert.Equal(t, env.records[0].Filename, events[0].Subject)
	assert.Equal(t, storage.ActivitySearch, events[1].Kind)
	assert.Equal(t, storage.HashQuery("cmp"), events[1].QueryHash)

	out := env.mustRun(t, "activity", "cleanup", "--older-than", "1h")
	assert.Contains(t, out, "✓ Removed activity older than 1h0m0s")
}

func TestActivityDisabledByEnv(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("AFM_VIEWER_ACTIVITY_ENABLED", "false")
	env.mustRun(t, "search", "cmp")

	out := env.mustRun(t, "activity")
	assert.Contains(t, out, "No activity recorded yet.")
}

func TestActivityWithMemoryStorage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := execute("activity", "--db", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "Activity log unavailable")
}

func TestConfigInitShowPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "afm.yaml")

	out, err := execute("config", "init", "--config", path, "--api-url", "http://afm-server:5000/api", "--tool", "MAPC01")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote "+path)

	_, err = execute("config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, err = execute("config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "base_url: http://afm-server:5000/api")
	assert.Contains(t, out, "tool: MAPC01")

	out, err = execute("config", "path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

func TestVersionJSON(t *testing.T) {
	out, err := execute("version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
	assert.NotEmpty(t, info["go_version"])
}
