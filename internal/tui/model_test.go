package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/search"
	"github.com/khanglvm/afm-viewer/internal/session"
	"github.com/khanglvm/afm-viewer/internal/storage"
)

type stubLoader struct {
	mu       sync.Mutex
	catalogs map[string][]catalog.MeasurementRecord
	errs     map[string]error
}

func (s *stubLoader) Load(_ context.Context, toolID string) ([]catalog.MeasurementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[toolID]; err != nil {
		return nil, err
	}
	return s.catalogs[toolID], nil
}

func record(filename, recipe, lot, date string) catalog.MeasurementRecord {
	return catalog.MeasurementRecord{
		Filename:      filename,
		RecipeName:    recipe,
		LotID:         lot,
		FormattedDate: date,
		ToolName:      "MAP608",
	}
}

type harness struct {
	model   Model
	clock   *clockwork.FakeClock
	session *session.Store
	updates chan ResultsMsg
	loader  *stubLoader
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	loader := &stubLoader{
		catalogs: map[string][]catalog.MeasurementRecord{
			"MAP608": {
				record("a.csv", "CMP_DISHING", "LOT1", "2024-01-01"),
				record("b.csv", "STEP_HEIGHT", "LOT2", "2024-03-01"),
				record("c.csv", "CMP_EROSION", "LOT12", "2024-02-01"),
			},
			"MAPC01": {
				record("z.csv", "PAD_RECESS", "LOT9", "2024-05-01"),
			},
		},
		errs: map[string]error{},
	}

	fc := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	sess := session.Open(storage.NewMemoryStore(), session.Options{Clock: fc})
	searcher := search.NewSearcher(loader, 0, nil)
	updates := NewUpdates()
	ctrl := search.NewController(search.ControllerConfig{
		Searcher:  searcher,
		Session:   sess,
		Clock:     fc,
		Delay:     300 * time.Millisecond,
		OnResults: Forward(updates),
	})

	return &harness{
		model: New(Config{
			Controller: ctrl,
			Searcher:   searcher,
			Session:    sess,
			Updates:    updates,
		}),
		clock:   fc,
		session: sess,
		updates: updates,
		loader:  loader,
	}
}

func (h *harness) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	return cmd
}

// drain delivers the next result set. Debounced searches fire on a
// timer goroutine, so it waits briefly.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	select {
	case msg := <-h.updates:
		h.send(t, msg)
	case <-time.After(time.Second):
		t.Fatal("expected a pending result set")
	}
}

// load runs the load command synchronously and delivers its messages.
func (h *harness) load(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a load command")
	}
	h.send(t, cmd())
	h.drain(t)
}

func typeText(t *testing.T, h *harness, s string) {
	t.Helper()
	for _, r := range s {
		h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestInitialLoad(t *testing.T) {
	h := newHarness(t)

	if !h.model.Loading() {
		t.Error("model should start loading")
	}

	h.load(t, h.model.loadCmd(h.model.Tool()))

	if h.model.Loading() {
		t.Error("loading should clear after the load completes")
	}
	got := h.model.Results()
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	// Most recent first.
	if got[0].Filename != "b.csv" || got[2].Filename != "a.csv" {
		t.Errorf("results not sorted by recency: %v, %v, %v", got[0].Filename, got[1].Filename, got[2].Filename)
	}
}

func TestTypingIsDebounced(t *testing.T) {
	h := newHarness(t)
	h.load(t, h.model.loadCmd("MAP608"))

	typeText(t, h, "cmp")

	select {
	case <-h.updates:
		t.Fatal("no search should run before the debounce delay")
	default:
	}

	h.clock.Advance(300 * time.Millisecond)
	h.drain(t)

	got := h.model.Results()
	if len(got) != 2 {
		t.Fatalf("expected 2 CMP results, got %d", len(got))
	}
	if h.session.SearchQuery() != "cmp" {
		t.Errorf("query should be persisted, got %q", h.session.SearchQuery())
	}
}

func TestOpenAddsToHistory(t *testing.T) {
	h := newHarness(t)
	h.load(t, h.model.loadCmd("MAP608"))

	h.send(t, tea.KeyMsg{Type: tea.KeyDown})
	h.send(t, tea.KeyMsg{Type: tea.KeyEnter})

	hist := h.session.ViewHistory()
	if len(hist) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(hist))
	}
	if hist[0].Record.Filename != "c.csv" {
		t.Errorf("expected c.csv in history, got %s", hist[0].Record.Filename)
	}
	if !strings.Contains(h.model.View(), "/result/CMP_EROSION/c.csv") {
		t.Error("detail pane should show the result route")
	}
}

func TestOpenRejectsRecordWithoutRecipe(t *testing.T) {
	h := newHarness(t)
	h.loader.catalogs["MAP608"] = []catalog.MeasurementRecord{record("x.csv", "", "LOT1", "2024-01-01")}
	h.load(t, h.model.loadCmd("MAP608"))

	h.send(t, tea.KeyMsg{Type: tea.KeyEnter})

	if len(h.session.ViewHistory()) != 0 {
		t.Error("invalid record must not enter the history")
	}
	if !strings.Contains(h.model.View(), "recipe_name") {
		t.Error("view should report the missing field")
	}
}

func TestGroupToggle(t *testing.T) {
	h := newHarness(t)
	h.load(t, h.model.loadCmd("MAP608"))

	h.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	if h.model.Focus() != FocusList {
		t.Fatal("esc should focus the result list")
	}

	h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	if !h.session.IsInGroup("b.csv") {
		t.Fatal("g should add the selected record to the group")
	}

	h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	if h.session.IsInGroup("b.csv") {
		t.Error("second g should remove the record from the group")
	}
}

func TestListNavigation(t *testing.T) {
	h := newHarness(t)
	h.load(t, h.model.loadCmd("MAP608"))
	h.send(t, tea.KeyMsg{Type: tea.KeyEsc})

	for i := 0; i < 5; i++ {
		h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	}
	if h.model.Cursor() != 2 {
		t.Errorf("cursor should stop at the last result, got %d", h.model.Cursor())
	}

	h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	if h.model.Cursor() != 1 {
		t.Errorf("cursor after k should be 1, got %d", h.model.Cursor())
	}

	h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	if h.model.Focus() != FocusInput {
		t.Error("/ should focus the query input")
	}
}

func TestTabSwitchesTool(t *testing.T) {
	h := newHarness(t)
	h.load(t, h.model.loadCmd("MAP608"))

	cmd := h.send(t, tea.KeyMsg{Type: tea.KeyTab})
	if h.model.Tool() != "MAPC01" || !h.model.Loading() {
		t.Fatalf("tab should start loading MAPC01, tool=%s loading=%v", h.model.Tool(), h.model.Loading())
	}

	h.load(t, cmd)

	if h.session.SelectedTool() != "MAPC01" {
		t.Errorf("session tool should be MAPC01, got %s", h.session.SelectedTool())
	}
	if got := h.model.Results(); len(got) != 1 || got[0].Filename != "z.csv" {
		t.Errorf("expected MAPC01 catalog, got %v", got)
	}
}

func TestLoadFailureShowsError(t *testing.T) {
	h := newHarness(t)
	h.loader.errs["MAP608"] = errors.New("connection refused")

	h.load(t, h.model.loadCmd("MAP608"))

	if len(h.model.Results()) != 0 {
		t.Error("failed load should leave no results")
	}
	view := h.model.View()
	if !strings.Contains(view, "connection refused") {
		t.Error("view should report the load error")
	}
	if !strings.Contains(view, "No measurements found") {
		t.Error("view should show the empty state")
	}
}

func TestQuit(t *testing.T) {
	h := newHarness(t)

	cmd := h.send(t, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}

func TestForwardKeepsLatest(t *testing.T) {
	ch := NewUpdates()
	fwd := Forward(ch)

	fwd("a", nil)
	fwd("ab", nil)

	msg := <-ch
	if msg.Query != "ab" {
		t.Errorf("expected latest query ab, got %q", msg.Query)
	}
	select {
	case <-ch:
		t.Error("older result set should have been dropped")
	default:
	}
}
