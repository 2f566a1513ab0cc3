/*
Package tui implements the interactive measurement browser.

The browser never filters on its own: keystrokes go to the search
controller, which debounces them and searches the loaded catalog. Result
sets come back on a channel fed by Forward and are delivered through the
bubbletea message loop.
*/
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/khanglvm/afm-viewer/internal/activity"
	"github.com/khanglvm/afm-viewer/internal/catalog"
	"github.com/khanglvm/afm-viewer/internal/search"
	"github.com/khanglvm/afm-viewer/internal/session"
)

// Focus identifies which widget receives keystrokes.
type Focus int

const (
	// FocusInput sends keystrokes to the query input.
	FocusInput Focus = iota
	// FocusList sends keystrokes to the result list.
	FocusList
)

const defaultHeight = 24

// ResultsMsg carries one result set from the controller.
type ResultsMsg struct {
	Query   string
	Results []catalog.MeasurementRecord
}

// loadDoneMsg is sent when a catalog load issued by the browser returns.
type loadDoneMsg struct {
	result search.LoadResult
}

// NewUpdates returns the channel Forward writes to and the model reads.
func NewUpdates() chan ResultsMsg {
	return make(chan ResultsMsg, 1)
}

// Forward returns a search.ResultsFunc that posts to ch. Only the latest
// unread result set is kept.
func Forward(ch chan ResultsMsg) search.ResultsFunc {
	return func(q string, results []catalog.MeasurementRecord) {
		msg := ResultsMsg{Query: q, Results: results}
		for {
			select {
			case ch <- msg:
				return
			default:
				select {
				case <-ch:
				default:
				}
			}
		}
	}
}

// Config wires the model to the search layer and session.
type Config struct {
	Controller *search.Controller
	Searcher   *search.Searcher
	Session    *session.Store
	Tracker    *activity.Tracker
	Updates    chan ResultsMsg
	Context    context.Context
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx        context.Context
	controller *search.Controller
	searcher   *search.Searcher
	session    *session.Store
	tracker    *activity.Tracker
	updates    chan ResultsMsg

	keys   KeyMap
	styles styles
	input  textinput.Model
	focus  Focus

	tool    string
	query   string
	results []catalog.MeasurementRecord
	cursor  int
	loading bool
	detail  *catalog.MeasurementRecord
	route   string
	status  string
	failed  bool

	width  int
	height int
}

// New creates the browser. The initial tool and query come from the
// session.
func New(cfg Config) Model {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	input := textinput.New()
	input.Placeholder = "Search recipe, lot, filename..."
	input.Prompt = "> "
	input.SetValue(cfg.Session.SearchQuery())
	input.Focus()

	cfg.Searcher.SetQuery(input.Value())

	return Model{
		ctx:        ctx,
		controller: cfg.Controller,
		searcher:   cfg.Searcher,
		session:    cfg.Session,
		tracker:    cfg.Tracker,
		updates:    cfg.Updates,
		keys:       DefaultKeyMap,
		styles:     defaultStyles(),
		input:      input,
		focus:      FocusInput,
		tool:       cfg.Session.SelectedTool(),
		query:      input.Value(),
		loading:    true,
		height:     defaultHeight,
	}
}

// Init implements tea.Model. It loads the selected tool's catalog and
// starts listening for result sets.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenForResults(m.updates),
		m.loadCmd(m.tool),
		textinput.Blink,
	)
}

// listenForResults blocks until the controller publishes a result set.
func listenForResults(ch <-chan ResultsMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) loadCmd(toolID string) tea.Cmd {
	ctx, ctrl := m.ctx, m.controller
	return func() tea.Msg {
		return loadDoneMsg{result: ctrl.OnToolChange(ctx, toolID)}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.controller
	return func() tea.Msg {
		return loadDoneMsg{result: ctrl.Reload(ctx)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case ResultsMsg:
		m.setResults(msg)
		return m, listenForResults(m.updates)

	case loadDoneMsg:
		m.finishLoad(msg.result)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.NextTool) {
			return m.switchTool(catalog.NextTool(m.tool))
		}
		if m.focus == FocusInput {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.FocusList):
		m.focus = FocusList
		m.input.Blur()
		return m, nil
	case msg.Type == tea.KeyUp:
		m.moveCursor(-1)
		return m, nil
	case msg.Type == tea.KeyDown:
		m.moveCursor(1)
		return m, nil
	case key.Matches(msg, m.keys.Open):
		m.open()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.controller.OnQueryChange(after)
	}
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.FocusInput):
		m.focus = FocusInput
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Open):
		m.open()
	case key.Matches(msg, m.keys.Group):
		m.toggleGroup()
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		m.setStatus(fmt.Sprintf("Reloading %s...", m.tool), false)
		return m, m.reloadCmd()
	}
	return m, nil
}

func (m Model) switchTool(toolID string) (tea.Model, tea.Cmd) {
	m.tool = toolID
	m.loading = true
	m.detail = nil
	m.route = ""
	m.setStatus(fmt.Sprintf("Loading %s...", toolID), false)
	return m, m.loadCmd(toolID)
}

func (m *Model) setResults(msg ResultsMsg) {
	m.query = msg.Query
	m.results = msg.Results
	if m.cursor >= len(m.results) {
		m.cursor = max(len(m.results)-1, 0)
	}

	if q := search.NormalizeQuery(msg.Query); q != "" && m.tracker != nil {
		m.tracker.Track(activity.NewSearchEvent(m.tool, q, len(msg.Results)))
	}
}

func (m *Model) finishLoad(res search.LoadResult) {
	if res.Stale {
		return
	}
	m.loading = false
	m.tool = res.Tool
	if res.Err != nil {
		m.setStatus(fmt.Sprintf("Failed to load %s: %v", res.Tool, res.Err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Loaded %d measurements for %s", res.Records, res.Tool), false)
}

func (m *Model) moveCursor(delta int) {
	if len(m.results) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.results)-1)
}

func (m *Model) selected() (catalog.MeasurementRecord, bool) {
	if m.cursor < 0 || m.cursor >= len(m.results) {
		return catalog.MeasurementRecord{}, false
	}
	return m.results[m.cursor], true
}

// open adds the selected record to the view history and shows its detail.
func (m *Model) open() {
	rec, ok := m.selected()
	if !ok {
		return
	}

	route, err := catalog.NewResultRoute(rec)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}

	m.session.AddToHistory(rec)
	if m.tracker != nil {
		m.tracker.Track(activity.NewViewEvent(m.tool, rec.Filename))
	}
	m.detail = &rec
	m.route = route.Path()
	m.setStatus("Opened "+rec.Filename, false)
}

func (m *Model) toggleGroup() {
	rec, ok := m.selected()
	if !ok {
		return
	}

	if m.session.IsInGroup(rec.Filename) {
		m.session.RemoveFromGroup(rec.Filename)
		m.setStatus(fmt.Sprintf("Removed from group (%d items)", len(m.session.GroupedData())), false)
		return
	}
	m.session.AddToGroup(rec)
	m.setStatus(fmt.Sprintf("Added to group (%d items)", len(m.session.GroupedData())), false)
}

func (m *Model) setStatus(s string, failed bool) {
	m.status = s
	m.failed = failed
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	header := m.styles.title.Render("AFM Viewer") + "  " + m.styles.tool.Render("Tool: "+m.tool)
	if t, ok := catalog.LookupTool(m.tool); ok {
		header += m.styles.dim.Render(" (" + t.Description + ")")
	}
	if m.loading {
		header += "  " + m.styles.loading.Render("loading...")
	}
	b.WriteString(header + "\n")
	b.WriteString(m.input.View() + "\n")
	b.WriteString(m.styles.dim.Render(fmt.Sprintf("%d results", len(m.results))) + "\n")

	m.renderList(&b)

	if m.detail != nil {
		b.WriteString(m.renderDetail(*m.detail) + "\n")
	}

	if m.status != "" {
		style := m.styles.dim
		if m.failed {
			style = m.styles.err
		}
		b.WriteString(style.Render(m.status) + "\n")
	}
	b.WriteString(m.styles.dim.Render(m.helpLine()))

	return b.String()
}

func (m Model) renderList(b *strings.Builder) {
	if len(m.results) == 0 {
		if !m.loading {
			b.WriteString(m.styles.dim.Render("No measurements found") + "\n")
		}
		return
	}

	rows := m.listHeight()
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.results))

	for i := start; i < end; i++ {
		line := m.formatRow(m.results[i])
		if i == m.cursor {
			line = m.styles.selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
}

func (m Model) listHeight() int {
	reserved := 6
	if m.detail != nil {
		reserved += 10
	}
	return max(m.height-reserved, 3)
}

func (m Model) formatRow(rec catalog.MeasurementRecord) string {
	mark := " "
	if m.session.IsInGroup(rec.Filename) {
		mark = "*"
	}
	line := fmt.Sprintf("%s %-28s %-12s %-10s %s",
		mark, truncate(rec.RecipeName, 28), truncate(rec.LotID, 12), rec.FormattedDate, rec.Filename)
	if m.width > 0 {
		line = truncate(line, m.width)
	}
	return line
}

func (m Model) renderDetail(rec catalog.MeasurementRecord) string {
	fields := [][2]string{
		{"Recipe", rec.RecipeName},
		{"Lot", rec.LotID},
		{"Slot", rec.SlotNumber},
		{"Measured", rec.MeasuredInfo},
		{"Date", strings.TrimSpace(rec.FormattedDate + " " + rec.Time)},
		{"Profiles", yesNo(rec.HasProfiles())},
		{"Raw data", yesNo(rec.HasRawData())},
		{"Images", yesNo(rec.HasImages())},
		{"Route", m.route},
	}

	lines := []string{m.styles.title.Render(rec.Filename)}
	for _, f := range fields {
		lines = append(lines, m.styles.label.Render(f[0])+f[1])
	}
	return m.styles.detail.Render(strings.Join(lines, "\n"))
}

func (m Model) helpLine() string {
	bindings := []key.Binding{m.keys.NextTool, m.keys.Open}
	if m.focus == FocusInput {
		bindings = append(bindings, m.keys.FocusList)
	} else {
		bindings = append(bindings, m.keys.Up, m.keys.Down, m.keys.Group, m.keys.Reload, m.keys.FocusInput, m.keys.Quit)
	}

	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Focus returns the focused widget.
func (m Model) Focus() Focus {
	return m.focus
}

// Results returns the displayed result set.
func (m Model) Results() []catalog.MeasurementRecord {
	return m.results
}

// Cursor returns the index of the highlighted result.
func (m Model) Cursor() int {
	return m.cursor
}

// Tool returns the tool shown in the header.
func (m Model) Tool() string {
	return m.tool
}

// Loading reports whether a catalog load is in flight.
func (m Model) Loading() bool {
	return m.loading
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Run starts the browser on the terminal and blocks until it exits.
func Run(cfg Config) error {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	p := tea.NewProgram(New(cfg), tea.WithAltScreen(), tea.WithContext(cfg.Context))
	_, err := p.Run()
	return err
}
