// Package browser is the interactive terminal table browser.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/battlewithbytes/migration-console/internal/console"
	"github.com/battlewithbytes/migration-console/internal/lifecycle"
	"github.com/battlewithbytes/migration-console/internal/notify"
	"github.com/battlewithbytes/migration-console/internal/table"
	"github.com/battlewithbytes/migration-console/internal/ui"
)

const defaultRefreshInterval = 10 * time.Second

// View selects which table the browser shows.
type View string

const (
	ViewBatches View = "batches"
	ViewQueue   View = "queue"
	ViewVMs     View = "vms"
)

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(s)); v {
	case ViewBatches, ViewQueue, ViewVMs:
		return v, nil
	default:
		return "", fmt.Errorf("unknown view %q (valid: batches, queue, vms)", s)
	}
}

// Source supplies tables and accepts lifecycle requests.
// *console.Console implements it.
type Source interface {
	BatchTable(ctx context.Context) (table.Table, error)
	QueueTable(ctx context.Context) (table.Table, error)
	VMTable(ctx context.Context) (table.Table, error)
	Dispatch(ctx context.Context, req lifecycle.Request) bool
	Refresh()
}

type refreshMsg struct {
	table table.Table
}

type errMsg struct {
	err error
}

type tickMsg time.Time

type notificationMsg struct {
	n  notify.Notification
	ok bool
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx    context.Context
	source Source
	view   View
	keymap KeyMap

	notes <-chan notify.Notification

	table   table.Table
	state   table.State
	cursor  int
	message string
	loading bool

	refreshInterval time.Duration
}

// Option configures a Model.
type Option func(*Model)

// WithNotifications shows lifecycle outcomes from ch in the status line.
func WithNotifications(ch <-chan notify.Notification) Option {
	return func(m *Model) { m.notes = ch }
}

// WithPerPage sets the initial page size.
func WithPerPage(n int) Option {
	return func(m *Model) { m.state = m.state.SetPerPage(n) }
}

// WithRefreshInterval sets the auto refresh period. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Model) { m.refreshInterval = d }
}

// New creates a browser model for one view.
func New(ctx context.Context, source Source, view View, opts ...Option) *Model {
	m := &Model{
		ctx:             ctx,
		source:          source,
		view:            view,
		keymap:          DefaultKeyMap(),
		state:           table.NewState(),
		refreshInterval: defaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the bubbletea program.
func (m *Model) Run() error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx)).Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(m.refreshCmd(), m.tickCmd(), m.waitNotification())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.loading = false
		m.table = msg.table
		m.state = m.state.Normalize(len(m.table.Rows))
		m.clampCursor()
		return m, nil
	case errMsg:
		m.loading = false
		m.message = msg.err.Error()
		return m, nil
	case tickMsg:
		if m.loading {
			return m, m.tickCmd()
		}
		m.loading = true
		return m, tea.Batch(m.refreshCmd(), m.tickCmd())
	case notificationMsg:
		if !msg.ok {
			m.notes = nil
			return m, nil
		}
		m.message = msg.n.Message
		m.loading = true
		return m, tea.Batch(m.refreshCmd(), m.waitNotification())
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", m.keymap.Quit:
		return m, tea.Quit
	case m.keymap.Up, "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case m.keymap.Down, "j":
		m.cursor++
		m.clampCursor()
		return m, nil
	case m.keymap.PrevPage, "h":
		m.state = m.state.SetPage(m.state.Page-1, len(m.table.Rows))
		m.clampCursor()
		return m, nil
	case m.keymap.NextPage, "l":
		m.state = m.state.SetPage(m.state.Page+1, len(m.table.Rows))
		m.clampCursor()
		return m, nil
	case m.keymap.PerPage:
		m.state = m.state.NextPerPage().Normalize(len(m.table.Rows))
		m.clampCursor()
		return m, nil
	case m.keymap.Unsort:
		m.state = m.state.ClearSort()
		return m, nil
	case m.keymap.Refresh:
		m.source.Refresh()
		m.loading = true
		return m, m.refreshCmd()
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		col := int(key[0] - '1')
		if col < len(m.table.Headers) {
			m.state = m.state.SetSort(col)
		}
		return m, nil
	}

	if a, ok := m.keymap.action(key, m.offered()); ok {
		return m.dispatch(a)
	}
	return m, nil
}

// dispatch sends the action for the selected row. A disabled control does
// nothing; the outcome arrives later as a notification.
func (m *Model) dispatch(a lifecycle.Action) (tea.Model, tea.Cmd) {
	row, ok := m.selected()
	if !ok {
		return m, nil
	}
	link, ok := console.RowLink(row)
	if !ok {
		return m, nil
	}
	if ctl, ok := console.RowControls(row); ok && !enabled(ctl, a) {
		return m, nil
	}
	if m.source.Dispatch(m.ctx, lifecycle.Request{Kind: link.Kind, ID: link.ID, Action: a}) {
		m.message = fmt.Sprintf("%s %s: %s pending", link.Kind, link.Text, a)
		m.loading = true
		return m, m.refreshCmd()
	}
	return m, nil
}

func enabled(ctl console.Controls, a lifecycle.Action) bool {
	for _, c := range ctl.Actions {
		if c.Action == a {
			return c.Enabled
		}
	}
	return false
}

func (m *Model) offered() []lifecycle.Action {
	switch m.view {
	case ViewBatches:
		return lifecycle.BatchActions
	case ViewQueue:
		return lifecycle.QueueActions
	default:
		return nil
	}
}

func (m *Model) page() table.Page {
	return table.View(m.table, m.state)
}

func (m *Model) selected() (table.Row, bool) {
	p := m.page()
	if m.cursor < 0 || m.cursor >= len(p.Rows) {
		return nil, false
	}
	return p.Rows[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.page().Rows)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		var (
			t   table.Table
			err error
		)
		switch m.view {
		case ViewBatches:
			t, err = m.source.BatchTable(m.ctx)
		case ViewQueue:
			t, err = m.source.QueueTable(m.ctx)
		default:
			t, err = m.source.VMTable(m.ctx)
		}
		if err != nil {
			return errMsg{err: err}
		}
		return refreshMsg{table: t}
	}
}

func (m *Model) tickCmd() tea.Cmd {
	if m.refreshInterval <= 0 {
		return nil
	}
	return tea.Tick(m.refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) waitNotification() tea.Cmd {
	if m.notes == nil {
		return nil
	}
	ch := m.notes
	return func() tea.Msg {
		n, ok := <-ch
		return notificationMsg{n: n, ok: ok}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var sb strings.Builder
	title := ui.Green.Render("migration console") + " " + ui.Cyan.Render(string(m.view))
	if m.loading {
		title += " " + ui.Dim.Render("(loading)")
	}
	sb.WriteString(title + "\n")

	p := m.page()
	sb.WriteString(table.Render(p) + "\n")

	if row, ok := m.selected(); ok {
		line := "› " + row.At(0).Text()
		if ctl, ok := console.RowControls(row); ok && len(m.offered()) > 0 {
			line += "  actions: " + ctl.String()
		}
		sb.WriteString(ui.White.Render(line) + "\n")
	}
	if m.message != "" {
		sb.WriteString(ui.Cyan.Render(m.message) + "\n")
	}
	sb.WriteString(ui.Dim.Render(m.keymap.HelpLine(m.offered())))
	return sb.String()
}
