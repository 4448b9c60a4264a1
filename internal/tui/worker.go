package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"zoneroute/internal/fieldwork"
	"zoneroute/internal/models"
)

type historyMsg struct {
	clientID int
	logs     []models.PhotoLog
	err      error
}

// WorkerModel is the route and photo logging dashboard for one worker.
type WorkerModel struct {
	session  *fieldwork.Session
	worker   string
	events   <-chan models.Event
	reporter Reporter

	taskIdx   int
	prompting bool
	input     textinput.Model
	history   *historyMsg

	status string
}

// NewWorkerModel builds the worker dashboard. events and reporter may be nil.
func NewWorkerModel(session *fieldwork.Session, worker string, events <-chan models.Event, reporter Reporter) WorkerModel {
	in := textinput.New()
	in.Placeholder = "path to image file"
	in.CharLimit = 1024
	in.Width = 60
	return WorkerModel{
		session:  session,
		worker:   worker,
		events:   events,
		reporter: reporter,
		input:    in,
		status:   dimStyle.Render("loading route..."),
	}
}

func (m WorkerModel) Init() tea.Cmd {
	return tea.Batch(m.load(), listen(m.events), tick())
}

func (m WorkerModel) load() tea.Cmd {
	ledger, worker := m.session.Ledger, m.worker
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return loadedMsg{err: ledger.LoadRoute(ctx, worker)}
	}
}

// affectsRoute reports whether a live event changes which stops the worker has.
func affectsRoute(ev models.Event, worker string) bool {
	if ev.Type != models.EventZoneAssigned || ev.Zone == nil {
		return false
	}
	if ev.Zone.AssignedTo(worker) {
		return true
	}
	return ev.PreviousWorker != nil && *ev.PreviousWorker == worker
}

func (m WorkerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tick()

	case loadedMsg:
		if msg.err != nil {
			m.status = errStyle.Render("✗ load route: " + msg.err.Error())
		} else {
			m.status = okStyle.Render(fmt.Sprintf("✓ route loaded: %d stops, %d actions",
				len(m.session.Ledger.Tasks()), m.session.Ledger.Remaining()))
		}
		m.taskIdx = clamp(m.taskIdx, len(m.session.Ledger.Tasks()))
		m.history = nil
		return m, nil

	case eventMsg:
		if !msg.ok {
			m.status = warnStyle.Render("⚠ live updates disconnected, press r to reload")
			m.events = nil
			return m, nil
		}
		if affectsRoute(msg.event, m.worker) {
			m.status = warnStyle.Render(fmt.Sprintf("⚠ %s reassigned, reloading route", msg.event.Zone.Name))
			return m, tea.Batch(m.load(), listen(m.events))
		}
		if ev := msg.event; ev.Client != nil && (ev.Type == models.EventClientUpdated || ev.Type == models.EventPhotoLogged) {
			m.session.Ledger.ApplyClient(*ev.Client)
		}
		return m, listen(m.events)

	case resultMsg:
		m.status = status(msg)
		return m, report(m.reporter, "zoneboard-worker", msg)

	case historyMsg:
		if msg.err != nil {
			m.status = errStyle.Render("✗ history: " + msg.err.Error())
			return m, nil
		}
		m.history = &msg
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m WorkerModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.session.Ledger.Tasks())
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		m.taskIdx = clamp(m.taskIdx-1, n)
		m.history = nil
	case "down", "j":
		m.taskIdx = clamp(m.taskIdx+1, n)
		m.history = nil
	case "i":
		if m.session.Shift.ClockIn() {
			m.status = okStyle.Render("✓ clocked in")
		} else {
			m.status = dimStyle.Render("already clocked in")
		}
	case "o":
		if m.session.Shift.ClockOut() {
			m.status = okStyle.Render("✓ clocked out after " + m.session.Shift.Elapsed().Round(time.Second).String())
		} else {
			m.status = dimStyle.Render("not clocked in")
		}
	case "r":
		m.status = dimStyle.Render("reloading route...")
		return m, m.load()
	case "H":
		return m, m.loadHistory()
	case "p":
		task, err := m.session.Ledger.Task(m.taskIdx)
		if err != nil {
			return m, nil
		}
		if task.Done() {
			m.status = dimStyle.Render(fmt.Sprintf("client %d has no actions remaining", task.ClientID))
			return m, nil
		}
		m.prompting = true
		m.input.SetValue("")
		m.input.Focus()
	}
	return m, nil
}

func (m WorkerModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompting = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.input.Value())
		m.prompting = false
		m.input.Blur()
		return m, m.complete(m.taskIdx, path)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m WorkerModel) complete(index int, path string) tea.Cmd {
	completer := m.session.Completer
	return func() tea.Msg {
		action := fmt.Sprintf("complete action at stop %d", index+1)
		f, err := os.Open(path)
		if err != nil {
			return resultMsg{action: action, err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		res, err := completer.CompleteAction(ctx, index, f)
		return resultMsg{action: action, res: res, err: err}
	}
}

func (m WorkerModel) loadHistory() tea.Cmd {
	ledger, index := m.session.Ledger, m.taskIdx
	return func() tea.Msg {
		task, err := ledger.Task(index)
		if err != nil {
			return historyMsg{err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		logs, err := ledger.History(ctx, index)
		return historyMsg{clientID: task.ClientID, logs: logs, err: err}
	}
}

func (m WorkerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ZONEBOARD · " + strings.ToUpper(m.worker)))
	b.WriteString("\n\n")

	shift := m.session.Shift.Snapshot()
	if shift.ClockedIn {
		b.WriteString(okStyle.Render("● on shift ") + m.session.Shift.Elapsed().Round(time.Second).String())
	} else {
		b.WriteString(dimStyle.Render("○ off shift"))
		if shift.EndTime != nil {
			b.WriteString(dimStyle.Render(" · last shift " + m.session.Shift.Elapsed().Round(time.Second).String()))
		}
	}
	b.WriteString(fmt.Sprintf("   %d actions remaining\n\n", m.session.Ledger.Remaining()))

	route := m.session.Ledger.Route()
	var tl strings.Builder
	tl.WriteString(headerStyle.Render("Stops") + "\n")
	for i, t := range m.session.Ledger.Tasks() {
		mark := "○"
		if t.Done() {
			mark = okStyle.Render("✓")
		}
		note := ""
		if i < len(route) && route[i].Instructions != "" {
			note = dimStyle.Render(" · " + truncate(route[i].Instructions, 30))
		}
		line := fmt.Sprintf("%s %2d. client #%-3d (%.4f, %.4f) %d left, %d photos%s",
			mark, i+1, t.ClientID, t.Lat, t.Lng, t.ActionsRemaining, len(t.PhotoLogs), note)
		if i == m.taskIdx {
			tl.WriteString(selectedStyle.Render("› "+line) + "\n")
		} else {
			tl.WriteString("  " + line + "\n")
		}
	}
	if len(route) == 0 {
		tl.WriteString(dimStyle.Render("  no stops assigned") + "\n")
	}
	b.WriteString(panelStyle.Render(tl.String()) + "\n")

	if m.history != nil {
		b.WriteString(headerStyle.Render(fmt.Sprintf("Photo history for client #%d", m.history.clientID)) + "\n")
		if len(m.history.logs) == 0 {
			b.WriteString(dimStyle.Render("  none") + "\n")
		}
		for _, l := range m.history.logs {
			who := l.Worker
			if who == "" {
				who = "admin"
			}
			b.WriteString(fmt.Sprintf("  %s  %s  %d bytes\n", l.Timestamp, who, len(l.URL)))
		}
	}

	if m.prompting {
		b.WriteString(m.input.View() + "\n")
		b.WriteString(dimStyle.Render("enter upload · esc cancel") + "\n")
	}
	b.WriteString(m.status + "\n")
	b.WriteString(dimStyle.Render("↑/↓ select · i clock in · o clock out · p photo · H history · r reload · q quit"))
	return b.String()
}
