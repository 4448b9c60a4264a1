package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"zoneroute/internal/admin"
	"zoneroute/internal/models"
)

type adminFocus int

const (
	focusZones adminFocus = iota
	focusClients
)

type adminPrompt int

const (
	promptNone adminPrompt = iota
	promptInstructions
	promptPhotoPath
)

// AdminModel is the zone assignment and client review dashboard.
type AdminModel struct {
	session  *admin.Session
	events   <-chan models.Event
	reporter Reporter

	focus     adminFocus
	zoneIdx   int
	clientIdx int
	workerIdx int

	prompt adminPrompt
	input  textinput.Model

	status  string
	loading bool
	width   int
}

// NewAdminModel builds the admin dashboard. events and reporter may be nil.
func NewAdminModel(session *admin.Session, events <-chan models.Event, reporter Reporter) AdminModel {
	in := textinput.New()
	in.CharLimit = 500
	in.Width = 60
	return AdminModel{
		session:  session,
		events:   events,
		reporter: reporter,
		input:    in,
		loading:  true,
		status:   dimStyle.Render("loading..."),
	}
}

func (m AdminModel) Init() tea.Cmd {
	return tea.Batch(m.load(), listen(m.events))
}

func (m AdminModel) load() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return loadedMsg{err: session.Load(ctx)}
	}
}

func (m AdminModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = errStyle.Render("✗ load: " + msg.err.Error())
		} else {
			m.status = okStyle.Render(fmt.Sprintf("✓ loaded %d zones, %d clients",
				len(m.session.Zones.Zones()), len(m.session.Clients.Clients())))
		}
		m.clampSelection()
		return m, nil

	case eventMsg:
		if !msg.ok {
			m.status = warnStyle.Render("⚠ live updates disconnected, press r to reload")
			m.events = nil
			return m, nil
		}
		m.session.ApplyEvent(msg.event)
		m.clampSelection()
		return m, listen(m.events)

	case resultMsg:
		m.status = status(msg)
		return m, report(m.reporter, "zoneboard-admin", msg)

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m AdminModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.focus == focusZones {
			m.focus = focusClients
		} else {
			m.focus = focusZones
		}
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "left", "h":
		m.cycleWorker(-1)
	case "right", "l", "w":
		m.cycleWorker(1)
	case "r":
		m.loading = true
		m.status = dimStyle.Render("reloading...")
		return m, m.load()
	case "a":
		return m, m.assignSelected()
	case "e":
		if c, ok := m.selectedClient(); ok {
			m.prompt = promptInstructions
			m.input.Placeholder = "bin location instructions"
			m.input.SetValue(c.Instructions)
			m.input.Focus()
		}
	case "p":
		if c, ok := m.selectedClient(); ok {
			if c.HasPhoto() {
				m.status = warnStyle.Render(fmt.Sprintf("⚠ client %d already has a photo", c.ID))
				return m, nil
			}
			m.prompt = promptPhotoPath
			m.input.Placeholder = "path to image file"
			m.input.SetValue("")
			m.input.Focus()
		}
	}
	return m, nil
}

func (m AdminModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = promptNone
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		prompt := m.prompt
		m.prompt = promptNone
		m.input.Blur()
		c, ok := m.selectedClient()
		if !ok {
			return m, nil
		}
		if prompt == promptInstructions {
			return m, m.updateInstructions(c.ID, value)
		}
		return m, m.uploadPhoto(c.ID, strings.TrimSpace(value))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *AdminModel) move(delta int) {
	if m.focus == focusZones {
		m.zoneIdx = clamp(m.zoneIdx+delta, len(m.session.Zones.Zones()))
	} else {
		m.clientIdx = clamp(m.clientIdx+delta, len(m.session.Clients.Clients()))
	}
}

func (m *AdminModel) cycleWorker(delta int) {
	n := len(m.session.Assigner.Workers())
	if n == 0 {
		return
	}
	m.workerIdx = (m.workerIdx + delta + n) % n
}

func (m *AdminModel) clampSelection() {
	m.zoneIdx = clamp(m.zoneIdx, len(m.session.Zones.Zones()))
	m.clientIdx = clamp(m.clientIdx, len(m.session.Clients.Clients()))
	m.workerIdx = clamp(m.workerIdx, len(m.session.Assigner.Workers()))
}

func (m AdminModel) selectedZone() (models.Zone, bool) {
	zones := m.session.Zones.Zones()
	if len(zones) == 0 {
		return models.Zone{}, false
	}
	return zones[clamp(m.zoneIdx, len(zones))], true
}

func (m AdminModel) selectedClient() (models.Client, bool) {
	clients := m.session.Clients.Clients()
	if len(clients) == 0 {
		return models.Client{}, false
	}
	return clients[clamp(m.clientIdx, len(clients))], true
}

func (m AdminModel) selectedWorker() string {
	workers := m.session.Assigner.Workers()
	if len(workers) == 0 {
		return ""
	}
	return workers[clamp(m.workerIdx, len(workers))]
}

func (m AdminModel) assignSelected() tea.Cmd {
	zone, ok := m.selectedZone()
	if !ok {
		return nil
	}
	worker := m.selectedWorker()
	assigner := m.session.Assigner
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		res, err := assigner.AssignZone(ctx, zone.Name, worker)
		return resultMsg{action: fmt.Sprintf("assign %s → %s", zone.Name, worker), res: res, err: err}
	}
}

func (m AdminModel) updateInstructions(id int, value string) tea.Cmd {
	editor := m.session.Editor
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		res, err := editor.UpdateClientField(ctx, id, models.FieldInstructions, value)
		return resultMsg{action: fmt.Sprintf("update client %d instructions", id), res: res, err: err}
	}
}

func (m AdminModel) uploadPhoto(id int, path string) tea.Cmd {
	editor := m.session.Editor
	return func() tea.Msg {
		action := fmt.Sprintf("upload photo for client %d", id)
		f, err := os.Open(path)
		if err != nil {
			return resultMsg{action: action, err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		res, err := editor.UploadPhoto(ctx, id, f)
		return resultMsg{action: action, res: res, err: err}
	}
}

func (m AdminModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ZONEBOARD · ADMIN"))
	b.WriteString("\n\n")

	zones := m.session.Zones.Zones()
	var zl strings.Builder
	zl.WriteString(headerStyle.Render("Zones") + "\n")
	for i, z := range zones {
		assignee := "Unassigned"
		if z.Worker != nil {
			assignee = *z.Worker
		}
		line := fmt.Sprintf("%s %-8s %-12s v%d", swatch(admin.ZoneColor(z.Worker)), z.Name, assignee, z.Version)
		zl.WriteString(m.row(m.focus == focusZones && i == m.zoneIdx, line))
	}
	zl.WriteString("\n" + dimStyle.Render("assign to: ") + selectedStyle.Render(m.selectedWorker()))

	clients := m.session.Clients.Clients()
	var cl strings.Builder
	cl.WriteString(headerStyle.Render("Clients") + "\n")
	for i, c := range clients {
		photo := " "
		if c.HasPhoto() {
			photo = "📷"
		}
		first := ""
		if c.FirstService {
			first = " new"
		}
		line := fmt.Sprintf("#%-3d %-7s %d+%d bins $%-5.0f %s %s%s",
			c.ID, c.Zone, c.TrashBins, c.RecycleBins, c.MonthlyCost, photo, truncate(c.Instructions, 28), first)
		cl.WriteString(m.row(m.focus == focusClients && i == m.clientIdx, line))
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(zl.String()),
		panelStyle.Render(cl.String()),
	))
	b.WriteString("\n")

	if m.prompt != promptNone {
		b.WriteString(m.input.View() + "\n")
		b.WriteString(dimStyle.Render("enter save · esc cancel") + "\n")
	}
	b.WriteString(m.status + "\n")
	b.WriteString(dimStyle.Render("tab focus · ↑/↓ select · ←/→ worker · a assign · e edit instructions · p photo · r reload · q quit"))
	return b.String()
}

func (m AdminModel) row(selected bool, line string) string {
	if selected {
		return selectedStyle.Render("› "+line) + "\n"
	}
	return "  " + line + "\n"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
