package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"zoneroute/internal/api"
	"zoneroute/internal/dispatch"
	"zoneroute/internal/models"
)

// commandTimeout bounds any single load or command started from the UI
const commandTimeout = 15 * time.Second

// Reporter receives diagnostics for commands the server did not apply.
type Reporter interface {
	ReportDiagnostic(ctx context.Context, d api.Diagnostic) error
}

type loadedMsg struct{ err error }

type eventMsg struct {
	event models.Event
	ok    bool
}

// resultMsg carries a finished command back into Update.
type resultMsg struct {
	action string
	res    dispatch.Result
	err    error
}

type tickMsg time.Time

// listen waits for the next live event.
func listen(events <-chan models.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		return eventMsg{event: ev, ok: ok}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// status renders a command outcome for the status line.
func status(msg resultMsg) string {
	if msg.err != nil {
		return errStyle.Render(fmt.Sprintf("✗ %s: %v", msg.action, msg.err))
	}
	switch msg.res.Status {
	case dispatch.StatusOK:
		return okStyle.Render(fmt.Sprintf("✓ %s (v%d)", msg.action, msg.res.Version))
	case dispatch.StatusConflict:
		return warnStyle.Render(fmt.Sprintf("⚠ %s: changed elsewhere, press r to reload", msg.action))
	default:
		return errStyle.Render(fmt.Sprintf("✗ %s: %v", msg.action, msg.res.Error()))
	}
}

// report forwards a failed command to the server's diagnostic log.
func report(reporter Reporter, source string, msg resultMsg) tea.Cmd {
	if reporter == nil || msg.err != nil || msg.res.OK() || msg.res.Status == dispatch.StatusTransportError {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		_ = reporter.ReportDiagnostic(ctx, api.Diagnostic{
			Level:   "WARNING",
			Context: msg.action,
			Message: msg.res.Error().Error(),
			Source:  source,
			Data: map[string]interface{}{
				"status": string(msg.res.Status),
				"code":   msg.res.Code,
				"seq":    msg.res.Seq,
			},
		})
		return nil
	}
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
