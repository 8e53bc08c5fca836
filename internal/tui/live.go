// Package tui hosts the live continuation view: a bubbletea model that
// follows one job's message stream and lets the user cancel it.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/krines/arcstep/internal/jobs"
	"github.com/krines/arcstep/internal/viz"
	"github.com/krines/arcstep/internal/wire"
)

type jobMsg jobs.Message

type streamClosed struct{}

type tickMsg time.Time

// Live follows a running continuation job. Terminal output mirrors the
// job protocol: progress snapshots while running, one final status.
type Live struct {
	jobID    string
	registry *jobs.Registry
	messages <-chan jobs.Message

	progress  wire.Progress
	hasUpdate bool
	terminal  *jobs.Message
	cancelled bool
	frame     int
}

func NewLive(jobID string, registry *jobs.Registry, messages <-chan jobs.Message) Live {
	return Live{jobID: jobID, registry: registry, messages: messages}
}

// Terminal returns the job's terminal message once the view has quit.
func (m Live) Terminal() *jobs.Message { return m.terminal }

func (m Live) Init() tea.Cmd {
	return tea.Batch(m.waitForMessage(), tick())
}

func (m Live) waitForMessage() tea.Cmd {
	ch := m.messages
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamClosed{}
		}
		return jobMsg(msg)
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.terminal == nil && !m.cancelled {
				m.cancelled = true
				m.registry.Cancel(m.jobID)
			}
			return m, nil
		}

	case jobMsg:
		jm := jobs.Message(msg)
		if jm.Progress != nil {
			m.progress = *jm.Progress
			m.hasUpdate = true
		}
		if jm.Terminal {
			m.terminal = &jm
		}
		return m, m.waitForMessage()

	case streamClosed:
		return m, tea.Quit

	case tickMsg:
		m.frame++
		if m.terminal != nil {
			return m, tea.Quit
		}
		return m, tick()
	}
	return m, nil
}

func (m Live) View() string {
	var b strings.Builder
	b.WriteString(viz.Title.Render("continuation "+m.jobID) + "\n\n")

	if m.hasUpdate {
		frac := 0.0
		if m.progress.MaxSteps > 0 {
			frac = float64(m.progress.CurrentStep) / float64(m.progress.MaxSteps)
		}
		b.WriteString(fmt.Sprintf("%s %s %d/%d steps\n",
			viz.Spinner(m.frame),
			viz.ProgressBar(frac, 40),
			m.progress.CurrentStep, m.progress.MaxSteps))
		b.WriteString(viz.Label.Render("points       ") + viz.Value.Render(fmt.Sprintf("%d", m.progress.PointsComputed)) + "\n")
		b.WriteString(viz.Label.Render("bifurcations ") + viz.Value.Render(fmt.Sprintf("%d", m.progress.BifurcationsFound)) + "\n")
		b.WriteString(viz.Label.Render("parameter    ") + viz.Value.Render(fmt.Sprintf("%.6g", m.progress.CurrentParam)) + "\n")
	} else {
		b.WriteString(viz.Spinner(m.frame) + viz.Subtle.Render(" starting engine") + "\n")
	}

	b.WriteString("\n")
	switch {
	case m.terminal == nil && m.cancelled:
		b.WriteString(viz.StatusAborted.Render("cancelling, waiting for the current batch") + "\n")
	case m.terminal == nil:
		b.WriteString(viz.KeyHint.Render("q to cancel") + "\n")
	case m.terminal.Aborted:
		b.WriteString(viz.StatusAborted.Render("aborted") + "\n")
	case m.terminal.OK:
		b.WriteString(viz.StatusRunning.Render("completed") + "\n")
	default:
		b.WriteString(viz.StatusFailed.Render("failed: "+m.terminal.Err.Error()) + "\n")
	}
	return b.String()
}
