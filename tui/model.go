package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Paree24/efflux-tracker/audio"
	"github.com/Paree24/efflux-tracker/sequencer"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	gridStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// Model is the transport front-end: play/stop, loop, record and metronome
// toggles, pattern navigation and a position readout. Pattern editing is an
// editor concern and has no surface here.
type Model struct {
	Scheduler *sequencer.Scheduler
	Sink      *audio.Sink
	quitting  bool
}

// UpdateMsg signals that the transport position advanced.
type UpdateMsg struct{}

func NewModel(sched *sequencer.Scheduler, sink *audio.Sink) Model {
	return Model{Scheduler: sched, Sink: sink}
}

// ListenForUpdates relays scheduler position changes into the tea loop.
func ListenForUpdates(sched *sequencer.Scheduler) tea.Cmd {
	return func() tea.Msg {
		<-sched.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Scheduler)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Scheduler.SetPlaying(false)
			if m.Sink != nil {
				m.Sink.Silence()
			}
			return m, tea.Quit

		case " ", "p":
			if m.Scheduler.IsPlaying() {
				m.Scheduler.SetPlaying(false)
				if m.Sink != nil {
					m.Sink.Silence()
				}
			} else {
				m.Scheduler.SetPlaying(true)
			}

		case "l":
			m.Scheduler.SetLooping(!m.Scheduler.IsLooping())

		case "r":
			m.Scheduler.SetRecording(!m.Scheduler.IsRecording())

		case "m":
			m.Scheduler.SetMetronomeEnabled(!m.Scheduler.IsMetronomeEnabled())

		case "left", "h":
			m.Scheduler.GotoPreviousPattern()

		case "right", "n":
			m.Scheduler.GotoNextPattern()

		case "0":
			m.Scheduler.SetPosition(0)
		}
		return m, nil

	case UpdateMsg:
		return m, ListenForUpdates(m.Scheduler)
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	pos := m.Scheduler.Position()
	numPatterns := len(m.Scheduler.Song().Patterns)

	var b strings.Builder
	b.WriteString(titleStyle.Render("efflux"))
	b.WriteString("  ")
	b.WriteString(fmt.Sprintf("%.0f bpm", m.Scheduler.Tempo()))
	b.WriteString("\n\n")

	b.WriteString(flag("PLAY", m.Scheduler.IsPlaying()))
	b.WriteString(flag("LOOP", m.Scheduler.IsLooping()))
	b.WriteString(flag("REC", m.Scheduler.IsRecording()))
	b.WriteString(flag("METRO", m.Scheduler.IsMetronomeEnabled()))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("pattern "))
	b.WriteString(fmt.Sprintf("%d/%d", pos.ActivePattern+1, numPatterns))
	b.WriteString(labelStyle.Render("  step "))
	b.WriteString(fmt.Sprintf("%02d", pos.CurrentStep))
	b.WriteString("\n")
	b.WriteString(stepBar(pos.CurrentStep, m.Scheduler.AmountOfSteps(), m.Scheduler.StepPrecision()))
	b.WriteString("\n")

	b.WriteString(helpStyle.Render("space play/stop · l loop · r record · m metronome · ←/→ pattern · 0 rewind · q quit"))
	b.WriteString("\n")
	return b.String()
}

func flag(name string, on bool) string {
	if on {
		return onStyle.Render("["+name+"] ") + " "
	}
	return offStyle.Render("["+name+"] ") + " "
}

// stepBar renders the transport cursor mapped onto the active pattern's
// resolution grid.
func stepBar(currentStep, patternSteps, precision int) string {
	if patternSteps <= 0 || precision <= 0 {
		return ""
	}
	slot := currentStep * patternSteps / precision

	var b strings.Builder
	for i := 0; i < patternSteps; i++ {
		if i == slot {
			b.WriteString(cursorStyle.Render("█"))
		} else {
			b.WriteString(gridStyle.Render("·"))
		}
	}
	return b.String()
}
