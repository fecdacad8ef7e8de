// Package tui provides the terminal front-end for long-running render
// and encode jobs.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAFF")).
			Bold(true)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// ProgressMsg updates the bar. Fraction is Done/Total in [0,1].
type ProgressMsg struct {
	Phase string
	Done  int
	Total int
}

// DoneMsg ends the program, optionally with an error to display.
type DoneMsg struct {
	Err error
}

// ProgressModel displays phase and completion for a render/encode job.
type ProgressModel struct {
	title    string
	phase    string
	fraction float64
	err      error
	finished bool
}

// NewProgressModel builds a progress view titled after the job.
func NewProgressModel(title string) ProgressModel {
	return ProgressModel{title: title}
}

func (m ProgressModel) Init() tea.Cmd {
	return nil
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.phase = msg.Phase
		if msg.Total > 0 {
			m.fraction = float64(msg.Done) / float64(msg.Total)
		}
		return m, nil

	case DoneMsg:
		m.err = msg.Err
		m.finished = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

// Err returns the error delivered with DoneMsg, if any.
func (m ProgressModel) Err() error {
	return m.err
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title) + "\n\n")

	if m.phase != "" {
		b.WriteString(phaseStyle.Render(m.phase) + "\n")
	}
	b.WriteString(renderBar(m.fraction) + "\n")

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("q: cancel"))
	return b.String()
}

func renderBar(fraction float64) string {
	const barWidth = 50

	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * barWidth)

	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < barWidth; i++ {
		if i < filled {
			bar.WriteString("█")
		} else {
			bar.WriteString("─")
		}
	}
	bar.WriteString("]")

	return fmt.Sprintf("%s %3.0f%%", barStyle.Render(bar.String()), fraction*100)
}
