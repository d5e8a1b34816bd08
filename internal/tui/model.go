package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"loanqa/internal/domain"
)

// Answerer is the TUI-facing subset of the answering pipeline.
type Answerer interface {
	AnswerWith(ctx context.Context, question string, settings domain.GenerationSettings) (domain.Answer, error)
}

// Options configures the shell header and the settings a user can cycle through.
type Options struct {
	Title           string
	Subtitle        string
	Warning         string
	Models          []string
	MaxTokenChoices []int
	Defaults        domain.GenerationSettings
}

type answerMsg struct {
	question string
	answer   domain.Answer
	err      error
}

// Model is the Bubble Tea model for the chat shell.
type Model struct {
	ctx      context.Context
	answerer Answerer
	opts     Options

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	settings domain.GenerationSettings
	busy     bool
	ready    bool
	status   string
	warning  string
	last     *answerMsg
}

// New creates a chat model. ctx bounds every pipeline call the shell makes.
func New(ctx context.Context, answerer Answerer, opts Options) Model {
	if opts.Warning == "" {
		opts.Warning = "Please enter a valid question."
	}
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about a loan product and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	return Model{
		ctx:      ctx,
		answerer: answerer,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		settings: opts.Defaults,
		status:   "Ready.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 4 + qh + 1 // header, subtitle, settings, status + spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-ah)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case answerMsg:
		m.busy = false
		m.last = &msg
		if msg.err != nil {
			m.status = "Error: " + describe(msg.err)
		} else {
			m.status = fmt.Sprintf("Answered with %s from %d sources.", msg.answer.Model, len(msg.answer.Sources))
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.warning = m.opts.Warning
				return m, nil
			}
			m.warning = ""
			m.busy = true
			m.status = "Generating answer..."
			return m, tea.Batch(m.spinner.Tick, m.ask(q, m.settings))
		case "f2":
			m.settings.Model = nextString(m.opts.Models, m.settings.Model)
			return m, nil
		case "f3":
			m.settings.MaxTokens = nextInt(m.opts.MaxTokenChoices, m.settings.MaxTokens)
			return m, nil
		case "f5":
			m.settings.Temperature = stepTemperature(m.settings.Temperature, -0.1)
			return m, nil
		case "f6":
			m.settings.Temperature = stepTemperature(m.settings.Temperature, 0.1)
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs one pipeline call off the UI loop.
func (m Model) ask(question string, settings domain.GenerationSettings) tea.Cmd {
	ctx, answerer := m.ctx, m.answerer
	return func() tea.Msg {
		ans, err := answerer.AnswerWith(ctx, question, settings)
		return answerMsg{question: question, answer: ans, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render(m.opts.Title)
	subtitle := mutedStyle.Render(m.opts.Subtitle)
	settings := mutedStyle.Render(fmt.Sprintf(
		"model: %s (F2)  max tokens: %d (F3)  temperature: %.1f (F5/F6)",
		m.settings.Model, m.settings.MaxTokens, m.settings.Temperature))

	answer := answerBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())

	var status string
	switch {
	case m.warning != "":
		status = warningStyle.Render(m.warning)
	case m.busy:
		status = m.spinner.View() + " " + m.status
	default:
		status = statusStyle.Render(m.status)
	}
	return header + "\n" + subtitle + "\n" + settings + "\n" + answer + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.last == nil {
		return "No answer yet."
	}
	width := max(20, m.viewport.Width-4)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	b.WriteString(questionStyle.Render("Q: " + m.last.question))
	b.WriteString("\n\n")
	if m.last.err != nil {
		b.WriteString(errorStyle.Render(wrap.Render(m.last.err.Error())))
		return b.String()
	}
	b.WriteString(wrap.Render(m.last.answer.Text))
	if len(m.last.answer.Sources) > 0 {
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render("Sources:"))
		for i, s := range m.last.answer.Sources {
			loc := s.Chunk.Source
			if s.Chunk.Page > 0 {
				loc = fmt.Sprintf("%s p.%d", loc, s.Chunk.Page)
			}
			b.WriteString(mutedStyle.Render(fmt.Sprintf("\n  %d. %s (%.3f)", i+1, loc, s.Score)))
		}
	}
	return b.String()
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return "invalid settings"
	case errors.Is(err, domain.ErrAuth):
		return "authentication failed"
	case errors.Is(err, domain.ErrRateLimit):
		return "rate limit or quota exceeded"
	case errors.Is(err, domain.ErrNetwork):
		return "completion service unavailable"
	default:
		return "failed to answer the question"
	}
}

func nextString(choices []string, current string) string {
	if len(choices) == 0 {
		return current
	}
	for i, c := range choices {
		if c == current {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}

func nextInt(choices []int, current int) int {
	if len(choices) == 0 {
		return current
	}
	for i, c := range choices {
		if c == current {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}

// stepTemperature moves t by delta on a 0.1 grid within [0, 1].
func stepTemperature(t, delta float64) float64 {
	t = math.Round((t+delta)*10) / 10
	return math.Min(1, math.Max(0, t))
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
