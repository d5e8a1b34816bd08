package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"loanqa/internal/domain"
)

type fakeAnswerer struct {
	calls    int
	settings domain.GenerationSettings
	answer   domain.Answer
	err      error
}

func (f *fakeAnswerer) AnswerWith(_ context.Context, _ string, settings domain.GenerationSettings) (domain.Answer, error) {
	f.calls++
	f.settings = settings
	return f.answer, f.err
}

func newModel(a Answerer) Model {
	m := New(context.Background(), a, Options{
		Title:           "Loan Assistant",
		Models:          []string{"gpt-4.1-nano", "gpt-4o-mini", "gpt-3.5-turbo"},
		MaxTokenChoices: []int{256, 512, 1024},
		Defaults:        domain.GenerationSettings{Model: "gpt-4.1-nano", Temperature: 0.7, MaxTokens: 512},
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return updated.(Model)
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	updated, cmd := m.Update(tea.KeyMsg{Type: k})
	return updated.(Model), cmd
}

func TestEnter_EmptyQuestionWarns(t *testing.T) {
	fa := &fakeAnswerer{}
	m := newModel(fa)
	m.input.SetValue("   ")

	m, cmd := press(m, tea.KeyEnter)
	if cmd != nil {
		t.Error("expected no command for an empty question")
	}
	if m.warning != "Please enter a valid question." {
		t.Errorf("unexpected warning %q", m.warning)
	}
	if !strings.Contains(m.View(), "Please enter a valid question.") {
		t.Error("warning not rendered")
	}
	if fa.calls != 0 {
		t.Errorf("expected no pipeline call, got %d", fa.calls)
	}
}

func TestEnter_AsksWithCurrentSettings(t *testing.T) {
	fa := &fakeAnswerer{answer: domain.Answer{
		Text:  "The rate is 10.50% p.a.",
		Model: "gpt-4o-mini",
		Sources: []domain.ScoredChunk{
			{Chunk: domain.TextChunk{Source: "personal.pdf", Page: 3}, Score: 0.8},
		},
	}}
	m := newModel(fa)

	m, _ = press(m, tea.KeyF2)
	m, _ = press(m, tea.KeyF3)
	m, _ = press(m, tea.KeyF5)
	m.input.SetValue("What is the rate?")

	m, cmd := press(m, tea.KeyEnter)
	if !m.busy || cmd == nil {
		t.Fatal("expected a pending call")
	}

	msg := m.ask("What is the rate?", m.settings)()
	updated, _ := m.Update(msg)
	m = updated.(Model)

	want := domain.GenerationSettings{Model: "gpt-4o-mini", Temperature: 0.6, MaxTokens: 1024}
	if fa.settings != want {
		t.Errorf("expected %+v, got %+v", want, fa.settings)
	}
	if m.busy {
		t.Error("expected idle after answer")
	}
	content := m.renderAnswer()
	if !strings.Contains(content, "10.50% p.a.") || !strings.Contains(content, "personal.pdf p.3") {
		t.Errorf("unexpected answer view %q", content)
	}
}

func TestEnter_IgnoredWhileBusy(t *testing.T) {
	m := newModel(&fakeAnswerer{})
	m.busy = true
	m.input.SetValue("another question")

	m, cmd := press(m, tea.KeyEnter)
	if cmd != nil {
		t.Error("expected submission to be ignored while busy")
	}
	if !m.busy {
		t.Error("busy flag must not change")
	}
}

func TestAnswerError_ShownAndShellStaysUp(t *testing.T) {
	m := newModel(&fakeAnswerer{})
	m.busy = true

	updated, cmd := m.Update(answerMsg{
		question: "rate?",
		err:      domain.NewPipelineError(domain.StageGenerate, domain.ErrRateLimit),
	})
	m = updated.(Model)
	if cmd != nil {
		t.Error("an error must not quit the shell")
	}
	if !strings.Contains(m.status, "rate limit") {
		t.Errorf("unexpected status %q", m.status)
	}
	if m.busy {
		t.Error("expected idle after error")
	}
}

func TestSettingsCycling(t *testing.T) {
	if got := nextString([]string{"a", "b", "c"}, "c"); got != "a" {
		t.Errorf("expected wrap to a, got %s", got)
	}
	if got := nextString([]string{"a", "b"}, "zzz"); got != "a" {
		t.Errorf("expected first choice for unknown current, got %s", got)
	}
	if got := nextInt([]int{256, 512, 1024}, 512); got != 1024 {
		t.Errorf("expected 1024, got %d", got)
	}

	tests := []struct {
		t, delta, want float64
	}{
		{0.7, 0.1, 0.8},
		{1.0, 0.1, 1.0},
		{0.0, -0.1, 0.0},
		{0.1, -0.1, 0.0},
		{0.3, 0.1, 0.4},
	}
	for _, tt := range tests {
		if got := stepTemperature(tt.t, tt.delta); got != tt.want {
			t.Errorf("stepTemperature(%v, %v) = %v, want %v", tt.t, tt.delta, got, tt.want)
		}
	}
}
