// Package tui implements the interactive terminal UI.
//
// The app follows the Elm architecture via Bubbletea: a single model,
// messages for completed service calls, and a pure View render. Service
// calls run in commands so the UI never blocks on retrieval.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
	"github.com/quarrylabs/quarry-cli/internal/core/ports/driving"
)

// mode selects what pressing enter does.
type mode int

const (
	// modeSearch lists the most similar documents.
	modeSearch mode = iota

	// modeAsk generates a grounded answer.
	modeAsk
)

// searchCompleted carries results back from a search command.
type searchCompleted struct {
	results []domain.RetrievalResult
}

// answerCompleted carries a generated answer back from an ask command.
type answerCompleted struct {
	answer domain.Answer
}

type keyMap struct {
	Submit key.Binding
	Toggle key.Binding
	Up     key.Binding
	Down   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(key.WithKeys("enter")),
		Toggle: key.NewBinding(key.WithKeys("tab")),
		Up:     key.NewBinding(key.WithKeys("up", "ctrl+k")),
		Down:   key.NewBinding(key.WithKeys("down", "ctrl+j")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc")),
	}
}

// App is the TUI model. It talks to the core exclusively through the
// retrieval driving port.
type App struct {
	retrieval driving.RetrievalService
	ctx       context.Context
	ownerID   int64

	styles Styles
	keys   keyMap
	input  textinput.Model
	spin   spinner.Model

	mode     mode
	busy     bool
	results  []domain.RetrievalResult
	answer   *domain.Answer
	selected int

	width  int
	height int
}

// New creates the TUI app bound to an owner.
func New(retrieval driving.RetrievalService, ownerID int64) *App {
	input := textinput.New()
	input.Placeholder = "Type a query and press enter"
	input.Focus()
	input.CharLimit = 512

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &App{
		retrieval: retrieval,
		ctx:       context.Background(),
		ownerID:   ownerID,
		styles:    DefaultStyles(DefaultTheme()),
		keys:      defaultKeyMap(),
		input:     input,
		spin:      spin,
		width:     80,
		height:    24,
	}
}

// WithContext sets the context used for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Run starts the Bubbletea program and blocks until the user quits.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.spin.Tick)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case searchCompleted:
		a.busy = false
		a.results = msg.results
		a.answer = nil
		a.selected = 0
		return a, nil

	case answerCompleted:
		a.busy = false
		answer := msg.answer
		a.answer = &answer
		a.results = nil
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Toggle):
		if a.mode == modeSearch {
			a.mode = modeAsk
		} else {
			a.mode = modeSearch
		}
		return a, nil

	case key.Matches(msg, a.keys.Submit):
		query := strings.TrimSpace(a.input.Value())
		if query == "" || a.busy {
			return a, nil
		}
		a.busy = true
		if a.mode == modeAsk {
			return a, a.ask(query)
		}
		return a, a.search(query)

	case key.Matches(msg, a.keys.Up):
		if a.selected > 0 {
			a.selected--
		}
		return a, nil

	case key.Matches(msg, a.keys.Down):
		if a.selected < len(a.results)-1 {
			a.selected++
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// search runs retrieval in a command. Retrieval never errors: failures
// surface as an empty result list.
func (a *App) search(query string) tea.Cmd {
	return func() tea.Msg {
		return searchCompleted{results: a.retrieval.Search(a.ctx, query, a.ownerID, 0)}
	}
}

func (a *App) ask(query string) tea.Cmd {
	return func() tea.Msg {
		return answerCompleted{answer: a.retrieval.GenerateAnswer(a.ctx, query, a.ownerID, 0)}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	label := "Search"
	if a.mode == modeAsk {
		label = "Ask"
	}
	b.WriteString(a.styles.Title.Render("quarry · "+label) + "\n\n")
	b.WriteString(a.styles.Prompt.Width(a.width-4).Render(a.input.View()) + "\n\n")

	switch {
	case a.busy:
		b.WriteString(a.spin.View() + " working...\n")
	case a.answer != nil:
		b.WriteString(a.renderAnswer())
	case a.results != nil:
		b.WriteString(a.renderResults())
	}

	b.WriteString(a.styles.Help.Render("enter submit · tab search/ask · ↑/↓ select · esc quit"))
	return b.String()
}

func (a *App) renderResults() string {
	if len(a.results) == 0 {
		return a.styles.Score.Render("No results found.") + "\n"
	}

	var b strings.Builder
	for i, r := range a.results {
		title := r.Document.Title
		if title == "" {
			title = fmt.Sprintf("document %d", r.Document.ID)
		}
		line := fmt.Sprintf("%s %s", title, a.styles.Score.Render(fmt.Sprintf("(%.3f)", r.Score)))
		if i == a.selected {
			b.WriteString(a.styles.Selected.Render("> "+line) + "\n")
			b.WriteString(a.styles.Result.Render(truncate(r.Excerpt(), a.width-6)) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func (a *App) renderAnswer() string {
	var b strings.Builder
	b.WriteString(a.answer.Answer + "\n")
	if len(a.answer.Sources) > 0 {
		b.WriteString("\n")
		b.WriteString(a.styles.Score.Render(fmt.Sprintf("Confidence: %.2f", a.answer.Confidence)) + "\n")
		for i, src := range a.answer.Sources {
			line := fmt.Sprintf("[%d] (%.3f) %s", i+1, src.Score, truncate(src.Excerpt, a.width-12))
			b.WriteString(a.styles.Result.Render(line) + "\n")
		}
	}
	return b.String()
}

func truncate(s string, limit int) string {
	if limit <= 3 || len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
