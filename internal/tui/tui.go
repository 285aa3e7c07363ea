package tui

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/gtfoklahoma/internal/content"
	"github.com/tatianab/gtfoklahoma/internal/dispatch"
	"github.com/tatianab/gtfoklahoma/internal/engine"
	"github.com/tatianab/gtfoklahoma/internal/models"
	"github.com/tatianab/gtfoklahoma/internal/stats"
)

type sessionState int

const (
	stateMenu sessionState = iota
	stateRiding
	stateDeciding
	stateShopping
	stateOver
	stateError
)

// Launcher builds the engine and catalogs for a session. The TUI starts
// the engine itself.
type Launcher func(s *models.GameSession) (*engine.Engine, *content.Library, error)

type model struct {
	ctx    context.Context
	state  sessionState
	launch Launcher
	store  *models.Store
	saved  []models.GameSession
	prog   *programRef

	engine  *engine.Engine
	lib     *content.Library
	session *models.GameSession

	decision *dispatch.Decision
	visit    *dispatch.StoreVisit

	hour      int
	mile      int
	stats     stats.Vector
	inventory map[int]int
	ending    content.Ending

	textInput textinput.Model
	viewport  viewport.Model
	err       error
	gameLog   string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

// programRef lets the model and the observer share the program, which
// only exists after the model is built.
type programRef struct{ p *tea.Program }

func (r *programRef) send(msg tea.Msg) {
	if r.p != nil {
		r.p.Send(msg)
	}
}

func newModel(ctx context.Context, launch Launcher, store *models.Store) model {
	ti := textinput.New()
	ti.Placeholder = "Name your ride, or pick a saved one by number..."
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 50

	saved, _ := store.List()
	return model{
		ctx:       ctx,
		state:     stateMenu,
		launch:    launch,
		store:     store,
		saved:     saved,
		prog:      &programRef{},
		inventory: map[int]int{},
		textInput: ti,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// Messages sent by the observer.
type (
	hourMsg     struct{ hour int }
	mileMsg     struct{ mile int }
	decisionMsg struct{ d *dispatch.Decision }
	storeMsg    struct{ v *dispatch.StoreVisit }
	statsMsg    struct{ s stats.Vector }
	resultMsg   struct{ r engine.ActionResult }
	gameOverMsg struct{ e content.Ending }
	doneMsg     struct{ err error }
	errMsg      struct{ err error }
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			m.textInput.Reset()
			if input == "/quit" {
				return m, tea.Quit
			}
			switch m.state {
			case stateMenu:
				return m.begin(input)
			case stateDeciding:
				return m.choose(input), nil
			case stateShopping:
				return m.shop(input), nil
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 6
		m.viewport.SetContent(m.gameLog)

	case hourMsg:
		m.hour = msg.hour
		return m, nil

	case mileMsg:
		m.mile = msg.mile
		return m, nil

	case statsMsg:
		m.stats = msg.s
		return m, nil

	case decisionMsg:
		m.decision = msg.d
		m.state = stateDeciding
		header := string(msg.d.Kind)
		if msg.d.Kind == dispatch.KindIssue {
			header = "uh oh"
		}
		m.appendLog(gameStyle.Bold(true).Render(fmt.Sprintf("[%s] %s", header, msg.d.Title)))
		if msg.d.Description != "" {
			m.appendLog(gameStyle.Width(m.logWidth()).Render(msg.d.Description))
		}
		var b strings.Builder
		for i, a := range msg.d.Choices {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, a.DisplayName)
		}
		m.appendLog(b.String())
		m.textInput.Placeholder = "Pick an option by number"
		return m, nil

	case storeMsg:
		m.visit = msg.v
		m.state = stateShopping
		m.appendLog(gameStyle.Bold(true).Render("[store] " + msg.v.Title))
		m.appendLog(m.renderStock())
		m.textInput.Placeholder = "Buy by number, 0 to leave"
		return m, nil

	case resultMsg:
		r := msg.r
		if r.Message != "" {
			m.appendLog(gameStyle.Width(m.logWidth()).Render(r.Message))
		}
		for _, it := range r.Purchased {
			m.inventory[it.ID]++
			m.appendLog(fmt.Sprintf("Bought %s.", it.DisplayName))
		}
		for _, it := range r.Denied {
			m.appendLog(errorStyle.Render(fmt.Sprintf("Couldn't afford %s after all.", it.DisplayName)))
		}
		if r.TimedOut {
			m.appendLog(helpStyle.Render("You took too long; the road decided for you."))
		}
		m.stats = r.Stats
		return m, nil

	case gameOverMsg:
		m.ending = msg.e
		m.state = stateOver
		m.appendLog(titleStyle.Render(msg.e.DisplayName))
		if msg.e.Description != "" {
			m.appendLog(gameStyle.Width(m.logWidth()).Render(msg.e.Description))
		}
		m.textInput.Placeholder = "Press Esc to quit"
		return m, nil

	case doneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.err = msg.err
			m.state = stateError
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		m.state = stateError
		return m, nil
	}

	if m.state != stateError {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// begin starts a new session or resumes a saved one.
func (m model) begin(input string) (tea.Model, tea.Cmd) {
	var session *models.GameSession
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(m.saved) {
		loaded, err := m.store.Load(m.saved[n-1].ID)
		if err != nil {
			m.err = err
			m.state = stateError
			return m, nil
		}
		session = loaded
	} else {
		if input == "" {
			input = "Oklahoma or bust"
		}
		session = models.NewSession(input, 0)
	}
	if session.Over {
		m.appendLog(errorStyle.Render("That journey is already over. Pick another."))
		return m, nil
	}

	eng, lib, err := m.launch(session)
	if err != nil {
		m.err = err
		m.state = stateError
		return m, nil
	}
	m.engine, m.lib, m.session = eng, lib, session
	m.hour, m.mile, m.stats = session.State.Hour, session.State.Mile, session.State.Stats
	for id, n := range session.State.Inventory {
		m.inventory[id] = n
	}
	eng.RegisterObserver(&observer{ref: m.prog})

	m.state = stateRiding
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(m.logWidth(), max(m.height-6, 10))
	}
	m.gameLog = ""
	m.appendLog(gameStyle.Bold(true).Render("Ride: " + session.Name))
	m.textInput.Placeholder = "Riding..."

	if err := eng.Start(m.ctx); err != nil {
		m.err = err
		m.state = stateError
		return m, nil
	}
	return m, m.waitDone()
}

func (m model) waitDone() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		<-eng.Done()
		return doneMsg{eng.Err()}
	}
}

func (m model) choose(input string) model {
	d := m.decision
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(d.Choices) {
		m.appendLog(errorStyle.Render(fmt.Sprintf("Pick a number between 1 and %d.", len(d.Choices))))
		return m
	}
	choice := d.Choices[n-1]
	if err := d.Resolve(choice.ID); err != nil {
		m.appendLog(errorStyle.Render(err.Error()))
		return m
	}
	m.appendLog(userStyle.Width(m.logWidth()).Render("> " + choice.DisplayName))
	m.decision = nil
	m.state = stateRiding
	m.textInput.Placeholder = "Riding..."
	return m
}

func (m model) shop(input string) model {
	v := m.visit
	n, err := strconv.Atoi(input)
	if err != nil || n < 0 || n > len(v.Stock) {
		m.appendLog(errorStyle.Render(fmt.Sprintf("Pick a number between 0 and %d.", len(v.Stock))))
		return m
	}
	if n == 0 {
		if err := v.Complete(); err != nil {
			m.appendLog(errorStyle.Render(err.Error()))
		}
		m.appendLog(userStyle.Width(m.logWidth()).Render("> Leave store"))
		m.visit = nil
		m.state = stateRiding
		m.textInput.Placeholder = "Riding..."
		return m
	}
	it := v.Stock[n-1]
	if err := v.Purchase(it.ID); err != nil {
		m.appendLog(errorStyle.Render(err.Error()))
		return m
	}
	m.appendLog(userStyle.Width(m.logWidth()).Render(fmt.Sprintf("> %s ($%d left)", it.DisplayName, v.Remaining())))
	return m
}

func (m *model) appendLog(s string) {
	m.gameLog += s + "\n\n"
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	return int(float64(m.width) * 0.75)
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateMenu:
		var b strings.Builder
		b.WriteString("GTFO Oklahoma\n\n")
		if len(m.saved) > 0 {
			b.WriteString("Saved rides:\n")
			for i, sv := range m.saved {
				status := fmt.Sprintf("updated %s", sv.UpdatedAt.Local().Format("Jan 2 15:04"))
				if sv.Over {
					status = "finished"
				}
				fmt.Fprintf(&b, "  %d. %s (%s)\n", i+1, sv.Name, status)
			}
			b.WriteString("\n")
		}
		b.WriteString(m.textInput.View())
		s = b.String()

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)

	default:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)
		help := helpStyle.Render("Type a number and press Enter. /quit or Esc saves and quits.")
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+m.textInput.View(),
			"\n"+help,
		)
	}

	return "\n" + s + "\n"
}

func (m model) renderState() string {
	if m.session == nil {
		return ""
	}

	where := titleStyle.Render("ROAD") + "\n" +
		fmt.Sprintf("Mile %d\n%02d:00\n\n", m.mile, m.hour)

	st := m.stats
	statsView := titleStyle.Render("STATS") + "\n" +
		fmt.Sprintf("Health: %d\nMoney: $%d\nSpeed: %d mph\nKit: %d lb\nPace: %s\n\n",
			st.Health, st.MoneyRemaining, stats.CurrentSpeed(st), st.KitWeight, st.Pace)

	inventory := titleStyle.Render("INVENTORY") + "\n"
	if len(m.inventory) == 0 {
		inventory += "(empty)"
	}
	for _, id := range slices.Sorted(maps.Keys(m.inventory)) {
		inventory += fmt.Sprintf("- %s x%d\n", m.lib.Items.Lookup(id).DisplayName, m.inventory[id])
	}

	stateWidth := int(float64(m.width) * 0.23)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(where + statsView + inventory)
}

func (m model) renderStock() string {
	var b strings.Builder
	b.WriteString("  0. Leave store\n")
	for i, it := range m.visit.Stock {
		fmt.Fprintf(&b, "  %d. %s ($%d)\n", i+1, it.DisplayName, it.Cost)
	}
	fmt.Fprintf(&b, "You have $%d.", m.visit.Remaining())
	return b.String()
}

// Run shows the start menu, plays the chosen session and saves it when
// the player quits or the journey ends.
func Run(ctx context.Context, launch Launcher, store *models.Store) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newModel(ctx, launch, store)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.prog.p = p

	final, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		err = nil
	}
	fm, ok := final.(model)
	if !ok || fm.engine == nil {
		return err
	}

	// Quitting never waits on an open decision.
	cancel()
	<-fm.engine.Done()
	if saveErr := store.Save(fm.engine.Session()); saveErr != nil {
		return errors.Join(err, fmt.Errorf("save session: %w", saveErr))
	}
	return err
}
