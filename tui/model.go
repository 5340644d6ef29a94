// Package tui is the terminal front end: a Bubble Tea program that draws the
// engine's frames and turns key presses into engine input.
package tui

import (
	"fmt"
	"strings"

	"github.com/brensch/snekclassic/game"
	"github.com/brensch/snekclassic/rules"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Game is the part of the engine the UI drives.
type Game interface {
	Start()
	ChangeDirection(game.Direction) bool
	SetDifficulty(game.Difficulty) (int, bool)
	Snapshot() game.Snapshot
	Close()
}

// FrameMsg carries a fresh board from the engine.
type FrameMsg game.Snapshot

type feedClosedMsg struct{}

type Model struct {
	game      Game
	frames    <-chan game.Snapshot
	snap      game.Snapshot
	autopilot bool
}

func NewModel(g Game, frames <-chan game.Snapshot) Model {
	return Model{game: g, frames: frames, snap: g.Snapshot()}
}

func (m Model) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

func waitForFrame(frames <-chan game.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-frames
		if !ok {
			return feedClosedMsg{}
		}
		return FrameMsg(s)
	}
}

var keyDirections = map[string]game.Direction{
	"up": game.Up, "w": game.Up, "k": game.Up,
	"down": game.Down, "s": game.Down, "j": game.Down,
	"left": game.Left, "a": game.Left, "h": game.Left,
	"right": game.Right, "d": game.Right, "l": game.Right,
}

var keyDifficulties = map[string]game.Difficulty{
	"1": game.Normal,
	"2": game.Medium,
	"3": game.Hard,
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case FrameMsg:
		m.snap = game.Snapshot(msg)
		m.steer()
		return m, waitForFrame(m.frames)
	case feedClosedMsg:
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c", "esc":
		m.game.Close()
		return m, tea.Quit
	case "enter", " ", "space":
		m.game.Start()
		return m, nil
	case "p":
		m.autopilot = !m.autopilot
		m.steer()
		return m, nil
	}

	if d, ok := keyDirections[key]; ok {
		if !m.autopilot {
			m.game.ChangeDirection(d)
		}
		return m, nil
	}
	if d, ok := keyDifficulties[key]; ok {
		if _, ok := m.game.SetDifficulty(d); ok {
			m.snap = m.game.Snapshot()
		}
	}
	return m, nil
}

// steer lets the autopilot pick the next heading from the latest frame.
func (m Model) steer() {
	if !m.autopilot || !m.snap.Running {
		return
	}
	if d, ok := rules.Autopilot(m.snap.State()); ok {
		m.game.ChangeDirection(d)
	}
}

var (
	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	headStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	bodyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	foodStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	obstacleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	messageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m Model) View() string {
	s := m.snap

	header := titleStyle.Render("SNAKE") + "  " +
		fmt.Sprintf("Score: %d  High: %d  Difficulty: %s", s.Score, s.HighScore, s.Difficulty)
	if m.autopilot {
		header += "  [autopilot]"
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(boardStyle.Render(renderBoard(s)))
	b.WriteString("\n")
	if s.Message != "" {
		b.WriteString(messageStyle.Render(s.Message))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("arrows/wasd steer • enter start • 1/2/3 difficulty • p autopilot • q quit"))
	b.WriteString("\n")
	return b.String()
}

// renderBoard draws each cell two characters wide so the grid looks square.
func renderBoard(s game.Snapshot) string {
	if s.Width <= 0 || s.Height <= 0 {
		return ""
	}
	cells := make([][]string, s.Height)
	for y := range cells {
		cells[y] = make([]string, s.Width)
		for x := range cells[y] {
			cells[y][x] = "  "
		}
	}
	put := func(p game.Point, v string) {
		if p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height {
			cells[p.Y][p.X] = v
		}
	}

	for _, o := range s.Obstacles {
		put(o, obstacleStyle.Render("▓▓"))
	}
	if s.Food != nil {
		put(*s.Food, foodStyle.Render("()"))
	}
	for i := len(s.Snake) - 1; i >= 0; i-- {
		if i == 0 {
			put(s.Snake[i], headStyle.Render("██"))
		} else {
			put(s.Snake[i], bodyStyle.Render("▒▒"))
		}
	}

	rows := make([]string, len(cells))
	for y, row := range cells {
		rows[y] = strings.Join(row, "")
	}
	return strings.Join(rows, "\n")
}
