package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/snitchtools/streamgen/ir"
	"github.com/snitchtools/streamgen/irtext"
	"github.com/snitchtools/streamgen/stream"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	onStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	filename string
	src      string
	cfg      stream.Config
	funcs    []funcInfo
	view     viewport.Model
	selected int
	state    modelState
	ready    bool
}

type funcInfo struct {
	name    string
	blocks  int
	loops   int
	streams bool
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateShowResult
)

func newInteractiveModel(filename string, cfg stream.Config) *interactiveModel {
	cfg.Infer = true
	return &interactiveModel{
		filename: filename,
		cfg:      cfg,
		state:    stateSelectFunc,
	}
}

type loadedMsg struct {
	err   error
	src   string
	funcs []funcInfo
}

type transformedMsg struct {
	err error
	out string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadProgram
}

func (m *interactiveModel) loadProgram() tea.Msg {
	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	prog, err := irtext.Parse(string(data))
	if err != nil {
		return loadedMsg{err: err}
	}

	var funcs []funcInfo
	for _, f := range prog.Funcs {
		li := ir.Loops(f, ir.Dominators(f))
		funcs = append(funcs, funcInfo{
			name:    f.Name(),
			blocks:  len(f.Blocks),
			loops:   len(li.PreOrder()),
			streams: stream.Transformed(f),
		})
	}
	return loadedMsg{src: string(data), funcs: funcs}
}

// transformSelected reparses the source so that repeated runs with different
// toggles always start from the untouched input.
func (m *interactiveModel) transformSelected() tea.Msg {
	prog, err := irtext.Parse(m.src)
	if err != nil {
		return transformedMsg{err: err}
	}
	f := prog.FuncByName(m.funcs[m.selected].name)
	if f == nil {
		return transformedMsg{err: fmt.Errorf("function %s vanished on reparse", m.funcs[m.selected].name)}
	}
	changed, err := stream.TransformFunc(prog, f, m.cfg)
	if err != nil {
		return transformedMsg{err: err}
	}
	if !changed {
		return transformedMsg{out: "; no streams placed\n\n" + f.String()}
	}
	return transformedMsg{out: f.String()}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			if m.state == stateSelectFunc && len(m.funcs) > 0 {
				return m, m.transformSelected
			}

		case "esc":
			if m.state == stateShowResult {
				m.state = stateSelectFunc
				m.err = nil
			}

		case "1":
			m.cfg.NoIntersectCheck = !m.cfg.NoIntersectCheck
		case "2":
			m.cfg.NoScratchpadCheck = !m.cfg.NoScratchpadCheck
		case "3":
			m.cfg.NoBoundCheck = !m.cfg.NoBoundCheck
		case "4":
			m.cfg.ConflictFreeOnly = !m.cfg.ConflictFreeOnly
		case "5":
			m.cfg.Barrier = !m.cfg.Barrier
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.view = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = msg.Height - 4
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.src = msg.src
		m.funcs = msg.funcs

	case transformedMsg:
		m.err = msg.err
		m.view.SetContent(msg.out)
		m.view.GotoTop()
		m.state = stateShowResult
	}

	if m.state == stateShowResult {
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if len(m.funcs) == 0 {
		return "Loading IR..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Stream Generator"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to transform:\n\n")
		for i, f := range m.funcs {
			line := m.formatFunc(f)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.formatToggles())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter transform • 1-5 toggle checks • q quit"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(m.view.View())
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll • esc back • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatFunc(f funcInfo) string {
	mark := ""
	if f.streams {
		mark = "  [streams]"
	}
	return funcStyle.Render(f.name) + fmt.Sprintf("  (%d blocks, %d loops)%s", f.blocks, f.loops, mark)
}

func (m *interactiveModel) formatToggles() string {
	toggles := []struct {
		key  string
		name string
		off  bool
	}{
		{"1", "intersect check", m.cfg.NoIntersectCheck},
		{"2", "scratchpad check", m.cfg.NoScratchpadCheck},
		{"3", "bound check", m.cfg.NoBoundCheck},
		{"4", "conflict-free only", !m.cfg.ConflictFreeOnly},
		{"5", "barrier", !m.cfg.Barrier},
	}
	var parts []string
	for _, t := range toggles {
		label := t.key + ":" + t.name
		if t.off {
			parts = append(parts, offStyle.Render(label))
		} else {
			parts = append(parts, onStyle.Render(label))
		}
	}
	return strings.Join(parts, "  ")
}

func runInteractive(filename string, cfg stream.Config) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("interactive mode needs a terminal")
	}
	p := tea.NewProgram(newInteractiveModel(filename, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
