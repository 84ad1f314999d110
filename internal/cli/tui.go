package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/kinship/pkg/graph"
	"github.com/matzehuels/kinship/pkg/layout"
	"github.com/matzehuels/kinship/pkg/pipeline"
	"github.com/matzehuels/kinship/pkg/reveal"
	"github.com/matzehuels/kinship/pkg/telemetry"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	barWidth     = 20
	minSpeed     = 0.25
	maxSpeed     = 8
	defaultTicks = 30
)

// relayoutFunc computes the layout of the animated record in another mode.
type relayoutFunc func(layout.Mode) (graph.Layout, error)

type tickMsg time.Time

// AnimateModel is the bubbletea model of the live reveal preview. The engine
// is only touched from Update, which bubbletea runs on one goroutine.
type AnimateModel struct {
	Engine   *reveal.Engine
	Layout   graph.Layout
	Relayout relayoutFunc

	Speed   float32
	Paused  bool
	Cursor  int
	Offset  int
	Height  int
	Picked  string
	Err     error
	FPS     float32
	Sampler *telemetry.FPSSampler

	interval time.Duration
	last     time.Time
}

// NewAnimateModel creates a preview of e, which must already hold l.
func NewAnimateModel(e *reveal.Engine, l graph.Layout, relayout relayoutFunc, ticksPerSecond int) *AnimateModel {
	if ticksPerSecond < 1 {
		ticksPerSecond = defaultTicks
	}
	m := &AnimateModel{
		Engine:   e,
		Layout:   l,
		Relayout: relayout,
		Speed:    1,
		Height:   15,
		interval: time.Second / time.Duration(ticksPerSecond),
	}
	m.Sampler = telemetry.NewFPSSampler(func(fps float32) { m.FPS = fps })
	return m
}

func (m *AnimateModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *AnimateModel) Init() tea.Cmd {
	m.last = time.Now()
	return m.tick()
}

func (m *AnimateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		now := time.Time(msg)
		dt := float32(now.Sub(m.last).Seconds())
		m.last = now
		m.Sampler.Sample(dt)
		if !m.Paused {
			m.Engine.Step(dt * m.Speed)
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.Paused = !m.Paused
		case "+", "=":
			m.Speed = min(m.Speed*2, maxSpeed)
		case "-":
			m.Speed = max(m.Speed/2, minSpeed)
		case "r":
			m.reload(m.Layout)
		case "m":
			m.cycleMode()
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Engine.Nodes())-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			nodes := m.Engine.Nodes()
			if m.Cursor < len(nodes) && m.Engine.Pick(nodes[m.Cursor].Name) {
				m.Picked = nodes[m.Cursor].Name
			}
		}

	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-10, 5)
	}
	return m, nil
}

// reload restarts the reveal of l from t=0.
func (m *AnimateModel) reload(l graph.Layout) {
	m.Engine.Unload()
	if err := pipeline.Load(m.Engine, l); err != nil {
		m.Err = err
		return
	}
	m.Engine.ResolveAll()
	m.Layout = l
	m.Cursor, m.Offset, m.Picked, m.Err = 0, 0, "", nil
}

func (m *AnimateModel) cycleMode() {
	if m.Relayout == nil {
		return
	}
	next := layout.Modes[0]
	for i, mode := range layout.Modes {
		if mode == m.Layout.Mode {
			next = layout.Modes[(i+1)%len(layout.Modes)]
		}
	}
	l, err := m.Relayout(next)
	if err != nil {
		m.Err = err
		return
	}
	m.reload(l)
}

func (m *AnimateModel) View() string {
	var b strings.Builder
	e := m.Engine

	b.WriteString(StyleTitle.Render("Reveal · " + string(e.Mode())))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("space pause  +/- speed  m mode  r restart  ⏎ pick  q quit"))
	b.WriteString("\n\n")

	status := []string{
		fmt.Sprintf("t=%6.2fs", e.Time()),
		fmt.Sprintf("×%g", m.Speed),
		fmt.Sprintf("%.0f fps", m.FPS),
	}
	if e.Mode() == layout.ModeIncubator {
		status = append(status, fmt.Sprintf("field %.2f", e.Field()))
	}
	if e.Settled() {
		status = append(status, StyleSuccess.Render("settled"))
	}
	if m.Paused {
		status = append(status, StyleWarning.Render("paused"))
	}
	b.WriteString("  " + strings.Join(status, StyleDim.Render(" · ")))
	b.WriteString("\n")

	nodes := e.Nodes()
	end := min(m.Offset+m.Height, len(nodes))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		n := nodes[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		visible := ""
		if n.Visible {
			visible = "✓"
		}
		rows = append(rows, []string{cursor, n.Name, renderKind(n.Kind), progressBar(n.Progress), visible})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Node", "Kind", "Progress", "Shown").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(nodes) {
				return lipgloss.NewStyle()
			}
			switch {
			case idx == m.Cursor:
				return listSelectedStyle
			case nodes[idx].Visible:
				return listNormalStyle
			default:
				return listDimStyle
			}
		})

	b.WriteString(t.Render())
	b.WriteString("\n")

	visibleEdges := 0
	for _, ed := range e.Edges() {
		if ed.Visible {
			visibleEdges++
		}
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %d/%d edges shown", min(m.Cursor+1, len(nodes)), len(nodes), visibleEdges, len(e.Edges()))))
	if m.Picked != "" {
		b.WriteString("\n  " + StyleHighlight.Render(iconArrow+" "+m.Picked))
	}
	if m.Err != nil {
		b.WriteString("\n  " + styleIconError.Render(iconError) + " " + m.Err.Error())
	}
	b.WriteString("\n")
	return b.String()
}

// progressBar renders p in [0, 1] as a fixed-width bar.
func progressBar(p float32) string {
	p = max(0, min(1, p))
	filled := int(p*barWidth + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + fmt.Sprintf(" %3.0f%%", p*100)
}
