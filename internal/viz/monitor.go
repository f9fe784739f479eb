package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pidloop/internal/experiment"
	"github.com/san-kum/pidloop/internal/joints"
	"github.com/san-kum/pidloop/internal/settings"
)

const (
	historyLen = 120
	tuneStep   = 1.1
)

// Tuner reads and replaces live channel settings. *experiment.Experiment
// satisfies it.
type Tuner interface {
	Current() []settings.Channel
	UpdateSettings(next []settings.Channel) error
}

type TickMsg time.Time

// DoneMsg reports that the run behind the monitor has ended.
type DoneMsg struct {
	Result *experiment.Result
	Err    error
}

type gain int

const (
	gainKp gain = iota
	gainKi
	gainKd
)

func (g gain) String() string {
	return [...]string{"kp", "ki", "kd"}[g]
}

// Monitor follows a running loop and retunes its gains.
type Monitor struct {
	feed   *Feed
	tuner  Tuner
	period time.Duration

	snap     Snapshot
	selected int
	gain     gain
	ramped   [][]float64
	measured [][]float64
	outputs  [][]float64

	message string
	done    bool
	result  *experiment.Result
	width   int
}

func NewMonitor(feed *Feed, tuner Tuner) *Monitor {
	return &Monitor{
		feed:   feed,
		tuner:  tuner,
		period: time.Second / 30,
		width:  80,
	}
}

func (m *Monitor) Init() tea.Cmd {
	return m.tick()
}

func (m *Monitor) tick() tea.Cmd {
	return tea.Tick(m.period, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case TickMsg:
		m.poll()
		if m.done {
			return m, nil
		}
		return m, m.tick()

	case DoneMsg:
		m.poll()
		m.done = true
		m.result = msg.Result
		switch {
		case msg.Err != nil:
			m.message = "run failed: " + msg.Err.Error()
		case msg.Result != nil && msg.Result.Fault != nil:
			m.message = "faulted: " + msg.Result.Fault.Error()
		default:
			m.message = "run finished"
		}
	}
	return m, nil
}

func (m *Monitor) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		if n := len(m.tuner.Current()); n > 0 {
			m.selected = (m.selected + 1) % n
		}
	case "g":
		m.gain = (m.gain + 1) % 3
	case "up", "k":
		m.retune(tuneStep)
	case "down", "j":
		m.retune(1 / tuneStep)
	case "0":
		m.retune(0)
	}
	return m, nil
}

// retune scales the selected gain. A zero gain scaled up starts at 0.01.
func (m *Monitor) retune(factor float64) {
	channels := m.tuner.Current()
	if m.selected >= len(channels) {
		return
	}
	pid := &channels[m.selected].PID
	var g *float64
	switch m.gain {
	case gainKp:
		g = &pid.Kp
	case gainKi:
		g = &pid.Ki
	case gainKd:
		g = &pid.Kd
	}
	switch {
	case factor == 0:
		*g = 0
	case *g == 0 && factor > 1:
		*g = 0.01
	default:
		*g *= factor
	}

	if err := m.tuner.UpdateSettings(channels); err != nil {
		m.message = "rejected: " + err.Error()
		return
	}
	m.message = fmt.Sprintf("channel %d %s = %.4g", m.selected, m.gain, *g)
}

func (m *Monitor) poll() {
	snap, fresh := m.feed.Latest()
	if !fresh {
		return
	}
	published := snap.Published != m.snap.Published
	m.snap = snap
	if !published {
		return
	}

	n := len(snap.Diagnostic.Channels)
	for len(m.ramped) < n {
		m.ramped = append(m.ramped, nil)
		m.measured = append(m.measured, nil)
		m.outputs = append(m.outputs, nil)
	}
	for i, d := range snap.Diagnostic.Channels {
		out := joints.Unknown
		if i < len(snap.Output.Channels) {
			out = snap.Output.Channels[i].Value
		}
		m.ramped[i] = push(m.ramped[i], d.Ramped)
		m.measured[i] = push(m.measured[i], d.Measured)
		m.outputs[i] = push(m.outputs[i], out)
	}
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyLen {
		h = h[len(h)-historyLen:]
	}
	return h
}

func (m *Monitor) View() string {
	var b strings.Builder

	state := m.snap.State.String()
	b.WriteString(Title.Render("PIDLOOP"))
	b.WriteString("  ")
	b.WriteString(StateStyle(state).Render(strings.ToUpper(state)))
	b.WriteString(Subtle.Render(fmt.Sprintf("  cycle %d  published %d  skipped %d",
		m.snap.Cycle, m.snap.Published, m.snap.Skipped)))
	b.WriteString("\n\n")

	b.WriteString(Panel.Render(m.channelTable()))
	b.WriteString("\n")

	if m.selected < len(m.ramped) && len(m.ramped[m.selected]) > 1 {
		plotWidth := max(20, min(m.width-12, historyLen))
		graph := asciigraph.PlotMany(
			[][]float64{m.ramped[m.selected], m.measured[m.selected]},
			asciigraph.Height(8),
			asciigraph.Width(plotWidth),
			asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green),
			asciigraph.Caption(fmt.Sprintf("channel %d target/measured", m.selected)),
		)
		b.WriteString(Panel.Render(graph))
		b.WriteString("\n")
		b.WriteString(MetricLabel.Render("output"))
		b.WriteString(Sparkline(m.outputs[m.selected], plotWidth))
		b.WriteString("\n")
	}

	if m.snap.Fault != nil {
		b.WriteString(StatusFaulted.Render("fault: " + m.snap.Fault.Error()))
		b.WriteString("\n")
	}
	if m.message != "" {
		b.WriteString(MetricValue.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString(KeyHint.Render("tab channel • g gain • ↑/↓ tune • 0 zero • q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Monitor) channelTable() string {
	channels := m.tuner.Current()
	rows := []string{Header.Render(fmt.Sprintf("%-3s %-10s %-9s %10s %10s %10s  %-14s %s",
		"#", "name", "request", "ramped", "measured", "error", "output", "gains"))}

	for i, c := range channels {
		var d joints.ChannelDiagnostic
		if i < len(m.snap.Diagnostic.Channels) {
			d = m.snap.Diagnostic.Channels[i]
		}
		out := "-"
		if i < len(m.snap.Output.Channels) && m.snap.Output.Channels[i].Domain != joints.Unset {
			o := m.snap.Output.Channels[i]
			out = fmt.Sprintf("%s %.3f", o.Domain, o.Value)
			if d.PID.Saturated {
				out += "!"
			}
		}

		line := fmt.Sprintf("%-3d %-10s %-9s %10.4f %10.4f %10.4f  %-14s %s",
			i, c.Name, d.Requested, d.Ramped, d.Measured, d.PID.Error, out, m.gains(i, c.PID.Kp, c.PID.Ki, c.PID.Kd))
		if i == m.selected {
			line = Selected.Render("▶ " + line)
		} else {
			line = "  " + line
		}
		rows = append(rows, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Monitor) gains(i int, kp, ki, kd float64) string {
	vals := []float64{kp, ki, kd}
	parts := make([]string, len(vals))
	for g, v := range vals {
		s := fmt.Sprintf("%s=%.3g", gain(g), v)
		if i == m.selected && gain(g) == m.gain {
			s = "[" + s + "]"
		}
		parts[g] = s
	}
	return strings.Join(parts, " ")
}
