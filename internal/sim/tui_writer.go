package sim

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"swarmnet-sim/internal/comms"
	"swarmnet-sim/internal/config"
	"swarmnet-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// linkMsg carries one tick's worth of link state rows.
type linkMsg struct{ rows []telemetry.LinkStateRow }

// deliveryMsg carries a delivery log line.
type deliveryMsg struct{ line string }

// TUIWriter renders link state and deliveries in a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
	}()
	return w
}

// WriteLinkState implements LinkWriter.
func (w *TUIWriter) WriteLinkState(row telemetry.LinkStateRow) error {
	return w.WriteLinkStates([]telemetry.LinkStateRow{row})
}

// WriteLinkStates updates the topology view with one tick's rows.
func (w *TUIWriter) WriteLinkStates(rows []telemetry.LinkStateRow) error {
	w.program.Send(linkMsg{rows: rows})
	return nil
}

// WriteDelivery implements DeliveryWriter.
func (w *TUIWriter) WriteDelivery(row telemetry.DeliveryRow) error {
	status := colorGreen + "ok" + colorReset
	if row.Unknown {
		status = colorRed + "unknown-dst" + colorReset
	} else if row.Delivered == 0 {
		status = colorYellow + "lost" + colorReset
	}
	line := fmt.Sprintf("%s[%s]%s %s%s%s -> %s%s:%d%s %sbytes=%d%s %srcpt=%d%s %sdlv=%d%s %s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, row.SrcAddress, colorReset,
		colorMagenta, row.DstAddress, row.DstPort, colorReset,
		colorCyan, row.Bytes, colorReset,
		colorGray, row.Recipients, colorReset,
		colorGreen, row.Delivered, colorReset,
		status)
	w.program.Send(deliveryMsg{line: line})
	return nil
}

// WriteDeliveries outputs multiple delivery rows.
func (w *TUIWriter) WriteDeliveries(rows []telemetry.DeliveryRow) error {
	for _, r := range rows {
		_ = w.WriteDelivery(r)
	}
	return nil
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type nodeInfo struct {
	x, y, z   float64
	neighbors int
	outage    bool
}

type tuiModel struct {
	cfg          *config.SimulationConfig
	table        table.Model
	vp           viewport.Model
	logs         []string
	nodes        map[string]nodeInfo
	wrap         bool
	autoscroll   bool
	showMap      bool
	header       string
	headerHeight int
	height       int
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	params := cfg.CommsModel.Params()
	cols := []table.Column{
		{Title: "Parameter", Width: 26},
		{Title: "Value", Width: 14},
		{Title: "Parameter", Width: 26},
		{Title: "Value", Width: 14},
	}
	rows := []table.Row{
		{"Neighbor Dist Min (m)", fmt.Sprintf("%.1f", params.NeighborDistanceMin), "Neighbor Dist Max (m)", fmt.Sprintf("%.1f", params.NeighborDistanceMax)},
		{"Comms Dist Min (m)", fmt.Sprintf("%.1f", params.CommsDistanceMin), "Comms Dist Max (m)", fmt.Sprintf("%.1f", params.CommsDistanceMax)},
		{"Neighbor Penalty (m)", fmt.Sprintf("%.1f", params.NeighborDistancePenaltyTree), "Comms Penalty (m)", fmt.Sprintf("%.1f", params.CommsDistancePenaltyTree)},
		{"Drop Prob Min", fmt.Sprintf("%.2f", params.CommsDropProbabilityMin), "Drop Prob Max", fmt.Sprintf("%.2f", params.CommsDropProbabilityMax)},
		{"Outage Prob", fmt.Sprintf("%.4f", params.CommsOutageProbability), "MTU (bytes)", fmt.Sprintf("%d", params.MTU)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		nodes:      make(map[string]nodeInfo),
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "m":
			m.showMap = !m.showMap
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown":
				m.vp.LineDown(10)
			case "pgup":
				m.vp.LineUp(10)
			}
		}
		return m, nil
	case linkMsg:
		for _, r := range msg.rows {
			m.nodes[r.Address] = nodeInfo{
				x: r.X, y: r.Y, z: r.Z,
				neighbors: r.NeighborCount,
				outage:    r.OnOutage,
			}
		}
	case deliveryMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > 1000 {
			m.logs = m.logs[len(m.logs)-1000:]
		}
		m.refreshViewport()
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := 1
	nodesHeight := len(m.nodes) + 1
	mapHeight := 0
	if m.showMap {
		mapHeight = m.mapHeight() + 2
	}
	h := m.height - m.headerHeight - bottomHeight - nodesHeight - mapHeight - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) renderHeader() string {
	return m.table.View()
}

func (m tuiModel) renderNodes() string {
	addrs := make([]string, 0, len(m.nodes))
	for a := range m.nodes {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	var b strings.Builder
	b.WriteString("Nodes:\n")
	for _, a := range addrs {
		n := m.nodes[a]
		state := colorGreen + "active" + colorReset
		if n.outage {
			state = colorRed + "outage" + colorReset
		}
		b.WriteString(fmt.Sprintf("  %s%-12s%s (%.1f, %.1f, %.1f) neighbors=%d %s\n",
			colorCyan, a, colorReset, n.x, n.y, n.z, n.neighbors, state))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) mapHeight() int {
	h := m.height / 3
	if h < 8 {
		h = 8
	}
	return h
}

// renderMap draws node positions projected onto the field bounds.
func (m tuiModel) renderMap() string {
	width := m.vp.Width
	height := m.mapHeight()
	if width < 10 || len(m.nodes) == 0 {
		return "No position data"
	}

	f := m.cfg.Field
	spanX := f.Max.X - f.Min.X
	spanY := f.Max.Y - f.Min.Y
	if spanX <= 0 || spanY <= 0 {
		return "No field bounds"
	}

	grid := make([][]string, height)
	for i := range grid {
		row := make([]string, width)
		for j := range row {
			row[j] = "."
		}
		grid[i] = row
	}

	for _, ob := range m.cfg.Field.Obstacles {
		x := int((ob.Min.X + (ob.Max.X-ob.Min.X)/2 - f.Min.X) / spanX * float64(width-1))
		y := int((f.Max.Y - (ob.Min.Y + (ob.Max.Y-ob.Min.Y)/2)) / spanY * float64(height-1))
		if y >= 0 && y < height && x >= 0 && x < width {
			grid[y][x] = colorGray + "#" + colorReset
		}
	}

	for addr, n := range m.nodes {
		x := int((n.x - f.Min.X) / spanX * float64(width-1))
		y := int((f.Max.Y - n.y) / spanY * float64(height-1))
		if y < 0 || y >= height || x < 0 || x >= width {
			continue
		}
		switch {
		case addr == comms.BaseStation:
			grid[y][x] = colorYellow + "B" + colorReset
		case n.outage:
			grid[y][x] = colorRed + "x" + colorReset
		default:
			grid[y][x] = colorGreen + "o" + colorReset
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Field: x %.0f..%.0f  y %.0f..%.0f\n", f.Min.X, f.Max.X, f.Min.Y, f.Max.Y))
	for _, row := range grid {
		b.WriteString(strings.Join(row, ""))
		b.WriteByte('\n')
	}
	b.WriteString(fmt.Sprintf("%so%s=node %sx%s=outage %sB%s=base %s#%s=obstacle",
		colorGreen, colorReset, colorRed, colorReset, colorYellow, colorReset, colorGray, colorReset))
	return b.String()
}

func (m tuiModel) View() string {
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.renderNodes(),
		divider,
	}
	if m.showMap {
		sections = append(sections, m.renderMap(), divider)
	}
	sections = append(sections,
		"Deliveries:",
		m.vp.View(),
		divider,
		m.renderBottom(),
	)
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderBottom() string {
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	mapColor := lipgloss.Color("9")
	if m.showMap {
		mapColor = lipgloss.Color("10")
	}
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")
	mapIndicator := lipgloss.NewStyle().Foreground(mapColor).Render("●")
	return fmt.Sprintf("q quit | w wrap %s | s scroll %s | m map %s", wrapIndicator, scrollIndicator, mapIndicator)
}
