// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/prtbus/internal/poller"
	"github.com/Thermoquad/prtbus/pkg/heatmiser"
	"github.com/Thermoquad/prtbus/pkg/rs485"
)

// monitorLine is the part of the line the monitor drives
type monitorLine interface {
	WriteParameter(ctx context.Context, addr uint8, param heatmiser.ParamID, value int) error
	SetMode(ctx context.Context, addr uint8, mode heatmiser.RunMode) error
	Statistics() *rs485.Statistics
}

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	ctx      context.Context
	line     monitorLine
	refresh  func(ctx context.Context, id uint8)
	connInfo string

	devices   []poller.Device
	snapshots map[uint8]poller.Snapshot
	table     table.Model
	summary   rs485.LineSummary

	// Setpoint entry
	input   textinput.Model
	editing heatmiser.ParamID
	isEdit  bool

	errorLog      []errorLogEntry
	maxLogEntries int

	width    int
	height   int
	quitting bool
}

// Messages
type monitorTickMsg time.Time
type snapshotMsg poller.Snapshot
type writeResultMsg struct {
	id   uint8
	what string
	err  error
}

var monitorColumns = []table.Column{
	{Title: "ID", Width: 3},
	{Title: "Name", Width: 16},
	{Title: "Temp", Width: 7},
	{Title: "Target", Width: 6},
	{Title: "Frost", Width: 5},
	{Title: "Mode", Width: 5},
	{Title: "Heat", Width: 4},
	{Title: "Clock", Width: 12},
	{Title: "Read", Width: 12},
	{Title: "Write", Width: 10},
	{Title: "State", Width: 8},
}

func initialMonitorModel(ctx context.Context, line monitorLine, refresh func(context.Context, uint8), connInfo string, devices []poller.Device) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "21"
	ti.CharLimit = 2
	ti.Width = 4

	t := table.New(
		table.WithColumns(monitorColumns),
		table.WithFocused(true),
		table.WithHeight(len(devices)+1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12"))
	t.SetStyles(styles)

	m := monitorModel{
		ctx:           ctx,
		line:          line,
		refresh:       refresh,
		connInfo:      connInfo,
		devices:       devices,
		snapshots:     make(map[uint8]poller.Snapshot, len(devices)),
		table:         t,
		input:         ti,
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
	for _, d := range devices {
		m.snapshots[d.ID] = poller.Snapshot{ID: d.ID, Name: d.Name}
	}
	m.table.SetRows(m.rows())
	return m
}

func (m monitorModel) Init() tea.Cmd {
	return monitorTickCmd()
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.isEdit {
			return m.handleEditKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		m.summary = m.line.Statistics().LineSummary()
		return m, monitorTickCmd()

	case snapshotMsg:
		s := poller.Snapshot(msg)
		prev := m.snapshots[s.ID]
		m.snapshots[s.ID] = s
		m.table.SetRows(m.rows())
		if s.Err != nil && prev.Err == nil {
			m.addLogEntry(fmt.Sprintf("Stat %d (%s): %v", s.ID, s.Name, s.Err), true)
		} else if s.Err == nil && prev.Err != nil {
			m.addLogEntry(fmt.Sprintf("Stat %d (%s): back online", s.ID, s.Name), false)
		}
		if s.Params != nil {
			for _, a := range s.Params.Anomalies {
				m.addLogEntry(fmt.Sprintf("Stat %d: %s", s.ID, a.Message), true)
			}
		}

	case writeResultMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Stat %d: %s failed: %v", msg.id, msg.what, msg.err), true)
		} else {
			m.addLogEntry(fmt.Sprintf("Stat %d: %s OK", msg.id, msg.what), false)
		}
	}

	return m, nil
}

func (m monitorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "t":
		return m.startEdit(heatmiser.ParamTargetTemp)

	case "f":
		return m.startEdit(heatmiser.ParamFrostTemp)

	case "m":
		id, ok := m.selected()
		if !ok {
			return m, nil
		}
		next := heatmiser.ModeOff
		if s := m.snapshots[id]; s.Params != nil && s.Params.Mode() == heatmiser.ModeOff {
			next = heatmiser.ModeAuto
		}
		return m, m.setModeCmd(id, next)

	case "r":
		id, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.refreshCmd(id)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m monitorModel) startEdit(param heatmiser.ParamID) (tea.Model, tea.Cmd) {
	if _, ok := m.selected(); !ok {
		return m, nil
	}
	m.isEdit = true
	m.editing = param
	m.input.SetValue("")
	m.table.Blur()
	cmd := m.input.Focus()
	return m, cmd
}

func (m monitorModel) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.stopEdit()
		return m, nil

	case "enter":
		id, ok := m.selected()
		value, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
		param := m.editing
		m.stopEdit()
		if !ok {
			return m, nil
		}
		if err != nil {
			m.addLogEntry(fmt.Sprintf("Invalid %s value %q", param, m.input.Value()), true)
			return m, nil
		}
		if _, err := heatmiser.EncodeWrite(param, value); err != nil {
			m.addLogEntry(err.Error(), true)
			return m, nil
		}
		return m, m.writeCmd(id, param, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *monitorModel) stopEdit() {
	m.isEdit = false
	m.input.Blur()
	m.table.Focus()
}

// selected returns the address of the highlighted row
func (m monitorModel) selected() (uint8, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.devices) {
		return 0, false
	}
	return m.devices[i].ID, true
}

func (m monitorModel) writeCmd(id uint8, param heatmiser.ParamID, value int) tea.Cmd {
	ctx, line, refresh := m.ctx, m.line, m.refresh
	return func() tea.Msg {
		err := line.WriteParameter(ctx, id, param, value)
		if err == nil && refresh != nil {
			refresh(ctx, id)
		}
		return writeResultMsg{id: id, what: fmt.Sprintf("%s=%d", param, value), err: err}
	}
}

func (m monitorModel) setModeCmd(id uint8, mode heatmiser.RunMode) tea.Cmd {
	ctx, line, refresh := m.ctx, m.line, m.refresh
	return func() tea.Msg {
		err := line.SetMode(ctx, id, mode)
		if err == nil && refresh != nil {
			refresh(ctx, id)
		}
		return writeResultMsg{id: id, what: "mode " + mode.String(), err: err}
	}
}

func (m monitorModel) refreshCmd(id uint8) tea.Cmd {
	ctx, refresh := m.ctx, m.refresh
	return func() tea.Msg {
		if refresh != nil {
			refresh(ctx, id)
		}
		return nil
	}
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m monitorModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.devices))
	for _, d := range m.devices {
		rows = append(rows, snapshotRow(m.snapshots[d.ID]))
	}
	return rows
}

func snapshotRow(s poller.Snapshot) table.Row {
	state := "online"
	switch {
	case s.Params == nil && s.Err == nil:
		state = "waiting"
	case s.Params == nil:
		state = "offline"
	case s.Stale():
		state = "stale"
	}

	if s.Params == nil {
		return table.Row{strconv.Itoa(int(s.ID)), s.Name, "-", "-", "-", "-", "-", "-", s.ReadStats, s.WriteStats, state}
	}

	p := s.Params
	heat := ""
	if p.Heating() {
		heat = "on"
	}
	return table.Row{
		strconv.Itoa(int(s.ID)),
		s.Name,
		fmt.Sprintf("%.1f%s", p.CurrentTemperature(), p.Unit()),
		strconv.Itoa(int(p.TargetTemp)),
		strconv.Itoa(int(p.FrostTemp)),
		p.Mode().String(),
		heat,
		heatmiser.FormatClock(p.Clock),
		s.ReadStats,
		s.WriteStats,
		state,
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("PRTBUS MONITOR"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | q=quit t=target f=frost m=mode r=refresh", m.connInfo)))
	s.WriteString("\n\n")

	// Thermostats
	s.WriteString(boxStyle.Render(m.table.View()))
	s.WriteString("\n")

	if m.isEdit {
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			statsLabelStyle.Render(fmt.Sprintf("Set %s:", m.editing)),
			m.input.View(),
			headerStyle.Render("(enter to write, esc to cancel)")))
	}
	s.WriteString("\n")

	// Line summary
	sum := m.summary
	errs := sum.Soft + sum.Hard
	errStyle := statsValueStyle
	if errs > 0 {
		errStyle = errorStyle
	}
	summary := fmt.Sprintf("%s %s   %s %s   %s %s   %s %s",
		statsLabelStyle.Render("Transactions:"), statsValueStyle.Render(strconv.FormatUint(sum.Operations, 10)),
		statsLabelStyle.Render("Soft:"), errStyle.Render(strconv.FormatUint(sum.Soft, 10)),
		statsLabelStyle.Render("Hard:"), errStyle.Render(strconv.FormatUint(sum.Hard, 10)),
		statsLabelStyle.Render("By kind:"), headerStyle.Render(fmt.Sprintf("crc %d  ndr %d  oth %d  lnf %d",
			sum.ByKind[heatmiser.ChecksumMismatch], sum.ByKind[heatmiser.NoDataReceived],
			sum.ByKind[heatmiser.Other], sum.ByKind[heatmiser.LineFault])),
	)
	s.WriteString(boxStyle.Render(summary))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - len(m.devices) - 14
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
			}
		}
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	s.WriteString(boxStyle.Width(width).Render(logContent.String()))

	return s.String()
}
