package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/link"
	"github.com/gwillem/visiontwin/pkg/robot"
	"github.com/gwillem/visiontwin/pkg/runlog"
	"github.com/gwillem/visiontwin/pkg/teleop"
	"github.com/gwillem/visiontwin/pkg/vision"
	"github.com/gwillem/visiontwin/pkg/vision/opencv"
)

type RunCommand struct {
	Hz        int    `long:"hz" description:"Control loop frequency (default from config)"`
	Port      string `short:"p" long:"port" description:"Serial port, or 'sim' for the simulated controller"`
	NoSerial  bool   `long:"no-serial" description:"Do not drive the arm"`
	NoCamera  bool   `long:"no-camera" description:"Run without a camera"`
	Marker    bool   `long:"marker" description:"Start in marker mode instead of motion mode"`
	LogFormat string `long:"log-format" choice:"csv" choice:"sqlite" description:"Run log format (default from config)"`
}

const (
	headerHeight = 5 // title, link, angles, blank
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

type series struct {
	name  string
	color string
	value func(teleop.State) float64
}

// One line per joint for target and actual.
var chartSeries = []series{
	{"target a1", "196", func(s teleop.State) float64 { return s.Target.A1 }},
	{"actual a1", "210", func(s teleop.State) float64 { return s.Actual.A1 }},
	{"target a2", "46", func(s teleop.State) float64 { return s.Target.A2 }},
	{"actual a2", "120", func(s teleop.State) float64 { return s.Actual.A2 }},
	{"target a3", "33", func(s teleop.State) float64 { return s.Target.A3 }},
	{"actual a3", "117", func(s teleop.State) float64 { return s.Actual.A3 }},
}

var healthColors = map[link.State]string{
	link.SerialDisabled: "245",
	link.SerialFailed:   "9",
	link.Waiting:        "214",
	link.Connected:      "10",
	link.FeedbackLost:   "9",
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type runModel struct {
	ctrl     *teleop.Controller
	chart    *streamlinechart.Model
	view     robot.ViewCalibration
	viewPath string
	width    int // terminal width
	height   int // terminal height
	logs     []string
	state    teleop.State
	last     *teleop.State // last charted state
	quitting bool
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement reports whether target or actual changed since the last
// charted state
func (m *runModel) hasMovement(s teleop.State) bool {
	if m.last == nil {
		return true // first reading, consider it movement
	}
	return s.Target != m.last.Target || s.Actual != m.last.Actual
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(40, m.width-borderSize-2)
	height = max(10, m.height-headerHeight-legendHeight-footerHeight-borderSize)
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(ctrl *teleop.Controller, view robot.ViewCalibration, viewPath string) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(joint.DefaultMin, joint.DefaultMax),
	)
	for _, s := range chartSeries {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(s.color))
		chart.SetDataSetStyles(s.name, runes.ThinLineStyle, style)
	}

	return runModel{
		ctrl:     ctrl,
		chart:    &chart,
		view:     view,
		viewPath: viewPath,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "v":
			m.ctrl.ToggleVision()
		case "m":
			m.ctrl.ToggleMode()
		case "c", "r":
			m.ctrl.ResetTrace()
		case "h":
			m.ctrl.Home()
		case "+", "=", "up":
			m.ctrl.AdjustA3(1)
		case "-", "down":
			m.ctrl.AdjustA3(-1)
		case "s":
			if err := m.view.Save(m.viewPath); err != nil {
				m.addLog(fmt.Sprintf("[%s] Save calibration: %v", time.Now().Format("15:04:05"), err))
				m.ctrl.SetStatus(teleop.StatusCalFailed)
			} else {
				m.ctrl.SetStatus(teleop.StatusCalSaved)
			}
		}
		return m, nil

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.ctrl.AdjustA3(1)
		case tea.MouseButtonWheelDown:
			m.ctrl.AdjustA3(-1)
		}
		return m, nil

	case stateMsg:
		state := teleop.State(msg)
		m.state = state
		// Only update chart if there's movement (freeze when idle)
		if m.hasMovement(state) {
			for _, s := range chartSeries {
				m.chart.PushDataSet(s.name, s.value(state))
			}
			m.chart.DrawAll()
			m.last = &state
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Stopped.\n"
	}

	var sb strings.Builder
	s := m.state

	// Header
	sb.WriteString(titleStyle.Render("visiontwin"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")

	healthStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(healthColors[s.Health]))
	sb.WriteString(healthStyle.Render(s.Health.Label()))
	sb.WriteString(statusStyle.Render(fmt.Sprintf("   FB_STATUS: %s", s.Status)))
	sb.WriteString("\n")

	visionState := "OFF"
	if s.VisionOn {
		visionState = "ON"
	}
	sb.WriteString(statusStyle.Render(fmt.Sprintf("BASELINE: %s   SOURCE: %s   VISION(%s): %s   TRACE: %d",
		runlog.StrategyRaw, s.Source, s.Mode, visionState, len(s.CamTrace))))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("TARGET %v   ACTUAL %v   ERR %v", s.Target, s.Actual, s.Error))
	if s.Smoothed != nil {
		sb.WriteString(statusStyle.Render("   SM " + s.Smoothed.String()))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(20, m.width-4)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Keys: v vision, m mode, c clear trace, h home, +/- or wheel a3, s save calibration, q quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, s := range chartSeries {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(s.color)).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+s.name)
	}
	return strings.Join(items, "  ")
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", opts.Config, err)
		os.Exit(1)
	}
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}
	if c.Port != "" {
		cfg.Serial.Port = c.Port
	}
	if c.NoSerial {
		cfg.Serial.Enabled = false
	}
	if c.NoCamera {
		cfg.Camera.Enabled = false
	}
	if c.LogFormat != "" {
		cfg.Log.Format = c.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	view, err := robot.LoadViewCalibration(cfg.CalibrationPath)
	if err != nil {
		log.Printf("Using default view calibration: %v", err)
	}

	var port link.Port
	if cfg.Serial.Enabled {
		port, err = openPort(cfg.Serial)
		if err != nil {
			log.Printf("Serial link unavailable: %v", err)
			port = nil
		} else {
			fmt.Printf("Serial link open on %s\n", cfg.Serial.Port)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var src vision.Source
	if cfg.Camera.Enabled {
		cam, err := opencv.Open(opencv.Config{
			Width:            cfg.Camera.Width,
			Height:           cfg.Camera.Height,
			FPSLimit:         cfg.Camera.FPSLimit,
			Candidates:       cfg.Camera.Candidates,
			MotionDiffThresh: cfg.Camera.MotionDiffThresh,
			MotionMinArea:    cfg.Camera.MotionMinArea,
			MotionDownscale:  cfg.Camera.MotionDownscale,
			MarkerColor:      cfg.Camera.MarkerColor,
		})
		if err != nil {
			log.Printf("Camera unavailable: %v", err)
		} else {
			fmt.Printf("Camera %d open\n", cam.Index())
			src = cam
			go func() {
				if err := cam.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("Camera stopped: %v", err)
				}
			}()
		}
	}

	rec, logPath, err := runlog.Open(cfg.Log.Dir, cfg.Log.Format, time.Now())
	if err != nil {
		log.Fatalf("Failed to open run log: %v", err)
	}
	fmt.Printf("Run log: %s\n", logPath)

	tcfg := teleop.ConfigFrom(*cfg, &view)
	if c.Marker {
		tcfg.Mode = vision.ModeMarker
	}
	ctrl := teleop.NewController(tcfg, port, src, rec)

	p := tea.NewProgram(initialRunModel(ctrl, view, cfg.CalibrationPath), tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Start controller in background
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := ctrl.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Controller error: %v", err)
		}
		if teleop.IsFatal(err) {
			p.Quit()
		}
	}()

	_, err = p.Run()
	cancel()
	<-done
	if err != nil {
		log.Fatalf("Error running program: %v", err)
	}
	return nil
}
