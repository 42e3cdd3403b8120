package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/visiontwin/pkg/link"
	"github.com/gwillem/visiontwin/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const servoBaud = 1_000_000

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("visiontwin Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", opts.Config, err)
		os.Exit(1)
	}

	// Step 1: Pick the driver and port
	driver := cfg.Serial.Driver
	runForm(huh.NewSelect[string]().
		Title("How is the arm connected?").
		Options(
			huh.NewOption("Microcontroller speaking the T/F line protocol", robot.DriverLine),
			huh.NewOption("Feetech STS servos on a bus adapter", robot.DriverFeetech),
		).
		Value(&driver))
	cfg.Serial.Driver = driver

	switch driver {
	case robot.DriverFeetech:
		port, servos := scanForServos()
		cfg.Serial.Port = port
		cfg.Serial.BaudRate = servoBaud

		// Step 2: Calibrate the servos
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Calibrating Servos ━━━"))
		fmt.Println()
		cfg.Serial.Servos = calibrateServos(port, servos)
	default:
		cfg.Serial.Port = pickPort(cfg.Serial.Port)
		if cfg.Serial.BaudRate == 0 {
			cfg.Serial.BaudRate = link.DefaultBaudRate
		}
	}
	cfg.Serial.Enabled = true

	// Step 3: Camera
	fmt.Println()
	camera := cfg.Camera.Enabled
	runForm(huh.NewConfirm().
		Title("Use a camera?").
		Description(fmt.Sprintf("Devices %v are tried in order", cfg.Camera.Candidates)).
		Value(&camera))
	cfg.Camera.Enabled = camera

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start tracking with: " + headerStyle.Render("visiontwin run"))

	return nil
}

// runForm runs a single-field form and exits when the user aborts it.
func runForm(field huh.Field) {
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}

func pickPort(current string) string {
	ports, err := link.ListPorts()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
	}

	var options []huh.Option[string]
	for _, p := range ports {
		options = append(options, huh.NewOption(p, p))
	}
	options = append(options, huh.NewOption("Simulated controller (no hardware)", link.SimName))

	port := current
	runForm(huh.NewSelect[string]().
		Title("Which serial port is the controller on?").
		Description(fmt.Sprintf("Line protocol at %d baud", link.DefaultBaudRate)).
		Options(options...).
		Value(&port))
	return port
}

type busInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func openBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: servoBaud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

// scanForServos finds the buses carrying the arm's three servos and lets the
// user pick one by wiggling its base.
func scanForServos() (string, []feetech.FoundServo) {
	fmt.Println("Scanning for servo buses...")
	fmt.Println()

	buses := findBuses()
	if len(buses) == 0 {
		fmt.Println("No arm with servo IDs 1-3 found.")
		fmt.Println("Make sure the arm is connected and powered on.")
		os.Exit(1)
	}

	for _, b := range buses {
		if identifyWithWiggle(b) {
			fmt.Println(successStyle.Render("Arm identified on " + b.port))
			return b.port, b.servos
		}
	}

	fmt.Println("No arm was selected.")
	os.Exit(1)
	return "", nil
}

func findBuses() []busInfo {
	ports, err := link.ListPorts()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var buses []busInfo
	for _, port := range ports {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		bus, err := openBus(port)
		if err != nil {
			cancel()
			continue
		}

		servos, err := bus.Scan(ctx, 1, len(robot.AllJoints()))
		cancel()
		if err != nil || !isArm(servos) {
			bus.Close()
			continue
		}

		fmt.Printf("  Found arm on %s\n", port)
		buses = append(buses, busInfo{port: port, servos: servos, bus: bus})
	}
	return buses
}

// isArm reports whether servos holds exactly the IDs 1-3.
func isArm(servos []feetech.FoundServo) bool {
	n := len(robot.AllJoints())
	if len(servos) != n {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for i := 1; i <= n; i++ {
		if !ids[i] {
			return false
		}
	}
	return true
}

func identifyWithWiggle(b busInfo) bool {
	defer b.bus.Close()

	ctx := context.Background()

	// Servo ID 1 is the base
	var servo *feetech.Servo
	for _, s := range b.servos {
		if s.ID == 1 {
			servo = feetech.NewServo(b.bus, s.ID, s.Model)
			break
		}
	}
	if servo == nil {
		return false
	}

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return false
	}
	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return false
	}

	fmt.Printf("\n  Wiggling arm on %s...\n", b.port)

	// Wiggle: single gentle, slow movement
	wiggleAmount := 30
	moveTimeMs := 500
	for _, pos := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, pos, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	}
	servo.Disable(ctx)

	use := true
	runForm(huh.NewConfirm().
		Title(fmt.Sprintf("Use the arm on %s?", b.port)).
		Description("The arm that just wiggled").
		Affirmative("Yes").
		Negative("Skip").
		Value(&use))
	return use
}

// calibrateServos records the raw range of every joint while the user moves
// the arm by hand.
func calibrateServos(port string, found []feetech.FoundServo) robot.ServoCalibration {
	bus, err := openBus(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to arm: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	servoMap := make(map[int]*feetech.Servo)
	for _, s := range found {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Disable all servos so user can move arm freely
	ctx := context.Background()
	for _, servo := range servoMap {
		servo.Disable(ctx)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println()

	joints := robot.AllJoints()
	cur := make(map[robot.JointName]int)
	lo := make(map[robot.JointName]int)
	hi := make(map[robot.JointName]int)
	for i, name := range joints {
		pos, _ := servoMap[i+1].Position(ctx)
		cur[name], lo[name], hi[name] = pos, pos, pos
	}

	model := calibrationModel{joints: joints, servoMap: servoMap, cur: cur, lo: lo, hi: hi}
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running calibration: %v\n", err)
		os.Exit(1)
	}
	cm := finalModel.(calibrationModel)

	cal := make(robot.ServoCalibration, len(joints))
	for i, name := range joints {
		cal[name] = robot.MotorCalibration{
			ID:       i + 1,
			RangeMin: cm.lo[name],
			RangeMax: cm.hi[name],
		}
	}

	fmt.Println()
	fmt.Println("Servos calibrated.")
	return cal
}

// Calibration TUI model
type calibrationModel struct {
	joints   []robot.JointName
	servoMap map[int]*feetech.Servo
	cur      map[robot.JointName]int
	lo       map[robot.JointName]int
	hi       map[robot.JointName]int
	quitting bool
}

type tickMsg time.Time

func calibrationTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return calibrationTick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, name := range m.joints {
			pos, err := m.servoMap[i+1].Position(ctx)
			if err != nil {
				continue
			}
			m.observe(name, pos)
		}
		return m, calibrationTick()
	}

	return m, nil
}

func (m calibrationModel) observe(name robot.JointName, pos int) {
	m.cur[name] = pos
	m.lo[name] = min(m.lo[name], pos)
	m.hi[name] = max(m.hi[name], pos)
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableJointStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.joints))
	ranges := make([]int, 0, len(m.joints))
	for _, name := range m.joints {
		span := m.hi[name] - m.lo[name]
		ranges = append(ranges, span)
		rows = append(rows, []string{
			string(name),
			fmt.Sprintf("%d", m.cur[name]),
			fmt.Sprintf("%d", m.lo[name]),
			fmt.Sprintf("%d", m.hi[name]),
			fmt.Sprintf("%d", span),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableJointStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
