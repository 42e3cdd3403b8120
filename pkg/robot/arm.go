package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/link"
)

// Arm drives STS servos directly and speaks the line protocol towards the
// control loop: T commands become servo positions and servo reads come back
// as F feedback lines.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration ServoCalibration

	// PollInterval is the minimum time between servo reads.
	PollInterval time.Duration
	// IOTimeout bounds each bus transaction.
	IOTimeout time.Duration

	lastPoll time.Time
}

// NewArm opens the servo bus on port and enables torque.
func NewArm(port string, baud int, cal ServoCalibration) (*Arm, error) {
	if len(cal) == 0 {
		cal = DefaultServoCalibration()
	}
	if baud <= 0 {
		baud = 1_000_000
	}

	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  20 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	// Create servo group from calibration IDs
	group := feetech.NewServoGroupByIDs(bus, cal.MotorIDs()...)

	a := &Arm{
		bus:          bus,
		group:        group,
		calibration:  cal,
		PollInterval: 50 * time.Millisecond,
		IOTimeout:    30 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Enable(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable torque: %w", err)
	}
	return a, nil
}

// ArmOpener returns a link.Opener that opens an Arm with cal. The baud rate
// of the options is used for the servo bus.
func ArmOpener(cal ServoCalibration) link.Opener {
	return func(name string, opts link.PortOptions) (link.Port, error) {
		return NewArm(name, opts.BaudRate, cal)
	}
}

// Close disables torque and closes the bus connection.
func (a *Arm) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Disable(ctx); err != nil {
		link.Logf("robot: disable torque: %v", err)
	}
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// ReadAngles reads current joint angles from all servos.
func (a *Arm) ReadAngles(ctx context.Context) (joint.Angles, error) {
	rawPositions, err := a.group.Positions(ctx)
	if err != nil {
		return joint.Angles{}, fmt.Errorf("read positions: %w", err)
	}

	degrees := make(map[JointName]float64, len(rawPositions))
	for id, raw := range rawPositions {
		name, cal, ok := a.calibration.ByID(id)
		if !ok {
			continue
		}
		degrees[name] = cal.ToDegrees(raw)
	}
	for _, name := range AllJoints() {
		if _, ok := degrees[name]; !ok {
			return joint.Angles{}, fmt.Errorf("no position for %s", name)
		}
	}
	return anglesFromMap(degrees), nil
}

// WriteAngles writes target angles to all servos.
func (a *Arm) WriteAngles(ctx context.Context, angles joint.Angles) error {
	rawPositions := make(feetech.PositionMap, len(a.calibration))
	for name, deg := range anglesToMap(angles) {
		cal, ok := a.calibration[name]
		if !ok {
			continue
		}
		rawPositions[cal.ID] = cal.FromDegrees(deg)
	}

	if err := a.group.SetPositions(ctx, rawPositions); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

// ReadAvailable polls the servos at most once per PollInterval and reports
// their angles as a feedback line.
func (a *Arm) ReadAvailable() ([]byte, error) {
	now := time.Now()
	if now.Sub(a.lastPoll) < a.PollInterval {
		return nil, nil
	}
	a.lastPoll = now

	ctx, cancel := context.WithTimeout(context.Background(), a.IOTimeout)
	defer cancel()
	angles, err := a.ReadAngles(ctx)
	if err != nil {
		return nil, err
	}
	return link.EncodeFeedback(angles), nil
}

// WriteLine moves the servos for a T command. Other lines are ignored.
func (a *Arm) WriteLine(line []byte) error {
	angles, ok := link.DecodeTarget(string(line))
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.IOTimeout)
	defer cancel()
	return a.WriteAngles(ctx, angles)
}

func anglesFromMap(m map[JointName]float64) joint.Angles {
	return joint.Angles{A1: m[Base], A2: m[Shoulder], A3: m[Elbow]}
}

func anglesToMap(a joint.Angles) map[JointName]float64 {
	return map[JointName]float64{Base: a.A1, Shoulder: a.A2, Elbow: a.A3}
}
