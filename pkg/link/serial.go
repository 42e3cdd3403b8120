package link

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the controller firmware.
const DefaultBaudRate = 115200

// PortOptions describes the serial connection parameters.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits,omitempty"`
	StopBits int    `json:"stop_bits,omitempty"`
	Parity   string `json:"parity,omitempty"`
	// ReadTimeout bounds each poll of the port.
	ReadTimeout time.Duration `json:"-"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	opts.Parity = parity

	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = time.Millisecond
	}
	return opts, nil
}

// SerialMode converts the options into the serial.Mode used to open a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	} else {
		mode.StopBits = serial.OneStopBit
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}

// Opener opens a Port by name.
type Opener func(name string, opts PortOptions) (Port, error)

// SerialPort is a Port backed by a real serial device.
type SerialPort struct {
	port serial.Port
	buf  []byte
}

// OpenSerial opens the serial device at path. Reads poll with a short
// timeout so a silent controller never stalls the caller.
func OpenSerial(path string, opts PortOptions) (Port, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	return &SerialPort{port: port, buf: make([]byte, 256)}, nil
}

// maxReadsPerPoll caps how much one ReadAvailable call drains.
const maxReadsPerPoll = 8

// ReadAvailable drains the bytes already received.
func (p *SerialPort) ReadAvailable() ([]byte, error) {
	var out []byte
	for i := 0; i < maxReadsPerPoll; i++ {
		n, err := p.port.Read(p.buf)
		if err != nil {
			return out, fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			break
		}
		out = append(out, p.buf[:n]...)
		if n < len(p.buf) {
			break
		}
	}
	return out, nil
}

// WriteLine writes line to the device.
func (p *SerialPort) WriteLine(line []byte) error {
	n, err := p.port.Write(line)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if n != len(line) {
		return ErrShortWrite
	}
	return nil
}

// Close closes the device.
func (p *SerialPort) Close() error {
	return p.port.Close()
}

// ListPorts returns the serial ports present on the system, skipping
// Bluetooth pseudo-ports.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	var out []string
	for _, p := range ports {
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
