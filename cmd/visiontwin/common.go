package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/gwillem/visiontwin/pkg/link"
	"github.com/gwillem/visiontwin/pkg/robot"
)

// loadConfig reads the configuration file, falling back to the defaults
// when it does not exist yet.
func loadConfig() (*robot.Config, error) {
	if _, err := os.Stat(opts.Config); errors.Is(err, fs.ErrNotExist) {
		cfg := robot.DefaultConfig()
		return &cfg, nil
	}
	return robot.LoadConfigFrom(opts.Config)
}

// openPort opens the controller link described by sc.
func openPort(sc robot.SerialConfig) (link.Port, error) {
	var opener link.Opener = link.OpenSerial
	switch {
	case sc.Port == link.SimName:
		opener = link.OpenSimulator
	case sc.Driver == robot.DriverFeetech:
		opener = robot.ArmOpener(sc.Servos)
	}
	return opener(sc.Port, sc.PortOptions)
}
