package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"visiontwin.json" description:"Configuration file"`

	Run   RunCommand   `command:"run" description:"Track the camera target and drive the arm"`
	Setup SetupCommand `command:"setup" description:"Pick the serial port and calibrate servos"`
	Info  InfoCommand  `command:"info" description:"Show feedback from the arm controller"`
	Plot  PlotCommand  `command:"plot" description:"Plot target vs actual from a saved run log"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "visiontwin - camera driven teleoperation for a 3-axis arm"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
