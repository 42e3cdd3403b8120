package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/link"
)

type InfoCommand struct {
	Port     string        `short:"p" long:"port" description:"Serial port, or 'sim' for the simulated controller"`
	Duration time.Duration `short:"d" long:"duration" default:"2s" description:"How long to listen for feedback"`
	Home     bool          `long:"home" description:"Send the home pose before listening"`
}

func (c *InfoCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", opts.Config, err)
		os.Exit(1)
	}
	if c.Port != "" {
		cfg.Serial.Port = c.Port
	}

	fmt.Println(headerStyle.Render("visiontwin Info"))
	fmt.Printf("Port: %s  Driver: %s  Baud: %d\n", cfg.Serial.Port, cfg.Serial.Driver, cfg.Serial.BaudRate)
	fmt.Println()

	port, err := openPort(cfg.Serial)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", cfg.Serial.Port, err)
		os.Exit(1)
	}
	defer port.Close()

	if c.Home {
		home := joint.Home()
		if link.SendTarget(port, home) {
			fmt.Printf("Sent %s", link.EncodeTarget(home))
		}
	}

	timeout := time.Duration(cfg.FeedbackTimeoutSec * float64(time.Second))
	monitor := link.NewMonitor(true, true, timeout)
	var framer link.Framer
	var last joint.Angles
	samples, malformed := 0, 0

	start := time.Now()
	for time.Since(start) < c.Duration {
		data, err := port.ReadAvailable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			break
		}
		for _, line := range framer.Feed(data) {
			a, ok := link.DecodeFeedback(line)
			if !ok {
				malformed++
				continue
			}
			if monitor.Observe(time.Now()) {
				last = a
				samples++
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	state := monitor.State(time.Now())
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(state.Label())
	fmt.Printf("Feedback samples: %d  Malformed lines: %d  Dropped bytes: %d\n", samples, malformed, framer.Dropped())
	if samples == 0 {
		fmt.Println("No feedback received.")
		return nil
	}

	fmt.Printf("Last feedback received %s ago\n", time.Since(monitor.LastFeedback()).Round(time.Millisecond))
	fmt.Printf("  a1 (base):     %6.1f°\n", last.A1)
	fmt.Printf("  a2 (shoulder): %6.1f°\n", last.A2)
	fmt.Printf("  a3 (elbow):    %6.1f°\n", last.A3)
	return nil
}
