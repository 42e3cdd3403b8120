package main

import (
	"fmt"
	"os"

	"github.com/gwillem/visiontwin/pkg/robot"
	"github.com/gwillem/visiontwin/pkg/runlog"
)

type PlotCommand struct {
	Log    string `short:"l" long:"log" description:"Run log CSV (default: newest in the log directory)"`
	SQLite bool   `long:"sqlite" description:"Read from the SQLite run database instead of CSV"`
	Run    string `long:"run" description:"Run id in the SQLite database (default: newest run)"`
	Out    string `short:"o" long:"out" default:"validation_out" description:"Output directory for the PNG plots"`
}

func (c *PlotCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", opts.Config, err)
		os.Exit(1)
	}

	recs, source, err := c.load(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading run log: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Using log: %s (%d samples)\n", source, len(recs))

	files, err := runlog.PlotPNG(recs, c.Out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error plotting: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("Tracking error"))
	for i, s := range runlog.Summarize(recs) {
		fmt.Printf("  a%d  MAE=%.3f  MaxAbs=%.3f\n", i+1, s.MAE, s.MaxAbs)
	}

	fmt.Println()
	fmt.Printf("Saved %d plots to %s\n", len(files), c.Out)
	for _, f := range files {
		fmt.Println(dimStyle.Render("  " + f))
	}
	return nil
}

func (c *PlotCommand) load(cfg *robot.Config) ([]runlog.Record, string, error) {
	if c.SQLite {
		path := runlog.SQLitePath(cfg.Log.Dir)
		recs, err := runlog.ReadSQLite(path, c.Run)
		return recs, path, err
	}

	path := c.Log
	if path == "" {
		latest, err := runlog.LatestCSV(cfg.Log.Dir)
		if err != nil {
			return nil, "", err
		}
		path = latest
	}
	recs, err := runlog.ReadCSVFile(path)
	return recs, path, err
}
