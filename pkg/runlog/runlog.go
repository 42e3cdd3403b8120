// Package runlog persists one record per control tick so runs can be
// reviewed and plotted afterwards.
package runlog

import (
	"fmt"
	"time"

	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/vision"
)

// Labels written with every record.
const (
	StrategyRaw  = "B0_RAW"
	SourceVision = "VISION"
	SourceIdle   = "IDLE"
)

// Formats accepted by Open.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// Record is the state of one tick.
type Record struct {
	Time     time.Time
	Strategy string
	Source   string
	Mode     string
	Target   joint.Angles
	Actual   joint.Angles
	// Smoothed is the filtered centroid, nil before the first one.
	Smoothed *vision.Centroid
}

// Error returns target minus actual.
func (r Record) Error() joint.Angles {
	return r.Target.Sub(r.Actual)
}

// Recorder appends records. A Record error means the log can no longer be
// trusted.
type Recorder interface {
	Record(r Record) error
	Close() error
}

// Discard is a Recorder that drops everything.
type Discard struct{}

func (Discard) Record(Record) error { return nil }
func (Discard) Close() error        { return nil }

// Open creates a recorder of the given format under dir and returns it
// together with the file it writes to.
func Open(dir, format string, now time.Time) (Recorder, string, error) {
	switch format {
	case FormatCSV, "":
		rec, err := CreateCSV(dir, now)
		if err != nil {
			return nil, "", err
		}
		return rec, rec.Path(), nil
	case FormatSQLite:
		path := SQLitePath(dir)
		rec, err := OpenSQLite(path, now)
		if err != nil {
			return nil, "", err
		}
		return rec, path, nil
	default:
		return nil, "", fmt.Errorf("unknown log format %q", format)
	}
}
