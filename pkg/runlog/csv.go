package runlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gwillem/visiontwin/pkg/joint"
	"github.com/gwillem/visiontwin/pkg/vision"
)

// DefaultFlushEvery is how many rows are buffered before the CSV is flushed.
const DefaultFlushEvery = 30

// Header is the column layout of run CSV files.
var Header = []string{
	"t", "strategy", "source", "mode",
	"target_a1", "target_a2", "target_a3",
	"actual_a1", "actual_a2", "actual_a3",
	"err_a1", "err_a2", "err_a3",
	"dx", "dy",
}

// CSV writes records as comma separated rows.
type CSV struct {
	// FlushEvery rows are buffered between flushes.
	FlushEvery int

	w      *csv.Writer
	closer io.Closer
	path   string
	n      int
}

// NewCSV writes the header to w and returns a recorder appending to it.
// If w is an io.Closer it is closed by Close.
func NewCSV(w io.Writer) (*CSV, error) {
	c := &CSV{FlushEvery: DefaultFlushEvery, w: csv.NewWriter(w)}
	if cl, ok := w.(io.Closer); ok {
		c.closer = cl
	}
	if err := c.w.Write(Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return c, nil
}

// FileName returns the run file name for a run started at t.
func FileName(t time.Time) string {
	return "run_" + t.Format("20060102_150405") + ".csv"
}

// CreateCSV creates dir if needed and starts a new run file in it.
func CreateCSV(dir string, now time.Time) (*CSV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create run log: %w", err)
	}
	c, err := NewCSV(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	c.path = path
	return c, nil
}

// Path returns the file written to, empty when not file backed.
func (c *CSV) Path() string {
	return c.path
}

// Record appends one row.
func (c *CSV) Record(r Record) error {
	if err := c.w.Write(row(r)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	c.n++
	if c.FlushEvery > 0 && c.n%c.FlushEvery == 0 {
		c.w.Flush()
		if err := c.w.Error(); err != nil {
			return fmt.Errorf("flush run log: %w", err)
		}
	}
	return nil
}

// Rows returns the number of records written.
func (c *CSV) Rows() int {
	return c.n
}

// Close flushes buffered rows and closes the underlying writer.
func (c *CSV) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		err = errors.Join(err, c.closer.Close())
	}
	return err
}

func row(r Record) []string {
	e := r.Error()
	out := make([]string, 0, len(Header))
	out = append(out,
		strconv.FormatInt(r.Time.Unix(), 10),
		r.Strategy, r.Source, r.Mode,
	)
	for _, v := range [...]float64{
		r.Target.A1, r.Target.A2, r.Target.A3,
		r.Actual.A1, r.Actual.A2, r.Actual.A3,
		e.A1, e.A2, e.A3,
	} {
		out = append(out, formatFloat(v))
	}
	if r.Smoothed != nil {
		out = append(out,
			strconv.Itoa(int(r.Smoothed.X)),
			strconv.Itoa(int(r.Smoothed.Y)),
		)
	} else {
		out = append(out, "", "")
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadCSV parses a run log. Columns are looked up by name; the target and
// actual columns are required, the rest are optional.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range []string{"target_a1", "target_a2", "target_a3", "actual_a1", "actual_a2", "actual_a3"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
	}

	var recs []Record
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(fields) {
				return ""
			}
			return fields[i]
		}
		num := func(name string) (float64, error) {
			v, err := strconv.ParseFloat(get(name), 64)
			if err != nil {
				return 0, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			return v, nil
		}

		var rec Record
		var vals [6]float64
		for i, name := range []string{"target_a1", "target_a2", "target_a3", "actual_a1", "actual_a2", "actual_a3"} {
			if vals[i], err = num(name); err != nil {
				return nil, err
			}
		}
		rec.Target = joint.Angles{A1: vals[0], A2: vals[1], A3: vals[2]}
		rec.Actual = joint.Angles{A1: vals[3], A2: vals[4], A3: vals[5]}
		if ts, err := strconv.ParseInt(get("t"), 10, 64); err == nil {
			rec.Time = time.Unix(ts, 0)
		}
		rec.Strategy = get("strategy")
		rec.Source = get("source")
		rec.Mode = get("mode")
		dx, errX := strconv.ParseFloat(get("dx"), 64)
		dy, errY := strconv.ParseFloat(get("dy"), 64)
		if errX == nil && errY == nil {
			rec.Smoothed = &vision.Centroid{X: dx, Y: dy}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ReadCSVFile parses the run log at path.
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// LatestCSV returns the most recently modified run file in dir.
func LatestCSV(dir string) (string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "run_*.csv"))
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no run_*.csv found under %s", dir)
	}
	type entry struct {
		path string
		mod  time.Time
	}
	entries := make([]entry, 0, len(files))
	for _, f := range files {
		st, err := os.Stat(f)
		if err != nil {
			continue
		}
		entries = append(entries, entry{f, st.ModTime()})
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no readable run file under %s", dir)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].mod.After(entries[j].mod) })
	return entries[0].path, nil
}

// JointStats summarises the tracking error of one joint.
type JointStats struct {
	MAE    float64
	MaxAbs float64
}

// Summarize returns the mean and maximum absolute error per joint.
func Summarize(recs []Record) [3]JointStats {
	var out [3]JointStats
	if len(recs) == 0 {
		return out
	}
	for _, r := range recs {
		for i, e := range r.Error().Slice() {
			abs := math.Abs(e)
			out[i].MAE += abs
			out[i].MaxAbs = math.Max(out[i].MaxAbs, abs)
		}
	}
	for i := range out {
		out[i].MAE /= float64(len(recs))
	}
	return out
}
