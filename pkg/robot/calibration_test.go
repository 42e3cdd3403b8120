package robot

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestMotorCalibration_ToDegrees(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, 0},    // min -> 0
		{3000, 180},  // max -> 180
		{2000, 90},   // mid -> 90
		{1500, 45},   // quarter -> 45
		{2500, 135},  // three-quarter -> 135
		{500, 0},     // below range clamps
		{3500, 180},  // above range clamps
	}

	for _, tt := range tests {
		got := cal.ToDegrees(tt.raw)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("ToDegrees(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestMotorCalibration_FromDegrees(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		deg      float64
		expected int
	}{
		{0, 1000},
		{180, 3000},
		{90, 2000},
		{45, 1500},
		{135, 2500},
		{-20, 1000}, // clamped
		{400, 3000}, // clamped
	}

	for _, tt := range tests {
		got := cal.FromDegrees(tt.deg)
		if got != tt.expected {
			t.Errorf("FromDegrees(%f) = %d, want %d", tt.deg, got, tt.expected)
		}
	}
}

func TestMotorCalibration_DriveModeInverts(t *testing.T) {
	cal := MotorCalibration{RangeMin: 1000, RangeMax: 3000, DriveMode: 1}

	if got := cal.FromDegrees(0); got != 3000 {
		t.Errorf("FromDegrees(0) = %d, want 3000", got)
	}
	if got := cal.ToDegrees(3000); math.Abs(got) > 0.001 {
		t.Errorf("ToDegrees(3000) = %f, want 0", got)
	}
}

func TestMotorCalibration_RoundTrip(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 823,
		RangeMax: 3540,
	}

	// Test round-trip: raw -> degrees -> raw
	for raw := cal.RangeMin; raw <= cal.RangeMax; raw += 100 {
		deg := cal.ToDegrees(raw)
		back := cal.FromDegrees(deg)
		if math.Abs(float64(back-raw)) > 1 {
			t.Errorf("Round-trip failed: %d -> %f -> %d", raw, deg, back)
		}
	}
}

func TestServoCalibration_MotorIDs(t *testing.T) {
	cal := ServoCalibration{
		Elbow:    MotorCalibration{ID: 7},
		Base:     MotorCalibration{ID: 5},
		Shoulder: MotorCalibration{ID: 6},
	}

	ids := cal.MotorIDs()
	expected := []int{5, 6, 7}

	if len(ids) != len(expected) {
		t.Fatalf("MotorIDs returned %d IDs, want %d", len(ids), len(expected))
	}

	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("MotorIDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestServoCalibration_ByID(t *testing.T) {
	cal := ServoCalibration{
		Base:  MotorCalibration{ID: 1, RangeMin: 100, RangeMax: 200},
		Elbow: MotorCalibration{ID: 3, RangeMin: 300, RangeMax: 400},
	}

	// Test finding existing ID
	name, mc, ok := cal.ByID(1)
	if !ok {
		t.Fatal("ByID(1) returned false")
	}
	if name != Base {
		t.Errorf("ByID(1) returned name %s, want base", name)
	}
	if mc.RangeMin != 100 {
		t.Errorf("ByID(1) returned wrong calibration: %+v", mc)
	}

	// Test non-existing ID
	_, _, ok = cal.ByID(99)
	if ok {
		t.Error("ByID(99) should return false")
	}
}

func TestLoadServoCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servos.json")
	data := `{"base":{"id":1,"range_min":10,"range_max":20},"elbow":{"id":3,"drive_mode":1}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cal, err := LoadServoCalibration(path)
	if err != nil {
		t.Fatalf("LoadServoCalibration: %v", err)
	}
	if cal[Base].RangeMax != 20 || cal[Elbow].DriveMode != 1 {
		t.Errorf("unexpected calibration: %+v", cal)
	}

	if _, err := LoadServoCalibration(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestDefaultServoCalibration(t *testing.T) {
	cal := DefaultServoCalibration()
	ids := cal.MotorIDs()
	if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Errorf("MotorIDs() = %v, want [1 2 3]", ids)
	}
	if got := cal[Base].FromDegrees(90); got != 2048 {
		t.Errorf("FromDegrees(90) = %d, want 2048", got)
	}
}
