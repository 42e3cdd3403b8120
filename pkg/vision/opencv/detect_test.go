package opencv

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func blankFrame(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 270, 360, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMarkerDetector_Green(t *testing.T) {
	d, err := NewMarkerDetector("green")
	require.NoError(t, err)

	frame := blankFrame(t)
	assert.Nil(t, d.Detect(frame))

	gocv.Rectangle(&frame, image.Rect(100, 50, 140, 90), color.RGBA{G: 255, A: 255}, -1)
	c := d.Detect(frame)
	require.NotNil(t, c)
	assert.InDelta(t, 120, c.X, 1)
	assert.InDelta(t, 70, c.Y, 1)
}

func TestMarkerDetector_Red(t *testing.T) {
	d, err := NewMarkerDetector("red")
	require.NoError(t, err)

	frame := blankFrame(t)
	gocv.Rectangle(&frame, image.Rect(300, 200, 340, 240), color.RGBA{R: 255, A: 255}, -1)
	c := d.Detect(frame)
	require.NotNil(t, c)
	assert.InDelta(t, 320, c.X, 1)
	assert.InDelta(t, 220, c.Y, 1)

	green := blankFrame(t)
	gocv.Rectangle(&green, image.Rect(300, 200, 340, 240), color.RGBA{G: 255, A: 255}, -1)
	assert.Nil(t, d.Detect(green), "green is not red")
}

func TestMarkerDetector_UnknownColor(t *testing.T) {
	_, err := NewMarkerDetector("blue")
	assert.Error(t, err)
}

func TestMotionDetector(t *testing.T) {
	m := NewMotionDetector(25, 900, 0.5)
	defer m.Close()

	assert.Nil(t, m.Detect(blankFrame(t)), "first frame primes")
	assert.Nil(t, m.Detect(blankFrame(t)), "no change, no motion")

	moved := blankFrame(t)
	gocv.Rectangle(&moved, image.Rect(200, 100, 260, 160), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	c := m.Detect(moved)
	require.NotNil(t, c)
	assert.InDelta(t, 230, c.X, 4)
	assert.InDelta(t, 130, c.Y, 4)
}

func TestMotionDetector_IgnoresSmallBlobs(t *testing.T) {
	m := NewMotionDetector(25, 900, 0.5)
	defer m.Close()

	m.Detect(blankFrame(t))
	speck := blankFrame(t)
	gocv.Rectangle(&speck, image.Rect(10, 10, 18, 18), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	assert.Nil(t, m.Detect(speck))
}

func TestOpen_InvalidResolution(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
