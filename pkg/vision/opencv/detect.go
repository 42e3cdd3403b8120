package opencv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/gwillem/visiontwin/pkg/vision"
)

// MotionDetector finds the largest moving blob by differencing consecutive
// frames. It keeps the previous frame and must not be shared.
type MotionDetector struct {
	// DiffThresh is the per-pixel gray level change counted as motion.
	DiffThresh float64
	// MinArea is the smallest blob, in full resolution pixels, reported.
	MinArea float64
	// Downscale shrinks frames before differencing. 1 disables it.
	Downscale float64

	prev    gocv.Mat
	hasPrev bool
}

// NewMotionDetector creates a detector; zero values take the defaults.
func NewMotionDetector(thresh, minArea, downscale float64) *MotionDetector {
	if thresh <= 0 {
		thresh = 25
	}
	if minArea <= 0 {
		minArea = 900
	}
	if downscale <= 0 || downscale > 1 {
		downscale = 0.5
	}
	return &MotionDetector{DiffThresh: thresh, MinArea: minArea, Downscale: downscale, prev: gocv.NewMat()}
}

// Detect returns the centre of the largest moving blob in a BGR frame, in
// the frame's own coordinates. The first frame only primes the detector.
func (m *MotionDetector) Detect(frame gocv.Mat) *vision.Centroid {
	if frame.Empty() {
		return nil
	}

	small := gocv.NewMat()
	defer small.Close()
	if m.Downscale < 1 {
		sz := image.Pt(
			max(1, int(float64(frame.Cols())*m.Downscale)),
			max(1, int(float64(frame.Rows())*m.Downscale)),
		)
		gocv.Resize(frame, &small, sz, 0, 0, gocv.InterpolationArea)
	} else {
		frame.CopyTo(&small)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(gray, &gray, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	if !m.hasPrev || m.prev.Rows() != gray.Rows() || m.prev.Cols() != gray.Cols() {
		gray.CopyTo(&m.prev)
		m.hasPrev = true
		return nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(m.prev, gray, &diff)
	gray.CopyTo(&m.prev)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, float32(m.DiffThresh), 255, gocv.ThresholdBinary)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	gocv.Dilate(mask, &mask, kernel)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best, bestArea := -1, 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			best, bestArea = i, area
		}
	}
	scale := m.Downscale
	if best < 0 || bestArea/(scale*scale) < m.MinArea {
		return nil
	}

	r := gocv.BoundingRect(contours.At(best))
	return &vision.Centroid{
		X: (float64(r.Min.X) + float64(r.Dx())/2) / scale,
		Y: (float64(r.Min.Y) + float64(r.Dy())/2) / scale,
	}
}

// Close releases the previous frame.
func (m *MotionDetector) Close() error {
	return m.prev.Close()
}

type hsvRange struct {
	lo, hi gocv.Scalar
}

// MarkerDetector finds the centroid of a coloured marker.
type MarkerDetector struct {
	ranges []hsvRange
	// MinPixels is the smallest mask area accepted as a marker.
	MinPixels float64
}

// NewMarkerDetector supports "green" and "red".
func NewMarkerDetector(color string) (*MarkerDetector, error) {
	d := &MarkerDetector{MinPixels: 50}
	switch color {
	case "green", "":
		d.ranges = []hsvRange{{gocv.NewScalar(35, 80, 60, 0), gocv.NewScalar(85, 255, 255, 0)}}
	case "red":
		// Red wraps around the hue axis.
		d.ranges = []hsvRange{
			{gocv.NewScalar(0, 120, 70, 0), gocv.NewScalar(10, 255, 255, 0)},
			{gocv.NewScalar(170, 120, 70, 0), gocv.NewScalar(180, 255, 255, 0)},
		}
	default:
		return nil, fmt.Errorf("unsupported marker color %q", color)
	}
	return d, nil
}

// Detect returns the marker centroid in a BGR frame, nil if not visible.
func (d *MarkerDetector) Detect(frame gocv.Mat) *vision.Centroid {
	if frame.Empty() {
		return nil
	}
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	part := gocv.NewMat()
	defer part.Close()
	for i, r := range d.ranges {
		if i == 0 {
			gocv.InRangeWithScalar(hsv, r.lo, r.hi, &mask)
			continue
		}
		gocv.InRangeWithScalar(hsv, r.lo, r.hi, &part)
		gocv.BitwiseOr(mask, part, &mask)
	}

	mom := gocv.Moments(mask, true)
	m00 := mom["m00"]
	if m00 < d.MinPixels {
		return nil
	}
	return &vision.Centroid{X: mom["m10"] / m00, Y: mom["m01"] / m00}
}
