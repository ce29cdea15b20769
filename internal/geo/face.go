package geo

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/adamanr/hcm_gateway/internal/config"
	"github.com/adamanr/hcm_gateway/internal/entity"
)

var (
	ErrNoObservations = errors.New("no face observations")
	ErrFaceNotHeld    = errors.New("face was not held in frame long enough")
)

// FaceGate decides whether a stream of face-detector frames shows one
// centred, well-sized face for long enough. It does no identity matching.
type FaceGate struct {
	HoldDuration    time.Duration
	MaxFrameGap     time.Duration
	CenterTolerance float64
	MinFaceRatio    float64
	MaxFaceRatio    float64
}

func NewFaceGate(cfg *config.Config) FaceGate {
	return FaceGate{
		HoldDuration:    cfg.Attendance.HoldDuration,
		MaxFrameGap:     cfg.Attendance.MaxFrameGap,
		CenterTolerance: cfg.Attendance.CenterTolerance,
		MinFaceRatio:    cfg.Attendance.MinFaceRatio,
		MaxFaceRatio:    cfg.Attendance.MaxFaceRatio,
	}
}

// FrameValid reports whether a single frame has exactly one face that is
// centred and sized within bounds.
func (g FaceGate) FrameValid(o entity.FaceObservation) bool {
	if len(o.Faces) != 1 || o.FrameWidth <= 0 || o.FrameHeight <= 0 {
		return false
	}

	face := o.Faces[0]
	cx := (face.X + face.Width/2) / o.FrameWidth
	cy := (face.Y + face.Height/2) / o.FrameHeight
	if math.Abs(cx-0.5) > g.CenterTolerance || math.Abs(cy-0.5) > g.CenterTolerance {
		return false
	}

	ratio := face.Width / o.FrameWidth

	return ratio >= g.MinFaceRatio && ratio <= g.MaxFaceRatio
}

// Verify returns the longest continuous run of valid frames. The run must
// span at least HoldDuration with no two frames further apart than
// MaxFrameGap.
func (g FaceGate) Verify(observations []entity.FaceObservation) (time.Duration, error) {
	if len(observations) == 0 {
		return 0, ErrNoObservations
	}

	frames := make([]entity.FaceObservation, len(observations))
	copy(frames, observations)
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].At.Before(frames[j].At)
	})

	var (
		longest  time.Duration
		runStart time.Time
		prev     time.Time
		inRun    bool
	)

	for _, f := range frames {
		if !g.FrameValid(f) {
			inRun = false
			continue
		}

		if !inRun || f.At.Sub(prev) > g.MaxFrameGap {
			runStart = f.At
			inRun = true
		}
		prev = f.At

		if held := prev.Sub(runStart); held > longest {
			longest = held
		}
	}

	if longest < g.HoldDuration {
		return longest, ErrFaceNotHeld
	}

	return longest, nil
}
