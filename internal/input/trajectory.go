// File: internal/input/trajectory.go
package input

import (
	"image"
	"math"
	"math/rand"
	"time"

	"github.com/aquilax/go-perlin"

	"github.com/xkilldash9x/deskops/internal/config"
)

// PathPoint is one pointer position on a planned trajectory, with the pause
// to observe before dispatching the next point.
type PathPoint struct {
	X, Y  float64
	Pause time.Duration
}

// Planner synthesizes humanized pointer trajectories: Fitts's-law movement
// durations, a cubic Bezier path with randomized control points, eased
// timing, and low-amplitude Perlin drift. A straight constant-speed line is
// both unnatural and, on some targets, a bot tell.
type Planner struct {
	cfg    config.TrajectoryConfig
	rng    *rand.Rand
	noiseX *perlin.Perlin
	noiseY *perlin.Perlin
}

// NewPlanner seeds a trajectory planner. A zeroed config disables planning;
// Plan then returns the bare endpoint.
func NewPlanner(cfg config.TrajectoryConfig, seed int64) *Planner {
	return &Planner{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		noiseX: perlin.NewPerlin(2, 2, 3, seed),
		noiseY: perlin.NewPerlin(2, 2, 3, seed+1),
	}
}

// assumed target width in pixels for the Fitts index of difficulty.
const fittsTargetWidth = 30.0

// duration models movement time as MT = a + b*log2(1 + D/W), with ±15%
// randomization so repeated moves do not share an exact timing signature.
func (p *Planner) duration(distance float64) time.Duration {
	id := math.Log2(1.0 + distance/fittsTargetWidth)
	mt := p.cfg.FittsAMS + p.cfg.FittsBMS*id
	mt += mt * (p.rng.Float64()*0.3 - 0.15)
	if mt < 0 {
		mt = 0
	}
	return time.Duration(mt) * time.Millisecond
}

// Plan returns the pointer path from start to end. The final point is always
// exactly the target: noise applies to the journey, never the destination.
func (p *Planner) Plan(start, end image.Point) []PathPoint {
	if !p.cfg.Enabled {
		return []PathPoint{{X: float64(end.X), Y: float64(end.Y)}}
	}

	sx, sy := float64(start.X), float64(start.Y)
	ex, ey := float64(end.X), float64(end.Y)
	dist := math.Hypot(ex-sx, ey-sy)
	if dist < 1.0 {
		return []PathPoint{{X: ex, Y: ey}}
	}

	total := p.duration(dist)
	steps := int(total.Seconds() * 100)
	if steps < 2 {
		steps = 2
	}

	// Control points sit at 1/3 and 2/3 along the straight line, displaced
	// perpendicular to it by a random fraction of the distance.
	perpX, perpY := -(ey-sy)/dist, (ex-sx)/dist
	off1 := (p.rng.Float64() - 0.5) * dist * 0.2
	off2 := (p.rng.Float64() - 0.5) * dist * 0.2
	c1x := sx + (ex-sx)/3 + perpX*off1
	c1y := sy + (ey-sy)/3 + perpY*off1
	c2x := sx + (ex-sx)*2/3 + perpX*off2
	c2y := sy + (ey-sy)*2/3 + perpY*off2

	path := make([]PathPoint, steps)
	prevT := 0.0
	for i := 0; i < steps; i++ {
		t := easeInOutCubic(float64(i) / float64(steps-1))

		omt := 1 - t
		x := omt*omt*omt*sx + 3*omt*omt*t*c1x + 3*omt*t*t*c2x + t*t*t*ex
		y := omt*omt*omt*sy + 3*omt*omt*t*c1y + 3*omt*t*t*c2y + t*t*t*ey

		if i > 0 && i < steps-1 && p.cfg.JitterPx > 0 {
			x += p.noiseX.Noise1D(t*0.8) * p.cfg.JitterPx
			y += p.noiseY.Noise1D(t*0.8) * p.cfg.JitterPx
		}

		path[i] = PathPoint{
			X:     x,
			Y:     y,
			Pause: time.Duration((t - prevT) * float64(total)),
		}
		prevT = t
	}
	// Land exactly on the target.
	path[steps-1].X, path[steps-1].Y = ex, ey
	return path
}

func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}
