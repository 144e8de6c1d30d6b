// File: internal/coords/resolve.go
package coords

import (
	"math"
	"strings"

	"github.com/xkilldash9x/deskops/api/schemas"
)

// System enumerates the coordinate systems a model may answer in. One
// conversion per variant lives in convert; nothing else switches on the
// string value.
type System string

const (
	SystemScreenAbsolute     System = "screen_absolute"
	SystemUnitNormalized     System = "unit_normalized"
	SystemNormalized1000     System = "normalized_1000"
	SystemScreenBBox         System = "screen_bbox"
	SystemNormalized1000BBox System = "normalized_1000_bbox"
)

// bboxNormalizedMax classifies a bounding box as normalized-to-1000 when all
// four values fit within it. The 0.5 slack tolerates off-by-one model output.
const bboxNormalizedMax = 1000.5

// Target is a fully resolved screen position with provenance. X and Y are nil
// only when no usable coordinate could be extracted; callers must treat that
// as a skip condition, never as a click at the origin.
type Target struct {
	X, Y    *int
	System  System
	Clamped bool
	Meta    *schemas.StepMeta
}

// Usable reports whether the target carries a real point.
func (t Target) Usable() bool {
	return t.X != nil && t.Y != nil
}

// Point returns the resolved pair; only meaningful when Usable.
func (t Target) Point() (int, int) {
	if !t.Usable() {
		return 0, 0
	}
	return *t.X, *t.Y
}

// Resolve turns a raw coordinate source into clamped absolute screen pixels.
// The steps run in a fixed order:
//
//  1. A bounding box, if present, is classified (normalized-1000 when every
//     value fits in ±1000.5, absolute otherwise) and its center becomes the
//     source pair, superseding direct x/y.
//  2. An explicit hint overrides the default system, except when the box
//     already established one.
//  3. Without hint or box, a heuristic fires: both components in [0,1] means
//     unit-normalized, both in [0,1000.5] means normalized-to-1000.
//  4. The pair is converted against the true screen dimensions (not the
//     possibly-downscaled model image), rounded half away from zero, and
//     clamped to [0, dim-1]. Non-positive screen dimensions resolve to no
//     point at all: conversion needs a real denominator.
//
// The heuristic is inherently ambiguous: a legitimately small absolute
// coordinate such as (5, 5) on a large screen reads as unit- or
// 1000-normalized. Models that mean absolute pixels near the origin must say
// so with a coord_system hint.
func Resolve(src Source, screen, img schemas.Dimensions) Target {
	system := SystemScreenAbsolute
	systemFromBox := false

	// Step 1: bounding box center supersedes the direct pair.
	var boxX, boxY *float64
	if len(src.BBox) == 4 {
		cx := (src.BBox[0] + src.BBox[2]) / 2.0
		cy := (src.BBox[1] + src.BBox[3]) / 2.0
		boxX, boxY = &cx, &cy
		system = SystemScreenBBox
		if maxAbs(src.BBox) <= bboxNormalizedMax {
			system = SystemNormalized1000BBox
		}
		systemFromBox = true
	}

	// Step 2: explicit hint, advisory only when a box already decided.
	if !systemFromBox {
		if hinted, ok := parseHint(src.Hint); ok {
			system = hinted
		}
	}

	// Step 3: choose the source pair.
	srcX, srcY := src.X, src.Y
	if boxX != nil && boxY != nil {
		srcX, srcY = boxX, boxY
	}

	// Step 4: heuristic detection, only when nothing else decided.
	if srcX != nil && srcY != nil && system == SystemScreenAbsolute {
		sx, sy := *srcX, *srcY
		switch {
		case sx >= 0 && sx <= 1 && sy >= 0 && sy <= 1:
			system = SystemUnitNormalized
		case sx >= 0 && sx <= bboxNormalizedMax && sy >= 0 && sy <= bboxNormalizedMax:
			system = SystemNormalized1000
		}
	}

	// Unknown screen dimensions make every conversion meaningless; the pair
	// stays nil so callers skip rather than click a fabricated point.
	target := Target{System: system}
	var finalX, finalY *int
	if srcX != nil && srcY != nil && screen.Width > 0 && screen.Height > 0 {
		fx := clamp(convert(system, *srcX, screen.Width), screen.Width)
		fy := clamp(convert(system, *srcY, screen.Height), screen.Height)
		target.Clamped = fx.clamped || fy.clamped
		finalX, finalY = &fx.value, &fy.value
	}
	target.X, target.Y = finalX, finalY

	target.Meta = &schemas.StepMeta{
		Screen: &schemas.Dimensions{Width: screen.Width, Height: screen.Height},
		Image:  &schemas.Dimensions{Width: img.Width, Height: img.Height},
		Coords: &schemas.CoordTrace{
			Raw:   []*float64{src.X, src.Y},
			Final: []*int{finalX, finalY},
		},
		BBox: src.BBox,
		Scaling: &schemas.ScalingTrace{
			Mode:    string(system),
			Applied: system != SystemScreenAbsolute,
		},
		Clamped: target.Clamped,
		Heuristics: &schemas.HeuristicFlags{
			RawExceedsImage: rawExceedsImage(src, img),
		},
	}
	return target
}

// convert maps one component from the given system into absolute pixels,
// rounded half away from zero.
func convert(system System, v float64, dim int) int {
	switch system {
	case SystemNormalized1000, SystemNormalized1000BBox:
		return roundHalfAway(v / 1000.0 * float64(dim))
	case SystemUnitNormalized:
		return roundHalfAway(v * float64(dim))
	default: // screen_absolute, screen_bbox
		return roundHalfAway(v)
	}
}

type clamped struct {
	value   int
	clamped bool
}

func clamp(v, dim int) clamped {
	switch {
	case v < 0:
		return clamped{0, true}
	case v > dim-1:
		return clamped{dim - 1, true}
	}
	return clamped{v, false}
}

// hintAliases maps punctuation-stripped lowercase hints to systems.
var hintAliases = map[string]System{
	"normalized1000": SystemNormalized1000,
	"norm1000":       SystemNormalized1000,
	"n1000":          SystemNormalized1000,
	"1000":           SystemNormalized1000,
	"unitnormalized": SystemUnitNormalized,
	"unit":           SystemUnitNormalized,
	"normalized":     SystemUnitNormalized,
	"norm":           SystemUnitNormalized,
	"01":             SystemUnitNormalized,
}

func parseHint(hint string) (System, bool) {
	if hint == "" {
		return "", false
	}
	canon := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return -1
	}, hint)
	sys, ok := hintAliases[canon]
	return sys, ok
}

// rawExceedsImage flags a raw pair that lies outside the model-visible image,
// a signal the model misreported an absolute value.
func rawExceedsImage(src Source, img schemas.Dimensions) bool {
	if src.X == nil || src.Y == nil || img.Width <= 0 || img.Height <= 0 {
		return false
	}
	return *src.X >= float64(img.Width) || *src.Y >= float64(img.Height)
}

func roundHalfAway(f float64) int {
	return int(math.Round(f))
}

func maxAbs(vs []float64) float64 {
	m := 0.0
	for _, v := range vs {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}
