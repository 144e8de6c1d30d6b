// File: internal/coords/resolve_test.go
package coords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/deskops/api/schemas"
)

var testScreens = []schemas.Dimensions{
	{Width: 1920, Height: 1080},
	{Width: 1280, Height: 720},
	{Width: 3840, Height: 2160},
	{Width: 1366, Height: 768},
}

var testImage = schemas.Dimensions{Width: 1280, Height: 720}

func f(v float64) *float64 { return &v }

func resolveArgs(t *testing.T, args map[string]any, screen schemas.Dimensions) Target {
	t.Helper()
	return Resolve(ExtractSource(args), screen, testImage)
}

func TestCenterRoundTripAcrossSystems(t *testing.T) {
	for _, screen := range testScreens {
		wantX, wantY := screen.Width/2, screen.Height/2

		unit := Resolve(Source{X: f(0.5), Y: f(0.5)}, screen, testImage)
		require.True(t, unit.Usable())
		assert.Equal(t, SystemUnitNormalized, unit.System)
		gotX, gotY := unit.Point()
		assert.Equal(t, wantX, gotX, "unit x on %dx%d", screen.Width, screen.Height)
		assert.Equal(t, wantY, gotY)

		norm := Resolve(Source{X: f(500), Y: f(500)}, screen, testImage)
		require.True(t, norm.Usable())
		assert.Equal(t, SystemNormalized1000, norm.System)
		gotX, gotY = norm.Point()
		assert.Equal(t, wantX, gotX)
		assert.Equal(t, wantY, gotY)

		// A normalized-1000 bbox centered on the screen lands on the same
		// point as the direct pair.
		box := Resolve(Source{BBox: []float64{100, 100, 900, 900}}, screen, testImage)
		require.True(t, box.Usable())
		assert.Equal(t, SystemNormalized1000BBox, box.System)
		gotX, gotY = box.Point()
		assert.Equal(t, wantX, gotX)
		assert.Equal(t, wantY, gotY)
	}
}

func TestAbsoluteBBoxCenter(t *testing.T) {
	screen := schemas.Dimensions{Width: 1920, Height: 1080}
	tgt := Resolve(Source{BBox: []float64{480, 270, 1440, 810}}, screen, testImage)
	require.True(t, tgt.Usable())
	assert.Equal(t, SystemScreenBBox, tgt.System)
	x, y := tgt.Point()
	assert.Equal(t, 960, x)
	assert.Equal(t, 540, y)
	assert.False(t, tgt.Clamped)
}

func TestBBoxSupersedesDirectPair(t *testing.T) {
	screen := schemas.Dimensions{Width: 1920, Height: 1080}
	tgt := Resolve(Source{X: f(5), Y: f(5), BBox: []float64{480, 270, 1440, 810}}, screen, testImage)
	x, y := tgt.Point()
	assert.Equal(t, 960, x)
	assert.Equal(t, 540, y)
	// The raw pair is still recorded for audit.
	require.NotNil(t, tgt.Meta.Coords.Raw[0])
	assert.Equal(t, 5.0, *tgt.Meta.Coords.Raw[0])
}

func TestExplicitHintOverridesHeuristic(t *testing.T) {
	screen := schemas.Dimensions{Width: 1920, Height: 1080}
	for _, hint := range []string{"normalized_1000", "normalized-1000", "norm_1000", "n1000", "1000"} {
		tgt := Resolve(Source{X: f(250), Y: f(750), Hint: hint}, screen, testImage)
		require.True(t, tgt.Usable(), "hint %q", hint)
		assert.Equal(t, SystemNormalized1000, tgt.System)
		x, y := tgt.Point()
		assert.Equal(t, 480, x)
		assert.Equal(t, 810, y)
	}
	for _, hint := range []string{"unit_normalized", "unit", "normalized", "norm", "0_1", "[0,1]"} {
		tgt := Resolve(Source{X: f(0.25), Y: f(0.75), Hint: hint}, screen, testImage)
		require.True(t, tgt.Usable(), "hint %q", hint)
		assert.Equal(t, SystemUnitNormalized, tgt.System)
		x, y := tgt.Point()
		assert.Equal(t, 480, x)
		assert.Equal(t, 810, y)
	}
}

func TestHintIsAdvisoryWhenBBoxDecides(t *testing.T) {
	screen := schemas.Dimensions{Width: 1920, Height: 1080}
	// The box classified itself as normalized-1000; a contradictory hint must
	// not re-scale the already-decided box source.
	tgt := Resolve(Source{BBox: []float64{100, 100, 900, 900}, Hint: "unit_normalized"}, screen, testImage)
	assert.Equal(t, SystemNormalized1000BBox, tgt.System)
	x, y := tgt.Point()
	assert.Equal(t, 960, x)
	assert.Equal(t, 540, y)
}

func TestHeuristicDetection(t *testing.T) {
	screen := schemas.Dimensions{Width: 1920, Height: 1080}

	testCases := []struct {
		name   string
		x, y   float64
		system System
	}{
		{"both in unit interval", 0.5, 0.5, SystemUnitNormalized},
		{"both in 1000 range", 500, 500, SystemNormalized1000},
		{"slack above 1000", 1000.4, 1000.4, SystemNormalized1000},
		{"clearly absolute", 1500, 900, SystemScreenAbsolute},
		{"negative stays absolute", -5, 100, SystemScreenAbsolute},
		// Known ambiguity: small absolute coordinates read as normalized.
		// Models that mean pixels near the origin must send a hint.
		{"small absolute misreads as unit", 1, 1, SystemUnitNormalized},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tgt := Resolve(Source{X: f(tc.x), Y: f(tc.y)}, screen, testImage)
			assert.Equal(t, tc.system, tgt.System)
		})
	}
}

func TestClampingToScreenBounds(t *testing.T) {
	for _, screen := range testScreens {
		tgt := Resolve(Source{X: f(1000), Y: f(1000)}, screen, testImage)
		require.True(t, tgt.Usable())
		x, y := tgt.Point()
		assert.Equal(t, screen.Width-1, x)
		assert.Equal(t, screen.Height-1, y)
		assert.True(t, tgt.Clamped, "bottom-right corner must report clamping")
	}

	screen := schemas.Dimensions{Width: 1920, Height: 1080}
	over := Resolve(Source{X: f(5000), Y: f(-20)}, screen, testImage)
	x, y := over.Point()
	assert.Equal(t, 1919, x)
	assert.Equal(t, 0, y)
	assert.True(t, over.Clamped)

	within := Resolve(Source{X: f(1600), Y: f(900)}, screen, testImage)
	assert.False(t, within.Clamped, "in-bounds coordinates are never marked clamped")
	assert.Equal(t, SystemScreenAbsolute, within.System)
}

func TestMissingComponentYieldsNoCoordinate(t *testing.T) {
	screen := schemas.Dimensions{Width: 1920, Height: 1080}

	testCases := []struct {
		name string
		src  Source
	}{
		{"missing y", Source{X: f(100)}},
		{"missing x", Source{Y: f(100)}},
		{"missing both", Source{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tgt := Resolve(tc.src, screen, testImage)
			assert.False(t, tgt.Usable(), "partial pairs must never be guessed")
			assert.Nil(t, tgt.X)
			assert.Nil(t, tgt.Y)
			assert.False(t, tgt.Clamped)
			require.NotNil(t, tgt.Meta)
			assert.Nil(t, tgt.Meta.Coords.Final[0])
			assert.Nil(t, tgt.Meta.Coords.Final[1])
		})
	}
}

func TestMetaDiagnostics(t *testing.T) {
	screen := schemas.Dimensions{Width: 1920, Height: 1080}
	tgt := Resolve(Source{X: f(1500), Y: f(900)}, screen, testImage)

	meta := tgt.Meta
	require.NotNil(t, meta)
	assert.Equal(t, 1920, meta.Screen.Width)
	assert.Equal(t, 1280, meta.Image.Width)
	assert.Equal(t, string(SystemScreenAbsolute), meta.Scaling.Mode)
	assert.False(t, meta.Scaling.Applied)
	// 1500 >= image width 1280: the model likely reported absolute pixels
	// against a screen larger than the image it saw.
	assert.True(t, meta.Heuristics.RawExceedsImage)

	scaled := Resolve(Source{X: f(500), Y: f(500)}, screen, testImage)
	assert.True(t, scaled.Meta.Scaling.Applied)
	assert.False(t, scaled.Meta.Heuristics.RawExceedsImage)
}

func TestExtractSourceShapes(t *testing.T) {
	testCases := []struct {
		name string
		args map[string]any
	}{
		{"direct", map[string]any{"x": 100.0, "y": 200.0}},
		{"center pair", map[string]any{"cx": 100.0, "cy": 200.0}},
		{"coordinates array", map[string]any{"coordinates": []any{100.0, 200.0}}},
		{"point array", map[string]any{"point": []any{100.0, 200.0}}},
		{"stringified numbers", map[string]any{"x": "100", "y": "200"}},
		{"position map", map[string]any{"position": map[string]any{"x": 100.0, "y": 200.0}}},
		{"center map", map[string]any{"center": map[string]any{"x": 100.0, "y": 200.0}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, HasShape(tc.args))
			src := ExtractSource(tc.args)
			require.NotNil(t, src.X)
			require.NotNil(t, src.Y)
			assert.Equal(t, 100.0, *src.X)
			assert.Equal(t, 200.0, *src.Y)
		})
	}

	assert.False(t, HasShape(map[string]any{}))
	assert.False(t, HasShape(map[string]any{"x": 1.0}))
	assert.False(t, HasShape(map[string]any{"coordinates": []any{1.0}}))

	// A len-2 array with a null component has the right shape but resolves
	// to no coordinate; the orchestrator skips it instead of guessing.
	args := map[string]any{"coordinates": []any{100.0, nil}}
	assert.True(t, HasShape(args))
	tgt := resolveArgs(t, args, schemas.Dimensions{Width: 1920, Height: 1080})
	assert.False(t, tgt.Usable())
}

func TestUnknownScreenDimensionsYieldNoCoordinate(t *testing.T) {
	// A capturer that cannot report its size leaves the screen at zero; the
	// pair must stay nil rather than clamp into a fake (-1,-1) click.
	tgt := Resolve(Source{X: f(500), Y: f(500)}, schemas.Dimensions{}, schemas.Dimensions{})
	assert.False(t, tgt.Usable())
	assert.False(t, tgt.Clamped)
	require.NotNil(t, tgt.Meta)
	assert.Equal(t, []*int{nil, nil}, tgt.Meta.Coords.Final)

	partial := Resolve(Source{X: f(0.5), Y: f(0.5)}, schemas.Dimensions{Width: 1280}, schemas.Dimensions{})
	assert.False(t, partial.Usable())
}

func TestBBoxExtraction(t *testing.T) {
	src := ExtractSource(map[string]any{"bbox": []any{1.0, 2.0, 3.0, 4.0}})
	assert.Equal(t, []float64{1, 2, 3, 4}, src.BBox)

	src = ExtractSource(map[string]any{"bounding_box": []any{1.0, 2.0, 3.0, 4.0}})
	assert.Equal(t, []float64{1, 2, 3, 4}, src.BBox)

	// Wrong arity or non-numeric members are ignored.
	src = ExtractSource(map[string]any{"bbox": []any{1.0, 2.0, 3.0}})
	assert.Nil(t, src.BBox)
	src = ExtractSource(map[string]any{"bbox": []any{1.0, "a", 3.0, 4.0}})
	assert.Nil(t, src.BBox)
}
