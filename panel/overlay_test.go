package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWhite = [4]float32{1, 1, 1, 1}

func TestOverlayDefaultFaceGlyphs(t *testing.T) {
	o := NewOverlay(nil, nil)

	g, ok := o.glyphs['A']
	require.True(t, ok, "default face should cover ASCII")
	// Face7x13 draws 6x13 glyph boxes with a 7 pixel advance.
	assert.Equal(t, [2]float32{6, 13}, g.Size)
	assert.Equal(t, float32(7), g.Adv)
}

func TestOverlayAtlasCoverage(t *testing.T) {
	o := NewOverlay(nil, nil)

	g, ok := o.glyphs['A']
	require.True(t, ok)

	x0 := int(g.UVMin[0] * atlasSize)
	y0 := int(g.UVMin[1] * atlasSize)
	x1 := int(g.UVMax[0] * atlasSize)
	y1 := int(g.UVMax[1] * atlasSize)

	covered := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if o.atlas.AlphaAt(x, y).A > 0 {
				covered++
			}
		}
	}
	assert.Positive(t, covered, "glyph 'A' left no ink in the atlas")
}

func TestBuildVerticesQuadPerGlyph(t *testing.T) {
	o := NewOverlay(nil, nil)

	items := []TextItem{{Text: "ok", Position: [2]float32{0, 0}, Scale: 1, Color: testWhite}}
	verts := o.BuildVertices(items, 640, 480)
	require.Len(t, verts, 12)

	// Second glyph sits one advance to the right.
	assert.Greater(t, verts[6].Pos[0], verts[0].Pos[0])
	for _, v := range verts {
		assert.Equal(t, testWhite, v.Color)
	}
}

func TestBuildVerticesNewline(t *testing.T) {
	o := NewOverlay(nil, nil)

	items := []TextItem{{Text: "a\nb", Position: [2]float32{0, 0}, Scale: 1, Color: testWhite}}
	verts := o.BuildVertices(items, 640, 480)
	require.Len(t, verts, 12)

	// NDC y shrinks downwards, so the second line sits below the first.
	assert.Less(t, verts[6].Pos[1], verts[0].Pos[1])
	// Both lines start at the same x.
	assert.InDelta(t, verts[0].Pos[0], verts[6].Pos[0], 1e-6)
}

func TestBuildVerticesSkipsUnknownRunes(t *testing.T) {
	o := NewOverlay(nil, nil)

	items := []TextItem{{Text: "a\x01b", Position: [2]float32{0, 0}, Scale: 1, Color: testWhite}}
	verts := o.BuildVertices(items, 640, 480)
	assert.Len(t, verts, 12)
}

func TestMeasureText(t *testing.T) {
	o := NewOverlay(nil, nil)
	lineHeight := float32(o.face.Metrics().Height.Ceil())

	w, h := o.MeasureText("abc", 1)
	assert.InDelta(t, 21, w, 1e-6)
	assert.InDelta(t, lineHeight, h, 1e-6)

	w, h = o.MeasureText("abc\nde", 1)
	assert.InDelta(t, 21, w, 1e-6)
	assert.InDelta(t, 2*lineHeight, h, 1e-6)

	w2, _ := o.MeasureText("abc", 2)
	assert.InDelta(t, 42, w2, 1e-6)
}

func TestShapeCacheReuse(t *testing.T) {
	o := NewOverlay(nil, nil)
	o.Text("hello", 4, 4, 1, testWhite)

	v1 := o.shape(640, 480)
	v2 := o.shape(640, 480)
	require.NotEmpty(t, v1)
	assert.Same(t, &v1[0], &v2[0], "identical frames should reuse the shaped run")
	assert.Equal(t, 1, o.shaped.Len())

	// A different screen size shapes to different NDC and must miss.
	v3 := o.shape(800, 600)
	assert.NotSame(t, &v1[0], &v3[0])
	assert.Equal(t, 2, o.shaped.Len())
}

func TestOverlayLineHeightScales(t *testing.T) {
	o := NewOverlay(nil, nil)
	assert.InDelta(t, 2*o.LineHeight(1), o.LineHeight(2), 1e-6)
}
