package scopeplot

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaxPoints is the vertex buffer capacity used when Config.MaxPoints
// is zero. The buffer is allocated once at this size and never grows.
const DefaultMaxPoints = 5_000_000

// Vertex matches the WGSL VertexInput in plot.wgsl. One plotted sample
// produces two of these at the same position with opposite unit normals;
// the vertex shader pushes each along its normal so the triangle strip
// draws as a ribbon. Color is premultiplied-alpha RGBA.
type Vertex struct {
	Position mgl32.Vec2
	Normal   mgl32.Vec2
	Color    [4]float32
}

// boundsUniform matches the WGSL Bounds uniform: the visible data window
// the vertex shader maps into clip space. Rewritten every frame.
type boundsUniform struct {
	XBounds [2]float32
	YBounds [2]float32
}

// Bounds is the visible data-space rectangle, in the data's own units.
// The host's plot layout decides it each frame (pan and zoom included);
// the renderer only consumes it.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (b Bounds) Width() float64  { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Translated shifts the window by (dx, dy) in data units.
func (b Bounds) Translated(dx, dy float64) Bounds {
	return Bounds{
		MinX: b.MinX + dx, MinY: b.MinY + dy,
		MaxX: b.MaxX + dx, MaxY: b.MaxY + dy,
	}
}

// ZoomedAround scales the window by factor about the data-space point
// (cx, cy). factor < 1 zooms in, factor > 1 zooms out.
func (b Bounds) ZoomedAround(factor, cx, cy float64) Bounds {
	return Bounds{
		MinX: cx + (b.MinX-cx)*factor,
		MinY: cy + (b.MinY-cy)*factor,
		MaxX: cx + (b.MaxX-cx)*factor,
		MaxY: cy + (b.MaxY-cy)*factor,
	}
}

// Sanitized widens degenerate spans so the shader's bounds mapping never
// divides by zero. UI layout can transiently produce such windows.
func (b Bounds) Sanitized() Bounds {
	const minSpan = 1e-9
	if b.MaxX-b.MinX < minSpan {
		c := (b.MinX + b.MaxX) / 2
		b.MinX, b.MaxX = c-minSpan/2, c+minSpan/2
	}
	if b.MaxY-b.MinY < minSpan {
		c := (b.MinY + b.MaxY) / 2
		b.MinY, b.MaxY = c-minSpan/2, c+minSpan/2
	}
	return b
}

func (b Bounds) uniform() boundsUniform {
	return boundsUniform{
		XBounds: [2]float32{float32(b.MinX), float32(b.MaxX)},
		YBounds: [2]float32{float32(b.MinY), float32(b.MaxY)},
	}
}

// Series is an immutable vertex sequence shared between the data producer
// and the frame bridge. The producer builds a fresh one on every data
// change and must not touch the backing slice afterwards; the renderer
// only ever reads it. Sharing a pointer across in-flight frames is safe.
type Series struct {
	vertices []Vertex
}

// NewSeries takes ownership of vertices. The caller must not modify the
// slice after handing it over; replace the whole Series instead.
func NewSeries(vertices []Vertex) *Series {
	return &Series{vertices: vertices}
}

func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.vertices)
}

// Vertices returns the backing slice. Read-only by contract.
func (s *Series) Vertices() []Vertex {
	if s == nil {
		return nil
	}
	return s.vertices
}
