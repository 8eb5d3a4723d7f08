package scopeplot

import (
	"encoding/binary"
	"math"
	"testing"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

func TestVertexLayout(t *testing.T) {
	// struct Vertex {
	//     position: vec2<f32>,  // 8 bytes at offset 0
	//     normal: vec2<f32>,    // 8 bytes at offset 8
	//     color: vec4<f32>,     // 16 bytes at offset 16
	// }
	if s := unsafe.Sizeof(Vertex{}); s != 32 {
		t.Fatalf("Vertex size should be 32 bytes, got %d", s)
	}
	if o := unsafe.Offsetof(Vertex{}.Position); o != 0 {
		t.Errorf("Position offset should be 0, got %d", o)
	}
	if o := unsafe.Offsetof(Vertex{}.Normal); o != 8 {
		t.Errorf("Normal offset should be 8, got %d", o)
	}
	if o := unsafe.Offsetof(Vertex{}.Color); o != 16 {
		t.Errorf("Color offset should be 16, got %d", o)
	}

	if s := unsafe.Sizeof(boundsUniform{}); s != 16 {
		t.Fatalf("boundsUniform size should be 16 bytes, got %d", s)
	}
	if o := unsafe.Offsetof(boundsUniform{}.YBounds); o != 8 {
		t.Errorf("YBounds offset should be 8, got %d", o)
	}
}

func TestVertexUploadBytes(t *testing.T) {
	vertices := []Vertex{
		{
			Position: mgl32.Vec2{1.5, -2.5},
			Normal:   mgl32.Vec2{0, 1},
			Color:    [4]float32{0.25, 0.5, 0.75, 1},
		},
		{
			Position: mgl32.Vec2{3, 4},
			Normal:   mgl32.Vec2{0, -1},
			Color:    [4]float32{1, 0, 0, 0.5},
		},
	}

	data := wgpu.ToBytes(vertices)
	if len(data) != 64 {
		t.Fatalf("Expected 64 bytes (2 vertices), got %d", len(data))
	}

	f32At := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
	}

	if got := f32At(0); got != 1.5 {
		t.Errorf("vertex 0 position.x should be 1.5, got %f", got)
	}
	if got := f32At(4); got != -2.5 {
		t.Errorf("vertex 0 position.y should be -2.5, got %f", got)
	}
	if got := f32At(12); got != 1 {
		t.Errorf("vertex 0 normal.y should be 1, got %f", got)
	}
	if got := f32At(16); got != 0.25 {
		t.Errorf("vertex 0 color.r should be 0.25, got %f", got)
	}
	if got := f32At(28); got != 1 {
		t.Errorf("vertex 0 color.a should be 1, got %f", got)
	}
	// Second vertex starts at the 32-byte stride.
	if got := f32At(32); got != 3 {
		t.Errorf("vertex 1 position.x should be 3, got %f", got)
	}
	if got := f32At(44); got != -1 {
		t.Errorf("vertex 1 normal.y should be -1, got %f", got)
	}
}

func TestBoundsUniformBytes(t *testing.T) {
	b := Bounds{MinX: -2, MinY: 1, MaxX: 3, MaxY: 5}
	data := wgpu.ToBytes([]boundsUniform{b.uniform()})
	if len(data) != 16 {
		t.Fatalf("Expected 16 uniform bytes, got %d", len(data))
	}

	want := []float32{-2, 3, 1, 5} // x_bounds then y_bounds, min before max
	for i, w := range want {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
		if got != w {
			t.Errorf("uniform float %d should be %f, got %f", i, w, got)
		}
	}
}

func TestBoundsMath(t *testing.T) {
	b := Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 4}

	if b.Width() != 10 || b.Height() != 4 {
		t.Fatalf("unexpected spans: %f x %f", b.Width(), b.Height())
	}

	moved := b.Translated(2, -1)
	if moved.MinX != 2 || moved.MaxX != 12 || moved.MinY != -1 || moved.MaxY != 3 {
		t.Errorf("Translated gave %+v", moved)
	}
	if moved.Width() != b.Width() || moved.Height() != b.Height() {
		t.Errorf("Translated changed spans: %+v", moved)
	}

	zoomed := b.ZoomedAround(0.5, 5, 2)
	if zoomed.MinX != 2.5 || zoomed.MaxX != 7.5 {
		t.Errorf("ZoomedAround x gave [%f, %f]", zoomed.MinX, zoomed.MaxX)
	}
	if zoomed.MinY != 1 || zoomed.MaxY != 3 {
		t.Errorf("ZoomedAround y gave [%f, %f]", zoomed.MinY, zoomed.MaxY)
	}

	// Zoom about a corner keeps the corner fixed.
	corner := b.ZoomedAround(2, 0, 0)
	if corner.MinX != 0 || corner.MinY != 0 || corner.MaxX != 20 || corner.MaxY != 8 {
		t.Errorf("corner zoom gave %+v", corner)
	}
}

func TestBoundsSanitized(t *testing.T) {
	flat := Bounds{MinX: 3, MaxX: 3, MinY: -1, MaxY: 1}.Sanitized()
	if flat.Width() <= 0 {
		t.Errorf("x span still degenerate: %+v", flat)
	}
	if flat.MinY != -1 || flat.MaxY != 1 {
		t.Errorf("healthy y span was touched: %+v", flat)
	}

	ok := Bounds{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1}
	if got := ok.Sanitized(); got != ok {
		t.Errorf("healthy bounds were changed: %+v", got)
	}
}

func TestSeriesSharing(t *testing.T) {
	backing := []Vertex{{Position: mgl32.Vec2{1, 2}}}
	s := NewSeries(backing)

	if s.Len() != 1 {
		t.Fatalf("Len should be 1, got %d", s.Len())
	}
	// No copy on construction or access.
	if &s.Vertices()[0] != &backing[0] {
		t.Error("Vertices should share the caller's backing array")
	}

	var nilSeries *Series
	if nilSeries.Len() != 0 {
		t.Error("nil series should have zero length")
	}
	if nilSeries.Vertices() != nil {
		t.Error("nil series should have nil vertices")
	}
}
