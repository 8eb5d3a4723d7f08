package scopeplot

import (
	"fmt"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

// recordingLogger captures warnings so tests can assert on diagnostics.
type recordingLogger struct {
	nopLogger
	warnings []string
}

func (l *recordingLogger) Warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func TestTruncateToCapacity(t *testing.T) {
	log := &recordingLogger{}

	in := make([]Vertex, 10)
	got := truncateToCapacity(in, 10, log)
	if len(got) != 10 {
		t.Fatalf("in-capacity series should keep its length, got %d", len(got))
	}
	if &got[0] != &in[0] {
		t.Error("in-capacity series should not be copied")
	}
	if len(log.warnings) != 0 {
		t.Errorf("in-capacity series should not warn, got %v", log.warnings)
	}

	got = truncateToCapacity(in, 4, log)
	if len(got) != 4 {
		t.Fatalf("over-capacity series should truncate to 4, got %d", len(got))
	}
	if &got[0] != &in[0] {
		t.Error("truncation should keep the original prefix")
	}
	if len(log.warnings) != 1 {
		t.Fatalf("over-capacity series should warn exactly once, got %v", log.warnings)
	}
}

// A clean frame must be a strict no-op: no queue interaction, previous
// count preserved. The nil queue would blow up on any upload attempt.
func TestUpdateVerticesCleanFrame(t *testing.T) {
	r := &Renderer{maxPoints: 8, vertexCount: 3, log: NewNopLogger()}

	if err := r.UpdateVertices(nil, make([]Vertex, 5), false); err != nil {
		t.Fatalf("clean frame returned error: %v", err)
	}
	if r.VertexCount() != 3 {
		t.Errorf("clean frame changed vertexCount to %d", r.VertexCount())
	}
}

// An empty dirty upload resets the count without writing any bytes.
func TestUpdateVerticesEmptySeries(t *testing.T) {
	r := &Renderer{maxPoints: 8, vertexCount: 5, log: NewNopLogger()}

	if err := r.UpdateVertices(nil, nil, true); err != nil {
		t.Fatalf("empty dirty upload returned error: %v", err)
	}
	if r.VertexCount() != 0 {
		t.Errorf("empty upload should zero vertexCount, got %d", r.VertexCount())
	}
}

// Zero uploaded vertices means the draw records nothing, so nothing ever
// samples stale buffer contents.
func TestDrawSkipsEmptyPlot(t *testing.T) {
	r := &Renderer{}
	r.Draw(nil)
}

func TestNewRejectsMissingDevice(t *testing.T) {
	if _, err := New(nil, wgpu.TextureFormatBGRA8Unorm, Config{}); err == nil {
		t.Fatal("New should fail without a device")
	}
}
