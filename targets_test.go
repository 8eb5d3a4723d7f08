package scopeplot

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestClampExtent(t *testing.T) {
	cases := []struct {
		w, h         uint32
		wantW, wantH uint32
	}{
		{0, 0, 1, 1},
		{0, 7, 1, 7},
		{7, 0, 7, 1},
		{640, 480, 640, 480},
	}
	for _, c := range cases {
		w, h := clampExtent(c.w, c.h)
		if w != c.wantW || h != c.wantH {
			t.Errorf("clampExtent(%d, %d) = (%d, %d), want (%d, %d)", c.w, c.h, w, h, c.wantW, c.wantH)
		}
	}
}

func TestNewRenderTargetsDefaults(t *testing.T) {
	rt := NewRenderTargets(wgpu.TextureFormatBGRA8Unorm, 0, nil)
	if rt.sampleCount != 1 {
		t.Errorf("sample count 0 should default to 1, got %d", rt.sampleCount)
	}
	if rt.log == nil {
		t.Error("nil logger should default to the nop logger")
	}
	if w, h := rt.Size(); w != 0 || h != 0 {
		t.Errorf("fresh targets should report 0x0, got %dx%d", w, h)
	}
}

// A repeated request for the recorded size must not touch the device at
// all; passing a nil device proves the path stays allocation-free.
func TestEnsureSizeUnchangedIsNoop(t *testing.T) {
	rt := NewRenderTargets(wgpu.TextureFormatBGRA8Unorm, 1, nil)
	rt.width, rt.height = 320, 200

	if err := rt.EnsureSize(nil, 320, 200); err != nil {
		t.Fatalf("unchanged EnsureSize returned error: %v", err)
	}
	if w, h := rt.Size(); w != 320 || h != 200 {
		t.Errorf("no-op resize changed recorded size to %dx%d", w, h)
	}
}

// Degenerate dimensions clamp to 1x1, so a recorded 1x1 absorbs them
// without reallocation.
func TestEnsureSizeClampsDegenerate(t *testing.T) {
	rt := NewRenderTargets(wgpu.TextureFormatBGRA8Unorm, 1, nil)
	rt.width, rt.height = 1, 1

	if err := rt.EnsureSize(nil, 0, 0); err != nil {
		t.Fatalf("degenerate EnsureSize returned error: %v", err)
	}
	if w, h := rt.Size(); w != 1 || h != 1 {
		t.Errorf("expected 1x1 after clamp, got %dx%d", w, h)
	}
}

func TestAttachmentSelection(t *testing.T) {
	color := &wgpu.TextureView{}
	msaa := &wgpu.TextureView{}

	single := &RenderTargets{sampleCount: 1, colorView: color}
	view, resolve := single.attachment()
	if view != color || resolve != nil {
		t.Error("single-sample attachment should be the color view with no resolve target")
	}

	multi := &RenderTargets{sampleCount: 4, colorView: color, msaaView: msaa}
	view, resolve = multi.attachment()
	if view != msaa {
		t.Error("multisampled attachment should be the MSAA view")
	}
	if resolve != color {
		t.Error("multisampled pass should resolve into the color view")
	}
}
