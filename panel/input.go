package panel

import (
	"math"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/scopeplot/scopeplot"
)

const (
	KeyQ int = iota
	KeyA
	KeyW
	KeyS
	KeyE
	KeyD
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeySpace
	KeyEscape
	MouseButtonLeft
	MouseButtonRight
	MouseButtonMiddle
	keyCount
)

// Input is the polled keyboard and mouse state for one window. Update
// refreshes it once per frame; JustPressed and JustReleased report
// edges relative to the previous frame.
type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	ScrollY                  float64

	WindowWidth, WindowHeight int

	pendingScroll float64
	haveMousePos  bool
}

// Attach registers the scroll callback. Scroll arrives as events, not
// polled state, so offsets accumulate until the next Update drains
// them into ScrollY.
func (in *Input) Attach(win *glfw.Window) {
	win.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		in.pendingScroll += yoff
	})
}

func (in *Input) Update(win *glfw.Window) {
	for key, glfwKey := range keyToGlfw {
		applyKeyState(in, key, win.GetKey(glfwKey) == glfw.Press)
	}
	for btn, glfwBtn := range buttonToGlfw {
		applyKeyState(in, btn, win.GetMouseButton(glfwBtn) == glfw.Press)
	}

	mx, my := win.GetCursorPos()
	if in.haveMousePos {
		in.MouseDeltaX = mx - in.MouseX
		in.MouseDeltaY = my - in.MouseY
	}
	in.MouseX, in.MouseY = mx, my
	in.haveMousePos = true

	in.ScrollY = in.pendingScroll
	in.pendingScroll = 0

	in.WindowWidth, in.WindowHeight = win.GetSize()
}

func applyKeyState(in *Input, key int, down bool) {
	in.JustPressed[key] = false
	in.JustReleased[key] = false

	if down {
		if !in.Pressed[key] {
			in.JustPressed[key] = true
		}
		in.Pressed[key] = true
	} else {
		if in.Pressed[key] {
			in.JustReleased[key] = true
		}
		in.Pressed[key] = false
	}
}

var keyToGlfw = map[int]glfw.Key{
	KeyQ:      glfw.KeyQ,
	KeyA:      glfw.KeyA,
	KeyW:      glfw.KeyW,
	KeyS:      glfw.KeyS,
	KeyE:      glfw.KeyE,
	KeyD:      glfw.KeyD,
	KeyUp:     glfw.KeyUp,
	KeyDown:   glfw.KeyDown,
	KeyLeft:   glfw.KeyLeft,
	KeyRight:  glfw.KeyRight,
	KeySpace:  glfw.KeySpace,
	KeyEscape: glfw.KeyEscape,
}

var buttonToGlfw = map[int]glfw.MouseButton{
	MouseButtonLeft:   glfw.MouseButtonLeft,
	MouseButtonRight:  glfw.MouseButtonRight,
	MouseButtonMiddle: glfw.MouseButtonMiddle,
}

const zoomStep = 1.1

// PanBounds shifts bounds so the plotted content follows a cursor drag
// of (dxPix, dyPix) inside a plot area of the given pixel size. Screen
// Y grows downwards, data Y upwards.
func PanBounds(b scopeplot.Bounds, dxPix, dyPix float64, plotW, plotH int) scopeplot.Bounds {
	if plotW <= 0 || plotH <= 0 {
		return b
	}
	dx := -dxPix / float64(plotW) * b.Width()
	dy := dyPix / float64(plotH) * b.Height()
	return b.Translated(dx, dy)
}

// ZoomBounds scales bounds around the data point under the cursor, so
// that point stays put on screen. Positive scroll zooms in.
func ZoomBounds(b scopeplot.Bounds, scroll float64, cursorX, cursorY float64, area Rect[int]) scopeplot.Bounds {
	if scroll == 0 || area.Width() <= 0 || area.Height() <= 0 {
		return b
	}
	factor := math.Pow(zoomStep, -scroll)
	fx := (cursorX - float64(area.MinX)) / float64(area.Width())
	fy := (cursorY - float64(area.MinY)) / float64(area.Height())
	cx := b.MinX + fx*b.Width()
	cy := b.MinY + (1-fy)*b.Height()
	return b.ZoomedAround(factor, cx, cy)
}
