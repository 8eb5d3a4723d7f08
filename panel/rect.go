package panel

import (
	"golang.org/x/exp/constraints"
)

type numeric interface {
	constraints.Integer | constraints.Float
}

// Rect is an axis-aligned rectangle in screen coordinates, Y growing
// downwards. Min is the top-left corner, Max the bottom-right.
type Rect[T numeric] struct {
	MinX, MinY T
	MaxX, MaxY T
}

func RectFromSize[T numeric](x, y, w, h T) Rect[T] {
	return Rect[T]{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

func (r Rect[T]) Width() T {
	return r.MaxX - r.MinX
}

func (r Rect[T]) Height() T {
	return r.MaxY - r.MinY
}

func (r Rect[T]) Contains(x, y T) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

// Inset shrinks the rectangle by d on every side. Collapses to a point
// at the center when d exceeds half the extent.
func (r Rect[T]) Inset(d T) Rect[T] {
	out := Rect[T]{
		MinX: r.MinX + d,
		MinY: r.MinY + d,
		MaxX: r.MaxX - d,
		MaxY: r.MaxY - d,
	}
	if out.MinX > out.MaxX {
		c := (r.MinX + r.MaxX) / 2
		out.MinX, out.MaxX = c, c
	}
	if out.MinY > out.MaxY {
		c := (r.MinY + r.MaxY) / 2
		out.MinY, out.MaxY = c, c
	}
	return out
}

func (r Rect[T]) XYWH() (T, T, T, T) {
	return r.MinX, r.MinY, r.Width(), r.Height()
}
