package shaders

import (
	_ "embed"
)

//go:embed plot.wgsl
var PlotWGSL string

//go:embed blit.wgsl
var BlitWGSL string

//go:embed text.wgsl
var TextWGSL string
