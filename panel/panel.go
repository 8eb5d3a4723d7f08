package panel

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"golang.org/x/image/font"

	"github.com/scopeplot/scopeplot"
)

type Mode int

const (
	// ModePassInjection records the plot draw into the window's own
	// render pass, clipped to the plot area with viewport and scissor.
	ModePassInjection Mode = iota
	// ModeSelfSubmission renders the plot into its offscreen target
	// pass and composites the result with a textured quad.
	ModeSelfSubmission
)

type Options struct {
	Title  string
	Width  int
	Height int

	// SampleCount selects MSAA for the plot. In pass injection mode
	// the whole window pass runs at this count.
	SampleCount uint32
	MaxPoints   int
	Mode        Mode

	// Bounds is the initial data window, also the home view that the
	// space key restores.
	Bounds scopeplot.Bounds

	// Margin is the border between window edge and plot area, pixels.
	Margin int

	// NoVSync switches the surface to immediate presentation.
	NoVSync bool

	// Font overrides the HUD face. Nil uses the built-in bitmap face.
	Font font.Face

	Debug  bool
	Logger scopeplot.Logger
}

type Panel struct {
	log scopeplot.Logger

	win     *glfw.Window
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	queue   *wgpu.Queue
	config  *wgpu.SurfaceConfiguration

	plot     *scopeplot.Renderer
	bridge   *scopeplot.Bridge
	registry *Registry
	plotID   TextureID
	blit     *Blit
	overlay  *Overlay
	input    *Input

	mode   Mode
	margin int

	bounds     scopeplot.Bounds
	homeBounds scopeplot.Bounds

	panelSamples uint32
	msaaTexture  *wgpu.Texture
	msaaView     *wgpu.TextureView

	lastTime       float64
	lastRenderTime float64
	frameCount     int
	fpsTime        float64
	fps            float64

	hudCursor float32
}

var backgroundColor = wgpu.Color{R: 0.06, G: 0.06, B: 0.07, A: 1.0}

var hudColor = [4]float32{0.92, 0.92, 0.92, 1.0}

const hudScale = 2.0

// New opens the window and brings up the GPU stack. Call from the main
// goroutine with runtime.LockOSThread in effect, GLFW requires it.
func New(opts Options) (*Panel, error) {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 768
	}
	if opts.Title == "" {
		opts.Title = "scopeplot"
	}
	if opts.SampleCount == 0 {
		opts.SampleCount = 1
	}
	if opts.Margin <= 0 {
		opts.Margin = 16
	}
	if opts.Bounds.Width() == 0 || opts.Bounds.Height() == 0 {
		opts.Bounds = scopeplot.Bounds{MinX: -1, MinY: -1, MaxX: 1, MaxY: 1}
	}
	log := opts.Logger
	if log == nil {
		log = scopeplot.NewDefaultLogger("panel", opts.Debug)
	}

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init glfw: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}

	fail := func(err error) (*Panel, error) {
		win.Destroy()
		glfw.Terminate()
		return nil, err
	}

	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fail(fmt.Errorf("request adapter: %w", err))
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return fail(fmt.Errorf("request device: %w", err))
	}
	queue := device.GetQueue()

	fbw, fbh := win.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	presentMode := wgpu.PresentModeFifo
	if opts.NoVSync {
		presentMode = wgpu.PresentModeImmediate
	}

	config := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(fbw),
		Height:      uint32(fbh),
		PresentMode: presentMode,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, config)

	plot, err := scopeplot.New(device, format, scopeplot.Config{
		SampleCount: opts.SampleCount,
		MaxPoints:   opts.MaxPoints,
		Logger:      log,
	})
	if err != nil {
		return fail(fmt.Errorf("create plot renderer: %w", err))
	}

	// The plot draws into the window pass in injection mode, so the
	// window pass has to carry the plot's sample count. In submission
	// mode multisampling is resolved offscreen and the window pass
	// stays single sampled.
	panelSamples := uint32(1)
	if opts.Mode == ModePassInjection {
		panelSamples = opts.SampleCount
	}

	blit, err := NewBlit(device, format, panelSamples)
	if err != nil {
		return fail(err)
	}

	overlay := NewOverlay(opts.Font, log)
	if err := overlay.InitGPU(device, queue, format, panelSamples); err != nil {
		return fail(err)
	}

	registry := NewRegistry()

	p := &Panel{
		log:          log,
		win:          win,
		surface:      surface,
		adapter:      adapter,
		device:       device,
		queue:        queue,
		config:       config,
		plot:         plot,
		bridge:       scopeplot.NewBridge(plot),
		registry:     registry,
		blit:         blit,
		overlay:      overlay,
		input:        &Input{},
		mode:         opts.Mode,
		margin:       opts.Margin,
		bounds:       opts.Bounds.Sanitized(),
		homeBounds:   opts.Bounds.Sanitized(),
		panelSamples: panelSamples,
	}
	p.plotID = registry.Register(plot.View())
	p.input.Attach(win)

	if err := p.recreateMSAATarget(); err != nil {
		return fail(err)
	}

	log.Infof("panel up, %dx%d, %d sample(s)", fbw, fbh, opts.SampleCount)
	return p, nil
}

// Run drives the frame loop until the window closes. update runs once
// per frame between input handling and rendering, nil is allowed.
func (p *Panel) Run(update func(p *Panel, dt float64)) error {
	p.lastTime = glfw.GetTime()

	for !p.win.ShouldClose() {
		glfw.PollEvents()
		p.input.Update(p.win)

		now := glfw.GetTime()
		dt := now - p.lastTime
		p.lastTime = now

		p.resizeIfNeeded()
		p.handleViewControls()

		p.hudCursor = float32(p.margin) + 10
		p.HUD(fmt.Sprintf("%.0f fps  %d verts", p.fps, p.plot.VertexCount()))
		if update != nil {
			update(p, dt)
		}

		if err := p.renderFrame(); err != nil {
			p.log.Errorf("frame dropped: %v", err)
		}
		p.updateFPS()
	}
	return nil
}

func (p *Panel) renderFrame() error {
	fbw, fbh := p.win.GetFramebufferSize()
	if fbw <= 0 || fbh <= 0 {
		return nil
	}

	area := p.plotAreaIn(fbw, fbh)
	frame := scopeplot.Frame{
		Width:  uint32(area.Width()),
		Height: uint32(area.Height()),
		Bounds: p.bounds,
	}

	// Uploads and offscreen passes happen before the window pass is
	// recorded.
	switch p.mode {
	case ModeSelfSubmission:
		if err := p.bridge.RenderOffscreen(p.device, p.queue, frame); err != nil {
			return err
		}
		p.registry.Update(p.plotID, p.bridge.View())
		view, ok := p.registry.Lookup(p.plotID)
		if !ok {
			return errors.New("plot texture missing from registry")
		}
		if err := p.blit.Prepare(p.device, p.queue, view, area, fbw, fbh); err != nil {
			return err
		}
	default:
		if err := p.bridge.Prepare(p.device, p.queue, frame); err != nil {
			return err
		}
		p.registry.Update(p.plotID, p.bridge.View())
	}

	if err := p.overlay.Prepare(p.device, p.queue, fbw, fbh); err != nil {
		return err
	}

	surfaceTexture, err := p.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	defer surfaceTexture.Release()

	surfaceView, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create surface view: %w", err)
	}
	defer surfaceView.Release()

	encoder, err := p.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	attachment := wgpu.RenderPassColorAttachment{
		View:       surfaceView,
		LoadOp:     wgpu.LoadOpClear,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: backgroundColor,
	}
	if p.msaaView != nil {
		attachment.View = p.msaaView
		attachment.ResolveTarget = surfaceView
		attachment.StoreOp = wgpu.StoreOpDiscard
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{attachment},
	})
	defer pass.Release()

	if p.mode == ModePassInjection {
		pass.SetViewport(float32(area.MinX), float32(area.MinY), float32(area.Width()), float32(area.Height()), 0, 1)
		pass.SetScissorRect(uint32(area.MinX), uint32(area.MinY), uint32(area.Width()), uint32(area.Height()))
		p.bridge.Paint(pass)
		pass.SetViewport(0, 0, float32(fbw), float32(fbh), 0, 1)
		pass.SetScissorRect(0, 0, uint32(fbw), uint32(fbh))
	} else {
		p.blit.Paint(pass)
	}

	p.overlay.Paint(pass)

	if err := pass.End(); err != nil {
		return fmt.Errorf("end window pass: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish frame: %w", err)
	}
	defer cmd.Release()

	p.queue.Submit(cmd)
	p.surface.Present()
	return nil
}

func (p *Panel) resizeIfNeeded() {
	fbw, fbh := p.win.GetFramebufferSize()
	if fbw <= 0 || fbh <= 0 {
		return
	}
	if uint32(fbw) == p.config.Width && uint32(fbh) == p.config.Height {
		return
	}

	p.config.Width = uint32(fbw)
	p.config.Height = uint32(fbh)
	p.surface.Configure(p.adapter, p.device, p.config)
	if err := p.recreateMSAATarget(); err != nil {
		p.log.Errorf("recreate window msaa target: %v", err)
	}
	p.log.Debugf("surface resized to %dx%d", fbw, fbh)
}

func (p *Panel) recreateMSAATarget() error {
	if p.panelSamples <= 1 {
		return nil
	}
	if p.msaaView != nil {
		p.msaaView.Release()
		p.msaaView = nil
	}
	if p.msaaTexture != nil {
		p.msaaTexture.Release()
		p.msaaTexture = nil
	}

	tex, err := p.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "PanelMSAA",
		Size:          wgpu.Extent3D{Width: p.config.Width, Height: p.config.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   p.panelSamples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        p.config.Format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create window msaa texture: %w", err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("create window msaa view: %w", err)
	}
	p.msaaTexture = tex
	p.msaaView = view
	return nil
}

// handleViewControls applies the built-in interactions: escape closes,
// space restores the home view, left drag pans and scroll zooms around
// the cursor. Interaction math runs in window coordinates, the same
// space the cursor reports in.
func (p *Panel) handleViewControls() {
	in := p.input

	if in.JustPressed[KeyEscape] {
		p.win.SetShouldClose(true)
	}
	if in.JustPressed[KeySpace] {
		p.bounds = p.homeBounds
	}

	area := p.plotAreaIn(in.WindowWidth, in.WindowHeight)
	inside := area.Contains(int(in.MouseX), int(in.MouseY))

	if in.Pressed[MouseButtonLeft] && inside {
		p.bounds = PanBounds(p.bounds, in.MouseDeltaX, in.MouseDeltaY, area.Width(), area.Height())
	}
	if in.ScrollY != 0 && inside {
		p.bounds = ZoomBounds(p.bounds, in.ScrollY, in.MouseX, in.MouseY, area).Sanitized()
	}
}

func (p *Panel) plotAreaIn(w, h int) Rect[int] {
	return RectFromSize(0, 0, w, h).Inset(p.margin)
}

// PlotArea is the plot rectangle in framebuffer pixels.
func (p *Panel) PlotArea() Rect[int] {
	fbw, fbh := p.win.GetFramebufferSize()
	return p.plotAreaIn(fbw, fbh)
}

func (p *Panel) updateFPS() {
	now := glfw.GetTime()
	if p.lastRenderTime > 0 {
		p.frameCount++
		p.fpsTime += now - p.lastRenderTime
		if p.fpsTime >= 1.0 {
			p.fps = float64(p.frameCount) / p.fpsTime
			p.frameCount = 0
			p.fpsTime = 0
		}
	}
	p.lastRenderTime = now
}

// HUD queues one line of overlay text, stacked below previous lines of
// the current frame.
func (p *Panel) HUD(text string) {
	x := float32(p.margin) + 10
	p.overlay.Text(text, x, p.hudCursor, hudScale, hudColor)
	_, h := p.overlay.MeasureText(text, hudScale)
	p.hudCursor += h + 6
}

// SetSeries hands a new line strip to the plot. Nil clears it.
func (p *Panel) SetSeries(s *scopeplot.Series) {
	p.bridge.SetSeries(s)
}

func (p *Panel) Bounds() scopeplot.Bounds {
	return p.bounds
}

func (p *Panel) SetBounds(b scopeplot.Bounds) {
	p.bounds = b.Sanitized()
}

func (p *Panel) Input() *Input {
	return p.input
}

func (p *Panel) FPS() float64 {
	return p.fps
}

func (p *Panel) RequestClose() {
	p.win.SetShouldClose(true)
}

func (p *Panel) Close() {
	if p.msaaView != nil {
		p.msaaView.Release()
		p.msaaView = nil
	}
	if p.msaaTexture != nil {
		p.msaaTexture.Release()
		p.msaaTexture = nil
	}
	p.overlay.Release()
	p.blit.Release()
	p.plot.Release()
	p.win.Destroy()
	glfw.Terminate()
}
