package panel

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

type TextureID string

func NewTextureID() TextureID {
	return TextureID(uuid.NewString())
}

// Registry maps texture ids to the views the compositor samples from.
// Render targets are recreated on resize, so producers re-register
// their current view every frame and consumers look it up when they
// build draw calls. Belongs to the frame thread.
type Registry struct {
	views map[TextureID]*wgpu.TextureView
}

func NewRegistry() *Registry {
	return &Registry{views: make(map[TextureID]*wgpu.TextureView)}
}

// Register stores a view under a fresh id and returns the id.
func (reg *Registry) Register(view *wgpu.TextureView) TextureID {
	id := NewTextureID()
	reg.views[id] = view
	return id
}

// Update replaces the view stored under id. Registering nil keeps the
// id known but makes Lookup report it as absent until the producer
// supplies a view again.
func (reg *Registry) Update(id TextureID, view *wgpu.TextureView) {
	reg.views[id] = view
}

func (reg *Registry) Lookup(id TextureID) (*wgpu.TextureView, bool) {
	view, ok := reg.views[id]
	if !ok || view == nil {
		return nil, false
	}
	return view, true
}

func (reg *Registry) Remove(id TextureID) {
	delete(reg.views, id)
}

func (reg *Registry) Len() int {
	return len(reg.views)
}
