package pompeii

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type Surface interface {
	Handle() vk.Surface
	Destroy()
}

// SurfaceSource is a native window able to create a surface for an
// instance; *glfw.Window satisfies it.
type SurfaceSource interface {
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
}

type WindowSurface struct {
	instance *Instance

	surface vk.Surface
}

func NewWindowSurface(instance *Instance, window SurfaceSource) (*WindowSurface, error) {
	w := WindowSurface{
		instance: instance,
		surface:  vk.NullSurface,
	}

	ptr, err := window.CreateWindowSurface(w.instance.Handle(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window surface")
	}
	w.surface = vk.SurfaceFromPointer(ptr)

	return &w, nil
}

func (w *WindowSurface) Destroy() {
	if w.surface != vk.NullSurface {
		vk.DestroySurface(w.instance.Handle(), w.surface, nil)
		w.surface = vk.NullSurface
	}
}

func (w *WindowSurface) Handle() vk.Surface {
	return w.surface
}
