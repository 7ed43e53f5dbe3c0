package myr

import (
	"github.com/pkg/errors"
	"github.com/vulkan-go/glfw/v3.3/glfw"
)

// Window is a resizable glfw window without a client API. Framebuffer
// size changes set a latch that Resized reads and clears.
type Window struct {
	window  *glfw.Window
	resized bool
}

func newWindow(title string, width, height int) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create window")
	}

	w := Window{
		window: window,
	}
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized = true
	})
	return &w, nil
}

func (w *Window) FramebufferSize() (int, int) {
	return w.window.GetFramebufferSize()
}

func (w *Window) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

func (w *Window) WaitEvents() {
	glfw.WaitEvents()
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) ShouldClose() bool {
	return w.window.ShouldClose()
}

func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
}
