// Package pompeii wraps the Vulkan objects the renderer uses. Each wrapper
// keeps the handles it was created from and nulls its own on Destroy.
package pompeii

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	ErrOutOfDate  = errors.New("surface out of date")
	ErrSuboptimal = errors.New("surface suboptimal")
	ErrTimeout    = errors.New("timed out")
)

// Destroyer is anything owning a native handle.
type Destroyer interface {
	Destroy()
}

func inStringSlice(slice []string, val string) bool {
	for _, v := range slice {
		if v == val {
			return true
		}
	}
	return false
}

func vkString(str string) string {
	if len(str) == 0 {
		return "\x00"
	} else if str[len(str)-1] != '\x00' {
		return str + "\x00"
	}
	return str
}

func vkStrings(strs []string) []string {
	result := make([]string, len(strs))
	for t, str := range strs {
		result[t] = vkString(str)
	}
	return result
}

// Init loads the Vulkan entry points. procAddr may come from the window
// library; when nil the system loader is used.
func Init(procAddr unsafe.Pointer) error {
	if procAddr != nil {
		vk.SetGetInstanceProcAddr(procAddr)
	}
	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "could not initialize vulkan")
	}
	return nil
}

// resultError maps the recoverable surface results to sentinels and
// wraps the rest.
func resultError(result vk.Result, what string) error {
	switch result {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		return ErrSuboptimal
	case vk.ErrorOutOfDate:
		return ErrOutOfDate
	case vk.Timeout:
		return errors.Wrap(ErrTimeout, what)
	default:
		return errors.Wrap(vk.Error(result), what)
	}
}

func getAvailableInstanceExtensions() ([]string, error) {
	var count uint32
	if result := vk.EnumerateInstanceExtensionProperties("", &count, nil); result != vk.Success {
		return nil, errors.New("could not count instance extensions")
	}
	extensions := make([]vk.ExtensionProperties, count)
	if result := vk.EnumerateInstanceExtensionProperties("", &count, extensions); result != vk.Success {
		return nil, errors.New("could not get instance extensions")
	}

	names := make([]string, count)
	for t, ext := range extensions {
		ext.Deref()
		names[t] = vk.ToString(ext.ExtensionName[:])
	}
	return names, nil
}

func getAvailableInstanceLayers() ([]string, error) {
	var count uint32
	if result := vk.EnumerateInstanceLayerProperties(&count, nil); result != vk.Success {
		return nil, errors.New("could not count instance layers")
	}
	layers := make([]vk.LayerProperties, count)
	if result := vk.EnumerateInstanceLayerProperties(&count, layers); result != vk.Success {
		return nil, errors.New("could not get instance layers")
	}

	names := make([]string, count)
	for t, layer := range layers {
		layer.Deref()
		names[t] = vk.ToString(layer.LayerName[:])
	}
	return names, nil
}

// bytesOf views mapped memory as a byte slice of length n.
func bytesOf(data unsafe.Pointer, n int) []byte {
	return (*[1 << 30]byte)(data)[:n:n]
}
