package myr

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/perlw/vkmodel/asset"
	"github.com/perlw/vkmodel/frame"
	"github.com/perlw/vkmodel/pompeii"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Errorf("expected 800x600, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FramesInFlight != 2 {
		t.Errorf("expected 2 frames in flight, got %d", cfg.FramesInFlight)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"zero width":      func(c *Config) { c.Width = 0 },
		"zero frames":     func(c *Config) { c.FramesInFlight = 0 },
		"no model":        func(c *Config) { c.ModelPath = "" },
		"no shader":       func(c *Config) { c.FragmentPath = "" },
		"odd samples":     func(c *Config) { c.MaxSamples = 3 },
		"shading range":   func(c *Config) { c.MinSampleShading = 1.5 },
		"hud without log": func(c *Config) { c.HUD = true; c.LogFile = "" },
	}
	for name, mutate := range tests {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestConfigLayers(t *testing.T) {
	cfg := DefaultConfig()
	if len(cfg.Layers()) != 1 {
		t.Errorf("expected validation layer, got %v", cfg.Layers())
	}
	cfg.Validation = false
	if cfg.Layers() != nil {
		t.Errorf("expected no layers, got %v", cfg.Layers())
	}
}

func TestSpinRotatesAboutZ(t *testing.T) {
	u := spin(1, 4.0/3.0)
	p := u.Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	if !p.ApproxEqualThreshold(mgl32.Vec4{0, 1, 0, 1}, 1e-5) {
		t.Errorf("expected a quarter turn after one second, got %v", p)
	}
	if z := u.Model.Mul4x1(mgl32.Vec4{0, 0, 1, 1}); !z.ApproxEqualThreshold(mgl32.Vec4{0, 0, 1, 1}, 1e-5) {
		t.Errorf("Z axis moved: %v", z)
	}
}

func TestSpinProjectionFlipsY(t *testing.T) {
	u := spin(0, 1)
	plain := mgl32.Perspective(mgl32.DegToRad(45), 1, 0.1, 10)
	if u.Proj[5] != -plain[5] {
		t.Errorf("expected flipped Y scale, got %f vs %f", u.Proj[5], plain[5])
	}
	// The eye sits at (2, 2, 2) looking at the origin.
	origin := u.View.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if d := origin.Vec3().Len(); d < 3.46 || d > 3.47 {
		t.Errorf("expected origin at distance sqrt(12), got %f", d)
	}
	if len(u.bytes()) != 3*16*4 {
		t.Errorf("expected 192 uniform bytes, got %d", len(u.bytes()))
	}
}

func TestVertexLayout(t *testing.T) {
	if vertexSize != 32 {
		t.Fatalf("expected packed 32 byte vertex, got %d", vertexSize)
	}
	attrs := vertexAttributes()
	offsets := []uint32{0, 12, 24}
	for n, a := range attrs {
		if a.Offset != offsets[n] || a.Location != uint32(n) {
			t.Errorf("attribute %d: location %d offset %d", n, a.Location, a.Offset)
		}
	}
	if vertexBinding().Stride != 32 {
		t.Errorf("expected stride 32")
	}
	if attrs[2].Format != vk.FormatR32g32Sfloat {
		t.Errorf("texture coordinates should be two floats")
	}

	vertices := []asset.Vertex{{}, {}}
	if len(vertexBytes(vertices)) != 64 {
		t.Errorf("expected 64 vertex bytes")
	}
	if len(indexBytes([]uint32{1, 2, 3})) != 12 {
		t.Errorf("expected 12 index bytes")
	}
	if vertexBytes(nil) != nil || indexBytes(nil) != nil {
		t.Errorf("expected nil for empty input")
	}
}

func TestFrameError(t *testing.T) {
	if frameError(nil) != nil {
		t.Errorf("nil must stay nil")
	}
	if frameError(pompeii.ErrOutOfDate) != frame.ErrOutOfDate {
		t.Errorf("out of date not mapped")
	}
	if frameError(pompeii.ErrSuboptimal) != frame.ErrSuboptimal {
		t.Errorf("suboptimal not mapped")
	}
	if errors.Cause(frameError(errors.Wrap(pompeii.ErrTimeout, "acquire"))) != frame.ErrTimeout {
		t.Errorf("timeout not mapped")
	}
	other := errors.New("device lost")
	if frameError(other) != other {
		t.Errorf("other errors must pass through")
	}
	if !frame.IsStale(frameError(pompeii.ErrSuboptimal)) {
		t.Errorf("mapped suboptimal must be stale")
	}
}
