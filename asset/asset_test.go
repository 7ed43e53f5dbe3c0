package asset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

const quad = `# two triangles sharing an edge
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1
f 1/1/1 3/3/1 4/4/1
`

func TestParseOBJDeduplicates(t *testing.T) {
	vertices, indices, err := ParseOBJ(strings.NewReader(quad))
	if err != nil {
		t.Fatal(err)
	}
	if len(vertices) != 4 {
		t.Errorf("expected 4 unique vertices, got %d", len(vertices))
	}
	expected := []uint32{0, 1, 2, 0, 2, 3}
	if len(indices) != len(expected) {
		t.Fatalf("expected %d indices, got %d", len(expected), len(indices))
	}
	for n, want := range expected {
		if indices[n] != want {
			t.Errorf("index %d: expected %d, got %d", n, want, indices[n])
		}
	}
}

func TestParseOBJFlipsV(t *testing.T) {
	vertices, _, err := ParseOBJ(strings.NewReader(quad))
	if err != nil {
		t.Fatal(err)
	}
	if vertices[0].TexCoord != [2]float32{0, 1} {
		t.Errorf("expected flipped (0, 1), got %v", vertices[0].TexCoord)
	}
	if vertices[2].TexCoord != [2]float32{1, 0} {
		t.Errorf("expected flipped (1, 0), got %v", vertices[2].TexCoord)
	}
	for _, v := range vertices {
		if v.Color != [3]float32{1, 1, 1} {
			t.Errorf("expected white vertex, got %v", v.Color)
		}
	}
}

func TestParseOBJFansPolygons(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"
	vertices, indices, err := ParseOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(vertices) != 4 || len(indices) != 6 {
		t.Errorf("expected 4 vertices and 6 indices, got %d and %d", len(vertices), len(indices))
	}
}

func TestParseOBJNegativeIndices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 1 1 0\nf -3 -2 -1\n"
	vertices, _, err := ParseOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if vertices[2].Pos != [3]float32{1, 1, 0} {
		t.Errorf("expected last position, got %v", vertices[2].Pos)
	}
}

func TestParseOBJErrors(t *testing.T) {
	tests := map[string]string{
		"no faces":       "v 0 0 0\n",
		"out of range":   "v 0 0 0\nf 1 2 3\n",
		"bad number":     "v 0 x 0\n",
		"short face":     "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"bad texcoord":   "v 0 0 0\nv 1 0 0\nv 1 1 0\nf 1/1 2/1 3/1\n",
		"short position": "v 0 0\n",
	}
	for name, src := range tests {
		if _, _, err := ParseOBJ(strings.NewReader(src)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDecodeTexturePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	tex, err := DecodeTexture(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width != 3 || tex.Height != 2 {
		t.Fatalf("expected 3x2, got %dx%d", tex.Width, tex.Height)
	}
	if tex.Size() != 3*2*4 {
		t.Errorf("expected %d bytes, got %d", 3*2*4, tex.Size())
	}
	last := tex.Pixels[len(tex.Pixels)-4:]
	if last[0] != 10 || last[1] != 20 || last[2] != 30 || last[3] != 255 {
		t.Errorf("unexpected last pixel %v", last)
	}
}

func TestDecodeTexturePPM(t *testing.T) {
	src := append([]byte("P6\n2 1\n255\n"), 255, 0, 0, 0, 0, 255)
	tex, err := DecodeTexture(bytes.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width != 2 || tex.Height != 1 {
		t.Fatalf("expected 2x1, got %dx%d", tex.Width, tex.Height)
	}
	expected := []byte{255, 0, 0, 255, 0, 0, 255, 255}
	if !bytes.Equal(tex.Pixels, expected) {
		t.Errorf("expected %v, got %v", expected, tex.Pixels)
	}
}

func TestDecodeTextureRejectsGarbage(t *testing.T) {
	if _, err := DecodeTexture(strings.NewReader("not an image")); err == nil {
		t.Errorf("expected decode error")
	}
}
