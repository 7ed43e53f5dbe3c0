package asset

import (
	"bufio"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Texture is tightly packed 8 bit RGBA, top row first.
type Texture struct {
	Width  int
	Height int
	Pixels []byte
}

func LoadTexture(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load texture")
	}
	defer f.Close()

	tex, err := DecodeTexture(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load texture %s", path)
	}
	return tex, nil
}

// DecodeTexture decodes PPM or any registered image format into RGBA.
func DecodeTexture(r io.Reader) (*Texture, error) {
	br := bufio.NewReader(r)
	var (
		img image.Image
		err error
	)
	if magic, _ := br.Peek(2); isPPM(magic) {
		img, err = ppm.Decode(br)
	} else {
		img, _, err = image.Decode(br)
	}
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	rgba := toRGBA(img)
	if rgba.Rect.Dx() == 0 || rgba.Rect.Dy() == 0 {
		return nil, errors.New("empty image")
	}

	return &Texture{
		Width:  rgba.Rect.Dx(),
		Height: rgba.Rect.Dy(),
		Pixels: rgba.Pix,
	}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == rgba.Rect.Dx()*4 {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	return rgba
}

// Size is the byte size of the pixel data.
func (t *Texture) Size() int {
	return len(t.Pixels)
}

func isPPM(magic []byte) bool {
	return len(magic) == 2 && magic[0] == 'P' && (magic[1] == '3' || magic[1] == '6')
}
