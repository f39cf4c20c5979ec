package resolver

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/ohler55/ojg/oj"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/webp"
)

type imageDecoder func(io.Reader) (image.Image, error)

// decoders is keyed by lowercase file extension. TGA has no magic number,
// so decoding always goes by extension rather than image.Decode sniffing.
var decoders = map[string]imageDecoder{
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".gif":  gif.Decode,
	".bmp":  bmp.Decode,
	".webp": webp.Decode,
	".tga":  tga.Decode,
}

// LoadTexture decodes the image at p into NRGBA.
func LoadTexture(fs billy.Filesystem, p string) (*image.NRGBA, error) {
	ext := strings.ToLower(path.Ext(p))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("texture: %w: extension %q", ErrUnsupported, ext)
	}

	raw, err := util.ReadFile(fs, p)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", p, err)
	}
	img, err := decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", p, err)
	}
	return toNRGBA(img), nil
}

// toNRGBA converts any image to NRGBA.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

// Fit scales img down so neither side exceeds maxSide. Smaller images are
// returned as is.
func Fit(img *image.NRGBA, maxSide int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return img
	}
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeWebP writes img as a lossless WebP.
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("texture: encode webp: %w", err)
	}
	return nil
}

// LoadFont parses a TrueType or OpenType font. For collections the first
// face is returned.
func LoadFont(fs billy.Filesystem, p string) (*sfnt.Font, error) {
	raw, err := util.ReadFile(fs, p)
	if err != nil {
		return nil, fmt.Errorf("font: read %s: %w", p, err)
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".ttc", ".otc":
		c, err := sfnt.ParseCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("font: parse collection %s: %w", p, err)
		}
		f, err := c.Font(0)
		if err != nil {
			return nil, fmt.Errorf("font: %s: %w", p, err)
		}
		return f, nil
	default:
		f, err := sfnt.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("font: parse %s: %w", p, err)
		}
		return f, nil
	}
}

// LoadJSON parses the JSON document at p.
func LoadJSON(fs billy.Filesystem, p string) (any, error) {
	raw, err := util.ReadFile(fs, p)
	if err != nil {
		return nil, fmt.Errorf("json: read %s: %w", p, err)
	}
	v, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("json: parse %s: %w", p, err)
	}
	return v, nil
}
