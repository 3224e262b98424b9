package db

import (
	"fmt"
	"image"
	"image/color"

	"github.com/cfoust/odb/pkg/srsc"
)

const (
	RecordTexture srsc.RecordType = 0x0040
	RecordPalette srsc.RecordType = 0x0041

	PALETTE_SIZE = 256
)

const (
	TextureRaw uint16 = iota
	TextureCompressed
)

type TextureHeader struct {
	Width        uint16
	Height       uint16
	BitsPerPixel uint16
	AlphaBits    uint16
	Compression  uint16
}

// Palette is the shared color table of a texture container, used by 8-bit
// textures.
type Palette [PALETTE_SIZE]color.NRGBA

type Texture struct {
	assetBase
	TextureHeader

	// Always expanded to 32-bit color
	Image *image.NRGBA
}

func (t *Texture) Kind() Kind {
	return KindTexture
}

func (t *Texture) HasAlpha() bool {
	return t.AlphaBits > 0
}

func readPalette(file *srsc.File) (*Palette, error) {
	index, ok := file.Find(RecordPalette, 0)
	if !ok {
		return nil, fmt.Errorf("%w: texture container has no palette", ErrNotFound)
	}

	p, err := file.Read(index)
	if err != nil {
		return nil, err
	}

	palette := Palette{}
	for i := range palette {
		var red, green, blue byte
		err = p.Get(&red, &green, &blue)
		if err != nil {
			return nil, err
		}

		err = p.Skip(1)
		if err != nil {
			return nil, err
		}

		palette[i] = color.NRGBA{R: red, G: green, B: blue, A: 0xFF}
	}

	return &palette, nil
}

// expand scales a value of n bits to a full byte.
func expand(value uint16, bits uint) uint8 {
	if bits == 0 {
		return 0xFF
	}
	limit := uint16(1)<<bits - 1
	return uint8(uint32(value&limit) * 0xFF / uint32(limit))
}

func decodePixels(header TextureHeader, pixels []byte, palette func() (*Palette, error)) (*image.NRGBA, error) {
	width := int(header.Width)
	height := int(header.Height)
	bytesPerPixel := int(header.BitsPerPixel) / 8
	needed := width * height * bytesPerPixel

	if len(pixels) < needed {
		return nil, fmt.Errorf(
			"%w: texture needs %d bytes of pixel data, got %d",
			srsc.ErrCorrupt,
			needed,
			len(pixels),
		)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))

	switch header.BitsPerPixel {
	case 8:
		colors, err := palette()
		if err != nil {
			return nil, err
		}

		for i := 0; i < width*height; i++ {
			c := colors[pixels[i]]
			copy(img.Pix[i*4:], []byte{c.R, c.G, c.B, c.A})
		}
	case 16:
		for i := 0; i < width*height; i++ {
			value := uint16(pixels[i*2]) | uint16(pixels[i*2+1])<<8

			var c color.NRGBA
			switch header.AlphaBits {
			case 1:
				c = color.NRGBA{
					R: expand(value>>10, 5),
					G: expand(value>>5, 5),
					B: expand(value, 5),
					A: expand(value>>15, 1),
				}
			case 4:
				c = color.NRGBA{
					R: expand(value>>8, 4),
					G: expand(value>>4, 4),
					B: expand(value, 4),
					A: expand(value>>12, 4),
				}
			default:
				c = color.NRGBA{
					R: expand(value>>11, 5),
					G: expand(value>>5, 6),
					B: expand(value, 5),
					A: 0xFF,
				}
			}

			copy(img.Pix[i*4:], []byte{c.R, c.G, c.B, c.A})
		}
	case 24:
		for i := 0; i < width*height; i++ {
			copy(img.Pix[i*4:], pixels[i*3:i*3+3])
			img.Pix[i*4+3] = 0xFF
		}
	case 32:
		copy(img.Pix, pixels[:needed])
		if header.AlphaBits == 0 {
			for i := 3; i < len(img.Pix); i += 4 {
				img.Pix[i] = 0xFF
			}
		}
	default:
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrUnsupported, header.BitsPerPixel)
	}

	return img, nil
}

func (d *Database) loadTexture(file *srsc.File, id LocalId) (*Texture, error) {
	index, ok := file.Find(RecordTexture, id)
	if !ok {
		return nil, notFound(KindTexture, id)
	}

	p, err := file.Read(index)
	if err != nil {
		return nil, err
	}

	texture := Texture{
		assetBase: assetBase{db: d, id: id},
	}

	err = p.Get(&texture.TextureHeader)
	if err != nil {
		return nil, err
	}

	var pixels srsc.Buffer
	switch texture.Compression {
	case TextureRaw:
		pixels = p
	case TextureCompressed:
		pixels, err = p.GetCompressed()
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: texture compression %d", ErrUnsupported, texture.Compression)
	}

	texture.Image, err = decodePixels(texture.TextureHeader, pixels, func() (*Palette, error) {
		return d.palette.Get(0)
	})
	if err != nil {
		return nil, err
	}

	return &texture, nil
}
