package level

import (
	"fmt"
	"image/color"

	"github.com/cfoust/odb/pkg/db"
	"github.com/cfoust/odb/pkg/srsc"
)

type LayerType uint32

const (
	LayerFloor LayerType = iota
	LayerCeiling
	LayerBetween
)

type LightDropoff uint32

const (
	DropoffNone LightDropoff = iota
	DropoffNarrow
	DropoffNormal
	DropoffWide
)

// Heights are stored biased so they fit in a u16.
const HEIGHT_BIAS = 0x8000

type Vertex struct {
	Type uint8
	// Relative to the layer's world height
	HeightOffset int32
}

type Cell struct {
	Flags        uint16
	LeftTexture  db.Reference
	RightTexture db.Reference
	TexCoords    [8]uint16
}

type Layer struct {
	Id     uint32
	Width  uint32
	Height uint32
	Type   LayerType

	OriginX     int32
	OriginZ     int32
	WorldHeight float32
	Name        string
	Flags       uint32

	LightDirection float32
	LightAscension float32
	LightColor     color.NRGBA
	AmbientColor   color.NRGBA
	LightDropoff   LightDropoff

	VisibleLayers []uint32

	// (Width+1)*(Height+1) corners, row-major
	Vertices []Vertex
	// Width*Height cells, each split into a left and a right triangle
	Cells []Cell
}

func unpackColor(value uint32) color.NRGBA {
	return color.NRGBA{
		R: uint8(value >> 16),
		G: uint8(value >> 8),
		B: uint8(value),
		A: 0xFF,
	}
}

func readLayerDefinition(p *srsc.Buffer) (*Layer, error) {
	layer := Layer{}

	err := p.Get(
		&layer.Id,
		&layer.Width,
		&layer.Height,
		&layer.Type,
		&layer.OriginX,
		&layer.OriginZ,
		&layer.WorldHeight,
	)
	if err != nil {
		return nil, err
	}

	layer.Name, err = p.GetString()
	if err != nil {
		return nil, err
	}

	var lightColor, ambientColor, visibleCount uint32
	err = p.Get(
		&layer.Flags,
		&layer.LightDirection,
		&layer.LightAscension,
		&lightColor,
		&ambientColor,
		&layer.LightDropoff,
		&visibleCount,
	)
	if err != nil {
		return nil, err
	}

	layer.LightColor = unpackColor(lightColor)
	layer.AmbientColor = unpackColor(ambientColor)

	if int64(visibleCount)*4 > int64(p.Len()) {
		return nil, fmt.Errorf("%w: layer %s lists %d visible layers", srsc.ErrIO, layer.Name, visibleCount)
	}

	layer.VisibleLayers = make([]uint32, visibleCount)
	err = p.Get(layer.VisibleLayers)
	if err != nil {
		return nil, err
	}

	return &layer, nil
}

func (l *Layer) readPolyData(p *srsc.Buffer) error {
	vertexCount := int64(l.Width+1) * int64(l.Height+1)
	cellCount := int64(l.Width) * int64(l.Height)

	// 4 bytes per vertex, 30 per cell
	if vertexCount*4+cellCount*30 > int64(p.Len()) {
		return fmt.Errorf("%w: layer %s is too small for %dx%d", srsc.ErrCorrupt, l.Name, l.Width, l.Height)
	}

	l.Vertices = make([]Vertex, vertexCount)
	for i := range l.Vertices {
		var height uint16
		err := p.Get(&l.Vertices[i].Type)
		if err != nil {
			return err
		}

		err = p.Skip(1)
		if err != nil {
			return err
		}

		err = p.Get(&height)
		if err != nil {
			return err
		}

		l.Vertices[i].HeightOffset = int32(height) - HEIGHT_BIAS
	}

	l.Cells = make([]Cell, cellCount)
	for i := range l.Cells {
		cell := &l.Cells[i]
		err := p.Get(&cell.Flags)
		if err != nil {
			return err
		}

		cell.LeftTexture, err = db.ReadReference(p)
		if err != nil {
			return err
		}

		cell.RightTexture, err = db.ReadReference(p)
		if err != nil {
			return err
		}

		err = p.Get(&cell.TexCoords)
		if err != nil {
			return err
		}
	}

	return nil
}

// VertexAt returns the corner at column x and row z.
func (l *Layer) VertexAt(x, z int) (Vertex, bool) {
	if x < 0 || z < 0 || x > int(l.Width) || z > int(l.Height) {
		return Vertex{}, false
	}
	return l.Vertices[z*int(l.Width+1)+x], true
}

// Triangles counts the triangles that are present, and how many of those
// are invisible.
func (l *Layer) Triangles() (present, invisible int) {
	for _, cell := range l.Cells {
		for _, ref := range []db.Reference{cell.LeftTexture, cell.RightTexture} {
			if ref == db.NoTexture {
				continue
			}

			present++
			if ref.IsInvisibleTexture() {
				invisible++
			}
		}
	}
	return
}

// TextureRefs lists every distinct texture the layer's cells use, in the
// order they first appear.
func (l *Layer) TextureRefs() []db.Reference {
	seen := make(map[db.Reference]struct{})
	var refs []db.Reference
	for _, cell := range l.Cells {
		for _, ref := range []db.Reference{cell.LeftTexture, cell.RightTexture} {
			if ref.IsNullTexture() {
				continue
			}

			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}
