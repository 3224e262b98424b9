package db

import (
	"fmt"

	"github.com/cfoust/odb/pkg/srsc"
)

const (
	RecordModelName     srsc.RecordType = 0x0200
	RecordModelVertices srsc.RecordType = 0x0201
	RecordModelTextures srsc.RecordType = 0x0202
	RecordModelPolygons srsc.RecordType = 0x0203
	RecordModelLodBones srsc.RecordType = 0x0204
	RecordModelBounding srsc.RecordType = 0x0205
)

// How far past the name record the other model records may be.
const DEFAULT_MODEL_SEARCH_WINDOW = 8

type ShadingType uint8

const (
	ShadingNone ShadingType = iota
	ShadingFlat
	ShadingSmooth
)

const (
	shadingFlat           = 0x01
	shadingSmooth         = 0x02
	shadingBlendLand      = 0x04
	shadingShiny          = 0x08
	shadingAdditive       = 0x10
	shadingEnvironmentMap = 0x20

	polygonDoubleSided = 0x02
)

type Vec2 struct {
	X, Y float32
}

type Vec3 struct {
	X, Y, Z float32
}

type Quat struct {
	X, Y, Z, W float32
}

// Mat3x4 is a row-major affine transform.
type Mat3x4 [12]float32

type BoundingSphere struct {
	Center Vec3
	Radius float32
}

type OrientedBoundingBox struct {
	Center      Vec3
	Extents     Vec3
	Orientation [9]float32
}

type Polygon struct {
	DoubleSided   bool
	Texture       Reference
	VertexIndices []uint16
	UVCoords      []Vec2
}

type ShapeType uint16

const (
	ShapeSpheres ShapeType = iota
	ShapeBoxes
)

type BoundsNode struct {
	FirstChild  uint16
	NextSibling uint16
}

// ModelBounds is a hierarchy of collision shapes for one LOD.
type ModelBounds struct {
	Type       ShapeType
	MainSphere BoundingSphere
	MainBox    OrientedBoundingBox
	Hierarchy  []BoundsNode
	Spheres    []BoundingSphere
	Boxes      []OrientedBoundingBox
}

type BoneAffection struct {
	JointIndex  int
	VertexIndex uint32
	Weight      float32
}

type Joint struct {
	InverseBindPose Mat3x4
	MeshIndex       int32
	FirstChild      int32
	NextSibling     int32
	Channel         bool
}

type JointName struct {
	Name       string
	JointIndex int32
}

type LodMesh struct {
	Name              string
	DistanceThreshold float32
	Usage             uint32
	NodeIndex         uint32
	FirstVertex       uint32
	VertexCount       uint32
	FirstPolygon      uint32
	PolygonCount      uint32
	BoneAffections    []BoneAffection
}

type Model struct {
	assetBase

	Name               string
	Shading            ShadingType
	BlendWithLandscape bool
	Shiny              bool
	AdditiveBlending   bool
	EnvironmentMapped  bool

	Vertices   []Vec3
	Textures   []Reference
	Polygons   []Polygon
	Bounds     []ModelBounds
	Lods       []LodMesh
	JointNames []JointName
	Joints     []Joint
	Animations []Reference
}

func (m *Model) Kind() Kind {
	return KindModel
}

func (m *Model) HasSkeleton() bool {
	return len(m.Joints) > 0
}

func (m *Model) readNameAndShading(p *srsc.Buffer) error {
	var err error
	m.Name, err = p.GetString()
	if err != nil {
		return err
	}

	var flags uint32
	err = p.Get(&flags)
	if err != nil {
		return err
	}

	switch flags & (shadingFlat | shadingSmooth) {
	case shadingSmooth:
		m.Shading = ShadingSmooth
	case shadingFlat:
		m.Shading = ShadingFlat
	default:
		// Neither or both
		m.Shading = ShadingNone
	}

	m.EnvironmentMapped = flags&shadingEnvironmentMap != 0
	m.AdditiveBlending = flags&shadingAdditive != 0
	m.Shiny = flags&shadingShiny != 0
	m.BlendWithLandscape = flags&shadingBlendLand != 0
	return nil
}

func (m *Model) readVertices(p *srsc.Buffer) error {
	var count uint16
	err := p.Get(&count)
	if err != nil {
		return err
	}

	m.Vertices = make([]Vec3, count)
	return p.Get(m.Vertices)
}

func (m *Model) readTextures(p *srsc.Buffer) error {
	var count uint32
	err := p.Get(&count)
	if err != nil {
		return err
	}

	for i := uint32(0); i < count; i++ {
		ref, err := ReadReference(p)
		if err != nil {
			return err
		}

		if ref.IsNull() {
			continue
		}
		m.Textures = append(m.Textures, ref)
	}

	return nil
}

func (m *Model) readPolygons(p *srsc.Buffer) error {
	var count uint16
	err := p.Get(&count)
	if err != nil {
		return err
	}

	m.Polygons = make([]Polygon, 0, count)
	for i := 0; i < int(count); i++ {
		var flags, vertexCount, textureIndex uint16
		err = p.Get(&flags, &vertexCount, &textureIndex)
		if err != nil {
			return err
		}

		if vertexCount != 3 && vertexCount != 4 {
			return fmt.Errorf("%w: polygon with %d vertices", ErrUnsupported, vertexCount)
		}

		if int(textureIndex) >= len(m.Textures) {
			return fmt.Errorf(
				"%w: polygon %d uses texture %d of %d",
				srsc.ErrCorrupt,
				i,
				textureIndex,
				len(m.Textures),
			)
		}

		polygon := Polygon{
			DoubleSided:   flags&polygonDoubleSided != 0,
			Texture:       m.Textures[textureIndex],
			VertexIndices: make([]uint16, vertexCount),
			UVCoords:      make([]Vec2, vertexCount),
		}

		for j := range polygon.VertexIndices {
			err = p.Get(&polygon.VertexIndices[j], &polygon.UVCoords[j])
			if err != nil {
				return err
			}
		}

		m.Polygons = append(m.Polygons, polygon)
	}

	return nil
}

func (m *Model) readBounding(p *srsc.Buffer) error {
	bounds := ModelBounds{}

	var shapeCount, shapeType uint16
	err := p.Get(&bounds.MainSphere, &bounds.MainBox, &shapeCount, &shapeType)
	if err != nil {
		return err
	}

	bounds.Type = ShapeBoxes
	if shapeType == 0 {
		bounds.Type = ShapeSpheres
	}

	bounds.Hierarchy = make([]BoundsNode, shapeCount)
	err = p.Get(bounds.Hierarchy)
	if err != nil {
		return err
	}

	for i := 0; i < int(shapeCount); i++ {
		if bounds.Type == ShapeSpheres {
			sphere := BoundingSphere{}
			err = p.Get(&sphere)
			if err != nil {
				return err
			}
			bounds.Spheres = append(bounds.Spheres, sphere)
			continue
		}

		box := OrientedBoundingBox{}
		var polygonCount uint16
		err = p.Get(&box, &polygonCount)
		if err != nil {
			return err
		}

		err = p.Skip(int(polygonCount) * 2)
		if err != nil {
			return err
		}
		bounds.Boxes = append(bounds.Boxes, box)
	}

	m.Bounds = append(m.Bounds, bounds)
	return nil
}

func readAffections(p *srsc.Buffer, joint int) ([]BoneAffection, error) {
	var count uint16
	err := p.Get(&count)
	if err != nil {
		return nil, err
	}

	affections := make([]BoneAffection, count)
	for i := range affections {
		affections[i].JointIndex = joint
		err = p.Get(&affections[i].VertexIndex, &affections[i].Weight)
		if err != nil {
			return nil, err
		}
	}

	return affections, nil
}

func (m *Model) readLodsAndBones(p *srsc.Buffer) error {
	var mainSphere BoundingSphere
	var mainBox OrientedBoundingBox
	var lodCount uint16
	err := p.Get(&mainSphere, &mainBox, &lodCount)
	if err != nil {
		return err
	}

	if lodCount == 0 {
		return fmt.Errorf("%w: model %s has no LODs", srsc.ErrCorrupt, m.Name)
	}

	m.Lods = make([]LodMesh, lodCount)
	m.Lods[0].Name = m.Name
	for i := 1; i < int(lodCount); i++ {
		m.Lods[i].Name, err = p.GetString()
		if err != nil {
			return err
		}
	}

	var nodeCount uint16
	err = p.Get(&nodeCount)
	if err != nil {
		return err
	}

	m.JointNames = make([]JointName, nodeCount)
	for i := range m.JointNames {
		m.JointNames[i].Name, err = p.GetFixedString(32)
		if err != nil {
			return err
		}

		err = p.Get(&m.JointNames[i].JointIndex)
		if err != nil {
			return err
		}
	}

	var jointCount uint16
	err = p.Get(&jointCount)
	if err != nil {
		return err
	}

	m.Joints = make([]Joint, jointCount)
	for i := range m.Joints {
		joint := &m.Joints[i]
		err = p.Get(&joint.InverseBindPose, &joint.MeshIndex, &joint.FirstChild, &joint.NextSibling)
		if err != nil {
			return err
		}

		// One list of affected vertices per LOD
		for lod := range m.Lods {
			affections, err := readAffections(p, i)
			if err != nil {
				return err
			}
			m.Lods[lod].BoneAffections = append(m.Lods[lod].BoneAffections, affections...)
		}
	}

	for lod := range m.Lods {
		var meshCount uint16
		err = p.Get(&meshCount)
		if err != nil {
			return err
		}

		if meshCount != 1 {
			return fmt.Errorf("%w: LOD with %d meshes", ErrUnsupported, meshCount)
		}

		mesh := &m.Lods[lod]
		err = p.Get(
			&mesh.DistanceThreshold,
			&mesh.Usage,
			&mesh.NodeIndex,
			&mesh.FirstVertex,
			&mesh.VertexCount,
			&mesh.FirstPolygon,
			&mesh.PolygonCount,
		)
		if err != nil {
			return err
		}
	}

	var animationCount uint16
	err = p.Get(&animationCount)
	if err != nil {
		return err
	}

	// Usually local, but nothing stops them from pointing elsewhere
	m.Animations = make([]Reference, animationCount)
	for i := range m.Animations {
		m.Animations[i], err = ReadReference(p)
		if err != nil {
			return err
		}
	}

	var channelCount uint16
	err = p.Get(&channelCount)
	if err != nil {
		return err
	}

	for i := 0; i < int(channelCount); i++ {
		var jointIndex uint32
		var transformA, transformB Mat3x4
		var capCount uint16
		err = p.Get(&jointIndex, &transformA, &transformB, &capCount)
		if err != nil {
			return err
		}

		if int(jointIndex) < len(m.Joints) {
			m.Joints[jointIndex].Channel = true
		}

		for j := 0; j < int(capCount); j++ {
			// Cap and part polygon ranges, then an unknown word
			err = p.Skip(5 * 4)
			if err != nil {
				return err
			}

			_, err = readAffections(p, int(jointIndex))
			if err != nil {
				return err
			}
		}
	}

	err = srsc.Expect(p, lodCount)
	if err != nil {
		return err
	}

	for lod := 0; lod < int(lodCount); lod++ {
		var sphereCount uint16
		err = p.Get(&sphereCount)
		if err != nil {
			return err
		}

		bounds := ModelBounds{
			Type:       ShapeSpheres,
			MainSphere: mainSphere,
			MainBox:    mainBox,
		}

		for i := 0; i < int(sphereCount); i++ {
			var node BoundsNode
			var vertex uint32
			var radius float32
			var channel uint16
			err = p.Get(&node, &vertex, &radius, &channel)
			if err != nil {
				return err
			}

			err = p.Skip(2)
			if err != nil {
				return err
			}

			if int(vertex) >= len(m.Vertices) {
				m.db.logger.Warn().
					Str("model", m.Name).
					Uint32("vertex", vertex).
					Msg("bounding sphere center out of range")
				continue
			}

			bounds.Hierarchy = append(bounds.Hierarchy, node)
			bounds.Spheres = append(bounds.Spheres, BoundingSphere{
				Center: m.Vertices[vertex],
				Radius: radius,
			})
		}

		m.Bounds = append(m.Bounds, bounds)
	}

	return nil
}

func (d *Database) loadModel(file *srsc.File, id LocalId) (*Model, error) {
	nameIndex, ok := file.Find(RecordModelName, id)
	if !ok {
		return nil, notFound(KindModel, id)
	}

	model := Model{
		assetBase: assetBase{db: d, id: id},
	}

	type modelRecord struct {
		record   srsc.RecordType
		required bool
		read     func(*srsc.Buffer) error
	}

	// Polygons refer to vertices and textures, so order matters
	parts := []modelRecord{
		{RecordModelVertices, true, model.readVertices},
		{RecordModelTextures, true, model.readTextures},
		{RecordModelPolygons, true, model.readPolygons},
		{RecordModelLodBones, false, model.readLodsAndBones},
		{RecordModelBounding, false, model.readBounding},
	}

	p, err := file.Read(nameIndex)
	if err != nil {
		return nil, err
	}

	err = model.readNameAndShading(&p)
	if err != nil {
		return nil, err
	}

	for _, part := range parts {
		index, ok := file.FindNext(nameIndex, part.record, id, d.registry.modelSearchWindow)
		if !ok {
			if part.required {
				return nil, fmt.Errorf(
					"%w: model %d has no record 0x%04x after its name",
					srsc.ErrCorrupt,
					id,
					part.record,
				)
			}
			continue
		}

		p, err := file.Read(index)
		if err != nil {
			return nil, err
		}

		err = part.read(&p)
		if err != nil {
			return nil, fmt.Errorf("model %d record 0x%04x: %w", id, part.record, err)
		}
	}

	return &model, nil
}
