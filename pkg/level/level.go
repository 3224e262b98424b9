package level

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cfoust/odb/pkg/db"
	"github.com/cfoust/odb/pkg/fspath"
	"github.com/cfoust/odb/pkg/srsc"

	"github.com/rs/zerolog"
)

const (
	RecordNameAndDeps srsc.RecordType = 0x0100
	RecordLayers      srsc.RecordType = 0x0101
	RecordLayerGroups srsc.RecordType = 0x0102
)

// LayerGroup is a named set of layer ids. Groups only organize layers;
// nothing is resolved through them.
type LayerGroup struct {
	Name   string
	Layers []uint32
}

// Level ties a set of layers to the databases their textures come from. It
// serves no assets itself; every reference it hands out goes through one of
// its dependencies.
type Level struct {
	db.Unsupported

	Path      fspath.Path
	Name      string
	MaxWidth  uint32
	MaxHeight uint32
	Layers    []*Layer
	Groups    []LayerGroup

	logger       zerolog.Logger
	dependencies map[uint16]*db.Database
}

var _ db.Provider = (*Level)(nil)

func wrap(err error) error {
	if errors.Is(err, srsc.ErrIO) || errors.Is(err, srsc.ErrCorrupt) {
		return fmt.Errorf("%w: %w", db.ErrIO, err)
	}
	return err
}

// Load reads the level at path, loading every database it depends on
// through registry.
func Load(registry *db.Registry, path string) (*Level, error) {
	absolute, err := fspath.New(path).Absolute()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", db.ErrIO, err)
	}
	levelPath := absolute.AdjustCase()

	file, err := srsc.Open(levelPath.String())
	if err != nil {
		return nil, wrap(err)
	}
	defer file.Close()

	level := Level{
		Path:         levelPath,
		logger:       registry.Logger().With().Str("file", levelPath.File()).Logger(),
		dependencies: make(map[uint16]*db.Database),
	}

	err = level.readNameAndDeps(registry, file)
	if err != nil {
		return nil, fmt.Errorf("could not load level %s: %w", levelPath, wrap(err))
	}

	err = level.readLayers(file)
	if err != nil {
		return nil, fmt.Errorf("could not load level %s: %w", levelPath, wrap(err))
	}

	err = level.readLayerGroups(file)
	if err != nil {
		return nil, fmt.Errorf("could not load level %s: %w", levelPath, wrap(err))
	}

	level.logger.Debug().
		Str("name", level.Name).
		Int("layers", len(level.Layers)).
		Int("groups", len(level.Groups)).
		Int("dependencies", len(level.dependencies)).
		Msg("loaded level")

	return &level, nil
}

func (l *Level) readNameAndDeps(registry *db.Registry, file *srsc.File) error {
	p, err := file.ReadType(RecordNameAndDeps)
	if err != nil {
		return err
	}

	l.Name, err = p.GetString()
	if err != nil {
		return err
	}

	var count uint32
	err = p.Get(&l.MaxWidth, &l.MaxHeight, &count)
	if err != nil {
		return err
	}

	dir := l.Path.Dir()
	for i := uint32(0); i < count; i++ {
		var index uint16
		err = p.Get(&index)
		if err != nil {
			return err
		}

		err = srsc.Expect(&p, uint16(0))
		if err != nil {
			return err
		}

		raw, err := p.GetString()
		if err != nil {
			return err
		}

		if index == 0 {
			return fmt.Errorf("%w: level dependency %s uses reserved index 0", db.ErrMalformed, raw)
		}

		if _, ok := l.dependencies[index]; ok {
			return fmt.Errorf("%w: level dependency index %d used twice", db.ErrMalformed, index)
		}

		path := fspath.NewRelative(raw, dir).AdjustCase()
		database, err := registry.LoadDatabasePath(path, 1)
		if err != nil {
			return err
		}

		l.logger.Debug().
			Uint16("index", index).
			Str("path", path.String()).
			Msg("level dependency")

		l.dependencies[index] = database
	}

	return nil
}

func (l *Level) readLayers(file *srsc.File) error {
	p, err := file.ReadType(RecordLayers)
	if err != nil {
		return err
	}

	var count uint32
	err = p.Get(&count)
	if err != nil {
		return err
	}

	for i := uint32(0); i < count; i++ {
		layer, err := readLayerDefinition(&p)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		l.Layers = append(l.Layers, layer)
	}

	err = srsc.Expect(&p, uint32(1))
	if err != nil {
		return err
	}

	for _, layer := range l.Layers {
		data, err := p.GetCompressed()
		if err != nil {
			return fmt.Errorf("layer %s: %w", layer.Name, err)
		}

		err = layer.readPolyData(&data)
		if err != nil {
			return fmt.Errorf("layer %s: %w", layer.Name, err)
		}
	}

	return nil
}

// readLayerGroups reads the optional layer group record.
func (l *Level) readLayerGroups(file *srsc.File) error {
	index, ok := file.FindType(RecordLayerGroups)
	if !ok {
		return nil
	}

	p, err := file.Read(index)
	if err != nil {
		return err
	}

	var count uint32
	err = p.Get(&count)
	if err != nil {
		return err
	}

	for i := uint32(0); i < count; i++ {
		group := LayerGroup{}
		group.Name, err = p.GetString()
		if err != nil {
			return err
		}

		var layerCount uint32
		err = p.Get(&layerCount)
		if err != nil {
			return err
		}

		if uint64(layerCount)*4 > uint64(p.Len()) {
			return fmt.Errorf("%w: group %s lists %d layers", srsc.ErrIO, group.Name, layerCount)
		}

		group.Layers = make([]uint32, layerCount)
		err = p.Get(group.Layers)
		if err != nil {
			return err
		}

		l.Groups = append(l.Groups, group)
	}

	return nil
}

// GroupLayers returns the layers of the group at index i. Ids that name no
// layer are skipped.
func (l *Level) GroupLayers(i int) []*Layer {
	if i < 0 || i >= len(l.Groups) {
		return nil
	}

	var layers []*Layer
	for _, id := range l.Groups[i].Layers {
		layer, ok := l.LayerById(id)
		if !ok {
			l.logger.Warn().
				Str("group", l.Groups[i].Name).
				Uint32("layer", id).
				Msg("group refers to unknown layer")
			continue
		}
		layers = append(layers, layer)
	}

	return layers
}

func (l *Level) Dependency(index uint16) (db.Provider, error) {
	database, ok := l.dependencies[index]
	if !ok {
		return nil, fmt.Errorf("%w: level %s has no dependency with index %d", db.ErrNotFound, l.Name, index)
	}
	return database, nil
}

// DependencyIndices lists the declared dependency indices in ascending
// order.
func (l *Level) DependencyIndices() []uint16 {
	indices := make([]uint16, 0, len(l.dependencies))
	for index := range l.dependencies {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool {
		return indices[i] < indices[j]
	})
	return indices
}

func (l *Level) DependencyDatabase(index uint16) (*db.Database, bool) {
	database, ok := l.dependencies[index]
	return database, ok
}

func (l *Level) LayerById(id uint32) (*Layer, bool) {
	for _, layer := range l.Layers {
		if layer.Id == id {
			return layer, true
		}
	}
	return nil, false
}

// LayerTextures resolves every texture used by the layer at index through
// the level's dependencies.
func (l *Level) LayerTextures(index int) (map[db.Reference]*db.Texture, error) {
	if index < 0 || index >= len(l.Layers) {
		return nil, fmt.Errorf("%w: level %s has no layer %d", db.ErrNotFound, l.Name, index)
	}

	textures := make(map[db.Reference]*db.Texture)
	for _, ref := range l.Layers[index].TextureRefs() {
		texture, err := db.ResolveTexture(l, ref)
		if err != nil {
			return nil, fmt.Errorf("texture %s: %w", ref, err)
		}
		textures[ref] = texture
	}

	return textures, nil
}
