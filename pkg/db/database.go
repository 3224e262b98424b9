package db

import (
	"fmt"
	"sort"

	"github.com/cfoust/odb/pkg/fspath"
	"github.com/cfoust/odb/pkg/srsc"

	"github.com/rs/zerolog"
)

// Database is one definition file plus whichever per-kind containers exist
// next to it.
type Database struct {
	registry *Registry
	handle   Handle
	path     fspath.Path
	version  uint32
	logger   zerolog.Logger

	// Declared index -> handle in the owning registry
	dependencies map[uint16]Handle

	containers [numKinds]*srsc.File

	palette    *Cache[*Palette]
	textures   *Cache[*Texture]
	classes    *Cache[*Class]
	models     *Cache[*Model]
	animations *Cache[*Animation]
	sounds     *Cache[*Sound]
	sequences  *Cache[*Sequence]
}

var _ Provider = (*Database)(nil)

// cached binds a kind's loader to its container, wrapping container errors.
func cached[T any](logger zerolog.Logger, kind Kind, file *srsc.File, load func(*srsc.File, LocalId) (T, error)) *Cache[T] {
	return NewCache(kind, func(id LocalId) (T, error) {
		asset, err := load(file, id)
		if err != nil {
			var empty T
			return empty, wrapContainer(err)
		}

		logger.Debug().Str("kind", kind.String()).Uint32("id", uint32(id)).Msg("loaded asset")
		return asset, nil
	})
}

// attach wires up the cache for a kind whose container was found.
func (d *Database) attach(kind Kind, file *srsc.File) {
	d.containers[kind] = file

	switch kind {
	case KindTexture:
		d.palette = cached(d.logger, kind, file, func(file *srsc.File, _ LocalId) (*Palette, error) {
			return readPalette(file)
		})
		d.textures = cached(d.logger, kind, file, d.loadTexture)
	case KindClass:
		d.classes = cached(d.logger, kind, file, d.loadClass)
	case KindModel:
		d.models = cached(d.logger, kind, file, d.loadModel)
	case KindAnimation:
		d.animations = cached(d.logger, kind, file, d.loadAnimation)
	case KindSound:
		d.sounds = cached(d.logger, kind, file, d.loadSound)
	case KindSequence:
		d.sequences = cached(d.logger, kind, file, d.loadSequence)
	}
}

func (d *Database) Path() fspath.Path {
	return d.path
}

// ShortName is the definition file name without its extension.
func (d *Database) ShortName() string {
	return d.path.FileNoExt()
}

func (d *Database) Handle() Handle {
	return d.handle
}

func (d *Database) Version() uint32 {
	return d.version
}

func (d *Database) Registry() *Registry {
	return d.registry
}

func (d *Database) String() string {
	return d.path.String()
}

// Serves reports whether the container for kind was found when the
// database was loaded.
func (d *Database) Serves(kind Kind) bool {
	return kind.Valid() && d.containers[kind] != nil
}

// Container returns the opened container for kind, if any.
func (d *Database) Container(kind Kind) (*srsc.File, bool) {
	if !d.Serves(kind) {
		return nil, false
	}
	return d.containers[kind], true
}

// DependencyIndices lists the declared dependency indices in ascending
// order. Skipped self-dependencies are not included.
func (d *Database) DependencyIndices() []uint16 {
	indices := make([]uint16, 0, len(d.dependencies))
	for index := range d.dependencies {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool {
		return indices[i] < indices[j]
	})
	return indices
}

func (d *Database) DependencyDatabase(index uint16) (*Database, error) {
	handle, ok := d.dependencies[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no dependency with index %d", ErrNotFound, d.ShortName(), index)
	}

	return d.registry.Get(handle)
}

func (d *Database) Dependency(index uint16) (Provider, error) {
	dependency, err := d.DependencyDatabase(index)
	if err != nil {
		return nil, err
	}
	return dependency, nil
}

func (d *Database) missing(kind Kind) error {
	return fmt.Errorf("%w: %s has no %s container", ErrNotFound, d.ShortName(), kind)
}

// get returns the asset from cache, or fails if kind has no container.
func get[T any](d *Database, kind Kind, cache *Cache[T], id LocalId) (T, error) {
	if cache == nil {
		var empty T
		return empty, d.missing(kind)
	}
	return cache.Get(id)
}

func (d *Database) Texture(id LocalId) (*Texture, error) {
	return get(d, KindTexture, d.textures, id)
}

func (d *Database) Class(id LocalId) (*Class, error) {
	return get(d, KindClass, d.classes, id)
}

func (d *Database) Model(id LocalId) (*Model, error) {
	return get(d, KindModel, d.models, id)
}

func (d *Database) Animation(id LocalId) (*Animation, error) {
	return get(d, KindAnimation, d.animations, id)
}

func (d *Database) Sound(id LocalId) (*Sound, error) {
	return get(d, KindSound, d.sounds, id)
}

func (d *Database) Sequence(id LocalId) (*Sequence, error) {
	return get(d, KindSequence, d.sequences, id)
}

// Get is the direct getter for a kind only known at runtime.
func (d *Database) Get(kind Kind, id LocalId) (Asset, error) {
	switch kind {
	case KindTexture:
		return asAsset(d.Texture(id))
	case KindClass:
		return asAsset(d.Class(id))
	case KindModel:
		return asAsset(d.Model(id))
	case KindAnimation:
		return asAsset(d.Animation(id))
	case KindSound:
		return asAsset(d.Sound(id))
	case KindSequence:
		return asAsset(d.Sequence(id))
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind)
}

// Ids lists the ids of every record of kind in the database's container.
// Models are listed by their name records.
func (d *Database) Ids(kind Kind) []LocalId {
	file, ok := d.Container(kind)
	if !ok {
		return nil
	}

	type_ := recordTypes[kind]
	var ids []LocalId
	for _, record := range file.Records() {
		if record.Type == type_ {
			ids = append(ids, record.Id)
		}
	}
	return ids
}

// The record that names an asset of each kind
var recordTypes = [numKinds]srsc.RecordType{
	KindTexture:   RecordTexture,
	KindClass:     RecordClass,
	KindModel:     RecordModelName,
	KindAnimation: RecordAnimation,
	KindSound:     RecordSound,
	KindSequence:  RecordSequence,
}

func (d *Database) close() error {
	var result error
	for kind, file := range d.containers {
		if file == nil {
			continue
		}

		err := file.Close()
		if err != nil && result == nil {
			result = fmt.Errorf("closing %s container: %w", Kind(kind), err)
		}
	}
	return result
}
