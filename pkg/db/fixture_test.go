package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cfoust/odb/pkg/srsc"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fixture lays out databases in a temporary directory.
type fixture struct {
	t   *testing.T
	dir string
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		t:   t,
		dir: t.TempDir(),
	}
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, filepath.FromSlash(name))
}

func (f *fixture) write(name string, data []byte) string {
	path := f.path(name)
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(f.t, os.WriteFile(path, data, 0644))
	return path
}

// definition writes a definition file from its lines.
func (f *fixture) definition(name string, lines ...string) string {
	return f.write(name, []byte(strings.Join(lines, "\n")+"\n"))
}

func (f *fixture) container(name string, w *srsc.Writer) string {
	data, err := w.Bytes()
	require.NoError(f.t, err)
	return f.write(name, data)
}

func (f *fixture) registry(opts ...Option) *Registry {
	registry := NewRegistry(append([]Option{WithLogger(zerolog.Nop())}, opts...)...)
	f.t.Cleanup(func() {
		registry.Close()
	})
	return registry
}

type record struct {
	t *testing.T
	srsc.Buffer
}

func newRecord(t *testing.T) *record {
	return &record{t: t}
}

func (r *record) put(pieces ...interface{}) *record {
	require.NoError(r.t, r.Put(pieces...))
	return r
}

func (r *record) str(value string) *record {
	require.NoError(r.t, r.PutString(value))
	return r
}

func (r *record) ref(ref Reference) *record {
	require.NoError(r.t, ref.Put(&r.Buffer))
	return r
}

func (r *record) compressed(data []byte) *record {
	require.NoError(r.t, r.PutCompressed(data))
	return r
}

func (r *record) bytes() []byte {
	return r.Buffer
}

func paletteRecord(t *testing.T) []byte {
	r := newRecord(t)
	for i := 0; i < PALETTE_SIZE; i++ {
		r.put([]byte{byte(i), byte(255 - i), 7, 0})
	}
	return r.bytes()
}

func textureRecord(t *testing.T, header TextureHeader, pixels []byte) []byte {
	r := newRecord(t).put(header)
	if header.Compression == TextureCompressed {
		return r.compressed(pixels).bytes()
	}
	r.PutBytes(pixels)
	return r.bytes()
}

// textures builds a texture container with a palette and one 2x1 24-bit
// texture for every id.
func textures(t *testing.T, ids ...LocalId) *srsc.Writer {
	w := srsc.NewWriter()
	w.Add(RecordPalette, 0, 0, paletteRecord(t))
	for _, id := range ids {
		w.Add(RecordTexture, id, 0, textureRecord(t, TextureHeader{
			Width:        2,
			Height:       1,
			BitsPerPixel: 24,
		}, []byte{1, 2, 3, 4, 5, 6}))
	}
	return w
}

func classRecord(t *testing.T, name string, model Reference, fields ...ClassField) []byte {
	r := newRecord(t).str(name).ref(model).put(uint16(12), uint16(3), uint16(len(fields)))
	for _, field := range fields {
		r.put(field.Type).str(field.Name)
		switch field.Type {
		case FieldInteger, FieldEnum:
			r.put(field.Int)
		case FieldFloat:
			r.put(field.Float)
		case FieldString:
			r.str(field.Str)
		default:
			r.ref(field.Ref)
		}
	}
	return r.bytes()
}

// addModel adds a single-triangle model. Extra records can be appended by
// the caller.
func addModel(t *testing.T, w *srsc.Writer, id LocalId, texture Reference) {
	w.Add(RecordModelName, id, 0, newRecord(t).str("Tree").put(uint32(shadingSmooth|shadingShiny)).bytes())
	w.Add(RecordModelVertices, id, 0, newRecord(t).put(uint16(3), []Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
	}).bytes())
	w.Add(RecordModelTextures, id, 0, newRecord(t).
		put(uint32(2)).
		ref(NullReference).
		ref(texture).
		bytes())

	polygons := newRecord(t).put(uint16(1), uint16(polygonDoubleSided), uint16(3), uint16(0))
	for i := uint16(0); i < 3; i++ {
		polygons.put(i, Vec2{float32(i), 0.5})
	}
	w.Add(RecordModelPolygons, id, 0, polygons.bytes())
}
