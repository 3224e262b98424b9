package db

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cfoust/odb/pkg/srsc"

	"github.com/repeale/fp-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDeduplicates(t *testing.T) {
	f := newFixture(t)
	path := f.definition("Levels/Dragon.db", "version 1", "dependencies 0")
	registry := f.registry()

	first, err := registry.LoadDatabase(path)
	require.NoError(t, err)

	variants := []string{
		f.dir + "/levels/DRAGON.DB",
		f.dir + "/Levels/missing/../Dragon.db",
		f.dir + "//Levels/./dragon.db",
		strings.ReplaceAll(f.dir+"/LEVELS/Dragon.db", "/", "\\"),
	}

	for _, variant := range variants {
		database, err := registry.LoadDatabase(variant)
		require.NoError(t, err, variant)
		assert.Same(t, first, database, variant)
	}

	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, "Dragon", first.ShortName())

	found := registry.Lookup(f.dir + "/levels/dragon.db")
	require.False(t, opt.IsNone(found))
	assert.Same(t, first, found.Value)

	assert.True(t, opt.IsNone(registry.Lookup(f.path("Other.db"))))
}

func TestRegistrySharesDependencies(t *testing.T) {
	f := newFixture(t)
	f.definition("Common/Common.db", "version 1", "dependencies 0")
	f.definition("Building/Building.db", "version 1", "dependencies 1", "1 ../common/common.db")
	top := f.definition(
		"Level.db",
		"version 1",
		"dependencies 2",
		"1 Building/Building.db",
		"2 Common/Common.db",
	)
	registry := f.registry()

	level, err := registry.LoadDatabase(top)
	require.NoError(t, err)
	assert.Equal(t, 3, registry.Len())
	assert.Equal(t, []uint16{1, 2}, level.DependencyIndices())

	building, err := level.DependencyDatabase(1)
	require.NoError(t, err)
	common, err := level.DependencyDatabase(2)
	require.NoError(t, err)
	shared, err := building.DependencyDatabase(1)
	require.NoError(t, err)

	assert.Same(t, common, shared)
	assert.Equal(t, "Building", building.ShortName())

	_, err = level.Dependency(3)
	assert.ErrorIs(t, err, ErrNotFound)

	// Dependencies are registered before their dependents
	databases := registry.Databases()
	require.Len(t, databases, 3)
	assert.Same(t, common, databases[0])
	assert.Same(t, level, databases[2])
	assert.Equal(t, Handle(2), level.Handle())
}

func TestRegistryDefinitionErrors(t *testing.T) {
	f := newFixture(t)
	f.definition("Dep.db", "version 1", "dependencies 0")

	for _, test := range []struct {
		name  string
		lines []string
		err   error
	}{
		{"too few", []string{"version 1", "dependencies 2", "1 Dep.db"}, ErrMalformed},
		{"too many", []string{"version 1", "dependencies 2", "1 Dep.db", "2 Dep.db", "3 Dep.db"}, ErrMalformed},
		{"index zero", []string{"dependencies 1", "0 Dep.db"}, ErrMalformed},
		{"duplicate index", []string{"dependencies 2", "1 Dep.db", "1 Dep.db"}, ErrMalformed},
		{"garbage", []string{"version 1", "dependencies: none"}, ErrMalformed},
		{"version", []string{"version 2", "dependencies 0"}, ErrUnsupported},
		{"missing dependency", []string{"dependencies 1", "1 Nowhere.db"}, ErrIO},
	} {
		t.Run(test.name, func(t *testing.T) {
			path := f.definition(test.name+".db", test.lines...)
			registry := f.registry()

			_, err := registry.LoadDatabase(path)
			assert.ErrorIs(t, err, test.err)
			assert.True(t, opt.IsNone(registry.Lookup(path)))
		})
	}
}

func TestRegistryMaxVersion(t *testing.T) {
	f := newFixture(t)
	path := f.definition("New.db", "version 2")

	_, err := f.registry().LoadDatabase(path)
	assert.ErrorIs(t, err, ErrUnsupported)

	database, err := f.registry(WithMaxDatabaseVersion(2)).LoadDatabase(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), database.Version())
}

func TestRegistryMissingFile(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry().LoadDatabase(f.path("Nothing.db"))
	assert.ErrorIs(t, err, ErrIO)
}

func TestSelfDependencyIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.definition("Dep.db", "version 1", "dependencies 0")
	path := f.definition(
		"Self.db",
		"version 1",
		"dependencies 2",
		"1 ./SELF.DB",
		"2 Dep.db",
	)
	registry := f.registry()

	database, err := registry.LoadDatabase(path)
	require.NoError(t, err)

	// Still counted towards the two declared dependencies
	assert.Equal(t, []uint16{2}, database.DependencyIndices())
	_, err = database.Dependency(1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, registry.Len())

	// Without the count covering it, the same file is malformed
	bad := f.definition("Self2.db", "version 1", "dependencies 1", "1 Self2.db", "2 Dep.db")
	_, err = registry.LoadDatabase(bad)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDependencyCycle(t *testing.T) {
	f := newFixture(t)
	f.definition("A.db", "dependencies 1", "1 B.db")
	f.definition("B.db", "dependencies 1", "1 C.db")
	f.definition("C.db", "dependencies 1", "1 A.db")
	registry := f.registry()

	_, err := registry.LoadDatabase(f.path("A.db"))
	require.ErrorIs(t, err, ErrMalformed)
	assert.Contains(t, err.Error(), "A.db -> B.db -> C.db -> A.db")
	assert.Equal(t, 0, registry.Len())
}

func TestFailedLoadsAreRetried(t *testing.T) {
	f := newFixture(t)
	path := f.definition("Later.db", "dependencies 1")
	registry := f.registry()

	_, err := registry.LoadDatabase(path)
	assert.ErrorIs(t, err, ErrMalformed)

	f.definition("Later.db", "dependencies 0")
	_, err = registry.LoadDatabase(path)
	assert.NoError(t, err)
}

func TestRegistryConcurrentLoads(t *testing.T) {
	f := newFixture(t)
	f.definition("Common.db", "version 1")
	for _, name := range []string{"A", "B", "C", "D"} {
		f.definition(name+".db", "dependencies 1", "1 Common.db")
	}
	registry := f.registry()

	var wg sync.WaitGroup
	results := make([]*Database, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('A' + i%4))
			database, err := registry.LoadDatabase(f.path(name + ".db"))
			assert.NoError(t, err)
			results[i] = database
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, registry.Len())
	for i := range results {
		assert.Same(t, results[i%4], results[i])
	}
}

func TestLoadEvents(t *testing.T) {
	f := newFixture(t)
	f.definition("Common.db", "version 1")
	path := f.definition("Top.db", "dependencies 1", "1 Common.db")
	registry := f.registry()

	events := registry.Events()
	defer events.Done()

	_, err := registry.LoadDatabase(path)
	require.NoError(t, err)
	_, err = registry.LoadDatabase(path)
	require.NoError(t, err)

	var received []LoadEvent
	for i := 0; i < 3; i++ {
		received = append(received, <-events.Recv())
	}

	assert.Equal(t, "Common.db", filepath.Base(received[0].Path))
	assert.Equal(t, 1, received[0].Depth)
	assert.False(t, received[0].Cached)

	assert.Equal(t, "Top.db", filepath.Base(received[1].Path))
	assert.Equal(t, 0, received[1].Depth)
	assert.False(t, received[1].Cached)

	assert.True(t, received[2].Cached)
}

func TestContainersAreOptional(t *testing.T) {
	f := newFixture(t)
	path := f.definition("Sparse.db", "version 1")
	f.container("sparse.TXD", textures(t, 1))
	registry := f.registry()

	database, err := registry.LoadDatabase(path)
	require.NoError(t, err)

	assert.True(t, database.Serves(KindTexture))
	for _, kind := range []Kind{KindClass, KindModel, KindAnimation, KindSound, KindSequence} {
		assert.False(t, database.Serves(kind), kind.String())
	}

	_, err = database.Model(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = database.Sound(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ResolveClass(database, NewReference(1, 0))
	assert.ErrorIs(t, err, ErrNotFound)

	texture, err := database.Texture(1)
	require.NoError(t, err)
	assert.Equal(t, LocalId(1), texture.Id())
}

func TestCorruptContainerFailsLoad(t *testing.T) {
	f := newFixture(t)
	path := f.definition("Broken.db", "version 1")
	f.write("Broken.mod", []byte{1, 2, 3})

	_, err := f.registry().LoadDatabase(path)
	assert.ErrorIs(t, err, ErrIO)
}

func TestContainerVersion(t *testing.T) {
	f := newFixture(t)
	path := f.definition("Future.db", "version 1")
	w := srsc.NewWriter()
	w.Version = 0x0200
	f.container("Future.sdb", w)

	_, err := f.registry().LoadDatabase(path)
	assert.ErrorIs(t, err, ErrIO)

	database, err := f.registry(WithMaxContainerVersion(0x0200)).LoadDatabase(path)
	require.NoError(t, err)
	assert.True(t, database.Serves(KindSound))
}

func TestRegistryClose(t *testing.T) {
	f := newFixture(t)
	path := f.definition("Closing.db", "version 1")
	f.container("Closing.txd", textures(t, 1))
	registry := NewRegistry()

	database, err := registry.LoadDatabase(path)
	require.NoError(t, err)
	texture, err := database.Texture(1)
	require.NoError(t, err)

	require.NoError(t, registry.Close())
	require.NoError(t, registry.Close())

	// Already loaded assets survive
	cached, err := database.Texture(1)
	require.NoError(t, err)
	assert.Same(t, texture, cached)

	_, err = registry.LoadDatabase(f.definition("Other.db", "version 1"))
	assert.ErrorIs(t, err, ErrIO)

	// Subscribing after close ends immediately
	events := registry.Events()
	_, open := <-events.Recv()
	assert.False(t, open)
	events.Done()
}
