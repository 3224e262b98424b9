package fspath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	posix := New("/a/b/../c/./d.db")
	assert.Equal(t, RootPosix, posix.Style())
	assert.Equal(t, []string{"a", "c", "d.db"}, posix.Components())

	dos := New(`c:\Games\Drakan\Dragon.db`)
	assert.Equal(t, RootDos, dos.Style())
	assert.Equal(t, "C:", dos.Root())
	assert.Equal(t, []string{"Games", "Drakan", "Dragon.db"}, dos.Components())

	relative := New("../common/./x.db")
	assert.Equal(t, RootRelative, relative.Style())
	assert.Equal(t, []string{"..", "common", "x.db"}, relative.Components())

	// Absolute paths can't go above their root
	assert.Equal(t, []string{"x"}, New("/../../x").Components())
}

func TestEqual(t *testing.T) {
	assert.True(t, New(`/a\b/c.db`).Equal(New("/a/b//c.db")))
	assert.True(t, New("/a/b/../b/c.db").Equal(New("/a/b/c.db")))
	assert.False(t, New("/a/b/c.db").Equal(New("a/b/c.db")))
	assert.False(t, New("/a/b/c.db").Equal(New("/a/b/C.db")))
	assert.Equal(t, New(`d:\x`).Key(), New("D:/x").Key())
}

func TestRelative(t *testing.T) {
	base := New("/games/drakan/Database")
	resolved := NewRelative(`..\Common\common.db`, base)
	assert.Equal(t, []string{"games", "drakan", "Common", "common.db"}, resolved.Components())

	// Absolute paths ignore the base
	assert.True(t, NewRelative("/x/y.db", base).Equal(New("/x/y.db")))

	assert.True(t, base.Join("a.db").Equal(New("/games/drakan/Database/a.db")))
}

func TestDirAndExtensions(t *testing.T) {
	path := New("/data/levels/Level1.lvl")

	assert.True(t, path.Dir().Equal(New("/data/levels")))
	assert.True(t, New("/").Dir().Equal(New("/")))
	assert.Equal(t, "Level1.lvl", path.File())
	assert.Equal(t, "Level1", path.FileNoExt())
	assert.Equal(t, ".lvl", path.Ext())

	assert.Equal(t, "Level1.txd", path.WithExt(".txd").File())
	assert.Equal(t, "Level1.mod", path.WithExt("mod").File())
	assert.Equal(t, "Level1", path.WithoutExt().File())
	assert.Equal(t, "noext.db", New("/noext").WithExt(".db").File())
	assert.Equal(t, "", New(".hidden").Ext())

	assert.Equal(t, filepath.Join("/data", "levels", "Level1"), path.StringNoExt())
	assert.Equal(t, ".", New("").String())
}

func TestRemovePrefix(t *testing.T) {
	path := New("/games/drakan/Dragon.db")

	relative := path.RemovePrefix(New("/games"))
	assert.Equal(t, RootRelative, relative.Style())
	assert.Equal(t, []string{"drakan", "Dragon.db"}, relative.Components())

	// Not a prefix: unchanged
	assert.True(t, path.RemovePrefix(New("/other")).Equal(path))
	assert.True(t, path.RemovePrefix(New("games")).Equal(path))
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present.db")
	require.NoError(t, os.WriteFile(file, []byte("version 1\n"), 0644))

	assert.True(t, New(file).Exists())
	assert.False(t, New(filepath.Join(dir, "missing.db")).Exists())
}

func TestAdjustCase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Data", "Common"), 0755))
	file := filepath.Join(dir, "Data", "Common", "Dragon.DB")
	require.NoError(t, os.WriteFile(file, []byte{}, 0644))

	base := New(dir)
	wanted := New(file)

	variants := []string{
		"data/common/dragon.db",
		`DATA\COMMON\DRAGON.DB`,
		"Data/./common/../Common/dragon.Db",
	}

	for _, variant := range variants {
		adjusted := NewRelative(variant, base).AdjustCase()
		assert.True(t, adjusted.Equal(wanted), "variant %s gave %s", variant, adjusted)
	}

	// Idempotent
	once := NewRelative("data/common/dragon.db", base).AdjustCase()
	assert.True(t, once.AdjustCase().Equal(once))

	// Missing components are left alone and don't stop the rest
	missing := NewRelative("data/nowhere/DRAGON.db", base).AdjustCase()
	assert.Equal(t, "nowhere", missing.Components()[len(missing.Components())-2])
	assert.Equal(t, "Data", missing.Components()[len(missing.Components())-3])
	assert.Equal(t, "DRAGON.db", missing.File())
}

func TestAdjustedKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Db"), 0755))
	file := filepath.Join(dir, "Db", "a.db")
	require.NoError(t, os.WriteFile(file, []byte{}, 0644))

	base := New(dir)
	want := New(file).Key()

	for _, variant := range []string{"Db/a.db", `db\A.DB`, "DB/./A.db"} {
		adjusted := NewRelative(variant, base).AdjustCase()
		assert.Equal(t, want, adjusted.Key(), "variant %s", variant)
	}

	assert.Equal(t, New(`c:\Db.db`).Root(), New(`C:\Db.db`).Root())
}

func TestAbsolute(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	absolute, err := New("x/y.db").Absolute()
	require.NoError(t, err)
	assert.True(t, absolute.Equal(New(filepath.Join(wd, "x", "y.db"))))

	already := New("/x/y.db")
	same, err := already.Absolute()
	require.NoError(t, err)
	assert.True(t, same.Equal(already))
}
