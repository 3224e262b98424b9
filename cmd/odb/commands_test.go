package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cfoust/odb/pkg/config"
	"github.com/cfoust/odb/pkg/db"
	"github.com/cfoust/odb/pkg/level"
	"github.com/cfoust/odb/pkg/srsc"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (string, *config.Config) {
	dir := t.TempDir()
	write := func(name, data string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0644))
	}

	write("Common.db", "version 1\n")
	write("Main.db", "version 1\ndependencies 1\n1 Common.db\n")

	sound := srsc.Buffer{}
	require.NoError(t, sound.PutString("chime"))
	require.NoError(t, sound.Put(db.SoundHeader{Channels: 1, Bits: 8, SampleRate: 4}))
	sound.PutBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	w := srsc.NewWriter()
	w.Add(db.RecordSound, 3, 0, sound)
	require.NoError(t, w.WriteFile(filepath.Join(dir, "Common.sdb")))

	settings, err := config.Process(nil)
	require.NoError(t, err)
	return dir, settings
}

func TestLoadCommand(t *testing.T) {
	dir, settings := setup(t)

	out := bytes.Buffer{}
	require.NoError(t, loadCommand(&out, settings, filepath.Join(dir, "Main.db")))

	text := out.String()
	assert.Contains(t, text, filepath.Join(dir, "Main.db")+"\n  "+filepath.Join(dir, "Common.db")+"\n")
	assert.Contains(t, text, "2 load calls, 0 already loaded")
	assert.Contains(t, text, "dependency 1: Common")
	assert.Contains(t, text, "sound: 1")
	assert.Contains(t, text, "loaded Main and 1 other databases")

	err := loadCommand(&out, settings, filepath.Join(dir, "Nothing.db"))
	assert.ErrorIs(t, err, db.ErrIO)
}

func TestResolveCommand(t *testing.T) {
	dir, settings := setup(t)

	out := bytes.Buffer{}
	require.NoError(t, resolveCommand(&out, settings, filepath.Join(dir, "Main.db"), "sound", 3, 1))
	assert.Equal(t, "sound 0x3:1 from Common: \"chime\", 1 channels at 4 Hz, 2s\n", out.String())

	err := resolveCommand(&out, settings, filepath.Join(dir, "Main.db"), "sound", 3, 0)
	assert.ErrorIs(t, err, db.ErrNotFound)

	err = resolveCommand(&out, settings, filepath.Join(dir, "Main.db"), "mesh", 3, 0)
	assert.ErrorIs(t, err, db.ErrUnsupported)
}

func TestDumpCommand(t *testing.T) {
	dir, settings := setup(t)
	path := filepath.Join(dir, "Common.sdb")

	out := bytes.Buffer{}
	require.NoError(t, dumpCommand(&out, settings, path, false))
	assert.Contains(t, out.String(), "version 0x0100, 1 records")

	out.Reset()
	require.NoError(t, dumpCommand(&out, settings, path, true))

	dump := dumpContainer{}
	require.NoError(t, cbor.Unmarshal(out.Bytes(), &dump))
	require.Len(t, dump.Records, 1)
	assert.Equal(t, uint16(db.RecordSound), dump.Records[0].Type)
	assert.Equal(t, uint32(3), dump.Records[0].Id)
	assert.Equal(t, uint16(srsc.MAX_VERSION), dump.Version)
}

func TestLevelCommand(t *testing.T) {
	dir, settings := setup(t)

	name := srsc.Buffer{}
	require.NoError(t, name.PutString("Empty Plain"))
	require.NoError(t, name.Put(uint32(16), uint32(8), uint32(1)))
	require.NoError(t, name.Put(uint16(4), uint16(0)))
	require.NoError(t, name.PutString("main.db"))

	layers := srsc.Buffer{}
	require.NoError(t, layers.Put(uint32(0), uint32(1)))

	w := srsc.NewWriter()
	w.Add(level.RecordNameAndDeps, 0, 0, name)
	w.Add(level.RecordLayers, 0, 0, layers)
	path := filepath.Join(dir, "plain.lvl")
	require.NoError(t, w.WriteFile(path))

	out := bytes.Buffer{}
	require.NoError(t, levelCommand(&out, settings, path))
	assert.Equal(
		t,
		"Empty Plain (16x8)\n  dependency 4: "+filepath.Join(dir, "Main.db")+"\n",
		out.String(),
	)
}

func TestDefaultConfig(t *testing.T) {
	settings, err := config.Process(nil)
	require.NoError(t, err)

	registry := newRegistry(settings)
	defer registry.Close()
	assert.Equal(t, 0, registry.Len())
}

func TestLoadCommandLargeGraph(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0644))
	}

	const leaves = 80
	definition := fmt.Sprintf("version 1\ndependencies %d\n", leaves+1)
	for i := 1; i <= leaves; i++ {
		write(fmt.Sprintf("Leaf%d.db", i), "version 1\n")
		definition += fmt.Sprintf("%d Leaf%d.db\n", i, i)
	}
	definition += fmt.Sprintf("%d Shared.db\n", leaves+1)
	write("Shared.db", "version 1\ndependencies 1\n1 Leaf1.db\n")
	write("Main.db", definition)

	settings, err := config.Process(nil)
	require.NoError(t, err)

	out := bytes.Buffer{}
	require.NoError(t, loadCommand(&out, settings, filepath.Join(dir, "Main.db")))

	text := out.String()
	for i := 1; i <= leaves; i++ {
		assert.Contains(t, text, fmt.Sprintf("  %s\n", filepath.Join(dir, fmt.Sprintf("Leaf%d.db", i))))
	}
	assert.Contains(t, text, "    "+filepath.Join(dir, "Leaf1.db")+" (already listed)\n")
	assert.Contains(t, text, fmt.Sprintf("loaded Main and %d other databases", leaves+1))
}
