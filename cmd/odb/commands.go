package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cfoust/odb/pkg/config"
	"github.com/cfoust/odb/pkg/db"
	"github.com/cfoust/odb/pkg/level"
	"github.com/cfoust/odb/pkg/srsc"

	"github.com/fxamacker/cbor/v2"
)

// printTree writes database and its dependencies, one per line, indented by
// depth. Databases already printed are marked instead of repeated.
func printTree(out io.Writer, database *db.Database, depth int, seen map[db.Handle]bool) error {
	indent := strings.Repeat("  ", depth)
	if seen[database.Handle()] {
		fmt.Fprintf(out, "%s%s (already listed)\n", indent, database.Path())
		return nil
	}
	seen[database.Handle()] = true
	fmt.Fprintf(out, "%s%s\n", indent, database.Path())

	for _, index := range database.DependencyIndices() {
		dependency, err := database.DependencyDatabase(index)
		if err != nil {
			return err
		}

		err = printTree(out, dependency, depth+1, seen)
		if err != nil {
			return err
		}
	}

	return nil
}

func loadCommand(out io.Writer, settings *config.Config, path string) error {
	registry := newRegistry(settings)
	defer registry.Close()

	events := registry.Events()
	var loads, cached int
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for event := range events.Recv() {
			loads++
			if event.Cached {
				cached++
			}
		}
	}()

	database, err := registry.LoadDatabase(path)
	events.Done()
	<-drained
	if err != nil {
		return err
	}

	err = printTree(out, database, 0, make(map[db.Handle]bool))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d load calls, %d already loaded\n", loads, cached)
	if dropped := registry.DroppedEvents(); dropped > 0 {
		fmt.Fprintf(out, "%d load events were dropped from the count\n", dropped)
	}

	fmt.Fprintln(out)
	for _, loaded := range registry.Databases() {
		fmt.Fprintf(out, "%s (version %d)\n", loaded.ShortName(), loaded.Version())
		for _, index := range loaded.DependencyIndices() {
			dependency, err := loaded.DependencyDatabase(index)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  dependency %d: %s\n", index, dependency.ShortName())
		}

		for _, kind := range db.Kinds() {
			if !loaded.Serves(kind) {
				continue
			}
			fmt.Fprintf(out, "  %s: %d\n", kind, len(loaded.Ids(kind)))
		}
	}

	fmt.Fprintf(out, "\nloaded %s and %d other databases\n", database.ShortName(), registry.Len()-1)
	return nil
}

type dumpRecord struct {
	_        struct{} `cbor:",toarray"`
	Type     uint16
	Id       uint32
	Group    uint16
	Size     uint32
	Offset   uint32
	Checksum uint64
}

type dumpContainer struct {
	Version uint16
	Records []dumpRecord
}

func dumpCommand(out io.Writer, settings *config.Config, path string, asCBOR bool) error {
	file, err := srsc.Open(path, srsc.WithMaxVersion(settings.Engine.MaxContainerVersion))
	if err != nil {
		return err
	}
	defer file.Close()

	dump := dumpContainer{
		Version: file.Version(),
	}
	for i, record := range file.Records() {
		checksum, err := file.Checksum(i)
		if err != nil {
			return err
		}

		dump.Records = append(dump.Records, dumpRecord{
			Type:     uint16(record.Type),
			Id:       uint32(record.Id),
			Group:    record.Group,
			Size:     record.Size,
			Offset:   record.Offset,
			Checksum: checksum,
		})
	}

	if asCBOR {
		data, err := cbor.Marshal(dump)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	fmt.Fprintf(out, "version 0x%04x, %d records\n", dump.Version, len(dump.Records))
	for _, record := range dump.Records {
		fmt.Fprintf(
			out,
			"0x%04x %8d group %-4d %8d bytes at 0x%08x  %016x\n",
			record.Type,
			record.Id,
			record.Group,
			record.Size,
			record.Offset,
			record.Checksum,
		)
	}

	return nil
}

func describe(asset db.Asset) string {
	switch asset := asset.(type) {
	case *db.Texture:
		return fmt.Sprintf("%dx%d, %d bits per pixel", asset.Width, asset.Height, asset.BitsPerPixel)
	case *db.Class:
		model := "no model"
		if asset.HasModel() {
			model = "model " + asset.ModelRef.String()
		}
		return fmt.Sprintf("%q, %d fields, %s", asset.Name, len(asset.Fields), model)
	case *db.Model:
		return fmt.Sprintf(
			"%q, %d vertices, %d polygons, %d LODs",
			asset.Name,
			len(asset.Vertices),
			len(asset.Polygons),
			len(asset.Lods),
		)
	case *db.Animation:
		return fmt.Sprintf("%q, %d keyframes over %gs", asset.Name, len(asset.Keyframes), asset.Duration)
	case *db.Sound:
		return fmt.Sprintf("%q, %d channels at %d Hz, %s", asset.Name, asset.Channels, asset.SampleRate, asset.Duration())
	case *db.Sequence:
		return fmt.Sprintf("%q, %d actors", asset.Name, len(asset.Actors))
	}

	return ""
}

func resolveCommand(out io.Writer, settings *config.Config, path, kindName string, id uint32, dep uint16) error {
	kind, err := db.ParseKind(kindName)
	if err != nil {
		return err
	}

	registry := newRegistry(settings)
	defer registry.Close()

	database, err := registry.LoadDatabase(path)
	if err != nil {
		return err
	}

	ref := db.NewReference(db.LocalId(id), dep)
	asset, err := db.Resolve(database, kind, ref)
	if err != nil {
		return err
	}

	fmt.Fprintf(
		out,
		"%s %s from %s: %s\n",
		kind,
		ref,
		asset.Database().ShortName(),
		describe(asset),
	)
	return nil
}

func levelCommand(out io.Writer, settings *config.Config, path string) error {
	registry := newRegistry(settings)
	defer registry.Close()

	loaded, err := level.Load(registry, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (%dx%d)\n", loaded.Name, loaded.MaxWidth, loaded.MaxHeight)
	for _, index := range loaded.DependencyIndices() {
		database, _ := loaded.DependencyDatabase(index)
		fmt.Fprintf(out, "  dependency %d: %s\n", index, database.Path())
	}

	for i, layer := range loaded.Layers {
		present, invisible := layer.Triangles()
		textures, err := loaded.LayerTextures(i)
		if err != nil {
			return err
		}

		fmt.Fprintf(
			out,
			"  layer %d %q: %dx%d, %d triangles (%d invisible), %d textures\n",
			layer.Id,
			layer.Name,
			layer.Width,
			layer.Height,
			present,
			invisible,
			len(textures),
		)
	}

	return nil
}
