package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cfoust/odb/pkg/config"
	"github.com/cfoust/odb/pkg/db"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Debug   bool     `help:"Whether to enable debug logging."`
	Configs []string `help:"Configuration files to apply on top of the defaults." name:"config" short:"c" type:"existingfile"`

	Load struct {
		Definition string `arg:"" help:"Database definition file (.db)." type:"path"`
	} `cmd:"" help:"Load a database and print its dependency tree."`

	Dump struct {
		Container string `arg:"" help:"Any container file." type:"existingfile"`
		CBOR      bool   `help:"Write the directory as CBOR instead of text." name:"cbor"`
	} `cmd:"" help:"Print the record directory of a container."`

	Resolve struct {
		Definition string `arg:"" help:"Database definition file (.db)." type:"path"`
		Kind       string `arg:"" help:"Asset kind: texture, class, model, animation, sound or sequence."`
		Id         uint32 `arg:"" help:"Local id of the asset."`
		Dep        uint16 `help:"Dependency index to resolve through." default:"0"`
	} `cmd:"" help:"Resolve a reference and summarize the asset it points to."`

	Level struct {
		Level string `arg:"" help:"Level container." type:"existingfile"`
	} `cmd:"" help:"Load a level and list its dependencies and layers."`

	Config struct {
	} `cmd:"" help:"Write the default configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func setupLogging(settings config.LogConfig) {
	if settings.Pretty {
		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		log.Logger = log.Output(consoleWriter)
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if settings.Debug || CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Debug().Msg("debug logging enabled")
	}
}

func newRegistry(settings *config.Config) *db.Registry {
	options := append(settings.Options(), db.WithLogger(log.Logger))
	return db.NewRegistry(options...)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("odb"),
		kong.Description("inspect asset databases, containers and levels"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if ctx.Command() == "config" {
		os.Stdout.Write(config.DEFAULT)
		return
	}

	settings, err := config.Process(CLI.Configs)
	if err != nil {
		writeError(err)
	}
	setupLogging(settings.Log)

	switch ctx.Command() {
	case "load <definition>":
		err = loadCommand(os.Stdout, settings, CLI.Load.Definition)
	case "dump <container>":
		err = dumpCommand(os.Stdout, settings, CLI.Dump.Container, CLI.Dump.CBOR)
	case "resolve <definition> <kind> <id>":
		err = resolveCommand(
			os.Stdout,
			settings,
			CLI.Resolve.Definition,
			CLI.Resolve.Kind,
			CLI.Resolve.Id,
			CLI.Resolve.Dep,
		)
	case "level <level>":
		err = levelCommand(os.Stdout, settings, CLI.Level.Level)
	}

	if err != nil {
		writeError(err)
	}
}
