package config

import (
	"fmt"

	"github.com/cfoust/odb/pkg/db"
)

type EngineConfig struct {
	MaxDatabaseVersion  uint32 `yaml:"maxDatabaseVersion" json:"maxDatabaseVersion"`
	MaxContainerVersion uint16 `yaml:"maxContainerVersion" json:"maxContainerVersion"`
	ModelSearchWindow   int    `yaml:"modelSearchWindow" json:"modelSearchWindow"`
}

type LogConfig struct {
	Debug bool `yaml:"debug" json:"debug"`
	// Human-readable console output instead of JSON lines
	Pretty bool `yaml:"pretty" json:"pretty"`
}

type Config struct {
	Engine EngineConfig `yaml:"engine" json:"engine"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

func (c *Config) Validate() error {
	if c.Engine.MaxDatabaseVersion == 0 {
		return fmt.Errorf("engine.maxDatabaseVersion must be at least 1")
	}

	if c.Engine.MaxContainerVersion == 0 {
		return fmt.Errorf("engine.maxContainerVersion must be at least 1")
	}

	if c.Engine.ModelSearchWindow < 0 {
		return fmt.Errorf("engine.modelSearchWindow can't be negative")
	}

	return nil
}

// Options turns the engine settings into registry options.
func (c *Config) Options() []db.Option {
	return []db.Option{
		db.WithMaxDatabaseVersion(c.Engine.MaxDatabaseVersion),
		db.WithMaxContainerVersion(c.Engine.MaxContainerVersion),
		db.WithModelSearchWindow(c.Engine.ModelSearchWindow),
	}
}
