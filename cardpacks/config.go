package cardpacks

import (
	"fmt"
	"os"

	"log/slog"

	"github.com/aniforreal/ani-engine/cardpacks/database"
	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig         `toml:"log"`
	DB     database.DBConfig `toml:"db"`
	Draw   DrawConfig        `toml:"draw"`
	Spaces SpacesConfig      `toml:"spaces"`
	Mongo  MongoConfig       `toml:"mongo"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

// DrawConfig carries the draw knobs that used to live as constants in
// the old server actions, the daily god pack cap first among them.
type DrawConfig struct {
	MaxGodPacksDaily int `toml:"max_godpacks_daily"`
	CooldownSeconds  int `toml:"cooldown_seconds"`
	LockSeconds      int `toml:"lock_seconds"`
}

type SpacesConfig struct {
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	CardRoot string `toml:"cardroot"`
}

// MongoConfig points at the legacy platform export consumed by the
// migrate tool. Unused by the engine itself.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}
