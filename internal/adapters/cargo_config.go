package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// DefaultCargoHome mirrors cargo: $CARGO_HOME, else ~/.cargo.
func DefaultCargoHome() string {
	if home := strings.TrimSpace(os.Getenv("CARGO_HOME")); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".cargo"
	}
	return filepath.Join(userHome, ".cargo")
}

type cargoConfig struct {
	Registries map[string]struct {
		Index string `toml:"index"`
	} `toml:"registries"`
}

// RegistryNames maps normalized index URLs to the names declared under
// [registries.<name>] in the cargo configs visible from dir. Configs
// nearer to dir win over those further up and over the Cargo home.
func RegistryNames(dir string, cargoHome string) map[string]string {
	var configDirs []string
	for current := dir; current != ""; current = filepath.Dir(current) {
		configDirs = append(configDirs, filepath.Join(current, ".cargo"))
		if current == filepath.Dir(current) {
			break
		}
	}
	if cargoHome != "" {
		configDirs = append(configDirs, cargoHome)
	}

	names := map[string]string{}
	for i := len(configDirs) - 1; i >= 0; i-- {
		for _, file := range []string{"config", "config.toml"} {
			path := filepath.Join(configDirs[i], file)
			if !fileExists(path) {
				continue
			}
			var cfg cargoConfig
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("ignoring unreadable cargo config")
				continue
			}
			for name, registry := range cfg.Registries {
				if registry.Index == "" {
					continue
				}
				names[normalizeIndexURL(registry.Index)] = name
			}
		}
	}
	return names
}

func normalizeIndexURL(raw string) string {
	url := strings.TrimSpace(raw)
	url = strings.TrimPrefix(url, "registry+")
	return strings.TrimSuffix(url, "/")
}
