// internal/config/model.go
//
// Typed configuration model for apibot.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from four layers:
//
//   • built-in defaults                         – Defaults(home),
//   • optional `<home>/.env`                    – dotenv values,
//   • optional `<home>/config.yaml`             – primary static file,
//   • `APIBOT_`-prefixed environment overrides  – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through Vault *before* unmarshalling, so the model never stores Vault
// references, only plain strings.
//
// Validation happens immediately after unmarshal; the command fails fast if
// a field is missing or out of range.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"path/filepath"
	"time"
)

// DBFile is the sqlite file name inside the app home.
const DBFile = "apibot_db"

//
// Storage section
//

// Storage selects the database.  For sqlite the DSN is a file path; for
// mysql it is a go-sql-driver DSN, usually a `vault:` reference.
type Storage struct {
	Driver string `koanf:"driver" validate:"required,oneof=sqlite mysql"`
	DSN    string `koanf:"dsn"    validate:"required"`
}

//
// HTTP section
//

// HTTP holds client tunables.  Timeout 0 disables the client timeout.
type HTTP struct {
	Timeout        time.Duration `koanf:"timeout"         validate:"gte=0"`
	DefaultVersion string        `koanf:"default_version" validate:"required,oneof=0.9 1.0 1.1 2.0 3.0"`
}

//
// Log section
//

// Log controls the file logger.
type Log struct {
	Level string `koanf:"level" validate:"required,oneof=debug info warn error"`
}

//
// Metrics section
//

// Metrics optionally names a node-exporter textfile written on exit.
type Metrics struct {
	Textfile string `koanf:"textfile"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Home string // --home, APIBOT_HOME, or ~/.apibot
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and passed down
// explicitly to every component that needs it.
type Config struct {
	Namespace string  `koanf:"namespace" validate:"required,max=128"`
	Storage   Storage `koanf:"storage"`
	HTTP      HTTP    `koanf:"http"`
	Log       Log     `koanf:"log"`
	Metrics   Metrics `koanf:"metrics"`
	Paths     Paths   `koanf:"-"` // not loaded from config files
}

// Defaults returns the built-in layer for an app home.
func Defaults(home string) Config {
	return Config{
		Namespace: "default",
		Storage: Storage{
			Driver: "sqlite",
			DSN:    filepath.Join(home, DBFile),
		},
		HTTP: HTTP{
			DefaultVersion: "1.1",
		},
		Log: Log{
			Level: "info",
		},
		Paths: Paths{Home: home},
	}
}
