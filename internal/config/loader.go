// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from four layers (highest
precedence last):

  1. Built-in defaults (`Defaults(home)`).
  2. Optional `<home>/.env` file.
  3. Optional `<home>/config.yaml`.
  4. Environment variables prefixed `APIBOT_`, where `__` maps to “.”
     (e.g., `APIBOT_STORAGE__DRIVER → storage.driver`).

Values beginning with `vault:` are swapped for the secret they reference,
then the tree is unmarshalled onto the defaults, validated, and returned.
There is no package-level cache: main resolves the home once, calls Load
once, and threads the result down.

Instrumentation
---------------
  • DEBUG spans: home, YAML read, env overlay.
  • ERROR spans: YAML parse, env overlay, vault, unmarshal, validation.
  • Logs use the global *sugared* logger (`zap.S()`), a no-op until the
    file logger is installed, so Load stays quiet on the console.

Notes
-----
  • A missing config.yaml is normal; a malformed one is an error.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix   = "APIBOT_"
	vaultPrefix = "vault:"
	homeDirName = ".apibot"
)

// ErrVaultUnavailable is returned when a `vault:` value is present but no
// resolver was supplied.
var ErrVaultUnavailable = errors.New("vault reference without a resolver")

// Resolver turns a `vault:` reference (prefix stripped) into its secret.
type Resolver func(ctx context.Context, ref string) (string, error)

/*──────────────────────────── home discovery ───────────────────────────────*/

// ResolveHome returns override when set, else APIBOT_HOME, else ~/.apibot.
func ResolveHome(override string) (string, error) {
	if override != "" {
		return filepath.Abs(override)
	}
	if h := os.Getenv(envPrefix + "HOME"); h != "" {
		return filepath.Abs(h)
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(userHome, homeDirName), nil
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves vault references, and
// validates.  resolve may be nil when no vault references are expected.
func Load(ctx context.Context, home string, resolve Resolver) (*Config, error) {
	zap.S().Debugw("config home resolved", "home", home)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(home, ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, fmt.Errorf("load %s: %w", yamlPath, err)
		}
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// Env overrides: APIBOT_STORAGE__DRIVER → storage.driver
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveVault(ctx, k, resolve); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	cfg := Defaults(home)
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Home = home
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	zap.S().Debugw("config loaded",
		"namespace", cfg.Namespace,
		"driver", cfg.Storage.Driver,
		"home", cfg.Paths.Home,
	)
	return &cfg, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// resolveVault replaces every `vault:` string value in k with its secret.
func resolveVault(ctx context.Context, k *koanf.Koanf, resolve Resolver) error {
	for _, key := range k.Keys() {
		s, ok := k.Get(key).(string)
		if !ok || !strings.HasPrefix(s, vaultPrefix) {
			continue
		}
		if resolve == nil {
			return fmt.Errorf("%s: %w", key, ErrVaultUnavailable)
		}
		val, err := resolve(ctx, strings.TrimPrefix(s, vaultPrefix))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return err
		}
		zap.S().Debugw("config value resolved from vault", "key", key)
	}
	return nil
}
