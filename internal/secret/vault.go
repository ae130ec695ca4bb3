// internal/secret/vault.go
//
// Vault client wrapper for configuration secrets.
//
// Context
// -------
//   - Resolves `vault:<mount>/<path>#<key>` references found in config,
//     typically a MySQL DSN that must stay out of flat files.
//   - Reads KV-v2 secrets through the HashiCorp Vault Go SDK.
//   - A command lives for one request, so there is no token renewal loop;
//     values are memoised for the life of the process only.
//
// Public workflow
// ---------------
//  1. lazy := &secret.Lazy{}                          // during boot.
//  2. config.Load(ctx, home, lazy.Resolve)            // vault is dialled
//     only if a `vault:` value is actually present.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – token (falls back to ~/.vault-token).
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
	"golang.org/x/sync/singleflight"
)

// ErrBadReference is returned for a reference without "#key".
var ErrBadReference = errors.New("vault reference must look like mount/path#key")

//
// SECTION 1.  Public façade
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client

	sfg     singleflight.Group
	secrets sync.Map // secret path → map[string]any
}

// New constructs a Vault client from the environment.
func New() (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	c, err := newFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		c.api.SetToken(tok)
	}
	return c, nil
}

func newFromConfig(cfg *vault.Config) (*Client, error) {
	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	return &Client{api: apiCli}, nil
}

// Resolve reads the secret named by ref ("mount/path#key").
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	secretPath, key, err := ParseReference(ref)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, secretPath, key)
}

// GetKV fetches a single key from a KV-v2 secret.  Each secret path is read
// from Vault at most once per Client, even under concurrent callers.
func (c *Client) GetKV(ctx context.Context, secretPath, key string) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}

	data, err := c.load(ctx, secretPath)
	if err != nil {
		return "", err
	}

	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}
	return sval, nil
}

func (c *Client) load(ctx context.Context, secretPath string) (map[string]any, error) {
	if v, ok := c.secrets.Load(secretPath); ok {
		return v.(map[string]any), nil
	}

	v, err, _ := c.sfg.Do(secretPath, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if v, ok := c.secrets.Load(secretPath); ok {
			return v, nil
		}
		mount, rel := splitMount(secretPath)
		sec, err := c.api.KVv2(mount).Get(ctx, rel)
		if err != nil {
			return nil, fmt.Errorf("vault get %s: %w", secretPath, err)
		}
		c.secrets.Store(secretPath, sec.Data)
		return sec.Data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

//
// SECTION 2.  Lazy construction
//

// Lazy builds the Client on first Resolve, so commands that never reference
// vault never need VAULT_ADDR.
type Lazy struct {
	once sync.Once
	c    *Client
	err  error
}

// Resolve matches config.Resolver.
func (l *Lazy) Resolve(ctx context.Context, ref string) (string, error) {
	l.once.Do(func() { l.c, l.err = New() })
	if l.err != nil {
		return "", l.err
	}
	return l.c.Resolve(ctx, ref)
}

//
// SECTION 3.  Helpers
//

// ParseReference splits "mount/path#key".
func ParseReference(ref string) (secretPath, key string, err error) {
	i := strings.LastIndexByte(ref, '#')
	if i <= 0 || i == len(ref)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrBadReference, ref)
	}
	return ref[:i], ref[i+1:], nil
}

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}
