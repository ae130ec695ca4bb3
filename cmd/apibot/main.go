// cmd/apibot/main.go
//
// apibot – command-line HTTP client that records and replays requests.
//
// Invocation life-cycle
// ---------------------
//
//  1. Parse flags (urfave/cli).  Send options are validated before any
//     storage is touched.
//
//  2. Resolve the app home once (--home → APIBOT_HOME → ~/.apibot) and load
//     configuration from it.
//
//  3. Start the daily rotating file logger (tees to stderr with -v).
//
//  4. Open the database, bootstrap tables, and run the command.
//
//  5. Close the database and flush metrics to the textfile, if configured.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/yanizio/apibot/internal/clock"
	"github.com/yanizio/apibot/internal/config"
	"github.com/yanizio/apibot/internal/logger"
	"github.com/yanizio/apibot/internal/metrics"
	"github.com/yanizio/apibot/internal/secret"
	"github.com/yanizio/apibot/internal/store"
)

const (
	appName   = "apibot"
	envPrefix = "APIBOT_"
)

var app = &cli.App{
	Name:        appName,
	Usage:       "send HTTP requests, keep every exchange, and replay them by id",
	Description: "apibot records each request before it is sent and each response once it arrives",
	Commands: []*cli.Command{
		SendCommand,
		ListCommand,
		RetryCommand,
		DescribeCommand,
	},
	Flags: commonFlags,
	// Header values such as "no-cache, max-age=0" carry commas.
	DisableSliceFlagSeparator: true,
}

func main() {
	ctx := context.Background()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

var commonOpts struct {
	home    string
	verbose bool
}

var commonFlags = []cli.Flag{
	&cli.StringFlag{
		Name:        "home",
		Usage:       "Directory holding config.yaml, .env, logs, and the sqlite database",
		Destination: &commonOpts.home,
		EnvVars:     []string{envPrefix + "HOME"},
	},
	&cli.BoolFlag{
		Name:        "verbose",
		Aliases:     []string{"v"},
		Usage:       "Copy log lines to stderr",
		Value:       false,
		Destination: &commonOpts.verbose,
		EnvVars:     []string{envPrefix + "VERBOSE"},
	},
}

// session is everything one command needs, opened once and closed once.
type session struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Store
}

func openSession(ctx context.Context) (*session, error) {
	//
	// ── 1.  Home + configuration ────────────────────────────────────────
	//
	home, err := config.ResolveHome(commonOpts.home)
	if err != nil {
		return nil, err
	}
	vault := &secret.Lazy{}
	cfg, err := config.Load(ctx, home, vault.Resolve)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	base, err := logger.New(cfg.Paths.Home, cfg.Log.Level, commonOpts.verbose)
	if err != nil {
		return nil, fmt.Errorf("start logger: %w", err)
	}
	log := base.With(zap.String("invocation", uuid.NewString()))

	//
	// ── 3.  Storage ─────────────────────────────────────────────────────
	//
	st, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		log.Error("storage open failed", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
		return nil, err
	}
	if err := st.Bootstrap(ctx, cfg.Namespace, clock.System{}.Now()); err != nil {
		_ = st.Close()
		log.Error("storage bootstrap failed", zap.Error(err))
		return nil, err
	}
	log.Debug("storage online", zap.String("driver", cfg.Storage.Driver))

	return &session{cfg: cfg, log: log, store: st}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.log.Warn("storage close failed", zap.Error(err))
	}
	if err := metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
		s.log.Warn("metrics textfile write failed", zap.String("path", s.cfg.Metrics.Textfile), zap.Error(err))
	}
	_ = s.log.Sync()
}
