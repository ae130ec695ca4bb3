// cmd/apibot/retry.go
//
// `apibot retry <request-id>`
//
// Context
// -------
// Re-sends a stored request and links the new response to the same id.  No
// request row is added.
package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yanizio/apibot/internal/clock"
	"github.com/yanizio/apibot/internal/display"
	"github.com/yanizio/apibot/internal/engine"
	"github.com/yanizio/apibot/internal/httpmsg"
)

var RetryCommand = &cli.Command{
	Name:      "retry",
	Usage:     "Send a stored request again and record the new response",
	ArgsUsage: "<request-id>",
	Action:    Retry,
}

func Retry(cc *cli.Context) error {
	ctx := cc.Context

	id, err := parseID(cc.Args().First())
	if err != nil {
		return err
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	eng := engine.New(sess.store, httpmsg.NewClient(sess.cfg.HTTP.Timeout), clock.System{}, sess.cfg.Namespace, sess.log)
	res, err := eng.Retry(ctx, id)
	if err != nil {
		return err
	}
	return display.Body(cc.App.Writer, res.Body)
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing id")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: want a positive integer", s)
	}
	return id, nil
}
