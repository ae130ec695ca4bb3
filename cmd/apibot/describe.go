// cmd/apibot/describe.go
//
// `apibot describe <req|resp> <id>`
//
// Context
// -------
// Shows one stored row in full.  A request is followed by every response it
// has collected, newest first.
package main

import (
	"github.com/urfave/cli/v2"

	"github.com/yanizio/apibot/internal/display"
)

var DescribeCommand = &cli.Command{
	Name:      "describe",
	Usage:     "Show one stored request (with its responses) or one stored response",
	ArgsUsage: "<req|resp> <id>",
	Action:    Describe,
}

func Describe(cc *cli.Context) error {
	ctx := cc.Context

	kind, err := parseResource(cc.Args().Get(0))
	if err != nil {
		return err
	}
	if kind == resourceScript {
		return errScriptsUnsupported
	}
	id, err := parseID(cc.Args().Get(1))
	if err != nil {
		return err
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cc.App.Writer
	if kind == resourceRequest {
		rec, err := sess.store.RequestByID(ctx, id)
		if err != nil {
			return err
		}
		responses, err := sess.store.ResponsesForRequest(ctx, id)
		if err != nil {
			return err
		}
		return display.Request(out, *rec, responses)
	}

	rec, err := sess.store.ResponseByID(ctx, id)
	if err != nil {
		return err
	}
	return display.Response(out, *rec)
}
