// cmd/apibot/list.go
//
// `apibot list [-l N] <req|resp|script>`
//
// Context
// -------
// Prints the newest N requests or responses as a table.  Soft-deleted rows
// never appear.  Scripts have a table but no commands yet.
package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yanizio/apibot/internal/display"
)

var ListCommand = &cli.Command{
	Name:      "list",
	Usage:     "List the most recent requests or responses",
	ArgsUsage: "<req|request|resp|response|script>",
	Action:    List,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of rows to show",
			Value:       10,
			Destination: &listOpts.limit,
		},
	},
}

var listOpts struct {
	limit int
}

// resource is the kind of stored row a command addresses.
type resource int

const (
	resourceRequest resource = iota + 1
	resourceResponse
	resourceScript
)

var errScriptsUnsupported = errors.New("scripts are not supported yet")

const (
	noRequestsMessage  = "You have not sent any request yet."
	noResponsesMessage = "You have not got any response yet."
)

func parseResource(s string) (resource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "req", "request", "requests":
		return resourceRequest, nil
	case "resp", "response", "responses":
		return resourceResponse, nil
	case "script", "scripts":
		return resourceScript, nil
	case "":
		return 0, fmt.Errorf("missing resource: want req or resp")
	default:
		return 0, fmt.Errorf("unknown resource %q: want req or resp", s)
	}
}

func List(cc *cli.Context) error {
	ctx := cc.Context

	kind, err := parseResource(cc.Args().First())
	if err != nil {
		return err
	}
	if kind == resourceScript {
		return errScriptsUnsupported
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cc.App.Writer
	switch kind {
	case resourceRequest:
		rows, err := sess.store.ListRequests(ctx, listOpts.limit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return printLine(out, noRequestsMessage)
		}
		return display.Requests(out, rows)
	default:
		rows, err := sess.store.ListResponses(ctx, listOpts.limit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return printLine(out, noResponsesMessage)
		}
		return display.Responses(out, rows)
	}
}

func printLine(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}
