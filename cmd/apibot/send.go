// cmd/apibot/send.go
//
// `apibot send [options] <url>`
//
// Context
// -------
// Builds a request from the flags, validates it before any storage is
// opened, then hands it to the engine.  The request row is written before
// dispatch.  The response body is printed to stdout, indented when it is
// JSON.
//
// Notes
// -----
//   - -H may repeat; a repeated name keeps the last value.
//   - --http falls back to http.default_version from config.
package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yanizio/apibot/internal/clock"
	"github.com/yanizio/apibot/internal/config"
	"github.com/yanizio/apibot/internal/display"
	"github.com/yanizio/apibot/internal/engine"
	"github.com/yanizio/apibot/internal/httpmsg"
)

var SendCommand = &cli.Command{
	Name:      "send",
	Usage:     "Send a request and record it together with its response",
	ArgsUsage: "<url>",
	Action:    Send,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "method",
			Aliases:     []string{"X"},
			Usage:       "HTTP request method",
			Value:       "GET",
			Destination: &sendOpts.method,
		},
		&cli.StringSliceFlag{
			Name:    "header",
			Aliases: []string{"H"},
			Usage:   "Request header as 'Name: value'; repeat for more. A repeated name keeps the last value.",
		},
		&cli.StringFlag{
			Name:        "http",
			Usage:       "HTTP version: 0.9, 1.0, 1.1, 2.0, or 3.0 (default from config, 1.1)",
			Destination: &sendOpts.version,
		},
		&cli.StringFlag{
			Name:        "data",
			Aliases:     []string{"d"},
			Usage:       "Data to send as the request body",
			Destination: &sendOpts.data,
		},
	},
}

var sendOpts struct {
	method  string
	version string
	data    string
}

// sendInput is the validated shape of the send arguments.
type sendInput struct {
	URL     string   `validate:"required"`
	Method  string   `validate:"required"`
	Version string   `validate:"omitempty,oneof=0.9 1.0 1.1 2.0 3.0"`
	Headers []string `validate:"dive,contains=:"`
}

func Send(cc *cli.Context) error {
	ctx := cc.Context

	in := sendInput{
		URL:     cc.Args().First(),
		Method:  sendOpts.method,
		Version: sendOpts.version,
		Headers: cc.StringSlice("header"),
	}
	if cc.NArg() > 1 {
		return fmt.Errorf("send takes exactly one url, got %d arguments", cc.NArg())
	}
	if err := config.Validate(in); err != nil {
		return fmt.Errorf("invalid send options: %w", err)
	}

	headers := make([]httpmsg.Header, 0, len(in.Headers))
	for _, raw := range in.Headers {
		h, err := httpmsg.ParseHeader(raw)
		if err != nil {
			return err
		}
		headers = append(headers, h)
	}

	var body []byte
	if cc.IsSet("data") {
		body = []byte(sendOpts.data)
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	versionText := in.Version
	if versionText == "" {
		versionText = sess.cfg.HTTP.DefaultVersion
	}
	version, err := httpmsg.ParseVersion(versionText)
	if err != nil {
		return err
	}

	req, err := httpmsg.New(in.Method, in.URL, version, headers, body)
	if err != nil {
		return err
	}

	eng := engine.New(sess.store, httpmsg.NewClient(sess.cfg.HTTP.Timeout), clock.System{}, sess.cfg.Namespace, sess.log)
	res, err := eng.Send(ctx, req)
	if err != nil {
		return err
	}
	return display.Body(cc.App.Writer, res.Body)
}
