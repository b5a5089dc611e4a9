package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/vimeo-client/internal/apierror"
	"github.com/florianilch/vimeo-client/internal/transport"
	"github.com/florianilch/vimeo-client/internal/vimeo"
)

// requestCommand returns the 'request' subcommand issuing raw API calls.
func requestCommand(environ func() []string) *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "Send an authenticated request and print the response body",
		ArgsUsage: "VERB URL",
		Description: "VERB is one of head, get, post, put, patch, options, delete.\n" +
			"URL is a path such as /me or an absolute URL, e.g. a paging link.",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "query",
				Usage: "query parameter as key=value (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "field",
				Usage: "form field as key=value (repeatable)",
			},
			&cli.StringFlag{
				Name:  "json",
				Usage: "raw JSON request body",
			},
			&cli.StringSliceFlag{
				Name:  "header",
				Usage: "extra header as Key: Value (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "include",
				Usage: "print the status line and response headers",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return requestAction(ctx, cmd, environ)
		},
	}
}

func requestAction(ctx context.Context, cmd *cli.Command, environ func() []string) error {
	if cmd.Args().Len() != 2 {
		return errors.New("expected VERB and URL arguments")
	}
	verb := strings.ToLower(cmd.Args().Get(0))
	target := cmd.Args().Get(1)

	if !vimeo.IsVerb(verb) {
		return &vimeo.UnsupportedMethodError{Method: verb}
	}

	opts, err := requestOptions(cmd)
	if err != nil {
		return err
	}

	e, err := setup(ctx, cmd, environ)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	client, err := e.client(ctx)
	if err != nil {
		return err
	}

	resp, err := client.Request(ctx, verb, target, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	out := cmd.Root().Writer
	if cmd.Bool("include") {
		fmt.Fprintf(out, "%s %s\n", resp.Proto, resp.Status)
		if err := resp.Header.Write(out); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return apierror.FromResponse(resp)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	return nil
}

func requestOptions(cmd *cli.Command) ([]transport.Option, error) {
	var opts []transport.Option

	if values, err := keyValues(cmd.StringSlice("query"), "="); err != nil {
		return nil, fmt.Errorf("--query: %w", err)
	} else if len(values) > 0 {
		opts = append(opts, transport.WithQuery(values))
	}

	fields, err := keyValues(cmd.StringSlice("field"), "=")
	if err != nil {
		return nil, fmt.Errorf("--field: %w", err)
	}
	body := cmd.String("json")
	switch {
	case len(fields) > 0 && body != "":
		return nil, errors.New("--field and --json are mutually exclusive")
	case len(fields) > 0:
		opts = append(opts, transport.WithForm(fields))
	case body != "":
		opts = append(opts,
			transport.WithBody(strings.NewReader(body), "application/json"),
			transport.WithContentLength(int64(len(body))),
		)
	}

	headers, err := keyValues(cmd.StringSlice("header"), ":")
	if err != nil {
		return nil, fmt.Errorf("--header: %w", err)
	}
	for key, values := range headers {
		for _, v := range values {
			opts = append(opts, transport.WithHeader(key, strings.TrimSpace(v)))
		}
	}

	return opts, nil
}

// keyValues parses "key<sep>value" pairs.
func keyValues(pairs []string, sep string) (url.Values, error) {
	values := make(url.Values)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, sep)
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid pair %q, expected key%svalue", pair, sep)
		}
		values.Add(key, value)
	}
	return values, nil
}
