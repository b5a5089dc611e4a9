package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/vimeo-client/internal/apierror"
	"github.com/florianilch/vimeo-client/internal/transport"
)

// uploadCommand returns the 'upload' subcommand.
func uploadCommand(environ func() []string) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a video file with a resumable streaming upload",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "title to set on the uploaded video",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "description to set on the uploaded video",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return uploadAction(ctx, cmd, environ)
		},
	}
}

func uploadAction(ctx context.Context, cmd *cli.Command, environ func() []string) error {
	if cmd.Args().Len() != 1 {
		return errors.New("expected a FILE argument")
	}
	path := cmd.Args().First()

	e, err := setup(ctx, cmd, environ)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	client, err := e.client(ctx)
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "uploading", "file", path)
	uri, err := client.Upload(ctx, path)
	if err != nil {
		return err
	}

	metadata := map[string]string{}
	if name := cmd.String("name"); name != "" {
		metadata["name"] = name
	}
	if description := cmd.String("description"); description != "" {
		metadata["description"] = description
	}
	if len(metadata) > 0 {
		resp, err := client.Patch(ctx, uri, transport.WithJSON(metadata))
		if err != nil {
			return fmt.Errorf("uploaded %s but setting metadata failed: %w", uri, err)
		}
		if err := apierror.Check(resp, http.StatusOK); err != nil {
			return fmt.Errorf("uploaded %s but setting metadata failed: %w", uri, err)
		}
		_ = resp.Body.Close()
	}

	fmt.Fprintln(cmd.Root().Writer, uri)
	return nil
}
