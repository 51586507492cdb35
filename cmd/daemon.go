package main

import (
	"context"
	"fmt"

	"github.com/imroc/req/v3"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/inboxsync/internal/server"
	"github.com/desertthunder/inboxsync/internal/shared"
)

// Status prints the tracked sync of a running serve instance.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	var status server.StatusResponse
	resp, err := r.daemon.R().SetContext(ctx).SetSuccessResult(&status).Get("/status")
	if err := daemonError(resp, err); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status.Status, true)
	}
	r.writeStatus(status.Status)
	return nil
}

// Cancel stops tracking the job of a running serve instance.
func (r *Runner) Cancel(ctx context.Context, cmd *cli.Command) error {
	var status server.StatusResponse
	resp, err := r.daemon.R().SetContext(ctx).SetSuccessResult(&status).Delete("/sync")
	if err := daemonError(resp, err); err != nil {
		return err
	}
	return r.writePlain("✓ Sync tracking cancelled (phase %s)\n", status.Status.Phase)
}

func daemonError(resp *req.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: serve instance unreachable: %v", shared.ErrServiceUnavailable, err)
	}
	if resp.IsErrorState() {
		if e, ok := resp.ErrorResult().(*server.ErrorResponse); ok && e.Error != "" {
			return fmt.Errorf("serve instance returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("serve instance returned %d", resp.StatusCode)
	}
	return nil
}
