package client

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/tfc/transfer"
	"github.com/pithecene-io/tfc/types"
)

// Delete removes remotePath on the server.
func (c *Client) Delete(ctx context.Context, remotePath string) (*Result, error) {
	start := time.Now()
	dir := types.DirectionDelete
	res := &Result{
		OpID:       uuid.NewString(),
		Direction:  dir.String(),
		RemotePath: remotePath,
	}
	logger := c.logger.With(map[string]any{
		"op_id":       res.OpID,
		"direction":   res.Direction,
		"remote_path": remotePath,
	})

	m := transfer.New(dir)
	err := m.Advance(types.StepInitialise)
	if err == nil {
		var resp types.DeleteResponse
		err = c.call(ctx, "delete", dir, types.StepInitialise, &types.DeleteRequest{RemotePath: remotePath}, &resp)
		if err == nil {
			err = c.appError("delete", resp.ErrorMsg)
		}
	}
	return c.finish(res, start, logger, err)
}
