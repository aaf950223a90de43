package engine

import (
	"context"

	"opcalcd/internal/extproc"
	"opcalcd/pkg/types"
)

// GitInfo reports revision metadata of the accelerator SDK checkout.
func (e *Engine) GitInfo(ctx context.Context) types.GitInfo {
	info, err := extproc.GitInfo(ctx, e.sdkDir)
	if err != nil {
		return types.GitInfo{Error: err.Error()}
	}
	return info
}

// ResetDevice runs the vendor reset CLI. The gate is held for the whole
// reset so it never races an admitted computation; anything already
// waiting simply queues behind it.
func (e *Engine) ResetDevice(ctx context.Context) types.ResetResponse {
	release, _, err := e.gate.Acquire(ctx)
	if err != nil {
		return types.ResetResponse{Error: "could not quiesce device: " + err.Error()}
	}
	defer release()
	res := extproc.ResetDevice(ctx, e.resetTool, e.deviceID)
	if res.Success {
		e.log.Info().Int("device_id", e.deviceID).Msg("device reset")
	} else {
		e.log.Error().Str("error", res.Error).Int("device_id", e.deviceID).Msg("device reset failed")
	}
	return res
}
