// Package engine runs one operation request end to end: admission through
// the broker, scoped device open/close, input building, dispatch,
// host conversion, and the independent reference computation.
package engine

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"opcalcd/internal/broker"
	"opcalcd/internal/catalog"
	"opcalcd/internal/device"
	"opcalcd/pkg/types"
)

// Config encapsulates all tunables for Engine construction.
type Config struct {
	Driver      device.Driver
	Catalog     *catalog.Catalog
	DeviceID    int
	MachineType string
	// SDKDir is the accelerator SDK checkout queried for revision info.
	SDKDir string
	// ResetTool is the vendor CLI used for device hard reset.
	ResetTool string
	Logger    zerolog.Logger
}

const defaultMachineType = "Wormhole N150"

// Engine owns the broker and the driver; one per process.
type Engine struct {
	drv         device.Driver
	cat         *catalog.Catalog
	gate        *broker.Broker
	deviceID    int
	machineType string
	sdkDir      string
	resetTool   string
	log         zerolog.Logger

	ready atomic.Bool
}

// New constructs an Engine from Config, applying defaults for unset
// fields.
func New(cfg Config) *Engine {
	e := &Engine{
		drv:         cfg.Driver,
		cat:         cfg.Catalog,
		gate:        broker.New(),
		deviceID:    cfg.DeviceID,
		machineType: cfg.MachineType,
		sdkDir:      cfg.SDKDir,
		resetTool:   cfg.ResetTool,
		log:         cfg.Logger,
	}
	if e.drv == nil {
		e.drv = device.NewSim()
	}
	if e.cat == nil {
		e.cat = catalog.Default()
	}
	if e.machineType == "" {
		e.machineType = defaultMachineType
	}
	if e.resetTool == "" {
		e.resetTool = "tt-smi"
	}
	return e
}

// VerifyDevice opens and closes the device once, outside the request
// path, to establish readiness. Called at startup before serving.
func (e *Engine) VerifyDevice(ctx context.Context) error {
	err := device.WithDevice(ctx, e.drv, e.deviceID, e.log, func(device.Handle) error { return nil })
	e.ready.Store(err == nil)
	return err
}

// Ready reports whether the device verified at startup.
func (e *Engine) Ready() bool { return e.ready.Load() }

// Operations returns the catalog's category map.
func (e *Engine) Operations() map[string][]string { return e.cat.Operations() }

// OperationParams returns the catalog's optional-parameter metadata.
func (e *Engine) OperationParams() map[string]types.ParamInfo { return e.cat.ParamTable() }

// QueueStats returns a snapshot of the broker counters.
func (e *Engine) QueueStats() types.QueueStats { return e.gate.Stats() }

// DeviceStatus probes the gate without queuing: if admission succeeds
// instantly the device is available and the probe releases immediately;
// otherwise another request holds it.
func (e *Engine) DeviceStatus() types.DeviceStatusResponse {
	available := false
	if release, ok := e.gate.TryAcquire(); ok {
		release()
		available = true
	}
	return types.DeviceStatusResponse{
		Available:  available,
		Mode:       "serialized",
		InUse:      !available,
		QueueStats: e.gate.Stats(),
	}
}

// MachineInfo identifies the accelerator this process serves.
func (e *Engine) MachineInfo() types.MachineInfo {
	return types.MachineInfo{Success: true, MachineType: e.machineType, DeviceID: e.deviceID}
}
