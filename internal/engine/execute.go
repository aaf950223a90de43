package engine

import (
	"context"
	"fmt"
	"time"

	"opcalcd/internal/device"
	"opcalcd/internal/refcalc"
	"opcalcd/pkg/types"
)

// Execute runs one operation request. Success is reported in the response
// body; the returned struct is always well-formed. The central invariant:
// once admitted, the gate is released exactly once and any opened handle
// is closed exactly once, on every path.
func (e *Engine) Execute(ctx context.Context, req types.ExecuteRequest) types.ExecuteResponse {
	start := time.Now()
	plog := newProgressLog()
	stage := StageQueued
	plog.Add("queued for device access")

	release, wait, err := e.gate.Acquire(ctx)
	if err != nil {
		// Never admitted: no release owed, counters already repaired.
		return e.fail(req.Operation, plog, stage, start, err)
	}
	defer release()
	stage = StageAdmitted
	plog.Add("admitted after %.3fs wait", wait.Seconds())
	e.log.Info().Str("operation", req.Operation).Dur("wait", wait).Msg("operation admitted")

	params := e.bindParams(req)

	var (
		host     device.HostTensor
		deviceDT device.DType
		refArgs  []refcalc.Value
	)
	err = device.WithDevice(ctx, e.drv, e.deviceID, e.log, func(h device.Handle) error {
		stage = StageDeviceOpen
		plog.Add("device %d open", e.deviceID)

		operands, ra, berr := e.buildInputs(h, req.Inputs, plog)
		if berr != nil {
			return berr
		}
		refArgs = ra
		stage = StageInputsBuilt
		plog.Add("%d input(s) materialized", len(operands))

		opFn, ok := h.Op(req.Operation)
		if !ok {
			return device.ErrUnknownOperation(req.Operation)
		}
		out, xerr := opFn(operands, params)
		if xerr != nil {
			return xerr
		}
		stage = StageExecuted
		plog.Add("operation %q executed", req.Operation)

		deviceDT = out.DType()
		var cerr error
		host, cerr = h.ToHost(out)
		if cerr != nil {
			return cerr
		}
		stage = StageConverted
		plog.Add("result read back to host")
		return nil
	})
	if err != nil {
		return e.fail(req.Operation, plog, stage, start, err)
	}

	resp := shapeResult(host, deviceDT)

	// Reference computation is best-effort: a failure degrades the
	// reference fields to null, never the request.
	if ref, rerr := refcalc.Compute(req.Operation, refArgs, params); rerr != nil {
		plog.Add("reference unavailable: %v", rerr)
		e.log.Warn().Err(rerr).Str("operation", req.Operation).Msg("reference computation failed")
	} else {
		v := ref.Value
		resp.ReferenceValue = &v
		resp.ReferenceShape = ref.Shape
		resp.ReferenceDType = ref.DType
		plog.Add("reference computed")
	}

	stage = StageDone
	plog.Add("done")
	resp.Success = true
	resp.StatusLog = plog.Steps()
	st := e.gate.Stats()
	resp.QueueStats = &st
	executionsTotal.WithLabelValues(req.Operation, "ok").Inc()
	executeDuration.Observe(time.Since(start).Seconds())
	return resp
}

// bindParams maps the request's optional scalar parameters onto the
// operation's declared keyword names. The second parameter of a
// two-parameter operation defaults from the catalog when the caller
// supplies only the first.
func (e *Engine) bindParams(req types.ExecuteRequest) map[string]float64 {
	info, ok := e.cat.ParamsFor(req.Operation)
	if !ok || req.OptionalParam == nil {
		return nil
	}
	p := map[string]float64{info.ParamName: *req.OptionalParam}
	if info.HasSecondParam {
		second := info.SecondParamDefault
		if req.OptionalParam2 != nil {
			second = *req.OptionalParam2
		}
		p[info.SecondParamName] = second
	}
	return p
}

// buildInputs materializes the request operands on the device. Scalars
// pass through; tensors are uniformly filled with the requested value and
// transferred in tile layout.
func (e *Engine) buildInputs(h device.Handle, specs []types.InputSpec, plog *progressLog) ([]device.Operand, []refcalc.Value, error) {
	operands := make([]device.Operand, 0, len(specs))
	refs := make([]refcalc.Value, 0, len(specs))
	for i, in := range specs {
		if in.Kind == "scalar" {
			operands = append(operands, device.Operand{Scalar: in.Value})
			refs = append(refs, refcalc.Value{Fill: in.Value})
			plog.Add("input %d: scalar %g", i, in.Value)
			continue
		}
		shape, parsed := parseShapeStrict(in.Shape)
		if !parsed {
			shape = append([]int(nil), DefaultShape...)
			plog.Add("input %d: shape %q unusable, falling back to %v", i, in.Shape, DefaultShape)
		}
		dt := device.ParseDType(in.DType)
		t, err := h.FromHost(device.Uniform(shape, dt, float32(in.Value)))
		if err != nil {
			return nil, nil, fmt.Errorf("input %d: %w", i, err)
		}
		operands = append(operands, device.Operand{Tensor: t})
		refs = append(refs, refcalc.Value{IsTensor: true, Fill: in.Value, Shape: shape})
		plog.Add("input %d: tensor %v %s filled with %g", i, shape, dt, in.Value)
	}
	return operands, refs, nil
}

func shapeResult(host device.HostTensor, devDT device.DType) types.ExecuteResponse {
	n := 10
	if len(host.Data) < n {
		n = len(host.Data)
	}
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		samples[i] = float64(host.Data[i])
	}
	var v *float64
	if len(host.Data) > 0 {
		f := float64(host.Data[0])
		v = &f
	}
	return types.ExecuteResponse{
		Shape:        host.Shape,
		DType:        string(host.DType),
		DeviceDType:  string(devDT),
		Value:        v,
		SampleValues: samples,
	}
}

func (e *Engine) fail(op string, plog *progressLog, stage Stage, start time.Time, err error) types.ExecuteResponse {
	plog.Add("failed at %s: %v", stage, err)
	e.log.Error().Err(err).Str("operation", op).Str("stage", string(stage)).Msg("operation request failed")
	executionsTotal.WithLabelValues(op, "error").Inc()
	executeDuration.Observe(time.Since(start).Seconds())
	st := e.gate.Stats()
	return types.ExecuteResponse{
		Success:    false,
		Error:      err.Error(),
		Detail:     fmt.Sprintf("stage=%s operation=%s: %v", stage, op, err),
		StatusLog:  plog.Steps(),
		QueueStats: &st,
	}
}
