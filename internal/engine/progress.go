package engine

import (
	"fmt"
	"time"
)

// Stage names the pipeline states of one request. FAILED is absorbing and
// reachable from any non-terminal stage.
type Stage string

const (
	StageQueued            Stage = "QUEUED"
	StageAdmitted          Stage = "ADMITTED"
	StageDeviceOpen        Stage = "DEVICE_OPEN"
	StageInputsBuilt       Stage = "INPUTS_BUILT"
	StageExecuted          Stage = "EXECUTED"
	StageConverted         Stage = "CONVERTED"
	StageReferenceComputed Stage = "REFERENCE_COMPUTED"
	StageDone              Stage = "DONE"
	StageFailed            Stage = "FAILED"
)

// progressLog accumulates timestamped human-readable steps for a single
// request. Append-only, request-scoped, attached to the response payload.
type progressLog struct {
	t0    time.Time
	steps []string
}

func newProgressLog() *progressLog {
	return &progressLog{t0: time.Now()}
}

func (p *progressLog) Add(format string, args ...any) {
	stamp := fmt.Sprintf("[+%.3fs] ", time.Since(p.t0).Seconds())
	p.steps = append(p.steps, stamp+fmt.Sprintf(format, args...))
}

func (p *progressLog) Steps() []string { return p.steps }
