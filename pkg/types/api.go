package types

// InputSpec describes one operand of an operation request. Tensor inputs
// are materialized as uniformly-filled tensors of the given shape/dtype;
// scalar inputs pass the value through unchanged.
type InputSpec struct {
	// Operand kind: "tensor" or "scalar".
	// example: tensor
	Kind string `json:"type" example:"tensor"`
	// Fill value (tensor) or the scalar value itself.
	// example: 2.5
	Value float64 `json:"value" example:"2.5"`
	// Element dtype for tensor inputs.
	// example: bfloat16
	DType string `json:"dtype,omitempty" example:"bfloat16"`
	// Comma-separated tensor shape, e.g. "1,1,32,32".
	// example: 1,1,32,32
	Shape string `json:"shape,omitempty" example:"1,1,32,32"`
}

// ExecuteRequest is the payload for POST /api/execute.
type ExecuteRequest struct {
	// Operation name from the catalog.
	// example: add
	Operation string `json:"operation" example:"add"`
	// Ordered operands.
	Inputs []InputSpec `json:"inputs"`
	// First optional scalar parameter, when the catalog declares one.
	// example: 0.5
	OptionalParam *float64 `json:"optional_param,omitempty" example:"0.5"`
	// Second optional scalar parameter (threshold only).
	// example: 1.0
	OptionalParam2 *float64 `json:"optional_param_2,omitempty" example:"1.0"`
}

// QueueStats reports broker queueing counters.
type QueueStats struct {
	// Total acquire attempts since process start.
	// example: 42
	TotalRequests uint64 `json:"total_requests" example:"42"`
	// Requests currently blocked waiting for the device.
	// example: 0
	CurrentlyWaiting int64 `json:"currently_waiting" example:"0"`
	// Largest observed wait before admission, in seconds.
	// example: 1.5
	MaxWaitSeconds float64 `json:"max_wait_time_seconds" example:"1.5"`
}

// ExecuteResponse is the result of one operation request. Success is
// reported in-body; HTTP errors are reserved for transport problems.
type ExecuteResponse struct {
	Success bool `json:"success"`
	// Result tensor shape.
	Shape []int `json:"shape,omitempty"`
	// Result dtype as reported by the host conversion.
	// example: bfloat16
	DType string `json:"dtype,omitempty" example:"bfloat16"`
	// Result dtype as reported by the device.
	// example: bfloat16
	DeviceDType string `json:"device_dtype,omitempty" example:"bfloat16"`
	// First flattened element; representative because inputs are uniform.
	Value *float64 `json:"value,omitempty"`
	// First 10 flattened elements.
	SampleValues []float64 `json:"sample_values,omitempty"`
	// Independently computed reference value; null when the reference
	// backend failed or does not cover the operation.
	ReferenceValue *float64 `json:"reference_value,omitempty"`
	ReferenceDType string   `json:"reference_dtype,omitempty"`
	ReferenceShape []int    `json:"reference_shape,omitempty"`
	// Timestamped step log for this request.
	StatusLog []string `json:"status_log,omitempty"`
	// Broker counters sampled at completion.
	QueueStats *QueueStats `json:"queue_stats,omitempty"`
	// Error message, present iff success=false.
	Error string `json:"error,omitempty"`
	// Full diagnostic detail for operator debugging.
	Detail string `json:"detail,omitempty"`
}

// ParamInfo describes an operation's optional scalar parameter(s).
type ParamInfo struct {
	// Declared keyword name of the first parameter.
	// example: alpha
	ParamName string `json:"param_name" example:"alpha"`
	// Default used when the caller omits the parameter.
	// example: 1.0
	Default float64 `json:"default" example:"1.0"`
	// Human-readable description.
	Description string `json:"description"`
	// Whether a second parameter exists (threshold).
	HasSecondParam bool `json:"has_second_param,omitempty"`
	// Declared keyword name of the second parameter.
	// example: value
	SecondParamName        string  `json:"second_param_name,omitempty" example:"value"`
	SecondParamDefault     float64 `json:"second_param_default,omitempty"`
	SecondParamDescription string  `json:"second_param_description,omitempty"`
}

// DeviceStatusResponse is returned by the non-blocking device probe.
type DeviceStatusResponse struct {
	// True when the probe could acquire the gate instantly.
	Available bool `json:"available"`
	// Access mode; always "serialized".
	// example: serialized
	Mode string `json:"mode" example:"serialized"`
	// True when another request currently holds the device.
	InUse bool `json:"in_use"`
	// Broker counters at probe time.
	QueueStats QueueStats `json:"queue_stats"`
}

// GitInfo reports revision metadata of the accelerator SDK checkout.
type GitInfo struct {
	Success   bool   `json:"success"`
	FullHash  string `json:"full_hash,omitempty"`
	ShortHash string `json:"short_hash,omitempty"`
	TimeAgo   string `json:"time_ago,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// MachineInfo identifies the host accelerator.
type MachineInfo struct {
	Success bool `json:"success"`
	// example: Wormhole N150
	MachineType string `json:"machine_type" example:"Wormhole N150"`
	DeviceID    int    `json:"device_id"`
}

// ResetResponse is returned by POST /api/device/reset.
type ResetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
