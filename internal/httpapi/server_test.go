package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"opcalcd/pkg/types"
)

type mockService struct {
	executeResp types.ExecuteResponse
	lastReq     types.ExecuteRequest
	operations  map[string][]string
	params      map[string]types.ParamInfo
	queue       types.QueueStats
	status      types.DeviceStatusResponse
	git         types.GitInfo
	machine     types.MachineInfo
	reset       types.ResetResponse
	ready       bool
}

func (m *mockService) Execute(ctx context.Context, req types.ExecuteRequest) types.ExecuteResponse {
	m.lastReq = req
	return m.executeResp
}
func (m *mockService) Operations() map[string][]string { return m.operations }
func (m *mockService) OperationParams() map[string]types.ParamInfo { return m.params }
func (m *mockService) QueueStats() types.QueueStats { return m.queue }
func (m *mockService) DeviceStatus() types.DeviceStatusResponse { return m.status }
func (m *mockService) GitInfo(ctx context.Context) types.GitInfo { return m.git }
func (m *mockService) MachineInfo() types.MachineInfo { return m.machine }
func (m *mockService) ResetDevice(ctx context.Context) types.ResetResponse { return m.reset }
func (m *mockService) Ready() bool { return m.ready }

func postExecute(t *testing.T, h http.Handler, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/execute", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestExecuteHandler(t *testing.T) {
	v := 5.0
	svc := &mockService{executeResp: types.ExecuteResponse{Success: true, Value: &v}}
	r := NewMux(svc)
	w := postExecute(t, r, "application/json",
		`{"operation":"add","inputs":[{"type":"tensor","value":2,"shape":"1,1,32,32"},{"type":"tensor","value":3}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.ExecuteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.Success || body.Value == nil || *body.Value != 5 {
		t.Fatalf("body=%+v", body)
	}
	if svc.lastReq.Operation != "add" || len(svc.lastReq.Inputs) != 2 {
		t.Fatalf("request not forwarded: %+v", svc.lastReq)
	}
	if svc.lastReq.Inputs[0].Kind != "tensor" || svc.lastReq.Inputs[0].Shape != "1,1,32,32" {
		t.Fatalf("input decode: %+v", svc.lastReq.Inputs[0])
	}
}

func TestExecuteHandlerOperationFailureStays200(t *testing.T) {
	svc := &mockService{executeResp: types.ExecuteResponse{Success: false, Error: "device unavailable"}}
	r := NewMux(svc)
	w := postExecute(t, r, "application/json",
		`{"operation":"add","inputs":[{"type":"tensor","value":1}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, operation failures ride the body", w.Code)
	}
	if !strings.Contains(w.Body.String(), "device unavailable") {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestExecuteHandlerRejectsContentType(t *testing.T) {
	r := NewMux(&mockService{})
	w := postExecute(t, r, "text/plain", `{}`)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
	w = postExecute(t, r, "", `{}`)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d for missing content type", w.Code)
	}
}

func TestExecuteHandlerRejectsBadJSON(t *testing.T) {
	r := NewMux(&mockService{})
	w := postExecute(t, r, "application/json", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("json: %v", err)
	}
	if e.Code != http.StatusBadRequest {
		t.Fatalf("error payload=%+v", e)
	}
}

func TestExecuteHandlerRejectsMissingFields(t *testing.T) {
	r := NewMux(&mockService{})
	w := postExecute(t, r, "application/json", `{"inputs":[{"type":"scalar","value":1}]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing operation: status=%d", w.Code)
	}
	w = postExecute(t, r, "application/json", `{"operation":"add","inputs":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty inputs: status=%d", w.Code)
	}
}

func TestExecuteHandlerBodyLimit(t *testing.T) {
	SetMaxBodyBytes(64)
	defer SetMaxBodyBytes(0)
	r := NewMux(&mockService{})
	big := `{"operation":"add","inputs":[` + strings.Repeat(`{"type":"scalar","value":1},`, 100) + `]}`
	w := postExecute(t, r, "application/json", big)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d for oversized body", w.Code)
	}
}

func TestOperationsHandler(t *testing.T) {
	svc := &mockService{operations: map[string][]string{"Pointwise Unary": {"abs", "neg"}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/operations", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body["Pointwise Unary"]) != 2 {
		t.Fatalf("body=%+v", body)
	}
}

func TestOperationParamsHandler(t *testing.T) {
	svc := &mockService{params: map[string]types.ParamInfo{"elu": {ParamName: "alpha", Default: 1.0}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/operations/params", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body map[string]types.ParamInfo
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body["elu"].ParamName != "alpha" {
		t.Fatalf("body=%+v", body)
	}
}

func TestQueueStatusHandler(t *testing.T) {
	svc := &mockService{queue: types.QueueStats{TotalRequests: 7, MaxWaitSeconds: 1.25}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/queue/status", nil))
	var body types.QueueStats
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.TotalRequests != 7 || body.MaxWaitSeconds != 1.25 {
		t.Fatalf("body=%+v", body)
	}
	if !strings.Contains(w.Body.String(), "max_wait_time_seconds") {
		t.Fatalf("wire field name missing: %s", w.Body.String())
	}
}

func TestDeviceStatusHandler(t *testing.T) {
	svc := &mockService{status: types.DeviceStatusResponse{Available: true, Mode: "serialized"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/device/status", nil))
	var body types.DeviceStatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.Available || body.Mode != "serialized" {
		t.Fatalf("body=%+v", body)
	}
}

func TestGitInfoHandler(t *testing.T) {
	svc := &mockService{git: types.GitInfo{Success: true, ShortHash: "abc1234"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/git/info", nil))
	if !strings.Contains(w.Body.String(), "abc1234") {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestMachineInfoHandler(t *testing.T) {
	svc := &mockService{machine: types.MachineInfo{Success: true, MachineType: "Wormhole N150"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/machine/info", nil))
	if !strings.Contains(w.Body.String(), "Wormhole N150") {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestResetHandler(t *testing.T) {
	svc := &mockService{reset: types.ResetResponse{Success: true, Message: "device reset successfully"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/device/reset", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "device reset successfully") {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	r = NewMux(&mockService{ready: false})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "device unavailable") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("nosniff header=%q", got)
	}
}

func TestCORSDisabledByDefault(t *testing.T) {
	SetCORSOptions(false, nil)
	r := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected CORS header %q", got)
	}
}

func TestCORSEnabled(t *testing.T) {
	SetCORSOptions(true, []string{"http://localhost:3000"})
	defer SetCORSOptions(false, nil)
	r := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin=%q", got)
	}
}
