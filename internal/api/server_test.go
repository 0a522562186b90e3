package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opcc-pilot/complaint-intake/internal/complaint"
	"github.com/opcc-pilot/complaint-intake/internal/intake"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
	"github.com/opcc-pilot/complaint-intake/internal/log"
	"github.com/opcc-pilot/complaint-intake/internal/state"
	"github.com/opcc-pilot/complaint-intake/internal/testutil"
)

type mailerStub struct {
	sent []*complaint.Record
	err  error
}

func (m *mailerStub) Send(_ context.Context, rec *complaint.Record) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, rec.Clone())
	return nil
}

// testServer bundles the pieces a handler test needs.
type testServer struct {
	srv   *httptest.Server
	model *testutil.ScriptedModel
	// cookies carries the intake_session cookie between requests.
	cookies []*http.Cookie
}

func newTestServer(t *testing.T, mutate func(*ServerConfig)) *testServer {
	t.Helper()

	model := testutil.NewScriptedModel()
	store, err := state.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	orch, err := intake.New(intake.Config{
		Model:  model,
		Mailer: &mailerStub{},
		Store:  store,
		Logger: log.NewNop(),
		Retry:  intake.RetryConfig{MaxRetries: 0, InitialInterval: time.Millisecond},
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg := ServerConfig{
		Logger:       testutil.DiscardLogger(),
		Orchestrator: orch,
		IsDev:        true,
		RateBurst:    1000,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	server, err := NewServer(cfg)
	if err != nil {
		t.Fatal(err)
	}

	ts := &testServer{srv: httptest.NewServer(server.Handler()), model: model}
	t.Cleanup(ts.srv.Close)
	return ts
}

// do sends a request, carrying the session cookie across calls.
func (ts *testServer) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range ts.cookies {
		req.AddCookie(c)
	}
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Cookies(); len(got) > 0 {
		ts.cookies = got
	}
	return resp
}

func (ts *testServer) submitJSON(t *testing.T, text string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"text": text})
	return ts.do(t, http.MethodPost, "/api/v1/intake/turns", "application/json", bytes.NewReader(body))
}

func decodeTurns(t *testing.T, resp *http.Response) []*llm.Turn {
	t.Helper()
	defer resp.Body.Close()
	var out struct {
		Turns []*llm.Turn `json:"turns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding turns: %v", err)
	}
	return out.Turns
}

func decodeErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var out struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return out.Error.Code
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodGet, "/health", "", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("body = %s", body)
	}
}

func TestSubmitTurn_JSON(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.model.EnqueueText("When did the incident happen?")

	resp := ts.submitJSON(t, "I want to file a complaint")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	turns := decodeTurns(t, resp)
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want user + model", len(turns))
	}
	if turns[0].Role != llm.RoleUser || turns[1].Text() != "When did the incident happen?" {
		t.Errorf("unexpected exchange: %+v", turns)
	}

	var found bool
	for _, c := range ts.cookies {
		if c.Name == "intake_session" {
			found = true
		}
	}
	if !found {
		t.Error("response must set the intake_session cookie")
	}
}

func TestSubmitTurn_Empty(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.submitJSON(t, "   ")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if code := decodeErrorCode(t, resp); code != "empty_submission" {
		t.Errorf("code = %q", code)
	}
}

func TestSubmitTurn_Multipart(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.model.EnqueueText("Thank you, I have noted the photo.")

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	if err := mw.WriteField("text", "Here is a photo of my injury"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("attachment", "injury.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("\x89PNG\r\n\x1a\nfakeimagedata")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp := ts.do(t, http.MethodPost, "/api/v1/intake/turns", mw.FormDataContentType(), buf)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	turns := decodeTurns(t, resp)
	if len(turns) != 2 || len(turns[0].Parts) != 2 {
		t.Fatalf("unexpected exchange: %+v", turns)
	}

	// Filename lands in the record as evidence.
	snap := ts.do(t, http.MethodGet, "/api/v1/intake", "", nil)
	defer snap.Body.Close()
	var got struct {
		Record *complaint.Record `json:"record"`
	}
	if err := json.NewDecoder(snap.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Record.EvidenceFiles) != 1 || got.Record.EvidenceFiles[0] != "injury.png" {
		t.Errorf("evidence files = %v", got.Record.EvidenceFiles)
	}
}

func TestSubmitTurn_AttachmentTooLarge(t *testing.T) {
	ts := newTestServer(t, func(cfg *ServerConfig) { cfg.MaxBytes = 1 << 10 })

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile("attachment", "huge.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(bytes.Repeat([]byte("x"), 2<<10)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	resp := ts.do(t, http.MethodPost, "/api/v1/intake/turns", mw.FormDataContentType(), buf)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge && resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 413 (or 400 from form parsing)", resp.StatusCode)
	}
}

func TestSnapshot_FreshSession(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodGet, "/api/v1/intake", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var got struct {
		SessionID   string      `json:"sessionId"`
		Turns       []*llm.Turn `json:"turns"`
		Finalized   bool        `json:"finalized"`
		ReportReady bool        `json:"reportReady"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.SessionID == "" || len(got.Turns) != 1 {
		t.Errorf("snapshot = %+v", got)
	}
	if got.Finalized || got.ReportReady {
		t.Error("fresh session must not be finalized or report-ready")
	}
}

func TestSnapshot_SharesSessionAcrossRequests(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.model.EnqueueText("Noted.")

	resp := ts.submitJSON(t, "hello")
	resp.Body.Close()

	snap := ts.do(t, http.MethodGet, "/api/v1/intake", "", nil)
	defer snap.Body.Close()
	var got struct {
		Turns []*llm.Turn `json:"turns"`
	}
	if err := json.NewDecoder(snap.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Turns) != 3 {
		t.Errorf("turns = %d, want greeting + user + model", len(got.Turns))
	}
}

func TestReset(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.model.EnqueueToolCall("", "saveComplaintDetails", map[string]any{"complainantName": "Alex"})
	ts.model.EnqueueText("Saved.")

	ts.submitJSON(t, "My name is Alex").Body.Close()

	resp := ts.do(t, http.MethodPost, "/api/v1/intake/reset", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	snap := ts.do(t, http.MethodGet, "/api/v1/intake", "", nil)
	defer snap.Body.Close()
	var got struct {
		Turns       []*llm.Turn `json:"turns"`
		ReportReady bool        `json:"reportReady"`
	}
	if err := json.NewDecoder(snap.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Turns) != 1 || got.ReportReady {
		t.Errorf("after reset: %d turns, reportReady=%v", len(got.Turns), got.ReportReady)
	}
}

func TestDownloadReport(t *testing.T) {
	ts := newTestServer(t, nil)

	// Empty record refuses the download.
	resp := ts.do(t, http.MethodGet, "/api/v1/intake/report", "", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409 before any details", resp.StatusCode)
	}
	if code := decodeErrorCode(t, resp); code != "report_empty" {
		t.Errorf("code = %q", code)
	}

	ts.model.EnqueueToolCall("", "saveComplaintDetails", map[string]any{"complainantName": "Alex Chen"})
	ts.model.EnqueueText("Saved.")
	ts.submitJSON(t, "My name is Alex Chen").Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/v1/intake/report", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "complaint-report.html") {
		t.Errorf("content disposition = %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Alex Chen") {
		t.Error("report must contain the recorded name")
	}
}

func TestFinalizedSession_RejectsFurtherTurns(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.model.EnqueueToolCall("", "emailComplaintReport", map[string]any{
		"emailAddress":    "alex@example.com",
		"complainantName": "Alex",
	})
	ts.model.EnqueueText("Your report has been emailed. Goodbye.")

	ts.submitJSON(t, "Please email my report to alex@example.com").Body.Close()

	resp := ts.submitJSON(t, "one more thing")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if code := decodeErrorCode(t, resp); code != "session_finalized" {
		t.Errorf("code = %q", code)
	}
}

func TestMalformedCookie_GetsFreshSession(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.cookies = []*http.Cookie{{Name: "intake_session", Value: "not-a-uuid"}}

	resp := ts.do(t, http.MethodGet, "/api/v1/intake", "", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var fresh bool
	for _, c := range ts.cookies {
		if c.Name == "intake_session" && c.Value != "not-a-uuid" {
			fresh = true
		}
	}
	if !fresh {
		t.Error("malformed cookie must be replaced with a fresh session id")
	}
}
