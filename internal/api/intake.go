package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/opcc-pilot/complaint-intake/internal/attachment"
	"github.com/opcc-pilot/complaint-intake/internal/complaint"
	"github.com/opcc-pilot/complaint-intake/internal/intake"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
	"github.com/opcc-pilot/complaint-intake/internal/report"
)

// intakeHandler serves the conversation endpoints.
type intakeHandler struct {
	orch     *intake.Orchestrator
	sessions *sessionManager
	maxBytes int64
	logger   *slog.Logger
}

// turnRequest is the JSON submission body (text-only turns).
type turnRequest struct {
	Text string `json:"text"`
}

// turnResponse carries the turns appended during one exchange and the
// record as it stands afterwards.
type turnResponse struct {
	Turns  []*llm.Turn       `json:"turns"`
	Record *complaint.Record `json:"record"`
}

// snapshotResponse is the full conversation state for a session.
type snapshotResponse struct {
	SessionID   string            `json:"sessionId"`
	Turns       []*llm.Turn       `json:"turns"`
	Record      *complaint.Record `json:"record"`
	Finalized   bool              `json:"finalized"`
	ReportReady bool              `json:"reportReady"`
}

// submitTurn handles POST /api/v1/intake/turns.
//
// Accepts multipart/form-data with a "text" field and an optional
// "attachment" file, or an application/json body {"text": "..."}.
// Unreadable attachments become an apology turn in the conversation, not an
// HTTP error; only oversize uploads and the submission guards fail the
// request.
func (h *intakeHandler) submitTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := h.sessions.session(ctx, w, r)

	text, att, ok := h.parseSubmission(w, r, s)
	if !ok {
		return
	}

	turns, err := h.orch.SubmitUserTurn(ctx, s, text, att)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turnResponse{Turns: turns, Record: s.Record()}, h.logger)
}

// parseSubmission extracts the text and optional attachment from the request.
// Returns ok=false after writing the error response itself. A nil attachment
// with ok=true means a text-only turn.
func (h *intakeHandler) parseSubmission(w http.ResponseWriter, r *http.Request, s *intake.Session) (string, *attachment.Attachment, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var req turnRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed_body", "request body is not valid JSON", h.logger)
			return "", nil, false
		}
		return req.Text, nil, true
	}

	// Multipart form memory cap; larger attachments spill to disk.
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_body", "request body is not valid multipart form data", h.logger)
		return "", nil, false
	}
	text := r.FormValue("text")

	file, header, err := r.FormFile("attachment")
	if errors.Is(err, http.ErrMissingFile) {
		return text, nil, true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed_body", "attachment field is malformed", h.logger)
		return "", nil, false
	}
	defer file.Close()

	att, err := attachment.Encode(header.Filename, header.Header.Get("Content-Type"), file, h.maxBytes)
	if err != nil {
		if errors.Is(err, attachment.ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "attachment_too_large", "attachment exceeds the size limit", h.logger)
			return "", nil, false
		}
		// The file arrived but could not be read. Record the apology turn
		// and report it as a normal exchange.
		h.logger.Warn("attachment unreadable", "file", header.Filename, "error", err)
		turns, nErr := h.orch.NoteAttachmentFailure(r.Context(), s)
		if nErr != nil {
			h.writeSubmitError(w, nErr)
			return "", nil, false
		}
		writeJSON(w, http.StatusOK, turnResponse{Turns: turns, Record: s.Record()}, h.logger)
		return "", nil, false
	}
	return text, att, true
}

// writeSubmitError maps the submission guard errors to HTTP statuses.
func (h *intakeHandler) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, intake.ErrEmptySubmission):
		writeError(w, http.StatusBadRequest, "empty_submission", "a turn needs text or an attachment", h.logger)
	case errors.Is(err, intake.ErrTurnInFlight):
		writeError(w, http.StatusConflict, "turn_in_flight", "another turn is being processed", h.logger)
	case errors.Is(err, intake.ErrFinalized):
		writeError(w, http.StatusConflict, "session_finalized", "the report has been emailed; reset to start a new complaint", h.logger)
	default:
		h.logger.Error("submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
	}
}

// snapshot handles GET /api/v1/intake.
func (h *intakeHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.session(r.Context(), w, r)
	rec := s.Record()
	writeJSON(w, http.StatusOK, snapshotResponse{
		SessionID:   s.ID().String(),
		Turns:       s.Turns(),
		Record:      rec,
		Finalized:   s.Finalized(),
		ReportReady: !rec.IsEmpty(),
	}, h.logger)
}

// reset handles POST /api/v1/intake/reset.
func (h *intakeHandler) reset(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.session(r.Context(), w, r)
	if err := h.orch.Reset(r.Context(), s); err != nil {
		if errors.Is(err, intake.ErrTurnInFlight) {
			writeError(w, http.StatusConflict, "turn_in_flight", "another turn is being processed", h.logger)
			return
		}
		h.logger.Error("reset failed", "session", s.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// downloadReport handles GET /api/v1/intake/report.
// The report is only available once the record holds at least one answer.
func (h *intakeHandler) downloadReport(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.session(r.Context(), w, r)
	rec := s.Record()
	if rec.IsEmpty() {
		writeError(w, http.StatusConflict, "report_empty", "no complaint details have been recorded yet", h.logger)
		return
	}

	html, err := report.Render(rec, time.Now())
	if err != nil {
		h.logger.Error("rendering report failed", "session", s.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="complaint-report.html"`)
	if _, err := w.Write([]byte(html)); err != nil {
		h.logger.Debug("failed to write report body", "error", err)
	}
}
