// Package intake runs the complaint interview: it drives the model through
// the conversation log, dispatches the tool calls the model issues, and
// keeps the session state persisted.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/opcc-pilot/complaint-intake/internal/attachment"
	"github.com/opcc-pilot/complaint-intake/internal/llm"
	"github.com/opcc-pilot/complaint-intake/internal/log"
	"github.com/opcc-pilot/complaint-intake/internal/report"
	"github.com/opcc-pilot/complaint-intake/internal/state"
	"github.com/opcc-pilot/complaint-intake/internal/tools"
)

// Defaults applied by New when Config leaves them zero.
const (
	DefaultMaxRoundTrips    = 8
	defaultModelCallTimeout = 2 * time.Minute
	defaultDeliveryTimeout  = 30 * time.Second
	defaultRequestsPerSec   = 10
	defaultRateBurst        = 30
)

// Config assembles an Orchestrator.
type Config struct {
	Model  llm.Client    // required
	Mailer report.Sender // required
	Store  state.Store   // required
	Logger log.Logger    // required

	// MaxRoundTrips caps model round trips per user submission. When the
	// cap is hit a forced-exit turn ends the exchange.
	MaxRoundTrips int

	// ModelCallTimeout bounds each model call attempt.
	ModelCallTimeout time.Duration

	// DeliveryTimeout bounds the report email delivery.
	DeliveryTimeout time.Duration

	// Retry controls model-call retry behavior.
	Retry RetryConfig

	// RequestsPerSec and RateBurst configure the client-side model-call
	// limiter.
	RequestsPerSec float64
	RateBurst      int
}

func (c *Config) validate() error {
	if c.Model == nil {
		return errors.New("intake: model client is required")
	}
	if c.Mailer == nil {
		return errors.New("intake: report sender is required")
	}
	if c.Store == nil {
		return errors.New("intake: state store is required")
	}
	if c.Logger == nil {
		return errors.New("intake: logger is required")
	}
	return nil
}

// toolHandler produces the result string for one dispatched invocation.
type toolHandler func(ctx context.Context, s *Session, args map[string]any) string

// Orchestrator owns the submit loop for all sessions.
type Orchestrator struct {
	model   llm.Client
	mailer  report.Sender
	store   state.Store
	logger  log.Logger
	limiter *rate.Limiter
	tracer  trace.Tracer

	decls    []llm.Declaration
	handlers map[string]toolHandler

	maxRoundTrips    int
	modelCallTimeout time.Duration
	deliveryTimeout  time.Duration
	retry            RetryConfig
}

// New creates an Orchestrator, wiring the dispatch table for the fixed tool
// registry.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.MaxRoundTrips <= 0 {
		cfg.MaxRoundTrips = DefaultMaxRoundTrips
	}
	if cfg.ModelCallTimeout <= 0 {
		cfg.ModelCallTimeout = defaultModelCallTimeout
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialInterval == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = defaultRequestsPerSec
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}

	o := &Orchestrator{
		model:            cfg.Model,
		mailer:           cfg.Mailer,
		store:            cfg.Store,
		logger:           cfg.Logger,
		limiter:          rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RateBurst),
		tracer:           otel.Tracer("intake"),
		decls:            tools.Declarations(),
		maxRoundTrips:    cfg.MaxRoundTrips,
		modelCallTimeout: cfg.ModelCallTimeout,
		deliveryTimeout:  cfg.DeliveryTimeout,
		retry:            cfg.Retry,
	}
	o.handlers = map[string]toolHandler{
		tools.SaveComplaintDetails: o.handleSave,
		tools.EmailComplaintReport: o.handleEmail,
	}
	return o, nil
}

// SubmitUserTurn runs one full exchange: append the user turn, then loop
// model call / dispatch / tool turn until the model answers with plain text
// (or a bound trips). It returns the turns appended during the exchange.
//
// Everything that fails mid-exchange is recovered into the log as a
// model-role message; only the submission guards produce errors.
func (o *Orchestrator) SubmitUserTurn(ctx context.Context, s *Session, text string, att *attachment.Attachment) ([]*llm.Turn, error) {
	if strings.TrimSpace(text) == "" && att == nil {
		return nil, ErrEmptySubmission
	}
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	ctx, span := o.tracer.Start(ctx, "intake.submit_user_turn",
		trace.WithAttributes(attribute.String("session.id", s.ID().String())))
	defer span.End()

	base := s.length()

	var parts []llm.Part
	if strings.TrimSpace(text) != "" {
		parts = append(parts, llm.TextPart(text))
	}
	if att != nil {
		parts = append(parts, llm.InlinePart(att.MIMEType, att.Data))
	}
	s.append(llm.NewUserTurn(parts...))
	if att != nil {
		// The filename is evidence the moment it is submitted, before any
		// model call can fail.
		s.addEvidenceFile(att.Name)
	}
	o.persist(ctx, s)

	trips := 0
	for {
		if trips >= o.maxRoundTrips {
			o.logger.Warn("round-trip cap reached, forcing exit",
				"session", s.ID(),
				"trips", trips,
			)
			s.append(llm.NewModelTurn(forcedExitMessage))
			break
		}
		trips++

		reply, err := o.callModel(ctx, s.Turns())
		if err != nil {
			o.logger.Error("model call failed", "session", s.ID(), "error", err)
			s.append(llm.NewModelTurn(fmt.Sprintf(modelErrorFmt, err)))
			break
		}

		// The reply is logged verbatim, extra invocations included.
		s.append(reply)
		o.persist(ctx, s)

		calls := reply.FunctionCalls()
		if len(calls) == 0 {
			break
		}
		if len(calls) > 1 {
			o.logger.Warn("model issued multiple invocations, dispatching first only",
				"session", s.ID(),
				"count", len(calls),
			)
		}

		call := calls[0]
		result := o.dispatch(ctx, s, call)
		s.append(llm.NewToolTurn(call.Name, result))
		o.persist(ctx, s)
	}

	span.SetAttributes(attribute.Int("intake.round_trips", trips))
	o.persist(ctx, s)
	return s.turnsSince(base), nil
}

// NoteAttachmentFailure records that an attachment could not be read. No
// model call happens; the apology appears in the log like any model turn.
func (o *Orchestrator) NoteAttachmentFailure(ctx context.Context, s *Session) ([]*llm.Turn, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.end()

	turn := llm.NewModelTurn(attachmentFailure)
	s.append(turn)
	o.persist(ctx, s)
	return []*llm.Turn{turn.Clone()}, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, s *Session, call *llm.FunctionCall) string {
	handler, ok := o.handlers[call.Name]
	if !ok {
		o.logger.Warn("unknown tool invoked", "session", s.ID(), "tool", call.Name)
		return resultDefault
	}
	return handler(ctx, s, call.Args)
}

func (o *Orchestrator) handleSave(_ context.Context, s *Session, args map[string]any) string {
	s.applyPatch(args)
	o.logger.Debug("complaint details saved", "session", s.ID(), "fields", len(args))
	return resultSaved
}

func (o *Orchestrator) handleEmail(ctx context.Context, s *Session, args map[string]any) string {
	// Late-arriving arguments (usually the email address) merge before the
	// snapshot so the report reflects them.
	s.applyPatch(args)
	snapshot := s.Record()

	sendCtx, cancel := context.WithTimeout(ctx, o.deliveryTimeout)
	defer cancel()

	if err := o.mailer.Send(sendCtx, snapshot); err != nil {
		o.logger.Error("report delivery failed", "session", s.ID(), "error", err)
		return fmt.Sprintf(emailFailedFmt, err)
	}

	s.finalize()
	o.logger.Info("report delivered, session finalized", "session", s.ID())
	return resultEmailed
}

// Reset discards the conversation and record and clears persisted state.
// Refused while an exchange is running.
func (o *Orchestrator) Reset(ctx context.Context, s *Session) error {
	if err := s.reset(); err != nil {
		return err
	}
	if err := o.store.Clear(ctx, s.ID()); err != nil {
		o.logger.Warn("clearing persisted state failed", "session", s.ID(), "error", err)
	}
	return nil
}

// Hydrate rebuilds a session from persisted state. Either blob is discarded
// wholesale when it fails to load or validate; a log of one turn or fewer
// counts as no history.
func (o *Orchestrator) Hydrate(ctx context.Context, id uuid.UUID) *Session {
	record, err := o.store.LoadRecord(ctx, id)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			o.logger.Warn("discarding persisted record", "session", id, "error", err)
		}
		record = nil
	}

	turns, err := o.store.LoadLog(ctx, id)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			o.logger.Warn("discarding persisted log", "session", id, "error", err)
		}
		turns = nil
	} else if vErr := llm.ValidateLog(turns); vErr != nil {
		o.logger.Warn("discarding invalid persisted log", "session", id, "error", vErr)
		turns = nil
	}

	return restore(id, turns, record)
}

// persist saves the log and record best-effort. Failures are logged, never
// surfaced: losing a checkpoint must not kill a live exchange. Greeting-only
// logs are skipped so a virgin session leaves no history behind.
func (o *Orchestrator) persist(ctx context.Context, s *Session) {
	turns := s.Turns()
	if len(turns) > 1 {
		if err := o.store.SaveLog(ctx, s.ID(), turns); err != nil {
			o.logger.Warn("persisting log failed", "session", s.ID(), "error", err)
		}
	}
	if err := o.store.SaveRecord(ctx, s.ID(), s.Record()); err != nil {
		o.logger.Warn("persisting record failed", "session", s.ID(), "error", err)
	}
}
