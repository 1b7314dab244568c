// Package events publishes object lifecycle events over NATS and lets
// subscribers override the response payload through request/reply.
package events

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/objectgateway/errors"
)

// SubjectPrefix is the subject tree lifecycle events publish under.
const SubjectPrefix = "gateway.object"

// DefaultReplyWindow bounds how long an emit waits for an override reply.
const DefaultReplyWindow = 5 * time.Second

// Emitter publishes a lifecycle event and returns the payload to continue
// with. A subscriber that replies within the window replaces the payload;
// silence leaves it unchanged.
type Emitter interface {
	Emit(ctx context.Context, action string, payload map[string]any) (map[string]any, error)
}

// Nop is an Emitter that never publishes and never overrides.
type Nop struct{}

// Emit returns the payload unchanged.
func (Nop) Emit(_ context.Context, _ string, payload map[string]any) (map[string]any, error) {
	return payload, nil
}

// NATSEmitter publishes events on gateway.object.<action> using NATS
// request/reply.
type NATSEmitter struct {
	conn        *nats.Conn
	logger      *slog.Logger
	replyWindow time.Duration
}

// NewNATSEmitter creates an emitter on the given connection.
func NewNATSEmitter(conn *nats.Conn, logger *slog.Logger, replyWindow time.Duration) (*NATSEmitter, error) {
	if conn == nil {
		return nil, errors.WrapUpstream(nil, "events", "NewNATSEmitter", "nats connection cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if replyWindow <= 0 {
		replyWindow = DefaultReplyWindow
	}
	return &NATSEmitter{
		conn:        conn,
		logger:      logger.With("component", "events"),
		replyWindow: replyWindow,
	}, nil
}

// Emit publishes the event and waits for at most one reply. With no
// responder on the subject the payload passes through unchanged; a reply
// that is valid JSON replaces it.
func (e *NATSEmitter) Emit(ctx context.Context, action string, payload map[string]any) (map[string]any, error) {
	subject := SubjectPrefix + "." + action

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "events", "Emit", "marshal event payload")
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.replyWindow)
	defer cancel()

	msg, err := e.conn.RequestWithContext(reqCtx, subject, data)
	if err != nil {
		if stderrors.Is(err, nats.ErrNoResponders) {
			return payload, nil
		}
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, nats.ErrTimeout) {
			e.logger.Debug("no event reply within window", "subject", subject)
			return payload, nil
		}
		return nil, errors.WrapUpstream(err, "events", "Emit", "publish event")
	}

	if len(msg.Data) == 0 {
		return payload, nil
	}

	var override map[string]any
	if err := json.Unmarshal(msg.Data, &override); err != nil {
		e.logger.Warn("discarding malformed event reply", "subject", subject, "error", err)
		return payload, nil
	}

	e.logger.Debug("event reply replaced payload", "subject", subject)
	return override, nil
}
