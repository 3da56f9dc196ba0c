package runtime

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"

	"guild-chat/contract"
	"guild-chat/domain"
	"guild-chat/domain/envelope"
	"guild-chat/errors"
	"guild-chat/observability"
)

// Dispatcher routes the inbound frames of a connection according to its session state.
// Frames of one connection are expected to be dispatched sequentially, in read order.
// Every failure is reported to the sender only and never closes the connection.
type Dispatcher struct {
	log           *slog.Logger
	authenticator contract.Authenticator
	relay         *Relay
	registry      *Registry
	metrics       *observability.Metrics
}

func NewDispatcher(log *slog.Logger, authenticator contract.Authenticator,
	relay *Relay, registry *Registry, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		log:           log,
		authenticator: authenticator,
		relay:         relay,
		registry:      registry,
		metrics:       metrics,
	}
}

// Handle processes one raw text frame received on session.
func (d *Dispatcher) Handle(ctx context.Context, session *Session, raw []byte) {
	in, err := envelope.Decode(raw)
	if err != nil {
		d.reject(ctx, session, err)
		return
	}

	if session.State() == domain.Pending && in.Type != envelope.TypeAuth {
		d.reject(ctx, session, errors.ErrUnauthenticated)
		return
	}

	switch in.Type {
	case envelope.TypeAuth:
		d.handleAuth(ctx, session, in)
	case envelope.TypeMessage:
		if _, err := d.relay.Post(ctx, session, in.ToCommand()); err != nil {
			d.reject(ctx, session, err)
		}
	default:
		d.reject(ctx, session, fmt.Errorf("%w: unknown type %q", errors.ErrInvalidEnvelope, in.Type))
	}
}

func (d *Dispatcher) handleAuth(ctx context.Context, session *Session, in envelope.Inbound) {
	if _, ok := session.Identity(); ok {
		d.reject(ctx, session, errors.ErrAlreadyAuthenticated)
		return
	}
	identity, err := d.authenticator.Authenticate(in)
	if err != nil {
		d.reject(ctx, session, err)
		return
	}
	err = session.AuthenticateAndAck(ctx, identity, envelope.NewAuthenticated(identity))
	switch {
	case goerrors.Is(err, errors.ErrAlreadyAuthenticated):
		d.reject(ctx, session, err)
		return
	case err != nil:
		d.log.Debug("Failed to acknowledge handshake", "session_id", session.ID(), "error", err)
		return
	}
	d.registry.Refresh()
	d.log.Info("Connection authenticated",
		"session_id", session.ID(),
		"user_id", identity.UserID)
}

func (d *Dispatcher) reject(ctx context.Context, session *Session, err error) {
	frame := envelope.NewError(err)
	d.metrics.Rejected(string(frame.Code))
	d.log.Debug("Envelope rejected",
		"session_id", session.ID(),
		"code", frame.Code,
		"error", err)
	if sendErr := session.Send(ctx, frame); sendErr != nil {
		d.log.Debug("Failed to report error", "session_id", session.ID(), "error", sendErr)
	}
}
