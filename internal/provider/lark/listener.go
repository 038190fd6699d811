package lark

import (
	"context"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"

	"github.com/alfadb/openclaw/internal/coordinator"
	"github.com/alfadb/openclaw/internal/platform/logging"
)

// Handler is the inbound side TaskCoordinator exposes to any Provider
// listener, kept as a narrow interface so this package doesn't need the
// concrete *coordinator.Coordinator type.
type Handler interface {
	HandleInbound(ctx context.Context, event coordinator.InboundEvent) error
}

// Listener bridges a single Lark app's WebSocket event stream into a
// Handler, grounded on the teacher's Gateway.Start/handleMessage in
// internal/channels/lark/gateway.go: a long-poll event dispatcher running
// over larkws.Client, with each event handed off to a goroutine so the WS
// frame is ACKed immediately and the server doesn't redeliver it while the
// coordinator is still working.
type Listener struct {
	accountID string
	cfg       Config
	handler   Handler
	logger    logging.Logger

	ws *larkws.Client
}

// NewListener constructs a Listener for a single Lark app's event stream.
func NewListener(accountID string, cfg Config, handler Handler, logger logging.Logger) *Listener {
	return &Listener{
		accountID: accountID,
		cfg:       cfg,
		handler:   handler,
		logger:    logging.OrNop(logger),
	}
}

// Start builds the event dispatcher and WebSocket client and blocks until
// ctx is cancelled or the connection fails unrecoverably.
func (l *Listener) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	eventDispatcher := dispatcher.NewEventDispatcher("", "")
	eventDispatcher.OnP2MessageReceiveV1(l.onMessageReceive)

	var wsOpts []larkws.ClientOption
	wsOpts = append(wsOpts, larkws.WithEventHandler(eventDispatcher))
	wsOpts = append(wsOpts, larkws.WithLogLevel(larkcore.LogLevelInfo))
	if l.cfg.BaseDomain != "" {
		wsOpts = append(wsOpts, larkws.WithDomain(l.cfg.BaseDomain))
	}
	l.ws = larkws.NewClient(l.cfg.AppID, l.cfg.AppSecret, wsOpts...)

	l.logger.Info("lark: connecting account=%s app_id=%s", l.accountID, l.cfg.AppID)
	return l.ws.Start(ctx)
}

// onMessageReceive is the dispatcher callback. It never returns a non-nil
// error to the SDK — a dropped/unparseable event is not an ACK failure, and
// a handler error is logged and swallowed so one bad event never stalls
// WebSocket re-delivery for the rest of the connection.
func (l *Listener) onMessageReceive(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
	inbound, ok := l.parseInboundEvent(l.accountID, event)
	if !ok {
		return nil
	}
	go func() {
		if err := l.handler.HandleInbound(context.Background(), inbound); err != nil {
			l.logger.Warn("lark: handle inbound failed for %s: %v", inbound.MessageID, err)
		}
	}()
	return nil
}
