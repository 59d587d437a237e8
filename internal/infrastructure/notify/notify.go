package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
	"freestylecal/internal/ports"
)

// Noop drops every notice. It is used when no broker is configured.
type Noop struct{}

var _ ports.Notifier = Noop{}

func (Noop) Notify(ctx context.Context, notice ports.RunNotice) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	logging.Debug(ctx, "run notice dropped", slog.String("source", notice.Source))
	return nil
}

// publisher is the slice of *nats.Conn the notifier needs.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATSNotifier publishes each notice as JSON on a single subject.
type NATSNotifier struct {
	conn    publisher
	close   func()
	subject string
}

var _ ports.Notifier = (*NATSNotifier)(nil)

func Connect(ctx context.Context, url string, subject string) (*NATSNotifier, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nats url is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, errors.New("nats subject is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "notify.nats"))
	conn, err := nats.Connect(url,
		nats.Name("freestylecal"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(5),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn(logCtx, "nats disconnected", slog.Any("err", errs.Loggable(err)))
			}
		}),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}

	logging.Info(logCtx, "nats connected", slog.String("url", conn.ConnectedUrl()), slog.String("subject", subject))
	return &NATSNotifier{conn: conn, close: conn.Close, subject: subject}, nil
}

func newWithPublisher(pub publisher, subject string) *NATSNotifier {
	return &NATSNotifier{conn: pub, close: func() {}, subject: subject}
}

func (n *NATSNotifier) Notify(ctx context.Context, notice ports.RunNotice) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	payload, err := json.Marshal(notice)
	if err != nil {
		return errs.Wrap(err, "encode run notice")
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return errs.Wrapf(err, "publish %s", n.subject)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return errs.Wrap(err, "flush nats")
	}
	return nil
}

func (n *NATSNotifier) Close() {
	if n.close != nil {
		n.close()
	}
}
