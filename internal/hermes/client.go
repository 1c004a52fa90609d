package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

// Subjects used by the emotion service.
const (
	SubjectPredictionsReady = "emotion.predictions.ready"
	SubjectCallReconciled   = "emotion.call.reconciled"
	SubjectCallBlocked      = "emotion.call.blocked"
)

// OutcomeSignal is published once a call has been reconciled or blocked, so
// downstream consumers can react to the call outcome without reading the store.
type OutcomeSignal struct {
	CallID         string                  `json:"call_id"`
	ResultID       string                  `json:"result_id,omitempty"`
	Status         string                  `json:"status"`
	BlockReason    string                  `json:"block_reason,omitempty"`
	Speakers       []string                `json:"speakers,omitempty"`
	CategoryCounts timeline.CategoryCounts `json:"category_counts"`
	Judgment       *timeline.Judgment      `json:"overall_call_emotion,omitempty"`
	Errors         []string                `json:"errors,omitempty"`
	Timestamp      time.Time               `json:"timestamp"`
}

// SignalFor summarizes a call-level result.
func SignalFor(res timeline.FileResult, status string) OutcomeSignal {
	return OutcomeSignal{
		CallID:         res.Metadata.CallID,
		ResultID:       res.Metadata.ResultID,
		Status:         status,
		Speakers:       res.Metadata.Speakers,
		CategoryCounts: res.Metadata.CategoryCounts,
		Judgment:       res.Metadata.OverallCallEmotion,
		Errors:         res.Metadata.Errors,
		Timestamp:      time.Now().UTC(),
	}
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("emotiond"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Connected reports whether the underlying connection is up.
func (c *Client) Connected() bool {
	return c.conn.IsConnected()
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
