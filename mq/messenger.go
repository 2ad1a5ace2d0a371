package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/otpauth"
	"github.com/nats-io/nats.go"
)

// Pattern names carried in every envelope.
const (
	PatternSendTextMessage = "sendTextMessage"
	PatternValidateToken   = "validateToken"
)

// DefaultRequestTimeout applies when the caller's context has no deadline.
const DefaultRequestTimeout = 5 * time.Second

// ErrRemote wraps an error reply from the remote service.
var ErrRemote = errors.New("remote service error")

// Requester is the subset of *nats.Conn used by [Messenger].
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

type envelope struct {
	Pattern string          `json:"pattern"`
	Data    json.RawMessage `json:"data"`
}

type textMessage struct {
	Message   string `json:"message"`
	Recipient string `json:"recipient"`
}

type deliveryReply struct {
	Acknowledged bool   `json:"acknowledged"`
	Error        string `json:"error,omitempty"`
}

// Messenger sends OTP texts through the notification service.
type Messenger struct {
	conn    Requester
	subject string
	timeout time.Duration
}

var _ otpauth.Messenger = (*Messenger)(nil)

// NewMessenger sends requests on subject. A zero timeout uses
// [DefaultRequestTimeout].
func NewMessenger(conn Requester, subject string, timeout time.Duration) *Messenger {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Messenger{conn: conn, subject: subject, timeout: timeout}
}

// SendText requests delivery of message to recipient and returns the
// service's acknowledgment. A reply carrying an error is returned as
// [ErrRemote].
func (m *Messenger) SendText(ctx context.Context, recipient, message string) (otpauth.Delivery, error) {
	data, err := json.Marshal(textMessage{Message: message, Recipient: recipient})
	if err != nil {
		return otpauth.Delivery{}, err
	}
	body, err := json.Marshal(envelope{Pattern: PatternSendTextMessage, Data: data})
	if err != nil {
		return otpauth.Delivery{}, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	msg, err := m.conn.RequestWithContext(ctx, m.subject, body)
	if err != nil {
		return otpauth.Delivery{}, fmt.Errorf("%s request: %w", PatternSendTextMessage, err)
	}

	var reply deliveryReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return otpauth.Delivery{}, fmt.Errorf("decode %s reply: %w", PatternSendTextMessage, err)
	}
	if reply.Error != "" {
		return otpauth.Delivery{}, fmt.Errorf("%w: %s", ErrRemote, reply.Error)
	}
	return otpauth.Delivery{Acknowledged: reply.Acknowledged}, nil
}
