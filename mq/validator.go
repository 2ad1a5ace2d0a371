package mq

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MrEthical07/otpauth"
	"github.com/MrEthical07/otpauth/jwt"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultQueueGroup spreads validateToken requests across service replicas.
const DefaultQueueGroup = "otpauth"

// TokenVerifier is satisfied by *otpauth.Engine.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateReply struct {
	Payload *jwt.Claims `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Validator answers validateToken requests.
type Validator struct {
	verifier TokenVerifier
	logger   zerolog.Logger
}

// NewValidator returns a Validator that checks tokens with verifier.
func NewValidator(verifier TokenVerifier, logger zerolog.Logger) *Validator {
	return &Validator{verifier: verifier, logger: logger.With().Str("component", "mq.validator").Logger()}
}

// Subscribe starts answering on subject until ctx ends. The returned
// subscription is drained when ctx is cancelled.
func (v *Validator) Subscribe(ctx context.Context, conn *nats.Conn, subject, queue string) (*nats.Subscription, error) {
	if conn == nil {
		return nil, errors.New("nil nats connection")
	}
	if queue == "" {
		queue = DefaultQueueGroup
	}

	sub, err := conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		reply := v.Handle(ctx, msg.Data)
		if err := msg.Respond(reply); err != nil {
			v.logger.Warn().Err(err).Msg("validateToken reply failed")
		}
	})
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		_ = sub.Drain()
	}()
	return sub, nil
}

// Handle decodes one request and encodes the reply. The request is either an
// envelope {"pattern":"validateToken","data":{"token":...}} or the bare
// {"token":...} object.
func (v *Validator) Handle(ctx context.Context, data []byte) []byte {
	token, err := decodeToken(data)
	if err != nil {
		return encodeReply(validateReply{Error: otpauth.CodeTokenInvalid})
	}

	claims, err := v.verifier.VerifyAccessToken(ctx, token)
	if err != nil {
		code := otpauth.CodeTokenInvalid
		if e, ok := otpauth.AsError(err); ok {
			code = e.Code
		}
		return encodeReply(validateReply{Error: code})
	}
	return encodeReply(validateReply{Payload: claims})
}

func decodeToken(data []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	if env.Pattern != "" {
		if env.Pattern != PatternValidateToken {
			return "", errors.New("unexpected pattern")
		}
		data = env.Data
	}

	var req validateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", err
	}
	if req.Token == "" {
		return "", errors.New("missing token")
	}
	return req.Token, nil
}

func encodeReply(r validateReply) []byte {
	out, err := json.Marshal(r)
	if err != nil {
		return []byte(`{"error":"` + otpauth.CodeServiceUnavailable + `"}`)
	}
	return out
}
