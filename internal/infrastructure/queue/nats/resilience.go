package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/estate-intake/internal/infrastructure/resilience"
)

// classifyNATSError retries only connection-level failures; the client
// buffers publishes while reconnecting, so anything else is final.
func classifyNATSError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	switch {
	case errors.Is(err, nats.ErrNoServers),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, nats.ErrConnectionClosed),
		errors.Is(err, nats.ErrDisconnected),
		errors.Is(err, nats.ErrReconnectBufExceeded):
		return resilience.Transient
	case errors.Is(err, nats.ErrBadSubject), errors.Is(err, nats.ErrMaxPayload):
		return resilience.Ignored
	}
	return resilience.Permanent
}
