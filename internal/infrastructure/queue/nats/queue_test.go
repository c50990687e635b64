package nats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/infrastructure/resilience"
)

func TestDispatchDecodesLandedEvent(t *testing.T) {
	q := &Queue{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	payload := []byte(`{"storage_key":"income_verifications/a.pdf","storage_path":"file:///data/income_verifications/a.pdf","category":"Income Verifications","filename":"a.pdf","landed_at":"2026-03-01T12:00:00Z"}`)

	var got domain.LandedEvent
	q.dispatch(context.Background(), payload, func(_ context.Context, event domain.LandedEvent) error {
		got = event
		return nil
	})

	if got.StorageKey != "income_verifications/a.pdf" || got.Category != domain.CategoryIncome {
		t.Fatalf("unexpected event %+v", got)
	}
	if !got.LandedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected landed_at %v", got.LandedAt)
	}
}

func TestDispatchSkipsInvalidPayload(t *testing.T) {
	q := &Queue{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	called := false
	handler := func(context.Context, domain.LandedEvent) error {
		called = true
		return nil
	}

	q.dispatch(context.Background(), []byte("doc-1"), handler)
	q.dispatch(context.Background(), []byte(`{"filename":"a.pdf"}`), handler)
	if called {
		t.Fatalf("handler must not run for invalid payloads")
	}
}

func TestClassifyNATSError(t *testing.T) {
	err := resilience.WrapTemporary("nats publish", fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed), classifyNATSError)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	plain := errors.New("bad subject")
	if got := resilience.WrapTemporary("nats publish", plain, classifyNATSError); got != plain {
		t.Fatalf("expected error unchanged, got %v", got)
	}
	if class := classifyNATSError(context.Canceled); class != resilience.Ignored {
		t.Fatalf("expected cancellation to be ignored, got %+v", class)
	}
	if class := classifyNATSError(nats.ErrMaxPayload); class != resilience.Ignored {
		t.Fatalf("expected oversized payload to be final, got %+v", class)
	}
}

func TestLandedMessageHeaders(t *testing.T) {
	event := domain.LandedEvent{
		StorageKey: "settlement_documents/cd.pdf",
		Category:   domain.CategorySettlement,
		LandedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	msg := landedMessage("documents.landed", event, []byte("{}"))

	if msg.Subject != "documents.landed" || string(msg.Data) != "{}" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if got := msg.Header.Get(nats.MsgIdHdr); got != "settlement_documents/cd.pdf@2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected message id %q", got)
	}
	if got := msg.Header.Get("Intake-Category"); got != "Settlement Documents" {
		t.Fatalf("unexpected category header %q", got)
	}
}
