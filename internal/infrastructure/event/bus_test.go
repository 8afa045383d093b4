package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func issuedEvent() *fiscal.BillingDocumentIssuedEvent {
	return fiscal.NewBillingDocumentIssuedEvent(fiscal.BillingDocument{
		DocumentID:     uuid.New(),
		TenantID:       uuid.New(),
		Type:           fiscal.BillingInvoice,
		DocumentNumber: "FAC-0001",
		ControlNumber:  "00-000001",
		IssueDate:      time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		Subtotal:       decimal.NewFromInt(100),
		TaxAmount:      decimal.NewFromInt(16),
		Total:          decimal.NewFromInt(116),
	})
}

type recordingHandler struct {
	name       string
	eventTypes []string
	mu         sync.Mutex
	handled    []shared.DomainEvent
	fn         func(ctx context.Context) error
}

func newRecordingHandler(name string, eventTypes ...string) *recordingHandler {
	return &recordingHandler{name: name, eventTypes: eventTypes}
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	fn := h.fn
	h.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_FansOutToEverySubscriber(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	posting := newRecordingHandler("billing-listener", fiscal.EventTypeBillingDocumentIssued)
	syncer := newRecordingHandler("billing-sync", fiscal.EventTypeBillingDocumentIssued)
	other := newRecordingHandler("other", "SomethingElse")
	bus.Subscribe(posting)
	bus.Subscribe(syncer)
	bus.Subscribe(other)

	require.NoError(t, bus.Publish(context.Background(), issuedEvent(), issuedEvent()))

	assert.Equal(t, 2, posting.count())
	assert.Equal(t, 2, syncer.count())
	assert.Zero(t, other.count())
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	audit := newRecordingHandler("audit")
	bus.Subscribe(audit)

	require.NoError(t, bus.Publish(context.Background(), issuedEvent()))
	assert.Equal(t, 1, audit.count())
}

func TestInMemoryEventBus_FailuresDoNotStopDelivery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newRecordingHandler("failing", fiscal.EventTypeBillingDocumentIssued)
	failing.fn = func(context.Context) error { return errors.New("db down") }
	panicking := newRecordingHandler("panicking", fiscal.EventTypeBillingDocumentIssued)
	panicking.fn = func(context.Context) error { panic("boom") }
	healthy := newRecordingHandler("healthy", fiscal.EventTypeBillingDocumentIssued)

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), issuedEvent()))

	assert.Equal(t, 1, healthy.count())
	assert.Equal(t, int64(2), bus.Failures())
	entries := logs.FilterMessage("handler failed to process event").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "failing", entries[0].ContextMap()["handler"])
	assert.Contains(t, entries[1].ContextMap()["error"], "boom")
}

func TestInMemoryEventBus_HandlerTimeout(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithHandlerTimeout(10*time.Millisecond))
	slow := newRecordingHandler("slow", fiscal.EventTypeBillingDocumentIssued)
	var deadlineSeen bool
	slow.fn = func(ctx context.Context) error {
		_, deadlineSeen = ctx.Deadline()
		<-ctx.Done()
		return ctx.Err()
	}
	bus.Subscribe(slow)

	require.NoError(t, bus.Publish(context.Background(), issuedEvent()))
	assert.True(t, deadlineSeen)
	assert.Equal(t, int64(1), bus.Failures())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newRecordingHandler("billing-sync", fiscal.EventTypeBillingDocumentIssued)
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), issuedEvent()))
	assert.Zero(t, h.count())
	assert.Zero(t, bus.registry.Count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.Stop(ctx))
	assert.ErrorIs(t, bus.Publish(ctx, issuedEvent()), ErrBusStopped)

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, issuedEvent()))
}

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "billing-sync", HandlerName(newRecordingHandler("billing-sync")))
	assert.Equal(t, "*event.plainHandler", HandlerName(&plainHandler{}))
}

type plainHandler struct{}

func (*plainHandler) Handle(context.Context, shared.DomainEvent) error { return nil }
func (*plainHandler) EventTypes() []string                             { return nil }
