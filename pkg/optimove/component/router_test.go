package component

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimove/optimove-go/pkg/optimove/config"
	"github.com/optimove/optimove-go/pkg/optimove/event"
)

// recordingHandler captures raw operations.
type recordingHandler struct {
	role Role

	mu  sync.Mutex
	ops []Operation
	err error
}

func (h *recordingHandler) Role() Role { return h.role }

func (h *recordingHandler) HandleOperation(ctx context.Context, op Operation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ops = append(h.ops, op)
	return h.err
}

func (h *recordingHandler) operations() []Operation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Operation(nil), h.ops...)
}

// recordingConsumer captures decorated events.
type recordingConsumer struct {
	role Role

	mu      sync.Mutex
	batches [][]event.Decorated
}

func (c *recordingConsumer) Role() Role { return c.role }

func (c *recordingConsumer) ConsumeWire(ctx context.Context, events []event.Decorated) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, events)
	return nil
}

func (c *recordingConsumer) all() [][]event.Decorated {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]event.Decorated(nil), c.batches...)
}

// panickingHandler panics on every operation.
type panickingHandler struct {
	role Role
}

func (h *panickingHandler) Role() Role { return h.role }

func (h *panickingHandler) HandleOperation(ctx context.Context, op Operation) error {
	panic("component bug")
}

func routerFixture(t *testing.T, components ...Component) *Router {
	t.Helper()

	store := config.NewStore()
	cfg, err := config.Merge(
		&config.GlobalFragment{
			CoreEvents: map[string]config.EventSettings{
				"checkout": {
					ID:                  100,
					SupportedOnRealtime: true,
					Parameters: map[string]config.ParameterSettings{
						"total": {Type: "number", Mandatory: true},
					},
				},
				"set_screen_visit": {
					ID: 3,
					Parameters: map[string]config.ParameterSettings{
						"screen_title":    {Type: "string", Mandatory: true},
						"screen_category": {Type: "string"},
					},
				},
			},
		},
		&config.TenantFragment{TenantID: "tenant-1"},
	)
	require.NoError(t, err)
	store.Replace(cfg)

	registry := NewRegistry()
	for _, c := range components {
		require.NoError(t, registry.Register(c))
	}
	return NewRouter(registry, store, nil, nil)
}

func TestRouter_EmptyRegistryDropsOperation(t *testing.T) {
	router := routerFixture(t)

	assert.NotPanics(t, func() {
		router.Dispatch(context.Background(), ReportOperation{
			Events: []event.Event{event.New("checkout", map[string]any{"total": 1})},
		})
	})
}

func TestRouter_DeliversRawOperationToHandler(t *testing.T) {
	handler := &recordingHandler{role: RoleRealtime}
	router := routerFixture(t, handler)

	router.Dispatch(context.Background(), SetUserIDOperation{UserID: "u-1"})

	ops := handler.operations()
	require.Len(t, ops, 1)
	assert.Equal(t, SetUserIDOperation{UserID: "u-1"}, ops[0])
}

func TestRouter_DeliversDecoratedEventsToConsumer(t *testing.T) {
	consumer := &recordingConsumer{role: RoleTracking}
	router := routerFixture(t, consumer)

	router.Dispatch(context.Background(), ReportOperation{
		Events: []event.Event{event.New("Checkout", map[string]any{"total": 5.0})},
	})

	batches := consumer.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "checkout", batches[0][0].Name)
	assert.Equal(t, 100, batches[0][0].ID)
}

func TestRouter_DecoratesOnceForMultipleConsumers(t *testing.T) {
	first := &recordingConsumer{role: RoleTracking}
	second := &recordingConsumer{role: RoleRealtime}
	router := routerFixture(t, first, second)

	router.Dispatch(context.Background(), ReportOperation{
		Events: []event.Event{event.New("checkout", map[string]any{"total": 1})},
	})

	firstBatches := first.all()
	secondBatches := second.all()
	require.Len(t, firstBatches, 1)
	require.Len(t, secondBatches, 1)

	// Same decoration is shared: instance IDs match across consumers.
	assert.Equal(t, firstBatches[0][0].InstanceID, secondBatches[0][0].InstanceID)
}

func TestRouter_DropsInvalidEventsIndividually(t *testing.T) {
	consumer := &recordingConsumer{role: RoleTracking}
	router := routerFixture(t, consumer)

	router.Dispatch(context.Background(), ReportOperation{
		Events: []event.Event{
			event.New("checkout", map[string]any{}),           // missing mandatory param
			event.New("unknown_event", map[string]any{}),      // not configured
			event.New("checkout", map[string]any{"total": 2}), // valid
		},
	})

	batches := consumer.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "checkout", batches[0][0].Name)
}

func TestRouter_ScreenVisitExpandsForConsumers(t *testing.T) {
	consumer := &recordingConsumer{role: RoleTracking}
	handler := &recordingHandler{role: RoleRealtime}
	router := routerFixture(t, consumer, handler)

	router.Dispatch(context.Background(), ReportScreenOperation{Title: "Home", Category: "main"})

	batches := consumer.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "set_screen_visit", batches[0][0].Name)
	assert.Equal(t, "Home", batches[0][0].Params["screen_title"])

	// The raw handler still receives the operation itself.
	ops := handler.operations()
	require.Len(t, ops, 1)
	assert.IsType(t, ReportScreenOperation{}, ops[0])
}

func TestRouter_ComponentFailureIsolated(t *testing.T) {
	failing := &recordingHandler{role: RoleRealtime, err: errors.New("down")}
	healthy := &recordingHandler{role: RolePush}
	router := routerFixture(t, failing, healthy)

	router.Dispatch(context.Background(), DispatchNowOperation{})

	assert.Len(t, failing.operations(), 1)
	assert.Len(t, healthy.operations(), 1, "failure of one component must not block the next")
}

func TestRouter_ComponentPanicIsolated(t *testing.T) {
	panicking := &panickingHandler{role: RoleRealtime}
	healthy := &recordingHandler{role: RolePush}
	router := routerFixture(t, panicking, healthy)

	assert.NotPanics(t, func() {
		router.Dispatch(context.Background(), DispatchNowOperation{})
	})
	assert.Len(t, healthy.operations(), 1)
}

func TestRouter_NoConfigurationDropsEvents(t *testing.T) {
	consumer := &recordingConsumer{role: RoleTracking}
	registry := NewRegistry()
	require.NoError(t, registry.Register(consumer))
	router := NewRouter(registry, config.NewStore(), nil, nil)

	router.Dispatch(context.Background(), ReportOperation{
		Events: []event.Event{event.New("checkout", map[string]any{"total": 1})},
	})

	assert.Empty(t, consumer.all())
}

func TestRouter_NonEventOperationSkipsConsumers(t *testing.T) {
	consumer := &recordingConsumer{role: RoleTracking}
	router := routerFixture(t, consumer)

	router.Dispatch(context.Background(), SetUserEmailOperation{Email: "a@example.com"})

	assert.Empty(t, consumer.all())
}
