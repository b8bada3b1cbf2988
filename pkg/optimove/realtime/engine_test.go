package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimove/optimove-go/pkg/optimove/config"
	"github.com/optimove/optimove-go/pkg/optimove/event"
	"github.com/optimove/optimove-go/pkg/optimove/storage"
)

// fakeTransport records sends in order and fails events by name on demand.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []WireEvent
	failures map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failures: make(map[string]error)}
}

func (f *fakeTransport) Send(ctx context.Context, evt WireEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[evt.Name]; ok {
		return err
	}
	f.sent = append(f.sent, evt)
	return nil
}

func (f *fakeTransport) failEvent(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[name] = err
}

func (f *fakeTransport) healEvent(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, name)
}

func (f *fakeTransport) sentNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.sent))
	for i, evt := range f.sent {
		names[i] = evt.Name
	}
	return names
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func realtimeConfig(t *testing.T) *config.Store {
	t.Helper()
	cfg, err := config.Merge(
		&config.GlobalFragment{
			RealtimeGateway: "https://rt.example.com",
			CoreEvents: map[string]config.EventSettings{
				"set_user_id": {
					ID:                  1,
					SupportedOnRealtime: true,
					Parameters: map[string]config.ParameterSettings{
						"user_id": {Type: "string", Mandatory: true},
					},
				},
				"set_email": {
					ID:                  2,
					SupportedOnRealtime: true,
					Parameters: map[string]config.ParameterSettings{
						"email": {Type: "string", Mandatory: true},
					},
				},
				"checkout": {
					ID:                  100,
					SupportedOnRealtime: true,
					Parameters: map[string]config.ParameterSettings{
						"total": {Type: "number"},
					},
				},
				"tracking_only": {
					ID:                   101,
					SupportedOnRealtime:  false,
					SupportedOnOptitrack: true,
				},
			},
		},
		&config.TenantFragment{
			TenantID:        "tenant-1",
			SiteID:          "site-1",
			RealtimeToken:   "token",
			RealtimeEnabled: true,
		},
	)
	require.NoError(t, err)

	store := config.NewStore()
	store.Replace(cfg)
	return store
}

func newTestEngine(t *testing.T, store *config.Store, settings storage.Store, transport Transport) *Engine {
	t.Helper()
	engine, err := NewEngine(store, settings, transport, nil, nil, Options{
		SendDelay: -1, // no artificial pause in tests
	})
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func waitForSends(t *testing.T, transport *fakeTransport, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return transport.sentCount() >= n
	}, 5*time.Second, 5*time.Millisecond)
}

func TestEngine_SendsEventWithWireIdentity(t *testing.T) {
	transport := newFakeTransport()
	engine := newTestEngine(t, realtimeConfig(t), storage.NewMemoryStore(), transport)

	err := engine.Report(context.Background(), event.New("checkout", map[string]any{"total": 9.5}), true)
	require.NoError(t, err)

	waitForSends(t, transport, 1)
	sent := transport.sent[0]
	assert.Equal(t, "tenant-1", sent.TenantID)
	assert.Equal(t, "token", sent.Token)
	assert.Equal(t, 100, sent.EventID)
	assert.Equal(t, "checkout", sent.Name)
	assert.Equal(t, engine.VisitorID(), sent.VisitorID)
	assert.NotZero(t, sent.FirstVisit)
	assert.Equal(t, 9.5, sent.Params["total"])
}

func TestEngine_PreservesEnqueueOrder(t *testing.T) {
	transport := newFakeTransport()
	engine := newTestEngine(t, realtimeConfig(t), storage.NewMemoryStore(), transport)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, engine.Report(ctx, event.New("checkout", nil), true))
	}

	waitForSends(t, transport, 5)
	assert.Equal(t, []string{"checkout", "checkout", "checkout", "checkout", "checkout"}, transport.sentNames())
}

func TestEngine_DropsUnsupportedAndUnconfigured(t *testing.T) {
	transport := newFakeTransport()
	engine := newTestEngine(t, realtimeConfig(t), storage.NewMemoryStore(), transport)

	ctx := context.Background()
	require.NoError(t, engine.Report(ctx, event.New("tracking_only", nil), true))
	require.NoError(t, engine.Report(ctx, event.New("never_configured", nil), true))
	require.NoError(t, engine.Report(ctx, event.New("checkout", nil), true))

	waitForSends(t, transport, 1)
	assert.Equal(t, []string{"checkout"}, transport.sentNames())
}

func TestEngine_RealtimeDisabledDropsSilently(t *testing.T) {
	cfg, err := config.Merge(
		&config.GlobalFragment{
			CoreEvents: map[string]config.EventSettings{
				"checkout": {ID: 100, SupportedOnRealtime: true},
			},
		},
		&config.TenantFragment{TenantID: "tenant-1", RealtimeEnabled: false},
	)
	require.NoError(t, err)
	store := config.NewStore()
	store.Replace(cfg)

	transport := newFakeTransport()
	engine := newTestEngine(t, store, storage.NewMemoryStore(), transport)

	require.NoError(t, engine.Report(context.Background(), event.New("checkout", nil), true))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, transport.sentCount())
}

func TestEngine_ValidationFailureSurfaces(t *testing.T) {
	transport := newFakeTransport()
	engine := newTestEngine(t, realtimeConfig(t), storage.NewMemoryStore(), transport)

	err := engine.Report(context.Background(), event.New("set_user_id", nil), true)
	require.Error(t, err)

	var verr *event.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEngine_SetUserID_FailureArmsFlag(t *testing.T) {
	transport := newFakeTransport()
	transport.failEvent("set_user_id", errors.New("gateway down"))

	settings := storage.NewMemoryStore()
	engine := newTestEngine(t, realtimeConfig(t), settings, transport)

	require.NoError(t, engine.SetUserID(context.Background(), "user-9"))

	ledger := NewFailureLedger(settings)
	require.Eventually(t, func() bool {
		failed, err := ledger.IsFailed(CategoryUserID)
		return err == nil && failed
	}, 5*time.Second, 5*time.Millisecond)

	// The user ID itself persisted despite the send failure.
	userID, err := settings.GetString(storage.KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "user-9", userID)
}

func TestEngine_RetryRestoresCausalOrder(t *testing.T) {
	transport := newFakeTransport()
	transport.failEvent("set_user_id", errors.New("gateway down"))
	transport.failEvent("set_email", errors.New("gateway down"))

	settings := storage.NewMemoryStore()
	store := realtimeConfig(t)
	engine := newTestEngine(t, store, settings, transport)

	ctx := context.Background()
	require.NoError(t, engine.SetUserID(ctx, "user-9"))
	require.NoError(t, engine.SetUserEmail(ctx, "u@example.com"))

	ledger := NewFailureLedger(settings)
	require.Eventually(t, func() bool {
		idFailed, _ := ledger.IsFailed(CategoryUserID)
		emailFailed, _ := ledger.IsFailed(CategoryUserEmail)
		return idFailed && emailFailed
	}, 5*time.Second, 5*time.Millisecond)

	// Gateway recovers; the next event must be preceded by both identity
	// retries in fixed order.
	transport.healEvent("set_user_id")
	transport.healEvent("set_email")

	require.NoError(t, engine.Report(ctx, event.New("checkout", nil), true))

	waitForSends(t, transport, 3)
	assert.Equal(t, []string{"set_user_id", "set_email", "checkout"}, transport.sentNames())

	// Successful retries disarm the flags.
	require.Eventually(t, func() bool {
		idFailed, _ := ledger.IsFailed(CategoryUserID)
		emailFailed, _ := ledger.IsFailed(CategoryUserEmail)
		return !idFailed && !emailFailed
	}, 5*time.Second, 5*time.Millisecond)
}

func TestEngine_RetrySkipsOwnCategory(t *testing.T) {
	transport := newFakeTransport()
	transport.failEvent("set_user_id", errors.New("gateway down"))

	settings := storage.NewMemoryStore()
	engine := newTestEngine(t, realtimeConfig(t), settings, transport)

	ctx := context.Background()
	require.NoError(t, engine.SetUserID(ctx, "user-9"))

	ledger := NewFailureLedger(settings)
	require.Eventually(t, func() bool {
		failed, _ := ledger.IsFailed(CategoryUserID)
		return failed
	}, 5*time.Second, 5*time.Millisecond)

	transport.healEvent("set_user_id")

	// Re-sending the same identity event must not retry its own category
	// first; exactly one set_user_id goes out.
	require.NoError(t, engine.SetUserID(ctx, "user-9"))

	waitForSends(t, transport, 1)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"set_user_id"}, transport.sentNames())
}

func TestEngine_NoRetryWhenFlagDisarmed(t *testing.T) {
	transport := newFakeTransport()
	settings := storage.NewMemoryStore()
	engine := newTestEngine(t, realtimeConfig(t), settings, transport)

	ctx := context.Background()
	require.NoError(t, engine.SetUserID(ctx, "user-9"))
	waitForSends(t, transport, 1)

	require.NoError(t, engine.Report(ctx, event.New("checkout", nil), true))
	waitForSends(t, transport, 2)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"set_user_id", "checkout"}, transport.sentNames())
}

func TestEngine_RetryFlagGateOff(t *testing.T) {
	transport := newFakeTransport()
	transport.failEvent("set_user_id", errors.New("gateway down"))

	settings := storage.NewMemoryStore()
	engine := newTestEngine(t, realtimeConfig(t), settings, transport)

	ctx := context.Background()
	require.NoError(t, engine.SetUserID(ctx, "user-9"))

	ledger := NewFailureLedger(settings)
	require.Eventually(t, func() bool {
		failed, _ := ledger.IsFailed(CategoryUserID)
		return failed
	}, 5*time.Second, 5*time.Millisecond)
	transport.healEvent("set_user_id")

	// retryFailed=false skips the armed retry entirely.
	require.NoError(t, engine.Report(ctx, event.New("checkout", nil), false))

	waitForSends(t, transport, 1)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"checkout"}, transport.sentNames())
}

func TestEngine_VisitorIdentityStampedOnce(t *testing.T) {
	settings := storage.NewMemoryStore()
	store := realtimeConfig(t)

	first := newTestEngine(t, store, settings, newFakeTransport())
	visitorID := first.VisitorID()
	require.NotEmpty(t, visitorID)
	firstVisit, err := settings.GetInt64(storage.KeyFirstVisitTimestamp)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newTestEngine(t, store, settings, newFakeTransport())
	assert.Equal(t, visitorID, second.VisitorID())

	secondVisit, err := settings.GetInt64(storage.KeyFirstVisitTimestamp)
	require.NoError(t, err)
	assert.Equal(t, firstVisit, secondVisit)
}

func TestEngine_WireEventCarriesUserID(t *testing.T) {
	transport := newFakeTransport()
	settings := storage.NewMemoryStore()
	engine := newTestEngine(t, realtimeConfig(t), settings, transport)

	ctx := context.Background()
	require.NoError(t, engine.SetUserID(ctx, "user-9"))
	waitForSends(t, transport, 1)

	require.NoError(t, engine.Report(ctx, event.New("checkout", nil), true))
	waitForSends(t, transport, 2)

	assert.Equal(t, "user-9", transport.sent[1].UserID)
}

func TestEngine_CloseIdempotent(t *testing.T) {
	engine := newTestEngine(t, realtimeConfig(t), storage.NewMemoryStore(), newFakeTransport())

	assert.NoError(t, engine.Close())
	assert.NoError(t, engine.Close())
}
