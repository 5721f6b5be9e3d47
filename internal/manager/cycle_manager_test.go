package manager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tenant-scraper/internal/model"
	"tenant-scraper/internal/scraper"
	"tenant-scraper/internal/storage"
)

type runnerFunc func(ctx context.Context, tenants []model.Tenant) scraper.CycleReport

func (f runnerFunc) RunCycle(ctx context.Context, tenants []model.Tenant) scraper.CycleReport {
	return f(ctx, tenants)
}

type mockTenantSource struct {
	mock.Mock
}

func (m *mockTenantSource) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	args := m.Called(ctx)
	tenants, _ := args.Get(0).([]model.Tenant)
	return tenants, args.Error(1)
}

func (m *mockTenantSource) ListTenantsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Tenant, error) {
	args := m.Called(ctx, ids)
	tenants, _ := args.Get(0).([]model.Tenant)
	return tenants, args.Error(1)
}

func seeded(names ...string) *storage.MemoryStore {
	store := storage.NewMemoryStore()
	for _, n := range names {
		store.AddTenant(model.Tenant{Name: n})
	}
	return store
}

func TestRunCycle_AllTenants(t *testing.T) {
	var got []string
	m := NewCycleManager(seeded("acme", "globex"), runnerFunc(func(_ context.Context, tenants []model.Tenant) scraper.CycleReport {
		for _, tn := range tenants {
			got = append(got, tn.Name)
		}
		return scraper.CycleReport{Tenants: len(tenants)}
	}), time.Minute, false, nil)

	report, err := m.RunCycle(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tenants)
	assert.Equal(t, []string{"acme", "globex"}, got)
}

func TestRunCycle_SelectedTenants(t *testing.T) {
	store := storage.NewMemoryStore()
	acme := store.AddTenant(model.Tenant{Name: "acme"})
	store.AddTenant(model.Tenant{Name: "globex"})

	var got []model.Tenant
	m := NewCycleManager(store, runnerFunc(func(_ context.Context, tenants []model.Tenant) scraper.CycleReport {
		got = tenants
		return scraper.CycleReport{}
	}), time.Minute, false, nil)

	_, err := m.RunCycle(context.Background(), []uuid.UUID{acme.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, acme.ID, got[0].ID)
}

func TestRunCycle_LoadFailure(t *testing.T) {
	source := &mockTenantSource{}
	source.On("ListTenants", mock.Anything).Return(nil, errors.New("connection refused"))

	called := false
	m := NewCycleManager(source, runnerFunc(func(context.Context, []model.Tenant) scraper.CycleReport {
		called = true
		return scraper.CycleReport{}
	}), time.Minute, false, nil)

	_, err := m.RunCycle(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, called)
	source.AssertExpectations(t)
}

func TestTick_SkipsWhileCycleRunning(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var runs atomic.Int32

	m := NewCycleManager(seeded("acme"), runnerFunc(func(context.Context, []model.Tenant) scraper.CycleReport {
		if runs.Add(1) == 1 {
			close(entered)
			<-release
		}
		return scraper.CycleReport{}
	}), time.Minute, false, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = m.RunCycle(context.Background(), nil)
	}()
	<-entered

	m.tick(context.Background())
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	wg.Wait()

	m.tick(context.Background())
	assert.Equal(t, int32(2), runs.Load())
}

func TestStart_RunsOnStartupAndStops(t *testing.T) {
	cycles := make(chan struct{}, 8)
	m := NewCycleManager(seeded("acme"), runnerFunc(func(context.Context, []model.Tenant) scraper.CycleReport {
		cycles <- struct{}{}
		return scraper.CycleReport{}
	}), 20*time.Millisecond, true, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-cycles:
		case <-time.After(2 * time.Second):
			t.Fatalf("cycle %d did not run", i+1)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestHandleTrigger(t *testing.T) {
	store := storage.NewMemoryStore()
	acme := store.AddTenant(model.Tenant{Name: "acme"})
	store.AddTenant(model.Tenant{Name: "globex"})

	var last []model.Tenant
	m := NewCycleManager(store, runnerFunc(func(_ context.Context, tenants []model.Tenant) scraper.CycleReport {
		last = tenants
		return scraper.CycleReport{}
	}), time.Minute, false, nil)

	require.NoError(t, m.HandleTrigger(context.Background(), []byte(`{"tenant_ids":["`+acme.ID.String()+`"]}`)))
	require.Len(t, last, 1)
	assert.Equal(t, "acme", last[0].Name)

	require.NoError(t, m.HandleTrigger(context.Background(), []byte(`{}`)))
	assert.Len(t, last, 2)

	require.NoError(t, m.HandleTrigger(context.Background(), nil))
	assert.Len(t, last, 2)

	err := m.HandleTrigger(context.Background(), []byte(`{"tenant_ids":["not-a-uuid"]}`))
	assert.ErrorIs(t, err, ErrMalformedTrigger)

	err = m.HandleTrigger(context.Background(), []byte(`{`))
	assert.ErrorIs(t, err, ErrMalformedTrigger)
}
