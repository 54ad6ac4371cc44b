package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asaankisaan/internal/metrics"
	"asaankisaan/internal/models"
)

type fakeSource struct {
	name  string
	mu    sync.Mutex
	data  []byte
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakeSource) set(data []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, f.err = data, err
}

func newTestStore(m *metrics.Metrics) *Store {
	return NewStore(StoreOptions{Logger: zerolog.Nop(), Metrics: m})
}

func TestStoreStartsNotLoaded(t *testing.T) {
	s := newTestStore(nil)

	snap := s.Snapshot()
	assert.Equal(t, models.NotLoaded, snap.State)
	assert.ErrorIs(t, snap.Ready(), ErrNotLoaded)
	assert.Zero(t, snap.Len())
	assert.Empty(t, snap.CurrentSnapshot("Lahore"))

	st := s.Status()
	assert.Equal(t, models.NotLoaded, st.State)
	assert.Nil(t, st.LoadedAt)
	assert.Empty(t, st.LastError)
}

func TestStoreLoad(t *testing.T) {
	m := metrics.New()
	s := newTestStore(m)
	src := &fakeSource{name: "testdata/prices.csv", data: readFixture(t)}

	snap, err := s.Load(context.Background(), src)
	require.NoError(t, err)

	assert.Same(t, snap, s.Snapshot())
	assert.NoError(t, snap.Ready())
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 6, snap.Len())
	assert.Equal(t, []string{"Karachi", "Lahore"}, snap.Markets())
	assert.Equal(t, []string{"Rice", "Wheat"}, snap.Commodities())

	st := s.Status()
	assert.Equal(t, models.Loaded, st.State)
	assert.Equal(t, snap.ID, st.SnapshotID)
	assert.Equal(t, 6, st.Records)
	require.NotNil(t, st.LoadedAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("success")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.Records))
}

func TestStoreLoadCountsSkippedRows(t *testing.T) {
	m := metrics.New()
	s := newTestStore(m)
	src := &fakeSource{name: "prices.csv", data: []byte(header + "\n2024,1,2024-01,Lahore,Wheat,1,1,1\nbroken\n")}

	snap, err := s.Load(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Len())
	require.Len(t, snap.Skipped(), 1)
	assert.Equal(t, 3, snap.Skipped()[0].Line)
	assert.Equal(t, 1, s.Status().Skipped)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsSkipped))
}

func TestStoreFirstLoadFailure(t *testing.T) {
	m := metrics.New()
	s := newTestStore(m)
	src := &fakeSource{name: "missing.csv", err: errors.New("no such file")}

	snap, err := s.Load(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnreadable)

	assert.Equal(t, models.LoadFailed, snap.State)
	assert.Equal(t, models.LoadFailed, s.Snapshot().State)
	assert.ErrorIs(t, s.Snapshot().Ready(), ErrNotLoaded)

	st := s.Status()
	assert.Equal(t, models.LoadFailed, st.State)
	assert.Contains(t, st.LastError, "no such file")
	assert.NotNil(t, st.LastErrorAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("failure")))
}

func TestStoreFailedReloadKeepsSnapshot(t *testing.T) {
	s := newTestStore(nil)
	src := &fakeSource{name: "prices.csv", data: readFixture(t)}

	first, err := s.Load(context.Background(), src)
	require.NoError(t, err)

	src.set(nil, errors.New("connection refused"))
	served, err := s.Load(context.Background(), src)
	require.ErrorIs(t, err, ErrSourceUnreadable)

	assert.Same(t, first, served)
	assert.Same(t, first, s.Snapshot())
	assert.Equal(t, models.Loaded, s.Status().State)
	assert.Contains(t, s.Status().LastError, "connection refused")

	// A later success clears the recorded failure.
	src.set(readFixture(t), nil)
	second, err := s.Load(context.Background(), src)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Empty(t, s.Status().LastError)
}

func TestStoreCancelledParseKeepsSnapshot(t *testing.T) {
	m := metrics.New()
	s := newTestStore(m)
	src := &fakeSource{name: "prices.csv", data: readFixture(t)}

	first, err := s.Load(context.Background(), src)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	served, err := s.Load(ctx, src)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSourceUnreadable)

	assert.Same(t, first, served)
	assert.Same(t, first, s.Snapshot())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadsTotal.WithLabelValues("failure")))
}

func TestStoreLoadXLSX(t *testing.T) {
	s := newTestStore(nil)
	raw := buildWorkbook(t, [][]string{
		{"year", "weekNumber", "date", "marketLocation", "commodity", "basePricePer40kg", "inflationRatePercent", "predictedPricePer40kg"},
		{"2024", "1", "2024-01", "Quetta", "Maize", "2200", "1.0", "2222"},
	})

	snap, err := s.Load(context.Background(), &fakeSource{name: "prices.XLSX", data: raw})
	require.NoError(t, err)
	assert.Equal(t, []string{"Quetta"}, snap.Markets())

	_, err = s.Load(context.Background(), &fakeSource{name: "prices.xlsx", data: []byte("garbage")})
	assert.ErrorIs(t, err, ErrSourceUnreadable)
	assert.Same(t, snap, s.Snapshot())
}

func TestStoreFetchTimeout(t *testing.T) {
	s := NewStore(StoreOptions{Logger: zerolog.Nop(), FetchTimeout: time.Millisecond})
	src := blockingSource{}

	_, err := s.Load(context.Background(), src)
	assert.ErrorIs(t, err, ErrSourceUnreadable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type blockingSource struct{}

func (blockingSource) Name() string { return "slow.csv" }

func (blockingSource) Fetch(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStoreReadersSeeWholeSnapshots(t *testing.T) {
	s := newTestStore(nil)
	small := []byte(header + "\n2024,1,2024-01,Lahore,Wheat,1,1,1\n")
	full := readFixture(t)
	src := &fakeSource{name: "prices.csv", data: full}
	_, err := s.Load(context.Background(), src)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var bad atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap := s.Snapshot()
				n := snap.Len()
				if n != 1 && n != 6 {
					bad.Add(1)
				}
				if len(snap.Records()) != n {
					bad.Add(1)
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			src.set(small, nil)
		} else {
			src.set(full, nil)
		}
		_, err := s.Load(context.Background(), src)
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()

	assert.Zero(t, bad.Load())
}

func TestStoreWatch(t *testing.T) {
	s := newTestStore(nil)
	src := &fakeSource{name: "prices.csv", data: readFixture(t)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Watch(ctx, src, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, time.Millisecond)
	assert.Equal(t, models.Loaded, s.Snapshot().State)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStoreWatchDisabled(t *testing.T) {
	s := newTestStore(nil)
	src := &fakeSource{name: "prices.csv"}

	s.Watch(context.Background(), src, 0)
	assert.Zero(t, src.calls.Load())
}
