package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"asaankisaan/internal/metrics"
	"asaankisaan/internal/models"
)

var (
	ErrNotLoaded        = errors.New("price data not loaded")
	ErrSourceUnreadable = errors.New("price source unreadable")
)

// Source yields the raw dataset. Name is used in logs and to pick the
// parser: names ending in .xlsx are read as workbooks, anything else as CSV.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

type seriesKey struct {
	commodity string
	market    string
}

// seriesIndex holds record positions for one (commodity, market) pair.
type seriesIndex struct {
	fileOrder []int32
	byDate    []int32 // stable sort of fileOrder by Date
}

// Snapshot is an immutable, fully indexed view of one load. All query
// methods are safe for concurrent use.
type Snapshot struct {
	ID       string           `json:"id,omitempty"`
	State    models.LoadState `json:"state"`
	Source   string           `json:"source,omitempty"`
	LoadedAt time.Time        `json:"loaded_at"`

	records   []models.PriceRecord
	skipped   []models.SkippedRow
	totalRows int

	// Dictionaries (sorted distinct values)
	markets     []string
	commodities []string

	series   map[seriesKey]*seriesIndex
	byMarket map[string][]int32
	latest   int // record with the greatest Date, -1 when empty
}

func newSnapshot(state models.LoadState, source string, report models.ParseReport) *Snapshot {
	s := &Snapshot{
		State:     state,
		Source:    source,
		records:   report.Records,
		skipped:   report.Skipped,
		totalRows: report.TotalRows,
		series:    make(map[seriesKey]*seriesIndex),
		byMarket:  make(map[string][]int32),
		latest:    -1,
	}
	if state == models.Loaded {
		s.ID = uuid.NewString()
		s.LoadedAt = time.Now()
	}

	marketSet := make(map[string]struct{})
	commoditySet := make(map[string]struct{})
	for i := range s.records {
		r := &s.records[i]
		id := int32(i)

		marketSet[r.Market] = struct{}{}
		commoditySet[r.Commodity] = struct{}{}
		s.byMarket[r.Market] = append(s.byMarket[r.Market], id)

		key := seriesKey{commodity: r.Commodity, market: r.Market}
		idx, ok := s.series[key]
		if !ok {
			idx = &seriesIndex{}
			s.series[key] = idx
		}
		idx.fileOrder = append(idx.fileOrder, id)

		if s.latest == -1 || r.Date > s.records[s.latest].Date {
			s.latest = i
		}
	}

	for _, idx := range s.series {
		idx.byDate = slices.Clone(idx.fileOrder)
		sort.SliceStable(idx.byDate, func(a, b int) bool {
			return s.records[idx.byDate[a]].Date < s.records[idx.byDate[b]].Date
		})
	}

	s.markets = sortedKeys(marketSet)
	s.commodities = sortedKeys(commoditySet)
	return s
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Ready reports ErrNotLoaded unless the snapshot came from a successful load.
func (s *Snapshot) Ready() error {
	if s.State != models.Loaded {
		return ErrNotLoaded
	}
	return nil
}

func (s *Snapshot) Len() int { return len(s.records) }

// Records returns a copy of the records in file order.
func (s *Snapshot) Records() []models.PriceRecord {
	return slices.Clone(s.records)
}

func (s *Snapshot) Skipped() []models.SkippedRow {
	return slices.Clone(s.skipped)
}

// LoadFailure is the most recent failed load.
type LoadFailure struct {
	Err error
	At  time.Time
}

type Status struct {
	State       models.LoadState `json:"state"`
	SnapshotID  string           `json:"snapshot_id,omitempty"`
	Source      string           `json:"source,omitempty"`
	LoadedAt    *time.Time       `json:"loaded_at,omitempty"`
	Records     int              `json:"records"`
	TotalRows   int              `json:"total_rows"`
	Skipped     int              `json:"skipped"`
	LastError   string           `json:"last_error,omitempty"`
	LastErrorAt *time.Time       `json:"last_error_at,omitempty"`
}

type StoreOptions struct {
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	// FetchTimeout bounds each Source.Fetch. Zero means no timeout.
	FetchTimeout time.Duration
}

// Store serves the current snapshot. Loads are serialized; readers never
// block and always see a complete snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]
	failure atomic.Pointer[LoadFailure]
	mu      sync.Mutex

	log          zerolog.Logger
	metrics      *metrics.Metrics
	fetchTimeout time.Duration
}

func NewStore(opts StoreOptions) *Store {
	s := &Store{
		log:          opts.Logger.With().Str("component", "store").Logger(),
		metrics:      opts.Metrics,
		fetchTimeout: opts.FetchTimeout,
	}
	s.current.Store(newSnapshot(models.NotLoaded, "", models.ParseReport{}))
	return s
}

func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Load fetches and parses src, then publishes the result in one swap. When
// the source cannot be read or ctx is cancelled mid-parse, a previously
// loaded snapshot keeps serving; otherwise an empty LoadFailed snapshot is
// published.
func (s *Store) Load(ctx context.Context, src Source) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	raw, err := s.fetch(ctx, src)
	if err != nil {
		return s.fail(src, start, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, src.Name(), err))
	}

	var report models.ParseReport
	if strings.EqualFold(filepath.Ext(src.Name()), ".xlsx") {
		report, err = ParseXLSX(raw)
		if err != nil {
			return s.fail(src, start, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, src.Name(), err))
		}
	} else {
		report, err = ParseContext(ctx, raw)
		if err != nil {
			return s.fail(src, start, err)
		}
	}

	snap := newSnapshot(models.Loaded, src.Name(), report)
	s.current.Store(snap)
	s.failure.Store(nil)

	took := time.Since(start)
	s.metrics.ObserveLoad(true, took, len(report.Records), len(report.Skipped))

	level := zerolog.InfoLevel
	if len(report.Skipped) > 0 {
		level = zerolog.WarnLevel
	}
	ev := s.log.WithLevel(level)
	if len(report.Skipped) > 0 {
		ev = ev.Int("first_skipped_line", report.Skipped[0].Line)
	}
	ev.Str("source", src.Name()).
		Str("snapshot", snap.ID).
		Int("records", len(report.Records)).
		Int("skipped", len(report.Skipped)).
		Dur("took", took).
		Msg("price data loaded")

	return snap, nil
}

// fetch applies the fetch timeout to src.Fetch only; parsing runs under the
// caller's ctx.
func (s *Store) fetch(ctx context.Context, src Source) ([]byte, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	return src.Fetch(ctx)
}

func (s *Store) fail(src Source, start time.Time, err error) (*Snapshot, error) {
	s.failure.Store(&LoadFailure{Err: err, At: time.Now()})
	s.metrics.ObserveLoad(false, time.Since(start), 0, 0)

	cur := s.current.Load()
	if cur.State != models.Loaded {
		cur = newSnapshot(models.LoadFailed, src.Name(), models.ParseReport{})
		s.current.Store(cur)
	}
	s.log.Error().Err(err).
		Str("source", src.Name()).
		Str("serving", cur.State.String()).
		Msg("price data load failed")
	return cur, err
}

func (s *Store) Status() Status {
	snap := s.Snapshot()
	st := Status{
		State:      snap.State,
		SnapshotID: snap.ID,
		Source:     snap.Source,
		Records:    len(snap.records),
		TotalRows:  snap.totalRows,
		Skipped:    len(snap.skipped),
	}
	if snap.State == models.Loaded {
		t := snap.LoadedAt
		st.LoadedAt = &t
	}
	if f := s.failure.Load(); f != nil {
		st.LastError = f.Err.Error()
		at := f.At
		st.LastErrorAt = &at
	}
	return st
}

// Watch reloads src every interval until ctx is done.
func (s *Store) Watch(ctx context.Context, src Source, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// failures are logged and recorded by Load
			_, _ = s.Load(ctx, src)
		}
	}
}
