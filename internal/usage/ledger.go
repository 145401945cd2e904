// Package usage persists per-command usage statistics and scores them for
// ranking. The score blends frequency, recency decay, and an hour-of-day
// boost; the tuning values below were chosen empirically and are kept as
// named constants so they can be adjusted without touching algorithm code.
package usage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/cmdk/internal/storage"
)

const (
	// halfLifeDays controls recency decay: a command unused for seven days
	// keeps half its recency weight.
	halfLifeDays = 7.0
	// hourBoostFactor scales the hour-of-day boost on top of the neutral 1.
	hourBoostFactor = 0.5
	// hourBoostWindow is the +/- hour range that contributes to the boost.
	hourBoostWindow = 2
	// hourBoostfalloff reduces a bucket's weight per hour of offset.
	hourBoostFalloff = 0.2
	// emaAlpha is the smoothing factor for the stored EMA score.
	emaAlpha = 0.2
	// retentionDays is how long an unused record survives cleanup.
	retentionDays = 90
	// sweepInterval is the minimum gap between opportunistic cleanup sweeps.
	sweepInterval = 90 * 24 * time.Hour

	hoursPerDay = 24
)

var decayLambda = math.Ln2 / halfLifeDays

// Stats is one command's usage record.
//
// HourlyUsage always has exactly 24 non-negative slots, one per hour of
// day; TotalUsage equals the sum of all historical increments. Cleanup may
// discard the whole record, never part of it.
type Stats struct {
	TotalUsage  int       `yaml:"totalUsage"`
	LastUsed    time.Time `yaml:"lastUsed"`
	HourlyUsage []int     `yaml:"hourlyUsage"`
	EMAScore    float64   `yaml:"emaScore"`
	ParentNames []string  `yaml:"parentNames,omitempty"`
}

// normalizeHours repairs records loaded from older or hand-edited blobs so
// the 24-slot invariant holds.
func (s *Stats) normalizeHours() {
	if len(s.HourlyUsage) == hoursPerDay {
		return
	}
	fixed := make([]int, hoursPerDay)
	copy(fixed, s.HourlyUsage)
	s.HourlyUsage = fixed
}

// ledgerBlob is the persisted shape under the "usage" storage key.
type ledgerBlob struct {
	LastCleanup time.Time         `yaml:"lastCleanup"`
	Commands    map[string]*Stats `yaml:"commands"`
}

// Ledger reads and mutates the persisted usage blob. A single mutex
// serializes every read-modify-write cycle, which preserves the
// "total usage is the sum of increments" invariant on a multi-threaded
// runtime.
type Ledger struct {
	store storage.Store
	log   logr.Logger
	now   func() time.Time

	mu sync.Mutex
}

// NewLedger returns a ledger over the given store. now is injectable for
// tests; pass nil for time.Now.
func NewLedger(store storage.Store, log logr.Logger, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, log: log, now: now}
}

// Score computes the raw ranking score of a record at the given instant.
// It is a pure function: frequency = ln(total+1), recency decays with a
// seven-day half-life, and the time-of-day boost favors the hours around
// now in which the command has historically been used.
func Score(st *Stats, now time.Time) float64 {
	if st == nil || st.TotalUsage <= 0 {
		return 0
	}
	frequency := math.Log(float64(st.TotalUsage) + 1)

	days := now.Sub(st.LastUsed).Hours() / hoursPerDay
	if days < 0 {
		days = 0
	}
	recency := math.Exp(-decayLambda * days)

	return frequency * recency * timeBoost(st, now.Hour())
}

// timeBoost returns 1 + hourBoostFactor * weighted share of usage in the
// window around currentHour. With no hourly history the weighted share is
// taken as 1 (neutral: every command gets the same boost).
func timeBoost(st *Stats, currentHour int) float64 {
	totalHourly := 0
	for i := 0; i < len(st.HourlyUsage) && i < hoursPerDay; i++ {
		totalHourly += st.HourlyUsage[i]
	}

	sum := 1.0
	if totalHourly > 0 {
		sum = 0
		for offset := -hourBoostWindow; offset <= hourBoostWindow; offset++ {
			h := ((currentHour+offset)%hoursPerDay + hoursPerDay) % hoursPerDay
			if h >= len(st.HourlyUsage) {
				continue
			}
			weight := 1 - hourBoostFalloff*math.Abs(float64(offset))
			sum += float64(st.HourlyUsage[h]) / float64(totalHourly) * weight
		}
	}
	return 1 + hourBoostFactor*sum
}

// RecordUsage increments the record for id: total, current-hour bucket,
// last-used stamp, breadcrumb names, and the stored EMA score. A cold-start
// record (EMA still zero) takes the fresh raw score directly so new
// commands are not penalized by averaging against a zero initial value.
// If more than sweepInterval has passed since the last sweep, expired
// records are pruned in the same write.
func (l *Ledger) RecordUsage(ctx context.Context, id string, parentNames []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := l.load(ctx)
	if err != nil {
		return err
	}
	now := l.now()

	st, ok := blob.Commands[id]
	if !ok {
		st = &Stats{}
		blob.Commands[id] = st
	}
	st.normalizeHours()
	st.TotalUsage++
	st.LastUsed = now
	st.HourlyUsage[now.Hour()]++
	if len(parentNames) > 0 {
		st.ParentNames = append([]string(nil), parentNames...)
	}

	raw := Score(st, now)
	if st.EMAScore == 0 {
		st.EMAScore = raw
	} else {
		st.EMAScore = emaAlpha*raw + (1-emaAlpha)*st.EMAScore
	}

	if blob.LastCleanup.IsZero() {
		blob.LastCleanup = now
	} else if now.Sub(blob.LastCleanup) > sweepInterval {
		l.sweep(blob, now)
	}

	return l.save(ctx, blob)
}

// Cleanup removes every record whose LastUsed predates the retention
// window. It is idempotent and, because it holds the ledger lock, safe to
// run concurrently with RecordUsage calls for other command ids.
func (l *Ledger) Cleanup(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := l.load(ctx)
	if err != nil {
		return err
	}
	l.sweep(blob, l.now())
	return l.save(ctx, blob)
}

func (l *Ledger) sweep(blob *ledgerBlob, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	removed := 0
	for id, st := range blob.Commands {
		if st.LastUsed.Before(cutoff) {
			delete(blob.Commands, id)
			removed++
		}
	}
	blob.LastCleanup = now
	if removed > 0 {
		l.log.V(1).Info("usage cleanup removed expired records", "removed", removed)
	}
}

// RankedIDs returns every command with recorded usage, sorted by score
// descending. Ties are broken by catalog discovery order; ids not present
// in the catalog order sort after known ones, alphabetically for
// determinism.
func (l *Ledger) RankedIDs(ctx context.Context, catalogOrder []string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	now := l.now()

	orderIdx := make(map[string]int, len(catalogOrder))
	for i, id := range catalogOrder {
		orderIdx[id] = i
	}

	type ranked struct {
		id    string
		score float64
	}
	items := make([]ranked, 0, len(blob.Commands))
	for id, st := range blob.Commands {
		if st.TotalUsage <= 0 {
			continue
		}
		items = append(items, ranked{id: id, score: Score(st, now)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		oi, iok := orderIdx[items[i].id]
		oj, jok := orderIdx[items[j].id]
		switch {
		case iok && jok:
			return oi < oj
		case iok:
			return true
		case jok:
			return false
		default:
			return items[i].id < items[j].id
		}
	})

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	return ids, nil
}

// Scores returns the live raw score per command with recorded usage.
func (l *Ledger) Scores(ctx context.Context) (map[string]float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	now := l.now()
	out := make(map[string]float64, len(blob.Commands))
	for id, st := range blob.Commands {
		if st.TotalUsage <= 0 {
			continue
		}
		out[id] = Score(st, now)
	}
	return out, nil
}

// Stats returns a copy of the record for id.
func (l *Ledger) Stats(ctx context.Context, id string) (Stats, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := l.load(ctx)
	if err != nil {
		return Stats{}, false, err
	}
	st, ok := blob.Commands[id]
	if !ok {
		return Stats{}, false, nil
	}
	return *st, true, nil
}

// All returns a copy of every record, keyed by command id.
func (l *Ledger) All(ctx context.Context) (map[string]Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	blob, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Stats, len(blob.Commands))
	for id, st := range blob.Commands {
		out[id] = *st
	}
	return out, nil
}

func (l *Ledger) load(ctx context.Context) (*ledgerBlob, error) {
	blob := &ledgerBlob{Commands: make(map[string]*Stats)}
	data, ok, err := l.store.Get(ctx, storage.KeyUsage)
	if err != nil {
		return nil, fmt.Errorf("loading usage blob: %w", err)
	}
	if !ok {
		return blob, nil
	}
	if err := yaml.Unmarshal(data, blob); err != nil {
		// A corrupt blob is unrecoverable state, not a fatal condition;
		// start over rather than wedge every ranking request.
		l.log.Error(err, "usage blob corrupt, starting fresh")
		return &ledgerBlob{Commands: make(map[string]*Stats)}, nil
	}
	if blob.Commands == nil {
		blob.Commands = make(map[string]*Stats)
	}
	for _, st := range blob.Commands {
		st.normalizeHours()
	}
	return blob, nil
}

func (l *Ledger) save(ctx context.Context, blob *ledgerBlob) error {
	data, err := yaml.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encoding usage blob: %w", err)
	}
	if err := l.store.Set(ctx, storage.KeyUsage, data); err != nil {
		return fmt.Errorf("saving usage blob: %w", err)
	}
	return nil
}
