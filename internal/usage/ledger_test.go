package usage

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/cmdk/internal/storage"
)

// testClock is a settable time source.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func newTestLedger() (*Ledger, *testClock) {
	clock := &testClock{t: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)}
	l := NewLedger(storage.NewMemoryStore(), logr.Discard(), clock.now)
	return l, clock
}

func TestScoreZeroWithoutUsage(t *testing.T) {
	now := time.Now()
	if got := Score(nil, now); got != 0 {
		t.Fatalf("Score(nil) = %v, want 0", got)
	}
	if got := Score(&Stats{}, now); got != 0 {
		t.Fatalf("Score(zero stats) = %v, want 0", got)
	}
}

func TestScoreMonotonicInTotalUsage(t *testing.T) {
	now := time.Now()
	last := now.Add(-time.Hour)
	prev := 0.0
	for total := 1; total <= 50; total++ {
		got := Score(&Stats{TotalUsage: total, LastUsed: last}, now)
		if got < prev {
			t.Fatalf("score decreased at totalUsage=%d: %v < %v", total, got, prev)
		}
		prev = got
	}
}

func TestScoreDecaysWithAge(t *testing.T) {
	now := time.Now()
	prev := math.Inf(1)
	for days := 0; days <= 60; days += 5 {
		st := &Stats{TotalUsage: 10, LastUsed: now.AddDate(0, 0, -days)}
		got := Score(st, now)
		if got > prev {
			t.Fatalf("score increased at %d days since use: %v > %v", days, got, prev)
		}
		prev = got
	}

	// Seven days is the half life.
	fresh := Score(&Stats{TotalUsage: 10, LastUsed: now}, now)
	week := Score(&Stats{TotalUsage: 10, LastUsed: now.AddDate(0, 0, -7)}, now)
	if ratio := week / fresh; math.Abs(ratio-0.5) > 1e-9 {
		t.Fatalf("7-day decay ratio = %v, want 0.5", ratio)
	}
}

func TestTimeBoostNeutralWithoutHistory(t *testing.T) {
	now := time.Now()
	st := &Stats{TotalUsage: 1, LastUsed: now}
	if got := timeBoost(st, now.Hour()); got != 1+hourBoostFactor {
		t.Fatalf("neutral boost = %v, want %v", got, 1+hourBoostFactor)
	}
}

func TestTimeBoostFavorsHabitualHours(t *testing.T) {
	hours := make([]int, hoursPerDay)
	hours[9] = 10
	st := &Stats{TotalUsage: 10, HourlyUsage: hours}

	at9 := timeBoost(st, 9)
	at21 := timeBoost(st, 21)
	if at9 <= at21 {
		t.Fatalf("boost at habitual hour %v <= off hour %v", at9, at21)
	}
	if want := 1 + hourBoostFactor*1.0; math.Abs(at9-want) > 1e-9 {
		t.Fatalf("boost at exact habitual hour = %v, want %v", at9, want)
	}
}

func TestRecordUsageColdStartTakesRawScore(t *testing.T) {
	l, clock := newTestLedger()
	ctx := context.Background()

	if err := l.RecordUsage(ctx, "copy", nil); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	st, ok, err := l.Stats(ctx, "copy")
	if err != nil || !ok {
		t.Fatalf("Stats: %v, %v", ok, err)
	}
	raw := Score(&st, clock.t)
	if st.EMAScore != raw {
		t.Fatalf("cold-start EMA = %v, want raw score %v", st.EMAScore, raw)
	}
	if st.TotalUsage != 1 {
		t.Fatalf("TotalUsage = %d, want 1", st.TotalUsage)
	}
	if got := st.HourlyUsage[clock.t.Hour()]; got != 1 {
		t.Fatalf("hour bucket = %d, want 1", got)
	}
}

func TestRecordUsageSmoothsAfterColdStart(t *testing.T) {
	l, clock := newTestLedger()
	ctx := context.Background()

	if err := l.RecordUsage(ctx, "copy", nil); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	first, _, _ := l.Stats(ctx, "copy")

	clock.t = clock.t.Add(time.Hour)
	if err := l.RecordUsage(ctx, "copy", nil); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	second, _, _ := l.Stats(ctx, "copy")

	raw := Score(&second, clock.t)
	want := emaAlpha*raw + (1-emaAlpha)*first.EMAScore
	if math.Abs(second.EMAScore-want) > 1e-9 {
		t.Fatalf("EMA = %v, want %v", second.EMAScore, want)
	}
}

func TestRecordUsageKeepsParentNames(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	if err := l.RecordUsage(ctx, "bookmark-manager", []string{"Bookmarks"}); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	st, _, _ := l.Stats(ctx, "bookmark-manager")
	if len(st.ParentNames) != 1 || st.ParentNames[0] != "Bookmarks" {
		t.Fatalf("ParentNames = %v", st.ParentNames)
	}
}

func TestCleanupRemovesOnlyExpiredRecords(t *testing.T) {
	l, clock := newTestLedger()
	ctx := context.Background()

	if err := l.RecordUsage(ctx, "old", nil); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	clock.t = clock.t.AddDate(0, 0, 85)
	if err := l.RecordUsage(ctx, "recent", nil); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	clock.t = clock.t.AddDate(0, 0, 10)

	for i := 0; i < 2; i++ { // idempotent
		if err := l.Cleanup(ctx); err != nil {
			t.Fatalf("Cleanup: %v", err)
		}
		if _, ok, _ := l.Stats(ctx, "old"); ok {
			t.Fatal("expired record survived cleanup")
		}
		if _, ok, _ := l.Stats(ctx, "recent"); !ok {
			t.Fatal("in-window record was removed")
		}
	}
}

func TestRecordUsageTriggersOpportunisticSweep(t *testing.T) {
	l, clock := newTestLedger()
	ctx := context.Background()

	if err := l.RecordUsage(ctx, "old", nil); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	clock.t = clock.t.AddDate(0, 0, 91)
	if err := l.RecordUsage(ctx, "fresh", nil); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}

	if _, ok, _ := l.Stats(ctx, "old"); ok {
		t.Fatal("expired record survived the opportunistic sweep")
	}
	if _, ok, _ := l.Stats(ctx, "fresh"); !ok {
		t.Fatal("freshly recorded command missing")
	}
}

func TestRankedIDsPrefersRecency(t *testing.T) {
	l, clock := newTestLedger()
	ctx := context.Background()
	base := clock.t

	clock.t = base.AddDate(0, 0, -30)
	for i := 0; i < 10; i++ {
		if err := l.RecordUsage(ctx, "b", nil); err != nil {
			t.Fatalf("RecordUsage: %v", err)
		}
	}
	clock.t = base.Add(-time.Hour)
	for i := 0; i < 10; i++ {
		if err := l.RecordUsage(ctx, "a", nil); err != nil {
			t.Fatalf("RecordUsage: %v", err)
		}
	}
	clock.t = base

	ids, err := l.RankedIDs(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("RankedIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("RankedIDs = %v, want [a b]", ids)
	}
}

func TestRankedIDsTieBreaksByCatalogOrder(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	if err := l.RecordUsage(ctx, "a", nil); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	if err := l.RecordUsage(ctx, "b", nil); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}

	ids, err := l.RankedIDs(ctx, []string{"b", "a"})
	if err != nil {
		t.Fatalf("RankedIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Fatalf("RankedIDs = %v, want catalog order [b a] on equal scores", ids)
	}
}

func TestRankedIDsSkipsUnusedRecords(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	ids, err := l.RankedIDs(ctx, []string{"a"})
	if err != nil {
		t.Fatalf("RankedIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("RankedIDs = %v, want empty", ids)
	}
}

func TestCorruptBlobStartsFresh(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, storage.KeyUsage, []byte("{{{{ not yaml")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	l := NewLedger(store, logr.Discard(), nil)
	if err := l.RecordUsage(ctx, "copy", nil); err != nil {
		t.Fatalf("RecordUsage over corrupt blob: %v", err)
	}
	st, ok, err := l.Stats(ctx, "copy")
	if err != nil || !ok || st.TotalUsage != 1 {
		t.Fatalf("Stats after recovery = %+v, %v, %v", st, ok, err)
	}
}

func TestHourlyInvariantRepairedOnLoad(t *testing.T) {
	l, _ := newTestLedger()
	ctx := context.Background()

	if err := l.RecordUsage(ctx, "copy", nil); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	st, _, _ := l.Stats(ctx, "copy")
	if len(st.HourlyUsage) != hoursPerDay {
		t.Fatalf("HourlyUsage has %d slots, want %d", len(st.HourlyUsage), hoursPerDay)
	}
}
