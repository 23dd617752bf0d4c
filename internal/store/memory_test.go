package store

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func settleWith(name string) weather.SettleFunc {
	return func(prev weather.ViewModel) (weather.ViewModel, weather.Outcome, []error) {
		return weather.ViewModel{LocationName: name}, weather.OutcomeOK, nil
	}
}

func TestBeginRefreshSetsLoading(t *testing.T) {
	s := NewMemoryStore(weather.Placeholder(time.Now()), weather.PolicyLatest, 10, 0)
	if s.State().IsLoading {
		t.Fatal("placeholder must not be loading")
	}

	first := s.BeginRefresh(uuid.New(), time.Now())
	second := s.BeginRefresh(uuid.New(), time.Now())
	if second <= first {
		t.Fatalf("expected increasing sequence, got %d then %d", first, second)
	}
	if !s.State().IsLoading {
		t.Fatal("expected loading after BeginRefresh")
	}
}

func TestLatestPolicyDiscardsStale(t *testing.T) {
	s := NewMemoryStore(weather.Placeholder(time.Now()), weather.PolicyLatest, 10, 0)

	first := s.BeginRefresh(uuid.New(), time.Now())
	second := s.BeginRefresh(uuid.New(), time.Now())

	if !s.Settle(second, time.Now(), settleWith("second")) {
		t.Fatal("expected latest refresh to apply")
	}
	if st := s.State(); st.LocationName != "second" || st.IsLoading {
		t.Fatalf("unexpected state after latest settled: %+v", st)
	}

	if s.Settle(first, time.Now(), settleWith("first")) {
		t.Fatal("expected stale refresh to be discarded")
	}
	if st := s.State(); st.LocationName != "second" {
		t.Fatalf("stale refresh overwrote state: %+v", st)
	}

	hist := s.History()
	if len(hist) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(hist))
	}
	if hist[0].Seq != second || hist[0].Outcome != weather.OutcomeOK {
		t.Fatalf("unexpected first record: %+v", hist[0])
	}
	if hist[1].Seq != first || hist[1].Outcome != weather.OutcomeStale {
		t.Fatalf("unexpected second record: %+v", hist[1])
	}
}

func TestLatestPolicyKeepsLoadingUntilLatestSettles(t *testing.T) {
	s := NewMemoryStore(weather.Placeholder(time.Now()), weather.PolicyLatest, 10, 0)

	first := s.BeginRefresh(uuid.New(), time.Now())
	second := s.BeginRefresh(uuid.New(), time.Now())

	s.Settle(first, time.Now(), settleWith("first"))
	if !s.State().IsLoading {
		t.Fatal("expected loading while latest refresh is pending")
	}

	s.Settle(second, time.Now(), settleWith("second"))
	if s.State().IsLoading {
		t.Fatal("expected loading cleared after latest refresh settled")
	}
}

func TestSettledPolicyLastSettledWins(t *testing.T) {
	s := NewMemoryStore(weather.Placeholder(time.Now()), weather.PolicySettled, 10, 0)

	first := s.BeginRefresh(uuid.New(), time.Now())
	second := s.BeginRefresh(uuid.New(), time.Now())

	if !s.Settle(second, time.Now(), settleWith("second")) {
		t.Fatal("expected refresh to apply")
	}
	if st := s.State(); st.LocationName != "second" || !st.IsLoading {
		t.Fatalf("expected second applied while first in flight: %+v", st)
	}

	if !s.Settle(first, time.Now(), settleWith("first")) {
		t.Fatal("expected refresh to apply")
	}
	if st := s.State(); st.LocationName != "first" || st.IsLoading {
		t.Fatalf("expected last settled refresh to win: %+v", st)
	}
}

func TestSettleUnknownSeq(t *testing.T) {
	s := NewMemoryStore(weather.Placeholder(time.Now()), "", 10, 0)
	if s.Settle(42, time.Now(), settleWith("x")) {
		t.Fatal("expected unknown seq to be ignored")
	}
	seq := s.BeginRefresh(uuid.New(), time.Now())
	s.Settle(seq, time.Now(), settleWith("x"))
	if s.Settle(seq, time.Now(), settleWith("y")) {
		t.Fatal("expected double settle to be ignored")
	}
	if s.State().LocationName != "x" {
		t.Fatalf("unexpected state: %+v", s.State())
	}
}

func TestHistoryRetention(t *testing.T) {
	s := NewMemoryStore(weather.Placeholder(time.Now()), weather.PolicyLatest, 3, time.Hour)

	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		seq := s.BeginRefresh(uuid.New(), at)
		s.Settle(seq, at, settleWith("x"))
	}

	hist := s.History()
	if len(hist) != 3 {
		t.Fatalf("expected 3 records after count retention, got %d", len(hist))
	}
	if hist[0].Seq != 3 {
		t.Fatalf("expected oldest kept seq 3, got %d", hist[0].Seq)
	}

	late := base.Add(2 * time.Hour)
	seq := s.BeginRefresh(uuid.New(), late)
	s.Settle(seq, late, settleWith("x"))

	hist = s.History()
	if len(hist) != 1 || hist[0].Seq != seq {
		t.Fatalf("expected only the latest record after age retention, got %+v", hist)
	}
}
