package weather

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/moment"
)

// DefaultMoment is used when the moment cannot be resolved.
const DefaultMoment = moment.MomentDay

// Options configures a Service.
type Options struct {
	// LocationName is the observation station, e.g. "臺北".
	LocationName string
	// CityName is the forecast area, e.g. "臺北市".
	CityName string
	// MomentLocation overrides the name used for day/night resolution.
	// When empty the observed location name is used.
	MomentLocation string

	Now func() time.Time
}

// View is what the presentation layer renders.
type View struct {
	State  ViewModel     `json:"state"`
	Moment moment.Moment `json:"moment"`
}

// Ticket identifies one refresh request.
type Ticket struct {
	ID   uuid.UUID `json:"id"`
	Seq  uint64    `json:"seq"`
	done chan struct{}
}

// Done is closed once the refresh has settled.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Service orchestrates the paired observation/forecast fetch and merges the
// results into the store.
type Service struct {
	store   Store
	fetcher Fetcher
	moments MomentResolver
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewService creates a new Service. moments may be nil, in which case the
// moment is always DefaultMoment.
func NewService(store Store, fetcher Fetcher, moments MomentResolver, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:   store,
		fetcher: fetcher,
		moments: moments,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start performs the initial refresh.
func (s *Service) Start() *Ticket {
	log.Printf("INFO: initial refresh for %s / %s", s.opts.LocationName, s.opts.CityName)
	return s.Refresh()
}

// Refresh marks the state as loading before returning and fetches the
// observation and forecast concurrently in the background. The returned
// ticket's Done channel closes once both requests have settled and the
// result has been handed to the store.
func (s *Service) Refresh() *Ticket {
	t := &Ticket{ID: uuid.New(), done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(t.done)
		return t
	}
	t.Seq = s.store.BeginRefresh(t.ID, s.opts.Now())
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(t.done)
		s.run(t)
	}()

	return t
}

func (s *Service) run(t *Ticket) {
	obs, fc := s.fetchBoth(s.ctx)

	applied := s.store.Settle(t.Seq, s.opts.Now(), func(prev ViewModel) (ViewModel, Outcome, []error) {
		vm, outcome := Merge(prev, obs, fc)

		var errs []error
		if !obs.OK() {
			errs = append(errs, obs.Err)
		}
		if !fc.OK() {
			errs = append(errs, fc.Err)
		}
		return vm, outcome, errs
	})

	if !applied {
		log.Printf("DEBUG: refresh %d (%s) settled after a newer request; result discarded", t.Seq, t.ID)
		return
	}
	log.Printf("DEBUG: refresh %d (%s) applied", t.Seq, t.ID)
}

// fetchBoth runs both requests concurrently and waits for both to settle.
// Failures are logged here and returned as failed results.
func (s *Service) fetchBoth(ctx context.Context) (Result[Observation], Result[Forecast]) {
	var (
		wg  sync.WaitGroup
		obs Result[Observation]
		fc  Result[Forecast]
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		v, err := s.fetcher.FetchObservation(ctx, s.opts.LocationName)
		if err != nil {
			log.Printf("observation fetch failed for %s: %v", s.opts.LocationName, err)
		}
		obs = Result[Observation]{Value: v, Err: err}
	}()
	go func() {
		defer wg.Done()
		v, err := s.fetcher.FetchForecast(ctx, s.opts.CityName)
		if err != nil {
			log.Printf("forecast fetch failed for %s: %v", s.opts.CityName, err)
		}
		fc = Result[Forecast]{Value: v, Err: err}
	}()
	wg.Wait()

	return obs, fc
}

// State returns the current view model.
func (s *Service) State() ViewModel {
	return s.store.State()
}

// History returns the settled refreshes kept by the store.
func (s *Service) History() []RefreshRecord {
	return s.store.History()
}

// View returns the current state with its day/night moment.
func (s *Service) View() View {
	st := s.store.State()
	return View{
		State:  st,
		Moment: s.momentFor(st, s.opts.Now()),
	}
}

func (s *Service) momentFor(st ViewModel, now time.Time) moment.Moment {
	name := s.opts.MomentLocation
	if name == "" {
		name = st.LocationName
	}
	if name == "" || s.moments == nil {
		return DefaultMoment
	}

	m, err := s.moments.Resolve(name, now)
	if err != nil {
		log.Printf("DEBUG: moment unresolved for %s: %v", name, err)
		return DefaultMoment
	}
	return m
}

// Close cancels in-flight requests and waits for them to settle.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
