package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"doodhly-fieldops/internal/core/kv"
	"doodhly-fieldops/internal/core/logger"
	"doodhly-fieldops/internal/core/metrics"
	"doodhly-fieldops/internal/features/routing/domain"

	"go.uber.org/zap"
)

// averageSpeedMps is the assumed urban delivery speed (around 20 km/h)
// used to turn the distance saving into a coarse time saving. Display
// heuristic only, not a committed ETA.
const averageSpeedMps = 5.6

// Schedule holds the simulated-annealing cooling schedule.
type Schedule struct {
	// InitialTemp is the starting temperature.
	InitialTemp float64
	// CoolingRate is the geometric multiplier applied each iteration.
	CoolingRate float64
	// MinTemp terminates the search once reached.
	MinTemp float64
}

// DefaultSchedule is tuned for run sheets of a few dozen stops with
// edge costs in meters.
func DefaultSchedule() Schedule {
	return Schedule{InitialTemp: 10000, CoolingRate: 0.9995, MinTemp: 1}
}

// OptimizedRoute is the outcome of one optimization run.
type OptimizedRoute struct {
	// Stops is the full input set in the new visiting order,
	// resequenced 1-based.
	Stops []domain.Stop
	// MetersBefore is the open-path length of the valid subset in input order.
	MetersBefore float64
	// MetersAfter is the open-path length of the valid subset in the new order.
	MetersAfter float64
}

// MetersSaved returns the distance saving of the run. Never negative:
// the search returns the best order it ever visited, which is at worst
// the input order.
func (o OptimizedRoute) MetersSaved() float64 {
	return o.MetersBefore - o.MetersAfter
}

// SecondsSaved returns a coarse travel-time saving estimate.
func (o OptimizedRoute) SecondsSaved() float64 {
	return o.MetersSaved() / averageSpeedMps
}

// RouteService resequences run sheets and caches the latest result
// per partner for offline read-through.
type RouteService struct {
	sched    Schedule
	store    kv.Store
	routeTTL time.Duration
	seed     func() int64
}

// NewRouteService creates a RouteService. store may be nil when run-sheet
// caching is not needed (pure optimization).
func NewRouteService(sched Schedule, store kv.Store, routeTTL time.Duration) *RouteService {
	return &RouteService{
		sched:    sched,
		store:    store,
		routeTTL: routeTTL,
		seed:     func() int64 { return time.Now().UnixNano() },
	}
}

// Optimize reorders the valid-coordinate subset of stops to shorten the
// open-path route, appending stops with missing or malformed coordinates
// after the optimized portion in their original relative order. Every
// returned stop carries a fresh 1-based sequence number.
//
// The search is intentionally stochastic: repeated calls on the same
// input may return different, comparably short orders.
func (s *RouteService) Optimize(stops []domain.Stop) OptimizedRoute {
	start := time.Now()
	defer metrics.ObserveOptimizeLatency(start)

	valid := make([]domain.Stop, 0, len(stops))
	invalid := make([]domain.Stop, 0)
	for _, stop := range stops {
		if stop.HasValidCoordinates() {
			valid = append(valid, stop)
		} else {
			invalid = append(invalid, stop)
		}
	}

	before := domain.RouteDistance(valid)

	ordered := valid
	// A route of one or two valid stops has no improving swap; skip the search.
	if len(valid) > 2 {
		rng := rand.New(rand.NewSource(s.seed()))
		ordered = s.anneal(valid, rng)
	}

	after := domain.RouteDistance(ordered)

	result := make([]domain.Stop, 0, len(stops))
	result = append(result, ordered...)
	result = append(result, invalid...)
	for i := range result {
		result[i].Sequence = i + 1
	}

	metrics.OptimizeRuns.WithLabelValues("ok").Inc()
	logger.Get().Debug("Route optimized",
		zap.Int("stops", len(stops)),
		zap.Int("valid", len(valid)),
		zap.Float64("meters_before", before),
		zap.Float64("meters_after", after),
	)

	return OptimizedRoute{Stops: result, MetersBefore: before, MetersAfter: after}
}

// anneal runs simulated annealing over the valid stops and returns the
// best order ever visited.
func (s *RouteService) anneal(stops []domain.Stop, rng *rand.Rand) []domain.Stop {
	n := len(stops)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	cost := pathCost(stops, order)
	best := append([]int(nil), order...)
	bestCost := cost

	for temp := s.sched.InitialTemp; temp > s.sched.MinTemp; temp *= s.sched.CoolingRate {
		// Swap two positions picked with replacement; a self-swap is a
		// harmless no-op move.
		i, j := rng.Intn(n), rng.Intn(n)
		order[i], order[j] = order[j], order[i]

		next := pathCost(stops, order)

		// Metropolis criterion: always take improvements, take uphill
		// moves with probability exp(-delta/temp) to escape local minima.
		if next < cost || rng.Float64() < math.Exp((cost-next)/temp) {
			cost = next
			if next < bestCost {
				bestCost = next
				copy(best, order)
			}
		} else {
			order[i], order[j] = order[j], order[i]
		}
	}

	out := make([]domain.Stop, n)
	for i, idx := range best {
		out[i] = stops[idx]
	}
	return out
}

// pathCost is the open-path objective over a permutation of stops.
func pathCost(stops []domain.Stop, order []int) float64 {
	total := 0.0
	for i := 0; i < len(order)-1; i++ {
		a, b := stops[order[i]], stops[order[i+1]]
		total += domain.Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
	}
	return total
}

// SaveRunSheet caches the latest run sheet for a partner so the device
// can re-sync it while the core platform is unreachable.
func (s *RouteService) SaveRunSheet(ctx context.Context, partnerID string, stops []domain.Stop) error {
	if s.store == nil {
		return nil
	}

	records := make([]map[string]interface{}, 0, len(stops))
	for _, stop := range stops {
		records = append(records, stop.Record)
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode run sheet for %s: %w", partnerID, err)
	}

	if err := s.store.Set(ctx, runSheetKey(partnerID), data, s.routeTTL); err != nil {
		return fmt.Errorf("failed to cache run sheet for %s: %w", partnerID, err)
	}
	return nil
}

// GetRunSheet returns the cached run sheet for a partner.
// Returns kv.ErrNotFound (wrapped) when nothing is cached.
func (s *RouteService) GetRunSheet(ctx context.Context, partnerID string) ([]domain.Stop, error) {
	if s.store == nil {
		return nil, fmt.Errorf("run sheet for %s: %w", partnerID, kv.ErrNotFound)
	}

	data, err := s.store.Get(ctx, runSheetKey(partnerID))
	if err != nil {
		return nil, err
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode cached run sheet for %s: %w", partnerID, err)
	}

	stops := make([]domain.Stop, 0, len(records))
	for _, rec := range records {
		stops = append(stops, domain.StopFromRecord(rec))
	}
	return stops, nil
}

func runSheetKey(partnerID string) string {
	return "fieldops:runsheet:" + partnerID
}
