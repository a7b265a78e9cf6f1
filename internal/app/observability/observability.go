package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Outcome kinds recorded by exam handlers.
const (
	OutcomeOK               = "ok"
	OutcomeNotFound         = "not_found"
	OutcomeStoreUnavailable = "store_unavailable"
	OutcomePersistenceError = "persistence_error"
	OutcomeInvalidExam      = "invalid_exam"
	OutcomeInvalidRequest   = "invalid_request"
	OutcomeError            = "error"
)

const unmatchedRoute = "unmatched"

// Outcome is a per-request slot a handler fills with the result kind of its
// exam operation.
type Outcome struct {
	mu   sync.Mutex
	kind string
}

func (o *Outcome) Kind() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.kind
}

type outcomeCtxKey struct{}

// NewOutcomeContext attaches an empty Outcome to ctx.
func NewOutcomeContext(ctx context.Context) (context.Context, *Outcome) {
	o := &Outcome{}
	return context.WithValue(ctx, outcomeCtxKey{}, o), o
}

// RecordOutcome sets the outcome kind of the current request. It is a no-op
// when the request is not observed.
func RecordOutcome(ctx context.Context, kind string) {
	o, ok := ctx.Value(outcomeCtxKey{}).(*Outcome)
	if !ok {
		return
	}
	o.mu.Lock()
	o.kind = kind
	o.mu.Unlock()
}

type routeKey struct {
	Method string
	Route  string
	Status int
}

type routeStat struct {
	Count     int64
	LatencyMS float64
}

type outcomeKey struct {
	Route   string
	Outcome string
}

type Collector struct {
	db        *sql.DB
	startedAt time.Time

	mu       sync.RWMutex
	routes   map[routeKey]routeStat
	outcomes map[outcomeKey]int64
}

func NewCollector(db *sql.DB) *Collector {
	return &Collector{
		db:        db,
		startedAt: time.Now(),
		routes:    make(map[routeKey]routeStat),
		outcomes:  make(map[outcomeKey]int64),
	}
}

// Middleware must run inside the chi router so the matched route pattern is
// available once the handler returns.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, outcome := NewOutcomeContext(r.Context())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route, examCode := routeOf(r)
		latencyMS := float64(time.Since(start).Microseconds()) / 1000.0
		kind := outcome.Kind()

		c.mu.Lock()
		rk := routeKey{Method: r.Method, Route: route, Status: status}
		s := c.routes[rk]
		s.Count++
		s.LatencyMS += latencyMS
		c.routes[rk] = s
		if kind != "" {
			c.outcomes[outcomeKey{Route: route, Outcome: kind}]++
		}
		c.mu.Unlock()

		b, _ := json.Marshal(map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"route":      route,
			"exam_code":  examCode,
			"outcome":    kind,
			"status":     status,
			"latency_ms": latencyMS,
			"remote_ip":  strings.TrimSpace(r.RemoteAddr),
		})
		log.Printf("%s", b)
	})
}

func routeOf(r *http.Request) (route, examCode string) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute, ""
	}
	route = rctx.RoutePattern()
	if route == "" {
		route = unmatchedRoute
	}
	return route, rctx.URLParam("code")
}

type snapshot struct {
	uptime   time.Duration
	routes   []routeKey
	stats    map[routeKey]routeStat
	outcomes []outcomeKey
	counts   map[outcomeKey]int64
}

func (c *Collector) snapshot() snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := snapshot{
		uptime: time.Since(c.startedAt),
		stats:  make(map[routeKey]routeStat, len(c.routes)),
		counts: make(map[outcomeKey]int64, len(c.outcomes)),
	}
	for k, v := range c.routes {
		s.routes = append(s.routes, k)
		s.stats[k] = v
	}
	for k, v := range c.outcomes {
		s.outcomes = append(s.outcomes, k)
		s.counts[k] = v
	}
	sort.Slice(s.routes, func(i, j int) bool {
		a, b := s.routes[i], s.routes[j]
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Status < b.Status
	})
	sort.Slice(s.outcomes, func(i, j int) bool {
		a, b := s.outcomes[i], s.outcomes[j]
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		return a.Outcome < b.Outcome
	})
	return s
}

func (c *Collector) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	snap := c.snapshot()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric(w, "examscore_uptime_seconds", "gauge")
	fmt.Fprintf(w, "examscore_uptime_seconds %.0f\n", snap.uptime.Seconds())

	metric(w, "examscore_exam_outcomes_total", "counter")
	for _, k := range snap.outcomes {
		fmt.Fprintf(w, "examscore_exam_outcomes_total{route=%q,outcome=%q} %d\n", k.Route, k.Outcome, snap.counts[k])
	}

	metric(w, "examscore_http_requests_total", "counter")
	metric(w, "examscore_http_request_latency_ms_avg", "gauge")
	for _, k := range snap.routes {
		s := snap.stats[k]
		labels := fmt.Sprintf("method=%q,route=%q,status=\"%d\"", k.Method, k.Route, k.Status)
		fmt.Fprintf(w, "examscore_http_requests_total{%s} %d\n", labels, s.Count)
		fmt.Fprintf(w, "examscore_http_request_latency_ms_avg{%s} %.3f\n", labels, s.LatencyMS/float64(s.Count))
	}

	if c.db == nil {
		return
	}
	dbs := c.db.Stats()
	for _, g := range []struct {
		name string
		kind string
		val  float64
	}{
		{"examscore_db_open_connections", "gauge", float64(dbs.OpenConnections)},
		{"examscore_db_in_use_connections", "gauge", float64(dbs.InUse)},
		{"examscore_db_wait_count", "counter", float64(dbs.WaitCount)},
		{"examscore_db_wait_duration_ms", "counter", float64(dbs.WaitDuration.Microseconds()) / 1000.0},
	} {
		metric(w, g.name, g.kind)
		fmt.Fprintf(w, "%s %g\n", g.name, g.val)
	}
}

func metric(w io.Writer, name, kind string) {
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
}
