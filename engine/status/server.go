// Package status implements the status/metrics HTTP surface (§2.1.N): a
// liveness endpoint and a Prometheus-compatible /metrics endpoint, wired
// with the same middleware chain the teacher uses across its HTTP
// entrypoints.
package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Gawain27/PubScraper/engine/comm"
	"github.com/Gawain27/PubScraper/engine/router"
	"github.com/Gawain27/PubScraper/pkg/metrics"
	"github.com/Gawain27/PubScraper/pkg/mid"
)

// Server exposes liveness and Prometheus metrics on status_port.
type Server struct {
	addr     string
	registry *metrics.Registry
	router   *router.Router
	sender   *comm.SocketSender
	log      *slog.Logger

	queueSystemDepth  *metrics.Gauge
	queueProcessDepth *metrics.Gauge

	httpServer *http.Server
}

// New builds a Server bound to addr (host:port). r and sender may be nil
// (with a nil r the queue-depth gauges stay at zero; sender is stored but
// no handler reads it).
func New(addr string, r *router.Router, sender *comm.SocketSender, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	reg := metrics.New()
	s := &Server{
		addr:              addr,
		registry:          reg,
		router:            r,
		sender:            sender,
		log:               log,
		queueSystemDepth:  reg.Gauge("harvester_priority_queue_system_depth", "entries queued on the system heap"),
		queueProcessDepth: reg.Gauge("harvester_priority_queue_process_depth", "entries queued on the process heap"),
	}
	return s
}

type livenessResponse struct {
	Status        string `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Start launches the HTTP server in a background goroutine and returns
// immediately. The server shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	startedAt := time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.refreshGauges()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(livenessResponse{
			Status:        "ok",
			UptimeSeconds: time.Since(startedAt).Seconds(),
		})
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.refreshGauges()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(s.registry.Render()))
	})

	handler := mid.Chain(mux, mid.Recover(s.log), mid.Logger(s.log), mid.OTel("harvester-status"))

	s.httpServer = &http.Server{Addr: s.addr, Handler: handler}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("status: server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()
}

func (s *Server) refreshGauges() {
	if s.router == nil {
		return
	}
	system, process := s.router.QueueDepth()
	s.queueSystemDepth.Set(int64(system))
	s.queueProcessDepth.Set(int64(process))
}
