// Package health serves the dashboard's readiness check for load balancers and CI.
package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"time"
)

const checkTimeout = 2 * time.Second

// Status values, named as in the gRPC health protocol.
const (
	StatusServing    = "SERVING"
	StatusNotServing = "NOT_SERVING"
)

// Pinger is a dependency that can report whether it is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response is the health check body. Checks lists failing dependencies only.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Server answers health checks by pinging each named dependency.
type Server struct {
	pingers map[string]Pinger
}

// NewServer returns a health server over pingers. Nil entries are skipped.
func NewServer(pingers map[string]Pinger) *Server {
	return &Server{pingers: pingers}
}

// Check pings every dependency and reports the overall status.
func (s *Server) Check(ctx context.Context) Response {
	names := make([]string, 0, len(s.pingers))
	for name := range s.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := Response{Status: StatusServing}
	for _, name := range names {
		p := s.pingers[name]
		if p == nil {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			if resp.Checks == nil {
				resp.Checks = map[string]string{}
			}
			resp.Checks[name] = err.Error()
			resp.Status = StatusNotServing
		}
	}
	return resp
}

// ServeHTTP writes 200 when serving and 503 otherwise.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := s.Check(r.Context())
	code := http.StatusOK
	if resp.Status != StatusServing {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("health: write response: %v", err)
	}
}
