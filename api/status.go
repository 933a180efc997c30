// Copyright 2025 Cygnus Wealth
// This file is part of the evm-access-core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

// Package api exposes the HTTP status/health surface (SPEC_FULL §3): a
// JSON status endpoint reporting breaker and bulkhead stats and host
// process stats, wrapped in CORS and guarded by bearer-token auth when a
// secret is configured.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/cygnus-wealth/evm-access-core/breaker"
	"github.com/cygnus-wealth/evm-access-core/bulkhead"
	"github.com/cygnus-wealth/evm-access-core/health"
	"github.com/cygnus-wealth/evm-access-core/metrics"
)

// ProcessStats is the host-level snapshot included in the status payload,
// grounded on the teacher's metrics/cpu_enabled.go gopsutil usage.
type ProcessStats struct {
	CPUPercent float64 `json:"cpuPercent"`
	MemUsedMB  float64 `json:"memUsedMb"`
}

func currentProcessStats() ProcessStats {
	var stats ProcessStats
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemUsedMB = float64(vm.Used) / (1024 * 1024)
	}
	return stats
}

// StatusResponse is the JSON body served by /status.
type StatusResponse struct {
	Process   ProcessStats             `json:"process"`
	Breakers  []breaker.Stats          `json:"breakers"`
	Bulkheads []bulkhead.Stats         `json:"bulkheads"`
	Health    map[string]health.Status `json:"health"`
}

// Sources is the set of live stores handed to NewRouter; each is optional
// so a deployment without e.g. any bulkheads configured yet still serves a
// valid response. The status handler reads Breakers and Bulkheads only;
// Health and Metrics are not read, and the health map is always empty.
type Sources struct {
	Breakers  *breaker.Manager
	Bulkheads func() []*bulkhead.Bulkhead
	Health    *health.Monitor
	Metrics   *metrics.ProviderMetrics
}

// JWTAuth returns an httprouter-compatible middleware requiring a valid
// bearer token signed with secret.
func JWTAuth(secret []byte, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		header := r.Header.Get("Authorization")
		if len(header) < 8 || header[:7] != "Bearer " {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		token, err := jwt.Parse(header[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil })
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r, ps)
	}
}

// NewRouter builds the status/health HTTP surface, wrapped with permissive
// CORS (teacher's own RPC HTTP server uses rs/cors the same way for its
// JSON-RPC endpoint).
func NewRouter(src Sources, jwtSecret []byte) http.Handler {
	router := httprouter.New()

	statusHandler := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		resp := StatusResponse{Process: currentProcessStats(), Health: map[string]health.Status{}}
		if src.Breakers != nil {
			resp.Breakers = src.Breakers.AllStats()
		}
		if src.Bulkheads != nil {
			for _, bh := range src.Bulkheads() {
				resp.Bulkheads = append(resp.Bulkheads, bh.Stats())
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}

	healthHandler := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "time": time.Now().UTC()})
	}

	if len(jwtSecret) > 0 {
		router.GET("/status", JWTAuth(jwtSecret, statusHandler))
	} else {
		router.GET("/status", statusHandler)
	}
	router.GET("/healthz", healthHandler)

	return cors.New(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{http.MethodGet}}).Handler(router)
}
