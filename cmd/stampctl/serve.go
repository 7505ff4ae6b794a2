package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arloliu/stampdb"
	"github.com/arloliu/stampdb/export"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the database over HTTP",
	Long: `Serve the database over HTTP.

The storage core is single-threaded; the server linearizes all requests
through one lock, standing in for the SPSC queue an embedded deployment
would use between cores. Prometheus-format metrics are exposed on /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
}

// server wraps the handle with the single-caller lock the core requires.
type server struct {
	mu     sync.Mutex
	handle *stampdb.DB
}

type writeRequest struct {
	Series uint16  `json:"series"`
	TsMS   uint32  `json:"ts_ms"`
	Value  float32 `json:"value"`
}

type rowResponse struct {
	TsMS  uint32  `json:"ts_ms"`
	Value float32 `json:"value"`
}

func runServe(cmd *cobra.Command, _ []string) error {
	handle, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer handle.Close()

	srv := &server{handle: handle}
	srv.registerMetrics()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/api/write", srv.handleWrite)
	r.Post("/api/flush", srv.handleFlush)
	r.Post("/api/snapshot", srv.handleSnapshot)
	r.Get("/api/info", srv.handleInfo)
	r.Get("/api/series/{series}/latest", srv.handleLatest)
	r.Get("/api/series/{series}/range", srv.handleRange)
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	addr := viper.GetString("addr")
	log.Printf("stampctl serving on %s", addr)

	return http.ListenAndServe(addr, r)
}

// registerMetrics exposes the Info counters as Prometheus gauges.
func (s *server) registerMetrics() {
	gauge := func(name string, pick func(stampdb.Stats) uint32) {
		metrics.NewGauge(name, func() float64 {
			s.mu.Lock()
			defer s.mu.Unlock()
			return float64(pick(s.handle.Info()))
		})
	}

	gauge("stampdb_seg_seq_head", func(st stampdb.Stats) uint32 { return st.SegSeqHead })
	gauge("stampdb_seg_seq_tail", func(st stampdb.Stats) uint32 { return st.SegSeqTail })
	gauge("stampdb_blocks_written_total", func(st stampdb.Stats) uint32 { return st.BlocksWritten })
	gauge("stampdb_crc_errors_total", func(st stampdb.Stats) uint32 { return st.CRCErrors })
	gauge("stampdb_gc_warn_events_total", func(st stampdb.Stats) uint32 { return st.GCWarnEvents })
	gauge("stampdb_gc_busy_events_total", func(st stampdb.Stats) uint32 { return st.GCBusyEvents })
	gauge("stampdb_recovery_truncations_total", func(st stampdb.Stats) uint32 { return st.RecoveryTruncations })
	gauge("stampdb_quant_saturations_total", func(st stampdb.Stats) uint32 { return st.QuantSaturations })
}

func (s *server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	err := s.handle.Write(req.Series, req.TsMS, req.Value)
	s.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleFlush(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	err := s.handle.Flush()
	s.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	err := s.handle.SnapshotSave()
	s.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	stats := s.handle.Info()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (s *server) handleLatest(w http.ResponseWriter, r *http.Request) {
	series, err := parseSeries(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	ts, v, err := s.handle.QueryLatest(series)
	s.mu.Unlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rowResponse{TsMS: ts, Value: v})
}

func (s *server) handleRange(w http.ResponseWriter, r *http.Request) {
	series, err := parseSeries(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t0, err0 := parseMillis(r.URL.Query().Get("t0"), 0)
	t1, err1 := parseMillis(r.URL.Query().Get("t1"), 0xFFFFFFFF)
	if err0 != nil || err1 != nil {
		http.Error(w, "t0 and t1 must be u32 milliseconds", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := export.WriteNDJSON(w, s.handle, series, t0, t1); err != nil {
		log.Printf("range export aborted: %v", err)
	}
}

func parseSeries(r *http.Request) (uint16, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, "series"), 10, 16)
	if err != nil || v > 255 {
		return 0, fmt.Errorf("series must be 0..255")
	}

	return uint16(v), nil
}

func parseMillis(s string, def uint32) (uint32, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 32)

	return uint32(v), err
}
