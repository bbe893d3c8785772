package main

import (
	"encoding/json"
	"net/http"

	"github.com/periscope-sim/periscope/pkg/ingress"
	"github.com/periscope-sim/periscope/pkg/region"
)

type status struct {
	Agents  int    `json:"agents"`
	Clients int    `json:"clients"`
	Ticks   int64  `json:"ticks"`
	Paused  bool   `json:"paused"`
	Dropped int64  `json:"dropped"`
	Uptime  string `json:"uptime"`
}

// statusHandler reports on the region and lets operators pause and resume
// the simulation.
func statusHandler(sim *region.Region, wsIngress *ingress.WSIngress) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status{
			Agents:  sim.Store.Len(),
			Clients: wsIngress.NumClients(),
			Ticks:   sim.Scheduler.Ticks(),
			Paused:  sim.Scheduler.Paused(),
			Dropped: sim.Decoder.Dropped(),
			Uptime:  sim.Uptime().String(),
		})
	})

	mux.HandleFunc("/api/pause", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sim.Scheduler.Pause()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/api/resume", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sim.Scheduler.Resume()
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}
