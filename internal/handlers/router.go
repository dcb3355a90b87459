package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the HTTP surface. Channel names may contain slashes, so
// the channel segment matches greedily up to the final method segment.
func NewRouter(ch *ChannelHandler, dl *DownloadsHandler, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/channels/{channel:.+}/{method}", ch.HandleInvoke).Methods(http.MethodPost)
	r.HandleFunc("/downloads", dl.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/health", dl.HandleHealth).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
