package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/skaes/vitals-reporter/logging"
	"github.com/skaes/vitals-reporter/stats"
	"gopkg.in/tylerb/graceful.v1"
)

func setupHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/vitals", serveVitals)
	r.HandleFunc("/alive.txt", serveAlive)
	r.Handle("/metrics", stats.Handler())
	return r
}

func runWebServer(addr string) {
	log.Info("starting http server on %s", addr)
	srv := &graceful.Server{
		Timeout: 10 * time.Second,
		Server: &http.Server{
			Addr:    addr,
			Handler: setupHandler(),
		},
	}
	if opts.KeyFile != "" && opts.CertFile != "" {
		err := srv.ListenAndServeTLS(opts.CertFile, opts.KeyFile)
		if err != nil {
			log.Error("Cannot listen and serve TLS: %s", err)
		}
	} else if opts.KeyFile != "" {
		log.Error("cert-file given but no key-file!")
	} else if opts.CertFile != "" {
		log.Error("key-file given but no cert-file!")
	} else {
		err := srv.ListenAndServe()
		if err != nil {
			log.Error("Cannot listen and serve: %s", err)
		}
	}
}

func writeErrorResponse(w http.ResponseWriter, code int, txt string) {
	stats.IncrementFailures()
	stats.RecordResponse(code)
	http.Error(w, fmt.Sprintf("%d RTFM", code), code)
	fmt.Fprintln(w, txt)
}

func writeAcceptedResponse(w http.ResponseWriter) {
	stats.RecordResponse(http.StatusAccepted)
	w.Header().Set("Cache-Control", "private")
	w.WriteHeader(http.StatusAccepted)
}

func serveAlive(w http.ResponseWriter, r *http.Request) {
	defer stats.RecordRequestStats(r)
	w.Header().Set("Cache-Control", "private")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(200)
	io.WriteString(w, "ALIVE\n")
}
