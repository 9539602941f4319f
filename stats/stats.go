package stats

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/skaes/vitals-reporter/logging"
	"github.com/skaes/vitals-reporter/util"
)

// Dropped is the transport label of deliveries no transport took.
const Dropped = "dropped"

var (
	// Statistics variables protected by a mutex.
	statsMutex        = &sync.Mutex{}
	processedCount    uint64
	processedBytes    uint64
	processedMaxBytes uint64
	httpFailures      uint64
	deliveredCount    uint64

	Registry = prometheus.NewRegistry()

	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitals_deliveries_total",
			Help: "Web vitals handed to a transport, by metric and transport.",
		},
		[]string{"metric", "transport"},
	)
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitals_relay_requests_total",
			Help: "Page reports received by the relay, by response code.",
		},
		[]string{"code"},
	)
)

func init() {
	Registry.MustRegister(deliveries)
	Registry.MustRegister(requests)
}

// Handler exposes the registry to Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// report number of processed requests every second
func StatsReporter(quiet bool) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for !util.Interrupted() {
		<-ticker.C
		// obtain values and reset counters
		statsMutex.Lock()
		count := processedCount
		bytes := processedBytes
		maxBytes := processedMaxBytes
		failures := httpFailures
		delivered := deliveredCount
		processedCount = 0
		processedBytes = 0
		processedMaxBytes = 0
		httpFailures = 0
		deliveredCount = 0
		statsMutex.Unlock()
		// report
		kb := float64(bytes) / 1024.0
		maxkb := float64(maxBytes) / 1024.0
		var avgkb float64
		if count > 0 {
			avgkb = kb / float64(count)
		}
		if !quiet {
			log.Info("processed %d, invalid %d, delivered %d, size: %.2f KB, avg: %.2f KB, max: %.2f", count, failures, delivered, kb, avgkb, maxkb)
		}
	}
}

// No thanks to https://github.com/golang/go/issues/19644, this is only an
// approximation of the actual number of bytes transferred.
func requestSize(r *http.Request) uint64 {
	size := uint64(len(r.URL.String()))
	for k, values := range r.Header {
		l := len(k)
		for _, v := range values {
			size += uint64(l + len(v) + 4) // k: v\r\n
		}
	}
	if r.ContentLength > 0 {
		size += uint64(r.ContentLength)
	}
	return size
}

func IncrementFailures() {
	statsMutex.Lock()
	defer statsMutex.Unlock()
	httpFailures++
}

func RecordRequestStats(r *http.Request) {
	size := requestSize(r)
	statsMutex.Lock()
	processedCount++
	processedBytes += size
	if processedMaxBytes < size {
		processedMaxBytes = size
	}
	statsMutex.Unlock()
}

// RecordResponse counts a relay response by status code.
func RecordResponse(code int) {
	requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

// RecordDelivery counts a metric of the given kind handed to transport via.
// An empty via counts as dropped.
func RecordDelivery(kind string, via string) {
	if via == "" {
		via = Dropped
	}
	deliveries.WithLabelValues(kind, via).Inc()
	statsMutex.Lock()
	deliveredCount++
	statsMutex.Unlock()
}
