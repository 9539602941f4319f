package stats

import (
	"net/http/httptest"
	"strings"
	"testing"

	promclient "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	families, err := Registry.Gather()
	assert.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if matches(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(m *promclient.Metric, labels map[string]string) bool {
	for _, pair := range m.GetLabel() {
		if labels[pair.GetName()] != pair.GetValue() {
			return false
		}
	}
	return true
}

func TestRecordDelivery(t *testing.T) {
	before := counterValue(t, "vitals_deliveries_total", map[string]string{"metric": "LCP", "transport": "beacon"})
	RecordDelivery("LCP", "beacon")
	RecordDelivery("LCP", "")
	assert.Equal(t, before+1, counterValue(t, "vitals_deliveries_total", map[string]string{"metric": "LCP", "transport": "beacon"}))
	assert.True(t, counterValue(t, "vitals_deliveries_total", map[string]string{"metric": "LCP", "transport": Dropped}) >= 1)
}

func TestRecordRequestStats(t *testing.T) {
	r := httptest.NewRequest("POST", "/vitals", strings.NewReader("{}"))
	r.Header.Set("Content-Type", "application/json")
	statsMutex.Lock()
	processedCount, processedBytes, processedMaxBytes = 0, 0, 0
	statsMutex.Unlock()

	RecordRequestStats(r)

	statsMutex.Lock()
	defer statsMutex.Unlock()
	assert.Equal(t, uint64(1), processedCount)
	assert.Equal(t, requestSize(r), processedBytes)
	assert.Equal(t, processedBytes, processedMaxBytes)
}

func TestHandlerExposesCounters(t *testing.T) {
	RecordResponse(202)
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `vitals_relay_requests_total{code="202"}`)
}
