package relayclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skaes/vitals-reporter/formats/webvitals"
	"github.com/skaes/vitals-reporter/util"
	"github.com/stretchr/testify/assert"
)

func TestSendingReport(t *testing.T) {
	report := &webvitals.PageReport{
		RouteId: "/home",
		Href:    "https://shop.example.com/home",
		Speed:   "4g",
		Metrics: []webvitals.Metric{{Id: "v1", Name: webvitals.FCP, Value: 842.3}},
	}

	for _, encoding := range []string{"", "snappy", "deflate"} {
		t.Run("encoding="+encoding, func(t *testing.T) {
			var received webvitals.PageReport
			var path, contentEncoding string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				contentEncoding = r.Header.Get("Content-Encoding")
				body, _ := io.ReadAll(r.Body)
				method, _ := util.ParseContentEncoding(contentEncoding)
				body, err := util.Decompress(body, method, 1<<20)
				assert.NoError(t, err)
				assert.NoError(t, json.Unmarshal(body, &received))
				w.WriteHeader(http.StatusAccepted)
			}))
			defer server.Close()

			c, err := New(server.URL, time.Second, encoding)
			assert.NoError(t, err)
			assert.NoError(t, c.Send(report))
			assert.Equal(t, "/vitals", path)
			assert.Equal(t, encoding, contentEncoding)
			assert.Equal(t, *report, received)
		})
	}
}

func TestSendingShortReportWithLZ4(t *testing.T) {
	var contentEncoding string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentEncoding = r.Header.Get("Content-Encoding")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c, err := New(server.URL, time.Second, "lz4")
	assert.NoError(t, err)
	assert.NoError(t, c.Send(&webvitals.PageReport{RouteId: "/"}))
	assert.Equal(t, "", contentEncoding, "short bodies are sent uncompressed")
}

func TestSendingReportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "400 RTFM", http.StatusBadRequest)
	}))
	defer server.Close()

	c, err := New(server.URL, time.Second, "")
	assert.NoError(t, err)
	err = c.Send(&webvitals.PageReport{})
	assert.EqualError(t, err, "unexpected response from relay: status: 400, msg: 400 RTFM\n")
}

func TestNewRejectsUnknownEncoding(t *testing.T) {
	_, err := New("http://127.0.0.1:9705", time.Second, "br")
	assert.Error(t, err)
}
