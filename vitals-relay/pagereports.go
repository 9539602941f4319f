package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/mitchellh/mapstructure"
	uuid "github.com/nu7hatch/gouuid"
	"github.com/skaes/vitals-reporter/environment"
	"github.com/skaes/vitals-reporter/formats/webvitals"
	log "github.com/skaes/vitals-reporter/logging"
	"github.com/skaes/vitals-reporter/stats"
	"github.com/skaes/vitals-reporter/transport"
	"github.com/skaes/vitals-reporter/util"
	"github.com/skaes/vitals-reporter/vitals"
	"golang.org/x/text/runes"
)

const (
	// limits for a single page report, before and after decompression
	maxBodySize         = 64 << 10
	maxDecompressedSize = 1 << 20
)

func serveVitals(w http.ResponseWriter, r *http.Request) {
	defer stats.RecordRequestStats(r)
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Can only POST to this resource")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	report, err := extractPageReport(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	reportPageView(r.Context(), report)
	writeAcceptedResponse(w)
}

func extractPageReport(r *http.Request) (*webvitals.PageReport, error) {
	method, err := util.ParseContentEncoding(r.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		return nil, err
	}
	body, err = util.Decompress(body, method, maxDecompressedSize)
	if err != nil {
		return nil, fmt.Errorf("could not decode request body: %s", err)
	}
	body = runes.ReplaceIllFormed().Bytes(body)
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("request body is not valid JSON: %s", err)
	}
	report := &webvitals.PageReport{}
	if err := mapstructure.Decode(data, report); err != nil {
		return nil, fmt.Errorf("malformed page report: %s", err)
	}
	for i := range report.Metrics {
		m := &report.Metrics[i]
		if _, err := webvitals.ParseKind(string(m.Name)); err != nil {
			return nil, err
		}
		if m.Id == "" {
			m.Id = newMetricId()
		}
	}
	return report, nil
}

var nowFunc = time.Now

// newMetricId creates an id of the form the web-vitals library uses:
// v<version>-<unix ms>-<unique number>.
func newMetricId() string {
	ms := strconv.FormatInt(nowFunc().UnixNano()/int64(time.Millisecond), 10)
	u, err := uuid.NewV4()
	if err != nil {
		return "v1-" + ms
	}
	return "v1-" + ms + "-" + u.String()
}

// reportPageView runs a reporter for the page view described by report and
// feeds it the reported metrics.
func reportPageView(ctx context.Context, report *webvitals.PageReport) {
	if analyticsId == "" {
		return
	}
	env := &environment.Static{URL: report.Href, Connection: report.Speed}
	if beacons != nil {
		env.Beacon = beacons
	}
	var fb transport.Strategy
	if fallback != nil {
		fb = fallback
	}
	reporter := vitals.New(env, vitals.Opts{Endpoint: endpoint, Fallback: fb})
	rc := vitals.ReportingContext{RouteId: report.RouteId, AnalyticsId: analyticsId, Debug: debug}
	if verbose {
		log.Info("page view %s: %s", rc, spew.Sdump(report))
	}
	page := vitals.NewPageView()
	reporter.Report(ctx, rc, page)
	for _, m := range report.Metrics {
		page.Emit(m)
	}
}
