// Package vitals forwards Core Web Vitals of a page view to a collector.
//
// Report subscribes one handler to every metric kind of a Source. Each
// metric the source hands over is turned into a payload and sent exactly
// once, preferring the page's beacon primitive over a plain request.
// Deliveries are fire-and-forget: failures are neither retried nor
// reported.
package vitals

import (
	"context"
	"fmt"

	"github.com/skaes/vitals-reporter/environment"
	"github.com/skaes/vitals-reporter/formats/webvitals"
	log "github.com/skaes/vitals-reporter/logging"
	"github.com/skaes/vitals-reporter/stats"
	"github.com/skaes/vitals-reporter/transport"
)

const logPrefix = "[Analytics]"

// ReportingContext identifies the page view metrics are reported for.
type ReportingContext struct {
	RouteId     string
	AnalyticsId string
	Debug       bool // log every delivery
}

// Handler receives metrics of a subscribed kind.
type Handler func(webvitals.Metric)

// Source hands out metrics as they become available.
type Source interface {
	Subscribe(kind webvitals.Kind, handler Handler) error
}

// Logger is the diagnostic channel of a Reporter.
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Opts configures a Reporter.
type Opts struct {
	Endpoint string             // defaults to webvitals.DefaultEndpoint
	Fallback transport.Strategy // used when the beacon primitive is unavailable
	Logger   Logger             // defaults to logging.Printer
}

// Reporter forwards the metrics of page views to the collector.
type Reporter struct {
	env       environment.Environment
	endpoint  string
	transport transport.Chain
	log       Logger
}

// New creates a reporter for pages described by env.
func New(env environment.Environment, opts Opts) *Reporter {
	if opts.Endpoint == "" {
		opts.Endpoint = webvitals.DefaultEndpoint
	}
	if opts.Logger == nil {
		opts.Logger = log.Printer{}
	}
	return &Reporter{
		env:      env,
		endpoint: opts.Endpoint,
		transport: transport.Chain{
			Preferred: transport.Beacon{Env: env},
			Fallback:  opts.Fallback,
		},
		log: opts.Logger,
	}
}

// Report subscribes to all metric kinds of source and delivers every metric
// it receives. Subscription errors and panics are logged and swallowed.
func (r *Reporter) Report(ctx context.Context, rc ReportingContext, source Source) {
	defer func() {
		if err := recover(); err != nil {
			r.log.Error("%s %v", logPrefix, err)
		}
	}()
	handler := func(m webvitals.Metric) {
		r.deliver(ctx, m, rc)
	}
	for _, kind := range webvitals.Kinds {
		if err := source.Subscribe(kind, handler); err != nil {
			r.log.Error("%s %s", logPrefix, err)
			return
		}
	}
}

func (r *Reporter) deliver(ctx context.Context, m webvitals.Metric, rc ReportingContext) {
	payload := webvitals.NewPayload(m, rc.RouteId, rc.AnalyticsId, r.env.CurrentURL(), r.env.ConnectionType())
	if rc.Debug {
		r.log.Info("%s %s %s", logPrefix, m.Name, payload.JSON())
	}
	body, err := payload.Encode()
	if err != nil {
		stats.RecordDelivery(string(m.Name), "")
		return
	}
	// Failed deliveries are lost silently, also in debug mode.
	via := r.transport.Send(ctx, r.endpoint, []byte(body))
	stats.RecordDelivery(string(m.Name), via)
}

// String describes the reporting context in log messages.
func (rc ReportingContext) String() string {
	return fmt.Sprintf("route=%q dsn=%q", rc.RouteId, rc.AnalyticsId)
}
