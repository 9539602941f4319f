package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ShowMax/go-fqdn"
	"github.com/jessevdk/go-flags"
	"github.com/skaes/vitals-reporter/beacon"
	"github.com/skaes/vitals-reporter/formats/webvitals"
	log "github.com/skaes/vitals-reporter/logging"
	"github.com/skaes/vitals-reporter/stats"
	"github.com/skaes/vitals-reporter/transport"
	"github.com/skaes/vitals-reporter/util"
)

var opts struct {
	Verbose     bool          `short:"v" long:"verbose" description:"be verbose"`
	Quiet       bool          `short:"q" long:"quiet" description:"be quiet"`
	BindIP      string        `short:"b" long:"bind-ip" env:"VITALS_BIND_IP" default:"127.0.0.1" description:"ip address to bind to"`
	InputPort   int           `short:"p" long:"input-port" default:"9705" description:"port number of http input socket"`
	CertFile    string        `short:"c" long:"cert-file" env:"VITALS_CERT_FILE" description:"certificate file to use"`
	KeyFile     string        `short:"k" long:"key-file" env:"VITALS_KEY_FILE" description:"key file to use"`
	AnalyticsId string        `short:"a" long:"analytics-id" env:"VERCEL_ANALYTICS_ID" description:"analytics id to report vitals for"`
	Endpoint    string        `short:"e" long:"endpoint" env:"VITALS_ENDPOINT" default:"https://vitals.vercel-insights.com/v1/vitals" description:"collector endpoint"`
	Timeout     time.Duration `short:"t" long:"timeout" default:"10s" description:"timeout for deliveries to the collector"`
	BeaconQueue int           `short:"Q" long:"beacon-queue" default:"10000" description:"size of the send-and-forget queue"`
	NoBeacon    bool          `short:"B" long:"no-beacon" description:"deliver with plain requests only"`
	Debug       bool          `short:"D" long:"debug" env:"VITALS_DEBUG" description:"log every delivery"`
}

var (
	verbose     bool
	quiet       bool
	debug       bool
	analyticsId string
	endpoint    string

	// beacons is nil when the send-and-forget queue is disabled.
	beacons  *beacon.Queue
	fallback *transport.HTTP
)

func initialize() {
	args, err := flags.ParseArgs(&opts, os.Args)
	if err != nil {
		e := err.(*flags.Error)
		if e.Type != flags.ErrHelp {
			fmt.Println(err)
		}
		os.Exit(1)
	}
	if len(args) > 1 {
		log.Error("%s: arguments are ignored, please use options instead.", args[0])
		os.Exit(1)
	}
	verbose = opts.Verbose
	quiet = opts.Quiet
	debug = opts.Debug
	analyticsId = opts.AnalyticsId
	endpoint = opts.Endpoint
	if endpoint == "" {
		endpoint = webvitals.DefaultEndpoint
	}
	if analyticsId == "" {
		log.Warn("no analytics id configured, page reports will not be forwarded")
	}
}

func setupTransports() {
	client := &http.Client{Timeout: opts.Timeout}
	fallback = transport.NewHTTP(client, opts.Timeout)
	if !opts.NoBeacon {
		beacons = beacon.New(beacon.Opts{
			QueueSize: opts.BeaconQueue,
			Client:    client,
		})
	}
}

func shutdownTransports(gracePeriod time.Duration) {
	if beacons != nil && beacons.Close(gracePeriod) {
		log.Warn("beacon queue could not be drained in %s", gracePeriod)
	}
	if fallback.Wait(gracePeriod) {
		log.Warn("fallback deliveries still in flight after %s", gracePeriod)
	}
}

func main() {
	log.Info("%s starting on %s", os.Args[0], fqdn.Get())
	initialize()
	log.Info("collector endpoint: %s", endpoint)
	util.InstallSignalHandler()
	go stats.StatsReporter(quiet)
	setupTransports()
	// Run web server in the foreground. It has its own signal handler.
	runWebServer(fmt.Sprintf("%s:%d", opts.BindIP, opts.InputPort))
	shutdownTransports(5 * time.Second)
	if !quiet {
		log.Info("shut down performed")
	}
}
