package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skaes/vitals-reporter/beacon"
	"github.com/skaes/vitals-reporter/formats/webvitals"
	"github.com/skaes/vitals-reporter/relayclient"
	"github.com/skaes/vitals-reporter/transport"
	. "github.com/smartystreets/goconvey/convey"
)

type collector struct {
	mutex  sync.Mutex
	bodies []url.Values
	types  []string
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	values, _ := url.ParseQuery(string(body))
	c.mutex.Lock()
	c.bodies = append(c.bodies, values)
	c.types = append(c.types, r.Header.Get("Content-Type"))
	c.mutex.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (c *collector) received() []url.Values {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]url.Values{}, c.bodies...)
}

func TestRelay(t *testing.T) {
	report := &webvitals.PageReport{
		RouteId: "/home",
		Href:    "https://shop.example.com/home",
		Speed:   "4g",
		Metrics: []webvitals.Metric{
			{Id: "v1", Name: webvitals.FCP, Value: 842.3},
			{Id: "v2", Name: webvitals.CLS, Value: 0.05},
			{Id: "v3", Name: webvitals.FCP, Value: 900},
		},
	}

	Convey("relay", t, func() {
		c := &collector{}
		collectorServer := httptest.NewServer(c)
		defer collectorServer.Close()

		analyticsId = "ACCT123"
		endpoint = collectorServer.URL + "/v1/vitals"
		debug = false
		fallback = transport.NewHTTP(collectorServer.Client(), time.Second)
		beacons = beacon.New(beacon.Opts{Client: collectorServer.Client()})

		server := httptest.NewServer(setupHandler())
		defer server.Close()

		client, err := relayclient.New(server.URL, time.Second, "")
		So(err, ShouldBeNil)

		flush := func() {
			So(beacons.Close(time.Second), ShouldBeFalse)
			So(fallback.Wait(time.Second), ShouldBeFalse)
		}

		Convey("liveness handler", func() {
			res, err := server.Client().Get(server.URL + "/alive.txt")
			So(err, ShouldBeNil)
			So(res.StatusCode, ShouldEqual, 200)
			body, _ := io.ReadAll(res.Body)
			So(string(body), ShouldEqual, "ALIVE\n")
		})

		Convey("forwards one delivery per metric kind", func() {
			So(client.Send(report), ShouldBeNil)
			flush()

			bodies := c.received()
			So(bodies, ShouldHaveLength, 2)
			So(bodies[0], ShouldResemble, url.Values{
				"dsn":        {"ACCT123"},
				"id":         {"v1"},
				"page":       {"/home"},
				"href":       {"https://shop.example.com/home"},
				"event_name": {"FCP"},
				"value":      {"842.3"},
				"speed":      {"4g"},
			})
			So(bodies[1].Get("event_name"), ShouldEqual, "CLS")
			So(bodies[1].Get("value"), ShouldEqual, "0.05")
			So(c.types[0], ShouldEqual, "application/x-www-form-urlencoded")
		})

		Convey("accepts compressed reports", func() {
			snappyClient, err := relayclient.New(server.URL, time.Second, "snappy")
			So(err, ShouldBeNil)
			So(snappyClient.Send(report), ShouldBeNil)
			flush()
			So(c.received(), ShouldHaveLength, 2)
		})

		Convey("falls back to plain requests without beacon queue", func() {
			beacons.Close(time.Second)
			beacons = nil
			So(client.Send(report), ShouldBeNil)
			So(fallback.Wait(time.Second), ShouldBeFalse)
			So(c.received(), ShouldHaveLength, 2)
		})

		Convey("does not forward without analytics id", func() {
			analyticsId = ""
			So(client.Send(report), ShouldBeNil)
			flush()
			So(c.received(), ShouldHaveLength, 0)
		})

		Convey("rejects unknown metric kinds", func() {
			res, err := server.Client().Post(server.URL+"/vitals", "application/json",
				strings.NewReader(`{"route_id":"/","metrics":[{"id":"v1","name":"INP","value":1}]}`))
			So(err, ShouldBeNil)
			So(res.StatusCode, ShouldEqual, 400)
			body, _ := io.ReadAll(res.Body)
			So(string(body), ShouldContainSubstring, "400 RTFM")
			flush()
			So(c.received(), ShouldHaveLength, 0)
		})

		Convey("rejects GET requests", func() {
			res, err := server.Client().Get(server.URL + "/vitals")
			So(err, ShouldBeNil)
			So(res.StatusCode, ShouldEqual, 405)
		})

		Convey("exposes delivery statistics", func() {
			So(client.Send(report), ShouldBeNil)
			flush()
			res, err := server.Client().Get(server.URL + "/metrics")
			So(err, ShouldBeNil)
			body, _ := io.ReadAll(res.Body)
			So(string(body), ShouldContainSubstring, `vitals_deliveries_total{metric="FCP",transport="beacon"}`)
			So(string(body), ShouldContainSubstring, `vitals_relay_requests_total{code="202"}`)
		})
	})
}
