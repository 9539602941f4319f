package webvitals

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/form/v4"
)

// DefaultEndpoint is the collector all payloads are posted to unless
// configured otherwise.
const DefaultEndpoint = "https://vitals.vercel-insights.com/v1/vitals"

// ContentType of an encoded Payload. Beacon transports require it.
const ContentType = "application/x-www-form-urlencoded"

// Kind names one of the Core Web Vitals metrics.
type Kind string

const (
	// FID (First Input Delay) is a latency measurement in milliseconds
	FID Kind = "FID"
	// TTFB (Time To First Byte) is a latency measurement in milliseconds
	TTFB Kind = "TTFB"
	// LCP (Largest Contentful Paint) is a latency measurement in milliseconds
	LCP Kind = "LCP"
	// CLS (Cumulative Layout Shift) is a dimensionless score
	CLS Kind = "CLS"
	// FCP (First Contentful Paint) is a latency measurement in milliseconds
	FCP Kind = "FCP"
)

// Kinds lists every reported metric kind in registration order.
var Kinds = []Kind{FID, TTFB, LCP, CLS, FCP}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseKind converts a metric name to a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if !k.Valid() {
		return "", fmt.Errorf("unknown metric kind: %q", name)
	}
	return k, nil
}

// Metric represents a single measurement of a single metric.
type Metric struct {
	Id    string  `json:"id" mapstructure:"id"`
	Name  Kind    `json:"name" mapstructure:"name"`
	Value float64 `json:"value" mapstructure:"value"`
}

// PageReport is what a page posts to the relay: the page it was measured
// on and the metrics observed so far.
type PageReport struct {
	RouteId string   `json:"route_id" mapstructure:"route_id"`
	Href    string   `json:"href" mapstructure:"href"`
	Speed   string   `json:"speed" mapstructure:"speed"`
	Metrics []Metric `json:"metrics" mapstructure:"metrics"`
}

// Payload is the form sent to the collector for one metric.
type Payload struct {
	Dsn       string `json:"dsn" form:"dsn"`
	Id        string `json:"id" form:"id"`
	Page      string `json:"page" form:"page"`
	Href      string `json:"href" form:"href"`
	EventName string `json:"event_name" form:"event_name"`
	Value     string `json:"value" form:"value"`
	Speed     string `json:"speed" form:"speed"`
}

// fieldOrder is the order in which Encode emits the form fields: the order
// of the form tags on Payload.
var fieldOrder = formFields(reflect.TypeOf(Payload{}))

func formFields(t reflect.Type) []string {
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("form"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		fields = append(fields, name)
	}
	return fields
}

var encoder = form.NewEncoder()

// NewPayload builds the payload for metric m measured on page href of route
// routeId, to be accounted to analyticsId.
func NewPayload(m Metric, routeId, analyticsId, href, speed string) *Payload {
	return &Payload{
		Dsn:       analyticsId,
		Id:        m.Id,
		Page:      routeId,
		Href:      href,
		EventName: string(m.Name),
		Value:     FormatValue(m.Value),
		Speed:     speed,
	}
}

// FormatValue renders v in plain decimal notation, using the fewest digits
// that represent v exactly.
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Values returns the payload as form values.
func (p *Payload) Values() (url.Values, error) {
	return encoder.Encode(p)
}

// Encode returns the URL encoded form body. All fields are present, even
// when empty.
func (p *Payload) Encode() (string, error) {
	values, err := p.Values()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, k := range fieldOrder {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(values.Get(k)))
	}
	return b.String(), nil
}

// JSON renders the payload for humans.
func (p *Payload) JSON() string {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", *p)
	}
	return string(b)
}
