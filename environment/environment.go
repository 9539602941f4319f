// Package environment describes the page a metric was measured on and the
// delivery primitives it offers.
package environment

// UnknownConnection is reported when the effective connection type of the
// page is not known.
const UnknownConnection = "unknown"

// Environment gives access to the state of the page a reporter runs for.
type Environment interface {
	CurrentURL() string
	ConnectionType() string
	// TrySendBeacon queues body for sending to endpoint without waiting for
	// the result. It returns false when no send-and-forget primitive is
	// available or the primitive refused to queue the data.
	TrySendBeacon(endpoint string, body []byte) bool
}

// Beaconer is a send-and-forget primitive, see beacon.Queue.
type Beaconer interface {
	TrySend(endpoint string, body []byte) bool
}

// Static is an Environment with fixed values.
type Static struct {
	URL        string
	Connection string
	Beacon     Beaconer // nil when the page has no beacon primitive
}

func (s *Static) CurrentURL() string {
	return s.URL
}

func (s *Static) ConnectionType() string {
	if s.Connection == "" {
		return UnknownConnection
	}
	return s.Connection
}

func (s *Static) TrySendBeacon(endpoint string, body []byte) bool {
	if s.Beacon == nil {
		return false
	}
	return s.Beacon.TrySend(endpoint, body)
}
