package vitals

import (
	"fmt"
	"sync"

	"github.com/skaes/vitals-reporter/formats/webvitals"
)

// PageView is a Source for a single page view. Each kind is handed out at
// most once. Metrics emitted before their kind has a subscriber are kept
// and handed out on subscription.
type PageView struct {
	mutex    sync.Mutex
	handlers map[webvitals.Kind]Handler
	pending  map[webvitals.Kind]webvitals.Metric
	done     map[webvitals.Kind]bool
}

// NewPageView returns a page view without subscriptions or metrics.
func NewPageView() *PageView {
	return &PageView{
		handlers: make(map[webvitals.Kind]Handler),
		pending:  make(map[webvitals.Kind]webvitals.Metric),
		done:     make(map[webvitals.Kind]bool),
	}
}

// Subscribe registers handler for kind and hands it any metric of that kind
// emitted before.
func (p *PageView) Subscribe(kind webvitals.Kind, handler Handler) error {
	if !kind.Valid() {
		return fmt.Errorf("cannot subscribe to unknown metric kind: %q", kind)
	}
	if handler == nil {
		return fmt.Errorf("nil handler for metric kind %s", kind)
	}
	p.mutex.Lock()
	if _, found := p.handlers[kind]; found {
		p.mutex.Unlock()
		return fmt.Errorf("metric kind %s is already subscribed", kind)
	}
	p.handlers[kind] = handler
	m, buffered := p.pending[kind]
	if buffered {
		delete(p.pending, kind)
		p.done[kind] = true
	}
	p.mutex.Unlock()
	if buffered {
		handler(m)
	}
	return nil
}

// Emit hands m to the handler of its kind. It returns false if the kind is
// unknown or has already been handed out.
func (p *PageView) Emit(m webvitals.Metric) bool {
	if !m.Name.Valid() {
		return false
	}
	p.mutex.Lock()
	if p.done[m.Name] {
		p.mutex.Unlock()
		return false
	}
	handler := p.handlers[m.Name]
	if handler == nil {
		_, found := p.pending[m.Name]
		if !found {
			p.pending[m.Name] = m
		}
		p.mutex.Unlock()
		return !found
	}
	p.done[m.Name] = true
	p.mutex.Unlock()
	handler(m)
	return true
}
