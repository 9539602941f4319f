// Package beacon implements a send-and-forget delivery queue. Callers hand
// over a body and return immediately; a single sender go routine posts the
// queued bodies. Bodies still queued when the queue is closed are sent
// before Close returns, so deliveries survive the teardown of whatever
// queued them.
package beacon

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/skaes/vitals-reporter/formats/webvitals"
	"github.com/skaes/vitals-reporter/util"
)

const DefaultQueueSize = 10000

type Opts struct {
	QueueSize   int
	Client      *http.Client
	ContentType string
}

type Queue struct {
	opts    Opts
	channel chan *beaconMsg
	mutex   sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
}

type beaconMsg struct {
	endpoint string
	body     []byte
}

func New(opts Opts) *Queue {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.ContentType == "" {
		opts.ContentType = webvitals.ContentType
	}
	q := &Queue{opts: opts}
	q.channel = make(chan *beaconMsg, opts.QueueSize)
	q.wg.Add(1)
	go q.send()
	return q
}

// TrySend queues body for delivery to endpoint. It never blocks and returns
// false if the queue is full or closed.
func (q *Queue) TrySend(endpoint string, body []byte) bool {
	q.mutex.RLock()
	defer q.mutex.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.channel <- &beaconMsg{endpoint: endpoint, body: body}:
		return true
	default:
		return false
	}
}

// Close stops accepting bodies and waits for the queued ones to be sent.
// It returns true if waiting timed out.
func (q *Queue) Close(timeout time.Duration) bool {
	q.mutex.Lock()
	if !q.closed {
		q.closed = true
		close(q.channel)
	}
	q.mutex.Unlock()
	return util.WaitForWaitGroupWithTimeout(&q.wg, timeout)
}

func (q *Queue) send() {
	defer q.wg.Done()
	for msg := range q.channel {
		q.post(msg)
	}
}

func (q *Queue) post(msg *beaconMsg) {
	req, err := http.NewRequest(http.MethodPost, msg.endpoint, bytes.NewReader(msg.body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", q.opts.ContentType)
	res, err := q.opts.Client.Do(req)
	if err != nil {
		return
	}
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
}
