package relayclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/skaes/vitals-reporter/formats/webvitals"
	"github.com/skaes/vitals-reporter/util"
)

// Client provides a simple interface to send page reports to a
// vitals-relay endpoint.
type Client struct {
	url         string
	client      *http.Client
	compression uint8
}

// New creates a new Client instance. encoding names the content encoding
// used for request bodies, see util.ParseContentEncoding.
func New(uri string, timeout time.Duration, encoding string) (*Client, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	compression, err := util.ParseContentEncoding(encoding)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, "/vitals")
	c := Client{url: u.String(), compression: compression}
	c.client = &http.Client{Timeout: timeout}
	return &c, nil
}

// Send posts a page report to the relay.
func (c *Client) Send(report *webvitals.PageReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}
	// send uncompressed if compression does not pay off
	compression := c.compression
	if compressed, err := util.Compress(body, compression); err == nil {
		body = compressed
	} else {
		compression = util.NoCompression
	}
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if encoding := util.ContentEncoding(compression); encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}
	response, err := c.client.Do(req)
	if err != nil {
		return err
	}
	buf, _ := io.ReadAll(response.Body)
	response.Body.Close()
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("unexpected response from relay: status: %d, msg: %s", response.StatusCode, string(buf))
}
