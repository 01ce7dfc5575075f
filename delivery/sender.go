package delivery

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xraph/usersync/config"
	"github.com/xraph/usersync/signature"
)

const maxResponseBody = 1024 // 1KB cap on captured response body

// Request headers set on every attempt.
const (
	HeaderDeliveryID = "X-Usersync-Delivery-Id"
	HeaderAttempt    = "X-Usersync-Attempt"
	UserAgent        = "usersync/1.0"
)

// Sender performs HTTP delivery to a single configured endpoint.
type Sender struct {
	client   *http.Client
	endpoint string
	auth     string
	headers  map[string]string
	secret   string
	now      func() time.Time
}

// NewSender creates a sender for cfg. A nil client gets one built from the
// configured connect and read timeouts.
func NewSender(cfg config.Config, client *http.Client) *Sender {
	if client == nil {
		client = newHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout)
	}
	return &Sender{
		client:   client,
		endpoint: cfg.Endpoint,
		auth:     cfg.AuthType.Header(cfg.AuthToken),
		headers:  cfg.Headers,
		secret:   cfg.SigningSecret,
		now:      time.Now,
	}
}

// newHTTPClient bounds connection setup by connect and waiting for the
// response headers by read. The client timeout caps the whole exchange.
func newHTTPClient(connect, read time.Duration) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
	base.TLSHandshakeTimeout = connect
	base.ResponseHeaderTimeout = read

	return &http.Client{
		Transport: otelhttp.NewTransport(base),
		Timeout:   requestTimeout(connect, read),
	}
}

// requestTimeout is connect+read, saturating instead of wrapping negative.
func requestTimeout(connect, read time.Duration) time.Duration {
	if read > math.MaxInt64-connect {
		return math.MaxInt64
	}
	return connect + read
}

// Send posts the delivery body once and returns the result. A panic raised
// while sending is reported as a failed attempt.
func (s *Sender) Send(ctx context.Context, d *Delivery) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Error:     fmt.Sprintf("send panic: %v", r),
				LatencyMs: int(time.Since(start).Milliseconds()),
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(d.Body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}
	s.setHeaders(req, d)

	resp, err := s.client.Do(req) //nolint:gosec // G704: URL is the operator-configured sync endpoint.
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Result{
			Error:     err.Error(),
			LatencyMs: int(latency),
		}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read response: %v", readErr),
			LatencyMs:  int(latency),
		}
	}

	res = Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  int(latency),
	}
	if !res.OK() {
		res.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return res
}

// setHeaders applies fixed headers, then static headers, then Authorization,
// so a configured token always wins over a static header of the same name.
func (s *Sender) setHeaders(req *http.Request, d *Delivery) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(HeaderDeliveryID, d.ID.String())
	req.Header.Set(HeaderAttempt, strconv.Itoa(d.Attempts))

	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	if s.auth != "" {
		req.Header.Set("Authorization", s.auth)
	}

	if s.secret != "" {
		ts := s.now().Unix()
		req.Header.Set(signature.HeaderSignature, signature.Sign(d.Body, s.secret, ts))
		req.Header.Set(signature.HeaderTimestamp, strconv.FormatInt(ts, 10))
	}
}

// Close releases idle connections held by the transport.
func (s *Sender) Close() {
	s.client.CloseIdleConnections()
}
