package delivery_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xraph/usersync/config"
	"github.com/xraph/usersync/delivery"
	"github.com/xraph/usersync/id"
	"github.com/xraph/usersync/signature"
)

func newTestDelivery(body string) *delivery.Delivery {
	return &delivery.Delivery{
		ID:          id.NewDeliveryID(),
		Body:        []byte(body),
		Attempts:    1,
		MaxAttempts: 4,
	}
}

func senderConfig(url string) config.Config {
	cfg := config.Default()
	cfg.Endpoint = url
	cfg.ConnectTimeout = 2 * time.Second
	cfg.ReadTimeout = 2 * time.Second
	return cfg
}

func TestSenderHappyPath(t *testing.T) {
	var receivedHeaders http.Header
	var receivedBody string
	var receivedMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header
		receivedMethod = r.Method
		bodyBytes, _ := io.ReadAll(r.Body)
		receivedBody = string(bodyBytes)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := senderConfig(srv.URL)
	cfg.AuthToken = "secret-token"
	sender := delivery.NewSender(cfg, nil)
	defer sender.Close()

	del := newTestDelivery(`{"eventId":"e1"}`)
	result := sender.Send(context.Background(), del)

	if result.StatusCode != 200 || result.Error != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Response != `{"ok":true}` {
		t.Fatalf("unexpected response body %q", result.Response)
	}
	if receivedMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", receivedMethod)
	}
	if receivedBody != `{"eventId":"e1"}` {
		t.Fatalf("unexpected body %q", receivedBody)
	}

	wantHeaders := map[string]string{
		"Content-Type":            "application/json",
		"Accept":                  "application/json",
		"User-Agent":              delivery.UserAgent,
		"Authorization":           "Bearer secret-token",
		delivery.HeaderDeliveryID: del.ID.String(),
		delivery.HeaderAttempt:    "1",
	}
	for k, v := range wantHeaders {
		if got := receivedHeaders.Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
	if receivedHeaders.Get(signature.HeaderSignature) != "" {
		t.Error("signature header should be absent without a signing secret")
	}
}

func TestSenderAuthorizationOverridesStaticHeader(t *testing.T) {
	var auth, custom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		custom = r.Header.Get("X-Tenant")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := senderConfig(srv.URL)
	cfg.Headers = map[string]string{"Authorization": "static", "X-Tenant": "acme"}
	cfg.AuthType = config.AuthRaw
	cfg.AuthToken = "Token abc"

	delivery.NewSender(cfg, nil).Send(context.Background(), newTestDelivery(`{}`))

	if auth != "Token abc" {
		t.Fatalf("Authorization = %q, want configured token", auth)
	}
	if custom != "acme" {
		t.Fatalf("X-Tenant = %q, want acme", custom)
	}
}

func TestSenderStaticAuthorizationWithoutToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := senderConfig(srv.URL)
	cfg.Headers = map[string]string{"Authorization": "static"}

	delivery.NewSender(cfg, nil).Send(context.Background(), newTestDelivery(`{}`))

	if auth != "static" {
		t.Fatalf("Authorization = %q, want static header when no token", auth)
	}
}

func TestSenderSignsBody(t *testing.T) {
	const secret = "shhh"
	var sig, ts string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get(signature.HeaderSignature)
		ts = r.Header.Get(signature.HeaderTimestamp)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := senderConfig(srv.URL)
	cfg.SigningSecret = secret

	delivery.NewSender(cfg, nil).Send(context.Background(), newTestDelivery(`{"eventId":"e1"}`))

	parsed, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		t.Fatalf("bad timestamp header %q: %v", ts, err)
	}
	if !signature.Verify(body, secret, parsed, sig) {
		t.Fatal("signature does not verify")
	}
}

func TestSenderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	result := delivery.NewSender(senderConfig(srv.URL), nil).Send(context.Background(), newTestDelivery(`{}`))

	if result.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", result.StatusCode)
	}
	if result.OK() || result.Error == "" {
		t.Fatalf("non-2xx should be reported as an error: %+v", result)
	}
	if result.Response != "boom" {
		t.Fatalf("unexpected response %q", result.Response)
	}
}

func TestSenderResponseCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	result := delivery.NewSender(senderConfig(srv.URL), nil).Send(context.Background(), newTestDelivery(`{}`))

	if len(result.Response) != 1024 {
		t.Fatalf("expected response capped at 1024 bytes, got %d", len(result.Response))
	}
}

func TestSenderConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	result := delivery.NewSender(senderConfig(url), nil).Send(context.Background(), newTestDelivery(`{}`))

	if result.StatusCode != 0 || result.Error == "" {
		t.Fatalf("expected transport error, got %+v", result)
	}
}

func TestSenderReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	cfg := senderConfig(srv.URL)
	cfg.ReadTimeout = 100 * time.Millisecond

	start := time.Now()
	result := delivery.NewSender(cfg, nil).Send(context.Background(), newTestDelivery(`{}`))

	if result.Error == "" {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("read timeout not enforced, took %v", time.Since(start))
	}
}
