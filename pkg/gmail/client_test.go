package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestSendExchangesTokenThenPosts(t *testing.T) {
	tokenBody := `{"access_token":"at-1","expires_in":3600}`
	sendBody := `{"id":"msg-1","threadId":"thr-1"}`

	var tokenCalls, sendCalls int
	var capturedAuth string
	var capturedRaw string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch req.URL.String() {
		case "http://gmail.test/token":
			tokenCalls++
			bodyBytes, _ := io.ReadAll(req.Body)
			if !strings.Contains(string(bodyBytes), "grant_type=refresh_token") {
				t.Fatalf("unexpected token form %q", string(bodyBytes))
			}
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(tokenBody)),
				Header:     http.Header{},
			}, nil
		case "http://gmail.test/send":
			sendCalls++
			capturedAuth = req.Header.Get("Authorization")
			var payload map[string]string
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				t.Fatalf("decode send payload: %v", err)
			}
			capturedRaw = payload["raw"]
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(sendBody)),
				Header:     http.Header{},
			}, nil
		default:
			t.Fatalf("unexpected request to %s", req.URL)
			return nil, nil
		}
	})

	client, err := NewClient("cid", "secret", "refresh", "info@amberwayequine.com",
		WithEndpoints("http://gmail.test/send", "http://gmail.test/token"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Send(context.Background(), SendRequest{
		To:      "jordan@riversidestables.com",
		Subject: "Quote for round pen panels",
		Body:    "Hi Jordan,",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if tokenCalls != 1 || sendCalls != 1 {
		t.Fatalf("expected one token and one send call, got %d/%d", tokenCalls, sendCalls)
	}
	if capturedAuth != "Bearer at-1" {
		t.Fatalf("unexpected auth header %q", capturedAuth)
	}
	decoded, err := base64.URLEncoding.DecodeString(capturedRaw)
	if err != nil {
		t.Fatalf("decode raw message: %v", err)
	}
	if !strings.Contains(string(decoded), "To: jordan@riversidestables.com") {
		t.Fatalf("raw message missing recipient: %s", decoded)
	}
	if result.MessageID != "msg-1" || result.ThreadID != "thr-1" {
		t.Fatalf("unexpected result %+v", result)
	}

	// second send reuses the cached token
	if _, err := client.Send(context.Background(), SendRequest{To: "jordan@riversidestables.com", Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if tokenCalls != 1 {
		t.Fatalf("expected cached token, got %d token calls", tokenCalls)
	}
}

func TestConcurrentSendsShareOneToken(t *testing.T) {
	var tokenCalls, sendCalls atomic.Int64

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch req.URL.String() {
		case "http://gmail.test/token":
			tokenCalls.Add(1)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"access_token":"at-1","expires_in":3600}`)),
				Header:     http.Header{},
			}, nil
		case "http://gmail.test/send":
			sendCalls.Add(1)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"id":"msg-1","threadId":"thr-1"}`)),
				Header:     http.Header{},
			}, nil
		default:
			return nil, fmt.Errorf("unexpected request to %s", req.URL)
		}
	})

	client, err := NewClient("cid", "secret", "refresh", "info@amberwayequine.com",
		WithEndpoints("http://gmail.test/send", "http://gmail.test/token"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, sendErr := client.Send(context.Background(), SendRequest{
				To:      "jordan@riversidestables.com",
				Subject: "Quote for round pen panels",
				Body:    "Hi Jordan,",
			})
			errs <- sendErr
		}()
	}
	wg.Wait()
	close(errs)

	for sendErr := range errs {
		if sendErr != nil {
			t.Fatalf("concurrent send: %v", sendErr)
		}
	}
	if got := sendCalls.Load(); got != workers {
		t.Fatalf("expected %d sends, got %d", workers, got)
	}
	if got := tokenCalls.Load(); got != 1 {
		t.Fatalf("expected a single token exchange, got %d", got)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient("cid", "", "refresh", ""); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
