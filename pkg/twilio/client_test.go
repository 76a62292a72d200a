package twilio

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestSendSMSPostsFormWithBasicAuth(t *testing.T) {
	const expectedURL = "http://twilio.test/Accounts/AC123/Messages.json"
	respBody := `{"sid":"SM456","status":"queued"}`

	var capturedURL string
	var capturedForm string
	var capturedUser, capturedPass string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedUser, capturedPass, _ = req.BasicAuth()
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		capturedForm = string(bodyBytes)
		return &http.Response{
			StatusCode: http.StatusCreated,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("AC123", "token", "+15025550100",
		WithBaseURL("http://twilio.test"),
		WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.SendSMS(context.Background(), "+15025550123", "Your stall mats shipped")
	if err != nil {
		t.Fatalf("send sms: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedUser != "AC123" || capturedPass != "token" {
		t.Fatalf("basic auth not set")
	}
	if !strings.Contains(capturedForm, "From=%2B15025550100") || !strings.Contains(capturedForm, "To=%2B15025550123") {
		t.Fatalf("unexpected form body %q", capturedForm)
	}
	if result.SID != "SM456" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSendSMSValidatesInput(t *testing.T) {
	client, err := NewClient("AC123", "token", "+15025550100")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.SendSMS(context.Background(), "", "hi"); err == nil {
		t.Fatal("expected error for missing recipient")
	}
	if _, err := client.SendSMS(context.Background(), "+15025550123", ""); err == nil {
		t.Fatal("expected error for missing body")
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient("", "token", "+15025550100"); err == nil {
		t.Fatal("expected error for missing account sid")
	}
}
