package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.twilio.com/2010-04-01"
	responseBodyReadLimit int64 = 1024
)

var errCredentialsRequired = errors.New("twilio account sid, auth token, and phone number are required")

// Client posts outbound SMS through the Twilio Messages API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accountSID  string
	authToken   string
	phoneNumber string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Twilio API base URL, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Twilio client from account credentials.
func NewClient(accountSID, authToken, phoneNumber string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(accountSID) == "" || strings.TrimSpace(authToken) == "" || strings.TrimSpace(phoneNumber) == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     defaultBaseURL,
		accountSID:  strings.TrimSpace(accountSID),
		authToken:   strings.TrimSpace(authToken),
		phoneNumber: strings.TrimSpace(phoneNumber),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// SendResult carries the provider message identifier back to the caller.
type SendResult struct {
	SID    string
	Status string
}

// SendSMS delivers one text message from the configured business number.
func (c *Client) SendSMS(ctx context.Context, to, body string) (*SendResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "twilio client not configured")
	}
	if strings.TrimSpace(to) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient phone number is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	form := url.Values{}
	form.Set("From", c.phoneNumber)
	form.Set("To", strings.TrimSpace(to))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", strings.TrimRight(c.baseURL, "/"), url.PathEscape(c.accountSID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build twilio send request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute twilio send request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "twilio send failed")
	}

	var apiResp struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode twilio send response")
	}

	return &SendResult{SID: apiResp.SID, Status: apiResp.Status}, nil
}

// PhoneNumber returns the configured business number.
func (c *Client) PhoneNumber() string {
	if c == nil {
		return ""
	}
	return c.phoneNumber
}
