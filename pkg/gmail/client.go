package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/amberwayequine/crm-backend/pkg/errors"
)

const (
	defaultSendURL              = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"
	defaultTokenURL             = "https://oauth2.googleapis.com/token"
	responseBodyReadLimit int64 = 1024
)

var errCredentialsRequired = errors.New("gmail client id, secret, and refresh token are required")

// Client sends mail through the Gmail REST API using a stored OAuth
// refresh token. Access tokens are exchanged per send and cached until
// shortly before expiry.
type Client struct {
	httpClient   *http.Client
	sendURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string
	fromAddress  string

	// tokenMu guards the cached token; one client is shared by every
	// request handler.
	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
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

// WithEndpoints overrides the Gmail send and token URLs, used by tests.
func WithEndpoints(sendURL, tokenURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(sendURL) != "" {
			c.sendURL = strings.TrimSpace(sendURL)
		}
		if strings.TrimSpace(tokenURL) != "" {
			c.tokenURL = strings.TrimSpace(tokenURL)
		}
	}
}

// NewClient builds a Gmail sender from OAuth credentials.
func NewClient(clientID, clientSecret, refreshToken, fromAddress string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" || strings.TrimSpace(refreshToken) == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		sendURL:      defaultSendURL,
		tokenURL:     defaultTokenURL,
		clientID:     strings.TrimSpace(clientID),
		clientSecret: strings.TrimSpace(clientSecret),
		refreshToken: strings.TrimSpace(refreshToken),
		fromAddress:  strings.TrimSpace(fromAddress),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// SendRequest describes one outbound email.
type SendRequest struct {
	To      string
	Subject string
	Body    string
}

// SendResult carries the provider identifiers back to the caller.
type SendResult struct {
	MessageID string
	ThreadID  string
}

// Send delivers a plain-text email via the Gmail API.
func (c *Client) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gmail client not configured")
	}
	if strings.TrimSpace(req.To) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient address is required")
	}

	token, err := c.accessTokenFor(ctx)
	if err != nil {
		return nil, err
	}

	raw := c.encodeMessage(req)
	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal gmail send request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build gmail send request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute gmail send request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "gmail send failed")
	}

	var apiResp struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gmail send response")
	}

	return &SendResult{MessageID: apiResp.ID, ThreadID: apiResp.ThreadID}, nil
}

// FromAddress returns the configured sender address.
func (c *Client) FromAddress() string {
	if c == nil {
		return ""
	}
	return c.fromAddress
}

func (c *Client) encodeMessage(req SendRequest) string {
	var msg strings.Builder
	if c.fromAddress != "" {
		fmt.Fprintf(&msg, "From: %s\r\n", c.fromAddress)
	}
	fmt.Fprintf(&msg, "To: %s\r\n", req.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", req.Subject)
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(req.Body)
	return base64.URLEncoding.EncodeToString([]byte(msg.String()))
}

func (c *Client) accessTokenFor(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("refresh_token", c.refreshToken)
	form.Set("grant_type", "refresh_token")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build token request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute token request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "token refresh failed")
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode token response")
	}
	if tokenResp.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "token response missing access_token")
	}

	c.accessToken = tokenResp.AccessToken
	// renew a minute early so in-flight sends never race expiry
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}
