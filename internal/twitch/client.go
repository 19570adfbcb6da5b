package twitch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/time/rate"
)

const (
	DefaultValidateURL    = "https://id.twitch.tv/oauth2/validate"
	DefaultChatMessageURL = "https://api.twitch.tv/helix/chat/messages"
)

// DefaultTokenURL is the provider token endpoint used for refresh-token
// exchanges.
var DefaultTokenURL = endpoints.Twitch.TokenURL

// ClientOption customizes Client creation.
type ClientOption func(*Client)

// Client talks to the identity provider and the chat API. Only the
// two-legged refresh-token flow is supported; there is no authorization-code
// handling here.
type Client struct {
	httpClient  *http.Client
	tokenURL    string
	validateURL string
	chatURL     string
	limiter     *rate.Limiter
}

// NewClient creates a provider client with sane defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		tokenURL:    DefaultTokenURL,
		validateURL: DefaultValidateURL,
		chatURL:     DefaultChatMessageURL,
		limiter:     rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// WithHTTPClient overrides the HTTP client used for outbound calls.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenURL overrides the token endpoint.
func WithTokenURL(tokenURL string) ClientOption {
	return func(c *Client) {
		if tokenURL != "" {
			c.tokenURL = tokenURL
		}
	}
}

// WithValidateURL overrides the token introspection endpoint.
func WithValidateURL(validateURL string) ClientOption {
	return func(c *Client) {
		if validateURL != "" {
			c.validateURL = validateURL
		}
	}
}

// WithChatURL overrides the chat message endpoint.
func WithChatURL(chatURL string) ClientOption {
	return func(c *Client) {
		if chatURL != "" {
			c.chatURL = chatURL
		}
	}
}

// WithSendRate overrides the outbound chat rate limit.
func WithSendRate(perSec float64, burst int) ClientOption {
	return func(c *Client) {
		if perSec > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// RefreshToken exchanges a refresh token for a fresh access token pair.
func (c *Client) RefreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return nil, fmt.Errorf("client credentials not configured")
	}

	data := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token refresh failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access token")
	}
	return &tokenResp, nil
}

// Validate introspects an access token and returns the owning user.
func (c *Client) Validate(ctx context.Context, accessToken string) (*ValidateResponse, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.validateURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create validate request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token validation failed with status %d: %s", resp.StatusCode, string(body))
	}

	var validateResp ValidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&validateResp); err != nil {
		return nil, fmt.Errorf("decode validate response: %w", err)
	}
	if validateResp.UserID == "" {
		return nil, fmt.Errorf("validate response missing user id")
	}
	return &validateResp, nil
}

// SendChatMessage posts a message to a broadcaster's chat. It waits on the
// outbound rate limiter before issuing the request.
func (c *Client) SendChatMessage(ctx context.Context, accessToken, clientID, broadcasterID, senderID, text string) error {
	if accessToken == "" {
		return fmt.Errorf("access token is required")
	}
	if broadcasterID == "" || senderID == "" {
		return fmt.Errorf("broadcaster and sender ids are required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limiter: %w", err)
	}

	payload, err := json.Marshal(chatMessageRequest{
		BroadcasterID: broadcasterID,
		SenderID:      senderID,
		Message:       text,
	})
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create chat request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Client-Id", clientID)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send chat message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat send failed with status %d: %s", resp.StatusCode, string(body))
	}

	log.WithFields(log.Fields{
		"request_id":  requestID,
		"broadcaster": broadcasterID,
		"sender":      senderID,
	}).Debug("chat message sent")
	return nil
}
