package expo_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// Expo token exchange endpoint
	TokenURL = "https://exp.host/--/api/v2/push/getExpoPushToken"

	// Default timeout
	DefaultTimeout = 30 * time.Second

	maxResponseSize = 1 << 20
)

// Client exchanges native device tokens for Expo push tokens
type Client struct {
	httpClient  *http.Client
	tokenURL    string
	accessToken string // Expo Access Token
}

// NewClient creates a new Expo client from config
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		tokenURL:    config.TokenURL,
		accessToken: config.AccessToken,
	}
}

// NewClientWithHTTPClient creates a client with a caller supplied http.Client
func NewClientWithHTTPClient(httpClient *http.Client, tokenURL, accessToken string) *Client {
	return &Client{
		httpClient:  httpClient,
		tokenURL:    tokenURL,
		accessToken: accessToken,
	}
}

// TokenRequest represents a getExpoPushToken request
type TokenRequest struct {
	Type        string `json:"type"`               // "apns" or "fcm"
	DeviceID    string `json:"deviceId,omitempty"` // Installation id
	Development bool   `json:"development"`        // APNs sandbox
	AppID       string `json:"appId"`              // Bundle identifier
	DeviceToken string `json:"deviceToken"`        // Native token
	ProjectID   string `json:"projectId"`          // EAS project id
}

// TokenResponse represents the response from the token API
type TokenResponse struct {
	Data *struct {
		ExpoPushToken string `json:"expoPushToken"`
	} `json:"data,omitempty"`
	Errors []APIError `json:"errors,omitempty"`
}

// APIError represents an API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetExpoPushToken exchanges a native device token for an Expo push token
func (c *Client) GetExpoPushToken(ctx context.Context, request *TokenRequest) (string, error) {
	if request == nil || request.DeviceToken == "" {
		return "", &TokenError{Code: CodeValidationError, Message: "device token is required"}
	}
	if request.ProjectID == "" {
		return "", &TokenError{Code: CodeValidationError, Err: ErrMissingProjectID}
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	// 添加 Access Token 认证（如果提供）
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	// Send request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TokenError{Code: CodeNetworkError, Message: "failed to send request", Err: err}
	}
	defer resp.Body.Close()

	// Read response
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &TokenError{Code: CodeNetworkError, Message: "failed to read response", StatusCode: resp.StatusCode, Err: err}
	}

	var tokenResponse TokenResponse
	parseErr := json.Unmarshal(body, &tokenResponse)

	// API level errors win over the status code when present
	if parseErr == nil && len(tokenResponse.Errors) > 0 {
		first := tokenResponse.Errors[0]
		code := first.Code
		if code == "" {
			code = statusCode(resp.StatusCode)
		}
		return "", &TokenError{Code: code, Message: first.Message, StatusCode: resp.StatusCode}
	}

	// Check status code
	if resp.StatusCode != http.StatusOK {
		return "", &TokenError{Code: statusCode(resp.StatusCode), Message: string(body), StatusCode: resp.StatusCode}
	}

	if parseErr != nil {
		return "", &TokenError{Code: CodeUnknown, Message: "failed to parse response", StatusCode: resp.StatusCode, Err: parseErr}
	}
	if tokenResponse.Data == nil || !ValidateToken(tokenResponse.Data.ExpoPushToken) {
		return "", &TokenError{Code: CodeUnknown, StatusCode: resp.StatusCode, Err: ErrInvalidToken}
	}

	return tokenResponse.Data.ExpoPushToken, nil
}

func statusCode(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return CodeTooManyRequests
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CodeUnauthorized
	case status == http.StatusNotFound:
		return CodeProjectNotFound
	case status >= 500:
		return CodeInternalServerError
	case status >= 400:
		return CodeValidationError
	default:
		return CodeUnknown
	}
}
