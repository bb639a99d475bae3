package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"auth-service/internal/domain"

	"go.uber.org/zap"
)

// UserServiceClient talks to the user profile service. Profiles (username,
// email, active flag) live there; this service keeps only credentials.
type UserServiceClient interface {
	CreateUser(ctx context.Context, username, email string) (*domain.UserProfile, error)
	GetUserByID(ctx context.Context, userID int64) (*domain.UserProfile, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.UserProfile, error)
}

// Compile-time check to ensure implementation satisfies the interface.
var _ UserServiceClient = (*HTTPUserServiceClient)(nil)

type HTTPUserServiceClient struct {
	baseURL           string
	httpClient        *http.Client
	interServiceToken string
	logger            *zap.Logger
}

// NewHTTPUserServiceClient creates a new HTTP client for the user service.
func NewHTTPUserServiceClient(baseURL string, timeout time.Duration, interServiceToken string, logger *zap.Logger) *HTTPUserServiceClient {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &HTTPUserServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		interServiceToken: interServiceToken,
		logger:            logger.Named("HTTPUserServiceClient"),
	}
}

type userProfilePayload struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

func (p *userProfilePayload) toDomain() *domain.UserProfile {
	return &domain.UserProfile{
		UserID:   p.ID,
		Username: p.Username,
		Email:    p.Email,
		IsActive: p.IsActive,
	}
}

// CreateUser registers a profile with the user service.
func (c *HTTPUserServiceClient) CreateUser(ctx context.Context, username, email string) (*domain.UserProfile, error) {
	log := c.logger.With(zap.String("username", username))
	log.Debug("Creating user profile in user service")

	requestBody := struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}{
		Username: username,
		Email:    email,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create user request: %w", err)
	}

	endpointURL := c.baseURL + "/api/v1/users/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request for user service: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("User service unreachable", zap.Error(err))
		return nil, fmt.Errorf("user service request failed: %w", domain.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusConflict:
		return nil, domain.ErrRecordExists
	default:
		// Any other status is a retryable upstream fault.
		log.Error("User service rejected create request", zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("user service returned status %d: %w", resp.StatusCode, domain.ErrUpstreamUnavailable)
	}

	var payload userProfilePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Error("Failed to decode user service response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode user service response: %w", err)
	}

	log.Debug("User profile created", zap.Int64("user_id", payload.ID))
	return payload.toDomain(), nil
}

// GetUserByID fetches a profile by numeric id.
func (c *HTTPUserServiceClient) GetUserByID(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	endpointURL := c.baseURL + "/api/v1/users/" + strconv.FormatInt(userID, 10) + "/"
	return c.getProfile(ctx, endpointURL, zap.Int64("user_id", userID))
}

// GetUserByUsername fetches a profile by username.
func (c *HTTPUserServiceClient) GetUserByUsername(ctx context.Context, username string) (*domain.UserProfile, error) {
	endpointURL := c.baseURL + "/api/v1/users/username/" + url.PathEscape(username) + "/"
	return c.getProfile(ctx, endpointURL, zap.String("username", username))
}

func (c *HTTPUserServiceClient) getProfile(ctx context.Context, endpointURL string, field zap.Field) (*domain.UserProfile, error) {
	log := c.logger.With(field)
	log.Debug("Requesting user profile from user service")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request for user service: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("User service unreachable", zap.Error(err))
		return nil, fmt.Errorf("user service request failed: %w", domain.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrProfileNotFound
	default:
		// Any other status is a retryable upstream fault.
		log.Error("User service returned unexpected status", zap.Int("status_code", resp.StatusCode))
		return nil, fmt.Errorf("user service returned status %d: %w", resp.StatusCode, domain.ErrUpstreamUnavailable)
	}

	var payload userProfilePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		log.Error("Failed to decode user service response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode user service response: %w", err)
	}
	return payload.toDomain(), nil
}

func (c *HTTPUserServiceClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.interServiceToken != "" {
		req.Header.Set("X-Internal-Service-Token", c.interServiceToken)
	}
}
