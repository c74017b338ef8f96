package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seatrans/ferry-booking-backend/internal/config"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// IdentityService resolves user profiles from the external identity
// service. Booking only needs contact details for confirmations and the
// payment gateway, so a lookup failure degrades to a placeholder profile
// instead of failing the booking.
type IdentityService struct {
	config *config.IdentityConfig
	logger *logrus.Logger
	client *http.Client
}

// NewIdentityService creates a new identity service client
func NewIdentityService(cfg *config.IdentityConfig, logger *logrus.Logger) *IdentityService {
	return &IdentityService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetProfile fetches the profile for a user id. When no identity service is
// configured (local development) it returns a minimal profile.
func (s *IdentityService) GetProfile(userID string) (*models.UserProfile, error) {
	if s.config.BaseURL == "" {
		return &models.UserProfile{ID: userID, Name: "Passenger"}, nil
	}

	url := fmt.Sprintf("%s/api/v1/users/%s", s.config.BaseURL, userID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("X-API-Key", s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Identity service unreachable, using placeholder profile")
		return &models.UserProfile{ID: userID, Name: "Passenger"}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identity service returned %d: %s", resp.StatusCode, string(body))
	}

	var profile models.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if profile.ID == "" {
		profile.ID = userID
	}

	return &profile, nil
}
