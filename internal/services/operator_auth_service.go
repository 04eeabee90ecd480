package services

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/config"
	"github.com/staylane/reservation-backend/internal/models"
	"github.com/staylane/reservation-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// OperatorAuthService authenticates the operator console
type OperatorAuthService struct {
	config     config.OperatorConfig
	jwtService *jwt.Service
	logger     *logrus.Logger
}

// NewOperatorAuthService creates a new operator auth service
func NewOperatorAuthService(cfg config.OperatorConfig, jwtService *jwt.Service, logger *logrus.Logger) *OperatorAuthService {
	return &OperatorAuthService{
		config:     cfg,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login checks the operator credentials and returns an access token
func (s *OperatorAuthService) Login(email, password string) (*models.OperatorLoginResponse, error) {
	if s.config.Email == "" || s.config.PasswordHash == "" {
		s.logger.Warn("Operator login attempted but OPERATOR_EMAIL/OPERATOR_PASSWORD_HASH are not set")
		return nil, newError(KindInvalidCredentials, "Invalid email or password", nil)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(s.config.Email)) == 1

	// Always run bcrypt so a wrong email costs the same as a wrong password
	pwErr := bcrypt.CompareHashAndPassword([]byte(s.config.PasswordHash), []byte(password))
	if !emailMatch || pwErr != nil {
		s.logger.WithField("email", email).Warn("Operator login failed")
		return nil, newError(KindInvalidCredentials, "Invalid email or password", nil)
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(email, []string{models.OperatorRole})
	if err != nil {
		return nil, newError(KindInternal, "Failed to issue token", err)
	}

	s.logger.WithField("email", email).Info("Operator logged in")

	return &models.OperatorLoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}
