package app

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"portfolio-rag/internal/pkg/jwtutil"
)

const RoleAdmin = "admin"

// AuthService signs in the single configured administrator. The password is
// stored only as a bcrypt hash.
type AuthService struct {
	adminUsername     string
	adminPasswordHash string
	jwtSecret         string
	jwtExpiration     time.Duration
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewAuthService(adminUsername, adminPasswordHash, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	if jwtExpiration <= 0 {
		jwtExpiration = 2 * time.Hour
	}
	return &AuthService{
		adminUsername:     adminUsername,
		adminPasswordHash: adminPasswordHash,
		jwtSecret:         jwtSecret,
		jwtExpiration:     jwtExpiration,
	}
}

func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}
	if s.adminUsername == "" || s.adminPasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if subtle.ConstantTimeCompare([]byte(username), []byte(s.adminUsername)) != 1 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, username, RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("issue token failed: %w", err)
	}
	return &AuthResult{Token: token, Username: username, ExpiresAt: time.Now().Add(s.jwtExpiration)}, nil
}

// HashPassword produces the value expected in auth.admin_password_hash.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password failed: %w", err)
	}
	return string(hash), nil
}
