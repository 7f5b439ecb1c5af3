package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"jobflow-backend/internal/config"
	"jobflow-backend/internal/models"
	"jobflow-backend/internal/timeutil"
)

type Claims struct {
	UserID      int      `json:"user_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	cfg *config.Config
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{cfg: cfg}
}

// GenerateToken creates a new JWT token for an actor
func (j *JWTManager) GenerateToken(actor *models.Actor) (string, error) {
	now := timeutil.Now()
	expirationTime := now.Add(time.Duration(j.cfg.JWT.ExpirationHours) * time.Hour)

	claims := &Claims{
		UserID:      actor.UserID,
		Email:       actor.Email,
		Role:        actor.Role,
		Permissions: actor.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.cfg.JWT.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.JWT.Secret))
}

// ValidateToken verifies a JWT token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(j.cfg.JWT.Secret), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// Actor converts validated claims into the caller of job operations.
// Tokens without explicit permissions get the defaults of their role.
func (c *Claims) Actor() *models.Actor {
	perms := c.Permissions
	if len(perms) == 0 {
		perms = PermissionsForRole(c.Role)
	}
	return &models.Actor{
		UserID:      c.UserID,
		Email:       c.Email,
		Role:        c.Role,
		Permissions: perms,
	}
}
