package devbackend

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster/console/internal/domain/entities"
)

// Claims represents the JWT claims
type Claims struct {
	UserID string        `json:"user_id"`
	Email  string        `json:"email"`
	Role   entities.Role `json:"role"`
	jwt.RegisteredClaims
}

const (
	ctxUserID = "user"
	ctxRole   = "user_role"
	ctxClaims = "claims"
)

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (b *Backend) issueToken(user *entities.User) (string, error) {
	now := b.now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "taskmaster-devbackend",
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(b.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// validateToken validates a JWT token and returns claims
func (b *Backend) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(b.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(b.now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if b.store.IsRevoked(claims.ID) {
		return nil, fmt.Errorf("token revoked")
	}
	return claims, nil
}

// credential reads the token from the Authorization header, then from the
// session cookie.
func credential(c echo.Context) string {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if token := strings.TrimPrefix(header, "Bearer "); token != header {
			return token
		}
		return ""
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// authMiddleware validates JWT tokens
func (b *Backend) authMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := credential(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing credentials")
			}

			claims, err := b.validateToken(token)
			if err != nil {
				b.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error": err.Error(),
				})
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			user, err := b.store.GetUser(claims.UserID)
			if err != nil || !user.IsActive {
				return echo.NewHTTPError(http.StatusUnauthorized, "Account unavailable")
			}

			c.Set(ctxUserID, user.ID)
			c.Set(ctxRole, user.Role)
			c.Set(ctxClaims, claims)
			return next(c)
		}
	}
}

// requireRole checks if user has required role
func (b *Backend) requireRole(roles ...entities.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := currentRole(c)
			for _, required := range roles {
				if role == required {
					return next(c)
				}
			}

			b.logger.LogSecurityEvent("insufficient_permissions", currentUserID(c), c.RealIP(), map[string]interface{}{
				"required_roles": roles,
				"user_role":      role,
				"endpoint":       c.Request().URL.Path,
			})
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}

func currentUserID(c echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}

func currentRole(c echo.Context) entities.Role {
	role, _ := c.Get(ctxRole).(entities.Role)
	return role
}

func tokenExpiry(c echo.Context) time.Time {
	claims, ok := c.Get(ctxClaims).(*Claims)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func tokenID(c echo.Context) string {
	claims, ok := c.Get(ctxClaims).(*Claims)
	if !ok {
		return ""
	}
	return claims.ID
}
