package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// The CORE itself has no notion of callers (spec Non-goals exclude
// auth). The HTTP front door still needs to gate who may call
// create/update/reset/delete, the same problem the teacher solves with
// middleware/auth.go + utils/utils.go; bracketengine carries a single
// "organizer" role instead of the teacher's per-user role hierarchy,
// since there is no user/team model to hang richer roles off of.

const bcryptCost = 12

type contextKey string

const organizerContextKey contextKey = "organizer"

// HashPassword and CheckPassword mirror the teacher's utils.HashPassword
// / utils.CheckPasswordHash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(b), err
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticator issues and verifies organizer session tokens.
type Authenticator struct {
	secret       []byte
	passwordHash string
	tokenTTL     time.Duration
}

func NewAuthenticator(jwtSecret, organizerPasswordHash string) *Authenticator {
	return &Authenticator{secret: []byte(jwtSecret), passwordHash: organizerPasswordHash, tokenTTL: 24 * time.Hour}
}

// Login verifies the organizer password and issues a signed JWT, the
// same shape as the teacher's utils.GenerateJWT but with a single
// fixed role claim rather than a per-user one.
func (a *Authenticator) Login(password string) (string, error) {
	if !CheckPassword(password, a.passwordHash) {
		return "", errors.New("invalid credentials")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"role": "organizer",
		"iat":  now.Unix(),
		"exp":  now.Add(a.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Authenticate parses and validates the bearer token, attaching its
// claims to the request context, grounded on the teacher's
// middleware.Authenticate (middleware/auth.go).
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := extractBearerToken(r)
		if err != nil {
			unauthorizedResponse(w, "unauthorized: "+err.Error())
			return
		}
		if tokenString == "" {
			unauthorizedResponse(w, "unauthorized: no token provided")
			return
		}

		parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				unauthorizedResponse(w, "unauthorized: token expired")
			} else {
				unauthorizedResponse(w, "unauthorized: invalid token")
			}
			return
		}
		if !parsed.Valid {
			unauthorizedResponse(w, "unauthorized: invalid token")
			return
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			unauthorizedResponse(w, "unauthorized: invalid token claims")
			return
		}
		if _, ok := claims["role"]; !ok {
			unauthorizedResponse(w, "unauthorized: missing role claim")
			return
		}

		ctx := context.WithValue(r.Context(), organizerContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOrganizer rejects requests whose authenticated claims don't
// carry the organizer role, mirroring the teacher's Authorize.
func RequireOrganizer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(organizerContextKey).(jwt.MapClaims)
		if !ok {
			unauthorizedResponse(w, "unauthorized")
			return
		}
		if role, _ := claims["role"].(string); role != "organizer" {
			forbiddenResponse(w, "organizer privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) (string, error) {
	const bearerPrefix = "Bearer "
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimPrefix(header, bearerPrefix), nil
}
