package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/line-llm-relay/middleware"
)

// OperatorRole is required on every admin route
const OperatorRole = "operator"

var (
	// ErrInvalidToken is returned when the token is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidIssuer is returned when the token issuer is invalid
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrMissingSecret is returned when no signing secret is configured
	ErrMissingSecret = errors.New("operator secret is not configured")
)

// OperatorClaims are the JWT claims carried by operator tokens
type OperatorClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// OperatorConfig holds configuration for OperatorValidator
type OperatorConfig struct {
	Secret string
	Issuer string
	// Leeway tolerates clock skew on exp/iat checks
	Leeway time.Duration
}

// OperatorValidator validates HS256 operator tokens for the admin endpoints
type OperatorValidator struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewOperatorValidator creates a new operator token validator
func NewOperatorValidator(config OperatorConfig) (*OperatorValidator, error) {
	if config.Secret == "" {
		return nil, ErrMissingSecret
	}
	return &OperatorValidator{
		secret: []byte(config.Secret),
		issuer: config.Issuer,
		leeway: config.Leeway,
		now:    time.Now,
	}, nil
}

// ValidateToken validates a token and returns the middleware claims
func (v *OperatorValidator) ValidateToken(ctx context.Context, tokenString string) (*middleware.Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*OperatorClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidIssuer, v.issuer, claims.Issuer)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	parsed := &middleware.Claims{
		Sub:   claims.Subject,
		Roles: claims.Roles,
		Iss:   claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		parsed.Exp = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		parsed.Iat = claims.IssuedAt.Unix()
	}

	return parsed, nil
}

// IssueToken signs a token for subject carrying the operator role
func (v *OperatorValidator) IssueToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}

	now := v.now()
	claims := &OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: []string{OperatorRole},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
