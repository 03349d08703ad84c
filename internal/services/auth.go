package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/trainingportal-backend/internal/platform/ctxutil"
	"github.com/yungbote/trainingportal-backend/internal/platform/logger"
)

// Claims are issued by the portal's identity service; this backend only verifies them.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	// SetContextFromToken verifies an HS256 access token and attaches the caller to ctx.
	SetContextFromToken(ctx context.Context, token string) (context.Context, error)
	// IssueToken signs a token for userID. Used by tooling and tests.
	IssueToken(userID uuid.UUID, roles []string, ttl time.Duration) (string, error)
}

type authService struct {
	log    *logger.Logger
	secret []byte
	issuer string
	now    func() time.Time
}

func NewAuthService(baseLog *logger.Logger, secret, issuer string) (AuthService, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET_KEY is required")
	}
	return &authService{
		log:    baseLog.With("service", "AuthService"),
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	if token == "" {
		return ctx, ErrUnauthenticated
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(as.now),
	}
	if as.issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return as.secret, nil
	}, opts...)
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return ctx, errors.New("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return ctx, fmt.Errorf("invalid subject in token")
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: userID, Roles: claims.Roles}), nil
}

func (as *authService) IssueToken(userID uuid.UUID, roles []string, ttl time.Duration) (string, error) {
	now := as.now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    as.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.secret)
}
