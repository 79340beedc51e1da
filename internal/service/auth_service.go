package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quickblog/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenIssuer = "quickblog"

// AdminClaims 是后台访问令牌携带的声明。
type AdminClaims struct {
	UserID uint `json:"uid"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates short-lived HS256 admin tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a TokenManager; ttl defaults to 12h.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for user and returns it with its expiry.
func (m *TokenManager) Issue(user db.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := AdminClaims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks signature, issuer and expiry.
func (m *TokenManager) Validate(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token is not valid", ErrUnauthorized)
	}
	return claims, nil
}

// AuthService 负责管理员登录与令牌校验。
type AuthService struct {
	db     *gorm.DB
	tokens *TokenManager
}

// NewAuthService creates an AuthService instance.
func NewAuthService(gdb *gorm.DB, tokens *TokenManager) *AuthService {
	return &AuthService{db: gdb, tokens: tokens}
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", time.Time{}, invalid("credentials", "username and password are required")
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", time.Time{}, ErrInvalidCredentials
		}
		return "", time.Time{}, storeError("lookup user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	return s.tokens.Issue(user)
}

// Authenticate validates the token and confirms its user still exists.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*AdminClaims, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	var user db.User
	if err := s.db.WithContext(ctx).Select("id", "username").First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %s no longer exists", ErrUnauthorized, strconv.FormatUint(uint64(claims.UserID), 10))
		}
		return nil, storeError("lookup user", err)
	}
	if user.Username != claims.Subject {
		return nil, fmt.Errorf("%w: token subject mismatch", ErrUnauthorized)
	}
	return claims, nil
}
