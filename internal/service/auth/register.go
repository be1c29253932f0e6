package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nikhil/chatgenius/internal/apperror"
	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/store"
)

const TokenTTL = 24 * time.Hour

type Store interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

type AuthService struct {
	Store  Store
	Secret []byte
	Log    *logger.Logger
	Now    func() time.Time
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(store Store, secret string, log *logger.Logger) *AuthService {
	return &AuthService{
		Store:  store,
		Secret: []byte(secret),
		Log:    log,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Signup registers a user and returns it with a fresh token.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (models.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return models.User{}, "", apperror.InvalidInput("Username, email and password are required")
	}

	if _, err := s.Store.GetUserByEmail(ctx, email); err == nil {
		return models.User{}, "", apperror.New(apperror.ErrConflict, "Email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, "", err
	}
	if _, err := s.Store.GetUserByUsername(ctx, username); err == nil {
		return models.User{}, "", apperror.New(apperror.ErrConflict, "Username already taken")
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, "", err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := s.Now()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		Status:       models.UserStatusOffline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.Store.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicate) {
		return models.User{}, "", apperror.New(apperror.ErrConflict, "Username or email already registered")
	}
	if err != nil {
		s.Log.Error("Failed to create user", "email", email, "error", err)
		return models.User{}, "", err
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return models.User{}, "", err
	}
	s.Log.Info("User registered", "user_id", user.ID)
	return user, token, nil
}

// Login authenticates a user by email.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	user, err := s.Store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, "", apperror.New(apperror.ErrUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return models.User{}, "", err
	}
	if user.PasswordHash == "" || CheckPassword(user.PasswordHash, password) != nil {
		return models.User{}, "", apperror.New(apperror.ErrUnauthorized, "Invalid email or password")
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// GenerateJWT creates a JWT token for authentication
func (s *AuthService) GenerateJWT(user models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":   user.Email,
		"user_id": user.ID,
		"exp":     s.Now().Add(TokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates an HS256 token and returns its user_id claim.
func (s *AuthService) ParseToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", apperror.New(apperror.ErrUnauthorized, "Invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperror.New(apperror.ErrUnauthorized, "Invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", apperror.New(apperror.ErrUnauthorized, "Invalid token claims")
	}
	return userID, nil
}
