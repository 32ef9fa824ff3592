package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindvibe/internal/models"
	"mindvibe/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and token validation.
type AuthService struct {
	userRepo      repositories.UserRepository
	jwtSecret     []byte
	tokenDuration time.Duration
	log           *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, log *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour,
		log:           log,
	}
}

// Claims is the identity carried by a validated token.
type Claims struct {
	UserID   string
	Username string
	IsStaff  bool
}

// RegisterUser hashes the password and saves the user. The profile row is
// created alongside it.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User) error {
	if existing, err := s.userRepo.GetByUsername(ctx, user.Username); err == nil && existing != nil {
		return fmt.Errorf("%w: username '%s' already taken", ErrConflict, user.Username)
	}
	if existing, err := s.userRepo.GetByEmail(ctx, user.Email); err == nil && existing != nil {
		return fmt.Errorf("%w: email '%s' already registered", ErrConflict, user.Email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID))
	return nil
}

// LoginUser authenticates a user and returns a signed JWT.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"is_staff": user.IsStaff,
		"exp":      now.Add(s.tokenDuration).Unix(),
		"iat":      now.Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		s.log.Debug("token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	userID, _ := mc["user_id"].(string)
	if userID == "" {
		return nil, errors.New("invalid token: missing user id")
	}
	username, _ := mc["username"].(string)
	isStaff, _ := mc["is_staff"].(bool)
	return &Claims{UserID: userID, Username: username, IsStaff: isStaff}, nil
}

// Profile returns the user with their checkout profile.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if user.Profile == nil {
		profile, err := s.userRepo.GetProfile(ctx, userID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		user.Profile = profile
	}
	return user, nil
}

// UpdateProfile saves the phone and address used to pre-fill checkout.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, phone, address string) (*models.UserProfile, error) {
	phone, address = strings.TrimSpace(phone), strings.TrimSpace(address)
	if len(phone) > 20 {
		return nil, validationError("phone must be at most 20 characters")
	}
	profile := &models.UserProfile{UserID: userID, Phone: phone, Address: address}
	if err := s.userRepo.UpdateProfile(ctx, profile); err != nil {
		return nil, mapRepositoryError(err)
	}
	return s.userRepo.GetProfile(ctx, userID)
}

// CheckoutPrefill builds the customer snapshot suggested at checkout.
func (s *AuthService) CheckoutPrefill(ctx context.Context, userID string) (*CustomerInfo, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := &CustomerInfo{FirstName: user.FirstName, LastName: user.LastName, Email: user.Email}
	if user.Profile != nil {
		info.Phone = user.Profile.Phone
		info.Address = user.Profile.Address
	}
	return info, nil
}
