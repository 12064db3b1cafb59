package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
)

// MinPasswordLength is enforced when passwords are set.
const MinPasswordLength = 8

// Claims is the JWT payload carried by every authenticated request.
type Claims struct {
	UserID  string      `json:"uid"`
	Role    models.Role `json:"role"`
	HotelID string      `json:"hotel_id,omitempty"`
	jwt.StandardClaims
}

// UserObjectID returns the caller id.
func (c *Claims) UserObjectID() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(c.UserID)
	return id
}

// HotelObjectID returns the hotel the caller is pinned to, if any.
func (c *Claims) HotelObjectID() *primitive.ObjectID {
	if c.HotelID == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(c.HotelID)
	if err != nil {
		return nil
	}
	return &id
}

// HasRole reports whether the caller holds one of roles.
func (c *Claims) HasRole(roles ...models.Role) bool {
	for _, role := range roles {
		if c.Role == role {
			return true
		}
	}
	return false
}

// UserFinder is the lookup the login flow needs.
type UserFinder interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Service issues and validates bearer tokens.
type Service struct {
	users  UserFinder
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds the auth service. ttl is the lifetime of issued tokens.
func NewService(users UserFinder, secret string, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// Login checks credentials and returns a signed token. Unknown emails, wrong passwords and
// disabled users all fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.Active {
		s.logger.Info("login refused for disabled user", zap.String("user_id", user.ID.Hex()))
		return nil, models.ErrInvalidCredentials
	}
	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	token, expiresAt, err := s.IssueToken(*user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID.Hex()), zap.String("role", string(user.Role)))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

// IssueToken signs an HS256 token for user.
func (s *Service) IssueToken(user models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		UserID: user.ID.Hex(),
		Role:   user.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}
	if user.HotelID != nil {
		claims.HotelID = user.HotelID.Hex()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates signature and expiry and returns the claims.
func (s *Service) ParseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("parse token: invalid claims")
	}
	if !claims.Role.IsValid() {
		return nil, fmt.Errorf("parse token: unknown role %q", claims.Role)
	}
	return claims, nil
}

// HashPassword bcrypt-hashes a plain password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", models.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword checks password against a bcrypt hash.
func ComparePassword(hashed, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
}
