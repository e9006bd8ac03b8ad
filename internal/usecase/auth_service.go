package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"groupbuy-backend/internal/domain"
)

type AuthService struct {
	Users     UserRepo
	JWTSecret string
	TokenTTL  time.Duration
}

// Identity is the verified content of a session token.
type Identity struct {
	UserID string
	Phone  string
	Role   domain.Role
}

func (s *AuthService) Register(ctx context.Context, phone, email, password string) (string, *domain.User, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || len(password) < 6 {
		return "", nil, ErrBadRequest("phone and a password of at least 6 characters are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:           newID(),
		Phone:        phone,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return "", nil, ErrConflict("phone already registered")
		}
		return "", nil, err
	}
	tok, err := s.Issue(u)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

func (s *AuthService) Login(ctx context.Context, phone, password string) (string, *domain.User, error) {
	u, ok, err := s.Users.GetUserByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return "", nil, err
	}
	if !ok || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrUnauthorized("invalid phone or password")
	}
	tok, err := s.Issue(u)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

func (s *AuthService) Issue(u *domain.User) (string, error) {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	claims := jwt.MapClaims{
		"user_id": u.ID,
		"phone":   u.Phone,
		"role":    string(u.Role),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.JWTSecret))
}

func (s *AuthService) Verify(token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(s.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Identity{}, ErrUnauthorized("invalid token")
	}
	m, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrUnauthorized("invalid claims")
	}
	uid, _ := m["user_id"].(string)
	phone, _ := m["phone"].(string)
	role, _ := m["role"].(string)
	if uid == "" {
		return Identity{}, ErrUnauthorized("invalid claims")
	}
	return Identity{UserID: uid, Phone: phone, Role: domain.Role(role)}, nil
}
