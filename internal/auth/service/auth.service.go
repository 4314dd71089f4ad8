package service

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"sharedcart/internal/auth/repository"
	"sharedcart/middleware"
	"sharedcart/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
)

type AuthService struct {
	Repo      *repository.AuthRepository
	JWTSecret string
	TokenTTL  time.Duration
}

func NewAuthService(repo *repository.AuthRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{Repo: repo, JWTSecret: jwtSecret, TokenTTL: tokenTTL}
}

func (s *AuthService) SignUp(email, password string) (store.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return store.Session{}, errors.New("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return store.Session{}, err
	}

	userID := uuid.NewString()
	if _, err := s.Repo.CreateProfile(userID, email, string(hash)); err != nil {
		// 23505 is unique_violation; email is the only unique column.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return store.Session{}, ErrEmailTaken
		}
		return store.Session{}, err
	}

	return s.issueSession(userID, email)
}

func (s *AuthService) SignIn(email, password string) (store.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	userID, hash, err := s.Repo.GetCredentials(email)
	if err == sql.ErrNoRows {
		return store.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.Session{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return store.Session{}, ErrInvalidCredentials
	}

	return s.issueSession(userID, email)
}

// SignOut is stateless; the token simply stops being presented. Stamping
// last_seen keeps the polling presence fallback honest.
func (s *AuthService) SignOut(userID string) error {
	return s.Repo.TouchLastSeen(userID)
}

func (s *AuthService) CurrentUser(userID string) (store.Profile, error) {
	return s.Repo.GetProfile(userID)
}

func (s *AuthService) ListUsers() ([]store.Profile, error) {
	return s.Repo.ListProfiles()
}

func (s *AuthService) issueSession(userID, email string) (store.Session, error) {
	expiresAt := time.Now().Add(s.TokenTTL)
	claims := middleware.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.JWTSecret))
	if err != nil {
		return store.Session{}, err
	}
	return store.Session{Token: token, UserID: userID, Email: email, ExpiresAt: expiresAt}, nil
}
