package repository

import (
	"database/sql"
	"time"

	"sharedcart/pkg/logger"
	"sharedcart/store"
)

type AuthRepository struct {
	DB *sql.DB
}

func NewAuthRepository(db *sql.DB) *AuthRepository {
	return &AuthRepository{DB: db}
}

func (r *AuthRepository) CreateProfile(id, email, passwordHash string) (time.Time, error) {
	var createdAt time.Time
	err := r.DB.QueryRow(`INSERT INTO profiles (id, email, password_hash, created_at, last_seen)
		VALUES ($1, $2, $3, NOW(), NOW()) RETURNING created_at`,
		id, email, passwordHash).Scan(&createdAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create profile for %s: %v", email, err)
	}
	return createdAt, err
}

func (r *AuthRepository) GetCredentials(email string) (string, string, error) {
	var id, passwordHash string
	err := r.DB.QueryRow("SELECT id, password_hash FROM profiles WHERE email = $1", email).
		Scan(&id, &passwordHash)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to get credentials for %s: %v", email, err)
	}
	return id, passwordHash, err
}

func (r *AuthRepository) GetProfile(userID string) (store.Profile, error) {
	var p store.Profile
	err := r.DB.QueryRow("SELECT id, email, created_at, last_seen FROM profiles WHERE id = $1", userID).
		Scan(&p.ID, &p.Email, &p.CreatedAt, &p.LastSeen)
	if err != nil {
		logger.Sugar.Errorf("Failed to get profile %s: %v", userID, err)
	}
	return p, err
}

// ListProfiles backs the polling fallback of the online-user view.
func (r *AuthRepository) ListProfiles() ([]store.Profile, error) {
	rows, err := r.DB.Query("SELECT id, email, created_at, last_seen FROM profiles ORDER BY email ASC")
	if err != nil {
		logger.Sugar.Errorf("Failed to list profiles: %v", err)
		return nil, err
	}
	defer rows.Close()

	var profiles []store.Profile
	for rows.Next() {
		var p store.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.CreatedAt, &p.LastSeen); err != nil {
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (r *AuthRepository) TouchLastSeen(userID string) error {
	_, err := r.DB.Exec("UPDATE profiles SET last_seen = NOW() WHERE id = $1", userID)
	if err != nil {
		logger.Sugar.Errorf("Failed to touch last_seen for %s: %v", userID, err)
	}
	return err
}
