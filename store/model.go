package store

import "time"

// ShoppingItem is a row in the shared shopping list. OwnerEmail is
// denormalized from the profiles table on reads so views never need a
// second lookup.
type ShoppingItem struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Text       string    `json:"text"`
	Quantity   string    `json:"quantity"`
	UserID     string    `json:"user_id"`
	Completed  bool      `json:"completed"`
	OwnerEmail string    `json:"owner_email"`
}

// Product is a catalog entry. Price, Category and Description are optional.
type Product struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name"`
	Price       *float64  `json:"price,omitempty"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	UserID      string    `json:"user_id"`
}

// Profile is a registered account. The password hash never leaves the
// auth repository.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// OnlineUser is an ephemeral presence entry, derived from the presence
// channel (or from profile polling in the fallback path). It is never
// persisted.
type OnlineUser struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	OnlineAt time.Time `json:"online_at"`
	You      bool      `json:"you,omitempty"`
}

// Session is returned by sign-in and sign-up.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
