// Package client holds the view-state half of the application: remote
// snapshots, optimistic mutations, change-feed reconciliation, presence
// sync and catalog filtering. Each view keeps its own copy of the data
// and refreshes independently; there is no shared cache.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sharedcart/store"
)

// ItemStore is the remote boundary of the shopping-list view.
type ItemStore interface {
	ListItems(ctx context.Context) ([]store.ShoppingItem, error)
	GetItem(ctx context.Context, id string) (store.ShoppingItem, error)
	CreateItem(ctx context.Context, item store.ShoppingItem) (store.ShoppingItem, error)
	SetItemCompleted(ctx context.Context, id string, completed bool) error
	DeleteItem(ctx context.Context, id string) error
}

// ProductStore is the remote boundary of the catalog view.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]store.Product, error)
	CreateProduct(ctx context.Context, p store.Product) (store.Product, error)
	UpdateProduct(ctx context.Context, p store.Product) (store.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// AccountLister backs the superseded polling implementation of the
// online-user view.
type AccountLister interface {
	ListUsers(ctx context.Context) ([]store.Profile, error)
}

// Remote talks to the sharedcart REST API. It implements ItemStore,
// ProductStore and AccountLister.
type Remote struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewRemote(baseURL, token string) *Remote {
	return &Remote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    http.DefaultClient,
	}
}

// SignUp registers an account and returns the session. Provider error
// messages come back verbatim.
func (r *Remote) SignUp(ctx context.Context, email, password string) (store.Session, error) {
	var session store.Session
	err := r.do(ctx, http.MethodPost, "/api/auth/signup",
		map[string]string{"email": email, "password": password}, &session)
	return session, err
}

func (r *Remote) SignIn(ctx context.Context, email, password string) (store.Session, error) {
	var session store.Session
	err := r.do(ctx, http.MethodPost, "/api/auth/signin",
		map[string]string{"email": email, "password": password}, &session)
	return session, err
}

func (r *Remote) SignOut(ctx context.Context) error {
	return r.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
}

func (r *Remote) ListItems(ctx context.Context) ([]store.ShoppingItem, error) {
	var items []store.ShoppingItem
	err := r.do(ctx, http.MethodGet, "/api/items", nil, &items)
	return items, err
}

func (r *Remote) GetItem(ctx context.Context, id string) (store.ShoppingItem, error) {
	var item store.ShoppingItem
	err := r.do(ctx, http.MethodGet, "/api/items/get?id="+id, nil, &item)
	return item, err
}

func (r *Remote) CreateItem(ctx context.Context, item store.ShoppingItem) (store.ShoppingItem, error) {
	var created store.ShoppingItem
	err := r.do(ctx, http.MethodPost, "/api/items/create",
		map[string]string{"id": item.ID, "text": item.Text, "quantity": item.Quantity}, &created)
	return created, err
}

func (r *Remote) SetItemCompleted(ctx context.Context, id string, completed bool) error {
	return r.do(ctx, http.MethodPut, "/api/items/update",
		map[string]interface{}{"id": id, "completed": completed}, nil)
}

func (r *Remote) DeleteItem(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, "/api/items/delete?id="+id, nil, nil)
}

func (r *Remote) ListProducts(ctx context.Context) ([]store.Product, error) {
	var products []store.Product
	err := r.do(ctx, http.MethodGet, "/api/products", nil, &products)
	return products, err
}

func (r *Remote) CreateProduct(ctx context.Context, p store.Product) (store.Product, error) {
	var created store.Product
	err := r.do(ctx, http.MethodPost, "/api/products/create", p, &created)
	return created, err
}

func (r *Remote) UpdateProduct(ctx context.Context, p store.Product) (store.Product, error) {
	var updated store.Product
	err := r.do(ctx, http.MethodPut, "/api/products/update", p, &updated)
	return updated, err
}

func (r *Remote) DeleteProduct(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, "/api/products/delete?id="+id, nil, nil)
}

func (r *Remote) ListUsers(ctx context.Context) ([]store.Profile, error) {
	var profiles []store.Profile
	err := r.do(ctx, http.MethodGet, "/api/users", nil, &profiles)
	return profiles, err
}

func (r *Remote) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = resp.Status
		}
		// Surface the server's message verbatim; the auth form shows it
		// to the user unchanged.
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
		return fmt.Errorf("%s", msg)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
