package client

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"sharedcart/pkg/logger"
	"sharedcart/socket"
	"sharedcart/store"
)

// ErrEmptyName rejects product forms with no name.
var ErrEmptyName = errors.New("product name cannot be empty")

// ProductView keeps the loaded catalog and does all filtering client-side.
// Concurrent edits are last write wins on the remote store.
type ProductView struct {
	mu       sync.Mutex
	store    ProductStore
	products []store.Product
}

func NewProductView(productStore ProductStore) *ProductView {
	return &ProductView{store: productStore}
}

func (v *ProductView) Refresh(ctx context.Context) error {
	products, err := v.store.ListProducts(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to refresh products: %v", err)
		return err
	}

	v.mu.Lock()
	v.products = products
	v.sortLocked()
	v.mu.Unlock()
	return nil
}

func (v *ProductView) Products() []store.Product {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]store.Product, len(v.products))
	copy(out, v.products)
	return out
}

// Save submits the form: create when the product has no ID, update
// otherwise. Failures are returned for the form to alert on; local state
// only changes on success (the echoed event is then a no-op).
func (v *ProductView) Save(ctx context.Context, p store.Product) (store.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return store.Product{}, ErrEmptyName
	}

	var saved store.Product
	var err error
	if p.ID == "" {
		saved, err = v.store.CreateProduct(ctx, p)
	} else {
		saved, err = v.store.UpdateProduct(ctx, p)
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to save product: %v", err)
		return store.Product{}, err
	}

	v.mu.Lock()
	v.upsertLocked(saved)
	v.mu.Unlock()
	return saved, nil
}

// Delete removes the product remotely, then locally. The confirmation
// prompt belongs to the UI layer.
func (v *ProductView) Delete(ctx context.Context, id string) error {
	if err := v.store.DeleteProduct(ctx, id); err != nil {
		logger.Sugar.Errorf("Failed to delete product %s: %v", id, err)
		return err
	}

	v.mu.Lock()
	v.removeLocked(id)
	v.mu.Unlock()
	return nil
}

// Filter returns the products whose name or description contains query
// (case-insensitive) and whose category equals the filter exactly. Empty
// query or category means no restriction on that axis.
func (v *ProductView) Filter(query, category string) []store.Product {
	query = strings.ToLower(strings.TrimSpace(query))

	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]store.Product, 0, len(v.products))
	for _, p := range v.products {
		if category != "" && p.Category != category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Categories derives the filter dropdown from the currently loaded
// products: unique non-empty categories, sorted.
func (v *ProductView) Categories() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	seen := make(map[string]bool)
	var categories []string
	for _, p := range v.products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories
}

// ApplyEvent reconciles a products change event, idempotently by id.
// Inserts and updates both carry the full record, so no re-fetch is
// needed here.
func (v *ProductView) ApplyEvent(msg socket.WSMessage) {
	if msg.Table != socket.TableProducts {
		return
	}

	switch msg.Type {
	case socket.InsertType, socket.UpdateType:
		var row store.Product
		if err := json.Unmarshal(msg.Payload, &row); err != nil {
			logger.Sugar.Errorf("Bad product payload: %v", err)
			return
		}
		v.mu.Lock()
		v.upsertLocked(row)
		v.mu.Unlock()

	case socket.DeleteType:
		var payload socket.DeletePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			logger.Sugar.Errorf("Bad product delete payload: %v", err)
			return
		}
		v.mu.Lock()
		v.removeLocked(payload.ID)
		v.mu.Unlock()
	}
}

// StartPolling runs the periodic fallback poll until stopped.
func (v *ProductView) StartPolling(interval time.Duration) (stop func()) {
	return startPoller(interval, func() {
		_ = v.Refresh(context.Background())
	})
}

func (v *ProductView) indexLocked(id string) int {
	for i := range v.products {
		if v.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *ProductView) upsertLocked(p store.Product) {
	if idx := v.indexLocked(p.ID); idx >= 0 {
		v.products[idx] = p
	} else {
		v.products = append(v.products, p)
	}
	v.sortLocked()
}

func (v *ProductView) removeLocked(id string) {
	if idx := v.indexLocked(id); idx >= 0 {
		v.products = append(v.products[:idx], v.products[idx+1:]...)
	}
}

func (v *ProductView) sortLocked() {
	sort.SliceStable(v.products, func(i, j int) bool {
		if v.products[i].CreatedAt.Equal(v.products[j].CreatedAt) {
			return v.products[i].ID < v.products[j].ID
		}
		return v.products[i].CreatedAt.Before(v.products[j].CreatedAt)
	})
}
