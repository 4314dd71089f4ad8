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

	"github.com/google/uuid"
)

// ErrEmptyText rejects add-item submissions with no text.
var ErrEmptyText = errors.New("item text cannot be empty")

// ItemView keeps an ordered in-memory copy of the shopping list. It is
// synced three ways: an initial full fetch, change events from the feed,
// and a periodic fallback poll. Mutations patch local state optimistically
// before the remote call; the echoed change event and the optimistic patch
// may land in either order, so every application is an idempotent
// replacement keyed by id.
type ItemView struct {
	mu    sync.Mutex
	store ItemStore
	items []store.ShoppingItem

	sessionUserID string
	sessionEmail  string

	// Delay before a corrective re-fetch after a failed mutation.
	RefetchDelay time.Duration
}

func NewItemView(itemStore ItemStore, sessionUserID, sessionEmail string) *ItemView {
	return &ItemView{
		store:         itemStore,
		sessionUserID: sessionUserID,
		sessionEmail:  sessionEmail,
		RefetchDelay:  2 * time.Second,
	}
}

// Refresh replaces local state with a full remote snapshot.
func (v *ItemView) Refresh(ctx context.Context) error {
	items, err := v.store.ListItems(ctx)
	if err != nil {
		logger.Sugar.Errorf("Failed to refresh items: %v", err)
		return err
	}

	v.mu.Lock()
	v.items = items
	v.sortLocked()
	v.mu.Unlock()
	return nil
}

// Items returns a snapshot copy of the current list.
func (v *ItemView) Items() []store.ShoppingItem {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]store.ShoppingItem, len(v.items))
	copy(out, v.items)
	return out
}

// Add inserts the item locally, then sends it to the remote store. On
// failure the local insert is rolled back and a corrective re-fetch is
// scheduled; the caller surfaces the error to the user.
func (v *ItemView) Add(ctx context.Context, text, quantity string) (store.ShoppingItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.ShoppingItem{}, ErrEmptyText
	}

	item := store.ShoppingItem{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		Text:       text,
		Quantity:   strings.TrimSpace(quantity),
		UserID:     v.sessionUserID,
		OwnerEmail: v.sessionEmail,
	}

	v.mu.Lock()
	v.upsertLocked(item)
	v.mu.Unlock()

	created, err := v.store.CreateItem(ctx, item)
	if err != nil {
		logger.Sugar.Errorf("Failed to add item: %v", err)
		v.mu.Lock()
		v.removeLocked(item.ID)
		v.mu.Unlock()
		v.scheduleRefetch()
		return store.ShoppingItem{}, err
	}

	// Replace the optimistic entry with the canonical record (server
	// timestamp). The echoed INSERT event is a no-op by then.
	v.mu.Lock()
	v.upsertLocked(created)
	v.mu.Unlock()
	return created, nil
}

// Toggle flips an item's completion flag optimistically and sends the
// update. On failure the flip is reverted and a re-fetch scheduled.
func (v *ItemView) Toggle(ctx context.Context, id string) error {
	v.mu.Lock()
	idx := v.indexLocked(id)
	if idx < 0 {
		v.mu.Unlock()
		return errors.New("item not found")
	}
	v.items[idx].Completed = !v.items[idx].Completed
	completed := v.items[idx].Completed
	v.mu.Unlock()

	if err := v.store.SetItemCompleted(ctx, id, completed); err != nil {
		logger.Sugar.Errorf("Failed to toggle item %s: %v", id, err)
		v.mu.Lock()
		if idx := v.indexLocked(id); idx >= 0 {
			v.items[idx].Completed = !completed
		}
		v.mu.Unlock()
		v.scheduleRefetch()
		return err
	}
	return nil
}

// Delete removes the item locally, then remotely. If the remote delete
// fails, the item is restored in its original sort position.
func (v *ItemView) Delete(ctx context.Context, id string) error {
	v.mu.Lock()
	idx := v.indexLocked(id)
	if idx < 0 {
		v.mu.Unlock()
		return errors.New("item not found")
	}
	removed := v.items[idx]
	v.removeLocked(id)
	v.mu.Unlock()

	if err := v.store.DeleteItem(ctx, id); err != nil {
		logger.Sugar.Errorf("Failed to delete item %s: %v", id, err)
		// Re-inserting and re-sorting by creation time puts the item
		// back where it was.
		v.mu.Lock()
		v.upsertLocked(removed)
		v.mu.Unlock()
		v.scheduleRefetch()
		return err
	}
	return nil
}

// ApplyEvent reconciles one change-feed event into local state. Insert
// notifications re-fetch the full record (with the joined owner email)
// before applying; update and delete patch in place by id. Duplicate
// notifications are no-ops.
func (v *ItemView) ApplyEvent(ctx context.Context, msg socket.WSMessage) {
	if msg.Table != socket.TableItems {
		return
	}

	switch msg.Type {
	case socket.InsertType:
		var row store.ShoppingItem
		if err := json.Unmarshal(msg.Payload, &row); err != nil {
			logger.Sugar.Errorf("Bad insert payload: %v", err)
			return
		}
		full, err := v.store.GetItem(ctx, row.ID)
		if err != nil {
			// The poll will pick it up.
			logger.Sugar.Errorf("Failed to fetch inserted item %s: %v", row.ID, err)
			return
		}
		v.mu.Lock()
		v.upsertLocked(full)
		v.mu.Unlock()

	case socket.UpdateType:
		var row store.ShoppingItem
		if err := json.Unmarshal(msg.Payload, &row); err != nil {
			logger.Sugar.Errorf("Bad update payload: %v", err)
			return
		}
		v.mu.Lock()
		v.upsertLocked(row)
		v.mu.Unlock()

	case socket.DeleteType:
		var payload socket.DeletePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			logger.Sugar.Errorf("Bad delete payload: %v", err)
			return
		}
		v.mu.Lock()
		v.removeLocked(payload.ID)
		v.mu.Unlock()
	}
}

// StartPolling runs the periodic fallback poll until the returned stop
// function is called.
func (v *ItemView) StartPolling(interval time.Duration) (stop func()) {
	return startPoller(interval, func() {
		_ = v.Refresh(context.Background())
	})
}

func (v *ItemView) scheduleRefetch() {
	time.AfterFunc(v.RefetchDelay, func() {
		_ = v.Refresh(context.Background())
	})
}

func (v *ItemView) indexLocked(id string) int {
	for i := range v.items {
		if v.items[i].ID == id {
			return i
		}
	}
	return -1
}

// upsertLocked replaces an existing entry by id or inserts a new one,
// keeping creation-time order either way.
func (v *ItemView) upsertLocked(item store.ShoppingItem) {
	if idx := v.indexLocked(item.ID); idx >= 0 {
		v.items[idx] = item
	} else {
		v.items = append(v.items, item)
	}
	v.sortLocked()
}

func (v *ItemView) removeLocked(id string) {
	if idx := v.indexLocked(id); idx >= 0 {
		v.items = append(v.items[:idx], v.items[idx+1:]...)
	}
}

func (v *ItemView) sortLocked() {
	sort.SliceStable(v.items, func(i, j int) bool {
		if v.items[i].CreatedAt.Equal(v.items[j].CreatedAt) {
			return v.items[i].ID < v.items[j].ID
		}
		return v.items[i].CreatedAt.Before(v.items[j].CreatedAt)
	})
}
