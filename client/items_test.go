package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"sharedcart/pkg/logger"
	"sharedcart/socket"
	"sharedcart/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

// fakeItemStore is an in-memory ItemStore with switchable failures.
type fakeItemStore struct {
	mu         sync.Mutex
	items      map[string]store.ShoppingItem
	failCreate bool
	failUpdate bool
	failDelete bool
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: make(map[string]store.ShoppingItem)}
}

func (f *fakeItemStore) ListItems(ctx context.Context) ([]store.ShoppingItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.ShoppingItem, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeItemStore) GetItem(ctx context.Context, id string) (store.ShoppingItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	if !ok {
		return store.ShoppingItem{}, errors.New("not found")
	}
	return it, nil
}

func (f *fakeItemStore) CreateItem(ctx context.Context, item store.ShoppingItem) (store.ShoppingItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return store.ShoppingItem{}, errors.New("insert failed")
	}
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeItemStore) SetItemCompleted(ctx context.Context, id string, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return errors.New("update failed")
	}
	it := f.items[id]
	it.Completed = completed
	f.items[id] = it
	return nil
}

func (f *fakeItemStore) DeleteItem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errors.New("delete failed")
	}
	delete(f.items, id)
	return nil
}

func seededItem(id, text string, createdAt time.Time) store.ShoppingItem {
	return store.ShoppingItem{
		ID:         id,
		CreatedAt:  createdAt,
		Text:       text,
		UserID:     "other-user",
		OwnerEmail: "other@example.com",
	}
}

func TestAddItemWithEmptyQuantity(t *testing.T) {
	fake := newFakeItemStore()
	view := NewItemView(fake, "user1", "alice@example.com")

	item, err := view.Add(context.Background(), "Milk", "")
	require.NoError(t, err)

	items := view.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].Text)
	assert.Equal(t, "", items[0].Quantity)
	assert.Equal(t, "user1", items[0].UserID)
	assert.Equal(t, "alice@example.com", items[0].OwnerEmail)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestAddItemRejectsEmptyText(t *testing.T) {
	fake := newFakeItemStore()
	view := NewItemView(fake, "user1", "alice@example.com")

	_, err := view.Add(context.Background(), "   ", "2")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Empty(t, view.Items())
}

func TestAddItemRollsBackOnFailure(t *testing.T) {
	fake := newFakeItemStore()
	fake.failCreate = true
	view := NewItemView(fake, "user1", "alice@example.com")
	view.RefetchDelay = time.Hour // keep the corrective re-fetch out of this test

	_, err := view.Add(context.Background(), "Milk", "")
	require.Error(t, err)
	assert.Empty(t, view.Items(), "Failed add should leave no optimistic leftover")
}

func TestToggleTwiceRestoresState(t *testing.T) {
	fake := newFakeItemStore()
	fake.items["a"] = seededItem("a", "Bread", time.Now())
	view := NewItemView(fake, "user1", "alice@example.com")
	require.NoError(t, view.Refresh(context.Background()))

	require.NoError(t, view.Toggle(context.Background(), "a"))
	assert.True(t, view.Items()[0].Completed)

	require.NoError(t, view.Toggle(context.Background(), "a"))
	assert.False(t, view.Items()[0].Completed)
}

func TestToggleRevertsOnFailure(t *testing.T) {
	fake := newFakeItemStore()
	fake.items["a"] = seededItem("a", "Bread", time.Now())
	view := NewItemView(fake, "user1", "alice@example.com")
	view.RefetchDelay = time.Hour
	require.NoError(t, view.Refresh(context.Background()))

	fake.failUpdate = true
	require.Error(t, view.Toggle(context.Background(), "a"))
	assert.False(t, view.Items()[0].Completed, "Failed toggle must revert")
}

func TestDeleteFailureRestoresSortPosition(t *testing.T) {
	fake := newFakeItemStore()
	base := time.Now()
	fake.items["a"] = seededItem("a", "Apples", base)
	fake.items["b"] = seededItem("b", "Bread", base.Add(time.Minute))
	fake.items["c"] = seededItem("c", "Cheese", base.Add(2*time.Minute))

	view := NewItemView(fake, "user1", "alice@example.com")
	view.RefetchDelay = time.Hour
	require.NoError(t, view.Refresh(context.Background()))

	fake.failDelete = true
	require.Error(t, view.Delete(context.Background(), "b"))

	items := view.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "b", items[1].ID, "Item should reappear in its original sort position")
}

func TestDeleteRemovesItem(t *testing.T) {
	fake := newFakeItemStore()
	fake.items["a"] = seededItem("a", "Apples", time.Now())
	view := NewItemView(fake, "user1", "alice@example.com")
	require.NoError(t, view.Refresh(context.Background()))

	require.NoError(t, view.Delete(context.Background(), "a"))
	assert.Empty(t, view.Items())
}

func changeEvent(t *testing.T, eventType string, payload interface{}) socket.WSMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return socket.WSMessage{Type: eventType, Table: socket.TableItems, UserID: "other-user", Payload: raw}
}

func TestApplyInsertEventIsIdempotent(t *testing.T) {
	fake := newFakeItemStore()
	// The row exists remotely; the notification payload carries the bare
	// row without the joined owner email.
	fake.items["x"] = seededItem("x", "Eggs", time.Now())

	view := NewItemView(fake, "user1", "alice@example.com")
	bare := store.ShoppingItem{ID: "x", Text: "Eggs"}

	msg := changeEvent(t, socket.InsertType, bare)
	view.ApplyEvent(context.Background(), msg)

	items := view.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "other@example.com", items[0].OwnerEmail, "Insert should re-fetch the full record")

	// A second identical notification is a no-op.
	view.ApplyEvent(context.Background(), msg)
	assert.Len(t, view.Items(), 1)
}

func TestApplyUpdateAndDeleteEvents(t *testing.T) {
	fake := newFakeItemStore()
	it := seededItem("x", "Eggs", time.Now())
	fake.items["x"] = it

	view := NewItemView(fake, "user1", "alice@example.com")
	require.NoError(t, view.Refresh(context.Background()))

	updated := it
	updated.Completed = true
	view.ApplyEvent(context.Background(), changeEvent(t, socket.UpdateType, updated))

	items := view.Items()
	require.Len(t, items, 1)
	assert.True(t, items[0].Completed)

	del := changeEvent(t, socket.DeleteType, socket.DeletePayload{ID: "x"})
	view.ApplyEvent(context.Background(), del)
	assert.Empty(t, view.Items())

	// Duplicate delete is a no-op.
	view.ApplyEvent(context.Background(), del)
	assert.Empty(t, view.Items())
}

func TestApplyEventIgnoresOtherTables(t *testing.T) {
	view := NewItemView(newFakeItemStore(), "user1", "alice@example.com")
	msg := socket.WSMessage{Type: socket.InsertType, Table: socket.TableProducts, Payload: json.RawMessage(`{"id":"p"}`)}
	view.ApplyEvent(context.Background(), msg)
	assert.Empty(t, view.Items())
}

func TestOptimisticPatchAndEchoCommute(t *testing.T) {
	// The echoed notification for a local add can arrive before or after
	// the optimistic patch settles; both orders must converge.
	fake := newFakeItemStore()
	view := NewItemView(fake, "user1", "alice@example.com")

	item, err := view.Add(context.Background(), "Milk", "1l")
	require.NoError(t, err)

	echo := changeEvent(t, socket.InsertType, store.ShoppingItem{ID: item.ID, Text: "Milk"})
	view.ApplyEvent(context.Background(), echo)
	view.ApplyEvent(context.Background(), echo)

	items := view.Items()
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
}
