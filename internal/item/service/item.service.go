package service

import (
	"errors"
	"strings"

	"sharedcart/internal/item/repository"
	"sharedcart/socket"
	"sharedcart/store"

	"github.com/google/uuid"
)

var (
	ErrEmptyText    = errors.New("item text cannot be empty")
	ErrItemNotFound = errors.New("item not found")
	ErrNotOwner     = errors.New("unauthorized: only the owner can delete an item")
)

type ItemService struct {
	Repo *repository.ItemRepository
	Hub  *socket.Hub
}

func NewItemService(repo *repository.ItemRepository, hub *socket.Hub) *ItemService {
	return &ItemService{Repo: repo, Hub: hub}
}

func (s *ItemService) List() ([]store.ShoppingItem, error) {
	return s.Repo.List()
}

func (s *ItemService) Get(id string) (store.ShoppingItem, error) {
	return s.Repo.GetByID(id)
}

// Create inserts a new item owned by userID and publishes an INSERT event.
// Quantity may be empty; text may not. A valid client-supplied id is kept
// so the author's optimistic insert and the echoed event share a key.
func (s *ItemService) Create(userID, email, id, text, quantity string) (store.ShoppingItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return store.ShoppingItem{}, ErrEmptyText
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	item, err := s.Repo.Create(id, text, strings.TrimSpace(quantity), userID)
	if err != nil {
		return store.ShoppingItem{}, err
	}
	item.OwnerEmail = email

	s.Hub.NotifyInsert(socket.TableItems, userID, item)
	return item, nil
}

// SetCompleted flips the completion flag and publishes an UPDATE event
// carrying the full record so subscribers can patch in place.
func (s *ItemService) SetCompleted(userID, id string, completed bool) (store.ShoppingItem, error) {
	rowsAffected, err := s.Repo.SetCompleted(id, completed)
	if err != nil {
		return store.ShoppingItem{}, err
	}
	if rowsAffected == 0 {
		return store.ShoppingItem{}, ErrItemNotFound
	}

	item, err := s.Repo.GetByID(id)
	if err != nil {
		return store.ShoppingItem{}, err
	}

	s.Hub.NotifyUpdate(socket.TableItems, userID, item)
	return item, nil
}

func (s *ItemService) Delete(userID, id string) error {
	rowsAffected, err := s.Repo.Delete(id, userID)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotOwner
	}

	s.Hub.NotifyDelete(socket.TableItems, userID, id)
	return nil
}
