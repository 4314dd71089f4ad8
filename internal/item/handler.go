package handler

import (
	"encoding/json"
	"net/http"

	"sharedcart/internal/item/model"
	"sharedcart/internal/item/service"
	"sharedcart/middleware"
	"sharedcart/pkg/logger"
	"sharedcart/store"
)

type ItemHandler struct {
	Service *service.ItemService
}

func NewItemHandler(service *service.ItemService) *ItemHandler {
	return &ItemHandler{Service: service}
}

func (h *ItemHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	items, err := h.Service.List()
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to list items: %v", err)
		http.Error(w, "Failed to list items", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []store.ShoppingItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// GetItem serves single-record re-fetches: subscribers call it after an
// INSERT notification to get the row with the joined owner email.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	item, err := h.Service.Get(id)
	if err != nil {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Context().Value(middleware.UserIDKey).(string)
	email, _ := r.Context().Value(middleware.EmailKey).(string)

	var req model.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.Service.Create(userID, email, req.ID, req.Text, req.Quantity)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to create item: %v", err)
		status := http.StatusInternalServerError
		if err == service.ErrEmptyText {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.Context().Value(middleware.UserIDKey).(string)

	var req model.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.Service.SetCompleted(userID, req.ID, req.Completed)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to update item %s: %v", req.ID, err)
		status := http.StatusInternalServerError
		if err == service.ErrItemNotFound {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	userID := r.Context().Value(middleware.UserIDKey).(string)

	if err := h.Service.Delete(userID, id); err != nil {
		logger.Sugar.Errorf("Handler: Failed to delete item %s: %v", id, err)
		status := http.StatusInternalServerError
		if err == service.ErrNotOwner {
			status = http.StatusForbidden
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Item deleted"))
}
