package handler

import (
	"encoding/json"
	"net/http"

	"sharedcart/internal/product/model"
	"sharedcart/internal/product/service"
	"sharedcart/middleware"
	"sharedcart/pkg/logger"
	"sharedcart/store"
)

type ProductHandler struct {
	Service *service.ProductService
}

func NewProductHandler(service *service.ProductService) *ProductHandler {
	return &ProductHandler{Service: service}
}

func (h *ProductHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	products, err := h.Service.List()
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to list products: %v", err)
		http.Error(w, "Failed to list products", http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []store.Product{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(products)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.save(w, r, false)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.save(w, r, true)
}

func (h *ProductHandler) save(w http.ResponseWriter, r *http.Request, requireID bool) {
	userID := r.Context().Value(middleware.UserIDKey).(string)

	var form model.ProductForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if requireID && form.ID == "" {
		http.Error(w, "Missing product id", http.StatusBadRequest)
		return
	}
	if !requireID {
		form.ID = ""
	}

	product, err := h.Service.Save(userID, form)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to save product: %v", err)
		status := http.StatusInternalServerError
		switch err {
		case service.ErrEmptyName:
			status = http.StatusBadRequest
		case service.ErrProductNotFound:
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(product)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
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
		logger.Sugar.Errorf("Handler: Failed to delete product %s: %v", id, err)
		status := http.StatusInternalServerError
		if err == service.ErrProductNotFound {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Product deleted"))
}
