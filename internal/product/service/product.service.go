package service

import (
	"errors"
	"strings"

	"sharedcart/internal/product/model"
	"sharedcart/internal/product/repository"
	"sharedcart/socket"
	"sharedcart/store"

	"github.com/google/uuid"
)

var (
	ErrEmptyName       = errors.New("product name cannot be empty")
	ErrProductNotFound = errors.New("product not found or unauthorized")
)

type ProductService struct {
	Repo *repository.ProductRepository
	Hub  *socket.Hub
}

func NewProductService(repo *repository.ProductRepository, hub *socket.Hub) *ProductService {
	return &ProductService{Repo: repo, Hub: hub}
}

func (s *ProductService) List() ([]store.Product, error) {
	return s.Repo.List()
}

// Save creates the product when the form has no ID and updates it
// otherwise, matching the single form the catalog view submits.
func (s *ProductService) Save(userID string, form model.ProductForm) (store.Product, error) {
	form.Name = strings.TrimSpace(form.Name)
	if form.Name == "" {
		return store.Product{}, ErrEmptyName
	}

	if form.ID == "" {
		product, err := s.Repo.Create(uuid.NewString(), form.Name, form.Price, form.Category, form.Description, userID)
		if err != nil {
			return store.Product{}, err
		}
		s.Hub.NotifyInsert(socket.TableProducts, userID, product)
		return product, nil
	}

	rowsAffected, err := s.Repo.Update(form.ID, form.Name, form.Price, form.Category, form.Description, userID)
	if err != nil {
		return store.Product{}, err
	}
	if rowsAffected == 0 {
		return store.Product{}, ErrProductNotFound
	}

	product, err := s.Repo.GetByID(form.ID)
	if err != nil {
		return store.Product{}, err
	}
	s.Hub.NotifyUpdate(socket.TableProducts, userID, product)
	return product, nil
}

func (s *ProductService) Delete(userID, id string) error {
	rowsAffected, err := s.Repo.Delete(id, userID)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	s.Hub.NotifyDelete(socket.TableProducts, userID, id)
	return nil
}
