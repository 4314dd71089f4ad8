package model

// ProductForm is the create/update payload. An empty ID means create.
type ProductForm struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Price       *float64 `json:"price,omitempty"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
}
