package model

// CreateItemRequest may carry a client-generated ID so an optimistic
// local insert and the echoed change event share the same key.
type CreateItemRequest struct {
	ID       string `json:"id,omitempty"`
	Text     string `json:"text"`
	Quantity string `json:"quantity"`
}

type UpdateItemRequest struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
}
