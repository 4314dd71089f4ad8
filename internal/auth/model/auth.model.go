package model

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ErrorResponse carries the provider error message verbatim so the login
// form can show it to the user.
type ErrorResponse struct {
	Error string `json:"error"`
}
