package auth

import (
	stderrors "errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

var registerMessages = map[string]string{
	"Username.required": "Username is required.",
	"Username.max":      "Ensure this field has no more than 150 characters.",
	"Email.required":    "Email is required.",
	"Email.email":       "Enter a valid email address.",
	"Password.required": "Password is required.",
	"Password.min":      "Password must be at least 6 characters long.",
}

// ValidateRegister returns the first failing rule as a user facing message.
func ValidateRegister(req RegisterRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !stderrors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err
	}
	first := fieldErrors[0]
	if msg, ok := registerMessages[first.Field()+"."+first.Tag()]; ok {
		return stderrors.New(msg)
	}
	return first
}
