package auth

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// IdentityClaim is what a client declares in its auth envelope.
type IdentityClaim struct {
	UserID   string `validate:"required,max=128"`
	Username string `validate:"required,max=64"`
}

func ValidateIdentity(claim IdentityClaim) error {
	return validate.Struct(claim)
}
