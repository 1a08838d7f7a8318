package booking

import (
	"github.com/go-playground/validator/v10"
)

// GuestDetails are the contact fields a guest fills in before review.
type GuestDetails struct {
	Name    string `json:"name" validate:"required,min=3"`
	Phone   string `json:"phone" validate:"required,min=8"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"omitempty,max=200"`
	Notes   string `json:"notes" validate:"omitempty,max=1000"`
}

// FieldErrors maps a field name to its human-readable message.
type FieldErrors map[string]string

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateGuestDetails checks the fields locally. A failing result means no
// network request may be made.
func ValidateGuestDetails(d GuestDetails) FieldErrors {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"_": err.Error()}
	}

	fieldErrs := make(FieldErrors, len(validationErrors))
	for _, fe := range validationErrors {
		switch fe.Field() {
		case "Name":
			fieldErrs["name"] = "Name must be at least 3 characters"
		case "Phone":
			fieldErrs["phone"] = "Phone must be at least 8 characters"
		case "Email":
			fieldErrs["email"] = "Email address is not valid"
		case "Address":
			fieldErrs["address"] = "Address is too long"
		case "Notes":
			fieldErrs["notes"] = "Notes are too long"
		}
	}
	return fieldErrs
}
