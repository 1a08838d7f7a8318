package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateGuestDetails(t *testing.T) {
	tests := []struct {
		name      string
		details   GuestDetails
		badFields []string
	}{
		{
			name:    "valid minimal",
			details: GuestDetails{Name: "Ana", Phone: "12345678"},
		},
		{
			name:    "valid full",
			details: GuestDetails{Name: "Ana Novak", Phone: "+38591111222", Email: "ana@example.com", Notes: "first visit"},
		},
		{
			name:      "name too short",
			details:   GuestDetails{Name: "Al", Phone: "12345678"},
			badFields: []string{"name"},
		},
		{
			name:      "phone too short",
			details:   GuestDetails{Name: "Ana", Phone: "1234567"},
			badFields: []string{"phone"},
		},
		{
			name:      "missing both",
			details:   GuestDetails{},
			badFields: []string{"name", "phone"},
		},
		{
			name:      "bad email",
			details:   GuestDetails{Name: "Ana", Phone: "12345678", Email: "not-an-email"},
			badFields: []string{"email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fieldErrs := ValidateGuestDetails(tt.details)
			if len(tt.badFields) == 0 {
				assert.Empty(t, fieldErrs)
				return
			}
			assert.Len(t, fieldErrs, len(tt.badFields))
			for _, field := range tt.badFields {
				assert.Contains(t, fieldErrs, field)
			}
		})
	}
}
