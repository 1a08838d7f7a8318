package server

// ErrResponse is the JSON error envelope for gateway responses.
type ErrResponse struct {
	Err ErrBody `json:"error"`
}

// ErrBody carries a machine code and a human message. FieldErrors is set
// only for validation failures so the widget can render inline messages.
type ErrBody struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// Error codes returned by the gateway. SLOT_TAKEN is distinguished from
// REQUEST_FAILED so the widget can route the user back to time selection
// instead of showing a generic retry message.
const (
	CodeBadRequest        = "FAILED_TO_DECODE"
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_FAILED"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeSlotTaken         = "SLOT_TAKEN"
	CodeRequestFailed     = "REQUEST_FAILED"
	CodeRateLimited       = "RATE_LIMITED"
)

func errResponse(code, msg string) ErrResponse {
	return ErrResponse{Err: ErrBody{Code: code, Message: msg}}
}

func validationResponse(fieldErrs map[string]string) ErrResponse {
	return ErrResponse{Err: ErrBody{
		Code:        CodeValidation,
		Message:     "validation failed",
		FieldErrors: fieldErrs,
	}}
}
