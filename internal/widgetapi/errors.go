package widgetapi

import (
	"errors"
	"fmt"
)

// CodeSlotTaken is the error code the API returns when the requested time
// was booked by someone else between slot load and submission.
const CodeSlotTaken = "TIME_SLOT_TAKEN"

// APIError is a non-2xx answer from the remote API. StatusCode 0 means the
// request never produced an HTTP response (network-level failure).
type APIError struct {
	StatusCode     int
	Code           string `json:"code"`
	Message        string `json:"error"`
	RedirectToTime bool   `json:"redirect_to_time"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// DecodeError is a malformed body on a 2xx response. The request reached
// the server, so the retry policy never applies: a broken payload stays
// broken on the next attempt.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode response: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsSlotTaken reports whether err is the distinguished booking conflict:
// either the TIME_SLOT_TAKEN code or an explicit redirect-to-time flag.
func IsSlotTaken(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.Code == CodeSlotTaken || apiErr.RedirectToTime
}
