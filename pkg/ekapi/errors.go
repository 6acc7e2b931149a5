package ekapi

import "strconv"

// AuthError indicates the API rejected the caller's credentials. Retrying
// won't help: the caller needs to re-authorize.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return "ekapi: authentication failed (" + strconv.Itoa(e.StatusCode) + ")"
}

// APIError indicates an API call failed for any reason other than rejected
// credentials. These are transient as far as the caller is concerned and can
// be retried on the next scheduled refresh.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := "ekapi: request failed (" + strconv.Itoa(e.StatusCode) + ")"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}
