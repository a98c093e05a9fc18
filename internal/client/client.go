package client

import (
	"errors"
	"fmt"
	"net/http"
)

// internalTokenHeader carries the shared secret for service-to-service calls
const internalTokenHeader = "X-Internal-Token"

// HTTPDoer is the transport used by the service clients; satisfied by
// *httpclient.Client and *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports a non-2xx response from an upstream service
type StatusError struct {
	Service    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s service returned status %d", e.Service, e.StatusCode)
}

// IsClientStatus reports whether the error is an upstream 4xx response
func IsClientStatus(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500
}
