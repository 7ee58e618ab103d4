package forwardererrors

import (
	"net/http"

	"employee-forwarder/internal/shared/apperror"
)

// ErrUpstreamFailed answers calls that never got a response from the store.
var ErrUpstreamFailed = apperror.New(
	apperror.CodeInternalError,
	"Internal server error",
	http.StatusInternalServerError,
)
