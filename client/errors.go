package client

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrNoSession is returned when an operation needs stored credentials and
// none are present. Callers should prompt for a fresh login.
var ErrNoSession = goerrors.New("no stored session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("NO_SESSION")

// ErrRefreshFailed is returned when the server rejected the refresh
// credential. The local session has been cleared by the time callers see
// this.
var ErrRefreshFailed = goerrors.New("credential refresh rejected", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("REFRESH_FAILED")

// ErrUnauthorized is returned when a request still comes back 401 after a
// refresh attempt.
var ErrUnauthorized = goerrors.New("request unauthorized", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("UNAUTHORIZED")
