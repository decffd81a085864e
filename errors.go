package goShop

import (
	"errors"

	"github.com/MrEthical07/goShop/internal/api"
	"github.com/MrEthical07/goShop/internal/flows"
	"github.com/MrEthical07/goShop/session"
)

var (
	// ErrTransport marks network, timeout and decode failures.
	ErrTransport = api.ErrTransport
	// ErrBackendRejected marks non-2xx responses and 2xx responses missing required fields.
	ErrBackendRejected = api.ErrBackendRejected
	// ErrIncompletePayload marks 2xx responses missing required fields.
	ErrIncompletePayload = api.ErrIncompletePayload

	// ErrThrottledResend is returned by ResendOTP while the countdown is running.
	ErrThrottledResend = flows.ErrThrottledResend
	// ErrWishlistOperationFailed wraps every failed wishlist add or remove.
	ErrWishlistOperationFailed = flows.ErrWishlistOperationFailed
	// ErrWishlistInFlight is returned when the same product already has a pending operation.
	ErrWishlistInFlight = flows.ErrWishlistInFlight
	// ErrFlowBusy is returned while another request of the same flow is in flight.
	ErrFlowBusy = flows.ErrFlowBusy
	// ErrInvalidState is returned for operations not allowed in the current flow state.
	ErrInvalidState = flows.ErrInvalidState
	// ErrNotAuthenticated is returned by wishlist operations without a session.
	ErrNotAuthenticated = flows.ErrNotAuthenticated
	// ErrInvalidAttempt is returned for incomplete credentials or OTP input.
	ErrInvalidAttempt = flows.ErrInvalidAttempt
	// ErrFlowClosed is returned by a flow after Close.
	ErrFlowClosed = flows.ErrFlowClosed
	// ErrSessionPersist is returned when authentication succeeded but the session could not be stored.
	ErrSessionPersist = flows.ErrSessionPersist

	// ErrStorageUnavailable marks a storage backend that could not be read or written.
	ErrStorageUnavailable = session.ErrStorageUnavailable
	// ErrIncompleteSession is returned by SetAuth without a user id or token.
	ErrIncompleteSession = session.ErrIncompleteSession

	// ErrClientClosed is returned by Client methods after Close.
	ErrClientClosed = errors.New("client closed")
	// ErrBuilderUsed is returned by a second Build call.
	ErrBuilderUsed = errors.New("builder already used")
)

// UserMessage converts an error into the text shown to the user, preferring
// the backend-supplied message.
func UserMessage(err error, fallback string) string {
	var werr *flows.WishlistError
	if errors.As(err, &werr) && fallback == "" {
		fallback = werr.UserMessage()
	}
	return api.UserMessage(err, fallback)
}
