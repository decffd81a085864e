package flows

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/MrEthical07/goShop/device"
	"github.com/MrEthical07/goShop/internal/api"
	"github.com/MrEthical07/goShop/internal/audit"
	"github.com/MrEthical07/goShop/internal/metrics"
	"github.com/MrEthical07/goShop/session"
)

var (
	// ErrThrottledResend is returned when a resend is attempted before the countdown expired.
	ErrThrottledResend = errors.New("otp resend throttled")
	// ErrWishlistOperationFailed wraps every failed wishlist add or remove.
	ErrWishlistOperationFailed = errors.New("wishlist operation failed")
	// ErrFlowBusy is returned while another request of the same flow is in flight.
	ErrFlowBusy = errors.New("flow busy")
	// ErrInvalidState is returned for operations not allowed in the current state.
	ErrInvalidState = errors.New("invalid flow state")
	// ErrNotAuthenticated is returned by wishlist operations without a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidAttempt is returned for incomplete credentials or OTP input.
	ErrInvalidAttempt = errors.New("invalid auth attempt")
	// ErrWishlistInFlight is returned when the same product already has a pending operation.
	ErrWishlistInFlight = errors.New("wishlist operation already in flight")
	// ErrFlowClosed is returned after Close.
	ErrFlowClosed = errors.New("flow closed")
	// ErrSessionPersist is returned when authentication succeeded but the session could not be stored.
	ErrSessionPersist = errors.New("session not persisted")
)

// Event types emitted by the flows.
const (
	EventSignIn           = "sign_in"
	EventSignUp           = "sign_up"
	EventOTPRequired      = "otp_required"
	EventOTPVerify        = "otp_verify"
	EventOTPResend        = "otp_resend"
	EventResendThrottled  = "otp_resend_throttled"
	EventWishlistAdd      = "wishlist_add"
	EventWishlistRemove   = "wishlist_remove"
	EventWishlistInFlight = "wishlist_in_flight"
	EventCatalogFetch     = "catalog_fetch"
)

// AuthAPI is the backend surface used by the auth flow.
type AuthAPI interface {
	Authenticate(ctx context.Context, req api.AuthenticateRequest) (api.AuthResponse, error)
	VerifyOTP(ctx context.Context, req api.VerifyRequest) (api.AuthResponse, error)
	ResendOTP(ctx context.Context, req api.ResendRequest) (api.ResendResponse, error)
}

// WishlistAPI is the backend surface used by the wishlist.
type WishlistAPI interface {
	AddWishlist(ctx context.Context, req api.AddWishlistRequest) (api.ID, error)
	RemoveWishlist(ctx context.Context, uid api.ID) error
}

// CatalogAPI is the backend surface used by the catalog fetchers.
type CatalogAPI interface {
	Banners(ctx context.Context) ([]api.Banner, error)
	Products(ctx context.Context) ([]api.Product, error)
}

// SessionReader exposes the current session.
type SessionReader interface {
	Current() session.Session
}

// SessionWriter is the session surface the auth flow mutates.
type SessionWriter interface {
	SessionReader
	SetAuth(ctx context.Context, user session.User, accessToken string) error
	SetRefreshToken(ctx context.Context, token string) error
}

// DeviceSource supplies the device identity for auth requests.
type DeviceSource interface {
	Identity(ctx context.Context) device.Identity
}

// Observer carries the metric and diagnostic side channels shared by all flows.
// Nil members are no-ops.
type Observer struct {
	MetricInc func(metrics.ID)
	Emit      func(context.Context, audit.Event)
	Logger    *slog.Logger
}

func (o Observer) normalized() Observer {
	if o.MetricInc == nil {
		o.MetricInc = func(metrics.ID) {}
	}
	if o.Emit == nil {
		o.Emit = func(context.Context, audit.Event) {}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
