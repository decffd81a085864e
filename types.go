package goShop

import (
	"time"

	"github.com/MrEthical07/goShop/device"
	"github.com/MrEthical07/goShop/internal/api"
	"github.com/MrEthical07/goShop/internal/flows"
	"github.com/MrEthical07/goShop/session"
	"github.com/redis/go-redis/v9"
)

// Session is the restored or current session.
type Session = session.Session

// User is the profile stored with the session.
type User = session.User

// Storage is the durable key-value storage behind sessions and device ids.
type Storage = session.Storage

// NewMemoryStorage returns process-local storage.
func NewMemoryStorage() *session.MemoryStorage {
	return session.NewMemoryStorage()
}

// NewFileStorage returns storage persisted as a JSON file at path.
func NewFileStorage(path string, opts ...session.FileOption) (*session.FileStorage, error) {
	return session.NewFileStorage(path, opts...)
}

// NewRedisStorage returns storage in Redis under "prefix:key".
func NewRedisStorage(client redis.UniversalClient, prefix string) *session.RedisStorage {
	return session.NewRedisStorage(client, prefix)
}

// DeviceIdentity is the device id and type attached to auth requests.
type DeviceIdentity = device.Identity

// DeviceType is the coarse device class.
type DeviceType = device.Type

const (
	DeviceDesktop = device.TypeDesktop
	DeviceMobile  = device.TypeMobile
	DeviceTablet  = device.TypeTablet
)

/*
====================================
AUTH FLOW
====================================
*/

// AuthFlow is the sign-in/sign-up state machine with OTP verification.
type AuthFlow = flows.AuthFlow

// AuthState is the auth flow state.
type AuthState = flows.State

const (
	StateForm          = flows.StateForm
	StateSubmitting    = flows.StateSubmitting
	StateOTPPending    = flows.StateOTPPending
	StateVerifying     = flows.StateVerifying
	StateAuthenticated = flows.StateAuthenticated
)

// AuthMode selects sign-in or sign-up.
type AuthMode = flows.Mode

const (
	ModeSignIn = flows.ModeSignIn
	ModeSignUp = flows.ModeSignUp
)

// AuthChannel is email, or country code plus phone number.
type AuthChannel = flows.Channel

const (
	ChannelEmail  = flows.ChannelEmail
	ChannelMobile = flows.ChannelMobile
)

// Attempt is one credential submission.
type Attempt = flows.Attempt

// OTPChallenge is a snapshot of the pending OTP challenge.
type OTPChallenge = flows.Challenge

/*
====================================
WISHLIST
====================================
*/

type Wishlist = flows.Wishlist

type WishlistEntry = flows.WishlistEntry

// WishlistError reports a failed wishlist add or remove.
type WishlistError = flows.WishlistError

/*
====================================
CATALOG
====================================
*/

// ID is a backend identifier. The backend sends strings or numbers.
type ID = api.ID

// Amount is a price or discount kept as the backend's literal text.
type Amount = api.Amount

type Product = api.Product

type Banner = api.Banner

type Category = api.Named

type Image = api.Image

type Variant = api.Variant

// ProductGroup is the products of one category.
type ProductGroup = flows.Group

// LoadState is the outcome of a catalog fetch.
type LoadState = flows.LoadState

const (
	LoadLoading = flows.LoadLoading
	LoadReady   = flows.LoadReady
	LoadFailed  = flows.LoadFailed
)

type BannerResult = flows.BannerResult

type ProductResult = flows.ProductResult

// Storefront is the combined home screen fetch.
type Storefront struct {
	Banners  BannerResult
	Products ProductResult
}

// GroupByCategory groups products by category name in first-appearance order.
func GroupByCategory(products []Product) []ProductGroup {
	return flows.GroupByCategory(products)
}

// TransportError and RejectedError are the structured backend errors.
type (
	TransportError  = api.TransportError
	RejectedError   = api.RejectedError
	IncompleteError = api.IncompleteError
)

// Clock schedules countdown ticks and notice timers.
type Clock = flows.Clock

// ManualClock is a Clock advanced explicitly, for tests and simulations.
type ManualClock = flows.ManualClock

func NewManualClock(start time.Time) *ManualClock {
	return flows.NewManualClock(start)
}
