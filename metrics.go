package goShop

import (
	internalmetrics "github.com/MrEthical07/goShop/internal/metrics"
)

// MetricID identifies one client counter or histogram.
type MetricID = internalmetrics.ID

const (
	MetricSignInSuccess            = internalmetrics.SignInSuccess
	MetricSignInFailure            = internalmetrics.SignInFailure
	MetricSignUpSuccess            = internalmetrics.SignUpSuccess
	MetricSignUpOTPRequired        = internalmetrics.SignUpOTPRequired
	MetricSignUpFailure            = internalmetrics.SignUpFailure
	MetricOTPVerifySuccess         = internalmetrics.OTPVerifySuccess
	MetricOTPVerifyFailure         = internalmetrics.OTPVerifyFailure
	MetricOTPResent                = internalmetrics.OTPResent
	MetricOTPResendFailure         = internalmetrics.OTPResendFailure
	MetricOTPResendThrottled       = internalmetrics.OTPResendThrottled
	MetricSessionRestored          = internalmetrics.SessionRestored
	MetricLogout                   = internalmetrics.Logout
	MetricWishlistAdded            = internalmetrics.WishlistAdded
	MetricWishlistRemoved          = internalmetrics.WishlistRemoved
	MetricWishlistFailure          = internalmetrics.WishlistFailure
	MetricWishlistInFlightRejected = internalmetrics.WishlistInFlightRejected
	MetricCatalogFetchSuccess      = internalmetrics.CatalogFetchSuccess
	MetricCatalogFetchFailure      = internalmetrics.CatalogFetchFailure
	MetricTransportError           = internalmetrics.TransportError
	MetricBackendRejected          = internalmetrics.BackendRejected
	MetricRequestLatency           = internalmetrics.RequestLatency
)

// Metrics is the in-process counter set. A nil *Metrics is valid and counts nothing.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics returns a counter set configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.Enabled && cfg.EnableLatencyHistograms,
	})
}
