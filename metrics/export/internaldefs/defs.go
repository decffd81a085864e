package internaldefs

import (
	goShop "github.com/MrEthical07/goShop"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goShop.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goShop.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events dropped on a full queue.
const AuditDroppedName = "goshop_audit_dropped_total"

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goShop.MetricSignInSuccess, Name: "goshop_signin_success_total", Help: "Successful sign-in submissions."},
	{ID: goShop.MetricSignInFailure, Name: "goshop_signin_failure_total", Help: "Failed sign-in submissions."},
	{ID: goShop.MetricSignUpSuccess, Name: "goshop_signup_success_total", Help: "Sign-ups completed without an OTP step."},
	{ID: goShop.MetricSignUpOTPRequired, Name: "goshop_signup_otp_required_total", Help: "Sign-ups that entered the OTP step."},
	{ID: goShop.MetricSignUpFailure, Name: "goshop_signup_failure_total", Help: "Failed sign-up submissions."},
	{ID: goShop.MetricOTPVerifySuccess, Name: "goshop_otp_verify_success_total", Help: "Accepted OTP codes."},
	{ID: goShop.MetricOTPVerifyFailure, Name: "goshop_otp_verify_failure_total", Help: "Rejected or failed OTP verifications."},
	{ID: goShop.MetricOTPResent, Name: "goshop_otp_resent_total", Help: "OTP codes resent by the backend."},
	{ID: goShop.MetricOTPResendFailure, Name: "goshop_otp_resend_failure_total", Help: "Failed OTP resend requests."},
	{ID: goShop.MetricOTPResendThrottled, Name: "goshop_otp_resend_throttled_total", Help: "Resend requests refused while the countdown was running."},
	{ID: goShop.MetricSessionRestored, Name: "goshop_session_restored_total", Help: "Authenticated sessions restored from storage."},
	{ID: goShop.MetricLogout, Name: "goshop_logout_total", Help: "Logouts of an authenticated session."},
	{ID: goShop.MetricWishlistAdded, Name: "goshop_wishlist_added_total", Help: "Products added to the wishlist."},
	{ID: goShop.MetricWishlistRemoved, Name: "goshop_wishlist_removed_total", Help: "Products removed from the wishlist."},
	{ID: goShop.MetricWishlistFailure, Name: "goshop_wishlist_failure_total", Help: "Failed wishlist add or remove calls."},
	{ID: goShop.MetricWishlistInFlightRejected, Name: "goshop_wishlist_inflight_rejected_total", Help: "Wishlist calls rejected because one was already running for the product."},
	{ID: goShop.MetricCatalogFetchSuccess, Name: "goshop_catalog_fetch_success_total", Help: "Successful banner or product fetches."},
	{ID: goShop.MetricCatalogFetchFailure, Name: "goshop_catalog_fetch_failure_total", Help: "Failed banner or product fetches."},
	{ID: goShop.MetricTransportError, Name: "goshop_transport_error_total", Help: "Backend calls that failed before a usable response."},
	{ID: goShop.MetricBackendRejected, Name: "goshop_backend_rejected_total", Help: "Backend calls answered with a failure result."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goShop.MetricRequestLatency, Name: "goshop_request_latency_seconds", Help: "Backend round-trip latency."},
}

// HistogramUpperBounds are the bucket upper bounds in seconds, excluding +Inf.
var HistogramUpperBounds = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HistogramBounds are the rendered le labels, +Inf last.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
