package internaldefs

import (
	fitAuth "github.com/fitgoal/fitAuth"
)

type CounterDef struct {
	ID   fitAuth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   fitAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported Engine counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: fitAuth.MetricRegisterSuccess, Name: "fitauth_register_success_total", Help: "Accounts registered."},
	{ID: fitAuth.MetricRegisterDuplicate, Name: "fitauth_register_duplicate_total", Help: "Registrations rejected because the email exists."},
	{ID: fitAuth.MetricRegisterValidationFailure, Name: "fitauth_register_validation_failure_total", Help: "Registrations rejected by input validation."},
	{ID: fitAuth.MetricLoginSuccess, Name: "fitauth_login_success_total", Help: "Successful login attempts."},
	{ID: fitAuth.MetricLoginFailure, Name: "fitauth_login_failure_total", Help: "Login attempts with invalid input or a wrong password."},
	{ID: fitAuth.MetricLoginUnknownAccount, Name: "fitauth_login_unknown_account_total", Help: "Login attempts for an unknown email."},
	{ID: fitAuth.MetricLoginRateLimited, Name: "fitauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: fitAuth.MetricPasswordRehash, Name: "fitauth_password_rehash_total", Help: "Stored hashes upgraded to current parameters on login."},
	{ID: fitAuth.MetricAuthSuccess, Name: "fitauth_authenticate_success_total", Help: "Bearer tokens resolved to a principal."},
	{ID: fitAuth.MetricAuthNoCredential, Name: "fitauth_authenticate_no_credential_total", Help: "Requests without a bearer token."},
	{ID: fitAuth.MetricAuthInvalidCredential, Name: "fitauth_authenticate_invalid_credential_total", Help: "Malformed or badly signed bearer tokens."},
	{ID: fitAuth.MetricAuthExpiredCredential, Name: "fitauth_authenticate_expired_credential_total", Help: "Expired bearer tokens."},
	{ID: fitAuth.MetricAuthRevokedCredential, Name: "fitauth_authenticate_revoked_credential_total", Help: "Revoked bearer tokens."},
	{ID: fitAuth.MetricAuthUnknownPrincipal, Name: "fitauth_authenticate_unknown_principal_total", Help: "Valid tokens whose account no longer exists."},
	{ID: fitAuth.MetricLogout, Name: "fitauth_logout_total", Help: "Tokens revoked by logout."},
	{ID: fitAuth.MetricPasswordResetRequest, Name: "fitauth_password_reset_request_total", Help: "Password reset requests."},
	{ID: fitAuth.MetricPasswordResetConfirmSuccess, Name: "fitauth_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: fitAuth.MetricPasswordResetConfirmFailure, Name: "fitauth_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: fitAuth.MetricRateLimitHit, Name: "fitauth_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
}

var HistogramDefs = []HistogramDef{
	{ID: fitAuth.MetricAuthenticateLatency, Name: "fitauth_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// AuditDroppedName is the counter for audit events dropped under backpressure.
const (
	AuditDroppedName = "fitauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the upper bounds, in seconds, of the first seven
// latency buckets. The eighth bucket is the +Inf overflow.
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, including +Inf, for exporters
// that publish buckets as separate instruments.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
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

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
