package internaldefs

import (
	goAccount "github.com/MrEthical07/goAccount"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goAccount.MetricID
	Name string
	Help string
}

// AuditDroppedName is the exported name of the audit drop counter.
const AuditDroppedName = "goaccount_audit_dropped_total"

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goAccount.MetricLoginSuccess, Name: "goaccount_login_success_total", Help: "Successful logins."},
	{ID: goAccount.MetricLoginFailure, Name: "goaccount_login_failure_total", Help: "Rejected logins."},
	{ID: goAccount.MetricLoginInactive, Name: "goaccount_login_inactive_total", Help: "Correct credentials on accounts not yet activated."},
	{ID: goAccount.MetricLoginRateLimited, Name: "goaccount_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: goAccount.MetricSignupSuccess, Name: "goaccount_signup_success_total", Help: "Created accounts."},
	{ID: goAccount.MetricSignupDuplicate, Name: "goaccount_signup_duplicate_total", Help: "Signups rejected as duplicate."},
	{ID: goAccount.MetricSignupRateLimited, Name: "goaccount_signup_rate_limited_total", Help: "Rate-limited signups."},
	{ID: goAccount.MetricActivationRequest, Name: "goaccount_activation_request_total", Help: "Issued activation tokens."},
	{ID: goAccount.MetricActivationSuccess, Name: "goaccount_activation_success_total", Help: "Activated accounts."},
	{ID: goAccount.MetricActivationFailure, Name: "goaccount_activation_failure_total", Help: "Rejected activation tokens."},
	{ID: goAccount.MetricPasswordResetRequest, Name: "goaccount_password_reset_request_total", Help: "Password reset requests."},
	{ID: goAccount.MetricPasswordResetConfirmSuccess, Name: "goaccount_password_reset_confirm_success_total", Help: "Passwords changed with a reset token."},
	{ID: goAccount.MetricPasswordResetConfirmFailure, Name: "goaccount_password_reset_confirm_failure_total", Help: "Rejected password changes."},
	{ID: goAccount.MetricSessionCreated, Name: "goaccount_session_created_total", Help: "Sessions created at login."},
	{ID: goAccount.MetricSessionRenewed, Name: "goaccount_session_renewed_total", Help: "Sessions rotated at login."},
	{ID: goAccount.MetricLogout, Name: "goaccount_logout_total", Help: "Logouts."},
	{ID: goAccount.MetricNotificationFailure, Name: "goaccount_notification_failure_total", Help: "Activation and reset mails that failed to send."},
	{ID: goAccount.MetricRateLimitHit, Name: "goaccount_rate_limit_hit_total", Help: "Throttle checks that denied requests."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goAccount.MetricLoginLatency, Name: "goaccount_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds are the upper bounds of the engine latency buckets, in seconds.
var HistogramBounds = []string{
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"+Inf",
}

// HistogramBoundSuffix spells HistogramBounds for instrument names.
var HistogramBoundSuffix = []string{
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
