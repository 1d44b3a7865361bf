package internaldefs

import (
	"github.com/MrEthical07/coursegate"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   coursegate.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   coursegate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: coursegate.MetricSessionCreated, Name: "coursegate_session_created_total", Help: "Created sessions."},
	{ID: coursegate.MetricSessionResolved, Name: "coursegate_session_resolved_total", Help: "Successful session resolutions."},
	{ID: coursegate.MetricSessionResolveMiss, Name: "coursegate_session_resolve_miss_total", Help: "Session resolutions that ended unauthenticated."},
	{ID: coursegate.MetricSessionExpired, Name: "coursegate_session_expired_total", Help: "Sessions removed on expiry."},
	{ID: coursegate.MetricSessionTamper, Name: "coursegate_session_tamper_total", Help: "Sessions removed because their payload failed authentication."},
	{ID: coursegate.MetricSessionInvalidated, Name: "coursegate_session_invalidated_total", Help: "Sessions removed by invalidate or invalidate-all."},
	{ID: coursegate.MetricLogout, Name: "coursegate_logout_total", Help: "Single-session logouts."},
	{ID: coursegate.MetricLogoutAll, Name: "coursegate_logout_all_total", Help: "Invalidate-all operations."},
	{ID: coursegate.MetricSessionRefreshed, Name: "coursegate_session_refreshed_total", Help: "Explicit session expiry extensions."},
	{ID: coursegate.MetricSessionSwept, Name: "coursegate_session_swept_total", Help: "Records removed by expiry sweeps."},
	{ID: coursegate.MetricLoginSuccess, Name: "coursegate_login_success_total", Help: "Successful logins."},
	{ID: coursegate.MetricLoginFailure, Name: "coursegate_login_failure_total", Help: "Failed logins."},
	{ID: coursegate.MetricBearerAccepted, Name: "coursegate_bearer_accepted_total", Help: "Bearer tokens that resolved a principal."},
	{ID: coursegate.MetricBearerRejected, Name: "coursegate_bearer_rejected_total", Help: "Bearer tokens rejected."},
	{ID: coursegate.MetricAccessGranted, Name: "coursegate_access_granted_total", Help: "Resource access decisions that allowed."},
	{ID: coursegate.MetricAccessDenied, Name: "coursegate_access_denied_total", Help: "Resource access decisions that denied."},
	{ID: coursegate.MetricAuditFailure, Name: "coursegate_audit_failure_total", Help: "Durable audit appends that failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: coursegate.MetricResolveLatency, Name: "coursegate_resolve_latency_seconds", Help: "Session resolve latency."},
}

// Series is one labelled member of a [Family].
type Series struct {
	Value string
	ID    coursegate.MetricID
}

// Family regroups existing counters under one name and a label, so dashboards
// can split session endings by cause without summing separate metrics.
type Family struct {
	Name   string
	Help   string
	Label  string
	Series []Series
}

// FamilyDefs lists every labelled family. A counter may appear both here and in
// CounterDefs.
var FamilyDefs = []Family{
	{
		Name:  "coursegate_session_ended_total",
		Help:  "Sessions removed, by cause. cause=\"tamper\" means a sealed payload failed authentication or was unreadable and warrants an alert; expired is routine.",
		Label: "cause",
		Series: []Series{
			{Value: "logout", ID: coursegate.MetricLogout},
			{Value: "invalidated", ID: coursegate.MetricSessionInvalidated},
			{Value: "expired", ID: coursegate.MetricSessionExpired},
			{Value: "tamper", ID: coursegate.MetricSessionTamper},
		},
	},
	{
		Name:  "coursegate_principal_resolved_total",
		Help:  "Requests that resolved to a principal, by credential.",
		Label: "via",
		Series: []Series{
			{Value: coursegate.ViaSession, ID: coursegate.MetricSessionResolved},
			{Value: coursegate.ViaBearer, ID: coursegate.MetricBearerAccepted},
		},
	},
	{
		Name:  "coursegate_access_decisions_total",
		Help:  "Content access decisions, by outcome.",
		Label: "outcome",
		Series: []Series{
			{Value: "granted", ID: coursegate.MetricAccessGranted},
			{Value: "denied", ID: coursegate.MetricAccessDenied},
		},
	},
}

// AuditDroppedName is the counter for observer events dropped under backpressure.
const AuditDroppedName = "coursegate_audit_observer_dropped_total"

// HistogramBounds are the upper bounds of the engine's latency buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as metric-name-safe suffixes.
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

// NormalizeBuckets pads or truncates raw to exactly eight buckets.
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
