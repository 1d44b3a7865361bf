package access

import (
	"fmt"
	"strings"
)

// Tier classifies the privilege or payment level a resource requires.
type Tier string

const (
	TierFree     Tier = "free"
	TierInternal Tier = "internal"
	TierPremium  Tier = "premium"
)

// ParseTier normalizes s into a known [Tier].
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierFree, TierInternal, TierPremium:
		return t, nil
	default:
		return "", fmt.Errorf("unknown access tier %q", s)
	}
}

// Resource identifies the course or lesson being accessed.
type Resource struct {
	CourseID    string
	LessonID    string
	Tier        Tier
	FreePreview bool
}

// ID returns the identifier enrollment is checked against: the course.
func (r Resource) ID() string {
	return r.CourseID
}

// Reason explains a decision.
type Reason string

const (
	ReasonFree        Reason = "free_access"
	ReasonFreePreview Reason = "free_preview"
	ReasonAdmin       Reason = "admin_access"
	ReasonStaff       Reason = "staff_access"
	ReasonEnrolled    Reason = "enrolled"

	ReasonEnrollmentRequired Reason = "enrollment_required"
	ReasonStaffOnly          Reason = "staff_only"
	ReasonUnknownTier        Reason = "unknown_tier"
)

// Action is the next step suggested to a denied client.
type Action string

const (
	ActionNone           Action = "none"
	ActionLogin          Action = "login"
	ActionLoginAndEnroll Action = "login_and_enroll"
	ActionEnroll         Action = "enroll"
	ActionContactAdmin   Action = "contact_admin"
)

// Decision is the computed access outcome for a (principal, resource) pair.
type Decision struct {
	HasAccess       bool   `json:"has_access"`
	Reason          Reason `json:"reason"`
	SuggestedAction Action `json:"suggested_action"`
}

// Message returns a short user-facing explanation.
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonFree, ReasonFreePreview, ReasonAdmin, ReasonStaff, ReasonEnrolled:
		return "Access granted"
	case ReasonEnrollmentRequired:
		return "Purchase required to access this content"
	case ReasonStaffOnly:
		return "Internal content - contact administrator"
	default:
		if d.SuggestedAction == ActionLogin {
			return "Login required"
		}
		return "Access denied"
	}
}

// Decide evaluates tier, role, preview and enrollment facts for p.
//
// Rules, first match wins:
//   - free preview or free tier: allow
//   - admin: allow
//   - internal: allow staff, deny everyone else
//   - premium: allow with paid enrollment, deny otherwise
//   - anything else: deny
func Decide(p Principal, tier Tier, freePreview, paidEnrollment bool) Decision {
	authenticated := p.Authenticated()

	switch {
	case freePreview:
		return allow(ReasonFreePreview)
	case tier == TierFree:
		return allow(ReasonFree)
	case p.IsAdmin():
		return allow(ReasonAdmin)
	}

	switch tier {
	case TierInternal:
		if p.IsStaff() {
			return allow(ReasonStaff)
		}
		return deny(ReasonStaffOnly, authenticated)
	case TierPremium:
		if authenticated && paidEnrollment {
			return allow(ReasonEnrolled)
		}
		return deny(ReasonEnrollmentRequired, authenticated)
	default:
		return deny(ReasonUnknownTier, authenticated)
	}
}

// NeedsEnrollment reports whether Decide's outcome for p depends on the
// paid-enrollment fact, so callers can skip the lookup otherwise.
func NeedsEnrollment(p Principal, tier Tier, freePreview bool) bool {
	return !freePreview && tier == TierPremium && p.Authenticated() && !p.IsAdmin()
}

// SuggestAction maps a denial reason to the client's next step.
func SuggestAction(reason Reason, authenticated bool) Action {
	switch reason {
	case ReasonEnrollmentRequired:
		if authenticated {
			return ActionEnroll
		}
		return ActionLoginAndEnroll
	case ReasonStaffOnly:
		return ActionContactAdmin
	case ReasonUnknownTier:
		if authenticated {
			return ActionNone
		}
		return ActionLogin
	default:
		return ActionNone
	}
}

func allow(reason Reason) Decision {
	return Decision{HasAccess: true, Reason: reason, SuggestedAction: ActionNone}
}

func deny(reason Reason, authenticated bool) Decision {
	return Decision{
		HasAccess:       false,
		Reason:          reason,
		SuggestedAction: SuggestAction(reason, authenticated),
	}
}
