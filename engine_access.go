package coursegate

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/coursegate/access"
)

// Authorize decides whether p may access r. The enrollment lookup is consulted
// only when the outcome depends on it; a premium decision without a configured
// lookup fails with ErrEngineNotReady.
func (e *Engine) Authorize(ctx context.Context, p access.Principal, r access.Resource) (access.Decision, error) {
	enrolled := false
	if access.NeedsEnrollment(p, r.Tier, r.FreePreview) {
		if e.enrollments == nil {
			return access.Decision{}, ErrEngineNotReady
		}
		ok, err := e.enrollments.HasPaidEnrollment(ctx, p.UserID, r.ID())
		if err != nil {
			return access.Decision{}, fmt.Errorf("%w: enrollment lookup: %v", ErrResolverFailed, err)
		}
		enrolled = ok
	}

	d := access.Decide(p, r.Tier, r.FreePreview, enrolled)
	if d.HasAccess {
		e.metricInc(MetricAccessGranted)
	} else {
		e.metricInc(MetricAccessDenied)
	}
	return d, nil
}

// GrantPlayback authorizes p for r and, when allowed, signs a short-lived
// playback token bound to the user, course and lesson.
func (e *Engine) GrantPlayback(ctx context.Context, p access.Principal, r access.Resource) (*PlaybackGrant, error) {
	if e.playback == nil {
		return nil, ErrPlaybackDisabled
	}
	if !p.Authenticated() {
		return nil, ErrUnauthenticated
	}

	d, err := e.Authorize(ctx, p, r)
	if err != nil {
		return nil, err
	}
	grant := &PlaybackGrant{Decision: d}
	if !d.HasAccess {
		return grant, nil
	}

	token, exp, err := e.playback.CreatePlayback(p.UserID, r.CourseID, r.LessonID, e.config.Playback.TTL)
	if err != nil {
		return nil, err
	}
	grant.Token = token
	grant.ExpiresAt = exp
	return grant, nil
}

// VerifyPlayback checks a playback token for courseID and lessonID and returns
// the user it was issued to. Any mismatch is ErrUnauthenticated.
func (e *Engine) VerifyPlayback(ctx context.Context, token, courseID, lessonID string) (string, error) {
	if e.playback == nil {
		return "", ErrPlaybackDisabled
	}
	claims, err := e.playback.ParsePlayback(token)
	if err != nil {
		return "", ErrUnauthenticated
	}
	if claims.CourseID != courseID || claims.LessonID != lessonID {
		return "", ErrUnauthenticated
	}
	if e.users != nil {
		p, ok, err := e.users.LookupUser(ctx, claims.UserID)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrResolverFailed, err)
		}
		if !ok || !p.Active {
			return "", ErrUnauthenticated
		}
	}
	return claims.UserID, nil
}

// IsUnauthenticated reports whether err means the caller is not authenticated.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}
