package coursegate

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/coursegate/access"
)

// Resolver names reported in [Resolution.Via].
const (
	ViaSession = "session"
	ViaBearer  = "bearer"
)

// PrincipalResolver is one strategy for turning request credentials into a
// principal. Resolvers run in order; the first to report ok wins.
//
// A resolver that finds nothing usable returns ok=false and a nil error. A
// non-nil error stops resolution.
type PrincipalResolver interface {
	Name() string
	ResolvePrincipal(ctx context.Context, creds Credentials) (res Resolution, ok bool, err error)
}

// ResolvePrincipal runs the resolver chain: session cookie first, then bearer
// token, then any resolvers added with Builder.WithResolver. With no match the
// result is anonymous and the error is nil.
//
// Store and audit failures are returned as-is and never fall through to the
// next resolver.
func (e *Engine) ResolvePrincipal(ctx context.Context, creds Credentials) (Resolution, error) {
	for _, r := range e.resolvers {
		res, ok, err := r.ResolvePrincipal(ctx, creds)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrAuditUnavailable) || errors.Is(err, ErrResolverFailed) {
				return Resolution{}, err
			}
			return Resolution{}, fmt.Errorf("%w: %s: %v", ErrResolverFailed, r.Name(), err)
		}
		if ok && res.Principal.Authenticated() {
			if res.Via == "" {
				res.Via = r.Name()
			}
			return res, nil
		}
	}
	return Resolution{Principal: access.Anonymous()}, nil
}

type sessionResolver struct {
	engine *Engine
}

func (sessionResolver) Name() string { return ViaSession }

func (r sessionResolver) ResolvePrincipal(ctx context.Context, creds Credentials) (Resolution, bool, error) {
	if creds.SessionID == "" {
		return Resolution{}, false, nil
	}
	view, err := r.engine.Resolve(ctx, creds.SessionID)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return Resolution{}, false, nil
		}
		return Resolution{}, false, err
	}
	return Resolution{Principal: view.Principal, Via: ViaSession, SessionID: view.ID}, true, nil
}

type bearerResolver struct {
	engine *Engine
}

func (bearerResolver) Name() string { return ViaBearer }

func (r bearerResolver) ResolvePrincipal(ctx context.Context, creds Credentials) (Resolution, bool, error) {
	if creds.BearerToken == "" {
		return Resolution{}, false, nil
	}
	e := r.engine

	claims, err := e.bearer.ParseBearer(creds.BearerToken)
	if err != nil {
		e.metricInc(MetricBearerRejected)
		return Resolution{}, false, nil
	}
	p, ok, err := e.users.LookupUsername(ctx, claims.Subject)
	if err != nil {
		return Resolution{}, false, fmt.Errorf("%w: %v", ErrResolverFailed, err)
	}
	if !ok || !p.Authenticated() {
		e.metricInc(MetricBearerRejected)
		return Resolution{}, false, nil
	}

	e.metricInc(MetricBearerAccepted)
	return Resolution{Principal: p, Via: ViaBearer}, true, nil
}
