package coursegate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/coursegate/access"
)

// LoginResult is a successful login.
type LoginResult struct {
	Principal access.Principal
	Grant     *Grant
}

// Login verifies identifier and secret with the configured CredentialVerifier
// and creates a session. remember selects Session.RememberTimeout.
//
// Unknown identifiers and wrong secrets both yield ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, identifier, secret string, meta RequestMetadata, remember bool) (*LoginResult, error) {
	if e.verifier == nil {
		return nil, ErrEngineNotReady
	}
	if identifier == "" || secret == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	p, ok, err := e.verifier.VerifyCredentials(ctx, identifier, secret)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, fmt.Errorf("%w: %v", ErrResolverFailed, err)
	}
	if !ok {
		e.metricInc(MetricLoginFailure)
		e.logger.LogAttrs(ctx, slog.LevelInfo, "login rejected",
			slog.String("ip_address", meta.IPAddress),
		)
		return nil, ErrInvalidCredentials
	}
	if !p.Active {
		e.metricInc(MetricLoginFailure)
		return nil, ErrAccountDisabled
	}

	grant, err := e.Create(ctx, p, meta, WithRemember(remember))
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	return &LoginResult{Principal: p, Grant: grant}, nil
}

// IssueBearer signs a legacy bearer token {sub: username, exp} for p.
func (e *Engine) IssueBearer(p access.Principal) (string, time.Duration, error) {
	if e.bearer == nil {
		return "", 0, ErrBearerDisabled
	}
	if !p.Authenticated() || p.Username == "" {
		return "", 0, ErrUnauthenticated
	}
	token, err := e.bearer.CreateBearer(p.Username)
	if err != nil {
		return "", 0, err
	}
	return token, e.bearer.TTL(), nil
}
