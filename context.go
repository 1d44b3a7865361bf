package coursegate

import (
	"context"

	"github.com/MrEthical07/coursegate/access"
)

type requestMetadataContextKey struct{}
type resolutionContextKey struct{}

// WithRequestMetadata attaches the caller's IP and user agent to ctx. The Engine
// records them as actor metadata on audit events for invalidations it did not
// receive metadata for explicitly.
func WithRequestMetadata(ctx context.Context, meta RequestMetadata) context.Context {
	return context.WithValue(ctx, requestMetadataContextKey{}, meta)
}

// RequestMetadataFromContext returns metadata attached by WithRequestMetadata.
func RequestMetadataFromContext(ctx context.Context) RequestMetadata {
	if ctx == nil {
		return RequestMetadata{}
	}
	meta, _ := ctx.Value(requestMetadataContextKey{}).(RequestMetadata)
	return meta
}

// WithResolution attaches a resolved principal to ctx.
func WithResolution(ctx context.Context, res Resolution) context.Context {
	return context.WithValue(ctx, resolutionContextKey{}, res)
}

// ResolutionFromContext returns the resolution attached by WithResolution, or an
// anonymous one.
func ResolutionFromContext(ctx context.Context) Resolution {
	if ctx == nil {
		return Resolution{}
	}
	res, _ := ctx.Value(resolutionContextKey{}).(Resolution)
	return res
}

// PrincipalFromContext is shorthand for ResolutionFromContext(ctx).Principal.
func PrincipalFromContext(ctx context.Context) access.Principal {
	return ResolutionFromContext(ctx).Principal
}
