package coursegate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/coursegate/access"
)

const (
	claimUserID       = "user_id"
	claimUsername     = "username"
	claimEmail        = "email"
	claimRole         = "role"
	claimCreatedAt    = "created_at"
	claimLastActivity = "last_activity"
	claimLifetime     = "lifetime"
)

var reservedClaims = [...]string{
	claimUserID, claimUsername, claimEmail, claimRole,
	claimCreatedAt, claimLastActivity, claimLifetime,
}

// payloadTimeLayout is fixed width so re-sealing a payload never changes its
// size.
const payloadTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var errMalformedPayload = errors.New("malformed session payload")

// sessionPayload is the plaintext sealed into a record: identity fields,
// freshness fields, and caller-supplied extra claims in one flat JSON object.
type sessionPayload struct {
	principal    access.Principal
	createdAt    time.Time
	lastActivity time.Time
	lifetime     time.Duration
	extra        map[string]any
}

func (p *sessionPayload) marshal() ([]byte, error) {
	out := make(map[string]any, len(p.extra)+len(reservedClaims))
	for k, v := range p.extra {
		out[k] = v
	}
	out[claimUserID] = p.principal.UserID
	out[claimUsername] = p.principal.Username
	out[claimEmail] = p.principal.Email
	out[claimRole] = string(p.principal.Role)
	out[claimCreatedAt] = p.createdAt.UTC().Format(payloadTimeLayout)
	out[claimLastActivity] = p.lastActivity.UTC().Format(payloadTimeLayout)
	out[claimLifetime] = int64(p.lifetime / time.Second)
	return json.Marshal(out)
}

func unmarshalPayload(data []byte) (*sessionPayload, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not an object", errMalformedPayload)
	}

	p := &sessionPayload{}
	var ok bool
	if p.principal.UserID, ok = raw[claimUserID].(string); !ok || p.principal.UserID == "" {
		return nil, fmt.Errorf("%w: missing %s", errMalformedPayload, claimUserID)
	}
	p.principal.Username, _ = raw[claimUsername].(string)
	p.principal.Email, _ = raw[claimEmail].(string)
	role, _ := raw[claimRole].(string)
	r, err := access.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}
	p.principal.Role = r
	p.principal.Active = true

	if p.createdAt, err = payloadTime(raw, claimCreatedAt); err != nil {
		return nil, err
	}
	if p.lastActivity, err = payloadTime(raw, claimLastActivity); err != nil {
		return nil, err
	}
	n, _ := raw[claimLifetime].(json.Number)
	seconds, err := n.Int64()
	if err != nil || seconds <= 0 {
		return nil, fmt.Errorf("%w: missing %s", errMalformedPayload, claimLifetime)
	}
	p.lifetime = time.Duration(seconds) * time.Second

	for _, k := range reservedClaims {
		delete(raw, k)
	}
	p.extra = raw
	return p, nil
}

func payloadTime(raw map[string]any, key string) (time.Time, error) {
	s, _ := raw[key].(string)
	t, err := time.Parse(payloadTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", errMalformedPayload, key)
	}
	return t, nil
}

func copyClaims(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
