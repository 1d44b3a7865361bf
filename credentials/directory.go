package credentials

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/MrEthical07/coursegate/access"
)

// ErrDuplicateUser is returned by Add when the id, username or email is taken.
var ErrDuplicateUser = errors.New("user already exists")

type entry struct {
	principal access.Principal
	hash      string
}

// StaticDirectory is an in-memory user table that verifies passwords with [Argon2].
// Identifiers match either the username or the email, case-insensitively.
// Hashes made with weaker parameters than the current hasher are replaced on the
// next successful login.
type StaticDirectory struct {
	mu     sync.RWMutex
	hasher *Argon2
	dummy  string
	byID   map[string]*entry
	byName map[string]*entry
}

// NewStaticDirectory returns an empty directory using hasher.
func NewStaticDirectory(hasher *Argon2) (*StaticDirectory, error) {
	// Unknown identifiers are verified against this hash so they cost the same as known ones.
	dummy, err := hasher.Hash("coursegate-dummy-password")
	if err != nil {
		return nil, err
	}
	return &StaticDirectory{
		hasher: hasher,
		dummy:  dummy,
		byID:   make(map[string]*entry),
		byName: make(map[string]*entry),
	}, nil
}

// SetHasher switches the hashing policy. Existing hashes keep verifying and are
// upgraded on each user's next successful login.
func (d *StaticDirectory) SetHasher(hasher *Argon2) error {
	dummy, err := hasher.Hash("coursegate-dummy-password")
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasher, d.dummy = hasher, dummy
	return nil
}

// Add hashes password and registers p.
func (d *StaticDirectory) Add(p access.Principal, password string) error {
	if p.UserID == "" || p.Username == "" {
		return errors.New("user id and username are required")
	}
	d.mu.RLock()
	hasher := d.hasher
	d.mu.RUnlock()
	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	keys := []string{normalize(p.Username)}
	if p.Email != "" {
		keys = append(keys, normalize(p.Email))
	}
	if _, ok := d.byID[p.UserID]; ok {
		return ErrDuplicateUser
	}
	for _, k := range keys {
		if _, ok := d.byName[k]; ok {
			return ErrDuplicateUser
		}
	}

	e := &entry{principal: p, hash: hash}
	d.byID[p.UserID] = e
	for _, k := range keys {
		d.byName[k] = e
	}
	return nil
}

// SetActive flips a user's active flag and reports whether the user exists.
func (d *StaticDirectory) SetActive(userID string, active bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.byID[userID]
	if !ok {
		return false
	}
	e.principal.Active = active
	return true
}

// VerifyCredentials returns the principal whose password matches. Inactive users
// are returned as found; the caller decides what inactivity means. A secret over
// the hasher's length cap is a mismatch, not an error.
func (d *StaticDirectory) VerifyCredentials(ctx context.Context, identifier, secret string) (access.Principal, bool, error) {
	if err := ctx.Err(); err != nil {
		return access.Principal{}, false, err
	}

	d.mu.RLock()
	hasher := d.hasher
	e, found := d.byName[normalize(identifier)]
	var (
		p    access.Principal
		hash = d.dummy
	)
	if found {
		p, hash = e.principal, e.hash
	}
	d.mu.RUnlock()

	ok, upgraded, err := hasher.VerifyAndUpgrade(secret, hash)
	switch {
	case errors.Is(err, ErrPasswordTooLong):
		return access.Principal{}, false, nil
	case err != nil:
		return access.Principal{}, false, err
	case !found || !ok:
		return access.Principal{}, false, nil
	}

	if upgraded != "" {
		d.mu.Lock()
		// Skip if the password changed while we were hashing.
		if e.hash == hash {
			e.hash = upgraded
		}
		d.mu.Unlock()
	}
	return p, true, nil
}

// LookupUser returns the current principal for userID.
func (d *StaticDirectory) LookupUser(_ context.Context, userID string) (access.Principal, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byID[userID]
	if !ok {
		return access.Principal{}, false, nil
	}
	return e.principal, true, nil
}

// LookupUsername returns the current principal for username.
func (d *StaticDirectory) LookupUsername(_ context.Context, username string) (access.Principal, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byName[normalize(username)]
	if !ok || !strings.EqualFold(e.principal.Username, username) {
		return access.Principal{}, false, nil
	}
	return e.principal, true, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
