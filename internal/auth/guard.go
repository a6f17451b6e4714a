package auth

import (
	"fmt"

	"github.com/restakelabs/risk-oracle/internal/domain"
)

// Guard holds the two fixed privileged principals and answers role checks.
// There is no role transfer: both identities are set once at construction.
type Guard struct {
	owner          domain.Principal
	trustedBackend domain.Principal
}

// NewGuard creates a guard for the given owner and trusted backend.
func NewGuard(owner, trustedBackend domain.Principal) *Guard {
	return &Guard{
		owner:          owner,
		trustedBackend: trustedBackend,
	}
}

// Owner returns the owner principal.
func (g *Guard) Owner() domain.Principal {
	return g.owner
}

// TrustedBackend returns the trusted backend principal.
func (g *Guard) TrustedBackend() domain.Principal {
	return g.trustedBackend
}

// IsOwner reports whether caller is the owner.
func (g *Guard) IsOwner(caller domain.Principal) bool {
	return caller != "" && caller == g.owner
}

// IsTrustedBackend reports whether caller is the trusted backend.
func (g *Guard) IsTrustedBackend(caller domain.Principal) bool {
	return caller != "" && caller == g.trustedBackend
}

// RequireOwner fails with ErrUnauthorized unless caller is the owner.
// Runs before any other validation in guarded operations.
func (g *Guard) RequireOwner(caller domain.Principal) error {
	if !g.IsOwner(caller) {
		return fmt.Errorf("caller %q is not the owner: %w", caller, domain.ErrUnauthorized)
	}
	return nil
}

// RequireTrustedBackend fails with ErrUnauthorized unless caller is the
// trusted backend.
func (g *Guard) RequireTrustedBackend(caller domain.Principal) error {
	if !g.IsTrustedBackend(caller) {
		return fmt.Errorf("caller %q is not the trusted backend: %w", caller, domain.ErrUnauthorized)
	}
	return nil
}
