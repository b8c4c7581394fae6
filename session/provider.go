/*
provider.go - Authentication provider

PURPOSE:
  Yields verified identities. The mock provider mirrors the reference
  account picker: a fixed list of accounts "detected on this device"
  plus a name+email registration flow, all resolving synchronously.
  A real deployment would implement Provider against an OAuth flow.
*/
package session

import (
	"errors"
	"net/url"

	"github.com/binrewards/loyalty-engine/ledger"
)

// Provider yields opaque verified identities.
type Provider interface {
	// Accounts lists the identities available for selection.
	Accounts() []ledger.Identity

	// Register creates an identity from a new name+email pair.
	Register(name, email string) (ledger.Identity, error)
}

// ErrInvalidIdentity is returned for a Register call missing a name or
// email.
var ErrInvalidIdentity = errors.New("name and email are required")

// =============================================================================
// MOCK PROVIDER
// =============================================================================

const avatarBase = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// MockProvider serves the fixed demo accounts.
type MockProvider struct{}

func (MockProvider) Accounts() []ledger.Identity {
	return []ledger.Identity{
		{Name: "Eco Enthusiast", Email: "eco.warrior@gmail.com", Avatar: avatarBase + "Eco"},
		{Name: "S. Planet-Lover", Email: "sam@earth.org", Avatar: avatarBase + "Sam"},
	}
}

func (MockProvider) Register(name, email string) (ledger.Identity, error) {
	if name == "" || email == "" {
		return ledger.Identity{}, ErrInvalidIdentity
	}
	return ledger.Identity{
		Name:   name,
		Email:  email,
		Avatar: avatarBase + url.QueryEscape(name),
	}, nil
}
