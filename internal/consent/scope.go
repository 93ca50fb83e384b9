// Package consent issues and verifies signed consent tokens. A token binds a
// user, an agent, a permission scope, and an expiry into a self-contained
// string that can be verified statelessly; an optional revocation list allows
// withdrawing consent before natural expiry.
package consent

import "fmt"

// Scope is an enumerated permission tag gating access to one category of
// vault data. The set is closed: anything outside it fails ParseScope.
type Scope string

const (
	ScopeReadEmail        Scope = "vault.read.email"
	ScopeReadFinance      Scope = "vault.read.finance"
	ScopeWriteFile        Scope = "vault.write.file"
	ScopeShoppingPurchase Scope = "agent.shopping.purchase"
	ScopeSessionWrite     Scope = "custom.session.write"
	ScopeTemporary        Scope = "custom.temporary"
)

// AllScopes lists every member of the closed scope enumeration.
func AllScopes() []Scope {
	return []Scope{
		ScopeReadEmail,
		ScopeReadFinance,
		ScopeWriteFile,
		ScopeShoppingPurchase,
		ScopeSessionWrite,
		ScopeTemporary,
	}
}

// Valid reports whether s is a member of the closed enumeration.
func (s Scope) Valid() bool {
	switch s {
	case ScopeReadEmail, ScopeReadFinance, ScopeWriteFile,
		ScopeShoppingPurchase, ScopeSessionWrite, ScopeTemporary:
		return true
	}
	return false
}

func (s Scope) String() string { return string(s) }

// ParseScope validates a raw scope string against the enumeration.
func ParseScope(raw string) (Scope, error) {
	s := Scope(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
	return s, nil
}
