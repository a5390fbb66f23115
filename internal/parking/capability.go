package parking

import "github.com/google/uuid"

// AdminCapability is the bearer proof of administrative authority over
// one facility. All fields are unexported so the only way to obtain a
// valid capability is InitializeFacility; holding a reference is the
// authorization mechanism, not an address comparison.
type AdminCapability struct {
	lotID  uuid.UUID
	holder Identity
	nonce  uuid.UUID
}

// Holder returns the identity the capability was issued to.
func (c *AdminCapability) Holder() Identity {
	return c.holder
}

// Nonce identifies this capability issuance. The HTTP layer embeds it in
// admin tokens so a token from one facility cannot act on another.
func (c *AdminCapability) Nonce() uuid.UUID {
	return c.nonce
}

// authorizes reports whether the capability binds caller to lotID.
// Re-checked on every privileged call; never cached.
func (c *AdminCapability) authorizes(lotID uuid.UUID, caller Identity) bool {
	return c != nil && c.lotID == lotID && c.holder == caller
}
