package domain

// Capability is a permission checked by the authorization gate before
// privileged operations.
type Capability string

const (
	CapabilityMinter Capability = "MINTER"
	CapabilityAdmin  Capability = "ADMIN"
)
