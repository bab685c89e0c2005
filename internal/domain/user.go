package domain

import "time"

// User is the registry record for a registered identity. Users are immutable
// once created and never deleted.
type User struct {
	ID           ID
	DisplayName  string
	Identity     Identity
	RegisteredAt time.Time
}
