package domain

import "time"

// Identity is an account in the identity store. The access control core reads
// it when issuing credentials and scoring requests; the only fields it mutates
// are LastKnownIP (on login) and Active (on deactivation).
type Identity struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	Role           string
	MFAVerified    bool
	KnownDeviceIDs []string
	LastKnownIP    string
	Active         bool
	CreatedAt      time.Time
}

// KnowsDevice reports whether deviceID is one of the identity's known devices.
func (i *Identity) KnowsDevice(deviceID string) bool {
	if deviceID == "" {
		return false
	}
	for _, d := range i.KnownDeviceIDs {
		if d == deviceID {
			return true
		}
	}
	return false
}
