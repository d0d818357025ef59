package domain

import "strings"

// Privacy holds the per-profile discovery switches.
type Privacy struct {
	Searchable bool
}

// Profile is the private record of a principal.
// Mutable only by its own principal, never deleted.
type Profile struct {
	FirstName string
	LastName  string
	Username  string
	Bio       string
	Privacy   Privacy
}

// PublicProfile is the denormalized discovery projection of a Profile.
// It exists iff the private profile is searchable, and its fields must
// always mirror the private profile's current values.
type PublicProfile struct {
	PrincipalID string
	FirstName   string
	LastName    string
	Username    string
	Bio         string
}

const defaultUsernamePrefix = "user_"

// DefaultProfile builds the profile persisted on a principal's first sign-in.
// The username is derived deterministically from the principal id.
func DefaultProfile(principalID string) Profile {
	suffix := principalID
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return Profile{
		FirstName: "New",
		LastName:  "User",
		Username:  defaultUsernamePrefix + strings.ToLower(suffix),
		Bio:       "Hey there! I am using Zinka.",
		Privacy:   Privacy{Searchable: true},
	}
}

// Public derives the discovery projection for the given principal.
func (p Profile) Public(principalID string) PublicProfile {
	return PublicProfile{
		PrincipalID: principalID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Username:    p.Username,
		Bio:         p.Bio,
	}
}

func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p PublicProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
