// Package domain contains core concepts of the messaging system.
// Types here are pure data plus their invariants.
// No store, network, or UI logic should be added here.
package domain

// Session is the authenticated principal's view of itself.
// It owns nothing but gates visibility of everything else.
type Session struct {
	PrincipalID string
	Ready       bool
}
