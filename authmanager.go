package gatewaysdk

import (
	"sync"
)

// AuthState is one of the auth manager's mutually exclusive states.
type AuthState int

const (
	AuthNotAuthenticated AuthState = iota
	AuthAuthenticating
	AuthAuthenticated
	AuthFailed
)

func (s AuthState) String() string {
	switch s {
	case AuthNotAuthenticated:
		return "not_authenticated"
	case AuthAuthenticating:
		return "authenticating"
	case AuthAuthenticated:
		return "authenticated"
	case AuthFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AuthManager tracks the device's authentication state and, once
// authenticated, the identity (and authorization lists) the gateway granted
// it. It is safe for concurrent use.
//
// Authorization enforcement is local-advisory: the gateway is always the
// authority, but when EnforceLocally is set a publish or subscribe call
// that the local allow-lists would reject fails fast (Publish with
// ErrSubjectNotAllowed, Subscribe with ErrSubscribeDenied) instead of
// round-tripping to the gateway only to be refused there.
type AuthManager struct {
	mu             sync.RWMutex
	state          AuthState
	identity       DeviceIdentity
	enforceLocally bool
	lastFailure    error
}

// NewAuthManager creates an AuthManager in the NotAuthenticated state.
func NewAuthManager(enforceLocally bool) *AuthManager {
	return &AuthManager{
		state:          AuthNotAuthenticated,
		enforceLocally: enforceLocally,
	}
}

// BeginAuthenticating transitions to Authenticating. Called when the auth
// envelope is sent.
func (a *AuthManager) BeginAuthenticating() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = AuthAuthenticating
	a.lastFailure = nil
}

// Succeed records a successful authentication and the identity granted by
// the gateway.
func (a *AuthManager) Succeed(identity DeviceIdentity) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = AuthAuthenticated
	a.identity = identity
	a.lastFailure = nil
}

// Fail records a failed authentication attempt.
func (a *AuthManager) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = AuthFailed
	a.lastFailure = err
}

// Reset returns the manager to NotAuthenticated and clears the granted
// identity. Called on disconnect.
func (a *AuthManager) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = AuthNotAuthenticated
	a.identity = DeviceIdentity{}
	a.lastFailure = nil
}

// State returns the current auth state.
func (a *AuthManager) State() AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// LastFailure returns the error from the most recent failed attempt, if
// any.
func (a *AuthManager) LastFailure() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastFailure
}

// Identity returns the identity granted on the last successful
// authentication.
func (a *AuthManager) Identity() DeviceIdentity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.identity
}

// CanPublish reports whether a publish to subject is locally permitted.
// When enforcement is disabled, or the manager is not yet authenticated,
// it returns true and defers the decision to the gateway. For safety, an
// authenticated identity with an empty allow-list denies everything rather
// than permitting it.
func (a *AuthManager) CanPublish(subject string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.enforceLocally || a.state != AuthAuthenticated {
		return true
	}
	return a.identity.CanPublish(subject)
}

// CanSubscribe reports whether subscribing to pattern is locally permitted,
// under the same rules as CanPublish.
func (a *AuthManager) CanSubscribe(pattern string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.enforceLocally || a.state != AuthAuthenticated {
		return true
	}
	return a.identity.CanSubscribe(pattern)
}
