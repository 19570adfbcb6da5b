package credential

import "sync"

// Identity holds one service identity's OAuth state. Client identifier and
// secret are immutable for the process lifetime; refresh token, access token
// and user id mutate as the lifecycle advances and are persisted on every
// change.
type Identity struct {
	Name          string `json:"-"`
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	RefreshToken  string `json:"refresh_token"`
	AccessToken   string `json:"access_token,omitempty"`
	BroadcasterID string `json:"broadcaster_id"`
	UserID        string `json:"user_id,omitempty"`

	mu sync.RWMutex
}

// Snapshot is an immutable copy of an identity's fields, safe to use across
// a network call while timers mutate the live identity.
type Snapshot struct {
	Name          string
	ClientID      string
	ClientSecret  string
	RefreshToken  string
	AccessToken   string
	BroadcasterID string
	UserID        string
}

// Snapshot copies the identity under its read lock.
func (i *Identity) Snapshot() Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return Snapshot{
		Name:          i.Name,
		ClientID:      i.ClientID,
		ClientSecret:  i.ClientSecret,
		RefreshToken:  i.RefreshToken,
		AccessToken:   i.AccessToken,
		BroadcasterID: i.BroadcasterID,
		UserID:        i.UserID,
	}
}

// SetTokens replaces the access token and, when non-empty, the refresh token.
func (i *Identity) SetTokens(accessToken, refreshToken string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.AccessToken = accessToken
	if refreshToken != "" {
		i.RefreshToken = refreshToken
	}
}

// SetUserID records the resolved own-user identifier. It returns true when
// the stored value actually changed (first population included).
func (i *Identity) SetUserID(userID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.UserID == userID {
		return false
	}
	i.UserID = userID
	return true
}
