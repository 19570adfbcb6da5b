package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"tickerchat-go/internal/storage"
)

// DocumentName is the storage document holding all identities, a JSON object
// keyed by identity name.
const DocumentName = "credentials"

// Store reads and writes the credential document. Writes rewrite the whole
// document but only touch the mutable fields of one identity, and only after
// the stored client id matches the caller's, so one identity can never
// clobber another's entry.
type Store struct {
	backend storage.Backend
	mu      sync.Mutex
}

// NewStore creates a credential store on top of a storage backend.
func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

// Load reads one identity out of the credential document. A missing document,
// missing entry or incomplete entry is a configuration error.
func (s *Store) Load(ctx context.Context, name string) (*Identity, error) {
	data, err := s.backend.GetDocument(ctx, DocumentName)
	if err != nil {
		return nil, fmt.Errorf("read credential document: %w", err)
	}

	entry := gjson.GetBytes(data, name)
	if !entry.Exists() {
		return nil, fmt.Errorf("identity %q not present in credential document", name)
	}

	var identity Identity
	if err := json.Unmarshal([]byte(entry.Raw), &identity); err != nil {
		return nil, fmt.Errorf("parse identity %q: %w", name, err)
	}
	identity.Name = name

	if identity.ClientID == "" || identity.ClientSecret == "" {
		return nil, fmt.Errorf("identity %q missing client credentials", name)
	}
	if identity.RefreshToken == "" {
		return nil, fmt.Errorf("identity %q missing refresh token", name)
	}
	if identity.BroadcasterID == "" {
		return nil, fmt.Errorf("identity %q missing broadcaster id", name)
	}
	return &identity, nil
}

// SaveTokens persists one identity's refresh token, access token and user id
// back into the credential document. The write is refused when the stored
// client id does not match the snapshot's.
func (s *Store) SaveTokens(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.GetDocument(ctx, DocumentName)
	if err != nil {
		return fmt.Errorf("read credential document: %w", err)
	}

	storedClientID := gjson.GetBytes(data, snap.Name+".client_id").String()
	if storedClientID != snap.ClientID {
		return fmt.Errorf("client id mismatch for identity %q, refusing to write", snap.Name)
	}

	for _, field := range []struct {
		path  string
		value string
	}{
		{snap.Name + ".refresh_token", snap.RefreshToken},
		{snap.Name + ".access_token", snap.AccessToken},
		{snap.Name + ".user_id", snap.UserID},
	} {
		if data, err = sjson.SetBytes(data, field.path, field.value); err != nil {
			return fmt.Errorf("update %s: %w", field.path, err)
		}
	}

	if err := s.backend.SetDocument(ctx, DocumentName, data); err != nil {
		return fmt.Errorf("write credential document: %w", err)
	}
	return nil
}
