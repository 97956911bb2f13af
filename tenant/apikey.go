package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hupe1980/automesh/core"
)

// keyPrefixLen is the number of plaintext characters retained for key
// identification; long enough to make prefix collisions unlikely, short
// enough to reveal nothing about the secret.
const keyPrefixLen = 12

// generateKey returns a new plaintext API key of the form
// "am_<32 hex chars>" and its identifying prefix.
func generateKey() (plaintext, prefix string) {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	plaintext = "am_" + raw
	return plaintext, plaintext[:keyPrefixLen]
}

// CreateAPIKey issues a new key for a user. The plaintext is returned
// exactly once; only a bcrypt hash and the identifying prefix are retained.
func (r *Registry) CreateAPIKey(ctx context.Context, userID, name string, permissions []string, expiresAt *time.Time) (string, *core.APIKey, error) {
	u, err := r.store.GetUser(userID)
	if err != nil {
		return "", nil, err
	}

	plaintext, prefix := generateKey()
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash api key: %w", err)
	}

	key := core.APIKey{
		ID:          core.NewID(),
		Name:        name,
		Prefix:      prefix,
		SecretHash:  string(hash),
		Permissions: append([]string(nil), permissions...),
		ExpiresAt:   expiresAt,
		CreatedAt:   r.clock(),
	}

	u.APIKeys = append(u.APIKeys, key)
	u.UpdatedAt = r.clock()
	if err := r.store.PutUser(u); err != nil {
		return "", nil, err
	}

	r.LogInfo("api key created", "tenant_id", u.TenantID, "user_id", userID, "prefix", prefix)
	r.emit(core.EventAPIKeyCreated, u.TenantID, map[string]any{"user_id": userID, "prefix": prefix})

	return plaintext, &key, nil
}

// ValidateAPIKey resolves a plaintext key to its owning user and permission
// scopes. Candidate keys are narrowed by prefix before the hash comparison.
// Expired keys and keys of non-active users never match. When nothing
// matches, core.ErrNotFound is returned.
func (r *Registry) ValidateAPIKey(ctx context.Context, key string) (*core.User, []string, error) {
	if len(key) < keyPrefixLen {
		return nil, nil, fmt.Errorf("api key: %w", core.ErrNotFound)
	}
	prefix := key[:keyPrefixLen]
	now := r.clock()

	users, err := r.store.ListAllUsers()
	if err != nil {
		return nil, nil, err
	}

	for _, u := range users {
		if u.Status != core.UserActive {
			continue
		}
		for i := range u.APIKeys {
			k := &u.APIKeys[i]
			if k.Prefix != prefix || k.Expired(now) {
				continue
			}
			if bcrypt.CompareHashAndPassword([]byte(k.SecretHash), []byte(key)) == nil {
				return u, append([]string(nil), k.Permissions...), nil
			}
		}
	}

	return nil, nil, fmt.Errorf("api key: %w", core.ErrNotFound)
}
