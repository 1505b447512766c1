// Package identity maps external OAuth identities to internal user records,
// merging with curator-seeded unclaimed profiles on first login.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"deltapronet/api/internal/linkedin"
	"deltapronet/api/internal/store"
	"deltapronet/api/internal/util"
)

// ExternalAccount is a verified identity from the OAuth provider.
type ExternalAccount struct {
	Provider          string
	ProviderAccountID string
	Name              string
	Email             string
	Picture           string
}

type accountStore interface {
	GetOAuthAccount(ctx context.Context, provider, providerAccountID string) (store.OAuthAccount, error)
	UpsertOAuthAccount(ctx context.Context, account store.OAuthAccount) error
	GetUser(ctx context.Context, userID string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
	ClaimUserByLinkedInURL(ctx context.Context, linkedInURL string, email, avatarURL *string) (store.User, bool, error)
}

// Resolver performs the identity resolution described above.
type Resolver struct {
	store accountStore
}

func NewResolver(s accountStore) *Resolver {
	return &Resolver{store: s}
}

// Resolve translates a successful OAuth handshake into an internal user.
//
// Returning users resolve through their provider link. On first login the
// resolver attempts a single conditional claim of an unclaimed profile whose
// canonical profile URL matches the provider subject; if none matches, a
// fresh claimed user is created. If binding the provider link fails after a
// claim succeeded, the claim is not rolled back; the next login retries the
// binding (at-least-once, never exactly-once).
func (r *Resolver) Resolve(ctx context.Context, account ExternalAccount) (store.User, error) {
	if account.Provider == "" || account.ProviderAccountID == "" {
		return store.User{}, fmt.Errorf("identity: provider and subject are required")
	}

	link, err := r.store.GetOAuthAccount(ctx, account.Provider, account.ProviderAccountID)
	if err == nil {
		return r.store.GetUser(ctx, link.UserID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, fmt.Errorf("identity: lookup account: %w", err)
	}

	profileURL := linkedin.CanonicalProfileURL(account.ProviderAccountID)
	email := optional(account.Email)
	avatar := optional(account.Picture)

	claimed, ok, err := r.store.ClaimUserByLinkedInURL(ctx, profileURL, email, avatar)
	if err != nil {
		return store.User{}, fmt.Errorf("identity: auto-claim: %w", err)
	}
	if ok {
		log.Printf("identity: auto-claimed profile %s for %s subject %s", claimed.ID, account.Provider, account.ProviderAccountID)
		if err := r.bindAccount(ctx, account, claimed.ID); err != nil {
			return store.User{}, err
		}
		return claimed, nil
	}

	user := store.User{
		ID:          util.NewID("usr"),
		DisplayName: account.Name,
		Email:       email,
		LinkedInURL: optional(profileURL),
		AvatarURL:   avatar,
		Role:        "MEMBER",
		Claimed:     true,
	}
	if user.DisplayName == "" {
		user.DisplayName = "New Member"
	}
	if err := r.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("identity: create user: %w", err)
	}
	if err := r.bindAccount(ctx, account, user.ID); err != nil {
		return store.User{}, err
	}
	return user, nil
}

func (r *Resolver) bindAccount(ctx context.Context, account ExternalAccount, userID string) error {
	err := r.store.UpsertOAuthAccount(ctx, store.OAuthAccount{
		ID:                util.NewID("acc"),
		Provider:          account.Provider,
		ProviderAccountID: account.ProviderAccountID,
		UserID:            userID,
	})
	if err != nil {
		return fmt.Errorf("identity: bind account: %w", err)
	}
	return nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
