package identity

import (
	"context"
	"database/sql"
	"testing"

	"deltapronet/api/internal/store"
)

type fakeAccountStore struct {
	getOAuthAccountFn        func(ctx context.Context, provider, providerAccountID string) (store.OAuthAccount, error)
	upsertOAuthAccountFn     func(ctx context.Context, account store.OAuthAccount) error
	getUserFn                func(ctx context.Context, userID string) (store.User, error)
	createUserFn             func(ctx context.Context, user store.User) error
	claimUserByLinkedInURLFn func(ctx context.Context, linkedInURL string, email, avatarURL *string) (store.User, bool, error)
}

func (f *fakeAccountStore) GetOAuthAccount(ctx context.Context, provider, providerAccountID string) (store.OAuthAccount, error) {
	if f.getOAuthAccountFn != nil {
		return f.getOAuthAccountFn(ctx, provider, providerAccountID)
	}
	return store.OAuthAccount{}, sql.ErrNoRows
}

func (f *fakeAccountStore) UpsertOAuthAccount(ctx context.Context, account store.OAuthAccount) error {
	if f.upsertOAuthAccountFn != nil {
		return f.upsertOAuthAccountFn(ctx, account)
	}
	return nil
}

func (f *fakeAccountStore) GetUser(ctx context.Context, userID string) (store.User, error) {
	if f.getUserFn != nil {
		return f.getUserFn(ctx, userID)
	}
	return store.User{}, sql.ErrNoRows
}

func (f *fakeAccountStore) CreateUser(ctx context.Context, user store.User) error {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	return nil
}

func (f *fakeAccountStore) ClaimUserByLinkedInURL(ctx context.Context, linkedInURL string, email, avatarURL *string) (store.User, bool, error) {
	if f.claimUserByLinkedInURLFn != nil {
		return f.claimUserByLinkedInURLFn(ctx, linkedInURL, email, avatarURL)
	}
	return store.User{}, false, nil
}

func linkedInAccount() ExternalAccount {
	return ExternalAccount{
		Provider:          "linkedin",
		ProviderAccountID: "abc123",
		Name:              "A. Smith",
		Email:             "a.smith@example.com",
		Picture:           "https://media.example.com/a-smith.jpg",
	}
}

func TestResolveReturningUser(t *testing.T) {
	fs := &fakeAccountStore{
		getOAuthAccountFn: func(_ context.Context, provider, id string) (store.OAuthAccount, error) {
			if provider != "linkedin" || id != "abc123" {
				t.Fatalf("unexpected account lookup %s/%s", provider, id)
			}
			return store.OAuthAccount{UserID: "usr_existing"}, nil
		},
		getUserFn: func(_ context.Context, userID string) (store.User, error) {
			return store.User{ID: userID, Role: "CURATOR", Claimed: true}, nil
		},
	}

	user, err := NewResolver(fs).Resolve(context.Background(), linkedInAccount())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.ID != "usr_existing" {
		t.Fatalf("expected existing user, got %s", user.ID)
	}
	// Role comes from storage, never from the provider.
	if user.Role != "CURATOR" {
		t.Fatalf("expected stored role, got %s", user.Role)
	}
}

func TestResolveAutoClaimsSeededProfile(t *testing.T) {
	var claimedURL string
	var boundUserID string
	fs := &fakeAccountStore{
		claimUserByLinkedInURLFn: func(_ context.Context, url string, email, avatar *string) (store.User, bool, error) {
			claimedURL = url
			if email == nil || *email != "a.smith@example.com" {
				t.Fatalf("claim must carry the provider email, got %v", email)
			}
			return store.User{ID: "usr_seeded", DisplayName: "A. Smith", Role: "MEMBER", Claimed: true}, true, nil
		},
		upsertOAuthAccountFn: func(_ context.Context, account store.OAuthAccount) error {
			boundUserID = account.UserID
			return nil
		},
		createUserFn: func(_ context.Context, user store.User) error {
			t.Fatal("no fresh user must be created when a seeded profile matches")
			return nil
		},
	}

	user, err := NewResolver(fs).Resolve(context.Background(), linkedInAccount())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.ID != "usr_seeded" {
		t.Fatalf("expected the seeded profile id, got %s", user.ID)
	}
	if user.Role != "MEMBER" {
		t.Fatalf("auto-claim must not change role, got %s", user.Role)
	}
	if claimedURL != "https://www.linkedin.com/in/abc123" {
		t.Fatalf("unexpected canonical url %q", claimedURL)
	}
	if boundUserID != "usr_seeded" {
		t.Fatalf("provider link must be re-pointed to the claimed profile, bound to %q", boundUserID)
	}
}

func TestResolveCreatesFreshUser(t *testing.T) {
	var created store.User
	fs := &fakeAccountStore{
		createUserFn: func(_ context.Context, user store.User) error {
			created = user
			return nil
		},
	}

	user, err := NewResolver(fs).Resolve(context.Background(), linkedInAccount())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if created.ID == "" || user.ID != created.ID {
		t.Fatalf("expected resolve to return the created user, got %q vs %q", user.ID, created.ID)
	}
	if !created.Claimed {
		t.Fatal("fresh signup must be created claimed")
	}
	if created.Role != "MEMBER" {
		t.Fatalf("fresh signup role = %s, want MEMBER", created.Role)
	}
	if created.LinkedInURL == nil || *created.LinkedInURL != "https://www.linkedin.com/in/abc123" {
		t.Fatalf("fresh signup must carry the canonical url, got %v", created.LinkedInURL)
	}
}

func TestResolveRejectsEmptySubject(t *testing.T) {
	_, err := NewResolver(&fakeAccountStore{}).Resolve(context.Background(), ExternalAccount{Provider: "linkedin"})
	if err == nil {
		t.Fatal("expected error for missing subject")
	}
}
