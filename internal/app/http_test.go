package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"deltapronet/api/internal/store"
)

func newTestServer(t *testing.T, fs *fakeStore) (*httptest.Server, *Service) {
	t.Helper()
	svc := newTestService(fs)
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	t.Cleanup(server.Close)
	return server, svc
}

func tokenFor(t *testing.T, svc *Service, user store.User) string {
	t.Helper()
	session, err := svc.issueSession(context.Background(), user)
	if err != nil {
		t.Fatalf("issueSession() error = %v", err)
	}
	return session.Token
}

func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func usersByID(users map[string]store.User) func(context.Context, string) (store.User, error) {
	return func(_ context.Context, userID string) (store.User, error) {
		user, ok := users[userID]
		if !ok {
			return store.User{}, sql.ErrNoRows
		}
		return user, nil
	}
}

func TestHealthEndpointNeedsNoSession(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp := doRequest(t, http.MethodGet, server.URL+"/api/health", "", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}

func TestModerationEndpointsRBACMatrix(t *testing.T) {
	users := map[string]store.User{
		"usr_member":    {ID: "usr_member", DisplayName: "Member", Role: "MEMBER", Claimed: true},
		"usr_moderator": {ID: "usr_moderator", DisplayName: "Mod", Role: "MODERATOR", Claimed: true},
		"usr_curator":   {ID: "usr_curator", DisplayName: "Curator", Role: "CURATOR", Claimed: true},
	}
	fs := &fakeStore{getUserFn: usersByID(users)}
	server, svc := newTestServer(t, fs)

	tokens := map[string]string{
		"usr_member":    tokenFor(t, svc, users["usr_member"]),
		"usr_moderator": tokenFor(t, svc, users["usr_moderator"]),
		"usr_curator":   tokenFor(t, svc, users["usr_curator"]),
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		actor  string
		status int
	}{
		{name: "member cannot read moderation queue", method: http.MethodGet, path: "/api/moderation/queue", actor: "usr_member", status: http.StatusForbidden},
		{name: "moderator reads moderation queue", method: http.MethodGet, path: "/api/moderation/queue", actor: "usr_moderator", status: http.StatusOK},
		{name: "curator reads moderation queue", method: http.MethodGet, path: "/api/moderation/queue", actor: "usr_curator", status: http.StatusOK},
		{name: "member cannot delete questions", method: http.MethodDelete, path: "/api/questions/qst_1", actor: "usr_member", status: http.StatusForbidden},
		{name: "moderator deletes questions", method: http.MethodDelete, path: "/api/questions/qst_1", actor: "usr_moderator", status: http.StatusOK},
		{name: "member cannot approve comments", method: http.MethodPatch, path: "/api/comments/cmt_1/approve", body: `{"approved":true}`, actor: "usr_member", status: http.StatusForbidden},
		{name: "member cannot create curated profiles", method: http.MethodPost, path: "/api/people", body: `{"displayName":"New Person"}`, actor: "usr_member", status: http.StatusForbidden},
		{name: "curator creates curated profiles", method: http.MethodPost, path: "/api/people", body: `{"displayName":"New Person"}`, actor: "usr_curator", status: http.StatusCreated},
		{name: "member cannot delete profiles", method: http.MethodDelete, path: "/api/people/usr_member", actor: "usr_member", status: http.StatusForbidden},
		{name: "curator deletes profiles", method: http.MethodDelete, path: "/api/people/usr_member", actor: "usr_curator", status: http.StatusOK},
		{name: "anonymous is unauthorized", method: http.MethodGet, path: "/api/moderation/queue", actor: "", status: http.StatusUnauthorized},
	}

	// CreateProfile re-reads the created user; widen the fake to cover new ids.
	base := fs.getUserFn
	fs.getUserFn = func(ctx context.Context, userID string) (store.User, error) {
		if user, err := base(ctx, userID); err == nil {
			return user, nil
		}
		if strings.HasPrefix(userID, "usr_") {
			return store.User{ID: userID, DisplayName: "New Person", Role: "MEMBER"}, nil
		}
		return store.User{}, sql.ErrNoRows
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := ""
			if tt.actor != "" {
				token = tokens[tt.actor]
			}
			resp := doRequest(t, tt.method, server.URL+tt.path, token, tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("%s %s as %s: status = %d, want %d", tt.method, tt.path, tt.actor, resp.StatusCode, tt.status)
			}
		})
	}
}

func TestProfileHidesPendingCommentsFromStrangers(t *testing.T) {
	users := map[string]store.User{
		"usr_target":   {ID: "usr_target", DisplayName: "Target", Role: "MEMBER", Claimed: true},
		"usr_author":   {ID: "usr_author", DisplayName: "Author", Role: "MEMBER", Claimed: true},
		"usr_stranger": {ID: "usr_stranger", DisplayName: "Stranger", Role: "MEMBER", Claimed: true},
		"usr_mod":      {ID: "usr_mod", DisplayName: "Mod", Role: "MODERATOR", Claimed: true},
	}
	fs := &fakeStore{
		getUserFn: usersByID(users),
		listCommentsForUserFn: func(_ context.Context, targetUserID string, includePending bool) ([]store.Comment, error) {
			if !includePending {
				t.Fatal("profile load must fetch pending comments and filter in the service")
			}
			return []store.Comment{
				{ID: "cmt_ok", TargetUserID: targetUserID, AuthorID: "usr_other", Approved: true},
				{ID: "cmt_pending", TargetUserID: targetUserID, AuthorID: "usr_author", Approved: false},
			}, nil
		},
	}
	server, svc := newTestServer(t, fs)

	tests := []struct {
		name  string
		actor string
		want  []string
	}{
		{name: "stranger sees approved only", actor: "usr_stranger", want: []string{"cmt_ok"}},
		{name: "author sees own pending comment", actor: "usr_author", want: []string{"cmt_ok", "cmt_pending"}},
		{name: "moderator sees pending comments", actor: "usr_mod", want: []string{"cmt_ok", "cmt_pending"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tokenFor(t, svc, users[tt.actor])
			resp := doRequest(t, http.MethodGet, server.URL+"/api/people/usr_target", token, "")
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("profile status = %d", resp.StatusCode)
			}

			var payload struct {
				Comments []struct {
					ID string `json:"id"`
				} `json:"comments"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				t.Fatalf("decode profile: %v", err)
			}
			got := make([]string, 0, len(payload.Comments))
			for _, comment := range payload.Comments {
				got = append(got, comment.ID)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("comments = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("comments = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSessionEndpointReportsAnonymous(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp := doRequest(t, http.MethodGet, server.URL+"/api/session", "", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session status = %d", resp.StatusCode)
	}
	var payload struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if payload.Authenticated {
		t.Fatal("missing token must report authenticated=false")
	}
}
