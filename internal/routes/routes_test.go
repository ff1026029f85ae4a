package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/sahihnews/sahihnews/internal/auth"
	"github.com/sahihnews/sahihnews/internal/consensus"
	"github.com/sahihnews/sahihnews/internal/litedb"
	"github.com/sahihnews/sahihnews/internal/models"
	"github.com/sahihnews/sahihnews/internal/service"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	db       *litedb.DB
	router   chi.Router
	verifier *auth.Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := litedb.NewDB(filepath.Join(t.TempDir(), "routes.db"))
	require.Nil(t, err)
	t.Cleanup(func() { db.Close() })

	verifier, err := auth.NewVerifier(&models.EnvConfig{
		JWTKey:      "routes-test-key",
		JWTIssuer:   "sahihnews-identity",
		JWTAudience: "sahihnews",
	})
	require.Nil(t, err)
	engine := service.NewEngine(db, consensus.DefaultPolicy(), zerolog.Nop())
	return &testServer{
		db:       db,
		router:   NewRouter(engine, verifier, zerolog.Nop()),
		verifier: verifier,
	}
}

func (s *testServer) token(t *testing.T, userID int) string {
	t.Helper()
	token, err := s.verifier.Sign(models.Identity{UserID: userID, Username: fmt.Sprintf("user%d", userID)}, time.Hour)
	require.Nil(t, err)
	return token
}

// seedUser stores a user directly, for levels and roles the API never grants.
func (s *testServer) seedUser(t *testing.T, id int, level models.ReviewerLevel, score int, role models.UserRole) {
	t.Helper()
	require.Nil(t, s.db.CreateUser(context.Background(), &models.User{
		ID:               id,
		Username:         fmt.Sprintf("user%d", id),
		CredibilityScore: score,
		ReviewerLevel:    level,
		Role:             role,
		CreatedAt:        time.Now().AddDate(0, -4, 0).UTC(),
	}))
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.Nil(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.Nil(t, json.NewDecoder(rec.Body).Decode(dst))
}

func createPost(t *testing.T, s *testServer, token string) int {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/posts", token, map[string]interface{}{
		"content":    "Power restored in the northern district",
		"sourceUrls": []string{"https://example.com/power"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post postView
	decode(t, rec, &post)
	require.Equal(t, models.VerdictUnverified, post.Tag)
	return post.ID
}

func TestConsensusFlow(t *testing.T) {
	require := require.New(t)
	s := newTestServer(t)
	s.seedUser(t, 2, models.LevelL1, 100, models.RoleUser)
	author, reviewer := s.token(t, 1), s.token(t, 2)

	postID := createPost(t, s, author)

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d/consensus", postID), "", nil)
	require.Equal(http.StatusOK, rec.Code)
	var c models.Consensus
	decode(t, rec, &c)
	require.Equal(models.Consensus{PostID: postID, Tag: models.VerdictUnverified}, c)

	rec = s.do(t, http.MethodPut, fmt.Sprintf("/api/posts/%d/review", postID), reviewer, reviewReq{Verdict: "TRUE", Comment: "matches the utility statement"})
	require.Equal(http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &c)
	require.Equal(models.VerdictTrue, c.Tag)
	require.Equal(100, c.Confidence)
	require.Equal(1, c.ReviewCount)

	var reaction struct {
		Added bool `json:"added"`
		models.Consensus
	}
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/reaction", postID), author, reactionReq{Type: "accurate"})
	require.Equal(http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &reaction)
	require.True(reaction.Added)
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/reaction", postID), author, reactionReq{Type: "accurate"})
	decode(t, rec, &reaction)
	require.False(reaction.Added)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d/review", postID), reviewer, nil)
	require.Equal(http.StatusOK, rec.Code)
	decode(t, rec, &c)
	require.Equal(models.VerdictUnverified, c.Tag)

	// The author got a notification for each tag change.
	rec = s.do(t, http.MethodGet, "/api/me/notifications", author, nil)
	require.Equal(http.StatusOK, rec.Code)
	var notifs []models.NotifView
	decode(t, rec, &notifs)
	require.Len(notifs, 2)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)
	postID := createPost(t, s, s.token(t, 1))
	path := fmt.Sprintf("/api/posts/%d/review", postID)

	expired, err := s.verifier.Sign(models.Identity{UserID: 3}, -time.Minute)
	require.Nil(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no token", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"garbage", "Bearer nope"},
		{"expired", "Bearer " + expired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString(`{"verdict":"true"}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	rec := s.do(t, http.MethodGet, "/api/me", s.token(t, 5), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		models.UserView
		Role models.UserRole `json:"role"`
	}
	decode(t, rec, &me)
	require.Equal(t, 5, me.ID)
	require.Equal(t, models.DefaultCredibility, me.CredibilityScore)
	require.Equal(t, models.RoleUser, me.Role)
}

func TestErrorStatus(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, 1)
	postID := createPost(t, s, token)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"bad verdict", http.MethodPut, fmt.Sprintf("/api/posts/%d/review", postID), reviewReq{Verdict: "maybe"}, http.StatusBadRequest},
		{"unknown field", http.MethodPut, fmt.Sprintf("/api/posts/%d/review", postID), map[string]string{"rating": "5"}, http.StatusBadRequest},
		{"missing post", http.MethodPut, fmt.Sprintf("/api/posts/%d/review", postID+1), reviewReq{Verdict: "true"}, http.StatusNotFound},
		{"own post", http.MethodPut, fmt.Sprintf("/api/posts/%d/review", postID), reviewReq{Verdict: "true"}, http.StatusForbidden},
		{"bad post id", http.MethodGet, "/api/posts/abc/consensus", nil, http.StatusBadRequest},
		{"bad reaction", http.MethodPost, fmt.Sprintf("/api/posts/%d/reaction", postID), reactionReq{Type: "love"}, http.StatusBadRequest},
		{"empty post", http.MethodPost, "/api/posts", postReq{Content: "  "}, http.StatusBadRequest},
		{"bad source", http.MethodPost, "/api/posts", postReq{Content: "x", SourceURLs: []string{"ftp://x"}}, http.StatusBadRequest},
		{"missing user", http.MethodGet, "/api/users/999", nil, http.StatusNotFound},
		{"recompute needs moderator", http.MethodPost, fmt.Sprintf("/api/posts/%d/recompute", postID), nil, http.StatusForbidden},
		{"moderation needs moderator", http.MethodPost, "/api/moderation/users/1/suspend", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, token, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body struct {
				Error string `json:"error"`
			}
			decode(t, rec, &body)
			require.NotEmpty(t, body.Error)
		})
	}
}

func TestErrFromDomain(t *testing.T) {
	tests := []struct {
		err       error
		status    int
		retryable bool
	}{
		{fmt.Errorf("read post: %w", models.ErrNotFound), http.StatusNotFound, false},
		{models.ErrUnauthorized, http.StatusUnauthorized, false},
		{models.ErrMissingPerms{Perms: []models.Perm{models.PermDemoteReviewer}}, http.StatusForbidden, false},
		{fmt.Errorf("%w: gave up", models.ErrTransient), http.StatusConflict, true},
		{models.ErrConflict, http.StatusConflict, true},
		{consensus.ErrInvalidTransition, http.StatusBadRequest, false},
		{errors.New("disk on fire"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		appErr := ErrFromDomain(tt.err)
		require.Equal(t, tt.status, appErr.StatusCode(), "%v", tt.err)
		require.Equal(t, tt.retryable, appErr.Retryable, "%v", tt.err)
	}
}

func TestLevelingFlow(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := newTestServer(t)
	s.seedUser(t, 10, models.LevelNone, 80, models.RoleUser)
	s.seedUser(t, 20, models.LevelNone, 50, models.RoleModerator)
	s.seedUser(t, 30, models.LevelNone, 50, models.RoleAdmin)
	applicant, moderator, admin := s.token(t, 10), s.token(t, 20), s.token(t, 30)

	rec := s.do(t, http.MethodPost, "/api/me/reviewer-application", applicant, nil)
	require.Equal(http.StatusOK, rec.Code)
	var elig consensus.Eligibility
	decode(t, rec, &elig)
	require.False(elig.Eligible)
	require.Equal([]consensus.Requirement{consensus.ReqPostCount}, elig.Missing)

	for i := 0; i < 25; i++ {
		require.Nil(s.db.CreatePost(ctx, &models.Post{AuthorID: 10, Content: "update", SourceURLs: []string{}}))
	}

	rec = s.do(t, http.MethodGet, "/api/users/10/eligibility", "", nil)
	require.Equal(http.StatusOK, rec.Code)
	decode(t, rec, &elig)
	require.True(elig.Eligible)
	require.Equal(models.LevelL1, elig.To)

	rec = s.do(t, http.MethodPost, "/api/me/reviewer-application", applicant, nil)
	require.Equal(http.StatusAccepted, rec.Code, rec.Body.String())
	var res struct {
		Eligible    bool                     `json:"eligible"`
		Application *models.LevelApplication `json:"application"`
	}
	decode(t, rec, &res)
	require.True(res.Eligible)
	require.Equal(models.ApplicationPending, res.Application.Status)

	approve := fmt.Sprintf("/api/moderation/applications/%d/approve", res.Application.ID)
	rec = s.do(t, http.MethodPost, approve, applicant, nil)
	require.Equal(http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPost, approve, moderator, nil)
	require.Equal(http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, approve, moderator, nil)
	require.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users/10", "", nil)
	var profile models.UserView
	decode(t, rec, &profile)
	require.Equal(models.LevelL1, profile.ReviewerLevel)

	rec = s.do(t, http.MethodPost, "/api/moderation/users/10/suspend", moderator, nil)
	require.Equal(http.StatusOK, rec.Code)
	decode(t, rec, &profile)
	require.True(profile.Suspended)
	rec = s.do(t, http.MethodPost, "/api/moderation/users/10/unsuspend", moderator, nil)
	decode(t, rec, &profile)
	require.False(profile.Suspended)

	rec = s.do(t, http.MethodPost, "/api/moderation/users/10/demote", moderator, nil)
	require.Equal(http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/moderation/users/10/demote", admin, nil)
	require.Equal(http.StatusOK, rec.Code)
	decode(t, rec, &profile)
	require.Equal(models.LevelNone, profile.ReviewerLevel)
	rec = s.do(t, http.MethodPost, "/api/moderation/users/10/demote", admin, nil)
	require.Equal(http.StatusBadRequest, rec.Code)
}
