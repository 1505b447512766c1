package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"deltapronet/api/internal/auth"
	"deltapronet/api/internal/avatar"
	"deltapronet/api/internal/config"
	"deltapronet/api/internal/email"
	"deltapronet/api/internal/identity"
	"deltapronet/api/internal/linkedin"
	"deltapronet/api/internal/rbac"
	"deltapronet/api/internal/search"
	"deltapronet/api/internal/session"
	"deltapronet/api/internal/store"
	"deltapronet/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	Claimed      bool
	JTI          string
	ExpiresAt    time.Time
}

type CreateProfileInput struct {
	DisplayName     string  `json:"displayName"`
	LinkedInURL     *string `json:"linkedInUrl"`
	Bio             *string `json:"bio"`
	Education       *string `json:"education"`
	YearsExperience *int    `json:"yearsExperience"`
}

type UpdateProfileInput struct {
	DisplayName     *string `json:"displayName"`
	LinkedInURL     *string `json:"linkedInUrl"`
	Bio             *string `json:"bio"`
	Education       *string `json:"education"`
	YearsExperience *int    `json:"yearsExperience"`
}

type SkillRatingInput struct {
	SkillID string `json:"skillId"`
	Rating  int    `json:"rating"`
}

type CreateQuestionInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CreateAnswerInput struct {
	Content string `json:"content"`
}

type CreateCommentInput struct {
	TargetUserID string `json:"targetUserId"`
	Content      string `json:"content"`
}

type ApproveInput struct {
	Approved bool `json:"approved"`
}

type directoryStore interface {
	CreateUser(context.Context, store.User) error
	GetUser(context.Context, string) (store.User, error)
	UpdateUserProfile(ctx context.Context, userID string, displayName string, linkedInURL, bio, education *string, yearsExperience *int) error
	UpdateUserAvatar(context.Context, string, string) error
	ClaimUser(ctx context.Context, userID string, email, avatarURL *string) (bool, error)
	ListUsers(context.Context, store.UserFilter) ([]store.User, error)
	RepointOAuthAccounts(context.Context, string, string) error
	DeleteUser(context.Context, string) (bool, error)
	ListExpertiseAreas(context.Context) ([]store.ExpertiseArea, error)
	ListSkills(context.Context) ([]store.Skill, error)
	ReplaceUserSkills(context.Context, string, []store.UserSkill) error
	ListUserSkills(context.Context, string) ([]store.UserSkillDetail, error)
	InsertQuestion(context.Context, store.Question) error
	GetQuestion(context.Context, string) (store.Question, error)
	ListQuestions(context.Context, string) ([]store.Question, error)
	ListPendingQuestions(context.Context) ([]store.Question, error)
	ApproveQuestion(context.Context, string) (bool, error)
	DeleteQuestion(context.Context, string) (bool, error)
	InsertAnswer(context.Context, store.Answer) error
	ListAnswers(context.Context, string) ([]store.Answer, error)
	InsertComment(context.Context, store.Comment) error
	GetComment(context.Context, string) (store.Comment, error)
	ListCommentsForUser(context.Context, string, bool) ([]store.Comment, error)
	ListPendingComments(context.Context) ([]store.Comment, error)
	ApproveComment(context.Context, string) (bool, error)
	DeleteComment(context.Context, string) (bool, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
}

type identityResolver interface {
	Resolve(ctx context.Context, account identity.ExternalAccount) (store.User, error)
}

type oauthProvider interface {
	Configured() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (linkedin.Profile, error)
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexPerson(p search.PersonRecord)
	IndexQuestion(q search.QuestionRecord)
	DeletePerson(id string)
	DeleteQuestion(id string)
}

type Service struct {
	cfg      config.Config
	store    directoryStore
	sessions sessionStore
	provider oauthProvider
	identity identityResolver
	search   searchService
	email    *email.Service
	avatars  *avatar.Service
}

func New(
	cfg config.Config,
	dataStore *store.PostgresStore,
	sessions *session.RedisStore,
	provider *linkedin.Client,
	resolver *identity.Resolver,
	searchSvc *search.Service,
	emailSvc *email.Service,
	avatars *avatar.Service,
) *Service {
	svc := &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		email:    emailSvc,
		avatars:  avatars,
	}
	if provider != nil {
		svc.provider = provider
	}
	if resolver != nil {
		svc.identity = resolver
	}
	if searchSvc != nil {
		svc.search = searchSvc
	}
	return svc
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) CanEditUser(session Session, targetUserID string) bool {
	return rbac.CanEditUser(session.UserID, targetUserID, rbac.Normalize(session.Role))
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SessionsPing(ctx context.Context) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Ping(ctx)
}

// --- Authentication -------------------------------------------------------

func (s *Service) LinkedInAuthURL(state string) (string, error) {
	if s.provider == nil || !s.provider.Configured() {
		return "", domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "LinkedIn sign-in is not configured", nil)
	}
	return s.provider.AuthURL(state), nil
}

// HandleLinkedInCallback finishes the OAuth flow: exchange the code, resolve
// the identity against the directory, and issue a session. Avatar mirroring
// runs in the background and never blocks the login.
func (s *Service) HandleLinkedInCallback(ctx context.Context, code string) (Session, error) {
	if s.provider == nil || !s.provider.Configured() {
		return Session{}, domainError(http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "LinkedIn sign-in is not configured", nil)
	}

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "OAUTH_FAILED", "LinkedIn sign-in failed", nil)
	}

	user, err := s.identity.Resolve(ctx, identity.ExternalAccount{
		Provider:          "linkedin",
		ProviderAccountID: profile.Subject,
		Name:              profile.Name,
		Email:             profile.Email,
		Picture:           profile.Picture,
	})
	if err != nil {
		return Session{}, err
	}

	if s.avatars.Configured() && profile.Picture != "" {
		userID := user.ID
		s.avatars.MirrorAsync(userID, profile.Picture, func(ctx context.Context, storedURL string) {
			if err := s.store.UpdateUserAvatar(ctx, userID, storedURL); err != nil {
				log.Printf("app: persist mirrored avatar for %s: %v", userID, err)
			}
		})
	}
	s.reindexPerson(ctx, user.ID)

	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub: user.ID,
		JTI: jti,
		Exp: expiresAt,
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		Claimed:      user.Claimed,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh rotates the refresh token: the presented token is revoked before a
// new pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return s.issueSession(ctx, user)
}

// SessionFromToken materializes a session from an access token. Role and
// claimed state come from storage on every call, so role changes apply
// without re-login.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUser(ctx, claims.Sub)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		Claimed:   user.Claimed,
		JTI:       claims.JTI,
		ExpiresAt: claims.Exp,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// --- Directory ------------------------------------------------------------

func (s *Service) CreateProfile(ctx context.Context, session Session, input CreateProfileInput) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionCurate) {
		return nil, errForbidden
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, validationError("displayName is required", nil)
	}

	user := store.User{
		ID:              util.NewID("usr"),
		DisplayName:     displayName,
		LinkedInURL:     trimOptional(input.LinkedInURL),
		Bio:             trimOptional(input.Bio),
		Education:       trimOptional(input.Education),
		YearsExperience: input.YearsExperience,
		Role:            string(rbac.RoleMember),
		Claimed:         false,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.reindexPerson(ctx, user.ID)
	return s.GetProfile(ctx, session, user.ID)
}

func (s *Service) ListPeople(ctx context.Context, filter store.UserFilter) (map[string]any, error) {
	users, err := s.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(users))
	for _, user := range users {
		items = append(items, renderUserSummary(user))
	}
	return map[string]any{"people": items}, nil
}

func (s *Service) GetProfile(ctx context.Context, session Session, userID string) (map[string]any, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	skills, err := s.store.ListUserSkills(ctx, userID)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListCommentsForUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	visible := make([]map[string]any, 0, len(comments))
	for _, comment := range comments {
		if !s.commentVisible(session, comment) {
			continue
		}
		visible = append(visible, renderComment(comment))
	}

	payload := renderUser(user)
	payload["skills"] = renderSkills(skills)
	payload["comments"] = visible
	return payload, nil
}

func (s *Service) UpdateProfile(ctx context.Context, session Session, userID string, input UpdateProfileInput) (map[string]any, error) {
	if !s.CanEditUser(session, userID) {
		return nil, errForbidden
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	displayName := user.DisplayName
	if input.DisplayName != nil {
		displayName = strings.TrimSpace(*input.DisplayName)
		if displayName == "" {
			return nil, validationError("displayName must not be blank", nil)
		}
	}
	linkedInURL := user.LinkedInURL
	if input.LinkedInURL != nil {
		linkedInURL = trimOptional(input.LinkedInURL)
	}
	bio := user.Bio
	if input.Bio != nil {
		bio = trimOptional(input.Bio)
	}
	education := user.Education
	if input.Education != nil {
		education = trimOptional(input.Education)
	}
	yearsExperience := user.YearsExperience
	if input.YearsExperience != nil {
		yearsExperience = input.YearsExperience
	}

	if err := s.store.UpdateUserProfile(ctx, userID, displayName, linkedInURL, bio, education, yearsExperience); err != nil {
		return nil, err
	}
	s.reindexPerson(ctx, userID)
	return s.GetProfile(ctx, session, userID)
}

func (s *Service) DeleteProfile(ctx context.Context, session Session, userID string) error {
	if !s.Can(session.Role, rbac.ActionCurate) {
		return errForbidden
	}
	deleted, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return sql.ErrNoRows
	}
	if s.search != nil {
		s.search.DeletePerson(userID)
	}
	return nil
}

// ClaimProfile is the explicit claim flow: the signed-in member takes over an
// unclaimed curated profile whose canonical LinkedIn URL matches their own.
// On success the member's provider links are re-pointed at the claimed
// profile, their placeholder record is removed, and a fresh session for the
// claimed profile is issued.
func (s *Service) ClaimProfile(ctx context.Context, session Session, targetUserID string) (map[string]any, error) {
	target, err := s.store.GetUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	if target.Claimed {
		return nil, domainError(http.StatusConflict, "ALREADY_CLAIMED", "This profile has already been claimed", nil)
	}

	actor, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if actor.LinkedInURL == nil || target.LinkedInURL == nil || *actor.LinkedInURL != *target.LinkedInURL {
		return nil, domainError(http.StatusForbidden, "CLAIM_MISMATCH",
			"This profile is linked to a different LinkedIn account. Contact a curator if you believe this is an error.", nil)
	}

	claimed, err := s.store.ClaimUser(ctx, targetUserID, actor.Email, actor.AvatarURL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost the race against a concurrent claim.
		return nil, domainError(http.StatusConflict, "ALREADY_CLAIMED", "This profile has already been claimed", nil)
	}

	if session.UserID != targetUserID {
		if err := s.store.RepointOAuthAccounts(ctx, session.UserID, targetUserID); err != nil {
			return nil, err
		}
		if _, err := s.store.DeleteUser(ctx, session.UserID); err != nil {
			return nil, err
		}
		if s.search != nil {
			s.search.DeletePerson(session.UserID)
		}
	}
	s.reindexPerson(ctx, targetUserID)

	user, err := s.store.GetUser(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	newSession, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	payload := renderUser(user)
	payload["token"] = newSession.Token
	payload["refreshToken"] = newSession.RefreshToken
	return payload, nil
}

// --- Skills ---------------------------------------------------------------

func (s *Service) ListExpertiseAreas(ctx context.Context) (map[string]any, error) {
	areas, err := s.store.ListExpertiseAreas(ctx)
	if err != nil {
		return nil, err
	}
	skills, err := s.store.ListSkills(ctx)
	if err != nil {
		return nil, err
	}

	skillsByArea := make(map[string][]map[string]any, len(areas))
	for _, skill := range skills {
		skillsByArea[skill.ExpertiseAreaID] = append(skillsByArea[skill.ExpertiseAreaID], map[string]any{
			"id":   skill.ID,
			"name": skill.Name,
			"type": skill.Type,
		})
	}

	items := make([]map[string]any, 0, len(areas))
	for _, area := range areas {
		areaSkills := skillsByArea[area.ID]
		if areaSkills == nil {
			areaSkills = []map[string]any{}
		}
		items = append(items, map[string]any{
			"id":          area.ID,
			"name":        area.Name,
			"description": area.Description,
			"skills":      areaSkills,
		})
	}
	return map[string]any{"areas": items}, nil
}

// ReplaceSkills swaps the user's entire skill set. Ratings outside [1,5] are
// clamped to the nearest bound; removing a skill means omitting it from the
// submitted set.
func (s *Service) ReplaceSkills(ctx context.Context, session Session, userID string, inputs []SkillRatingInput) (map[string]any, error) {
	if !s.CanEditUser(session, userID) {
		return nil, errForbidden
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(inputs))
	skills := make([]store.UserSkill, 0, len(inputs))
	for _, input := range inputs {
		skillID := strings.TrimSpace(input.SkillID)
		if skillID == "" {
			return nil, validationError("skillId is required", nil)
		}
		if _, dup := seen[skillID]; dup {
			return nil, validationError("duplicate skillId "+skillID, nil)
		}
		seen[skillID] = struct{}{}
		skills = append(skills, store.UserSkill{
			UserID:  userID,
			SkillID: skillID,
			Rating:  clampRating(input.Rating),
		})
	}

	if err := s.store.ReplaceUserSkills(ctx, userID, skills); err != nil {
		return nil, err
	}
	s.reindexPerson(ctx, userID)

	updated, err := s.store.ListUserSkills(ctx, userID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"userId": userID, "skills": renderSkills(updated)}, nil
}

func clampRating(rating int) int {
	if rating < 1 {
		return 1
	}
	if rating > 5 {
		return 5
	}
	return rating
}

// --- Questions and answers ------------------------------------------------

func (s *Service) CreateQuestion(ctx context.Context, session Session, input CreateQuestionInput) (map[string]any, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" {
		return nil, validationError("title is required", nil)
	}
	if content == "" {
		return nil, validationError("content is required", nil)
	}

	question := store.Question{
		ID:       util.NewID("qst"),
		Title:    title,
		Content:  content,
		AuthorID: session.UserID,
		Approved: false,
	}
	if err := s.store.InsertQuestion(ctx, question); err != nil {
		return nil, err
	}
	s.notifyModeration("question", session.UserName, title)

	question.AuthorName = session.UserName
	return renderQuestion(question), nil
}

// GetQuestion hides pending questions from everyone except their author and
// moderators; to anyone else a pending question does not exist.
func (s *Service) GetQuestion(ctx context.Context, session Session, questionID string) (map[string]any, error) {
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !question.Approved && question.AuthorID != session.UserID && !s.Can(session.Role, rbac.ActionModerate) {
		return nil, sql.ErrNoRows
	}

	answers, err := s.store.ListAnswers(ctx, questionID)
	if err != nil {
		return nil, err
	}
	answerItems := make([]map[string]any, 0, len(answers))
	for _, answer := range answers {
		answerItems = append(answerItems, renderAnswer(answer))
	}

	payload := renderQuestion(question)
	payload["answers"] = answerItems
	return payload, nil
}

func (s *Service) ListQuestions(ctx context.Context, session Session) (map[string]any, error) {
	questions, err := s.store.ListQuestions(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(questions))
	for _, question := range questions {
		items = append(items, renderQuestion(question))
	}
	return map[string]any{"questions": items}, nil
}

// ApproveQuestion accepts only {"approved": true}. There is no revert to
// pending; rejection is deletion.
func (s *Service) ApproveQuestion(ctx context.Context, session Session, questionID string, input ApproveInput) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionModerate) {
		return nil, errForbidden
	}
	if !input.Approved {
		return nil, validationError("approved must be true; delete to reject", nil)
	}
	changed, err := s.store.ApproveQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, sql.ErrNoRows
	}

	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexQuestion(search.QuestionRecord{
			ID:      question.ID,
			Title:   question.Title,
			Content: question.Content,
			Author:  question.AuthorName,
		})
	}
	s.notifyApproval(ctx, question.AuthorID, "question")
	return renderQuestion(question), nil
}

func (s *Service) DeleteQuestion(ctx context.Context, session Session, questionID string) error {
	if !s.Can(session.Role, rbac.ActionModerate) {
		return errForbidden
	}
	deleted, err := s.store.DeleteQuestion(ctx, questionID)
	if err != nil {
		return err
	}
	if !deleted {
		return sql.ErrNoRows
	}
	if s.search != nil {
		s.search.DeleteQuestion(questionID)
	}
	return nil
}

// CreateAnswer requires an approved question; answering a pending question
// reports NotFound, the same as answering a missing one.
func (s *Service) CreateAnswer(ctx context.Context, session Session, questionID string, input CreateAnswerInput) (map[string]any, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, validationError("content is required", nil)
	}
	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !question.Approved {
		return nil, sql.ErrNoRows
	}

	answer := store.Answer{
		ID:         util.NewID("ans"),
		QuestionID: questionID,
		Content:    content,
		AuthorID:   session.UserID,
	}
	if err := s.store.InsertAnswer(ctx, answer); err != nil {
		return nil, err
	}
	answer.AuthorName = session.UserName
	return renderAnswer(answer), nil
}

// --- Comments -------------------------------------------------------------

func (s *Service) CreateComment(ctx context.Context, session Session, input CreateCommentInput) (map[string]any, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, validationError("content is required", nil)
	}
	targetUserID := strings.TrimSpace(input.TargetUserID)
	if targetUserID == "" {
		return nil, validationError("targetUserId is required", nil)
	}
	if _, err := s.store.GetUser(ctx, targetUserID); err != nil {
		return nil, err
	}

	comment := store.Comment{
		ID:           util.NewID("cmt"),
		Content:      content,
		AuthorID:     session.UserID,
		TargetUserID: targetUserID,
		Approved:     false,
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return nil, err
	}
	s.notifyModeration("comment", session.UserName, content)

	comment.AuthorName = session.UserName
	return renderComment(comment), nil
}

func (s *Service) ApproveComment(ctx context.Context, session Session, commentID string, input ApproveInput) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionModerate) {
		return nil, errForbidden
	}
	if !input.Approved {
		return nil, validationError("approved must be true; delete to reject", nil)
	}
	changed, err := s.store.ApproveComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, sql.ErrNoRows
	}

	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	s.notifyApproval(ctx, comment.AuthorID, "comment")
	return renderComment(comment), nil
}

func (s *Service) DeleteComment(ctx context.Context, session Session, commentID string) error {
	if !s.Can(session.Role, rbac.ActionModerate) {
		return errForbidden
	}
	deleted, err := s.store.DeleteComment(ctx, commentID)
	if err != nil {
		return err
	}
	if !deleted {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Service) ModerationQueue(ctx context.Context, session Session) (map[string]any, error) {
	if !s.Can(session.Role, rbac.ActionModerate) {
		return nil, errForbidden
	}
	questions, err := s.store.ListPendingQuestions(ctx)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListPendingComments(ctx)
	if err != nil {
		return nil, err
	}

	questionItems := make([]map[string]any, 0, len(questions))
	for _, question := range questions {
		questionItems = append(questionItems, renderQuestion(question))
	}
	commentItems := make([]map[string]any, 0, len(comments))
	for _, comment := range comments {
		commentItems = append(commentItems, renderComment(comment))
	}
	return map[string]any{
		"questions": questionItems,
		"comments":  commentItems,
	}, nil
}

// --- Search ---------------------------------------------------------------

func (s *Service) Search(ctx context.Context, text, filterType, filterArea string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	var resultType search.ResultType
	switch filterType {
	case "":
	case string(search.ResultPerson):
		resultType = search.ResultPerson
	case string(search.ResultQuestion):
		resultType = search.ResultQuestion
	default:
		return search.Response{}, validationError("type must be 'person' or 'question'", nil)
	}
	return s.search.Search(search.Query{
		Text:       text,
		FilterType: resultType,
		FilterArea: filterArea,
		Limit:      limit,
		Offset:     offset,
	}), nil
}

func (s *Service) reindexPerson(ctx context.Context, userID string) {
	if s.search == nil {
		return
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return
	}
	skills, err := s.store.ListUserSkills(ctx, userID)
	if err != nil {
		return
	}

	record := search.PersonRecord{
		ID:        user.ID,
		Name:      user.DisplayName,
		Bio:       deref(user.Bio),
		Education: deref(user.Education),
	}
	areaSeen := make(map[string]struct{})
	for _, skill := range skills {
		record.Skills = append(record.Skills, skill.SkillName)
		if _, ok := areaSeen[skill.AreaName]; !ok {
			areaSeen[skill.AreaName] = struct{}{}
			record.Areas = append(record.Areas, skill.AreaName)
		}
	}
	s.search.IndexPerson(record)
}

// --- Notifications --------------------------------------------------------

func (s *Service) notifyModeration(contentKind, authorName, excerpt string) {
	if s.email == nil || !s.email.IsConfigured() || s.cfg.ModerationEmail == "" {
		return
	}
	queueURL := strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/api/moderation/queue"
	go func() {
		if err := s.email.SendModerationNotice([]string{s.cfg.ModerationEmail}, contentKind, authorName, excerpt, queueURL); err != nil {
			log.Printf("app: moderation notice: %v", err)
		}
	}()
}

func (s *Service) notifyApproval(ctx context.Context, authorID, contentKind string) {
	if s.email == nil || !s.email.IsConfigured() {
		return
	}
	author, err := s.store.GetUser(ctx, authorID)
	if err != nil || author.Email == nil {
		return
	}
	to := *author.Email
	name := author.DisplayName
	contentURL := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	go func() {
		if err := s.email.SendApprovalNotice(to, name, contentKind, contentURL); err != nil {
			log.Printf("app: approval notice: %v", err)
		}
	}()
}

// --- Rendering ------------------------------------------------------------

func (s *Service) commentVisible(session Session, comment store.Comment) bool {
	if comment.Approved {
		return true
	}
	if comment.AuthorID == session.UserID {
		return true
	}
	return s.Can(session.Role, rbac.ActionModerate)
}

func renderUser(user store.User) map[string]any {
	return map[string]any{
		"id":              user.ID,
		"displayName":     user.DisplayName,
		"email":           user.Email,
		"linkedInUrl":     user.LinkedInURL,
		"avatarUrl":       user.AvatarURL,
		"role":            user.Role,
		"claimed":         user.Claimed,
		"bio":             user.Bio,
		"education":       user.Education,
		"yearsExperience": user.YearsExperience,
		"createdAt":       user.CreatedAt.Format(time.RFC3339),
	}
}

func renderUserSummary(user store.User) map[string]any {
	return map[string]any{
		"id":          user.ID,
		"displayName": user.DisplayName,
		"avatarUrl":   user.AvatarURL,
		"bio":         user.Bio,
		"claimed":     user.Claimed,
	}
}

func renderSkills(skills []store.UserSkillDetail) []map[string]any {
	items := make([]map[string]any, 0, len(skills))
	for _, skill := range skills {
		items = append(items, map[string]any{
			"skillId":  skill.SkillID,
			"name":     skill.SkillName,
			"type":     skill.SkillType,
			"rating":   skill.Rating,
			"verified": skill.Verified,
			"area": map[string]any{
				"id":   skill.AreaID,
				"name": skill.AreaName,
			},
		})
	}
	return items
}

func renderQuestion(question store.Question) map[string]any {
	return map[string]any{
		"id":         question.ID,
		"title":      question.Title,
		"content":    question.Content,
		"authorId":   question.AuthorID,
		"authorName": question.AuthorName,
		"approved":   question.Approved,
		"createdAt":  question.CreatedAt.Format(time.RFC3339),
	}
}

func renderAnswer(answer store.Answer) map[string]any {
	return map[string]any{
		"id":         answer.ID,
		"questionId": answer.QuestionID,
		"content":    answer.Content,
		"authorId":   answer.AuthorID,
		"authorName": answer.AuthorName,
		"createdAt":  answer.CreatedAt.Format(time.RFC3339),
	}
}

func renderComment(comment store.Comment) map[string]any {
	return map[string]any{
		"id":           comment.ID,
		"content":      comment.Content,
		"authorId":     comment.AuthorID,
		"authorName":   comment.AuthorName,
		"targetUserId": comment.TargetUserID,
		"approved":     comment.Approved,
		"createdAt":    comment.CreatedAt.Format(time.RFC3339),
	}
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
