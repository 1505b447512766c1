package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const userColumns = `id, display_name, email, linkedin_url, avatar_url, role, claimed, bio, education, years_experience, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.DisplayName,
		&u.Email,
		&u.LinkedInURL,
		&u.AvatarURL,
		&u.Role,
		&u.Claimed,
		&u.Bio,
		&u.Education,
		&u.YearsExperience,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	role := user.Role
	if role == "" {
		role = "MEMBER"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, linkedin_url, avatar_url, role, claimed, bio, education, years_experience)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, user.ID, user.DisplayName, user.Email, user.LinkedInURL, user.AvatarURL, role, user.Claimed, user.Bio, user.Education, user.YearsExperience)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByLinkedInURL(ctx context.Context, linkedInURL string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE linkedin_url=$1`, linkedInURL)
	return scanUser(row)
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, userID string, displayName string, linkedInURL, bio, education *string, yearsExperience *int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET display_name=$2, linkedin_url=$3, bio=$4, education=$5, years_experience=$6, updated_at=NOW()
		WHERE id=$1
	`, userID, displayName, linkedInURL, bio, education, yearsExperience)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserAvatar(ctx context.Context, userID, avatarURL string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET avatar_url=$2, updated_at=NOW() WHERE id=$1`, userID, avatarURL)
	if err != nil {
		return fmt.Errorf("update user avatar: %w", err)
	}
	return nil
}

// ClaimUser flips an unclaimed profile to claimed and binds the identity's
// email and avatar. The claimed=FALSE guard makes the check-then-set a single
// conditional write, so two concurrent claims cannot both succeed.
func (s *PostgresStore) ClaimUser(ctx context.Context, userID string, email, avatarURL *string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email=$2, avatar_url=COALESCE($3, avatar_url), claimed=TRUE, updated_at=NOW()
		WHERE id=$1 AND claimed=FALSE
	`, userID, email, avatarURL)
	if err != nil {
		return false, fmt.Errorf("claim user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim user rows: %w", err)
	}
	return affected > 0, nil
}

// ClaimUserByLinkedInURL is the first-login auto-claim: it atomically claims
// the unclaimed profile matching the canonical profile URL, if any, and
// returns it. ok is false when no unclaimed match exists.
func (s *PostgresStore) ClaimUserByLinkedInURL(ctx context.Context, linkedInURL string, email, avatarURL *string) (User, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET email=$2, avatar_url=COALESCE($3, avatar_url), claimed=TRUE, updated_at=NOW()
		WHERE linkedin_url=$1 AND claimed=FALSE
		RETURNING `+userColumns+`
	`, linkedInURL, email, avatarURL)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("auto-claim user: %w", err)
	}
	return user, true, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	query := `SELECT DISTINCT u.id, u.display_name, u.email, u.linkedin_url, u.avatar_url, u.role, u.claimed, u.bio, u.education, u.years_experience, u.created_at, u.updated_at
		FROM users u`
	var conditions []string
	var args []any
	argN := 1

	if filter.AreaName != "" || filter.SkillName != "" {
		query += `
		JOIN user_skills us ON us.user_id = u.id
		JOIN skills sk ON sk.id = us.skill_id
		JOIN expertise_areas ea ON ea.id = sk.expertise_area_id`
		if filter.AreaName != "" {
			conditions = append(conditions, fmt.Sprintf("ea.name = $%d", argN))
			args = append(args, filter.AreaName)
			argN++
		}
		if filter.SkillName != "" {
			conditions = append(conditions, fmt.Sprintf("sk.name = $%d", argN))
			args = append(args, filter.SkillName)
			argN++
		}
	}
	if filter.NameContains != "" {
		conditions = append(conditions, fmt.Sprintf("u.display_name ILIKE $%d", argN))
		args = append(args, "%"+filter.NameContains+"%")
		argN++
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY u.display_name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpsertOAuthAccount(ctx context.Context, account OAuthAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_accounts (id, provider, provider_account_id, user_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, provider_account_id) DO UPDATE SET user_id=EXCLUDED.user_id
	`, account.ID, account.Provider, account.ProviderAccountID, account.UserID)
	if err != nil {
		return fmt.Errorf("upsert oauth account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOAuthAccount(ctx context.Context, provider, providerAccountID string) (OAuthAccount, error) {
	var account OAuthAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, provider, provider_account_id, user_id, created_at
		FROM oauth_accounts
		WHERE provider=$1 AND provider_account_id=$2
	`, provider, providerAccountID).Scan(&account.ID, &account.Provider, &account.ProviderAccountID, &account.UserID, &account.CreatedAt)
	if err != nil {
		return OAuthAccount{}, err
	}
	return account, nil
}

// RepointOAuthAccounts moves every provider link from one user to another,
// used when a fresh signup merges into a pre-existing unclaimed profile.
func (s *PostgresStore) RepointOAuthAccounts(ctx context.Context, fromUserID, toUserID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE oauth_accounts SET user_id=$2 WHERE user_id=$1`, fromUserID, toUserID)
	if err != nil {
		return fmt.Errorf("repoint oauth accounts: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete user rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListExpertiseAreas(ctx context.Context) ([]ExpertiseArea, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, sort_order
		FROM expertise_areas
		ORDER BY sort_order ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list expertise areas: %w", err)
	}
	defer rows.Close()

	items := make([]ExpertiseArea, 0)
	for rows.Next() {
		var item ExpertiseArea
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("scan expertise area: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expertise areas: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListSkills(ctx context.Context) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sk.id, sk.name, sk.type, sk.expertise_area_id, sk.sort_order
		FROM skills sk
		JOIN expertise_areas ea ON ea.id = sk.expertise_area_id
		ORDER BY ea.sort_order ASC, sk.sort_order ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()

	items := make([]Skill, 0)
	for rows.Next() {
		var item Skill
		if err := rows.Scan(&item.ID, &item.Name, &item.Type, &item.ExpertiseAreaID, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skills: %w", err)
	}
	return items, nil
}

// ReplaceUserSkills swaps a user's entire skill set in one transaction:
// delete everything, then insert the new rows. No incremental diffing.
func (s *PostgresStore) ReplaceUserSkills(ctx context.Context, userID string, skills []UserSkill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace skills: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_skills WHERE user_id=$1`, userID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete user skills: %w", err)
	}

	for _, skill := range skills {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_skills (user_id, skill_id, rating, verified)
			VALUES ($1, $2, $3, $4)
		`, userID, skill.SkillID, skill.Rating, skill.Verified); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert user skill: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace skills: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListUserSkills(ctx context.Context, userID string) ([]UserSkillDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT us.user_id, us.skill_id, us.rating, us.verified,
			sk.name, sk.type, sk.sort_order,
			ea.id, ea.name, ea.sort_order
		FROM user_skills us
		JOIN skills sk ON sk.id = us.skill_id
		JOIN expertise_areas ea ON ea.id = sk.expertise_area_id
		WHERE us.user_id=$1
		ORDER BY ea.sort_order ASC, sk.sort_order ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user skills: %w", err)
	}
	defer rows.Close()

	items := make([]UserSkillDetail, 0)
	for rows.Next() {
		var item UserSkillDetail
		if err := rows.Scan(
			&item.UserID,
			&item.SkillID,
			&item.Rating,
			&item.Verified,
			&item.SkillName,
			&item.SkillType,
			&item.SkillSortOrder,
			&item.AreaID,
			&item.AreaName,
			&item.AreaSortOrder,
		); err != nil {
			return nil, fmt.Errorf("scan user skill: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user skills: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertQuestion(ctx context.Context, question Question) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (id, title, content, author_id, approved)
		VALUES ($1, $2, $3, $4, $5)
	`, question.ID, question.Title, question.Content, question.AuthorID, question.Approved)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetQuestion(ctx context.Context, questionID string) (Question, error) {
	var item Question
	err := s.db.QueryRowContext(ctx, `
		SELECT q.id, q.title, q.content, q.author_id, q.approved, q.created_at, u.display_name
		FROM questions q
		JOIN users u ON u.id = q.author_id
		WHERE q.id=$1
	`, questionID).Scan(&item.ID, &item.Title, &item.Content, &item.AuthorID, &item.Approved, &item.CreatedAt, &item.AuthorName)
	if err != nil {
		return Question{}, err
	}
	return item, nil
}

// ListQuestions returns approved questions plus the viewer's own pending
// ones. An empty viewerID lists approved content only.
func (s *PostgresStore) ListQuestions(ctx context.Context, viewerID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.title, q.content, q.author_id, q.approved, q.created_at, u.display_name
		FROM questions q
		JOIN users u ON u.id = q.author_id
		WHERE q.approved = TRUE OR q.author_id = $1
		ORDER BY q.created_at DESC
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	return collectQuestions(rows)
}

func (s *PostgresStore) ListPendingQuestions(ctx context.Context) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.title, q.content, q.author_id, q.approved, q.created_at, u.display_name
		FROM questions q
		JOIN users u ON u.id = q.author_id
		WHERE q.approved = FALSE
		ORDER BY q.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending questions: %w", err)
	}
	defer rows.Close()
	return collectQuestions(rows)
}

func collectQuestions(rows *sql.Rows) ([]Question, error) {
	items := make([]Question, 0)
	for rows.Next() {
		var item Question
		if err := rows.Scan(&item.ID, &item.Title, &item.Content, &item.AuthorID, &item.Approved, &item.CreatedAt, &item.AuthorName); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ApproveQuestion(ctx context.Context, questionID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE questions SET approved=TRUE WHERE id=$1`, questionID)
	if err != nil {
		return false, fmt.Errorf("approve question: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("approve question rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteQuestion(ctx context.Context, questionID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, questionID)
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete question rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) InsertAnswer(ctx context.Context, answer Answer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (id, question_id, content, author_id)
		VALUES ($1, $2, $3, $4)
	`, answer.ID, answer.QuestionID, answer.Content, answer.AuthorID)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAnswers(ctx context.Context, questionID string) ([]Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.question_id, a.content, a.author_id, a.created_at, u.display_name
		FROM answers a
		JOIN users u ON u.id = a.author_id
		WHERE a.question_id=$1
		ORDER BY a.created_at ASC
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	items := make([]Answer, 0)
	for rows.Next() {
		var item Answer
		if err := rows.Scan(&item.ID, &item.QuestionID, &item.Content, &item.AuthorID, &item.CreatedAt, &item.AuthorName); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertComment(ctx context.Context, comment Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, content, author_id, target_user_id, approved)
		VALUES ($1, $2, $3, $4, $5)
	`, comment.ID, comment.Content, comment.AuthorID, comment.TargetUserID, comment.Approved)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (Comment, error) {
	var item Comment
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.content, c.author_id, c.target_user_id, c.approved, c.created_at, u.display_name
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id=$1
	`, commentID).Scan(&item.ID, &item.Content, &item.AuthorID, &item.TargetUserID, &item.Approved, &item.CreatedAt, &item.AuthorName)
	if err != nil {
		return Comment{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListCommentsForUser(ctx context.Context, targetUserID string, includePending bool) ([]Comment, error) {
	query := `
		SELECT c.id, c.content, c.author_id, c.target_user_id, c.approved, c.created_at, u.display_name
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.target_user_id=$1`
	if !includePending {
		query += ` AND c.approved = TRUE`
	}
	query += ` ORDER BY c.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, targetUserID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()
	return collectComments(rows)
}

func (s *PostgresStore) ListPendingComments(ctx context.Context) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.content, c.author_id, c.target_user_id, c.approved, c.created_at, u.display_name
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.approved = FALSE
		ORDER BY c.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pending comments: %w", err)
	}
	defer rows.Close()
	return collectComments(rows)
}

func collectComments(rows *sql.Rows) ([]Comment, error) {
	items := make([]Comment, 0)
	for rows.Next() {
		var item Comment
		if err := rows.Scan(&item.ID, &item.Content, &item.AuthorID, &item.TargetUserID, &item.Approved, &item.CreatedAt, &item.AuthorName); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ApproveComment(ctx context.Context, commentID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE comments SET approved=TRUE WHERE id=$1`, commentID)
	if err != nil {
		return false, fmt.Errorf("approve comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("approve comment rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, commentID)
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete comment rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}
