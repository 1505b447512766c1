package store

import "time"

type User struct {
	ID              string
	DisplayName     string
	Email           *string
	LinkedInURL     *string
	AvatarURL       *string
	Role            string
	Claimed         bool
	Bio             *string
	Education       *string
	YearsExperience *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OAuthAccount links an external provider identity to an internal user.
type OAuthAccount struct {
	ID                string
	Provider          string
	ProviderAccountID string
	UserID            string
	CreatedAt         time.Time
}

type ExpertiseArea struct {
	ID          string
	Name        string
	Description string
	SortOrder   int
}

type Skill struct {
	ID              string
	Name            string
	Type            string
	ExpertiseAreaID string
	SortOrder       int
}

// UserSkill is the rating a user holds for one skill. Rating is always in
// [1,5]; the verified flag is set by curators.
type UserSkill struct {
	UserID   string
	SkillID  string
	Rating   int
	Verified bool
}

// UserSkillDetail is a UserSkill joined with its skill and expertise area,
// as rendered on a profile.
type UserSkillDetail struct {
	UserSkill
	SkillName      string
	SkillType      string
	AreaID         string
	AreaName       string
	AreaSortOrder  int
	SkillSortOrder int
}

type Question struct {
	ID        string
	Title     string
	Content   string
	AuthorID  string
	Approved  bool
	CreatedAt time.Time
	// Joined for rendering
	AuthorName string
}

type Answer struct {
	ID         string
	QuestionID string
	Content    string
	AuthorID   string
	CreatedAt  time.Time
	AuthorName string
}

type Comment struct {
	ID           string
	Content      string
	AuthorID     string
	TargetUserID string
	Approved     bool
	CreatedAt    time.Time
	AuthorName   string
}

// UserFilter narrows the people listing.
type UserFilter struct {
	NameContains string
	AreaName     string
	SkillName    string
}
