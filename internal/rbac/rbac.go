// Package rbac defines the role and capability model for the directory.
package rbac

type Role string
type Action string

const (
	RoleMember    Role = "MEMBER"
	RoleModerator Role = "MODERATOR"
	RoleCurator   Role = "CURATOR"
)

const (
	// ActionView covers reading public directory content.
	ActionView Action = "view"
	// ActionCurate covers creating unclaimed profiles and editing any profile.
	ActionCurate Action = "curate"
	// ActionModerate covers approving and deleting questions and comments.
	ActionModerate Action = "moderate"
)

// capabilities maps each role to its action set. Moderators hold every
// curator capability on top of moderation; both elevated roles may moderate.
var capabilities = map[Role]map[Action]struct{}{
	RoleMember: {
		ActionView: {},
	},
	RoleCurator: {
		ActionView:     {},
		ActionCurate:   {},
		ActionModerate: {},
	},
	RoleModerator: {
		ActionView:     {},
		ActionCurate:   {},
		ActionModerate: {},
	},
}

// Can reports whether role holds the capability for action.
func Can(role Role, action Action) bool {
	set, ok := capabilities[role]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// Normalize maps an arbitrary stored role string to a known role,
// defaulting to MEMBER.
func Normalize(role string) Role {
	switch Role(role) {
	case RoleMember, RoleModerator, RoleCurator:
		return Role(role)
	default:
		return RoleMember
	}
}

// CanEditUser reports whether the actor may edit the target profile:
// self-service edit, or an elevated role holding the curate capability.
func CanEditUser(actorID, targetUserID string, role Role) bool {
	if actorID != "" && actorID == targetUserID {
		return true
	}
	return Can(role, ActionCurate)
}
