package domain

type Role string

const (
	RoleNone   Role = ""
	RoleLeader Role = "leader"
	RoleAdmin  Role = "admin"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleLeader:
		return 1
	default:
		return 0
	}
}

// Satisfies reports whether r grants everything min grants.
// Administrators can do everything leaders can.
func (r Role) Satisfies(min Role) bool { return r.rank() >= min.rank() }

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

func ParseRole(s string) (Role, bool) {
	switch s {
	case "admin":
		return RoleAdmin, true
	case "leader", "seller":
		return RoleLeader, true
	case "", "none":
		return RoleNone, true
	}
	return RoleNone, false
}

type Actor struct {
	ID          int64   `db:"actor_id" json:"actor_id"`
	Role        Role    `db:"role" json:"role"`
	DisplayName string  `db:"display_name" json:"display_name"`
	CreatedAt   string  `db:"created_at" json:"-"`
	UpdatedAt   *string `db:"updated_at" json:"-"`
}
