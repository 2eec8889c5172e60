package types

type Role string

const (
	RoleSubcontractor Role = "subcontractor"
	RoleEPC           Role = "epc"
	RoleNBFC          Role = "nbfc"
	RoleOps           Role = "ops"
	RoleRMT           Role = "rmt"
	RoleAdmin         Role = "admin"
	RoleFounder       Role = "founder"
	RoleSystem        Role = "system"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role"`
	// OrgID is the NBFC id for NBFC users.
	OrgID     string `json:"orgId,omitempty"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
