package session

// Identity is the authenticated user record as returned by the remote user service.
// The store treats it as opaque apart from ID, which must be non-empty.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// Snapshot is a point-in-time copy of the client session.
// Authenticated is true if and only if Identity is non-nil.
type Snapshot struct {
	Identity      *Identity
	Authenticated bool
}

// IsAuthenticated returns true if the snapshot holds an identity
func (s Snapshot) IsAuthenticated() bool {
	return s.Authenticated && s.Identity != nil
}

// Role returns the role of the current identity or an empty string
func (s Snapshot) Role() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Role
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func (i *Identity) valid() bool {
	return i != nil && i.ID != ""
}
