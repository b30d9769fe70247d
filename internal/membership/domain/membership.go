package domain

// Status is a chat member status as reported by the messaging gateway.
type Status string

const (
	StatusCreator       Status = "creator"
	StatusAdministrator Status = "administrator"
	StatusMember        Status = "member"
	StatusRestricted    Status = "restricted"
	StatusLeft          Status = "left"
	StatusKicked        Status = "kicked"
	StatusBanned        Status = "banned"
)

// ChatMember is one user's standing in one channel.
type ChatMember struct {
	Status Status
	// StillMember is only meaningful for StatusRestricted: a restricted user may or may not still be in the chat.
	StillMember bool
}

// Joined reports whether the member counts as joined. Removed, banned and unknown statuses do not.
func (m ChatMember) Joined() bool {
	switch m.Status {
	case StatusCreator, StatusAdministrator, StatusMember:
		return true
	case StatusRestricted:
		return m.StillMember
	default:
		return false
	}
}
