package models

// Member types.
const (
	MemberUser  = "user"
	MemberAgent = "agent"
)

// Member is the account-level identity behind a room membership.
// MemberType distinguishes "user" from "agent" participants.
type Member struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	MemberType string `json:"member_type,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
}

// RoomMember represents one participant of a room. The moderation flags
// are independent: a silenced member is still listed, a kicked one is
// not, a blocked one cannot rejoin.
type RoomMember struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	MemberID  string `json:"member_id,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Member    Member `json:"member"`
	Kicked    bool   `json:"kicked,omitempty"`
	Silenced  bool   `json:"silenced,omitempty"`
	Blocked   bool   `json:"blocked,omitempty"`
	Removed   bool   `json:"removed,omitempty"`
}

// RoomMemberPatch is a partial member update. Member replaces the
// sub-entity wholesale when set; the server always sends it complete.
type RoomMemberPatch struct {
	ID        string  `json:"id"`
	RoomID    *string `json:"room_id,omitempty"`
	MemberID  *string `json:"member_id,omitempty"`
	AccountID *string `json:"account_id,omitempty"`
	Role      *string `json:"role,omitempty"`
	Member    *Member `json:"member,omitempty"`
	Kicked    *bool   `json:"kicked,omitempty"`
	Silenced  *bool   `json:"silenced,omitempty"`
	Blocked   *bool   `json:"blocked,omitempty"`
	Removed   *bool   `json:"removed,omitempty"`
}

// Apply merges the set fields of the patch into m.
func (p RoomMemberPatch) Apply(m *RoomMember) {
	if p.RoomID != nil {
		m.RoomID = *p.RoomID
	}
	if p.MemberID != nil {
		m.MemberID = *p.MemberID
	}
	if p.AccountID != nil {
		m.AccountID = *p.AccountID
	}
	if p.Role != nil {
		m.Role = *p.Role
	}
	if p.Member != nil {
		m.Member = *p.Member
	}
	if p.Kicked != nil {
		m.Kicked = *p.Kicked
	}
	if p.Silenced != nil {
		m.Silenced = *p.Silenced
	}
	if p.Blocked != nil {
		m.Blocked = *p.Blocked
	}
	if p.Removed != nil {
		m.Removed = *p.Removed
	}
}
