package message

// User is the identity of a chat participant. Users observed through the
// transcript carry only what the rendered page shows: the ID is empty for
// remote users and the counts are zero unless a profile scrape filled
// them in. A fresh User is constructed for every observed message's
// author; no cross-message caching.
type User struct {
	ID          string `json:"id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Username    string `json:"username"`
	RoomID      string `json:"room_id,omitempty"`
	Followers   int    `json:"followers,omitempty"`
	Following   int    `json:"following,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

// ProfileURL derives the public profile address from the username.
// Empty for users with no handle.
func (u User) ProfileURL() string {
	if u.Username == "" {
		return ""
	}
	return "https://dogehouse.tv/u/" + u.Username
}

// ClientUser is the User representing the authenticated session owner.
// Constructed exactly once per session during bootstrap and held for the
// lifetime of the client.
type ClientUser struct {
	User
}

// Is reports whether the given author is this session user, matching by
// id when both sides carry one, falling back to the username handle.
func (c *ClientUser) Is(author User) bool {
	if c == nil {
		return false
	}
	if c.ID != "" && author.ID != "" && c.ID == author.ID {
		return true
	}
	return c.Username != "" && author.Username != "" && c.Username == author.Username
}
