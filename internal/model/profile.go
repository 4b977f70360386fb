package model

// UserProfile is the logged-in user's Steam profile
type UserProfile struct {
	ID         SteamID `json:"id"`
	Username   string  `json:"username,omitempty"`
	AvatarURL  string  `json:"avatar_url,omitempty"`
	ProfileURL string  `json:"profile_url,omitempty"`
}
