package steamapi

import "github.com/mcoot/letsplay/internal/model"

// ErrorResponse is the backend's error envelope
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type meResponse struct {
	SteamID    model.SteamID `json:"steam_id"`
	Persona    string        `json:"steam_persona"`
	Avatar     string        `json:"steam_avatar"`
	ProfileURL string        `json:"steam_profile_url"`
}

func (r meResponse) toProfile() *model.UserProfile {
	return &model.UserProfile{
		ID:         r.SteamID,
		Username:   r.Persona,
		AvatarURL:  r.Avatar,
		ProfileURL: r.ProfileURL,
	}
}

type ownedGamesResponse struct {
	GameCount int                        `json:"game_count"`
	Games     map[string]model.OwnedGame `json:"games"`
}

type friendsGamesRequest struct {
	SteamIDs []model.SteamID `json:"steam_ids"`
}

type friendsGamesResponse struct {
	Games map[model.SteamID][]model.OwnedGame `json:"games"`
}
