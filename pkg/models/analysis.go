package models

// PlayerAnalysis is the vision analysis for one match participant.
type PlayerAnalysis struct {
	ID          string    `json:"id"`
	PlayerName  string    `json:"playerName"`
	Champion    string    `json:"champion"`
	WardScore   int       `json:"wardScore"`
	Rank        string    `json:"rank"`
	GameStats   GameStats `json:"gameStats"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

// GameStats holds the per-player numbers the ward score was derived from.
type GameStats struct {
	Duration           int    `json:"duration"` // minutes
	WardsPlaced        int    `json:"wardsPlaced"`
	WardsDestroyed     int    `json:"wardsDestroyed"`
	VisionScore        int    `json:"visionScore"`
	ControlWardsPlaced int    `json:"controlWardsPlaced"`
	Role               string `json:"role"`
	KDA                string `json:"kda"`
	Win                bool   `json:"win"`
}

// Clone returns a copy with its own Suggestions slice.
func (p PlayerAnalysis) Clone() PlayerAnalysis {
	c := p
	if p.Suggestions != nil {
		c.Suggestions = append([]string(nil), p.Suggestions...)
	}
	return c
}
