package models

// Stat names as they appear in a replay's statsJson block.
const (
	StatVisionScore        = "VISION_SCORE"
	StatWardsPlaced        = "WARD_PLACED"
	StatWardsKilled        = "WARD_KILLED"
	StatControlWardsBought = "VISION_WARDS_BOUGHT_IN_GAME"
	StatKills              = "CHAMPIONS_KILLED"
	StatDeaths             = "NUM_DEATHS"
	StatAssists            = "ASSISTS"
	StatTeamPosition       = "TEAM_POSITION"
	StatIndividualPosition = "INDIVIDUAL_POSITION"
	StatWin                = "WIN"
	StatRiotIDGameName     = "RIOT_ID_GAME_NAME"
	StatName               = "NAME"
	StatSkin               = "SKIN"
	StatPUUID              = "PUUID"
	StatID                 = "ID"
)

// PlayerStats is one participant's raw statistics. Values are kept as the
// strings found in the replay and coerced during analysis.
type PlayerStats map[string]string

// StatsTable is the parser's output for a single replay.
type StatsTable struct {
	GameLengthMs int64         `json:"gameLength"`
	GameVersion  string        `json:"gameVersion"`
	Players      []PlayerStats `json:"players"`
}
