// Package analysis turns raw per-player replay statistics into ward scores and ranks.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wardscope/wardscope/pkg/models"
)

var (
	ErrEmptyTable   = errors.New("statistics table is empty")
	ErrInvalidStats = errors.New("invalid player statistics")
)

// Score weights. Destroyed wards count at full weight as a proxy for map control.
const (
	visionWeight    = 1.5
	placedWeight    = 0.5
	destroyedWeight = 1.0

	maxWardScore = 100

	// maxStatValue bounds any single stat. Replay counters never get near it, and
	// it keeps float-to-int conversions well inside the int range.
	maxStatValue = 1_000_000
)

// rankTiers are checked in order; the first tier whose lower bound the score reaches wins.
var rankTiers = []struct {
	min  int
	rank string
}{
	{90, "S+"},
	{85, "S"},
	{80, "A+"},
	{75, "A"},
	{70, "B+"},
	{65, "B"},
}

var requiredStats = []string{
	models.StatVisionScore,
	models.StatWardsPlaced,
	models.StatWardsKilled,
}

var roleNames = map[string]string{
	"TOP":     "Top",
	"JUNGLE":  "Jungle",
	"MIDDLE":  "Mid",
	"BOTTOM":  "ADC",
	"UTILITY": "Support",
}

// Generate builds one PlayerAnalysis per record in table, preserving order.
// It returns ErrEmptyTable when there are no players and ErrInvalidStats when a
// required numeric field is missing, not a number, or out of range.
func Generate(table models.StatsTable) ([]models.PlayerAnalysis, error) {
	if len(table.Players) == 0 {
		return nil, ErrEmptyTable
	}

	durationMin := 0
	if table.GameLengthMs > 0 {
		durationMin = int(table.GameLengthMs / 60000)
	}

	out := make([]models.PlayerAnalysis, 0, len(table.Players))
	for i, p := range table.Players {
		pa, err := analyzePlayer(i, p, durationMin)
		if err != nil {
			return nil, err
		}
		out = append(out, pa)
	}
	return out, nil
}

func analyzePlayer(idx int, p models.PlayerStats, durationMin int) (models.PlayerAnalysis, error) {
	required := make(map[string]float64, len(requiredStats))
	for _, key := range requiredStats {
		v, err := requiredNumber(p, key)
		if err != nil {
			return models.PlayerAnalysis{}, fmt.Errorf("%w: player %d: %v", ErrInvalidStats, idx+1, err)
		}
		required[key] = v
	}

	vision := required[models.StatVisionScore]
	placed := required[models.StatWardsPlaced]
	destroyed := required[models.StatWardsKilled]

	score := WardScore(vision, placed, destroyed)

	kills := optionalInt(p, models.StatKills)
	deaths := optionalInt(p, models.StatDeaths)
	assists := optionalInt(p, models.StatAssists)

	return models.PlayerAnalysis{
		ID:         playerID(idx, p),
		PlayerName: firstNonEmpty(p[models.StatRiotIDGameName], p[models.StatName], "Unknown"),
		Champion:   firstNonEmpty(p[models.StatSkin], "Unknown"),
		WardScore:  score,
		Rank:       Rank(score),
		GameStats: models.GameStats{
			Duration:           durationMin,
			WardsPlaced:        int(placed),
			WardsDestroyed:     int(destroyed),
			VisionScore:        int(vision),
			ControlWardsPlaced: optionalInt(p, models.StatControlWardsBought),
			Role:               role(p),
			KDA:                fmt.Sprintf("%d/%d/%d", kills, deaths, assists),
			Win:                isWin(p[models.StatWin]),
		},
		Suggestions: Suggestions(score),
	}, nil
}

// WardScore is floor(vision*1.5 + placed*0.5 + destroyed*1.0) clamped to [0, 100].
func WardScore(vision, placed, destroyed float64) int {
	raw := math.Floor(vision*visionWeight + placed*placedWeight + destroyed*destroyedWeight)
	if raw < 0 {
		return 0
	}
	if raw > maxWardScore {
		return maxWardScore
	}
	return int(raw)
}

// Rank maps a ward score to its letter tier. Tier bounds are inclusive.
func Rank(score int) string {
	for _, t := range rankTiers {
		if score >= t.min {
			return t.rank
		}
	}
	return "C"
}

// Suggestions returns the fixed coaching tips for the score's band.
func Suggestions(score int) []string {
	switch {
	case score >= 85:
		return []string{
			"Keep up the excellent vision control!",
			"Share your warding habits with your team",
		}
	case score >= 70:
		return []string{
			"Place more deep wards when it is safe",
			"Coordinate ward coverage with your support",
		}
	default:
		return []string{
			"Place more basic wards first",
			"Focus on vision around major objectives",
			"Watch replays of professional players",
		}
	}
}

func requiredNumber(p models.PlayerStats, key string) (float64, error) {
	raw, ok := p[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s is not numeric: %q", key, raw)
	}
	if math.Abs(v) > maxStatValue {
		return 0, fmt.Errorf("%s is out of range: %q", key, raw)
	}
	return v, nil
}

// optionalInt coerces an optional stat, defaulting to 0 when absent or unparsable
// and clamping to [0, maxStatValue].
func optionalInt(p models.PlayerStats, key string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(p[key]), 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return int(math.Max(0, math.Min(v, maxStatValue)))
}

func playerID(idx int, p models.PlayerStats) string {
	if id := firstNonEmpty(p[models.StatPUUID], p[models.StatID]); id != "" {
		return id
	}
	return fmt.Sprintf("player-%d", idx+1)
}

func role(p models.PlayerStats) string {
	pos := strings.ToUpper(firstNonEmpty(p[models.StatTeamPosition], p[models.StatIndividualPosition]))
	if name, ok := roleNames[pos]; ok {
		return name
	}
	if pos == "" {
		return "Unknown"
	}
	return pos
}

func isWin(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "win", "true", "1":
		return true
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
