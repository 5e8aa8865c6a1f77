package models

import "encoding/json"

// Tournament is the opaque grouping id stages belong to.
type Tournament struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Participant is a single entrant, solo or team, scoped to a tournament.
type Participant struct {
	ID            int    `json:"id" db:"id"`
	TournamentID  int    `json:"tournament_id" db:"tournament_id"`
	Name          string `json:"name" db:"name"`
	InitialSeed   int    `json:"initial_seed" db:"initial_seed"`
}

// StageSettings is the enumerated option bag from spec §6.1. Pointer
// fields distinguish "not set" from the zero value, mirroring the
// teacher's `*string`/`*int` nullable-column convention in models/match.go.
type StageSettings struct {
	Size             *int            `json:"size,omitempty"`
	SeedOrdering     string          `json:"seedOrdering,omitempty"`
	BalanceByes      bool            `json:"balanceByes,omitempty"`
	ConsolationFinal bool            `json:"consolationFinal,omitempty"`
	SkipFirstRound   bool            `json:"skipFirstRound,omitempty"`
	GrandFinal       GrandFinalMode  `json:"grandFinal,omitempty"`
	GroupCount       int             `json:"groupCount,omitempty"`
	RoundRobinMode   RoundRobinMode  `json:"roundRobinMode,omitempty"`
	MatchesChildCount int            `json:"matchesChildCount,omitempty"`
	ManualOrdering   [][]int         `json:"manualOrdering,omitempty"`
	AllowDrawBoEven  bool            `json:"allowDrawBoEven,omitempty"`

	// DeferSeeding, round-robin only, makes Generate emit {position:k}
	// placeholders instead of resolved participants; the engine
	// persists the seed order separately and update.confirmSeeding
	// resolves the placeholders later (spec §4.4 "Seeding confirmation").
	DeferSeeding bool `json:"deferSeeding,omitempty"`
}

// ChildCountEven reports whether this stage's best-of size permits a
// draw (spec §4.5/§9: an even child_count with neither side reaching
// the win threshold after all games are played).
func (s StageSettings) ChildCountEven() bool {
	return s.MatchesChildCount > 0 && s.MatchesChildCount%2 == 0
}

// WinThreshold returns the number of child game wins needed to
// complete a best-of-childCount parent match: ceil((childCount+1)/2).
func WinThreshold(childCount int) int {
	return (childCount + 2) / 2
}

// MarshalSettings/UnmarshalSettings let storage adapters keep settings
// in a single JSON column, the way the teacher keeps `Format.SettingsJSON`
// as a raw string decoded on demand (brackets/round_robin.go).
func (s StageSettings) Marshal() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func UnmarshalSettings(raw string) (StageSettings, error) {
	var s StageSettings
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, err
	}
	return s, nil
}

// Stage is a tournament phase with a single bracket structure.
type Stage struct {
	ID           int           `json:"id" db:"id"`
	TournamentID int           `json:"tournament_id" db:"tournament_id"`
	Name         string        `json:"name" db:"name"`
	Type         StageType     `json:"type" db:"type"`
	Number       int           `json:"number" db:"number"`
	Settings     StageSettings `json:"settings" db:"settings"`
}

// Group is a subdivision of a stage (pool in round-robin; WB/LB/GF in
// double elimination; main/consolation in single elimination).
type Group struct {
	ID      int `json:"id" db:"id"`
	StageID int `json:"stage_id" db:"stage_id"`
	Number  int `json:"number" db:"number"`
}

// Round is a set of concurrently playable matches within a group.
type Round struct {
	ID      int `json:"id" db:"id"`
	StageID int `json:"stage_id" db:"stage_id"`
	GroupID int `json:"group_id" db:"group_id"`
	Number  int `json:"number" db:"number"`
}

// Match is a two-sided contest, possibly decomposed into child games.
type Match struct {
	ID         int         `json:"id" db:"id"`
	StageID    int         `json:"stage_id" db:"stage_id"`
	GroupID    int         `json:"group_id" db:"group_id"`
	RoundID    int         `json:"round_id" db:"round_id"`
	Number     int         `json:"number" db:"number"`
	Status     MatchStatus `json:"status" db:"status"`
	Opponent1  Opponent    `json:"opponent1" db:"opponent1"`
	Opponent2  Opponent    `json:"opponent2" db:"opponent2"`
	ChildCount int         `json:"child_count" db:"child_count"`

	// ExternalUID is a random UUID assigned when engine/create.go
	// persists the match, independent of the storage-assigned ID.
	// Nothing in the engine reads it back as a lookup key.
	ExternalUID string `json:"external_uid" db:"external_uid"`

	// DisplayLabel is the human-readable "group/round/number"
	// coordinate (e.g. "G1-R2-M3") a bracket UI shows next to a match;
	// ExternalUID is the collision-free identifier instead.
	DisplayLabel string `json:"display_label" db:"display_label"`
}

// SeedList is the stored position->participant mapping for a stage
// created with StageSettings.DeferSeeding, consulted by
// update.confirmSeeding to resolve {position:k} placeholders.
type SeedList struct {
	ID      int   `json:"id" db:"id"`
	StageID int   `json:"stage_id" db:"stage_id"`
	Order   []int `json:"order" db:"order"`
}

// MatchGame is a single game within a best-of series. It never holds
// placeholders: by the time games exist their parent match's opponents
// are already resolved participants.
type MatchGame struct {
	ID        int         `json:"id" db:"id"`
	ParentID  int         `json:"parent_id" db:"parent_id"`
	Number    int         `json:"number" db:"number"`
	Status    MatchStatus `json:"status" db:"status"`
	Opponent1 Opponent    `json:"opponent1" db:"opponent1"`
	Opponent2 Opponent    `json:"opponent2" db:"opponent2"`
}
