package models

// OpponentKind discriminates the three shapes an opponent slot can
// take. Modeled as an explicit tag instead of sentinel zero-values so
// that "no participant yet because upstream is pending" can never be
// confused with "BYE" or with "participant 0" at compile time.
type OpponentKind int

const (
	// OpponentEmpty is a BYE: the slot will never be filled.
	OpponentEmpty OpponentKind = iota
	// OpponentPosition is a placeholder awaiting seeding confirmation,
	// identified by its source position in the stage's seed list.
	OpponentPosition
	// OpponentParticipant is a resolved participant, win/loss/forfeit
	// and score optionally recorded.
	OpponentParticipant
)

// Opponent is the tagged union described in spec §9: Empty(BYE) |
// Position(k) | Participant(id, score?, result?, forfeit?).
type Opponent struct {
	Kind OpponentKind `json:"kind"`

	// Position is meaningful only when Kind == OpponentPosition.
	Position int `json:"position,omitempty"`

	// ParticipantID, Score, Result and Forfeit are meaningful only
	// when Kind == OpponentParticipant.
	ParticipantID int     `json:"id,omitempty"`
	Score         *int    `json:"score,omitempty"`
	Result        *Result `json:"result,omitempty"`
	Forfeit       bool    `json:"forfeit,omitempty"`
}

// Bye is the canonical empty opponent.
func Bye() Opponent { return Opponent{Kind: OpponentEmpty} }

// Placeholder references an as-yet-unresolved seed position.
func Placeholder(position int) Opponent {
	return Opponent{Kind: OpponentPosition, Position: position}
}

// Participant wraps a resolved participant id with no score/result yet.
func ParticipantOpponent(id int) Opponent {
	return Opponent{Kind: OpponentParticipant, ParticipantID: id}
}

func (o Opponent) IsEmpty() bool       { return o.Kind == OpponentEmpty }
func (o Opponent) IsPosition() bool    { return o.Kind == OpponentPosition }
func (o Opponent) IsParticipant() bool { return o.Kind == OpponentParticipant }

// IsResolved reports whether this slot currently holds an actual
// participant (not a BYE, not a pending placeholder).
func (o Opponent) IsResolved() bool { return o.Kind == OpponentParticipant }

// HasResult reports whether a win/loss has been recorded for this side.
func (o Opponent) HasResult() bool {
	return o.Kind == OpponentParticipant && o.Result != nil
}

// Won reports whether this side has an explicit win result.
func (o Opponent) Won() bool {
	return o.Kind == OpponentParticipant && o.Result != nil && *o.Result == ResultWin
}

// ScoreValue returns the recorded score, defaulting to 0.
func (o Opponent) ScoreValue() int {
	if o.Score == nil {
		return 0
	}
	return *o.Score
}

// WithResult returns a copy of the opponent with result/forfeit applied.
func (o Opponent) WithResult(result Result, forfeit bool) Opponent {
	o.Result = &result
	o.Forfeit = forfeit
	return o
}

// WithScore returns a copy of the opponent with the given score set.
func (o Opponent) WithScore(score int) Opponent {
	o.Score = &score
	return o
}

// Cleared returns the opponent with any result/score/forfeit removed,
// keeping its participant identity. Used by reset.
func (o Opponent) Cleared() Opponent {
	o.Score = nil
	o.Result = nil
	o.Forfeit = false
	return o
}
