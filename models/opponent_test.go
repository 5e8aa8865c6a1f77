package models

import (
	"reflect"
	"testing"
)

func TestOpponentConstructors(t *testing.T) {
	if bye := Bye(); !bye.IsEmpty() || bye.IsPosition() || bye.IsParticipant() {
		t.Fatalf("Bye() should only be IsEmpty, got %+v", bye)
	}
	if ph := Placeholder(3); !ph.IsPosition() || ph.Position != 3 {
		t.Fatalf("Placeholder(3) should be IsPosition with Position 3, got %+v", ph)
	}
	if p := ParticipantOpponent(7); !p.IsParticipant() || p.ParticipantID != 7 {
		t.Fatalf("ParticipantOpponent(7) should be IsParticipant with id 7, got %+v", p)
	}
}

func TestOpponentWonAndHasResult(t *testing.T) {
	p := ParticipantOpponent(1)
	if p.Won() || p.HasResult() {
		t.Fatalf("fresh participant opponent should have no result yet: %+v", p)
	}
	won := p.WithResult(ResultWin, false)
	if !won.Won() || !won.HasResult() {
		t.Fatalf("WithResult(ResultWin) should report Won and HasResult: %+v", won)
	}
	lost := p.WithResult(ResultLoss, false)
	if lost.Won() || !lost.HasResult() {
		t.Fatalf("WithResult(ResultLoss) should report HasResult but not Won: %+v", lost)
	}

	// BYE and Position opponents never report a result regardless of
	// what a caller might try to attach.
	bye := Bye().WithResult(ResultWin, false)
	if bye.Won() || bye.HasResult() {
		t.Fatalf("a BYE cannot carry a result even if WithResult is called: %+v", bye)
	}
}

func TestOpponentClearedKeepsIdentity(t *testing.T) {
	p := ParticipantOpponent(5).WithScore(2).WithResult(ResultWin, true)
	cleared := p.Cleared()
	if cleared.ParticipantID != 5 {
		t.Fatalf("Cleared must keep ParticipantID, got %d", cleared.ParticipantID)
	}
	if cleared.Score != nil || cleared.Result != nil || cleared.Forfeit {
		t.Fatalf("Cleared must drop score/result/forfeit, got %+v", cleared)
	}
}

func TestOpponentScoreValueDefaultsToZero(t *testing.T) {
	p := ParticipantOpponent(1)
	if v := p.ScoreValue(); v != 0 {
		t.Fatalf("ScoreValue with no score set should be 0, got %d", v)
	}
	scored := p.WithScore(4)
	if v := scored.ScoreValue(); v != 4 {
		t.Fatalf("ScoreValue should return the set score, got %d", v)
	}
}

func TestWinThreshold(t *testing.T) {
	cases := map[int]int{
		1: 1,
		3: 2,
		5: 3,
		7: 4,
		2: 2,
		4: 3,
	}
	for childCount, want := range cases {
		if got := WinThreshold(childCount); got != want {
			t.Errorf("WinThreshold(%d) = %d, want %d", childCount, got, want)
		}
	}
}

func TestStageSettingsMarshalRoundTrip(t *testing.T) {
	size := 8
	settings := StageSettings{
		Size:              &size,
		SeedOrdering:      "natural",
		BalanceByes:       true,
		MatchesChildCount: 3,
		AllowDrawBoEven:   false,
	}
	raw, err := settings.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := UnmarshalSettings(raw)
	if err != nil {
		t.Fatalf("UnmarshalSettings: %v", err)
	}
	if decoded.Size == nil || *decoded.Size != size {
		t.Fatalf("round-tripped Size mismatch: %+v", decoded)
	}
	if decoded.SeedOrdering != settings.SeedOrdering || decoded.MatchesChildCount != settings.MatchesChildCount {
		t.Fatalf("round-tripped settings mismatch: got %+v, want %+v", decoded, settings)
	}
}

func TestUnmarshalSettingsEmptyString(t *testing.T) {
	decoded, err := UnmarshalSettings("")
	if err != nil {
		t.Fatalf("UnmarshalSettings(\"\") should not error: %v", err)
	}
	if !reflect.DeepEqual(decoded, StageSettings{}) {
		t.Fatalf("UnmarshalSettings(\"\") should be the zero value, got %+v", decoded)
	}
}

func TestChildCountEven(t *testing.T) {
	if (StageSettings{MatchesChildCount: 3}).ChildCountEven() {
		t.Fatal("3 is odd, ChildCountEven should be false")
	}
	if !(StageSettings{MatchesChildCount: 4}).ChildCountEven() {
		t.Fatal("4 is even, ChildCountEven should be true")
	}
	if (StageSettings{MatchesChildCount: 0}).ChildCountEven() {
		t.Fatal("0 means not a best-of series, ChildCountEven should be false")
	}
}
