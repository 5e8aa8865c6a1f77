package bracket

import (
	"fmt"

	"github.com/Dosada05/bracketengine/models"
	"github.com/Dosada05/bracketengine/seeding"
)

// paddedSeed pads participantIDs with BYEs (represented as id 0) up to
// the configured or next-power-of-two size, then applies the
// configured ordering method. Returns the slot list (length a power of
// two) where slot[i]==0 means BYE.
func paddedSeed(st *models.Stage, participantIDs []int) ([]int, error) {
	n := len(participantIDs)
	if n < 2 {
		return nil, fmt.Errorf("bracket: need at least 2 participants, got %d", n)
	}

	size := nextPowerOfTwo(n)
	if st.Settings.Size != nil && *st.Settings.Size > size {
		size = nextPowerOfTwo(*st.Settings.Size)
	}

	raw := make([]int, size)
	copy(raw, participantIDs) // remaining entries stay 0 (BYE)

	if len(st.Settings.ManualOrdering) > 0 && len(st.Settings.ManualOrdering[0]) == size {
		ordered := make([]int, size)
		for i, seedIdx := range st.Settings.ManualOrdering[0] {
			if seedIdx < 0 || seedIdx >= size {
				return nil, fmt.Errorf("bracket: manualOrdering index %d out of range", seedIdx)
			}
			ordered[i] = raw[seedIdx]
		}
		return ordered, nil
	}

	method := st.Settings.SeedOrdering
	if st.Settings.BalanceByes && method == "" {
		method = seeding.InnerOuter
	}
	return seeding.Order(method, raw)
}

func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size *= 2
	}
	return size
}

func log2(n int) int {
	r := 0
	for 1<<uint(r) < n {
		r++
	}
	return r
}

// opponentForSeed converts a padded-seed slot value into an Opponent:
// 0 means BYE, anything else is a resolved participant.
func opponentForSeed(id int) models.Opponent {
	if id == 0 {
		return models.Bye()
	}
	return models.ParticipantOpponent(id)
}
