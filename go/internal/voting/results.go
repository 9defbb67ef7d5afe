package voting

import (
	"math"
	"strconv"
)

// NoVoteSentinel is the display value recorded for a participant who never
// voted in the round.
const NoVoteSentinel = "?"

// Results is the frozen summary of a completed round.
type Results struct {
	StoryName string `json:"story_name"`
	// UserVotes always carries one entry per participant; participants
	// who never voted appear with the sentinel value.
	UserVotes map[string]string `json:"user_votes"`
	// AverageScore is the mean of the numeric-parseable votes, rounded
	// to two decimals. Nil when no vote parses as a number.
	AverageScore *float64 `json:"average_score"`
}

// calculateResults is a pure function over the participant map at the
// moment of reveal. Non-numeric votes (including the sentinel) are kept
// verbatim in UserVotes but excluded from the average.
func calculateResults(storyName string, participants map[string]*Participant) *Results {
	results := &Results{
		StoryName: storyName,
		UserVotes: make(map[string]string, len(participants)),
	}

	var numeric []float64
	for _, p := range participants {
		vote := NoVoteSentinel
		if p.Vote != nil {
			vote = *p.Vote
		}
		results.UserVotes[p.Username] = vote

		if v, err := strconv.ParseFloat(vote, 64); err == nil {
			numeric = append(numeric, v)
		}
	}

	if len(numeric) > 0 {
		sum := 0.0
		for _, v := range numeric {
			sum += v
		}
		avg := math.Round(sum/float64(len(numeric))*100) / 100
		results.AverageScore = &avg
	}

	return results
}
