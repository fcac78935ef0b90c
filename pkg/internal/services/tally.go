package services

import (
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"github.com/samber/lo"
)

// Outcome is the result of picking a winner from per-answer counts.
type Outcome struct {
	Index     int  `json:"index"`
	Votes     int  `json:"votes"`
	Tied      bool `json:"tied"`
	HasWinner bool `json:"has_winner"`
}

// TallyAnswers orders the platform counts by answer position.
func TallyAnswers(state *gap.PollState) []int {
	return lo.Map(state.Answers, func(item gap.PollAnswer, _ int) int {
		return state.Counts[item.Token]
	})
}

// PickWinner takes the highest count, ties go to the lowest index. All zero means no winner.
func PickWinner(counts []int) Outcome {
	out := Outcome{Index: -1}
	for idx, count := range counts {
		if count > out.Votes {
			out = Outcome{Index: idx, Votes: count, HasWinner: true}
		} else if count > 0 && count == out.Votes {
			out.Tied = true
		}
	}
	return out
}
