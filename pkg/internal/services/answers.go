package services

import (
	"context"
	"fmt"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	lru "github.com/hashicorp/golang-lru"
	"github.com/samber/lo"
)

// AnswerResolver maps answer tokens of a poll to their 1-based position.
// The cache only saves platform calls, a miss always refetches the answer list.
type AnswerResolver struct {
	entries *lru.Cache
}

func NewAnswerResolver(size int) (*AnswerResolver, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("unable to create answer cache: %v", err)
	}
	return &AnswerResolver{entries: entries}, nil
}

var Answers = lo.Must(NewAnswerResolver(DefaultSettings().AnswerCacheSize))

func buildAnswerIndex(answers []gap.PollAnswer) map[string]int {
	index := make(map[string]int, len(answers))
	for idx, answer := range answers {
		index[answer.Token] = idx + 1
	}
	return index
}

func (v *AnswerResolver) Prime(messageID string, answers []gap.PollAnswer) {
	if len(answers) == 0 {
		return
	}
	v.entries.Add(messageID, buildAnswerIndex(answers))
}

// Resolve returns the 1-based index of token; ok is false when a fresh answer list lacks it.
func (v *AnswerResolver) Resolve(ctx context.Context, channelID, messageID, token string) (int, bool, error) {
	if val, hit := v.entries.Get(messageID); hit {
		if idx, ok := val.(map[string]int)[token]; ok {
			return idx, true, nil
		}
	}

	state, err := gap.Chat.FetchPoll(ctx, channelID, messageID)
	if err != nil {
		return 0, false, err
	}
	index := buildAnswerIndex(state.Answers)
	v.entries.Add(messageID, index)

	idx, ok := index[token]
	return idx, ok, nil
}

func (v *AnswerResolver) Purge(messageID string) {
	v.entries.Remove(messageID)
}

func (v *AnswerResolver) Len() int {
	return v.entries.Len()
}
