package services

import (
	"context"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"github.com/rs/zerolog/log"
)

func HandleEvent(ctx context.Context, event gap.PollEvent) {
	switch evt := event.(type) {
	case gap.VoteAdded:
		if err := IngestVoteAdded(ctx, evt.ChannelID, evt.MessageID, evt.UserID, evt.AnswerToken); err != nil {
			log.Error().Err(err).Str("message", evt.MessageID).Msg("An error occurred when recording vote...")
		}
		if err := CheckPollForCompletion(ctx, evt.ChannelID, evt.MessageID); err != nil {
			log.Error().Err(err).Str("message", evt.MessageID).Msg("An error occurred when checking poll completion...")
		}
	case gap.VoteRemoved:
		if err := IngestVoteRemoved(ctx, evt.ChannelID, evt.MessageID, evt.UserID, evt.AnswerToken); err != nil {
			log.Error().Err(err).Str("message", evt.MessageID).Msg("An error occurred when removing vote...")
		}
	case gap.MessageUpdated:
		if err := CheckPollForCompletion(ctx, evt.ChannelID, evt.MessageID); err != nil {
			log.Error().Err(err).Str("message", evt.MessageID).Msg("An error occurred when checking poll completion...")
		}
	}
}
