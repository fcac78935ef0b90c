package services

import (
	"context"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/gap"
	"github.com/rs/zerolog/log"
)

type ContentVerdict struct {
	Allowed         bool `json:"allowed"`
	ChannelAllows   bool `json:"channel_allows"`
	CommunityAllows bool `json:"community_allows"`
}

// CheckContentGate decides whether a book may be shown in a channel.
// Mature books need both the channel flag and the community opt-in, any lookup failure blocks.
func CheckContentGate(ctx context.Context, communityID, channelID string, book BookInfo) ContentVerdict {
	if !book.IsMature {
		return ContentVerdict{Allowed: true, ChannelAllows: true, CommunityAllows: true}
	}

	var verdict ContentVerdict
	if allowed, err := gap.Chat.ChannelAllowsMature(ctx, channelID); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("Unable to check channel maturity flag, treating as not allowed...")
	} else {
		verdict.ChannelAllows = allowed
	}
	if config, err := GetCommunityConfig(ctx, communityID); err != nil {
		log.Warn().Err(err).Str("community", communityID).Msg("Unable to load community config, treating mature content as disabled...")
	} else {
		verdict.CommunityAllows = config.MatureContentEnabled
	}

	verdict.Allowed = verdict.ChannelAllows && verdict.CommunityAllows
	return verdict
}
