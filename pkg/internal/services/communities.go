package services

import (
	"context"
	"errors"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetCommunityConfig returns the stored config or the defaults when none was saved.
func GetCommunityConfig(ctx context.Context, communityID string) (models.CommunityConfig, error) {
	var config models.CommunityConfig
	if err := database.C.WithContext(ctx).Where("community_id = ?", communityID).First(&config).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CommunityConfig{CommunityID: communityID}, nil
		}
		return config, err
	}
	return config, nil
}

func SaveCommunityConfig(ctx context.Context, config models.CommunityConfig) (models.CommunityConfig, error) {
	err := database.C.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "community_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"announcement_channel_id",
			"pin_polls",
			"auto_complete_on_deadline",
			"mature_content_enabled",
			"updated_at",
		}),
	}).Create(&config).Error
	return config, err
}

// announcementTarget picks the configured announcement channel, falling back to the origin.
func announcementTarget(config models.CommunityConfig, origin string) string {
	if config.AnnouncementChannelID != nil && len(*config.AnnouncementChannelID) > 0 {
		return *config.AnnouncementChannelID
	}
	return origin
}
