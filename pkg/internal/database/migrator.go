package database

import (
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.CommunityConfig{},
	&models.QueuedBook{},
	&models.CurrentBook{},
	&models.CompletedBook{},
	&models.BookRating{},
	&models.SelectionPoll{},
	&models.RatingPoll{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
