package services

import (
	"context"
	"time"

	"git.solsynth.dev/hypernet/bookclub/pkg/internal/database"
	"git.solsynth.dev/hypernet/bookclub/pkg/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MinRating = 1
	MaxRating = 5
)

// UpsertRating records a user's rating, the latest vote wins.
func UpsertRating(ctx context.Context, userID string, completedID uint, rating int) error {
	return database.C.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.BookRating{
			UserID:          userID,
			CompletedBookID: completedID,
			Rating:          rating,
			RatedAt:         time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "completed_book_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "rated_at", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return recomputeRatingAggregate(tx, completedID)
	})
}

// RemoveRating deletes a user's rating. When rating is set, only a row still holding that value is removed.
func RemoveRating(ctx context.Context, userID string, completedID uint, rating *int) (bool, error) {
	var removed bool
	err := database.C.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("user_id = ? AND completed_book_id = ?", userID, completedID)
		if rating != nil {
			query = query.Where("rating = ?", *rating)
		}
		result := query.Delete(&models.BookRating{})
		if result.Error != nil {
			return result.Error
		}
		if removed = result.RowsAffected > 0; !removed {
			return nil
		}
		return recomputeRatingAggregate(tx, completedID)
	})
	return removed, err
}

func recomputeRatingAggregate(tx *gorm.DB, completedID uint) error {
	var aggregate struct {
		Average *float64
		Total   int
	}
	if err := tx.Model(&models.BookRating{}).
		Select("AVG(rating) AS average, COUNT(*) AS total").
		Where("completed_book_id = ?", completedID).
		Scan(&aggregate).Error; err != nil {
		return err
	}

	return tx.Model(&models.CompletedBook{}).
		Where("id = ?", completedID).
		Updates(map[string]any{
			"average_rating": aggregate.Average,
			"total_ratings":  aggregate.Total,
		}).Error
}

func GetCompletedBook(ctx context.Context, id uint) (models.CompletedBook, error) {
	var book models.CompletedBook
	if err := database.C.WithContext(ctx).Where("id = ?", id).First(&book).Error; err != nil {
		return book, err
	}
	return book, nil
}

func ListRatings(ctx context.Context, completedID uint) ([]models.BookRating, error) {
	var ratings []models.BookRating
	if err := database.C.WithContext(ctx).
		Where("completed_book_id = ?", completedID).
		Order("rated_at DESC").
		Find(&ratings).Error; err != nil {
		return ratings, err
	}
	return ratings, nil
}
