package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/apperror"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/campus-ticketing/internal/repository"
)

const maxCommentLen = 1000

// SubmitReview stores one rating per (event, user) and folds it into the
// event's running average in the same atomic operation. A duplicate is
// rejected before anything is written, so the average is untouched.
func (s *TicketService) SubmitReview(ctx context.Context, eventID string, who model.Identity, req model.ReviewRequest) (*model.Review, error) {
	if strings.TrimSpace(who.UserID) == "" {
		return nil, apperror.ErrUnauthorized
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperror.Validation("rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(req.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLen {
		return nil, apperror.Validation("comment is too long")
	}

	review := &model.Review{
		EventID:   eventID,
		UserID:    who.UserID,
		UserName:  who.DisplayName,
		Rating:    req.Rating,
		Comment:   comment,
		CreatedAt: s.opts.Now(),
	}
	var average float64
	err := s.store.RunAtomic(ctx, eventID, func(tx repository.Tx) error {
		e, err := tx.Event(ctx)
		if err != nil {
			return err
		}
		existing, err := tx.Review(ctx, who.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.ErrAlreadyReviewed
		}
		if err := tx.InsertReview(ctx, review); err != nil {
			return err
		}
		e.RatingAverage = RunningAverage(e.RatingAverage, e.RatingCount, review.Rating)
		e.RatingCount++
		if err := tx.SaveEvent(ctx, e); err != nil {
			return err
		}
		average = e.RatingAverage
		return nil
	})
	if err != nil {
		s.logRejected("review rejected", eventID, who, err)
		return nil, err
	}

	s.log.Info("review submitted",
		zap.String("event_id", eventID),
		zap.String("user_id", who.UserID),
		zap.Int("rating", review.Rating),
		zap.Float64("rating_average", average))
	return review, nil
}

// RunningAverage folds one more rating into an average over count ratings.
func RunningAverage(average float64, count, rating int) float64 {
	return (average*float64(count) + float64(rating)) / float64(count+1)
}

// Reviews lists the reviews of an event.
func (s *TicketService) Reviews(ctx context.Context, eventID string) ([]model.Review, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListReviews(ctx, eventID)
}
