package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campuslink/campuslink-api/internal/dto"
	"github.com/campuslink/campuslink-api/internal/models"
	"github.com/campuslink/campuslink-api/internal/repository"
)

// ReplyService owns a single doubt's reply thread.
type ReplyService interface {
	Thread(ctx context.Context, doubtID, currentUserID string) (dto.ThreadResponse, error)
	Add(ctx context.Context, userID, doubtID string, payload dto.ReplyCreateRequest) (dto.ReplyResponse, error)
	Remove(ctx context.Context, userID, replyID string) error
}

type replyService struct {
	doubts    repository.DoubtRepository
	users     repository.UserRepository
	cache     *redis.Client
	validator *validator.Validate
	logger    zerolog.Logger
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewReplyService constructs the reply thread service. Replies change the
// feed's reply counts, so the service shares the feed cache to invalidate
// it; a nil client disables that.
func NewReplyService(doubts repository.DoubtRepository, users repository.UserRepository, cache *redis.Client, validate *validator.Validate, logger zerolog.Logger) ReplyService {
	return &replyService{
		doubts:    doubts,
		users:     users,
		cache:     cache,
		validator: validate,
		logger:    logger.With().Str("component", "reply_service").Logger(),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// Thread returns the doubt with its stats and all replies in ascending
// creation order, each decorated with its author via one batched lookup.
func (s *replyService) Thread(ctx context.Context, doubtID, currentUserID string) (dto.ThreadResponse, error) {
	doubt, err := s.doubts.GetDoubt(ctx, doubtID)
	if err != nil {
		return dto.ThreadResponse{}, err
	}

	replies, err := s.doubts.ListReplies(ctx, doubtID)
	if err != nil {
		return dto.ThreadResponse{}, err
	}

	userIDs := []string{doubt.UserID}
	seen := map[string]struct{}{doubt.UserID: {}}
	for _, r := range replies {
		if _, ok := seen[r.UserID]; !ok {
			seen[r.UserID] = struct{}{}
			userIDs = append(userIDs, r.UserID)
		}
	}
	authors, err := s.users.GetBatch(ctx, userIDs)
	if err != nil {
		return dto.ThreadResponse{}, err
	}

	likeCount, err := s.doubts.CountLikes(ctx, doubtID)
	if err != nil {
		return dto.ThreadResponse{}, err
	}
	likedSet, err := s.doubts.LikedByUser(ctx, []string{doubtID}, currentUserID)
	if err != nil {
		return dto.ThreadResponse{}, err
	}

	out := dto.ThreadResponse{
		Post: dto.FeedPost{
			ID:           doubt.ID,
			UserID:       doubt.UserID,
			Content:      doubt.Content,
			AcademicYear: doubt.AcademicYear,
			Branch:       doubt.Branch,
			CreatedAt:    doubt.CreatedAt,
			Author:       dto.NewAuthorSummary(authors[doubt.UserID]),
			LikeCount:    likeCount,
			Liked:        likedSet[doubt.ID],
			ReplyCount:   int64(len(replies)),
		},
		Replies: make([]dto.ReplyResponse, 0, len(replies)),
	}
	for _, r := range replies {
		out.Replies = append(out.Replies, dto.ReplyResponse{
			ID:        r.ID,
			DoubtID:   r.DoubtID,
			UserID:    r.UserID,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
			Author:    dto.NewAuthorSummary(authors[r.UserID]),
		})
	}
	return out, nil
}

// Add inserts a reply with the fixed flat-threading fields. Callers refetch
// the thread afterwards; nothing is appended locally.
func (s *replyService) Add(ctx context.Context, userID, doubtID string, payload dto.ReplyCreateRequest) (dto.ReplyResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ReplyResponse{}, err
	}

	content := stripMarkup(s.sanitizer, payload.Content)
	if content == "" {
		return dto.ReplyResponse{}, ErrEmptyContent
	}

	if _, err := s.doubts.GetDoubt(ctx, doubtID); err != nil {
		return dto.ReplyResponse{}, err
	}

	reply := models.DoubtReply{
		DoubtID:       doubtID,
		UserID:        userID,
		Content:       content,
		ParentReplyID: nil,
		IsAnonymous:   false,
		IsBySenior:    false,
		CreatedAt:     s.now(),
	}
	if err := s.doubts.CreateReply(ctx, &reply); err != nil {
		return dto.ReplyResponse{}, err
	}

	invalidateFeedCache(ctx, s.cache, s.logger, userID)

	author, err := s.users.Get(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("reply author lookup failed")
	}

	s.logger.Info().Str("reply_id", reply.ID).Str("doubt_id", doubtID).Msg("reply created")

	return dto.ReplyResponse{
		ID:        reply.ID,
		DoubtID:   reply.DoubtID,
		UserID:    reply.UserID,
		Content:   reply.Content,
		CreatedAt: reply.CreatedAt,
		Author:    dto.NewAuthorSummary(author),
	}, nil
}

// Remove deletes a reply owned by the acting user.
func (s *replyService) Remove(ctx context.Context, userID, replyID string) error {
	reply, err := s.doubts.GetReply(ctx, replyID)
	if err != nil {
		return err
	}
	if !ActionsFor(userID, reply.UserID).CanDelete {
		return ErrForbidden
	}
	if err := s.doubts.DeleteReply(ctx, replyID); err != nil {
		return err
	}
	invalidateFeedCache(ctx, s.cache, s.logger, userID)
	return nil
}
