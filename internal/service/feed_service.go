package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuslink/campuslink-api/internal/dto"
	"github.com/campuslink/campuslink-api/internal/models"
	"github.com/campuslink/campuslink-api/internal/observability"
	"github.com/campuslink/campuslink-api/internal/repository"
)

// ErrEmptyContent indicates the composer submitted blank or whitespace-only text.
var ErrEmptyContent = errors.New("content must not be empty")

// ErrContentTooLong indicates a doubt exceeded the 280 character cap.
var ErrContentTooLong = errors.New("content exceeds 280 characters")

// LikeResult reports the confirmed state after a toggle.
type LikeResult struct {
	TargetID  string `json:"target_id"`
	Liked     bool   `json:"liked"`
	LikeCount int64  `json:"like_count"`
}

// FeedService owns the decorated doubts feed and its mutations.
type FeedService interface {
	Load(ctx context.Context, currentUserID string) ([]dto.FeedPost, error)
	CreateDoubt(ctx context.Context, userID string, payload dto.DoubtCreateRequest) (dto.FeedPost, error)
	ToggleLike(ctx context.Context, userID, doubtID string) (LikeResult, error)
	DeleteDoubt(ctx context.Context, userID, doubtID string) error
	Report(ctx context.Context, userID, doubtID string) (dto.ReportAck, error)
}

type feedService struct {
	doubts    repository.DoubtRepository
	users     repository.UserRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewFeedService constructs the feed service. The cache client may be nil,
// in which case every load hits the database.
func NewFeedService(doubts repository.DoubtRepository, users repository.UserRepository, cache *redis.Client, cacheTTL time.Duration, validate *validator.Validate, logger zerolog.Logger) FeedService {
	return &feedService{
		doubts:    doubts,
		users:     users,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger.With().Str("component", "feed_service").Logger(),
		tracer:    otel.Tracer("github.com/campuslink/campuslink-api/internal/service/feed"),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

func feedCacheKey(userID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return fmt.Sprintf("feed:doubts:%s", userID)
}

// invalidateFeedCache drops the viewer's cached feed and the anonymous one.
// Every feed mutation calls this so the next load refetches.
func invalidateFeedCache(ctx context.Context, cache *redis.Client, logger zerolog.Logger, userID string) {
	if cache == nil {
		return
	}
	keys := []string{feedCacheKey(userID), feedCacheKey("")}
	if err := cache.Del(ctx, keys...).Err(); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate feed cache")
	}
}

// stripMarkup removes markup from user text and returns the literal
// characters. The sanitizer entity-escapes the text it keeps, so the result
// is unescaped again before it is measured or stored: "Tom & Jerry" must
// stay "Tom & Jerry".
func stripMarkup(policy *bluemonday.Policy, text string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(text)))
}

// Load returns all doubts newest first, each decorated with its author and
// derived counts. Decoration collects the distinct foreign ids and issues
// one grouped lookup per related entity, then merges.
func (s *feedService) Load(ctx context.Context, currentUserID string) ([]dto.FeedPost, error) {
	ctx, span := s.tracer.Start(ctx, "feed.load")
	defer span.End()

	cacheKey := feedCacheKey(currentUserID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var posts []dto.FeedPost
			if unmarshalErr := json.Unmarshal([]byte(cached), &posts); unmarshalErr == nil {
				observability.FeedLoads().WithLabelValues("hit").Inc()
				span.SetAttributes(attribute.Bool("feed.cache_hit", true))
				return posts, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read feed cache")
		}
	}
	observability.FeedLoads().WithLabelValues("miss").Inc()

	doubts, err := s.doubts.ListDoubts(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	posts, err := s.decorate(ctx, doubts, currentUserID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(posts); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store feed cache")
			}
		}
	}

	span.SetAttributes(attribute.Int("feed.size", len(posts)))
	return posts, nil
}

func (s *feedService) decorate(ctx context.Context, doubts []models.Doubt, currentUserID string) ([]dto.FeedPost, error) {
	ids := make([]string, 0, len(doubts))
	userIDs := make([]string, 0, len(doubts))
	seenUsers := make(map[string]struct{}, len(doubts))
	for _, d := range doubts {
		ids = append(ids, d.ID)
		if _, ok := seenUsers[d.UserID]; !ok {
			seenUsers[d.UserID] = struct{}{}
			userIDs = append(userIDs, d.UserID)
		}
	}

	authors, err := s.users.GetBatch(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	likeCounts, err := s.doubts.LikeCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	replyCounts, err := s.doubts.ReplyCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	liked, err := s.doubts.LikedByUser(ctx, ids, currentUserID)
	if err != nil {
		return nil, err
	}

	posts := make([]dto.FeedPost, 0, len(doubts))
	for _, d := range doubts {
		posts = append(posts, dto.FeedPost{
			ID:           d.ID,
			UserID:       d.UserID,
			Content:      d.Content,
			AcademicYear: d.AcademicYear,
			Branch:       d.Branch,
			CreatedAt:    d.CreatedAt,
			Author:       dto.NewAuthorSummary(authors[d.UserID]),
			LikeCount:    likeCounts[d.ID],
			Liked:        liked[d.ID],
			ReplyCount:   replyCounts[d.ID],
		})
	}
	return posts, nil
}

// CreateDoubt validates and inserts a new doubt stamped with the author's
// academic year and branch. The cached feed is invalidated rather than
// appended to: the next load refetches.
func (s *feedService) CreateDoubt(ctx context.Context, userID string, payload dto.DoubtCreateRequest) (dto.FeedPost, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedPost{}, err
	}

	content := stripMarkup(s.sanitizer, payload.Content)
	if content == "" {
		return dto.FeedPost{}, ErrEmptyContent
	}
	if len([]rune(content)) > 280 {
		return dto.FeedPost{}, ErrContentTooLong
	}

	author, err := s.users.Get(ctx, userID)
	if err != nil {
		return dto.FeedPost{}, err
	}

	doubt := models.Doubt{
		UserID:       userID,
		Content:      content,
		AcademicYear: author.AcademicYear,
		Branch:       author.Branch,
		IsAnonymous:  false,
		CreatedAt:    s.now(),
	}
	if err := s.doubts.CreateDoubt(ctx, &doubt); err != nil {
		return dto.FeedPost{}, err
	}

	s.invalidate(ctx, userID)
	s.logger.Info().Str("doubt_id", doubt.ID).Str("user_id", userID).Msg("doubt created")

	return dto.FeedPost{
		ID:           doubt.ID,
		UserID:       doubt.UserID,
		Content:      doubt.Content,
		AcademicYear: doubt.AcademicYear,
		Branch:       doubt.Branch,
		CreatedAt:    doubt.CreatedAt,
		Author:       dto.NewAuthorSummary(author),
	}, nil
}

// ToggleLike re-reads the like row before deciding the direction, so a
// duplicate request converges instead of double-inserting, and reports the
// confirmed state only after the write succeeds.
func (s *feedService) ToggleLike(ctx context.Context, userID, doubtID string) (LikeResult, error) {
	ctx, span := s.tracer.Start(ctx, "feed.toggle_like", trace.WithAttributes(
		attribute.String("doubt.id", doubtID),
	))
	defer span.End()

	if _, err := s.doubts.GetDoubt(ctx, doubtID); err != nil {
		span.RecordError(err)
		return LikeResult{}, err
	}

	liked, err := s.doubts.HasLike(ctx, doubtID, userID)
	if err != nil {
		span.RecordError(err)
		return LikeResult{}, err
	}

	if liked {
		if err := s.doubts.DeleteLike(ctx, doubtID, userID); err != nil {
			span.RecordError(err)
			return LikeResult{}, err
		}
		observability.LikeToggles().WithLabelValues("unlike").Inc()
	} else {
		like := models.DoubtLike{TargetID: doubtID, UserID: userID, CreatedAt: s.now()}
		if err := s.doubts.CreateLike(ctx, &like); err != nil {
			span.RecordError(err)
			return LikeResult{}, err
		}
		observability.LikeToggles().WithLabelValues("like").Inc()
	}

	count, err := s.doubts.CountLikes(ctx, doubtID)
	if err != nil {
		span.RecordError(err)
		return LikeResult{}, err
	}

	s.invalidate(ctx, userID)

	return LikeResult{TargetID: doubtID, Liked: !liked, LikeCount: count}, nil
}

// DeleteDoubt removes a doubt and its dependents. The cascade order is
// replies, then likes, then the doubt row; the first failing step aborts
// the remainder so no step runs against a half-deleted parent.
func (s *feedService) DeleteDoubt(ctx context.Context, userID, doubtID string) error {
	ctx, span := s.tracer.Start(ctx, "feed.delete_doubt", trace.WithAttributes(
		attribute.String("doubt.id", doubtID),
	))
	defer span.End()

	doubt, err := s.doubts.GetDoubt(ctx, doubtID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ActionsFor(userID, doubt.UserID).CanDelete {
		return ErrForbidden
	}

	if err := s.doubts.DeleteRepliesForDoubt(ctx, doubtID); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.doubts.DeleteLikesForDoubt(ctx, doubtID); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.doubts.DeleteDoubt(ctx, doubtID); err != nil {
		span.RecordError(err)
		return err
	}

	s.invalidate(ctx, userID)
	s.logger.Info().Str("doubt_id", doubtID).Str("user_id", userID).Msg("doubt deleted with cascade")

	return nil
}

// Report acknowledges a report without persisting anything.
func (s *feedService) Report(ctx context.Context, userID, doubtID string) (dto.ReportAck, error) {
	if _, err := s.doubts.GetDoubt(ctx, doubtID); err != nil {
		return dto.ReportAck{}, err
	}

	s.logger.Info().Str("doubt_id", doubtID).Str("user_id", userID).Msg("doubt reported")

	return dto.ReportAck{TargetID: doubtID, Status: "acknowledged"}, nil
}

func (s *feedService) invalidate(ctx context.Context, userID string) {
	invalidateFeedCache(ctx, s.cache, s.logger, userID)
}
