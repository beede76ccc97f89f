package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-api/internal/dto"
	"github.com/campuslink/campuslink-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

type doubtRepoStub struct {
	doubts  []models.Doubt
	replies []models.DoubtReply
	likes   []models.DoubtLike
	ops     []string
}

func (s *doubtRepoStub) ListDoubts(context.Context) ([]models.Doubt, error) {
	out := make([]models.Doubt, len(s.doubts))
	copy(out, s.doubts)
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *doubtRepoStub) GetDoubt(_ context.Context, id string) (models.Doubt, error) {
	for _, d := range s.doubts {
		if d.ID == id {
			return d, nil
		}
	}
	return models.Doubt{}, gorm.ErrRecordNotFound
}

func (s *doubtRepoStub) CreateDoubt(_ context.Context, doubt *models.Doubt) error {
	if doubt.ID == "" {
		doubt.ID = uuid.NewString()
	}
	s.doubts = append(s.doubts, *doubt)
	return nil
}

func (s *doubtRepoStub) DeleteDoubt(_ context.Context, id string) error {
	s.ops = append(s.ops, "delete_doubt")
	for i, d := range s.doubts {
		if d.ID == id {
			s.doubts = append(s.doubts[:i], s.doubts[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *doubtRepoStub) ListReplies(_ context.Context, doubtID string) ([]models.DoubtReply, error) {
	var out []models.DoubtReply
	for _, r := range s.replies {
		if r.DoubtID == doubtID {
			out = append(out, r)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.Before(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *doubtRepoStub) GetReply(_ context.Context, id string) (models.DoubtReply, error) {
	for _, r := range s.replies {
		if r.ID == id {
			return r, nil
		}
	}
	return models.DoubtReply{}, gorm.ErrRecordNotFound
}

func (s *doubtRepoStub) CreateReply(_ context.Context, reply *models.DoubtReply) error {
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	s.replies = append(s.replies, *reply)
	return nil
}

func (s *doubtRepoStub) DeleteReply(_ context.Context, id string) error {
	for i, r := range s.replies {
		if r.ID == id {
			s.replies = append(s.replies[:i], s.replies[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *doubtRepoStub) DeleteRepliesForDoubt(_ context.Context, doubtID string) error {
	s.ops = append(s.ops, "delete_replies")
	kept := s.replies[:0]
	for _, r := range s.replies {
		if r.DoubtID != doubtID {
			kept = append(kept, r)
		}
	}
	s.replies = kept
	return nil
}

func (s *doubtRepoStub) HasLike(_ context.Context, targetID, userID string) (bool, error) {
	for _, l := range s.likes {
		if l.TargetID == targetID && l.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *doubtRepoStub) CreateLike(_ context.Context, like *models.DoubtLike) error {
	if like.ID == "" {
		like.ID = uuid.NewString()
	}
	s.likes = append(s.likes, *like)
	return nil
}

func (s *doubtRepoStub) DeleteLike(_ context.Context, targetID, userID string) error {
	for i, l := range s.likes {
		if l.TargetID == targetID && l.UserID == userID {
			s.likes = append(s.likes[:i], s.likes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *doubtRepoStub) DeleteLikesForDoubt(_ context.Context, targetID string) error {
	s.ops = append(s.ops, "delete_likes")
	kept := s.likes[:0]
	for _, l := range s.likes {
		if l.TargetID != targetID {
			kept = append(kept, l)
		}
	}
	s.likes = kept
	return nil
}

func (s *doubtRepoStub) CountLikes(_ context.Context, targetID string) (int64, error) {
	var count int64
	for _, l := range s.likes {
		if l.TargetID == targetID {
			count++
		}
	}
	return count, nil
}

func (s *doubtRepoStub) LikeCounts(ctx context.Context, targetIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(targetIDs))
	for _, id := range targetIDs {
		total, _ := s.CountLikes(ctx, id)
		if total > 0 {
			counts[id] = total
		}
	}
	return counts, nil
}

func (s *doubtRepoStub) ReplyCounts(_ context.Context, doubtIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(doubtIDs))
	for _, id := range doubtIDs {
		for _, r := range s.replies {
			if r.DoubtID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func (s *doubtRepoStub) LikedByUser(_ context.Context, targetIDs []string, userID string) (map[string]bool, error) {
	liked := make(map[string]bool, len(targetIDs))
	if userID == "" {
		return liked, nil
	}
	for _, id := range targetIDs {
		for _, l := range s.likes {
			if l.TargetID == id && l.UserID == userID {
				liked[id] = true
			}
		}
	}
	return liked, nil
}

type userRepoStub struct {
	profiles map[string]models.UserProfile
	upserted []models.UserProfile
}

func (s *userRepoStub) Get(_ context.Context, id string) (models.UserProfile, error) {
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return models.UserProfile{}, gorm.ErrRecordNotFound
}

func (s *userRepoStub) GetBatch(_ context.Context, ids []string) (map[string]models.UserProfile, error) {
	out := make(map[string]models.UserProfile, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *userRepoStub) Upsert(_ context.Context, profile *models.UserProfile) error {
	if s.profiles == nil {
		s.profiles = make(map[string]models.UserProfile)
	}
	s.profiles[profile.ID] = *profile
	s.upserted = append(s.upserted, *profile)
	return nil
}

func testUsers() *userRepoStub {
	return &userRepoStub{profiles: map[string]models.UserProfile{
		"u1": {ID: "u1", FirstName: "Asha", LastName: "Patel", RollNo: "22CE8001", AcademicYear: 2, Branch: "Computer"},
		"u2": {ID: "u2", FirstName: "Rohan", LastName: "Mehta", RollNo: "22CE8002", AcademicYear: 3, Branch: "IT"},
	}}
}

func TestFeedServiceLoadDecoratesPosts(t *testing.T) {
	now := time.Now()
	repo := &doubtRepoStub{
		doubts: []models.Doubt{
			{ID: "d1", UserID: "u1", Content: "older", CreatedAt: now.Add(-time.Hour)},
			{ID: "d2", UserID: "u2", Content: "newer", CreatedAt: now},
		},
		replies: []models.DoubtReply{
			{ID: "r1", DoubtID: "d1", UserID: "u2", Content: "try this", CreatedAt: now},
		},
		likes: []models.DoubtLike{
			{ID: "l1", TargetID: "d1", UserID: "u2"},
			{ID: "l2", TargetID: "d1", UserID: "u1"},
		},
	}

	svc := NewFeedService(repo, testUsers(), nil, time.Minute, testValidator(), testLogger())

	posts, err := svc.Load(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "d2", posts[0].ID, "expected newest post first")

	older := posts[1]
	require.Equal(t, "Asha", older.Author.FirstName)
	require.Equal(t, int64(2), older.LikeCount)
	require.Equal(t, int64(1), older.ReplyCount)
	require.True(t, older.Liked, "u2 has a like row for d1")
	require.False(t, posts[0].Liked, "no like row means not liked")
}

func TestFeedServiceLoadUsesCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	repo := &doubtRepoStub{doubts: []models.Doubt{
		{ID: "d1", UserID: "u1", Content: "cached?", CreatedAt: time.Now()},
	}}

	svc := NewFeedService(repo, testUsers(), redisClient, time.Minute, testValidator(), testLogger())

	posts, err := svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, posts, 1)

	repo.doubts = nil
	cached, err := svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, cached, 1, "second load should be served from cache")

	// A different viewer gets its own key and sees the fresh state.
	fresh, err := svc.Load(context.Background(), "u2")
	require.NoError(t, err)
	require.Empty(t, fresh)
}

func TestFeedServiceCreateDoubtInvalidatesCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	repo := &doubtRepoStub{}
	svc := NewFeedService(repo, testUsers(), redisClient, time.Minute, testValidator(), testLogger())

	_, err = svc.Load(context.Background(), "u1")
	require.NoError(t, err)

	_, err = svc.CreateDoubt(context.Background(), "u1", dto.DoubtCreateRequest{Content: "anyone solved sheet 3?"})
	require.NoError(t, err)

	posts, err := svc.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, posts, 1, "stale cached feed should have been dropped")
}

func TestFeedServiceCreateDoubtContentRules(t *testing.T) {
	repo := &doubtRepoStub{}
	svc := NewFeedService(repo, testUsers(), nil, time.Minute, testValidator(), testLogger())
	ctx := context.Background()

	_, err := svc.CreateDoubt(ctx, "u1", dto.DoubtCreateRequest{Content: "   \n\t  "})
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.CreateDoubt(ctx, "u1", dto.DoubtCreateRequest{Content: strings.Repeat("a", 281)})
	require.Error(t, err, "281 characters must be rejected")

	post, err := svc.CreateDoubt(ctx, "u1", dto.DoubtCreateRequest{Content: strings.Repeat("a", 280)})
	require.NoError(t, err, "exactly 280 characters is allowed")
	require.Len(t, post.Content, 280)

	post, err = svc.CreateDoubt(ctx, "u1", dto.DoubtCreateRequest{Content: strings.Repeat("a", 278) + "  "})
	require.NoError(t, err, "trailing whitespace must not count against the cap")
	require.Len(t, post.Content, 278)

	post, err = svc.CreateDoubt(ctx, "u1", dto.DoubtCreateRequest{Content: "<script>alert('x')</script>what is normalization?"})
	require.NoError(t, err)
	require.Equal(t, "what is normalization?", post.Content)
}

func TestFeedServiceCreateDoubtKeepsLiteralCharacters(t *testing.T) {
	repo := &doubtRepoStub{}
	svc := NewFeedService(repo, testUsers(), nil, time.Minute, testValidator(), testLogger())
	ctx := context.Background()

	// Characters the markup stripper escapes internally must come back out
	// literal: they count as one rune each and are stored as typed.
	post, err := svc.CreateDoubt(ctx, "u1", dto.DoubtCreateRequest{Content: "Tom & Jerry < 3 > 2"})
	require.NoError(t, err)
	require.Equal(t, "Tom & Jerry < 3 > 2", post.Content)
	require.Equal(t, "Tom & Jerry < 3 > 2", repo.doubts[0].Content)

	post, err = svc.CreateDoubt(ctx, "u1", dto.DoubtCreateRequest{Content: strings.Repeat("a", 279) + "&"})
	require.NoError(t, err, "an ampersand is one character, not five")
	require.Len(t, []rune(post.Content), 280)
}

func TestFeedServiceCreateDoubtStampsAuthorContext(t *testing.T) {
	repo := &doubtRepoStub{}
	svc := NewFeedService(repo, testUsers(), nil, time.Minute, testValidator(), testLogger())

	post, err := svc.CreateDoubt(context.Background(), "u2", dto.DoubtCreateRequest{Content: "stuck on joins"})
	require.NoError(t, err)
	require.Equal(t, 3, post.AcademicYear)
	require.Equal(t, "IT", post.Branch)
	require.Equal(t, "Rohan", post.Author.FirstName)
}

func TestFeedServiceToggleLikeIsInverse(t *testing.T) {
	repo := &doubtRepoStub{doubts: []models.Doubt{{ID: "d1", UserID: "u1", Content: "q"}}}
	svc := NewFeedService(repo, testUsers(), nil, time.Minute, testValidator(), testLogger())
	ctx := context.Background()

	result, err := svc.ToggleLike(ctx, "u2", "d1")
	require.NoError(t, err)
	require.True(t, result.Liked)
	require.Equal(t, int64(1), result.LikeCount)

	result, err = svc.ToggleLike(ctx, "u2", "d1")
	require.NoError(t, err)
	require.False(t, result.Liked)
	require.Equal(t, int64(0), result.LikeCount)
	require.Empty(t, repo.likes)
}

func TestFeedServiceToggleLikeRepeatedRequestsConverge(t *testing.T) {
	repo := &doubtRepoStub{doubts: []models.Doubt{{ID: "d1", UserID: "u1", Content: "q"}}}
	svc := NewFeedService(repo, testUsers(), nil, time.Minute, testValidator(), testLogger())
	ctx := context.Background()

	// A double-submitted like must never leave two rows behind: the second
	// request re-reads the state and flips back instead of inserting again.
	for i := 0; i < 5; i++ {
		_, err := svc.ToggleLike(ctx, "u2", "d1")
		require.NoError(t, err)
	}

	count, err := repo.CountLikes(ctx, "d1")
	require.NoError(t, err)
	require.LessOrEqual(t, count, int64(1))

	result, err := svc.ToggleLike(ctx, "u2", "d1")
	require.NoError(t, err)
	require.Equal(t, result.Liked, result.LikeCount == 1)
}

func TestFeedServiceToggleLikeMissingDoubt(t *testing.T) {
	repo := &doubtRepoStub{}
	svc := NewFeedService(repo, testUsers(), nil, time.Minute, testValidator(), testLogger())

	_, err := svc.ToggleLike(context.Background(), "u2", "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Empty(t, repo.likes, "no like row may be written for a missing doubt")
}

func TestFeedServiceDeleteDoubtCascadeOrder(t *testing.T) {
	repo := &doubtRepoStub{
		doubts:  []models.Doubt{{ID: "d1", UserID: "u1", Content: "q"}},
		replies: []models.DoubtReply{{ID: "r1", DoubtID: "d1", UserID: "u2", Content: "a"}},
		likes:   []models.DoubtLike{{ID: "l1", TargetID: "d1", UserID: "u2"}},
	}
	svc := NewFeedService(repo, testUsers(), nil, time.Minute, testValidator(), testLogger())

	require.NoError(t, svc.DeleteDoubt(context.Background(), "u1", "d1"))
	require.Equal(t, []string{"delete_replies", "delete_likes", "delete_doubt"}, repo.ops)
	require.Empty(t, repo.doubts)
	require.Empty(t, repo.replies)
	require.Empty(t, repo.likes)
}

func TestFeedServiceDeleteDoubtRequiresOwnership(t *testing.T) {
	repo := &doubtRepoStub{doubts: []models.Doubt{{ID: "d1", UserID: "u1", Content: "q"}}}
	svc := NewFeedService(repo, testUsers(), nil, time.Minute, testValidator(), testLogger())

	err := svc.DeleteDoubt(context.Background(), "u2", "d1")
	require.ErrorIs(t, err, ErrForbidden)
	require.Len(t, repo.doubts, 1)
	require.Empty(t, repo.ops, "no cascade step may run for a non-owner")
}

func TestFeedServiceReportPersistsNothing(t *testing.T) {
	repo := &doubtRepoStub{doubts: []models.Doubt{{ID: "d1", UserID: "u1", Content: "q"}}}
	svc := NewFeedService(repo, testUsers(), nil, time.Minute, testValidator(), testLogger())

	ack, err := svc.Report(context.Background(), "u2", "d1")
	require.NoError(t, err)
	require.Equal(t, "d1", ack.TargetID)
	require.Equal(t, "acknowledged", ack.Status)
	require.Len(t, repo.doubts, 1)
	require.Empty(t, repo.ops)
}
