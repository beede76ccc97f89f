package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campuslink/campuslink-api/internal/dto"
	"github.com/campuslink/campuslink-api/internal/models"
	"github.com/campuslink/campuslink-api/internal/observability"
	"github.com/campuslink/campuslink-api/internal/repository"
	"github.com/campuslink/campuslink-api/pkg/storage"
)

var (
	// ErrUploadTooLarge indicates the file exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the detected MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

// NoteSortOption selects the browse ordering.
type NoteSortOption string

// Browse orderings.
const (
	NoteSortRecent NoteSortOption = "recent"
	NoteSortLikes  NoteSortOption = "likes"
)

// NoteFilter narrows the browse listing.
type NoteFilter struct {
	Search       string
	AcademicYear int
	Sort         NoteSortOption
}

// NoteService owns note uploads, browsing, likes and deletion.
type NoteService interface {
	Upload(ctx context.Context, userID string, payload dto.NoteUploadRequest, file *multipart.FileHeader) (dto.NoteResponse, error)
	Browse(ctx context.Context, filter NoteFilter) (dto.NoteBrowseResponse, error)
	Mine(ctx context.Context, userID string) (dto.GroupedNotes, error)
	ToggleLike(ctx context.Context, userID, noteID string) (LikeResult, error)
	Delete(ctx context.Context, userID, noteID string) error
	Subjects(ctx context.Context, academicYear, semester int) ([]dto.SubjectResponse, error)
}

type noteService struct {
	notes     repository.NoteRepository
	users     repository.UserRepository
	store     storage.Store
	bucket    string
	maxSize   int64
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewNoteService constructs the note service. bucket is the storage folder
// name embedded in public file URLs.
func NewNoteService(notes repository.NoteRepository, users repository.UserRepository, store storage.Store, bucket string, maxSizeMB int, validate *validator.Validate, logger zerolog.Logger) NoteService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &noteService{
		notes:     notes,
		users:     users,
		store:     store,
		bucket:    strings.Trim(bucket, "/"),
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		validator: validate,
		logger:    logger.With().Str("component", "note_service").Logger(),
		tracer:    otel.Tracer("github.com/campuslink/campuslink-api/internal/service/note"),
		now:       time.Now,
	}
}

// Upload validates the file, stores the blob under
// {userId}/{timestamp}-{filename} and inserts the note row. The key
// convention must not change: stored links resolve through it.
func (s *noteService) Upload(ctx context.Context, userID string, payload dto.NoteUploadRequest, file *multipart.FileHeader) (dto.NoteResponse, error) {
	ctx, span := s.tracer.Start(ctx, "note.upload")
	defer span.End()

	start := s.now()
	defer func() {
		observability.NoteUploadLatency().Observe(time.Since(start).Seconds())
	}()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.NoteResponse{}, err
	}

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		return dto.NoteResponse{}, err
	}
	if file.Size > s.maxSize {
		observability.NoteUploadRejected().WithLabelValues("size").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return dto.NoteResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.NoteResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.NoteResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.NoteUploadRejected().WithLabelValues("size").Inc()
		span.SetStatus(codes.Error, "payload too large")
		return dto.NoteResponse{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	fileType := detected.String()
	span.SetAttributes(attribute.String("note.detected_mime", fileType))
	if !isAllowedNoteType(fileType) {
		observability.NoteUploadRejected().WithLabelValues("type").Inc()
		span.SetStatus(codes.Error, "type not allowed")
		return dto.NoteResponse{}, ErrUploadTypeNotAllowed
	}

	uploader, err := s.users.Get(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return dto.NoteResponse{}, err
	}

	key := fmt.Sprintf("%s/%d-%s", userID, start.UnixMilli(), sanitizeFileName(file.Filename))
	url, err := s.store.Upload(ctx, key, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.NoteUploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.NoteResponse{}, err
	}

	note := models.Note{
		UserID:       userID,
		UploaderName: uploader.FullName(),
		Title:        strings.TrimSpace(payload.Title),
		Description:  strings.TrimSpace(payload.Description),
		Subject:      payload.Subject,
		AcademicYear: payload.AcademicYear,
		Semester:     payload.Semester,
		Tags:         payload.Tags,
		FileURL:      url,
		FileType:     fileType,
		UploadedAt:   start,
		Likes:        0,
	}
	if err := s.notes.CreateNote(ctx, &note); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.NoteResponse{}, err
	}

	observability.NoteUploads().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().Str("note_id", note.ID).Str("key", key).Msg("note uploaded")

	return dto.NewNoteResponse(note), nil
}

// Browse filters by search text and academic year, sorts by recency or
// likes, and groups the result by subject.
func (s *noteService) Browse(ctx context.Context, filter NoteFilter) (dto.NoteBrowseResponse, error) {
	notes, err := s.notes.ListNotes(ctx)
	if err != nil {
		return dto.NoteBrowseResponse{}, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	filtered := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if filter.AcademicYear > 0 && n.AcademicYear != filter.AcademicYear {
			continue
		}
		if search != "" && !matchesSearch(n, search) {
			continue
		}
		filtered = append(filtered, n)
	}

	if filter.Sort == NoteSortLikes {
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Likes > filtered[j].Likes
		})
	} else {
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].UploadedAt.After(filtered[j].UploadedAt)
		})
	}

	grouped := make(map[string][]dto.NoteResponse)
	for _, n := range filtered {
		grouped[n.Subject] = append(grouped[n.Subject], dto.NewNoteResponse(n))
	}

	return dto.NoteBrowseResponse{Total: len(filtered), Subjects: grouped}, nil
}

// Mine groups the user's own notes as academic year -> semester -> subject.
func (s *noteService) Mine(ctx context.Context, userID string) (dto.GroupedNotes, error) {
	notes, err := s.notes.ListNotesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	grouped := make(dto.GroupedNotes)
	for _, n := range notes {
		if grouped[n.AcademicYear] == nil {
			grouped[n.AcademicYear] = make(map[int]map[string][]dto.NoteResponse)
		}
		if grouped[n.AcademicYear][n.Semester] == nil {
			grouped[n.AcademicYear][n.Semester] = make(map[string][]dto.NoteResponse)
		}
		grouped[n.AcademicYear][n.Semester][n.Subject] = append(grouped[n.AcademicYear][n.Semester][n.Subject], dto.NewNoteResponse(n))
	}
	return grouped, nil
}

// ToggleLike re-reads the like row before deciding the direction, mirroring
// the feed toggle, and keeps the denormalized likes column in step with the
// like rows.
func (s *noteService) ToggleLike(ctx context.Context, userID, noteID string) (LikeResult, error) {
	ctx, span := s.tracer.Start(ctx, "note.toggle_like", trace.WithAttributes(
		attribute.String("note.id", noteID),
	))
	defer span.End()

	if _, err := s.notes.GetNote(ctx, noteID); err != nil {
		span.RecordError(err)
		return LikeResult{}, err
	}

	liked, err := s.notes.HasLike(ctx, noteID, userID)
	if err != nil {
		span.RecordError(err)
		return LikeResult{}, err
	}

	if liked {
		if err := s.notes.DeleteLike(ctx, noteID, userID); err != nil {
			span.RecordError(err)
			return LikeResult{}, err
		}
		observability.LikeToggles().WithLabelValues("unlike").Inc()
	} else {
		like := models.NoteLike{NoteID: noteID, UserID: userID, CreatedAt: s.now()}
		if err := s.notes.CreateLike(ctx, &like); err != nil {
			span.RecordError(err)
			return LikeResult{}, err
		}
		observability.LikeToggles().WithLabelValues("like").Inc()
	}

	count, err := s.notes.CountLikes(ctx, noteID)
	if err != nil {
		span.RecordError(err)
		return LikeResult{}, err
	}
	if err := s.notes.SetLikes(ctx, noteID, count); err != nil {
		span.RecordError(err)
		return LikeResult{}, err
	}

	return LikeResult{TargetID: noteID, Liked: !liked, LikeCount: count}, nil
}

/// Delete removes a note owned by the acting user. Ordering: read the file
// URL, delete the note's likes, delete the note row, then delete the blob.
// A blob failure after the rows are gone is logged and tolerated; it must
// not resurrect the rows.
func (s *noteService) Delete(ctx context.Context, userID, noteID string) error {
	ctx, span := s.tracer.Start(ctx, "note.delete", trace.WithAttributes(
		attribute.String("note.id", noteID),
	))
	defer span.End()

	note, err := s.notes.GetNote(ctx, noteID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ActionsFor(userID, note.UserID).CanDelete {
		return ErrForbidden
	}

	if err := s.notes.DeleteLikesForNote(ctx, noteID); err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.notes.DeleteNote(ctx, noteID); err != nil {
		span.RecordError(err)
		return err
	}

	if key := storageKeyFromURL(note.FileURL, s.bucket); key != "" {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("note_id", noteID).Str("key", key).Msg("note rows deleted but blob removal failed")
		}
	} else {
		s.logger.Warn().Str("note_id", noteID).Str("file_url", note.FileURL).Msg("could not derive storage key from file url")
	}

	s.logger.Info().Str("note_id", noteID).Str("user_id", userID).Msg("note deleted")

	return nil
}

// Subjects lists catalog entries for the given academic year and semester.
func (s *noteService) Subjects(ctx context.Context, academicYear, semester int) ([]dto.SubjectResponse, error) {
	subjects, err := s.notes.ListSubjects(ctx, academicYear, semester)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SubjectResponse, 0, len(subjects))
	for _, sub := range subjects {
		out = append(out, dto.SubjectResponse{
			Name:         sub.Name,
			AcademicYear: sub.AcademicYear,
			Semester:     sub.Semester,
		})
	}
	return out, nil
}

func matchesSearch(n models.Note, search string) bool {
	if strings.Contains(strings.ToLower(n.Title), search) {
		return true
	}
	if strings.Contains(strings.ToLower(n.Subject), search) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

// storageKeyFromURL recovers the blob key from a public file URL: the path
// segment after the bucket folder.
func storageKeyFromURL(fileURL, bucket string) string {
	marker := "/" + bucket + "/"
	idx := strings.Index(fileURL, marker)
	if idx < 0 {
		return ""
	}
	return fileURL[idx+len(marker):]
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "upload"
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func isAllowedNoteType(m string) bool {
	lower := strings.ToLower(strings.TrimSpace(m))
	if strings.HasPrefix(lower, "image/") {
		return true
	}
	switch lower {
	case "application/pdf", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"text/plain; charset=utf-8", "text/plain":
		return true
	default:
		return false
	}
}
