package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campuslink/campuslink-api/internal/dto"
	"github.com/campuslink/campuslink-api/internal/models"
)

type noteRepoStub struct {
	notes    []models.Note
	likes    []models.NoteLike
	subjects []models.Subject
	ops      []string
}

func (s *noteRepoStub) ListNotes(context.Context) ([]models.Note, error) {
	out := make([]models.Note, len(s.notes))
	copy(out, s.notes)
	return out, nil
}

func (s *noteRepoStub) ListNotesByUser(_ context.Context, userID string) ([]models.Note, error) {
	var out []models.Note
	for _, n := range s.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *noteRepoStub) GetNote(_ context.Context, id string) (models.Note, error) {
	for _, n := range s.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return models.Note{}, gorm.ErrRecordNotFound
}

func (s *noteRepoStub) CreateNote(_ context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = fmt.Sprintf("n%d", len(s.notes)+1)
	}
	s.notes = append(s.notes, *note)
	return nil
}

func (s *noteRepoStub) DeleteNote(_ context.Context, id string) error {
	s.ops = append(s.ops, "delete_note")
	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *noteRepoStub) HasLike(_ context.Context, noteID, userID string) (bool, error) {
	for _, l := range s.likes {
		if l.NoteID == noteID && l.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *noteRepoStub) CreateLike(_ context.Context, like *models.NoteLike) error {
	if like.ID == "" {
		like.ID = fmt.Sprintf("nl%d", len(s.likes)+1)
	}
	s.likes = append(s.likes, *like)
	return nil
}

func (s *noteRepoStub) DeleteLike(_ context.Context, noteID, userID string) error {
	for i, l := range s.likes {
		if l.NoteID == noteID && l.UserID == userID {
			s.likes = append(s.likes[:i], s.likes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *noteRepoStub) DeleteLikesForNote(_ context.Context, noteID string) error {
	s.ops = append(s.ops, "delete_likes")
	kept := s.likes[:0]
	for _, l := range s.likes {
		if l.NoteID != noteID {
			kept = append(kept, l)
		}
	}
	s.likes = kept
	return nil
}

func (s *noteRepoStub) CountLikes(_ context.Context, noteID string) (int64, error) {
	var count int64
	for _, l := range s.likes {
		if l.NoteID == noteID {
			count++
		}
	}
	return count, nil
}

func (s *noteRepoStub) SetLikes(_ context.Context, noteID string, likes int64) error {
	for i := range s.notes {
		if s.notes[i].ID == noteID {
			s.notes[i].Likes = int(likes)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *noteRepoStub) ListSubjects(_ context.Context, academicYear, semester int) ([]models.Subject, error) {
	var out []models.Subject
	for _, sub := range s.subjects {
		if academicYear > 0 && sub.AcademicYear != academicYear {
			continue
		}
		if semester > 0 && sub.Semester != semester {
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

type storeStub struct {
	uploadedKeys []string
	deletedKeys  []string
	uploadErr    error
	deleteErr    error
}

func (s *storeStub) Upload(_ context.Context, key string, _ io.Reader) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploadedKeys = append(s.uploadedKeys, key)
	return "https://res.cloudinary.com/demo/raw/upload/v1/notes/" + key, nil
}

func (s *storeStub) Delete(_ context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedKeys = append(s.deletedKeys, key)
	return nil
}

func multipartFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	return req.MultipartForm.File["file"][0]
}

func uploadPayload() dto.NoteUploadRequest {
	return dto.NoteUploadRequest{
		Title:        "Normalization summary",
		Subject:      "DBMS",
		AcademicYear: 2,
		Semester:     4,
		Tags:         []string{"dbms", "exam"},
	}
}

func TestNoteServiceUploadStoresUnderUserScopedKey(t *testing.T) {
	repo := &noteRepoStub{}
	store := &storeStub{}
	svc := NewNoteService(repo, testUsers(), store, "notes", 10, testValidator(), testLogger())

	file := multipartFile(t, "Algebra Notes.pdf", []byte("%PDF-1.4 minimal content"))

	note, err := svc.Upload(context.Background(), "u1", uploadPayload(), file)
	require.NoError(t, err)

	require.Len(t, store.uploadedKeys, 1)
	key := store.uploadedKeys[0]
	require.True(t, strings.HasPrefix(key, "u1/"), "key must be scoped by uploader: %s", key)
	require.True(t, strings.HasSuffix(key, "-algebra-notes.pdf"), "key must end with the sanitized filename: %s", key)

	require.Equal(t, "application/pdf", note.FileType)
	require.Equal(t, "Asha Patel", note.UploaderName)
	require.Equal(t, 0, note.Likes)
	require.Contains(t, note.FileURL, "/notes/"+key)
	require.Len(t, repo.notes, 1)
}

func TestNoteServiceUploadRejectsOversizedFile(t *testing.T) {
	repo := &noteRepoStub{}
	store := &storeStub{}
	svc := NewNoteService(repo, testUsers(), store, "notes", 1, testValidator(), testLogger())

	file := multipartFile(t, "big.pdf", append([]byte("%PDF-1.4 "), bytes.Repeat([]byte("x"), 2<<20)...))

	_, err := svc.Upload(context.Background(), "u1", uploadPayload(), file)
	require.ErrorIs(t, err, ErrUploadTooLarge)
	require.Empty(t, store.uploadedKeys)
	require.Empty(t, repo.notes)
}

func TestNoteServiceUploadRejectsDisallowedType(t *testing.T) {
	repo := &noteRepoStub{}
	store := &storeStub{}
	svc := NewNoteService(repo, testUsers(), store, "notes", 10, testValidator(), testLogger())

	// ELF header: detected as an executable, never a study note.
	file := multipartFile(t, "tool.bin", []byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0})

	_, err := svc.Upload(context.Background(), "u1", uploadPayload(), file)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
	require.Empty(t, store.uploadedKeys)
	require.Empty(t, repo.notes)
}

func TestNoteServiceUploadStorageFailureLeavesNoRow(t *testing.T) {
	repo := &noteRepoStub{}
	store := &storeStub{uploadErr: errors.New("bucket unavailable")}
	svc := NewNoteService(repo, testUsers(), store, "notes", 10, testValidator(), testLogger())

	file := multipartFile(t, "notes.pdf", []byte("%PDF-1.4 minimal"))

	_, err := svc.Upload(context.Background(), "u1", uploadPayload(), file)
	require.Error(t, err)
	require.Empty(t, repo.notes, "no row may exist without a stored blob")
}

func TestNoteServiceDeleteCascadeThenBlob(t *testing.T) {
	repo := &noteRepoStub{notes: []models.Note{{
		ID:      "n1",
		UserID:  "u1",
		FileURL: "https://res.cloudinary.com/demo/raw/upload/v1/notes/u1/123-file.pdf",
	}}}
	store := &storeStub{}
	svc := NewNoteService(repo, testUsers(), store, "notes", 10, testValidator(), testLogger())

	require.NoError(t, svc.Delete(context.Background(), "u1", "n1"))
	require.Equal(t, []string{"delete_likes", "delete_note"}, repo.ops)
	require.Equal(t, []string{"u1/123-file.pdf"}, store.deletedKeys)
	require.Empty(t, repo.notes)
}

func TestNoteServiceDeleteToleratesBlobFailure(t *testing.T) {
	repo := &noteRepoStub{notes: []models.Note{{
		ID:      "n1",
		UserID:  "u1",
		FileURL: "https://res.cloudinary.com/demo/raw/upload/v1/notes/u1/123-file.pdf",
	}}}
	store := &storeStub{deleteErr: errors.New("storage down")}
	svc := NewNoteService(repo, testUsers(), store, "notes", 10, testValidator(), testLogger())

	require.NoError(t, svc.Delete(context.Background(), "u1", "n1"), "blob failure after row removal is tolerated")
	require.Empty(t, repo.notes)
}

func TestNoteServiceDeleteRequiresOwnership(t *testing.T) {
	repo := &noteRepoStub{notes: []models.Note{{ID: "n1", UserID: "u1", FileURL: "x"}}}
	store := &storeStub{}
	svc := NewNoteService(repo, testUsers(), store, "notes", 10, testValidator(), testLogger())

	require.ErrorIs(t, svc.Delete(context.Background(), "u2", "n1"), ErrForbidden)
	require.Len(t, repo.notes, 1)
	require.Empty(t, repo.ops)
	require.Empty(t, store.deletedKeys)
}

func TestNoteServiceBrowseFiltersSortsAndGroups(t *testing.T) {
	now := time.Now()
	repo := &noteRepoStub{notes: []models.Note{
		{ID: "n1", Title: "Joins cheat sheet", Subject: "DBMS", AcademicYear: 2, Likes: 5, UploadedAt: now.Add(-time.Hour)},
		{ID: "n2", Title: "Paging summary", Subject: "OS", AcademicYear: 2, Likes: 9, UploadedAt: now},
		{ID: "n3", Title: "Thermo basics", Subject: "Physics", AcademicYear: 1, Likes: 2, UploadedAt: now},
	}}
	svc := NewNoteService(repo, testUsers(), &storeStub{}, "notes", 10, testValidator(), testLogger())
	ctx := context.Background()

	result, err := svc.Browse(ctx, NoteFilter{AcademicYear: 2, Sort: NoteSortLikes})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Len(t, result.Subjects["DBMS"], 1)
	require.Len(t, result.Subjects["OS"], 1)
	require.NotContains(t, result.Subjects, "Physics")

	result, err = svc.Browse(ctx, NoteFilter{Search: "joins"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Equal(t, "n1", result.Subjects["DBMS"][0].ID)
}

func TestNoteServiceMineGroupsByYearSemesterSubject(t *testing.T) {
	repo := &noteRepoStub{notes: []models.Note{
		{ID: "n1", UserID: "u1", Subject: "DBMS", AcademicYear: 2, Semester: 4},
		{ID: "n2", UserID: "u1", Subject: "DBMS", AcademicYear: 2, Semester: 4},
		{ID: "n3", UserID: "u1", Subject: "OS", AcademicYear: 2, Semester: 3},
		{ID: "n4", UserID: "u2", Subject: "OS", AcademicYear: 2, Semester: 3},
	}}
	svc := NewNoteService(repo, testUsers(), &storeStub{}, "notes", 10, testValidator(), testLogger())

	grouped, err := svc.Mine(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, grouped[2][4]["DBMS"], 2)
	require.Len(t, grouped[2][3]["OS"], 1)
	require.Equal(t, "n3", grouped[2][3]["OS"][0].ID, "other users' notes stay out of the personal view")
}

func TestNoteServiceToggleLikeFlipsStateAndCount(t *testing.T) {
	repo := &noteRepoStub{notes: []models.Note{{ID: "n1", UserID: "u1", Subject: "DBMS"}}}
	svc := NewNoteService(repo, testUsers(), &storeStub{}, "notes", 10, testValidator(), testLogger())
	ctx := context.Background()

	result, err := svc.ToggleLike(ctx, "u2", "n1")
	require.NoError(t, err)
	require.True(t, result.Liked)
	require.Equal(t, int64(1), result.LikeCount)
	require.Equal(t, 1, repo.notes[0].Likes, "stored counter must track the like rows")

	result, err = svc.ToggleLike(ctx, "u2", "n1")
	require.NoError(t, err)
	require.False(t, result.Liked)
	require.Zero(t, result.LikeCount)
	require.Zero(t, repo.notes[0].Likes)
	require.Empty(t, repo.likes)
}

func TestNoteServiceToggleLikeCountsPerUser(t *testing.T) {
	repo := &noteRepoStub{notes: []models.Note{{ID: "n1", UserID: "u1", Subject: "DBMS"}}}
	svc := NewNoteService(repo, testUsers(), &storeStub{}, "notes", 10, testValidator(), testLogger())
	ctx := context.Background()

	_, err := svc.ToggleLike(ctx, "u1", "n1")
	require.NoError(t, err)
	result, err := svc.ToggleLike(ctx, "u2", "n1")
	require.NoError(t, err)
	require.Equal(t, int64(2), result.LikeCount)
	require.Len(t, repo.likes, 2)

	result, err = svc.ToggleLike(ctx, "u1", "n1")
	require.NoError(t, err)
	require.Equal(t, int64(1), result.LikeCount, "unliking removes only the caller's row")
}

func TestNoteServiceToggleLikeMissingNote(t *testing.T) {
	svc := NewNoteService(&noteRepoStub{}, testUsers(), &storeStub{}, "notes", 10, testValidator(), testLogger())

	_, err := svc.ToggleLike(context.Background(), "u1", "missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNoteServiceSubjectsFilters(t *testing.T) {
	repo := &noteRepoStub{subjects: []models.Subject{
		{Name: "DBMS", AcademicYear: 2, Semester: 4},
		{Name: "OS", AcademicYear: 2, Semester: 3},
	}}
	svc := NewNoteService(repo, testUsers(), &storeStub{}, "notes", 10, testValidator(), testLogger())

	subjects, err := svc.Subjects(context.Background(), 2, 4)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	require.Equal(t, "DBMS", subjects[0].Name)
}
