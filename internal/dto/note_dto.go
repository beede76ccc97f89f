package dto

import (
	"time"

	"github.com/campuslink/campuslink-api/internal/models"
)

// NoteUploadRequest carries note metadata alongside the multipart file.
type NoteUploadRequest struct {
	Title        string   `form:"title" json:"title" validate:"required"`
	Description  string   `form:"description" json:"description"`
	Subject      string   `form:"subject" json:"subject" validate:"required"`
	AcademicYear int      `form:"academic_year" json:"academic_year" validate:"required,min=1,max=4"`
	Semester     int      `form:"semester" json:"semester" validate:"required,min=1,max=8"`
	Tags         []string `form:"tags" json:"tags"`
}

// NoteResponse mirrors a stored note for browsing.
type NoteResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UploaderName string    `json:"uploader_name"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Subject      string    `json:"subject"`
	AcademicYear int       `json:"academic_year"`
	Semester     int       `json:"semester"`
	Tags         []string  `json:"tags"`
	FileURL      string    `json:"file_url"`
	FileType     string    `json:"file_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
	Likes        int       `json:"likes"`
}

// NewNoteResponse converts a model to its API shape.
func NewNoteResponse(n models.Note) NoteResponse {
	return NoteResponse{
		ID:           n.ID,
		UserID:       n.UserID,
		UploaderName: n.UploaderName,
		Title:        n.Title,
		Description:  n.Description,
		Subject:      n.Subject,
		AcademicYear: n.AcademicYear,
		Semester:     n.Semester,
		Tags:         n.Tags,
		FileURL:      n.FileURL,
		FileType:     n.FileType,
		UploadedAt:   n.UploadedAt,
		Likes:        n.Likes,
	}
}

// NewNoteResponseSlice converts a batch of notes.
func NewNoteResponseSlice(notes []models.Note) []NoteResponse {
	out := make([]NoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, NewNoteResponse(n))
	}
	return out
}

// NoteBrowseResponse groups filtered notes by subject for the archive view.
type NoteBrowseResponse struct {
	Total    int                       `json:"total"`
	Subjects map[string][]NoteResponse `json:"subjects"`
}

// GroupedNotes nests a user's notes as academic year -> semester -> subject.
type GroupedNotes map[int]map[int]map[string][]NoteResponse

// SubjectResponse is a catalog entry offered in the upload form.
type SubjectResponse struct {
	Name         string `json:"name"`
	AcademicYear int    `json:"academic_year"`
	Semester     int    `json:"semester"`
}
