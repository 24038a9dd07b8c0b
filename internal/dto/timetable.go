package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
)

// GenerationMode labels how a timetable was produced.
type GenerationMode string

const (
	// GenerationModePreview marks an unsaved proposal.
	GenerationModePreview GenerationMode = "preview"
)

// GenerateTimetableRequest is the typed generation payload.
type GenerateTimetableRequest struct {
	scheduler.Request
}

// GenerateRawRequest carries the form-encoded payload where every list field
// is a JSON document inside a string.
type GenerateRawRequest struct {
	scheduler.RawRequest
	AvailabilityMode scheduler.AvailabilityMode `json:"availabilityMode,omitempty"`
	MaxConsecutive   int                        `json:"maxConsecutive,omitempty"`
}

// TimetableProposalResponse returns a generated, not yet persisted, timetable.
type TimetableProposalResponse struct {
	Mode        GenerationMode           `json:"mode"`
	ProposalID  string                   `json:"proposalId"`
	Fingerprint string                   `json:"fingerprint"`
	Cached      bool                     `json:"cached"`
	Timetable   scheduler.WeeklySchedule `json:"timetable"`
	Warnings    []scheduler.Warning      `json:"warnings"`
	Stats       scheduler.Stats          `json:"stats"`
	ExpiresAt   time.Time                `json:"expiresAt"`
}

// VerifyTimetableRequest pairs an input with a schedule to check.
type VerifyTimetableRequest struct {
	Request   scheduler.Request        `json:"request"`
	Timetable scheduler.WeeklySchedule `json:"timetable"`
}

// VerifyTimetableResponse lists hard-constraint violations of a schedule.
type VerifyTimetableResponse struct {
	Valid      bool                  `json:"valid"`
	Violations []scheduler.Violation `json:"violations"`
	Warnings   []scheduler.Warning   `json:"warnings"`
}

// SaveTimetableRequest persists a proposal under a name.
type SaveTimetableRequest struct {
	ProposalID string `json:"proposalId" validate:"required,uuid4"`
	Name       string `json:"name" validate:"required,max=200"`
}

// SaveTimetableResponse identifies the stored timetable.
type SaveTimetableResponse struct {
	TimetableID string `json:"timetableId"`
}

// TimetableListQuery binds list filters from the query string.
type TimetableListQuery struct {
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"limit"`
	SortBy    string `form:"sort"`
	SortOrder string `form:"order"`
}

// TimetableEntriesQuery binds entry filters from the query string.
type TimetableEntriesQuery struct {
	Day     string `form:"day"`
	Class   string `form:"class"`
	Teacher string `form:"teacher"`
	Room    string `form:"room"`
	Free    *bool  `form:"free"`
}

// TimetableDetailResponse is a stored timetable in the interchangeable output shape.
type TimetableDetailResponse struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name"`
	Fingerprint    string                   `json:"fingerprint"`
	Source         models.TimetableSource   `json:"source"`
	SpecialDemands string                   `json:"specialDemands,omitempty"`
	EntryCount     int                      `json:"entryCount"`
	FreeCount      int                      `json:"freeCount"`
	CreatedBy      *string                  `json:"createdBy,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	Timetable      scheduler.WeeklySchedule `json:"timetable"`
	Warnings       json.RawMessage          `json:"warnings"`
	Stats          json.RawMessage          `json:"stats"`
	TeacherLoad    map[string]int           `json:"teacherLoad"`
}

// ExportQuery selects the download format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf xlsx"`
}

// ExportLinkRequest asks for a signed, time-limited download link.
type ExportLinkRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx"`
}

// ExportLinkResponse carries a signed download link.
type ExportLinkResponse struct {
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expiresAt"`
}
