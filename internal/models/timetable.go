package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableSource records which generator produced a stored timetable.
type TimetableSource string

const (
	TimetableSourceOffline  TimetableSource = "offline"
	TimetableSourceImported TimetableSource = "imported"
)

// Timetable is an accepted weekly timetable together with the request that produced it.
type Timetable struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Fingerprint    string          `db:"fingerprint" json:"fingerprint"`
	Source         TimetableSource `db:"source" json:"source"`
	Request        types.JSONText  `db:"request" json:"request"`
	Result         types.JSONText  `db:"result" json:"result"`
	Warnings       types.JSONText  `db:"warnings" json:"warnings"`
	Stats          types.JSONText  `db:"stats" json:"stats"`
	EntryCount     int             `db:"entry_count" json:"entry_count"`
	FreeCount      int             `db:"free_count" json:"free_count"`
	SpecialDemands string          `db:"special_demands" json:"special_demands"`
	CreatedBy      *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// TimetableSummary is the list view of a stored timetable.
type TimetableSummary struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Fingerprint string          `db:"fingerprint" json:"fingerprint"`
	Source      TimetableSource `db:"source" json:"source"`
	EntryCount  int             `db:"entry_count" json:"entry_count"`
	FreeCount   int             `db:"free_count" json:"free_count"`
	CreatedBy   *string         `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// TimetableEntry is one persisted (day, slot, class) cell.
type TimetableEntry struct {
	ID          string `db:"id" json:"id"`
	TimetableID string `db:"timetable_id" json:"timetable_id"`
	DayOfWeek   string `db:"day_of_week" json:"day_of_week"`
	DayIndex    int    `db:"day_index" json:"day_index"`
	SlotIndex   int    `db:"slot_index" json:"slot_index"`
	TimeSlot    string `db:"time_slot" json:"time_slot"`
	ClassName   string `db:"class_name" json:"class_name"`
	Subject     string `db:"subject" json:"subject"`
	Teacher     string `db:"teacher" json:"teacher"`
	Room        string `db:"room" json:"room"`
	IsFree      bool   `db:"is_free" json:"is_free"`
}

// TimetableFilter captures list criteria for stored timetables.
type TimetableFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TimetableEntryFilter narrows the entries of one timetable.
type TimetableEntryFilter struct {
	Day       string
	ClassName string
	Teacher   string
	Room      string
	FreeOnly  *bool
}
