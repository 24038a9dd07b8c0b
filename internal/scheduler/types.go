package scheduler

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Day is a teaching weekday.
type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
)

// Weekdays lists the scheduled days in iteration order.
var Weekdays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

// Abbrev returns the three letter form of the day, e.g. "Mon".
func (d Day) Abbrev() string {
	if len(d) < 3 {
		return string(d)
	}
	return string(d)[:3]
}

// Index returns the zero based position of the day in Weekdays, or -1.
func (d Day) Index() int {
	for i, day := range Weekdays {
		if day == d {
			return i
		}
	}
	return -1
}

// ParseDay resolves a weekday token. Full names and prefixes of at least three
// letters are accepted case-insensitively ("mon", "Thurs", "friday").
func ParseDay(token string) (Day, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if len(token) < 3 {
		return "", false
	}
	for _, day := range Weekdays {
		if strings.HasPrefix(strings.ToLower(string(day)), token) {
			return day, true
		}
	}
	return "", false
}

const (
	// FreeSubject marks a class slot for which no valid assignment exists.
	FreeSubject = "Free"
	// Unassigned is the teacher/room placeholder used by free periods.
	Unassigned = "-"
)

// RoomType classifies rooms for lab affinity.
type RoomType string

const (
	RoomTypeTheory RoomType = "theory"
	RoomTypeLab    RoomType = "lab"
)

// SubjectCategory is the explicit lab/theory marker for a subject.
type SubjectCategory string

const (
	CategoryTheory SubjectCategory = "theory"
	CategoryLab    SubjectCategory = "lab"
)

// ClassGroup is a cohort of students sharing one timetable row.
type ClassGroup struct {
	Name     string
	Students int
	Subjects []string
}

// Teacher is a faculty member with a weekly hour cap.
type Teacher struct {
	Name         string
	Subjects     []string
	Availability string
	MaxHours     int
}

// Teaches reports whether the subject appears in the teacher's list.
func (t Teacher) Teaches(subject string) bool {
	for _, s := range t.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// Room is a teaching space.
type Room struct {
	Name     string
	Type     RoomType
	Capacity int
}

// ScheduleEntry is one (slot, class) cell of the weekly timetable.
type ScheduleEntry struct {
	Time    string `json:"time" yaml:"time"`
	Class   string `json:"class" yaml:"class"`
	Subject string `json:"subject" yaml:"subject"`
	Teacher string `json:"teacher" yaml:"teacher"`
	Room    string `json:"room" yaml:"room"`
}

// IsFree reports whether the entry is a free period.
func (e ScheduleEntry) IsFree() bool {
	return e.Subject == FreeSubject
}

func freeEntry(slot, class string) ScheduleEntry {
	return ScheduleEntry{Time: slot, Class: class, Subject: FreeSubject, Teacher: Unassigned, Room: Unassigned}
}

// WeeklySchedule maps each weekday to its entries in slot order.
type WeeklySchedule map[Day][]ScheduleEntry

// NewWeeklySchedule returns a schedule with an empty list for every weekday.
func NewWeeklySchedule() WeeklySchedule {
	schedule := make(WeeklySchedule, len(Weekdays))
	for _, day := range Weekdays {
		schedule[day] = []ScheduleEntry{}
	}
	return schedule
}

// Entries returns the number of entries across all days.
func (w WeeklySchedule) Entries() int {
	total := 0
	for _, entries := range w {
		total += len(entries)
	}
	return total
}

// MarshalJSON writes weekdays in calendar order and always emits all five keys.
// Keys outside the weekday set are appended in lexical order.
func (w WeeklySchedule) MarshalJSON() ([]byte, error) {
	keys := make([]Day, 0, len(Weekdays)+len(w))
	keys = append(keys, Weekdays...)
	var extra []Day
	for day := range w {
		if day.Index() < 0 {
			extra = append(extra, day)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	keys = append(keys, extra...)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, day := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(day))
		if err != nil {
			return nil, err
		}
		entries := w[day]
		if entries == nil {
			entries = []ScheduleEntry{}
		}
		value, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Output is the interchangeable result shape shared with the network-backed generator.
type Output struct {
	Timetable WeeklySchedule `json:"timetable" yaml:"timetable"`
}
