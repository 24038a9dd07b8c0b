package scheduler

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleClassRequest() Request {
	return Request{
		TimeSlots:        []string{"09:00-10:00", "10:00-11:00"},
		SubjectsPerClass: map[string][]string{"Class 1": {"Math"}},
		ClassDetails:     []ClassDetail{{Name: "Class 1", Students: 20}},
		Faculty: []FacultyMember{
			{Name: "Mr. A", Subjects: []string{"Math"}, Availability: "Mon,Tue,Wed,Thu,Fri", MaxHours: 5},
		},
		Rooms: []RoomDetail{{Name: "Room 1", Type: RoomTypeTheory, Capacity: 30}},
	}
}

func defaultFormRequest() Request {
	return Request{
		TimeSlots: []string{"09:00-10:00", "10:00-11:00", "11:00-12:00", "13:00-14:00", "14:00-15:00", "15:00-16:00"},
		Breaks:    []string{"12:00-13:00"},
		SubjectsPerClass: map[string][]string{
			"Class 4A": {"Math", "English", "Science", "Hindi"},
			"Class 5B": {"Math", "English", "Science", "History", "Art"},
		},
		ClassDetails: []ClassDetail{{Name: "Class 4A", Students: 28}, {Name: "Class 5B", Students: 25}},
		Faculty: []FacultyMember{
			{Name: "Mr. Rao", Subjects: []string{"Math", "Science"}, Availability: "Mon-Fri 09:00-16:00", MaxHours: 20},
			{Name: "Ms. Singh", Subjects: []string{"English", "History"}, Availability: "Mon,Tue,Thu 10:00-16:00", MaxHours: 18},
			{Name: "Mrs. Gupta", Subjects: []string{"Hindi", "Art"}, Availability: "Wed,Fri", MaxHours: 12},
		},
		Rooms: []RoomDetail{
			{Name: "Room 101", Type: RoomTypeTheory, Capacity: 30},
			{Name: "Room 102", Type: RoomTypeTheory, Capacity: 30},
			{Name: "Science Lab", Type: RoomTypeLab, Capacity: 25},
		},
	}
}

func subjects(entries []ScheduleEntry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Subject)
	}
	return out
}

func TestGenerateFillsUntilHourCapIsExhausted(t *testing.T) {
	result, err := Generate(singleClassRequest(), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Math", "Math"}, subjects(result.Schedule[Monday]))
	assert.Equal(t, []string{"Math", "Math"}, subjects(result.Schedule[Tuesday]))
	assert.Equal(t, []string{"Math", FreeSubject}, subjects(result.Schedule[Wednesday]))
	assert.Equal(t, []string{FreeSubject, FreeSubject}, subjects(result.Schedule[Thursday]))
	assert.Equal(t, []string{FreeSubject, FreeSubject}, subjects(result.Schedule[Friday]))

	first := result.Schedule[Monday][0]
	assert.Equal(t, ScheduleEntry{Time: "09:00-10:00", Class: "Class 1", Subject: "Math", Teacher: "Mr. A", Room: "Room 1"}, first)
	free := result.Schedule[Friday][1]
	assert.Equal(t, ScheduleEntry{Time: "10:00-11:00", Class: "Class 1", Subject: FreeSubject, Teacher: Unassigned, Room: Unassigned}, free)

	assert.Equal(t, 10, result.Stats.Entries)
	assert.Equal(t, 5, result.Stats.Filled)
	assert.Equal(t, 5, result.Stats.Free)
	assert.Equal(t, 5, result.Stats.TeacherHours["Mr. A"])
	assert.Equal(t, 2, result.Stats.PerDay[Wednesday])
}

func TestGenerateOversizedClassIsAlwaysFree(t *testing.T) {
	req := singleClassRequest()
	req.ClassDetails[0].Students = 40

	result, err := Generate(req, Options{})
	require.NoError(t, err)

	for _, day := range Weekdays {
		for _, entry := range result.Schedule[day] {
			assert.True(t, entry.IsFree(), "%s %s", day, entry.Time)
		}
	}
	assert.Equal(t, 0, result.Stats.Filled)
}

func TestGenerateLabSubjectNeedsLabRoom(t *testing.T) {
	req := singleClassRequest()
	req.SubjectsPerClass = map[string][]string{"Class 1": {"Science Lab"}}
	req.Faculty[0].Subjects = []string{"Science Lab"}

	result, err := Generate(req, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stats.Filled)
	assert.Equal(t, 10, result.Stats.Free)
}

func TestGenerateHolidayDayHasNoEntries(t *testing.T) {
	req := singleClassRequest()
	req.Holidays = []string{"Monday"}

	result, err := Generate(req, Options{})
	require.NoError(t, err)

	require.Contains(t, result.Schedule, Monday)
	assert.Empty(t, result.Schedule[Monday])
	assert.Equal(t, []string{"Math", "Math"}, subjects(result.Schedule[Tuesday]))
	assert.Equal(t, 8, result.Stats.Entries)
}

func TestGenerateCapsConsecutiveLectures(t *testing.T) {
	req := singleClassRequest()
	req.TimeSlots = []string{"08:00-09:00", "09:00-10:00", "10:00-11:00", "11:00-12:00"}
	req.Faculty[0].MaxHours = 40

	result, err := Generate(req, Options{})
	require.NoError(t, err)
	for _, day := range Weekdays {
		assert.Equal(t, []string{"Math", "Math", "Math", FreeSubject}, subjects(result.Schedule[day]), string(day))
	}

	capped, err := Generate(req, Options{MaxConsecutive: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Math", FreeSubject, "Math"}, subjects(capped.Schedule[Monday]))
}

func TestGenerateBreakInterruptsLectureRun(t *testing.T) {
	req := singleClassRequest()
	req.TimeSlots = []string{"08:00-09:00", "09:00-10:00", "10:30-11:30", "11:30-12:30"}
	req.Breaks = []string{"10:00-10:30"}
	req.Faculty[0].MaxHours = 40

	result, err := Generate(req, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Math", "Math", "Math"}, subjects(result.Schedule[Monday]))
}

func TestGenerateSkipsBreakTokensListedAsSlots(t *testing.T) {
	req := singleClassRequest()
	req.TimeSlots = []string{"a", "b", "lunch", "c", "d"}
	req.Breaks = []string{"lunch"}
	req.Faculty[0].MaxHours = 40

	result, err := Generate(req, Options{})
	require.NoError(t, err)

	monday := result.Schedule[Monday]
	require.Len(t, monday, 4)
	for _, entry := range monday {
		assert.NotEqual(t, "lunch", entry.Time)
	}
	assert.Equal(t, []string{"Math", "Math", "Math", "Math"}, subjects(monday))
}

func TestGenerateNeverDoubleBooksTeacherOrRoom(t *testing.T) {
	req := Request{
		TimeSlots: []string{"09:00-10:00"},
		SubjectsPerClass: map[string][]string{
			"A": {"Math"},
			"B": {"Math", "Art"},
			"C": {"Art"},
		},
		ClassDetails: []ClassDetail{{Name: "A", Students: 10}, {Name: "B", Students: 10}, {Name: "C", Students: 10}},
		Faculty: []FacultyMember{
			{Name: "Math Teacher", Subjects: []string{"Math"}, Availability: "daily monday tuesday wednesday thursday friday", MaxHours: 10},
			{Name: "Art Teacher", Subjects: []string{"Art"}, Availability: "Mon Tue Wed Thu Fri", MaxHours: 10},
		},
		Rooms: []RoomDetail{{Name: "R1", Type: RoomTypeTheory, Capacity: 20}, {Name: "R2", Type: RoomTypeTheory, Capacity: 20}},
	}

	result, err := Generate(req, Options{})
	require.NoError(t, err)

	monday := result.Schedule[Monday]
	require.Len(t, monday, 3)
	assert.Equal(t, ScheduleEntry{Time: "09:00-10:00", Class: "A", Subject: "Math", Teacher: "Math Teacher", Room: "R1"}, monday[0])
	assert.Equal(t, ScheduleEntry{Time: "09:00-10:00", Class: "B", Subject: "Art", Teacher: "Art Teacher", Room: "R2"}, monday[1])
	assert.True(t, monday[2].IsFree())

	in, _, err := Normalize(req)
	require.NoError(t, err)
	assert.Empty(t, Verify(in, result.Schedule))
}

func TestGenerateRespectsExplicitSubjectCategories(t *testing.T) {
	req := singleClassRequest()
	req.SubjectsPerClass = map[string][]string{"Class 1": {"Chemistry", "Lab Safety"}}
	req.Faculty[0].Subjects = []string{"Chemistry", "Lab Safety"}
	req.SubjectCategories = map[string]SubjectCategory{"Chemistry": CategoryLab, "Lab Safety": CategoryTheory}

	result, err := Generate(req, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lab Safety", "Lab Safety"}, subjects(result.Schedule[Monday]))
}

func TestGenerateStrictAvailabilityHonoursTimeWindow(t *testing.T) {
	req := singleClassRequest()
	req.Faculty[0].Availability = "Mon-Fri 10:00-16:00"
	req.Faculty[0].MaxHours = 40

	loose, err := Generate(req, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Math"}, subjects(loose.Schedule[Monday]))
	assert.Equal(t, []string{FreeSubject, FreeSubject}, subjects(loose.Schedule[Wednesday]))

	req.AvailabilityMode = AvailabilityStrict
	strict, err := Generate(req, Options{})
	require.NoError(t, err)
	for _, day := range Weekdays {
		assert.Equal(t, []string{FreeSubject, "Math"}, subjects(strict.Schedule[day]), string(day))
	}
}

func TestGenerateEmptyRostersProduceFreeSchedule(t *testing.T) {
	req := singleClassRequest()
	req.Faculty = nil
	req.Rooms = nil

	result, err := Generate(req, Options{})
	require.NoError(t, err)
	assert.Equal(t, 10, result.Stats.Free)

	codes := make([]string, 0, len(result.Warnings))
	for _, warning := range result.Warnings {
		codes = append(codes, warning.Code)
	}
	assert.Contains(t, codes, WarnEmptyRoster)
	assert.Contains(t, codes, WarnUntaughtSubject)
}

func TestGenerateDefaultFormInputSatisfiesHardConstraints(t *testing.T) {
	req := defaultFormRequest()
	in, _, err := Normalize(req)
	require.NoError(t, err)

	for _, mode := range []AvailabilityMode{AvailabilitySubstring, AvailabilityStrict} {
		req.AvailabilityMode = mode
		result, err := Generate(req, Options{})
		require.NoError(t, err)
		assert.Empty(t, Verify(in, result.Schedule), "mode %s", mode)
		assert.Equal(t, 60, result.Stats.Entries)
		assert.Positive(t, result.Stats.Filled)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	first, err := Generate(defaultFormRequest(), Options{})
	require.NoError(t, err)
	second, err := Generate(defaultFormRequest(), Options{})
	require.NoError(t, err)

	a, err := json.Marshal(first.Output())
	require.NoError(t, err)
	b, err := json.Marshal(second.Output())
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.True(t, strings.HasPrefix(string(a), `{"timetable":{"Monday":[`))
}

func TestGenerateRejectsInvalidRequest(t *testing.T) {
	req := singleClassRequest()
	req.Rooms[0].Capacity = 0

	_, err := Generate(req, Options{})
	require.Error(t, err)
	vErr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "rooms[0].capacity", vErr.Field)
}

func TestRunUsesInjectedAvailability(t *testing.T) {
	in, _, err := Normalize(singleClassRequest())
	require.NoError(t, err)

	result := Run(in, Options{Availability: availabilityFunc(func(_ Teacher, day Day, _ string) bool {
		return day == Friday
	})})
	assert.Equal(t, []string{"Math", "Math"}, subjects(result.Schedule[Friday]))
	assert.Equal(t, 2, result.Stats.Filled)
}

type availabilityFunc func(t Teacher, day Day, slot string) bool

func (f availabilityFunc) IsAvailable(t Teacher, day Day, slot string) bool {
	return f(t, day, slot)
}
