package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func warningCodes(warnings []Warning) []string {
	codes := make([]string, 0, len(warnings))
	for _, warning := range warnings {
		codes = append(codes, warning.Code)
	}
	return codes
}

func TestNormalizeBuildsTypedInput(t *testing.T) {
	req := defaultFormRequest()
	req.Holidays = []string{"wed", "Friday"}
	req.SpecialDemands = "Keep labs before lunch"

	in, warnings, err := Normalize(req)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.Len(t, in.Classes, 2)
	assert.Equal(t, ClassGroup{Name: "Class 4A", Students: 28, Subjects: []string{"Math", "English", "Science", "Hindi"}}, in.Classes[0])
	require.Len(t, in.Teachers, 3)
	assert.Equal(t, 18, in.Teachers[1].MaxHours)
	assert.Equal(t, RoomTypeLab, in.Rooms[2].Type)
	assert.Equal(t, []Day{Wednesday, Friday}, in.Holidays)
	assert.Equal(t, []Day{Monday, Tuesday, Thursday}, in.ScheduledDays())
	assert.True(t, in.IsBreak("12:00-13:00"))
	assert.Equal(t, "Keep labs before lunch", in.SpecialDemands)

	idx, ok := in.SlotIndex("13:00-14:00")
	require.True(t, ok)
	assert.Equal(t, 3, idx)
}

func TestNormalizeTrimsAndDeduplicates(t *testing.T) {
	req := singleClassRequest()
	req.TimeSlots = []string{" 09:00-10:00 ", "09:00-10:00", "10:00-11:00"}
	req.ClassDetails[0].Name = "  Class 1 "
	req.SubjectsPerClass = map[string][]string{"Class 1 ": {" Math", "Math", "Art "}}

	in, warnings, err := Normalize(req)
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00"}, in.TimeSlots)
	assert.Equal(t, "Class 1", in.Classes[0].Name)
	assert.Equal(t, []string{"Math", "Art"}, in.Classes[0].Subjects)
	assert.Equal(t, []string{WarnDuplicateSlot, WarnUntaughtSubject}, warningCodes(warnings))
}

func TestNormalizeValidationErrorsNameTheField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
		field  string
		reason string
	}{
		{
			name:   "missing time slots",
			mutate: func(r *Request) { r.TimeSlots = nil },
			field:  "timeSlots",
			reason: "is required",
		},
		{
			name:   "empty time slot",
			mutate: func(r *Request) { r.TimeSlots = []string{"09:00-10:00", "   "} },
			field:  "timeSlots[1]",
			reason: "is required",
		},
		{
			name:   "class without students",
			mutate: func(r *Request) { r.ClassDetails[0].Students = 0 },
			field:  "classDetails[0].students",
			reason: "must be at least 1",
		},
		{
			name: "teacher without hours",
			mutate: func(r *Request) {
				r.Faculty = append(r.Faculty, FacultyMember{Name: "Ms. B", Subjects: []string{"Art"}, Availability: "Mon", MaxHours: 0})
			},
			field:  "faculty[1].maxHours",
			reason: "must be at least 1",
		},
		{
			name:   "teacher without availability",
			mutate: func(r *Request) { r.Faculty[0].Availability = "" },
			field:  "faculty[0].availability",
			reason: "is required",
		},
		{
			name:   "unknown room type",
			mutate: func(r *Request) { r.Rooms[0].Type = "gym" },
			field:  "rooms[0].type",
			reason: "must be one of [theory lab]",
		},
		{
			name:   "unknown subject category",
			mutate: func(r *Request) { r.SubjectCategories = map[string]SubjectCategory{"Math": "sport"} },
			field:  "subjectCategories[Math]",
		},
		{
			name: "duplicate class",
			mutate: func(r *Request) {
				r.ClassDetails = append(r.ClassDetails, ClassDetail{Name: "Class 1", Students: 5})
			},
			field:  "classDetails[1].name",
			reason: `duplicates class "Class 1"`,
		},
		{
			name: "duplicate teacher",
			mutate: func(r *Request) {
				r.Faculty = append(r.Faculty, FacultyMember{Name: " Mr. A", Subjects: []string{"Math"}, Availability: "Mon", MaxHours: 1})
			},
			field: "faculty[1].name",
		},
		{
			name: "duplicate room",
			mutate: func(r *Request) {
				r.Rooms = append(r.Rooms, RoomDetail{Name: "Room 1", Type: RoomTypeLab, Capacity: 10})
			},
			field: "rooms[1].name",
		},
		{
			name:   "blank room name",
			mutate: func(r *Request) { r.Rooms[0].Name = "  " },
			field:  "rooms[0].name",
			reason: "is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := singleClassRequest()
			tc.mutate(&req)

			in, _, err := Normalize(req)
			require.Error(t, err)
			assert.Nil(t, in)

			vErr, ok := AsValidationError(err)
			require.True(t, ok, "expected ValidationError, got %T", err)
			assert.Equal(t, tc.field, vErr.Field)
			if tc.reason != "" {
				assert.Equal(t, tc.reason, vErr.Reason)
			}
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestNormalizeWarnings(t *testing.T) {
	req := singleClassRequest()
	req.ClassDetails = append(req.ClassDetails, ClassDetail{Name: "Class 2", Students: 10})
	req.SubjectsPerClass["Class 9"] = []string{"Math"}
	req.SubjectsPerClass["Class 1"] = []string{"Math", "Music"}
	req.Holidays = []string{"Saturday", "Mo", "Tuesday"}

	in, warnings, err := Normalize(req)
	require.NoError(t, err)

	assert.Equal(t, []string{
		WarnMissingSubjects,
		WarnOrphanSubjects,
		WarnUnknownHoliday,
		WarnUnknownHoliday,
		WarnUntaughtSubject,
	}, warningCodes(warnings))
	assert.Empty(t, in.Classes[1].Subjects)
	assert.Equal(t, []Day{Tuesday}, in.Holidays)
}

func TestNormalizeEmptyRosters(t *testing.T) {
	req := Request{TimeSlots: []string{"a"}, Breaks: []string{"a"}}

	in, warnings, err := Normalize(req)
	require.NoError(t, err)
	assert.Empty(t, in.TeachingSlots())

	codes := warningCodes(warnings)
	require.Len(t, codes, 4)
	for _, code := range codes {
		assert.Equal(t, WarnEmptyRoster, code)
	}
}

func TestInputIsLab(t *testing.T) {
	in, _, err := Normalize(Request{
		TimeSlots:         []string{"a"},
		SubjectCategories: map[string]SubjectCategory{"Chemistry": CategoryLab, "Lab Safety": CategoryTheory},
	})
	require.NoError(t, err)

	assert.True(t, in.IsLab("Chemistry"))
	assert.False(t, in.IsLab("Lab Safety"))
	assert.True(t, in.IsLab("Physics LAB"))
	assert.False(t, in.IsLab("Math"))
}

func TestInputWorkUnits(t *testing.T) {
	in, _, err := Normalize(defaultFormRequest())
	require.NoError(t, err)
	// 5 days, 6 slots, 2 classes, 5 subjects, 3 teachers, 3 rooms.
	assert.Equal(t, int64(5*6*2*5*3*3), in.WorkUnits())
}

func TestParseRaw(t *testing.T) {
	raw := RawRequest{
		TimeSlots:        `["09:00-10:00","10:00-11:00"]`,
		Breaks:           `["12:00-13:00"]`,
		SubjectsPerClass: `{"Class 1":["Math"]}`,
		ClassDetails:     `[{"name":"Class 1","students":20}]`,
		Faculty:          `[{"name":"Mr. A","subjects":["Math"],"availability":"Mon-Fri","maxHours":5}]`,
		Rooms:            `[{"name":"Room 1","type":"theory","capacity":30}]`,
		Holidays:         `[]`,
		SpecialDemands:   "no Friday labs",
	}

	req, err := ParseRaw(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00"}, req.TimeSlots)
	assert.Equal(t, []string{"Math"}, req.SubjectsPerClass["Class 1"])
	assert.Equal(t, 5, req.Faculty[0].MaxHours)
	assert.Equal(t, RoomTypeTheory, req.Rooms[0].Type)
	assert.Equal(t, "no Friday labs", req.SpecialDemands)

	raw.Faculty = `[{"name": "Mr. A",`
	_, err = ParseRaw(raw)
	vErr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "faculty", vErr.Field)

	raw.Faculty = `[]`
	raw.Holidays = " "
	_, err = ParseRaw(raw)
	vErr, ok = AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "holidays", vErr.Field)
	assert.Equal(t, "is required", vErr.Reason)
}

func TestParseDay(t *testing.T) {
	cases := map[string]Day{"mon": Monday, "Tues": Tuesday, " WEDNESDAY ": Wednesday, "thu": Thursday, "fri": Friday}
	for token, want := range cases {
		got, ok := ParseDay(token)
		require.True(t, ok, token)
		assert.Equal(t, want, got)
	}
	for _, token := range []string{"", "mo", "sat", "Sunday", "holiday"} {
		_, ok := ParseDay(token)
		assert.False(t, ok, token)
	}
}
