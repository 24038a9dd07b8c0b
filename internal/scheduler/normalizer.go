package scheduler

import (
	"fmt"
	"sort"
	"strings"
)

// Input is the validated, typed form of a Request. Collections keep the
// caller's ordering, which drives first-fit priority in the engine.
type Input struct {
	TimeSlots         []string
	Breaks            []string
	Classes           []ClassGroup
	Teachers          []Teacher
	Rooms             []Room
	Holidays          []Day
	SpecialDemands    string
	SubjectCategories map[string]SubjectCategory
	AvailabilityMode  AvailabilityMode
	MaxConsecutive    int

	slotIndex  map[string]int
	breakSet   map[string]struct{}
	holidaySet map[Day]struct{}
}

// IsBreak reports whether the slot token is a break.
func (in *Input) IsBreak(slot string) bool {
	_, ok := in.breakSet[slot]
	return ok
}

// IsHoliday reports whether the day is skipped entirely.
func (in *Input) IsHoliday(day Day) bool {
	_, ok := in.holidaySet[day]
	return ok
}

// SlotIndex returns the position of the slot in the caller ordering.
func (in *Input) SlotIndex(slot string) (int, bool) {
	idx, ok := in.slotIndex[slot]
	return idx, ok
}

// TeachingSlots returns the slots that are not breaks, in caller order.
func (in *Input) TeachingSlots() []string {
	slots := make([]string, 0, len(in.TimeSlots))
	for _, slot := range in.TimeSlots {
		if !in.IsBreak(slot) {
			slots = append(slots, slot)
		}
	}
	return slots
}

// ScheduledDays returns the weekdays that are not holidays.
func (in *Input) ScheduledDays() []Day {
	days := make([]Day, 0, len(Weekdays))
	for _, day := range Weekdays {
		if !in.IsHoliday(day) {
			days = append(days, day)
		}
	}
	return days
}

// IsLab reports whether the subject requires a lab room. An explicit
// category wins; otherwise a subject whose name contains "lab" is a lab.
func (in *Input) IsLab(subject string) bool {
	if category, ok := in.SubjectCategories[subject]; ok {
		return category == CategoryLab
	}
	return strings.Contains(strings.ToLower(subject), "lab")
}

// WorkUnits is the upper bound of candidate checks for one run.
func (in *Input) WorkUnits() int64 {
	subjects := 0
	for _, class := range in.Classes {
		if len(class.Subjects) > subjects {
			subjects = len(class.Subjects)
		}
	}
	units := int64(len(in.ScheduledDays())) * int64(len(in.TeachingSlots())) * int64(len(in.Classes))
	return units * int64(max1(subjects)) * int64(max1(len(in.Teachers))) * int64(max1(len(in.Rooms)))
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// FindClass looks a class up by name.
func (in *Input) FindClass(name string) (ClassGroup, bool) {
	for _, class := range in.Classes {
		if class.Name == name {
			return class, true
		}
	}
	return ClassGroup{}, false
}

// FindTeacher looks a teacher up by name.
func (in *Input) FindTeacher(name string) (Teacher, bool) {
	for _, teacher := range in.Teachers {
		if teacher.Name == name {
			return teacher, true
		}
	}
	return Teacher{}, false
}

// FindRoom looks a room up by name.
func (in *Input) FindRoom(name string) (Room, bool) {
	for _, room := range in.Rooms {
		if room.Name == name {
			return room, true
		}
	}
	return Room{}, false
}

// Normalize validates the request shape and builds the typed input. It
// returns a *ValidationError for anything the engine cannot run on and
// warnings for findings that only degrade the result.
func Normalize(req Request) (*Input, []Warning, error) {
	if err := validateShape(req); err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	in := &Input{
		SpecialDemands:    req.SpecialDemands,
		AvailabilityMode:  req.AvailabilityMode,
		MaxConsecutive:    req.MaxConsecutive,
		SubjectCategories: make(map[string]SubjectCategory, len(req.SubjectCategories)),
		slotIndex:         make(map[string]int, len(req.TimeSlots)),
		breakSet:          make(map[string]struct{}, len(req.Breaks)),
		holidaySet:        make(map[Day]struct{}, len(req.Holidays)),
	}

	for i, raw := range req.TimeSlots {
		slot := strings.TrimSpace(raw)
		if slot == "" {
			return nil, nil, &ValidationError{Field: fmt.Sprintf("timeSlots[%d]", i), Reason: "is required"}
		}
		if _, dup := in.slotIndex[slot]; dup {
			warnings = append(warnings, warnf(WarnDuplicateSlot, "time slot %q listed more than once; later copies ignored", slot))
			continue
		}
		in.slotIndex[slot] = len(in.TimeSlots)
		in.TimeSlots = append(in.TimeSlots, slot)
	}
	for _, raw := range req.Breaks {
		slot := strings.TrimSpace(raw)
		if slot == "" {
			continue
		}
		if _, dup := in.breakSet[slot]; dup {
			continue
		}
		in.breakSet[slot] = struct{}{}
		in.Breaks = append(in.Breaks, slot)
	}

	subjectsByClass := make(map[string][]string, len(req.SubjectsPerClass))
	for name, subjects := range req.SubjectsPerClass {
		subjectsByClass[strings.TrimSpace(name)] = subjects
	}
	seenClass := make(map[string]struct{}, len(req.ClassDetails))
	for i, detail := range req.ClassDetails {
		name := strings.TrimSpace(detail.Name)
		if name == "" {
			return nil, nil, &ValidationError{Field: fmt.Sprintf("classDetails[%d].name", i), Reason: "is required"}
		}
		if _, dup := seenClass[name]; dup {
			return nil, nil, &ValidationError{Field: fmt.Sprintf("classDetails[%d].name", i), Reason: fmt.Sprintf("duplicates class %q", name)}
		}
		seenClass[name] = struct{}{}

		subjects, ok := subjectsByClass[name]
		if !ok {
			warnings = append(warnings, warnf(WarnMissingSubjects, "class %q has no subject list; every slot will be Free", name))
		}
		in.Classes = append(in.Classes, ClassGroup{Name: name, Students: detail.Students, Subjects: cleanList(subjects)})
	}
	var orphans []string
	for name := range subjectsByClass {
		if _, ok := seenClass[name]; !ok {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		warnings = append(warnings, warnf(WarnOrphanSubjects, "subjects listed for unknown class %q", name))
	}

	seenTeacher := make(map[string]struct{}, len(req.Faculty))
	for i, member := range req.Faculty {
		name := strings.TrimSpace(member.Name)
		if name == "" {
			return nil, nil, &ValidationError{Field: fmt.Sprintf("faculty[%d].name", i), Reason: "is required"}
		}
		if _, dup := seenTeacher[name]; dup {
			return nil, nil, &ValidationError{Field: fmt.Sprintf("faculty[%d].name", i), Reason: fmt.Sprintf("duplicates teacher %q", name)}
		}
		seenTeacher[name] = struct{}{}
		availability := strings.TrimSpace(member.Availability)
		if availability == "" {
			return nil, nil, &ValidationError{Field: fmt.Sprintf("faculty[%d].availability", i), Reason: "is required"}
		}
		in.Teachers = append(in.Teachers, Teacher{
			Name:         name,
			Subjects:     cleanList(member.Subjects),
			Availability: availability,
			MaxHours:     member.MaxHours,
		})
	}

	seenRoom := make(map[string]struct{}, len(req.Rooms))
	for i, detail := range req.Rooms {
		name := strings.TrimSpace(detail.Name)
		if name == "" {
			return nil, nil, &ValidationError{Field: fmt.Sprintf("rooms[%d].name", i), Reason: "is required"}
		}
		if _, dup := seenRoom[name]; dup {
			return nil, nil, &ValidationError{Field: fmt.Sprintf("rooms[%d].name", i), Reason: fmt.Sprintf("duplicates room %q", name)}
		}
		seenRoom[name] = struct{}{}
		in.Rooms = append(in.Rooms, Room{Name: name, Type: detail.Type, Capacity: detail.Capacity})
	}

	for _, token := range req.Holidays {
		day, ok := ParseDay(token)
		if !ok {
			warnings = append(warnings, warnf(WarnUnknownHoliday, "holiday %q is not a weekday; ignored", token))
			continue
		}
		if in.IsHoliday(day) {
			continue
		}
		in.holidaySet[day] = struct{}{}
		in.Holidays = append(in.Holidays, day)
	}

	for subject, category := range req.SubjectCategories {
		in.SubjectCategories[strings.TrimSpace(subject)] = category
	}

	warnings = append(warnings, untaughtSubjects(in)...)
	warnings = append(warnings, emptyRosters(in)...)
	return in, warnings, nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func untaughtSubjects(in *Input) []Warning {
	var warnings []Warning
	reported := make(map[string]struct{})
	for _, class := range in.Classes {
		for _, subject := range class.Subjects {
			if _, done := reported[subject]; done {
				continue
			}
			taught := false
			for _, teacher := range in.Teachers {
				if teacher.Teaches(subject) {
					taught = true
					break
				}
			}
			if !taught {
				reported[subject] = struct{}{}
				warnings = append(warnings, warnf(WarnUntaughtSubject, "no teacher teaches %q", subject))
			}
		}
	}
	return warnings
}

func emptyRosters(in *Input) []Warning {
	var warnings []Warning
	if len(in.Classes) == 0 {
		warnings = append(warnings, warnf(WarnEmptyRoster, "class roster is empty; no entries will be produced"))
	}
	if len(in.Teachers) == 0 {
		warnings = append(warnings, warnf(WarnEmptyRoster, "faculty roster is empty; every slot will be Free"))
	}
	if len(in.Rooms) == 0 {
		warnings = append(warnings, warnf(WarnEmptyRoster, "room roster is empty; every slot will be Free"))
	}
	if len(in.TeachingSlots()) == 0 {
		warnings = append(warnings, warnf(WarnEmptyRoster, "every time slot is a break; no entries will be produced"))
	}
	return warnings
}
