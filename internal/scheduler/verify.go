package scheduler

import (
	"fmt"
	"sort"
)

// Violation codes reported by Verify.
const (
	ViolationMissingEntry      = "MISSING_ENTRY"
	ViolationDuplicateEntry    = "DUPLICATE_ENTRY"
	ViolationTeacherDouble     = "TEACHER_DOUBLE_BOOKED"
	ViolationRoomDouble        = "ROOM_DOUBLE_BOOKED"
	ViolationRoomCapacity      = "ROOM_CAPACITY"
	ViolationRoomType          = "ROOM_TYPE"
	ViolationHourCap           = "HOUR_CAP"
	ViolationBreakSlot         = "BREAK_SLOT"
	ViolationHoliday           = "HOLIDAY"
	ViolationUnknownDay        = "UNKNOWN_DAY"
	ViolationUnknownSlot       = "UNKNOWN_SLOT"
	ViolationUnknownClass      = "UNKNOWN_CLASS"
	ViolationUnknownTeacher    = "UNKNOWN_TEACHER"
	ViolationUnknownRoom       = "UNKNOWN_ROOM"
	ViolationTeacherSubject    = "TEACHER_SUBJECT"
	ViolationSubjectNotOffered = "SUBJECT_NOT_OFFERED"
	ViolationMalformedFree     = "MALFORMED_FREE"
)

// Violation is a hard-constraint breach found in a schedule.
type Violation struct {
	Code    string `json:"code" yaml:"code"`
	Day     Day    `json:"day,omitempty" yaml:"day,omitempty"`
	Time    string `json:"time,omitempty" yaml:"time,omitempty"`
	Message string `json:"message" yaml:"message"`
}

// Verify checks a schedule of the interchangeable output shape against the
// hard constraints of the input. It accepts schedules from any generator and
// returns violations in a deterministic order; an empty result means valid.
func Verify(in *Input, schedule WeeklySchedule) []Violation {
	v := &verifier{
		in:       in,
		seen:     make(map[string]struct{}),
		teachers: make(map[string]string),
		rooms:    make(map[string]string),
		hours:    make(map[string]int),
	}
	for _, day := range scheduleDays(schedule) {
		v.checkDay(day, schedule[day])
	}
	v.checkCompleteness(schedule)
	v.checkHours()
	return v.violations
}

type verifier struct {
	in         *Input
	violations []Violation
	seen       map[string]struct{}
	teachers   map[string]string
	rooms      map[string]string
	hours      map[string]int
}

func (v *verifier) report(code string, day Day, slot, format string, args ...interface{}) {
	v.violations = append(v.violations, Violation{Code: code, Day: day, Time: slot, Message: fmt.Sprintf(format, args...)})
}

func (v *verifier) checkDay(day Day, entries []ScheduleEntry) {
	if day.Index() < 0 {
		if len(entries) > 0 {
			v.report(ViolationUnknownDay, day, "", "day %q is not a scheduled weekday", day)
		}
		return
	}
	if v.in.IsHoliday(day) && len(entries) > 0 {
		v.report(ViolationHoliday, day, "", "%s is a holiday but has %d entries", day, len(entries))
	}
	for _, entry := range entries {
		v.checkEntry(day, entry)
	}
}

func (v *verifier) checkEntry(day Day, entry ScheduleEntry) {
	slot := entry.Time
	if _, ok := v.in.SlotIndex(slot); !ok {
		if v.in.IsBreak(slot) {
			v.report(ViolationBreakSlot, day, slot, "class %q scheduled during break %q", entry.Class, slot)
		} else {
			v.report(ViolationUnknownSlot, day, slot, "slot %q is not a configured time slot", slot)
		}
	} else if v.in.IsBreak(slot) {
		v.report(ViolationBreakSlot, day, slot, "class %q scheduled during break %q", entry.Class, slot)
	}

	class, knownClass := v.in.FindClass(entry.Class)
	if !knownClass {
		v.report(ViolationUnknownClass, day, slot, "class %q is not in the class roster", entry.Class)
	}
	cellKey := string(day) + "\x00" + slot + "\x00" + entry.Class
	if _, dup := v.seen[cellKey]; dup {
		v.report(ViolationDuplicateEntry, day, slot, "class %q has more than one entry", entry.Class)
	}
	v.seen[cellKey] = struct{}{}

	if entry.IsFree() {
		if entry.Teacher != Unassigned || entry.Room != Unassigned {
			v.report(ViolationMalformedFree, day, slot, "free period for %q must use %q for teacher and room", entry.Class, Unassigned)
		}
		return
	}

	if knownClass && !containsString(class.Subjects, entry.Subject) {
		v.report(ViolationSubjectNotOffered, day, slot, "subject %q is not offered to class %q", entry.Subject, entry.Class)
	}

	teacher, knownTeacher := v.in.FindTeacher(entry.Teacher)
	switch {
	case !knownTeacher:
		v.report(ViolationUnknownTeacher, day, slot, "teacher %q is not in the faculty roster", entry.Teacher)
	case !teacher.Teaches(entry.Subject):
		v.report(ViolationTeacherSubject, day, slot, "teacher %q does not teach %q", entry.Teacher, entry.Subject)
	}
	if entry.Teacher != Unassigned {
		v.hours[entry.Teacher]++
		key := string(day) + "\x00" + slot + "\x00" + entry.Teacher
		if other, busy := v.teachers[key]; busy {
			v.report(ViolationTeacherDouble, day, slot, "teacher %q teaches %q and %q at the same time", entry.Teacher, other, entry.Class)
		} else {
			v.teachers[key] = entry.Class
		}
	}

	room, knownRoom := v.in.FindRoom(entry.Room)
	if !knownRoom {
		v.report(ViolationUnknownRoom, day, slot, "room %q is not in the room roster", entry.Room)
	} else {
		if knownClass && room.Capacity < class.Students {
			v.report(ViolationRoomCapacity, day, slot, "room %q holds %d but class %q has %d students", room.Name, room.Capacity, class.Name, class.Students)
		}
		if v.in.IsLab(entry.Subject) && room.Type != RoomTypeLab {
			v.report(ViolationRoomType, day, slot, "lab subject %q placed in %s room %q", entry.Subject, room.Type, room.Name)
		}
	}
	if entry.Room != Unassigned {
		key := string(day) + "\x00" + slot + "\x00" + entry.Room
		if other, busy := v.rooms[key]; busy {
			v.report(ViolationRoomDouble, day, slot, "room %q used by %q and %q at the same time", entry.Room, other, entry.Class)
		} else {
			v.rooms[key] = entry.Class
		}
	}
}

func (v *verifier) checkCompleteness(schedule WeeklySchedule) {
	for _, day := range v.in.ScheduledDays() {
		for _, slot := range v.in.TeachingSlots() {
			for _, class := range v.in.Classes {
				if _, ok := v.seen[string(day)+"\x00"+slot+"\x00"+class.Name]; !ok {
					v.report(ViolationMissingEntry, day, slot, "class %q has no entry", class.Name)
				}
			}
		}
	}
}

func (v *verifier) checkHours() {
	for _, teacher := range v.in.Teachers {
		if hours := v.hours[teacher.Name]; hours > teacher.MaxHours {
			v.report(ViolationHourCap, "", "", "teacher %q assigned %d hours, cap is %d", teacher.Name, hours, teacher.MaxHours)
		}
	}
}

func scheduleDays(schedule WeeklySchedule) []Day {
	days := make([]Day, 0, len(schedule))
	for _, day := range Weekdays {
		if _, ok := schedule[day]; ok {
			days = append(days, day)
		}
	}
	var extra []Day
	for day := range schedule {
		if day.Index() < 0 {
			extra = append(extra, day)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(days, extra...)
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
