package scheduler

// DefaultMaxConsecutive caps a class's run of back-to-back lectures.
const DefaultMaxConsecutive = 3

// Options tune a generation run. Zero values pick the request's settings
// and then the package defaults.
type Options struct {
	MaxConsecutive int
	Availability   AvailabilityChecker
}

// Stats summarises a generated schedule.
type Stats struct {
	Entries      int            `json:"entries"`
	Filled       int            `json:"filled"`
	Free         int            `json:"free"`
	TeacherHours map[string]int `json:"teacherHours"`
	PerDay       map[Day]int    `json:"perDay"`
}

// Result is the outcome of a generation run.
type Result struct {
	Schedule WeeklySchedule `json:"timetable"`
	Warnings []Warning      `json:"warnings"`
	Stats    Stats          `json:"stats"`
}

// Output wraps the schedule in the interchangeable response shape.
func (r Result) Output() Output {
	return Output{Timetable: r.Schedule}
}

// Generate normalizes the request and runs the engine on it.
func Generate(req Request, opts Options) (Result, error) {
	in, warnings, err := Normalize(req)
	if err != nil {
		return Result{}, err
	}
	result := Run(in, opts)
	result.Warnings = append(warnings, result.Warnings...)
	return result, nil
}

// Run assigns every (day, slot, class) triple with greedy first-fit and
// assembles the weekly schedule. Unsatisfiable slots become Free periods.
func Run(in *Input, opts Options) Result {
	maxConsecutive := opts.MaxConsecutive
	if maxConsecutive <= 0 {
		maxConsecutive = in.MaxConsecutive
	}
	if maxConsecutive <= 0 {
		maxConsecutive = DefaultMaxConsecutive
	}
	availability := opts.Availability
	if availability == nil {
		availability = NewAvailability(in.AvailabilityMode)
	}

	state := NewSchedulingState()
	committed := make(map[Day][]ScheduleEntry, len(Weekdays))
	for _, day := range in.ScheduledDays() {
		state.ResetConsecutive()
		prev := ""
		for _, slot := range in.TimeSlots {
			// A break slot, or a break falling between two slots, ends every class's lecture run.
			if in.IsBreak(slot) {
				state.ResetConsecutive()
				continue
			}
			if prev != "" && breakBetween(prev, slot, in.Breaks) {
				state.ResetConsecutive()
			}
			prev = slot
			for _, class := range in.Classes {
				if state.ClassFilled(day, slot, class.Name) {
					continue
				}
				committed[day] = append(committed[day], assign(in, state, availability, maxConsecutive, day, slot, class))
			}
		}
	}

	schedule := Assemble(in, committed)
	return Result{Schedule: schedule, Stats: summarize(schedule, state, in)}
}

func assign(in *Input, state *SchedulingState, availability AvailabilityChecker, maxConsecutive int, day Day, slot string, class ClassGroup) ScheduleEntry {
	if state.Consecutive(class.Name) >= maxConsecutive {
		state.CommitFree(day, slot, class)
		return freeEntry(slot, class.Name)
	}
	for _, subject := range class.Subjects {
		teacher, ok := pickTeacher(in, state, availability, day, slot, subject)
		if !ok {
			continue
		}
		room, ok := pickRoom(in, state, day, slot, class, in.IsLab(subject))
		if !ok {
			continue
		}
		state.Commit(day, slot, class, teacher, room)
		return ScheduleEntry{Time: slot, Class: class.Name, Subject: subject, Teacher: teacher.Name, Room: room.Name}
	}
	state.CommitFree(day, slot, class)
	return freeEntry(slot, class.Name)
}

func pickTeacher(in *Input, state *SchedulingState, availability AvailabilityChecker, day Day, slot, subject string) (Teacher, bool) {
	for _, teacher := range in.Teachers {
		if !teacher.Teaches(subject) {
			continue
		}
		if !availability.IsAvailable(teacher, day, slot) {
			continue
		}
		if state.HoursAssigned(teacher.Name) >= teacher.MaxHours {
			continue
		}
		if state.TeacherBusy(day, slot, teacher.Name) {
			continue
		}
		return teacher, true
	}
	return Teacher{}, false
}

func pickRoom(in *Input, state *SchedulingState, day Day, slot string, class ClassGroup, lab bool) (Room, bool) {
	for _, room := range in.Rooms {
		if room.Capacity < class.Students {
			continue
		}
		if lab && room.Type != RoomTypeLab {
			continue
		}
		if state.RoomBusy(day, slot, room.Name) {
			continue
		}
		return room, true
	}
	return Room{}, false
}

func summarize(schedule WeeklySchedule, state *SchedulingState, in *Input) Stats {
	stats := Stats{
		TeacherHours: make(map[string]int, len(in.Teachers)),
		PerDay:       make(map[Day]int, len(Weekdays)),
	}
	for _, teacher := range in.Teachers {
		stats.TeacherHours[teacher.Name] = state.HoursAssigned(teacher.Name)
	}
	for _, day := range Weekdays {
		entries := schedule[day]
		stats.PerDay[day] = len(entries)
		for _, entry := range entries {
			stats.Entries++
			if entry.IsFree() {
				stats.Free++
			} else {
				stats.Filled++
			}
		}
	}
	return stats
}
