package scheduler

type slotKey struct {
	day  Day
	slot string
}

// SchedulingState is the mutable bookkeeping of a single run. It is created
// per call and only grows; commits are never rolled back.
type SchedulingState struct {
	hours       map[string]int
	teacherBusy map[slotKey]map[string]struct{}
	roomBusy    map[slotKey]map[string]struct{}
	classBusy   map[slotKey]map[string]struct{}
	consecutive map[string]int
}

// NewSchedulingState returns an empty state.
func NewSchedulingState() *SchedulingState {
	return &SchedulingState{
		hours:       make(map[string]int),
		teacherBusy: make(map[slotKey]map[string]struct{}),
		roomBusy:    make(map[slotKey]map[string]struct{}),
		classBusy:   make(map[slotKey]map[string]struct{}),
		consecutive: make(map[string]int),
	}
}

// HoursAssigned returns the hours committed to the teacher this week.
func (s *SchedulingState) HoursAssigned(teacher string) int {
	return s.hours[teacher]
}

// TeacherBusy reports whether the teacher already teaches at (day, slot).
func (s *SchedulingState) TeacherBusy(day Day, slot, teacher string) bool {
	return contains(s.teacherBusy, slotKey{day, slot}, teacher)
}

// RoomBusy reports whether the room is already used at (day, slot).
func (s *SchedulingState) RoomBusy(day Day, slot, room string) bool {
	return contains(s.roomBusy, slotKey{day, slot}, room)
}

// ClassFilled reports whether the class already has an entry at (day, slot).
func (s *SchedulingState) ClassFilled(day Day, slot, class string) bool {
	return contains(s.classBusy, slotKey{day, slot}, class)
}

// Consecutive returns the length of the class's current run of lectures.
func (s *SchedulingState) Consecutive(class string) int {
	return s.consecutive[class]
}

// Commit records a lecture for the class at (day, slot).
func (s *SchedulingState) Commit(day Day, slot string, class ClassGroup, teacher Teacher, room Room) {
	key := slotKey{day, slot}
	s.hours[teacher.Name]++
	add(s.teacherBusy, key, teacher.Name)
	add(s.roomBusy, key, room.Name)
	add(s.classBusy, key, class.Name)
	s.consecutive[class.Name]++
}

// CommitFree records a free period and ends the class's lecture run.
func (s *SchedulingState) CommitFree(day Day, slot string, class ClassGroup) {
	add(s.classBusy, slotKey{day, slot}, class.Name)
	s.consecutive[class.Name] = 0
}

// ResetConsecutive clears every class's lecture run, e.g. at a new day or a break.
func (s *SchedulingState) ResetConsecutive() {
	for class := range s.consecutive {
		s.consecutive[class] = 0
	}
}

func contains(index map[slotKey]map[string]struct{}, key slotKey, name string) bool {
	set, ok := index[key]
	if !ok {
		return false
	}
	_, ok = set[name]
	return ok
}

func add(index map[slotKey]map[string]struct{}, key slotKey, name string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[name] = struct{}{}
}
