package scheduler

import "sort"

// Assemble orders each day's entries by slot position in the caller's slot
// list and packages all five weekdays. Entries whose slot is unknown keep
// their relative order after the known ones.
func Assemble(in *Input, committed map[Day][]ScheduleEntry) WeeklySchedule {
	schedule := NewWeeklySchedule()
	for day, entries := range committed {
		sorted := make([]ScheduleEntry, len(entries))
		copy(sorted, entries)
		sort.SliceStable(sorted, func(i, j int) bool {
			return slotRank(in, sorted[i].Time) < slotRank(in, sorted[j].Time)
		})
		schedule[day] = sorted
	}
	return schedule
}

func slotRank(in *Input, slot string) int {
	if idx, ok := in.SlotIndex(slot); ok {
		return idx
	}
	return len(in.TimeSlots)
}
