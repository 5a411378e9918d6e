package timetable

import "sort"

// dayCapacity tracks what is left of one day: the overall minute budget and, per preferred
// block, the next free start minute.
type dayCapacity struct {
	remaining int
	cursors   []int
}

func newDayCapacities(days, minutesPerDay int, blocks []TimeBlock) []dayCapacity {
	capacities := make([]dayCapacity, days)
	for d := range capacities {
		cursors := make([]int, len(blocks))
		for b, block := range blocks {
			cursors[b] = block.Start
		}
		capacities[d] = dayCapacity{remaining: minutesPerDay, cursors: cursors}
	}
	return capacities
}

type placedSession struct {
	plannedSession
	dayIndex int
	block    TimeBlock
	start    int
}

// placeSessions interleaves subjects round-robin, one session per subject per pass, and puts
// each session at the first day and block with room. A session too long for any free run is
// split across the largest runs left; minutes that fit nowhere are returned as unplaced.
func placeSessions(queues [][]plannedSession, blocks []TimeBlock, days []dayCapacity, spread bool) ([]placedSession, []plannedSession) {
	var placed []placedSession
	var unplaced []plannedSession

	next := make([]int, len(queues))
	for {
		progressed := false
		for s, queue := range queues {
			if next[s] >= len(queue) {
				continue
			}
			session := queue[next[s]]
			next[s]++
			progressed = true

			pieces, rest := place(session, blocks, days, spread)
			placed = append(placed, pieces...)
			if rest.minutes > 0 {
				unplaced = append(unplaced, rest)
			}
		}
		if !progressed {
			break
		}
	}
	return placed, unplaced
}

// place returns the placed pieces of session and whatever part of it found no room.
func place(session plannedSession, blocks []TimeBlock, days []dayCapacity, spread bool) ([]placedSession, plannedSession) {
	var pieces []placedSession
	for session.minutes >= MinSessionMinutes {
		if slot, ok := fit(session, blocks, days, spread); ok {
			return append(pieces, slot), plannedSession{}
		}
		run := largestRun(blocks, days)
		if run < MinSessionMinutes {
			break
		}
		piece := session
		piece.minutes = run
		if tail := session.minutes - run; tail < MinSessionMinutes && session.minutes-MinSessionMinutes >= MinSessionMinutes {
			piece.minutes = session.minutes - MinSessionMinutes
		}
		slot, ok := fit(piece, blocks, days, spread)
		if !ok {
			break
		}
		pieces = append(pieces, slot)
		session.minutes -= piece.minutes
	}
	return pieces, session
}

// largestRun is the longest stretch any day can still take in a single block.
func largestRun(blocks []TimeBlock, days []dayCapacity) int {
	longest := 0
	for d := range days {
		for b, block := range blocks {
			run := block.End - days[d].cursors[b]
			if days[d].remaining < run {
				run = days[d].remaining
			}
			if run > longest {
				longest = run
			}
		}
	}
	return longest
}

func fit(session plannedSession, blocks []TimeBlock, days []dayCapacity, spread bool) (placedSession, bool) {
	for _, d := range dayOrder(days, spread) {
		day := &days[d]
		if day.remaining < session.minutes {
			continue
		}
		for b, block := range blocks {
			start := day.cursors[b]
			if start+session.minutes > block.End {
				continue
			}
			day.cursors[b] += session.minutes
			day.remaining -= session.minutes
			return placedSession{plannedSession: session, dayIndex: d, block: block, start: start}, true
		}
	}
	return placedSession{}, false
}

// dayOrder scans from the first day by default. In spread mode the least loaded days come
// first, ties broken by index.
func dayOrder(days []dayCapacity, spread bool) []int {
	order := make([]int, len(days))
	for i := range order {
		order[i] = i
	}
	if spread {
		sort.SliceStable(order, func(i, j int) bool {
			return days[order[i]].remaining > days[order[j]].remaining
		})
	}
	return order
}
