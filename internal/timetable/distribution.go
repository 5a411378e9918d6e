package timetable

import "math"

const epsilon = 1e-6

// Allocation is the number of minutes a subject receives on the plan before placement.
type Allocation struct {
	SubjectID          string `json:"subject_id"`
	OutstandingMinutes int    `json:"outstanding_minutes"`
	AllocatedMinutes   int    `json:"allocated_minutes"`
}

// Distribute splits totalAvailable minutes across subjects in proportion to their outstanding
// minutes, capped by what each subject owes. When nobody owes anything the capacity is split
// evenly. Results are multiples of granularity and never sum past totalAvailable.
func Distribute(subjects []Subject, totalAvailable, granularity int) []Allocation {
	allocations := make([]Allocation, len(subjects))
	for i, subject := range subjects {
		allocations[i] = Allocation{SubjectID: subject.ID, OutstandingMinutes: clampOutstanding(subject.OutstandingMinutes)}
	}
	if len(subjects) == 0 || totalAvailable <= 0 || granularity <= 0 {
		return allocations
	}

	weights := make([]float64, len(subjects))
	ceilings := make([]float64, len(subjects))
	totalOutstanding := 0
	for i, alloc := range allocations {
		totalOutstanding += alloc.OutstandingMinutes
		weights[i] = float64(alloc.OutstandingMinutes)
		ceilings[i] = float64(alloc.OutstandingMinutes)
	}
	if totalOutstanding == 0 {
		for i := range weights {
			weights[i] = 1
			ceilings[i] = math.Inf(1)
		}
	}

	shares := waterFill(weights, ceilings, float64(totalAvailable))

	minutes := make([]int, len(shares))
	var leftover float64
	for i, share := range shares {
		minutes[i] = int(math.Floor(share+epsilon)) / granularity * granularity
		leftover += share - float64(minutes[i])
	}

	donateLeftover(minutes, weights, ceilings, int(math.Floor(leftover+epsilon)), granularity)
	guaranteeFloor(minutes, weights, totalAvailable, granularity)

	for i := range allocations {
		allocations[i].AllocatedMinutes = minutes[i]
	}
	return allocations
}

// waterFill hands out capacity proportionally to weights, re-offering whatever saturated
// subjects could not absorb. At least one subject saturates per pass, so len(weights) passes
// are enough.
func waterFill(weights, ceilings []float64, capacity float64) []float64 {
	shares := make([]float64, len(weights))
	remaining := capacity
	for pass := 0; pass < len(weights) && remaining > epsilon; pass++ {
		var activeWeight float64
		for i, w := range weights {
			if w > 0 && shares[i] < ceilings[i]-epsilon {
				activeWeight += w
			}
		}
		if activeWeight == 0 {
			break
		}

		changed := false
		var granted float64
		for i, w := range weights {
			if w <= 0 || shares[i] >= ceilings[i]-epsilon {
				continue
			}
			grant := math.Min(remaining*w/activeWeight, ceilings[i]-shares[i])
			if grant > epsilon {
				shares[i] += grant
				granted += grant
				changed = true
			}
		}
		remaining -= granted
		if !changed {
			break
		}
	}
	return shares
}

// donateLeftover gives pooled rounding remainders back in whole granules, each to the subject
// that is furthest behind relative to what it owes. A granule is only given when it stays within
// what the subject owes.
func donateLeftover(minutes []int, weights, ceilings []float64, pool, granularity int) {
	for pool >= granularity {
		best := -1
		bestRatio := -1.0
		for i := range minutes {
			if weights[i] <= 0 {
				continue
			}
			if float64(minutes[i]+granularity) > ceilings[i]+epsilon {
				continue
			}
			ratio := math.Inf(1)
			if minutes[i] > 0 {
				ratio = weights[i] / float64(minutes[i])
			}
			if ratio > bestRatio {
				best = i
				bestRatio = ratio
			}
		}
		if best < 0 {
			return
		}
		minutes[best] += granularity
		pool -= granularity
	}
}

// guaranteeFloor makes sure every subject that owes time gets at least one granule, first from
// unused capacity and then from the largest allocation that can spare one.
func guaranteeFloor(minutes []int, weights []float64, totalAvailable, granularity int) {
	for i := range minutes {
		if weights[i] <= 0 || minutes[i] > 0 {
			continue
		}
		if totalAvailable-sum(minutes) >= granularity {
			minutes[i] = granularity
			continue
		}
		donor := -1
		for j := range minutes {
			if minutes[j] > granularity && (donor < 0 || minutes[j] > minutes[donor]) {
				donor = j
			}
		}
		if donor < 0 {
			return
		}
		minutes[donor] -= granularity
		minutes[i] = granularity
	}
}

func clampOutstanding(minutes int) int {
	if minutes < 0 {
		return 0
	}
	return minutes
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
