package timetable

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

// TimeBlock is a named window of a day expressed in minutes since midnight.
type TimeBlock struct {
	Name  string
	Start int
	End   int
}

// Minutes reports the length of the block window.
func (b TimeBlock) Minutes() int {
	return b.End - b.Start
}

var knownBlocks = []TimeBlock{
	{Name: "Morning", Start: 8 * 60, End: 12 * 60},
	{Name: "Afternoon", Start: 13 * 60, End: 17 * 60},
	{Name: "Evening", Start: 18 * 60, End: 22 * 60},
}

// DefaultBlockNames are used when a request carries no block preference.
var DefaultBlockNames = []string{"Morning", "Afternoon"}

// KnownBlocks returns a copy of the supported block catalog.
func KnownBlocks() []TimeBlock {
	out := make([]TimeBlock, len(knownBlocks))
	copy(out, knownBlocks)
	return out
}

// ResolveBlocks maps preferred block names onto the catalog, keeping the caller's order.
// Matching is case-insensitive and repeated names are ignored.
func ResolveBlocks(names []string) ([]TimeBlock, error) {
	if len(names) == 0 {
		names = DefaultBlockNames
	}
	seen := make(map[string]bool, len(names))
	resolved := make([]TimeBlock, 0, len(names))
	for _, raw := range names {
		key := strings.ToLower(strings.TrimSpace(raw))
		if key == "" || seen[key] {
			continue
		}
		block, ok := lookupBlock(key)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidRequest, fmt.Sprintf("unknown time block %q", raw))
		}
		seen[key] = true
		resolved = append(resolved, block)
	}
	if len(resolved) == 0 {
		return ResolveBlocks(DefaultBlockNames)
	}
	return resolved, nil
}

func lookupBlock(key string) (TimeBlock, bool) {
	for _, block := range knownBlocks {
		if strings.ToLower(block.Name) == key {
			return block, true
		}
	}
	return TimeBlock{}, false
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
