package timetable

import (
	"fmt"
	"sort"
)

// MemberGrid pairs a member's username with their submitted grid.
type MemberGrid struct {
	Username string
	Grid     Grid
}

// Slot is one hour of the combined view: how many members are free and who
// they are. AmountAvailable always equals len(MembersAvailable).
type Slot struct {
	AmountAvailable  int      `json:"amountAvailable"`
	MembersAvailable []string `json:"membersAvailable"`
}

// CombinedSchedule is the per-hour aggregation of all members' grids.
type CombinedSchedule [SlotsPerWeek]Slot

// Combine merges the members' grids into one combined schedule. It is pure
// and order-independent: permuting the input yields an identical result,
// and a username counted twice in the input is only listed once per slot.
// If any grid violates the 168-slot contract the whole operation fails and
// no partial result is returned.
func Combine(entries []MemberGrid) (CombinedSchedule, error) {
	var combined CombinedSchedule

	for _, e := range entries {
		if err := e.Grid.Validate(); err != nil {
			return CombinedSchedule{}, NewMalformedScheduleError(e.Username, err)
		}
	}

	// Track per-slot membership so duplicate submissions for the same
	// username never inflate the count.
	seen := make([]map[string]struct{}, SlotsPerWeek)

	for _, e := range entries {
		for i, v := range e.Grid {
			if v != 1 {
				continue
			}
			if seen[i] == nil {
				seen[i] = make(map[string]struct{})
			}
			if _, dup := seen[i][e.Username]; dup {
				continue
			}
			seen[i][e.Username] = struct{}{}
			combined[i].MembersAvailable = append(combined[i].MembersAvailable, e.Username)
		}
	}

	for i := range combined {
		if combined[i].MembersAvailable == nil {
			combined[i].MembersAvailable = []string{}
		}
		// Sorted output keeps the result canonical regardless of input order.
		sort.Strings(combined[i].MembersAvailable)
		combined[i].AmountAvailable = len(combined[i].MembersAvailable)
	}

	return combined, nil
}

// MalformedScheduleError reports a grid that violates the weekly contract.
type MalformedScheduleError struct {
	Username string
	Reason   error
}

// NewMalformedScheduleError wraps a grid validation failure for one member.
func NewMalformedScheduleError(username string, reason error) *MalformedScheduleError {
	return &MalformedScheduleError{Username: username, Reason: reason}
}

func (e *MalformedScheduleError) Error() string {
	if e.Username == "" {
		return fmt.Sprintf("malformed schedule: %v", e.Reason)
	}
	return fmt.Sprintf("malformed schedule for %q: %v", e.Username, e.Reason)
}

func (e *MalformedScheduleError) Unwrap() error {
	return e.Reason
}
