package timetable

import (
	"errors"
	"reflect"
	"testing"
)

func gridWith(slots ...int) Grid {
	g := make(Grid, SlotsPerWeek)
	for _, i := range slots {
		g[i] = 1
	}
	return g
}

func TestCombineEmptyInput(t *testing.T) {
	combined, err := Combine(nil)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	for i, slot := range combined {
		if slot.AmountAvailable != 0 {
			t.Fatalf("slot %d: expected 0 available, got %d", i, slot.AmountAvailable)
		}
		if slot.MembersAvailable == nil {
			t.Fatalf("slot %d: MembersAvailable must be an empty list, not nil", i)
		}
		if len(slot.MembersAvailable) != 0 {
			t.Fatalf("slot %d: expected no members, got %v", i, slot.MembersAvailable)
		}
	}
}

func TestCombineCountsMatchMembers(t *testing.T) {
	entries := []MemberGrid{
		{Username: "alice", Grid: gridWith(0, 5, 42)},
		{Username: "bob", Grid: gridWith(5, 42, 167)},
		{Username: "carol", Grid: gridWith(42)},
	}

	combined, err := Combine(entries)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	for i, slot := range combined {
		if slot.AmountAvailable != len(slot.MembersAvailable) {
			t.Fatalf("slot %d: count %d does not match members %v", i, slot.AmountAvailable, slot.MembersAvailable)
		}
	}

	if got := combined[42].MembersAvailable; !reflect.DeepEqual(got, []string{"alice", "bob", "carol"}) {
		t.Fatalf("slot 42: expected all three members sorted, got %v", got)
	}
	if combined[0].AmountAvailable != 1 || combined[0].MembersAvailable[0] != "alice" {
		t.Fatalf("slot 0: expected only alice, got %v", combined[0].MembersAvailable)
	}
	if combined[167].AmountAvailable != 1 || combined[167].MembersAvailable[0] != "bob" {
		t.Fatalf("slot 167: expected only bob, got %v", combined[167].MembersAvailable)
	}
	if combined[1].AmountAvailable != 0 {
		t.Fatalf("slot 1: expected nobody, got %v", combined[1].MembersAvailable)
	}
}

func TestCombineOrderIndependent(t *testing.T) {
	a := MemberGrid{Username: "zoe", Grid: gridWith(10, 11)}
	b := MemberGrid{Username: "adam", Grid: gridWith(11, 12)}
	c := MemberGrid{Username: "mia", Grid: gridWith(10, 12)}

	first, err := Combine([]MemberGrid{a, b, c})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	second, err := Combine([]MemberGrid{c, a, b})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatal("permuting input entries changed the combined result")
	}
	if got := first[11].MembersAvailable; !reflect.DeepEqual(got, []string{"adam", "zoe"}) {
		t.Fatalf("slot 11: expected sorted usernames, got %v", got)
	}
}

func TestCombineDeduplicatesUsernames(t *testing.T) {
	entries := []MemberGrid{
		{Username: "alice", Grid: gridWith(7)},
		{Username: "alice", Grid: gridWith(7, 8)},
	}

	combined, err := Combine(entries)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}

	if combined[7].AmountAvailable != 1 {
		t.Fatalf("slot 7: duplicate username inflated count to %d", combined[7].AmountAvailable)
	}
	if combined[8].AmountAvailable != 1 {
		t.Fatalf("slot 8: expected alice once, got %v", combined[8].MembersAvailable)
	}
}

func TestCombineRejectsMalformedGrid(t *testing.T) {
	tests := []struct {
		name string
		grid Grid
	}{
		{"too short", make(Grid, SlotsPerWeek-1)},
		{"too long", make(Grid, SlotsPerWeek+1)},
		{"bad value", func() Grid {
			g := make(Grid, SlotsPerWeek)
			g[3] = 2
			return g
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []MemberGrid{
				{Username: "good", Grid: gridWith(1)},
				{Username: "bad", Grid: tt.grid},
			}
			_, err := Combine(entries)
			if err == nil {
				t.Fatal("expected error for malformed grid")
			}

			var malformed *MalformedScheduleError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedScheduleError, got %T", err)
			}
			if malformed.Username != "bad" {
				t.Fatalf("expected offender %q, got %q", "bad", malformed.Username)
			}
		})
	}
}

// One bad grid fails the whole combine even when every other grid is valid.
func TestCombineFailsWhole(t *testing.T) {
	entries := []MemberGrid{
		{Username: "alice", Grid: gridWith(0)},
		{Username: "broken", Grid: make(Grid, 10)},
		{Username: "bob", Grid: gridWith(1)},
	}

	combined, err := Combine(entries)
	if err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(combined, CombinedSchedule{}) {
		t.Fatal("expected zero-value result on failure")
	}
}
