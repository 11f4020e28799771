package proof

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCleanSortsDescendingByMagnitude(t *testing.T) {
	got, taut, err := Clean([]int{-1, 3, -2})
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if taut {
		t.Fatalf("Clean reported tautological for a non-tautological clause")
	}
	want := []int{3, -2, -1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Clean order mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanDedupesRepeatedLiterals(t *testing.T) {
	got, _, err := Clean([]int{2, -1, 2, -1})
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	want := []int{2, -1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Clean dedup mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanDetectsTautology(t *testing.T) {
	_, taut, err := Clean([]int{1, -2, -1})
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if !taut {
		t.Fatalf("Clean did not detect a clause containing a complementary pair")
	}
}

func TestCleanRejectsZeroLiteral(t *testing.T) {
	_, _, err := Clean([]int{1, 0, -2})
	if err != ErrZeroLiteral {
		t.Fatalf("Clean(...) error = %v, want ErrZeroLiteral", err)
	}
}

// P3: Clean is idempotent on already-clean clauses.
func TestCleanIsIdempotent(t *testing.T) {
	once, _, err := Clean([]int{5, -3, 1, -3})
	if err != nil {
		t.Fatalf("first Clean returned error: %v", err)
	}
	twice, taut, err := Clean(once)
	if err != nil {
		t.Fatalf("second Clean returned error: %v", err)
	}
	if taut {
		t.Fatalf("re-cleaning an already-clean clause reported tautological")
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("Clean is not idempotent (-first +second):\n%s", diff)
	}
}

func TestFormatString(t *testing.T) {
	cases := map[Format]string{
		LRAT:     "LRAT",
		DRAT:     "DRAT",
		FRAT:     "FRAT",
		Format(99): "unknown",
	}
	for f, want := range cases {
		if got := f.String(); got != want {
			t.Errorf("Format(%d).String() = %q, want %q", int(f), got, want)
		}
	}
}
