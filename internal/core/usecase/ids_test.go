package usecase

import "testing"

func TestRandomIDsNumbersDoNotCollide(t *testing.T) {
	const draws = 50000
	seen := make(map[int64]struct{}, draws)
	for i := 0; i < draws; i++ {
		n := RandomIDs{}.NewNumber()
		if n <= 0 {
			t.Fatalf("expected positive id, got %d", n)
		}
		if _, dup := seen[n]; dup {
			t.Fatalf("expected unique ids, got duplicate %d after %d draws", n, i)
		}
		seen[n] = struct{}{}
	}
}

func TestRandomIDsStringsAreUnique(t *testing.T) {
	a, b := RandomIDs{}.NewString(), RandomIDs{}.NewString()
	if a == b || len(a) != 36 {
		t.Fatalf("expected two distinct uuids, got %q and %q", a, b)
	}
}
