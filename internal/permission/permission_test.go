package permission

import "testing"

func TestCombine(t *testing.T) {
	a := Set(0b01)
	b := Set(0b10)

	if got := Combine(a, b); got != 0b11 {
		t.Fatalf("Combine(a, b) = %b, want 11", got)
	}
	if Combine(a, b) != Combine(b, a) {
		t.Fatal("Combine is not commutative")
	}
	if Combine(Combine(a, b), System) != Combine(a, Combine(b, System)) {
		t.Fatal("Combine is not associative")
	}
	if got := Combine(a, None); got != a {
		t.Fatalf("None is not the identity: got %b", got)
	}
}

func TestSatisfies(t *testing.T) {
	cases := []struct {
		name      string
		effective Set
		required  Set
		want      bool
	}{
		{"exact", System, System, true},
		{"superset", System | 1<<5, System, true},
		{"missing", 1 << 5, System, false},
		{"empty requirement", None, None, true},
		{"partial overlap", 0b01, 0b11, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.effective.Satisfies(tc.required); got != tc.want {
				t.Fatalf("Satisfies(%b, %b) = %v, want %v", tc.effective, tc.required, got, tc.want)
			}
		})
	}
}

func TestAnySatisfies(t *testing.T) {
	if !AnySatisfies(None) {
		t.Fatal("empty requirement list must be vacuously satisfied")
	}
	if !AnySatisfies(System, System) {
		t.Fatal("effective holding the required bit must satisfy")
	}
	if AnySatisfies(None, System) {
		t.Fatal("empty effective set must not satisfy a non-empty requirement")
	}
	// OR-of-ANDs: one matching entry is enough.
	if !AnySatisfies(0b01, 0b100, 0b01) {
		t.Fatal("expected second requirement entry to match")
	}
	if AnySatisfies(0b11, 0b100) {
		t.Fatal("unrelated bit must not satisfy")
	}
}
