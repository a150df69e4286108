package normalize

import "testing"

func TestNormalizeFoldsCaseAndWidth(t *testing.T) {
	n := New()

	cases := []struct {
		in, want string
	}{
		{"Alice", "alice"},
		{"ＡＬＩＣＥ", "alice"},
		{"  alice\t bob ", "alice bob"},
		{"alice‍bob", "alicebob"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := n.Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New()
	in := "Ｗidé  Ｎame"
	once := n.Normalize(in)
	if twice := n.Normalize(once); twice != once {
		t.Fatalf("not idempotent: %q -> %q", once, twice)
	}
}
