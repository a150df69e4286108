package reporters

import "testing"

func TestMandatoryFirstSightIsMax(t *testing.T) {
	score := Mandatory(Observation{Count: 1, Siblings: []int64{1}})
	if score != 1 {
		t.Fatalf("first sight = %v, want 1", score)
	}
	// new value while other values exist is still first sight
	score = Mandatory(Observation{Count: 1, Siblings: []int64{1, 40, 9}})
	if score != 1 {
		t.Fatalf("new value with history = %v, want 1", score)
	}
}

func TestMandatoryFrequentValueIsNormal(t *testing.T) {
	// count 10 vs siblings [10, 2]: mean 6, count above mean
	score := Mandatory(Observation{Count: 10, Siblings: []int64{10, 2}})
	if score != 0 {
		t.Fatalf("frequent value = %v, want 0", score)
	}
}

func TestMandatoryRareValueScalesWithFrequency(t *testing.T) {
	// count 2 vs siblings [2, 18]: mean 10, total 20 -> 1 - 2/20
	score := Mandatory(Observation{Count: 2, Siblings: []int64{2, 18}})
	if want := 0.9; score != want {
		t.Fatalf("rare value = %v, want %v", score, want)
	}
}

func TestMandatoryMonotoneInCount(t *testing.T) {
	prev := 2.0
	for c := int64(2); c <= 9; c++ {
		score := Mandatory(Observation{Count: c, Siblings: []int64{c, 100}})
		if score > prev {
			t.Fatalf("score increased with count: count=%d score=%v prev=%v", c, score, prev)
		}
		prev = score
	}
}

func TestOptionalSeenValueIsNormal(t *testing.T) {
	if score := Optional(Observation{Count: 3, NullCount: 5, Siblings: []int64{3}}); score != 0 {
		t.Fatalf("repeat = %v, want 0", score)
	}
}

func TestOptionalUnseenScoresByAbsenceRate(t *testing.T) {
	// 9 prior observations, 6 of them absent
	score := Optional(Observation{Count: 1, NullCount: 6, Siblings: []int64{1, 3}})
	if want := 6.0 / 9.0; score != want {
		t.Fatalf("unseen = %v, want %v", score, want)
	}
}

func TestOptionalNoHistoryIsMax(t *testing.T) {
	if score := Optional(Observation{Count: 1, Siblings: []int64{1}}); score != 1 {
		t.Fatalf("no history = %v, want 1", score)
	}
}

func TestScoresStayInUnitInterval(t *testing.T) {
	obs := []Observation{
		{Count: 1, Siblings: []int64{1}},
		{Count: 1, NullCount: 1000, Siblings: []int64{1}},
		{Count: 7, NullCount: 2, Siblings: []int64{7, 1, 1}},
		{Count: 500, Siblings: []int64{500, 1}},
	}
	for _, fn := range []Func{Mandatory, Optional, Weighted(Mandatory, 3), Weighted(Optional, 0.5)} {
		for _, o := range obs {
			if s := fn(o); s < 0 || s > 1 {
				t.Fatalf("score %v out of [0,1] for %+v", s, o)
			}
		}
	}
}

func TestResolve(t *testing.T) {
	if _, err := Resolve("mandatory"); err != nil {
		t.Fatalf("mandatory: %v", err)
	}
	if _, err := Resolve("optional"); err != nil {
		t.Fatalf("optional: %v", err)
	}
	if _, err := Resolve("nope"); err == nil {
		t.Fatal("expected error for unknown reporter")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	Register("custom-once", func(Observation) float64 { return 0 })
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("custom-once", func(Observation) float64 { return 0 })
}
