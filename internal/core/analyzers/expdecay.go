package analyzers

import (
	"math"
	"sort"

	"warden/internal/platform/validate"
)

// ExpDecayName registers the exponential-decay analyzer
const ExpDecayName = "exponential-decay"

// ExpDecayOptions tune the exponential-decay analyzer
type ExpDecayOptions struct {
	// Weight of the volume discount subtracted from the group mean
	Weight float64 `json:"weight" validate:"gte=0,lte=1"`
	// Decay controls how fast the discount vanishes as a group grows
	Decay float64 `json:"decay" validate:"gte=0,lte=1"`
	// Threshold a group's weighted mean must reach to be flagged
	Threshold float64 `json:"threshold" validate:"gte=0,lte=1"`
}

// DefaultExpDecayOptions are sensible starting values
func DefaultExpDecayOptions() ExpDecayOptions {
	return ExpDecayOptions{Weight: 0.2, Decay: 0.1, Threshold: 0.5}
}

func init() {
	Register(ExpDecayName, func(opts map[string]any) (Analyzer, error) {
		o := DefaultExpDecayOptions()
		if v, ok := floatOpt(opts, "weight"); ok {
			o.Weight = v
		}
		if v, ok := floatOpt(opts, "decay"); ok {
			o.Decay = v
		}
		if v, ok := floatOpt(opts, "threshold"); ok {
			o.Threshold = v
		}
		if err := validate.Struct(o); err != nil {
			return nil, err
		}
		return &ExpDecay{opts: o}, nil
	})
}

// ExpDecay flags whole actor groups whose anomaly scores stay high even
// after discounting for group size. A lone high-scoring observation can
// trip it, but a burst of them must be consistently high: the discount
// weight*(1-decay)^(n-1) shrinks toward zero as the group grows, so large
// groups are judged almost purely on their mean score
type ExpDecay struct {
	opts ExpDecayOptions
}

// Name satisfies Analyzer
func (a *ExpDecay) Name() string { return ExpDecayName }

// Analyze satisfies Analyzer
func (a *ExpDecay) Analyze(events []Event) []Anomaly {
	groups := make(map[int64][]Anomaly)
	for _, ev := range events {
		groups[ev.ActorID] = append(groups[ev.ActorID], ev.Anomalies...)
	}

	var out []Anomaly
	for _, anomalies := range groups {
		n := len(anomalies)
		if n == 0 {
			continue
		}
		var sum float64
		for _, an := range anomalies {
			sum += an.Score
		}
		weighted := sum/float64(n) - a.opts.Weight*math.Pow(1-a.opts.Decay, float64(n-1))
		if weighted < a.opts.Threshold {
			continue
		}
		for _, an := range anomalies {
			if an.Score == 0 {
				continue
			}
			out = append(out, an)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func floatOpt(opts map[string]any, key string) (float64, bool) {
	v, ok := opts[key]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
