package main

import (
	"fmt"
	"math"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/scheduler"
	"github.com/c360/neurostream/types"
)

// dominantChannelClassifier is the built-in stand-in decoder: it labels each
// window with the reference channel carrying the most signal power, scored by
// that channel's share of the total. Deployments with a trained model replace
// this by linking their own scheduler.Classifier; the binary only needs
// something deterministic to exercise the full acquire-decode-emit path.
func dominantChannelClassifier() scheduler.Classifier {
	return func(w types.AlignedWindow) (string, float64, error) {
		ref := w.Reference
		if ref.Len() == 0 || len(ref.Values[0]) == 0 {
			return "", 0, errors.WrapInvalid(errors.ErrInsufficientData,
				"Classifier", "Classify", "empty reference window")
		}

		power := make([]float64, len(ref.Values[0]))
		for _, sample := range ref.Values {
			for ch, v := range sample {
				power[ch] += v * v
			}
		}

		best, total := 0, 0.0
		for ch, p := range power {
			total += p
			if p > power[best] {
				best = ch
			}
		}
		if total == 0 {
			return "ch00", 0, nil
		}

		score := math.Sqrt(power[best]) / math.Sqrt(total)
		return fmt.Sprintf("ch%02d", best), score, nil
	}
}
