package nn

import "math"

// BCEWithLogits is the weighted binary cross-entropy of logits z against 0/1
// labels, normalised by the total weight, in a numerically stable form. A nil
// w weighs every sample 1.
// It returns the loss and its gradient with respect to each logit.
func BCEWithLogits(yTrue, z, w []float64) (float64, []float64) {
	n := len(yTrue)
	grad := make([]float64, n)
	sw := 0.0
	for i := 0; i < n; i++ {
		if w != nil {
			sw += w[i]
		} else {
			sw++
		}
	}
	if sw == 0 {
		return 0, grad
	}
	s := 0.0
	for i := 0; i < n; i++ {
		wi := 1.0
		if w != nil {
			wi = w[i]
		}
		zi, y := z[i], yTrue[i]
		s += wi * (math.Max(zi, 0) - zi*y + math.Log1p(math.Exp(-math.Abs(zi))))
		grad[i] = wi * (Sigmoid(zi) - y) / sw
	}
	return s / sw, grad
}
