package metrics

import (
	"math"

	"github.com/hik2833/CSC580WeekSix/pkg/data"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ErrSingleClass is returned when ROC-AUC is requested for labels that are
// all positive or all negative.
var ErrSingleClass = errors.New("metrics: labels contain a single class")

// ROCCurve returns the ROC points for scores p against 0/1 labels y, with
// FPR ascending.
func ROCCurve(y, p []float64) (fpr, tpr []float64, err error) {
	if len(y) != len(p) {
		return nil, nil, errors.Errorf("metrics: %d labels but %d scores", len(y), len(p))
	}
	pos := 0
	for _, v := range y {
		if v >= 0.5 {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return nil, nil, ErrSingleClass
	}
	scores := append([]float64(nil), p...)
	classes := make([]bool, len(y))
	for i, v := range y {
		classes[i] = v >= 0.5
	}
	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ = stat.ROC(nil, scores, classes, nil)
	if fpr[0] > fpr[len(fpr)-1] {
		reverse(fpr)
		reverse(tpr)
	}
	return fpr, tpr, nil
}

// ROCAUC is the trapezoidal area under the ROC curve.
func ROCAUC(y, p []float64) (float64, error) {
	fpr, tpr, err := ROCCurve(y, p)
	if err != nil {
		return math.NaN(), err
	}
	return integrate.Trapezoidal(fpr, tpr), nil
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// LogLoss is the weighted binary cross-entropy of probabilities p, normalised
// by the total weight. A nil w weighs every sample 1.
func LogLoss(y, p, w []float64) float64 {
	s, sw := 0.0, 0.0
	for i := range y {
		pi := math.Min(math.Max(p[i], 1e-12), 1-1e-12)
		wi := 1.0
		if w != nil {
			wi = w[i]
		}
		s += -wi * (y[i]*math.Log(pi) + (1-y[i])*math.Log(1-pi))
		sw += wi
	}
	if sw == 0 {
		return 0
	}
	return s / sw
}

func BinaryPredFromProba(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}

// Accuracy over binary labels (0/1).
func Accuracy(yTrue []int, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// Confusion is a binary confusion matrix.
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

func ConfusionMatrix(yTrue, yPred []int) Confusion {
	var c Confusion
	for i := range yTrue {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			c.TP++
		case yPred[i] == 1:
			c.FP++
		case yTrue[i] == 1:
			c.FN++
		default:
			c.TN++
		}
	}
	return c
}

func PrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	c := ConfusionMatrix(yTrue, yPred)
	if c.TP+c.FP > 0 {
		prec = float64(c.TP) / float64(c.TP+c.FP)
	}
	if c.TP+c.FN > 0 {
		rec = float64(c.TP) / float64(c.TP+c.FN)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// Scores bundles the classification metrics reported for one split.
type Scores struct {
	N         int       `json:"n"`
	Positives int       `json:"positives"`
	ROCAUC    float64   `json:"roc_auc"`
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1"`
	LogLoss   float64   `json:"log_loss"`
	Confusion Confusion `json:"confusion"`
}

// Score evaluates probabilities p against labels y at a 0.5 threshold.
// The weighted log loss uses w. For a single-class y every other field is
// still filled in, ROCAUC is NaN and the error is ErrSingleClass.
func Score(y, p, w []float64) (Scores, error) {
	if len(y) != len(p) {
		return Scores{}, errors.Errorf("metrics: %d labels but %d scores", len(y), len(p))
	}
	auc, err := ROCAUC(y, p)
	labels := make([]int, len(y))
	s := Scores{N: len(y), ROCAUC: auc, LogLoss: LogLoss(y, p, w)}
	for i, v := range y {
		if v >= 0.5 {
			labels[i] = 1
			s.Positives++
		}
	}
	pred := BinaryPredFromProba(p, 0.5)
	s.Accuracy = Accuracy(labels, pred)
	s.Confusion = ConfusionMatrix(labels, pred)
	s.Precision, s.Recall, s.F1 = PrecisionRecallF1(labels, pred)
	return s, err
}

// Prober is anything that yields P(y=1) for a feature matrix.
type Prober interface {
	PredictProba(X [][]float64) ([]float64, error)
}

// Evaluate scores clf on ds using the dataset's sample weights for the log
// loss.
func Evaluate(clf Prober, ds *data.Dataset) (Scores, error) {
	p, err := clf.PredictProba(ds.X)
	if err != nil {
		return Scores{}, errors.Wrap(err, "metrics: predict")
	}
	return Score(ds.Y, p, ds.W)
}
