// Package report renders an experiment summary as console tables, PNG plots
// and a JSON document.
package report

import (
	"time"

	"github.com/hik2833/CSC580WeekSix/pkg/metrics"
	"github.com/hik2833/CSC580WeekSix/pkg/nn"
	"github.com/hik2833/CSC580WeekSix/pkg/search"
)

// SplitInfo describes one dataset split.
type SplitInfo struct {
	Name      string
	N         int
	Positives int
}

// ModelScores are one model's scores on each split.
type ModelScores struct {
	Model string
	Train metrics.Scores
	Valid metrics.Scores
	Test  metrics.Scores
}

// Curve is a labelled ROC curve.
type Curve struct {
	Label    string
	FPR, TPR []float64
}

// Summary is everything an experiment run reports.
type Summary struct {
	RunID      string
	Task       string
	StartedAt  time.Time
	FinishedAt time.Time
	Features   int
	Splits     []SplitInfo
	Baselines  []ModelScores
	Ranking    []search.Result
	Best       search.Result
	Final      ModelScores
	History    nn.History
	Curves     []Curve
}
