package report

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/hik2833/CSC580WeekSix/pkg/metrics"
	"github.com/hik2833/CSC580WeekSix/pkg/nn"
)

// Num is a float that encodes NaN and ±Inf as null.
type Num float64

func (n Num) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

type scoresDoc struct {
	N         int               `json:"n"`
	Positives int               `json:"positives"`
	ROCAUC    Num               `json:"roc_auc"`
	Accuracy  Num               `json:"accuracy"`
	Precision Num               `json:"precision"`
	Recall    Num               `json:"recall"`
	F1        Num               `json:"f1"`
	LogLoss   Num               `json:"log_loss"`
	Confusion metrics.Confusion `json:"confusion"`
}

type modelDoc struct {
	Model string    `json:"model"`
	Train scoresDoc `json:"train"`
	Valid scoresDoc `json:"valid"`
	Test  scoresDoc `json:"test"`
}

type resultDoc struct {
	Index  int       `json:"index"`
	Params nn.Params `json:"params"`
	Scores []Num     `json:"scores"`
	Mean   Num       `json:"mean"`
	Std    Num       `json:"std"`
}

type epochDoc struct {
	Epoch     int `json:"epoch"`
	TrainLoss Num `json:"train_loss"`
	ValidLoss Num `json:"valid_loss"`
	ValidAUC  Num `json:"valid_auc"`
}

type splitDoc struct {
	Name      string `json:"name"`
	N         int    `json:"n"`
	Positives int    `json:"positives"`
}

type summaryDoc struct {
	RunID      string      `json:"run_id"`
	Task       string      `json:"task"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Features   int         `json:"features"`
	Splits     []splitDoc  `json:"splits"`
	Baselines  []modelDoc  `json:"baselines"`
	Ranking    []resultDoc `json:"ranking"`
	Best       *resultDoc  `json:"best,omitempty"`
	Final      *modelDoc   `json:"final,omitempty"`
	History    []epochDoc  `json:"history,omitempty"`
}

func scoresOf(s metrics.Scores) scoresDoc {
	return scoresDoc{
		N: s.N, Positives: s.Positives,
		ROCAUC: Num(s.ROCAUC), Accuracy: Num(s.Accuracy), Precision: Num(s.Precision),
		Recall: Num(s.Recall), F1: Num(s.F1), LogLoss: Num(s.LogLoss),
		Confusion: s.Confusion,
	}
}

func modelOf(m ModelScores) modelDoc {
	return modelDoc{Model: m.Model, Train: scoresOf(m.Train), Valid: scoresOf(m.Valid), Test: scoresOf(m.Test)}
}

// document converts s into its JSON shape.
func document(s *Summary) summaryDoc {
	doc := summaryDoc{
		RunID: s.RunID, Task: s.Task, StartedAt: s.StartedAt, FinishedAt: s.FinishedAt,
		Features:  s.Features,
		Splits:    []splitDoc{},
		Baselines: []modelDoc{},
		Ranking:   []resultDoc{},
	}
	for _, sp := range s.Splits {
		doc.Splits = append(doc.Splits, splitDoc(sp))
	}
	for _, b := range s.Baselines {
		doc.Baselines = append(doc.Baselines, modelOf(b))
	}
	for _, r := range s.Ranking {
		rd := resultDoc{Index: r.Index, Params: r.Params, Mean: Num(r.Mean), Std: Num(r.Std)}
		for _, v := range r.Scores {
			rd.Scores = append(rd.Scores, Num(v))
		}
		doc.Ranking = append(doc.Ranking, rd)
	}
	if len(s.Ranking) > 0 {
		best := resultDoc{Index: s.Best.Index, Params: s.Best.Params, Mean: Num(s.Best.Mean), Std: Num(s.Best.Std)}
		for _, v := range s.Best.Scores {
			best.Scores = append(best.Scores, Num(v))
		}
		doc.Best = &best
	}
	if s.Final.Model != "" {
		final := modelOf(s.Final)
		doc.Final = &final
	}
	for _, e := range s.History {
		doc.History = append(doc.History, epochDoc{Epoch: e.Epoch, TrainLoss: Num(e.TrainLoss), ValidLoss: Num(e.ValidLoss), ValidAUC: Num(e.ValidAUC)})
	}
	return doc
}

// MarshalSummary encodes s as indented JSON. NaN scores become null.
func MarshalSummary(s *Summary) ([]byte, error) {
	b, err := json.MarshalIndent(document(s), "", "  ")
	return b, errors.Wrap(err, "report: encode summary")
}

// WriteJSON writes MarshalSummary(s) to path.
func WriteJSON(path string, s *Summary) error {
	b, err := MarshalSummary(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.Wrap(err, "report: create dirs")
	}
	return errors.Wrap(os.WriteFile(path, b, 0o644), "report: write summary")
}
