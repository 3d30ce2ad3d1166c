package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

var (
	heading = color.New(color.FgCyan, color.Bold).SprintFunc()
	good    = color.New(color.FgGreen).SprintFunc()
	warn    = color.New(color.FgYellow).SprintFunc()
)

func score(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

// WriteTable prints the dataset sizes, baseline scores, the topN search
// configurations and the final comparison on the test split.
func WriteTable(w io.Writer, s *Summary, topN int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n", heading(fmt.Sprintf("Run %s  task %s  features %d", s.RunID, s.Task, s.Features)))
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(tw, "finished in %s\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}

	fmt.Fprintf(tw, "\n%s\n", heading("Dataset"))
	fmt.Fprintln(tw, "split\tsamples\tpositives\t")
	for _, sp := range s.Splits {
		fmt.Fprintf(tw, "%s\t%d\t%d\t\n", sp.Name, sp.N, sp.Positives)
	}

	if len(s.Baselines) > 0 {
		fmt.Fprintf(tw, "\n%s\n", heading("Baselines (ROC-AUC)"))
		fmt.Fprintln(tw, "model\ttrain\tvalid\ttest\t")
		for _, b := range s.Baselines {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", b.Model, score(b.Train.ROCAUC), score(b.Valid.ROCAUC), score(b.Test.ROCAUC))
		}
	}

	if len(s.Ranking) > 0 {
		n := len(s.Ranking)
		if topN > 0 && topN < n {
			n = topN
		}
		fmt.Fprintf(tw, "\n%s\n", heading(fmt.Sprintf("Search (top %d of %d)", n, len(s.Ranking))))
		fmt.Fprintln(tw, "rank\tconfig\tmean\tstd\tparams\t")
		for i, r := range s.Ranking[:n] {
			mean := score(r.Mean)
			if math.IsNaN(r.Mean) {
				mean = warn("diverged")
			}
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t\n", i+1, r.Index, mean, score(r.Std), r.Params)
		}
	}

	if s.Final.Model != "" {
		fmt.Fprintf(tw, "\n%s\n", heading("Final (test split)"))
		fmt.Fprintln(tw, "model\tvalid auc\ttest auc\taccuracy\tf1\t")
		rows := append(append([]ModelScores(nil), s.Baselines...), s.Final)
		bestTest := math.Inf(-1)
		for _, r := range rows {
			if r.Test.ROCAUC > bestTest {
				bestTest = r.Test.ROCAUC
			}
		}
		for _, r := range rows {
			mark := ""
			if r.Test.ROCAUC == bestTest {
				mark = good("best")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Model, score(r.Valid.ROCAUC), score(r.Test.ROCAUC),
				score(r.Test.Accuracy), score(r.Test.F1), mark)
		}
	}
	return tw.Flush()
}
