package monitor

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hik2833/CSC580WeekSix/pkg/search"
)

func TestObserveTrial(t *testing.T) {
	m := New()
	if !math.IsNaN(testutil.ToFloat64(m.BestScore)) {
		t.Fatal("best score should start as NaN")
	}
	m.ObserveTrial(search.Trial{Score: 0.7, Duration: time.Second})
	m.ObserveTrial(search.Trial{Score: math.NaN(), Diverged: true, Duration: time.Second})
	m.ObserveTrial(search.Trial{Score: 0.6, Duration: time.Second})
	m.ObserveEpoch()
	m.ObserveEpoch()

	if got := testutil.ToFloat64(m.Trials.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok trials = %v", got)
	}
	if got := testutil.ToFloat64(m.Trials.WithLabelValues("diverged")); got != 1 {
		t.Fatalf("diverged trials = %v", got)
	}
	if got := testutil.ToFloat64(m.BestScore); got != 0.7 {
		t.Fatalf("best score = %v", got)
	}
	if got := testutil.ToFloat64(m.Epochs); got != 2 {
		t.Fatalf("epochs = %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveTrial(search.Trial{Score: 0.5, Duration: 250 * time.Millisecond})
	path := filepath.Join(t.TempDir(), "node", "toxsearch.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`toxsearch_trials_total{status="ok"} 1`,
		"toxsearch_best_score 0.5",
		"toxsearch_trial_duration_seconds_count 1",
	} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("textfile missing %q:\n%s", want, b)
		}
	}
}
