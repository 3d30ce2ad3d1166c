package experiment

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/hik2833/CSC580WeekSix/pkg/config"
	"github.com/hik2833/CSC580WeekSix/pkg/data"
	"github.com/hik2833/CSC580WeekSix/pkg/model"
	"github.com/hik2833/CSC580WeekSix/pkg/nn"
	"github.com/hik2833/CSC580WeekSix/pkg/search"
	"github.com/hik2833/CSC580WeekSix/pkg/store"
)

// syntheticTox21 writes a Tox21-shaped CSV where NR-AR is positive exactly
// when the molecule carries a chlorine.
func syntheticTox21(n int, seed int64) string {
	rng := rand.New(rand.NewSource(seed))
	frags := []string{"CCC", "c1ccccc1", "CCN", "CC(=O)", "CCOC", "NCC", "C1CC1", "OCCO"}
	var b strings.Builder
	b.WriteString(strings.Join(data.Tox21Tasks, ","))
	b.WriteString(",mol_id,smiles\n")
	for i := 0; i < n; i++ {
		smiles := frags[rng.Intn(len(frags))] + frags[rng.Intn(len(frags))]
		label := i % 2
		if label == 1 {
			smiles += "Cl"
		} else {
			smiles += "O"
		}
		labels := make([]string, len(data.Tox21Tasks))
		labels[0] = fmt.Sprint(label)
		for j := 1; j < len(labels); j++ {
			if rng.Intn(3) > 0 {
				labels[j] = fmt.Sprint(rng.Intn(2))
			}
		}
		fmt.Fprintf(&b, "%s,TOX%d,%s\n", strings.Join(labels, ","), i, smiles)
	}
	return b.String()
}

func testConfig(t *testing.T, csvPath string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Dataset.Source = config.SourceFile
	cfg.Dataset.Path = csvPath
	cfg.Dataset.Fingerprint = data.FingerprintOptions{Bits: 256, Radius: 1}
	cfg.Dataset.Split = config.Split{Train: 0.7, Valid: 0.15, Seed: 1}
	cfg.Baseline.Models = []string{config.BaselineForest, config.BaselineLogistic, config.BaselineTree}
	cfg.Baseline.Forest.Trees = 10
	cfg.Search.Seeds = []int64{1, 2}
	cfg.Search.Workers = 2
	cfg.Search.Defaults = nn.Params{
		HiddenLayers: 1,
		LayerSize:    16,
		Dropout:      0.1,
		LearningRate: 0.01,
		Epochs:       20,
		BatchSize:    32,
		Activation:   "relu",
		Optimizer:    "adam",
	}
	cfg.Search.Grid = search.Grid{LayerSize: []int{8, 16}}
	cfg.Output = config.Output{
		Dir:         filepath.Join(t.TempDir(), "results"),
		ResultsDB:   "ledger.db",
		MetricsFile: "toxsearch.prom",
		Plots:       true,
		SaveForest:  true,
	}
	return cfg
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tox21.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunEndToEnd(t *testing.T) {
	color.NoColor = true
	cfg := testConfig(t, writeCSV(t, syntheticTox21(240, 1)))
	var out bytes.Buffer
	sum, err := Run(context.Background(), cfg, Deps{Out: &out})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(sum.RunID); err != nil {
		t.Fatalf("run id %q: %v", sum.RunID, err)
	}
	if sum.Task != "NR-AR" || sum.Features == 0 || len(sum.Splits) != 3 {
		t.Fatalf("summary header = %+v", sum)
	}
	if n := sum.Splits[0].N + sum.Splits[1].N + sum.Splits[2].N; n != 240 {
		t.Fatalf("splits cover %d rows", n)
	}
	if len(sum.Baselines) != 3 {
		t.Fatalf("got %d baselines", len(sum.Baselines))
	}
	if auc := sum.Baselines[0].Test.ROCAUC; auc < 0.8 {
		t.Fatalf("forest test ROC-AUC = %v", auc)
	}
	if len(sum.Ranking) != 2 || len(sum.Ranking[0].Scores) != 2 {
		t.Fatalf("ranking = %+v", sum.Ranking)
	}
	if sum.Best.Index != sum.Ranking[0].Index {
		t.Fatal("best is not the top-ranked configuration")
	}
	if sum.Final.Model != NetworkModel || math.IsNaN(sum.Final.Test.ROCAUC) {
		t.Fatalf("final = %+v", sum.Final)
	}
	if len(sum.History) != cfg.Search.Defaults.Epochs {
		t.Fatalf("history has %d epochs", len(sum.History))
	}
	if len(sum.Curves) != 4 {
		t.Fatalf("got %d ROC curves", len(sum.Curves))
	}

	for _, name := range []string{SummaryFile, ForestFile, ROCPlot, HistoryPlot, SearchPlot, "toxsearch.prom", "ledger.db"} {
		if st, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); err != nil || st.Size() == 0 {
			t.Fatalf("%s not written: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "Final (test split)") {
		t.Fatalf("console output:\n%s", out.String())
	}
	prom, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "toxsearch.prom"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prom), `toxsearch_trials_total{status="ok"} 4`) {
		t.Fatalf("metrics textfile:\n%s", prom)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(cfg.Output.Dir, "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	trials, err := st.Trials(ctx, sum.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 4 {
		t.Fatalf("ledger holds %d trials, want 4", len(trials))
	}
	run, err := st.Run(ctx, sum.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run.BestIndex != sum.Best.Index || run.FinishedAt.IsZero() || run.TestAUC != sum.Final.Test.ROCAUC {
		t.Fatalf("ledger run = %+v", run)
	}
}

func TestBaselinesOnly(t *testing.T) {
	cfg := testConfig(t, writeCSV(t, syntheticTox21(120, 2)))
	cfg.Baseline.Models = []string{config.BaselineTree}
	cfg.Output.ResultsDB = ""
	cfg.Output.MetricsFile = ""
	cfg.Output.SaveForest = false
	sum, err := Baselines(context.Background(), cfg, Deps{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Baselines) != 1 || len(sum.Ranking) != 0 || sum.Final.Model != "" {
		t.Fatalf("summary = %+v", sum)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, SummaryFile)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Output.Dir, SearchPlot)); !os.IsNotExist(err) {
		t.Fatalf("search plot written by a baseline-only run: %v", err)
	}
}

func TestLoadFromS3(t *testing.T) {
	body := syntheticTox21(100, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bucket/tox21.csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	cfg := testConfig(t, filepath.Join(t.TempDir(), "cache", "tox21.csv"))
	cfg.Dataset.Source = config.SourceS3
	cfg.Dataset.S3 = data.FetchOptions{Region: "us-east-1", Bucket: "bucket", Key: "tox21.csv", Endpoint: srv.URL, PathStyle: true}
	ds, err := Load(context.Background(), cfg.Dataset, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 100 || ds.NumFeatures() != 256 {
		t.Fatalf("loaded %d rows of width %d", ds.Len(), ds.NumFeatures())
	}
	if _, err := os.Stat(cfg.Dataset.Path); err != nil {
		t.Fatalf("dataset not cached: %v", err)
	}
}

func TestPrepareRejectsSingleClassValidation(t *testing.T) {
	ds := &data.Dataset{}
	for i := 0; i < 50; i++ {
		ds.X = append(ds.X, []float64{float64(i), float64(i % 3)})
		ds.Y = append(ds.Y, 0)
	}
	cfg := config.Default().Dataset
	if _, err := Prepare(ds, cfg, nil); err == nil || !strings.Contains(err.Error(), "validation split") {
		t.Fatalf("err = %v", err)
	}
}

func TestPrepareFitsOnTrainOnly(t *testing.T) {
	ds := &data.Dataset{Features: []string{"const", "signal"}}
	for i := 0; i < 200; i++ {
		ds.X = append(ds.X, []float64{1, float64(i)})
		ds.Y = append(ds.Y, float64(i%2))
	}
	cfg := config.Default().Dataset
	cfg.Preprocess = config.Preprocess{Impute: true, VarianceThreshold: 0, Scale: true}
	sp, err := Prepare(ds, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sp.Features() != 1 || len(sp.Test.Features) != 1 || sp.Test.Features[0] != "signal" {
		t.Fatalf("features = %d %v", sp.Features(), sp.Test.Features)
	}
	mean := 0.0
	for _, row := range sp.Train.X {
		mean += row[0]
	}
	if math.Abs(mean/float64(sp.Train.Len())) > 1e-9 {
		t.Fatalf("scaled training mean = %v", mean/float64(sp.Train.Len()))
	}
	if sp.Train.W == nil || len(sp.Valid.W) != sp.Valid.Len() {
		t.Fatal("splits should carry class-balance weights")
	}
}

func TestNewBaselineAppliesConfig(t *testing.T) {
	cfg := config.Default().Baseline
	cfg.Forest.Bootstrap = false
	cfg.Tree.MinImpurityDecrease = 0.05
	sp := &Splits{Valid: &data.Dataset{}}

	b, err := NewBaseline(config.BaselineForest, cfg, sp)
	if err != nil {
		t.Fatal(err)
	}
	if rf := b.(*model.RandomForest); rf.Bootstrap || rf.NEstimators != cfg.Forest.Trees {
		t.Fatalf("forest = %+v", rf)
	}
	b, err = NewBaseline(config.BaselineTree, cfg, sp)
	if err != nil {
		t.Fatal(err)
	}
	tb := b.(*model.TreeBaseline)
	if tb.Tree.MinImpurityDecrease != 0.05 || tb.Prune != sp.Valid {
		t.Fatalf("tree baseline = %+v", tb.Tree)
	}
	if _, err := NewBaseline("svm", cfg, sp); err == nil {
		t.Fatal("expected unknown baseline error")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Search.Seeds = nil
	if _, err := Run(context.Background(), cfg, Deps{}); err == nil {
		t.Fatal("expected validation error")
	}
}
