package data

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hik2833/CSC580WeekSix/pkg/logger"
)

// Tox21Tasks are the twelve assay columns of the Tox21 CSV, in file order.
var Tox21Tasks = []string{
	"NR-AR", "NR-AR-LBD", "NR-AhR", "NR-Aromatase", "NR-ER", "NR-ER-LBD",
	"NR-PPAR-gamma", "SR-ARE", "SR-ATAD5", "SR-HSE", "SR-MMP", "SR-p53",
}

// ErrUnknownTask is returned when the requested assay column is missing.
var ErrUnknownTask = errors.New("data: unknown tox21 task")

// Tox21Options selects the assay and the featurization.
type Tox21Options struct {
	Task        string
	Fingerprint FingerprintOptions
	Log         logger.Logger
}

// LoadTox21 opens path (plain or gzip CSV) and reads it with ReadTox21.
func LoadTox21(path string, opts Tox21Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "data: open tox21")
	}
	defer f.Close()
	ds, err := ReadTox21(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "data: read %s", path)
	}
	return ds, nil
}

// ReadTox21 parses the Tox21 CSV and fingerprints each molecule. Rows with
// no label for the chosen task are dropped.
func ReadTox21(r io.Reader, opts Tox21Options) (*Dataset, error) {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	if opts.Task == "" {
		opts.Task = Tox21Tasks[0]
	}
	if opts.Fingerprint.Bits <= 0 {
		opts.Fingerprint = DefaultFingerprint()
	}

	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "data: gzip")
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("data: empty tox21 file")
	}
	if err != nil {
		return nil, errors.Wrap(err, "data: header")
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	taskCol, ok := col[opts.Task]
	if !ok {
		return nil, errors.Wrap(ErrUnknownTask, opts.Task)
	}
	smilesCol, ok := col["smiles"]
	if !ok {
		return nil, errors.New("data: tox21 file has no smiles column")
	}
	idCol, hasID := col["mol_id"]

	ds := &Dataset{Task: opts.Task}
	unlabelled, noSmiles := 0, 0
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "data: line %d", line)
		}
		if taskCol >= len(rec) || smilesCol >= len(rec) {
			log.Warn("short tox21 row", "line", line, "fields", len(rec))
			continue
		}
		raw := strings.TrimSpace(rec[taskCol])
		if raw == "" {
			unlabelled++
			continue
		}
		y, err := strconv.ParseFloat(raw, 64)
		if err != nil || (y != 0 && y != 1) {
			return nil, errors.Errorf("data: line %d: bad label %q", line, raw)
		}
		smiles := strings.TrimSpace(rec[smilesCol])
		if smiles == "" {
			noSmiles++
			continue
		}
		ds.X = append(ds.X, Fingerprint(smiles, opts.Fingerprint))
		ds.Y = append(ds.Y, y)
		if hasID && idCol < len(rec) {
			ds.IDs = append(ds.IDs, rec[idCol])
		} else {
			ds.IDs = append(ds.IDs, strconv.Itoa(line))
		}
	}
	if ds.Len() == 0 {
		return nil, errors.Errorf("data: no labelled rows for task %s", opts.Task)
	}
	ds.W = ClassBalanceWeights(ds.Y)
	ds.Features = make([]string, opts.Fingerprint.Bits)
	for i := range ds.Features {
		ds.Features[i] = "fp" + strconv.Itoa(i)
	}
	log.Info("loaded tox21",
		"task", opts.Task,
		"samples", ds.Len(),
		"positives", ds.Positives(),
		"unlabelled", unlabelled,
		"missing_smiles", noSmiles,
	)
	return ds, nil
}
