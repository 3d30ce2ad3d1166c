package data

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hik2833/CSC580WeekSix/pkg/logger"
)

// Sample represents a single data point.
type Sample struct {
	X []float64
	Y float64
}

// StreamCSV streams rows of a numeric CSV with a header line as Samples.
// labelCol is the index of the label column. Malformed rows are logged and
// skipped; an unparsable feature becomes NaN. out is closed when the file is
// exhausted or ctx is done.
func StreamCSV(ctx context.Context, path string, labelCol int, out chan<- Sample, log logger.Logger) (header []string, err error) {
	if log == nil {
		log = logger.Discard()
	}
	file, err := os.Open(path)
	if err != nil {
		close(out)
		return nil, errors.Wrap(err, "data: open csv")
	}

	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1
	header, err = reader.Read()
	if err != nil {
		file.Close()
		close(out)
		if err == io.EOF {
			return nil, errors.New("data: empty csv")
		}
		return nil, errors.Wrap(err, "data: csv header")
	}
	if labelCol < 0 || labelCol >= len(header) {
		file.Close()
		close(out)
		return nil, errors.Errorf("data: label column %d out of range (%d columns)", labelCol, len(header))
	}
	width := len(header)

	go func() {
		defer file.Close()
		defer close(out)
		for line := 2; ; line++ {
			rec, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				log.Warn("skipping csv record", "line", line, "err", err)
				continue
			}
			if len(rec) != width {
				log.Warn("skipping csv record", "line", line, "fields", len(rec), "want", width)
				continue
			}
			y, err := strconv.ParseFloat(strings.TrimSpace(rec[labelCol]), 64)
			if err != nil {
				log.Warn("skipping csv record without label", "line", line)
				continue
			}
			x := make([]float64, 0, width-1)
			for i, s := range rec {
				if i == labelCol {
					continue
				}
				v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
				if err != nil {
					v = math.NaN()
				}
				x = append(x, v)
			}
			select {
			case out <- Sample{X: x, Y: y}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return header, nil
}

// LoadFeatureCSV collects StreamCSV into a Dataset with class-balance weights.
func LoadFeatureCSV(ctx context.Context, path string, labelCol int, log logger.Logger) (*Dataset, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch := make(chan Sample, 256)
	header, err := StreamCSV(ctx, path, labelCol, ch, log)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{Task: header[labelCol]}
	for s := range ch {
		if s.Y != 0 && s.Y != 1 {
			return nil, errors.Errorf("data: label %v is not binary", s.Y)
		}
		ds.X = append(ds.X, s.X)
		ds.Y = append(ds.Y, s.Y)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, h := range header {
		if i != labelCol {
			ds.Features = append(ds.Features, h)
		}
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	ds.W = ClassBalanceWeights(ds.Y)
	return ds, nil
}
