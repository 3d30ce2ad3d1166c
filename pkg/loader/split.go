package loader

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/hik2833/CSC580WeekSix/pkg/data"
)

// TrainValidTestSplit shuffles ds with seed and cuts it into train, valid
// and test sets. The test set receives whatever remains after fracTrain and
// fracValid.
func TrainValidTestSplit(ds *data.Dataset, fracTrain, fracValid float64, seed int64) (train, valid, test *data.Dataset, err error) {
	if fracTrain <= 0 || fracValid <= 0 || fracTrain+fracValid >= 1 {
		return nil, nil, nil, errors.Errorf("loader: invalid split fractions train=%v valid=%v", fracTrain, fracValid)
	}
	n := ds.Len()
	nTrain := int(float64(n) * fracTrain)
	nValid := int(float64(n) * fracValid)
	if nTrain == 0 || nValid == 0 || n-nTrain-nValid == 0 {
		return nil, nil, nil, errors.Errorf("loader: %d samples is too few for a %v/%v split", n, fracTrain, fracValid)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	train = ds.Subset(indices[:nTrain])
	valid = ds.Subset(indices[nTrain : nTrain+nValid])
	test = ds.Subset(indices[nTrain+nValid:])
	return train, valid, test, nil
}

// ShuffleIndices returns a permutation of 0..n-1 drawn from rng.
func ShuffleIndices(n int, rng *rand.Rand) []int { return rng.Perm(n) }

// Batches shuffles 0..n-1 with rng and cuts it into mini-batches of size.
// The last batch may be short.
func Batches(n, size int, rng *rand.Rand) [][]int {
	if size <= 0 || size > n {
		size = n
	}
	idx := ShuffleIndices(n, rng)
	out := make([][]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		out = append(out, idx[start:min(start+size, n)])
	}
	return out
}
