package dataset

import (
	"math/rand"

	"github.com/sabim-lab/chalc2d/pkg/errors"
)

// TrainTestSplit partitions row indices into a training set and a held
// out test set. The split is deterministic for a given seed.
func TrainTestSplit(nSamples int, testFraction float64, seed int64) (train, test []int, err error) {
	if nSamples <= 1 {
		return nil, nil, errors.NewValueError("TrainTestSplit", "need at least 2 samples")
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, errors.NewValidationError("testFraction", "must be in (0, 1)", testFraction)
	}

	nTest := int(float64(nSamples) * testFraction)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= nSamples {
		nTest = nSamples - 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(nSamples)
	test = append([]int(nil), perm[:nTest]...)
	train = append([]int(nil), perm[nTest:]...)
	return train, test, nil
}
