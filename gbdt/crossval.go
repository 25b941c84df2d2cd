package gbdt

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/sabim-lab/chalc2d/metrics"
	"github.com/sabim-lab/chalc2d/pkg/errors"
)

// Splitter generates train/test folds over a dataset.
type Splitter interface {
	Split(X, y mat.Matrix) []CVFold
	GetNSplits() int
}

// CVFold is one train/test partition.
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits samples into k contiguous folds, optionally shuffled.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewKFold creates a k-fold splitter. Fewer than 2 splits falls back
// to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed int) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of folds.
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates the fold index sets.
func (kf *KFold) Split(X, _ mat.Matrix) []CVFold {
	nSamples, _ := X.Dims()

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}

	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]CVFold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	currentIdx := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}

		testIndices := append([]int(nil), indices[currentIdx:currentIdx+testSize]...)
		trainIndices := make([]int, 0, nSamples-testSize)
		trainIndices = append(trainIndices, indices[:currentIdx]...)
		trainIndices = append(trainIndices, indices[currentIdx+testSize:]...)

		folds[i] = CVFold{
			TrainIndices: trainIndices,
			TestIndices:  testIndices,
		}
		currentIdx += testSize
	}

	return folds
}

// LeaveOneOut holds each sample out in turn. With only a few hundred
// phases in the table this is affordable and gives the least biased
// generalization estimate.
type LeaveOneOut struct{}

// NewLeaveOneOut creates a leave-one-out splitter.
func NewLeaveOneOut() *LeaveOneOut {
	return &LeaveOneOut{}
}

// GetNSplits returns -1; the fold count equals the sample count and
// is only known once Split sees the data.
func (l *LeaveOneOut) GetNSplits() int {
	return -1
}

// Split generates one fold per sample.
func (l *LeaveOneOut) Split(X, _ mat.Matrix) []CVFold {
	nSamples, _ := X.Dims()
	folds := make([]CVFold, nSamples)

	for i := 0; i < nSamples; i++ {
		trainIndices := make([]int, 0, nSamples-1)
		for j := 0; j < nSamples; j++ {
			if j != i {
				trainIndices = append(trainIndices, j)
			}
		}
		folds[i] = CVFold{
			TrainIndices: trainIndices,
			TestIndices:  []int{i},
		}
	}

	return folds
}

// CVResult collects per-fold scores from CrossValidate. Predictions
// holds the held-out predictions of each fold in fold order.
type CVResult struct {
	R2          []float64
	RMSE        []float64
	MAE         []float64
	Predictions [][]float64
}

// MeanR2 returns the average R2 over folds.
func (r *CVResult) MeanR2() float64 { return mean(r.R2) }

// MeanRMSE returns the average RMSE over folds.
func (r *CVResult) MeanRMSE() float64 { return mean(r.RMSE) }

// MeanMAE returns the average MAE over folds.
func (r *CVResult) MeanMAE() float64 { return mean(r.MAE) }

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// CrossValidate fits a fresh regressor per fold and scores it on the
// held out samples. newRegressor must return an unfitted estimator
// with the desired hyperparameters.
func CrossValidate(newRegressor func() *Regressor, X, y mat.Matrix, splitter Splitter) (*CVResult, error) {
	folds := splitter.Split(X, y)
	if len(folds) == 0 {
		return nil, errors.NewValueError("CrossValidate", "splitter produced no folds")
	}

	result := &CVResult{}

	// Leave-one-out folds hold a single sample, for which R2 is
	// undefined. Pool those predictions and score once at the end.
	pooled := len(folds[0].TestIndices) == 1
	var pooledTrue, pooledPred []float64

	for _, fold := range folds {
		trainX, trainY := subset(X, y, fold.TrainIndices)
		testX, testY := subset(X, y, fold.TestIndices)

		reg := newRegressor()
		if err := reg.Fit(trainX, trainY); err != nil {
			return nil, errors.Wrap(err, "fold training failed")
		}

		predictions, err := reg.Predict(testX)
		if err != nil {
			return nil, errors.Wrap(err, "fold prediction failed")
		}

		n := len(fold.TestIndices)
		foldPred := make([]float64, n)
		for i := 0; i < n; i++ {
			foldPred[i] = predictions.At(i, 0)
		}
		result.Predictions = append(result.Predictions, foldPred)

		if pooled {
			for i := 0; i < n; i++ {
				pooledTrue = append(pooledTrue, testY.At(i, 0))
				pooledPred = append(pooledPred, foldPred[i])
			}
			continue
		}

		yVec := mat.NewVecDense(n, nil)
		predVec := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			yVec.SetVec(i, testY.At(i, 0))
			predVec.SetVec(i, predictions.At(i, 0))
		}

		r2, err := metrics.R2Score(yVec, predVec)
		if err != nil {
			return nil, err
		}
		rmse, err := metrics.RMSE(yVec, predVec)
		if err != nil {
			return nil, err
		}
		mae, err := metrics.MAE(yVec, predVec)
		if err != nil {
			return nil, err
		}

		result.R2 = append(result.R2, r2)
		result.RMSE = append(result.RMSE, rmse)
		result.MAE = append(result.MAE, mae)
	}

	if pooled {
		yVec := mat.NewVecDense(len(pooledTrue), pooledTrue)
		predVec := mat.NewVecDense(len(pooledPred), pooledPred)

		r2, err := metrics.R2Score(yVec, predVec)
		if err != nil {
			return nil, err
		}
		rmse, err := metrics.RMSE(yVec, predVec)
		if err != nil {
			return nil, err
		}
		mae, err := metrics.MAE(yVec, predVec)
		if err != nil {
			return nil, err
		}

		result.R2 = []float64{r2}
		result.RMSE = []float64{rmse}
		result.MAE = []float64{mae}
	}

	return result, nil
}

func subset(X, y mat.Matrix, indices []int) (*mat.Dense, *mat.Dense) {
	_, cols := X.Dims()
	outX := mat.NewDense(len(indices), cols, nil)
	outY := mat.NewDense(len(indices), 1, nil)

	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			outX.Set(i, j, X.At(idx, j))
		}
		outY.Set(i, 0, y.At(idx, 0))
	}
	return outX, outY
}
