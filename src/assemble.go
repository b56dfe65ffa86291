package src

import (
	"github.com/gonum/matrix/mat64"
	"go.uber.org/zap"
)

// Dataset is a feature matrix with one label per row.
type Dataset struct {
	X *mat64.Dense
	Y []float64
}

func (d *Dataset) Dims() (nRow int, nCol int) {
	if d.X == nil {
		return 0, 0
	}
	return d.X.Dims()
}

// Assemble loads every file from store and stacks them row-wise in the given
// order. The returned matrices are newly allocated.
func Assemble(files []string, store Store, logger *zap.SugaredLogger) (*Dataset, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	recs := make([]*Record, len(files))
	nRow := 0
	nFea := -1
	for i, file := range files {
		logger.Debug(file)
		rec, err := store.Load(file)
		if err != nil {
			return nil, err
		}
		r, c := rec.X.Dims()
		if nFea < 0 {
			nFea = c
		} else if c != nFea {
			return nil, &ShapeMismatchError{File: file, What: "feature columns", Want: nFea, Got: c}
		}
		if r != len(rec.Y) {
			return nil, &ShapeMismatchError{File: file, What: "label rows", Want: r, Got: len(rec.Y)}
		}
		recs[i] = rec
		nRow += r
	}

	y := make([]float64, 0, nRow)
	if nRow == 0 {
		return &Dataset{X: mat64.NewDense(0, nFea, nil), Y: y}, nil
	}
	x := mat64.NewDense(nRow, nFea, nil)
	r := 0
	for _, rec := range recs {
		n, _ := rec.X.Dims()
		for i := 0; i < n; i++ {
			x.SetRow(r, rec.X.RawRowView(i))
			r++
		}
		y = append(y, rec.Y...)
	}
	return &Dataset{X: x, Y: y}, nil
}

// AssembleSplit builds the train and test datasets of a split.
func AssembleSplit(s Split, store Store, logger *zap.SugaredLogger) (train *Dataset, test *Dataset, err error) {
	logger.Infof("Len train files = %d", len(s.Train))
	logger.Infof("Len test files = %d", len(s.Test))
	train, err = Assemble(s.Train, store, logger)
	if err != nil {
		return nil, nil, err
	}
	test, err = Assemble(s.Test, store, logger)
	if err != nil {
		return nil, nil, err
	}
	nTr, nFea := train.Dims()
	nTs, nFeaTs := test.Dims()
	if nFea != nFeaTs {
		return nil, nil, &ShapeMismatchError{File: s.Test[0], What: "feature columns", Want: nFea, Got: nFeaTs}
	}
	logger.Info("Loaded Data")
	logger.Infof("Train data shape = (%d, %d)(%d,)", nTr, nFea, len(train.Y))
	logger.Infof("Test data shape = (%d, %d)(%d,)", nTs, nFeaTs, len(test.Y))
	nPos := CountPos(train.Y)
	logger.Infof("Train labels = %d positive, %d negative", nPos, len(train.Y)-nPos)
	nPos = CountPos(test.Y)
	logger.Infof("Test labels = %d positive, %d negative", nPos, len(test.Y)-nPos)
	return train, test, nil
}
