package src

import (
	"context"
	"time"

	"github.com/gonum/matrix/mat64"
	"github.com/pa-m/sklearn/svm"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// SVCClassifier fits an in-process support vector classifier, no external
// binaries needed.
type SVCClassifier struct {
	C      float64
	Kernel string
	Logger *zap.SugaredLogger
}

func (c *SVCClassifier) Name() string { return "svc" }

func (c *SVCClassifier) Evaluate(ctx context.Context, train *Dataset, test *Dataset, workDir string) (PerfRecord, error) {
	if err := ctx.Err(); err != nil {
		return PerfRecord{}, err
	}
	xTr, err := learnerMatrix(train, "train", c.Logger)
	if err != nil {
		return PerfRecord{}, err
	}
	xTs, err := learnerMatrix(test, "test", c.Logger)
	if err != nil {
		return PerfRecord{}, err
	}
	nTr, _ := xTr.Dims()
	nTs, _ := xTs.Dims()

	yTr := mat.NewDense(nTr, 1, nil)
	for i, v := range train.Y {
		yTr.Set(i, 0, BipolarLabel(v))
	}
	m := svm.NewSVC()
	if c.C > 0 {
		m.C = c.C
	}
	if c.Kernel != "" {
		m.Kernel = c.Kernel
	}
	start := time.Now()
	m.Fit(xTr, yTr)
	c.logger().Infof("learning done in %v", time.Since(start))

	yh := mat.NewDense(nTs, 1, nil)
	m.Predict(xTs, yh)
	c.logger().Info("classifying done")
	perf, tp, fp, fn, tn := ConfusionPerf(test.Y, mat.Col(nil, 0, yh))
	c.logger().Debugf("svc confusion tp=%d fp=%d fn=%d tn=%d", tp, fp, fn, tn)
	return perf, nil
}

func (c *SVCClassifier) logger() *zap.SugaredLogger {
	if c.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.Logger
}

// learnerMatrix copies d.X into a gonum.org matrix with infinite values set
// to 0 and NaN set to 0.
func learnerMatrix(d *Dataset, side string, logger *zap.SugaredLogger) (*mat.Dense, error) {
	nRow, nCol := d.Dims()
	if nRow == 0 || nCol == 0 {
		return nil, &ShapeMismatchError{File: side, What: "rows", Want: 1, Got: nRow}
	}
	clean := cleanFeatures(d.X, side, logger)
	x := mat.NewDense(nRow, nCol, nil)
	for i := 0; i < nRow; i++ {
		x.SetRow(i, clean.RawRowView(i))
	}
	return x, nil
}

func cleanFeatures(x *mat64.Dense, side string, logger *zap.SugaredLogger) *mat64.Dense {
	clean, nInf := InfFilter(x)
	nNaN := NanFilter(clean)
	if logger != nil && nInf+nNaN > 0 {
		logger.Infof("%s: %d infinite and %d NaN values set to 0", side, nInf, nNaN)
	}
	return clean
}
