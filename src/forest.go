package src

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/ensemble"
	"go.uber.org/zap"
)

// ForestClassifier is a bagged random forest. Features is the number of
// features tried per tree, 0 picks sqrt of the width. A tree needs at least
// two features to split, so fewer are raised to two.
type ForestClassifier struct {
	Trees    int
	Features int
	Logger   *zap.SugaredLogger
}

func (c *ForestClassifier) Name() string { return "forest" }

func (c *ForestClassifier) Evaluate(ctx context.Context, train *Dataset, test *Dataset, workDir string) (PerfRecord, error) {
	if err := ctx.Err(); err != nil {
		return PerfRecord{}, err
	}
	nTr, nFea := train.Dims()
	nTs, _ := test.Dims()
	if nTr == 0 || nFea == 0 {
		return PerfRecord{}, &ShapeMismatchError{File: "train", What: "rows", Want: 1, Got: nTr}
	}
	if nTs == 0 {
		return PerfRecord{}, &ShapeMismatchError{File: "test", What: "rows", Want: 1, Got: nTs}
	}
	if nFea < 2 {
		return PerfRecord{}, &ShapeMismatchError{File: "train", What: "feature columns (forest needs 2)", Want: 2, Got: nFea}
	}
	trees := c.Trees
	if trees <= 0 {
		trees = 10
	}
	features := c.Features
	if features <= 0 {
		features = int(math.Sqrt(float64(nFea)))
	}
	if features < 2 {
		c.logger().Infof("%d features per tree raised to 2", features)
		features = 2
	}
	if features > nFea {
		features = nFea
	}

	attrs, classAttr := forestAttributes(nFea)
	trInst, err := toInstances(train, cleanFeatures(train.X, "train", c.Logger), attrs, classAttr)
	if err != nil {
		return PerfRecord{}, err
	}
	tsInst, err := toInstances(test, cleanFeatures(test.X, "test", c.Logger), attrs, classAttr)
	if err != nil {
		return PerfRecord{}, err
	}

	rf := ensemble.NewRandomForest(trees, features)
	start := time.Now()
	if err := rf.Fit(trInst); err != nil {
		return PerfRecord{}, fmt.Errorf("random forest fit: %w", err)
	}
	c.logger().Infof("learning done, %d trees x %d features in %v", trees, features, time.Since(start))
	pred, err := rf.Predict(tsInst)
	if err != nil {
		return PerfRecord{}, fmt.Errorf("random forest predict: %w", err)
	}
	c.logger().Info("classifying done")

	yh := make([]float64, nTs)
	for i := range yh {
		v, err := strconv.ParseFloat(base.GetClass(pred, i), 64)
		if err != nil {
			return PerfRecord{}, fmt.Errorf("random forest class %q: %w", base.GetClass(pred, i), err)
		}
		yh[i] = v
	}
	perf, _, _, _, _ := ConfusionPerf(test.Y, yh)
	return perf, nil
}

func (c *ForestClassifier) logger() *zap.SugaredLogger {
	if c.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.Logger
}

// forestAttributes builds the feature columns and the class column shared by
// the train and test grids. Both class values are registered up front so
// their encoding does not depend on which label is seen first.
func forestAttributes(nFea int) ([]base.Attribute, *base.CategoricalAttribute) {
	attrs := make([]base.Attribute, nFea)
	for j := range attrs {
		attrs[j] = base.NewFloatAttribute(fmt.Sprintf("f%d", j+1))
	}
	classAttr := base.NewCategoricalAttribute()
	classAttr.SetName("label")
	classAttr.GetSysValFromString("-1")
	classAttr.GetSysValFromString("1")
	return attrs, classAttr
}

func toInstances(d *Dataset, x interface{ RawRowView(int) []float64 }, attrs []base.Attribute, classAttr *base.CategoricalAttribute) (*base.DenseInstances, error) {
	nRow, _ := d.Dims()
	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, len(attrs))
	for j, a := range attrs {
		specs[j] = inst.AddAttribute(a)
	}
	classSpec := inst.AddAttribute(classAttr)
	if err := inst.AddClassAttribute(classAttr); err != nil {
		return nil, err
	}
	if err := inst.Extend(nRow); err != nil {
		return nil, err
	}
	for i := 0; i < nRow; i++ {
		for j, v := range x.RawRowView(i) {
			inst.Set(specs[j], i, base.PackFloatToBytes(v))
		}
		inst.Set(classSpec, i, classAttr.GetSysValFromString(strconv.FormatFloat(BipolarLabel(d.Y[i]), 'g', -1, 64)))
	}
	return inst, nil
}
