package src

import (
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

// ConfusionPerf scores bipolar or 0/1 predictions against true labels, the
// positive class being any label > 0. Undefined ratios are 0, never NaN.
func ConfusionPerf(y []float64, yh []float64) (perf PerfRecord, tp int, fp int, fn int, tn int) {
	for i := range y {
		if y[i] > 0 && yh[i] > 0 {
			tp += 1
		} else if y[i] <= 0 && yh[i] > 0 {
			fp += 1
		} else if y[i] > 0 && yh[i] <= 0 {
			fn += 1
		} else {
			tn += 1
		}
	}
	n := tp + fp + fn + tn
	if n > 0 {
		perf.Accuracy = float64(tp+tn) / float64(n)
	}
	if tp+fp > 0 {
		perf.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		perf.Recall = float64(tp) / float64(tp+fn)
	}
	if perf.Precision+perf.Recall > 0 {
		perf.F1 = 2 * perf.Precision * perf.Recall / (perf.Precision + perf.Recall)
	}
	return perf, tp, fp, fn, tn
}

// InfFilter returns a copy of data with +-Inf set to 0 and the number of
// replaced cells. NaN stays.
func InfFilter(data *mat64.Dense) (clean *mat64.Dense, nInf int) {
	nRow, nCol := data.Dims()
	if nRow == 0 || nCol == 0 {
		return mat64.NewDense(nRow, nCol, nil), 0
	}
	clean = mat64.DenseCopyOf(data)
	for r := 0; r < nRow; r++ {
		for c := 0; c < nCol; c++ {
			if math.IsInf(clean.At(r, c), 0) {
				clean.Set(r, c, 0.0)
				nInf++
			}
		}
	}
	return clean, nInf
}

// NanFilter sets NaN cells to 0 in place. The in-process learners cannot
// split or fit on NaN.
func NanFilter(data *mat64.Dense) (nNaN int) {
	nRow, _ := data.Dims()
	for r := 0; r < nRow; r++ {
		row := data.RawRowView(r)
		if !floats.HasNaN(row) {
			continue
		}
		for c, v := range row {
			if math.IsNaN(v) {
				row[c] = 0
				nNaN++
			}
		}
	}
	return nNaN
}

// CountPos is the number of positive labels.
func CountPos(y []float64) int {
	return floats.Count(func(v float64) bool { return v > 0 }, y)
}
