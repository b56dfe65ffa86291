package src

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
	"go.uber.org/zap"
)

const (
	TrainFile = "svmlight_train.dat"
	TestFile  = "svmlight_test.dat"
)

// ExportOptions selects the index base and whether zero valued features are
// written. svm_learn wants one-based indices.
type ExportOptions struct {
	ZeroBased bool
	OmitZeros bool
}

type ExportStats struct {
	Rows        int
	Cols        int
	InfReplaced int
	NaNKept     int
}

// BipolarLabel maps the 0 class to -1 and leaves every other label alone.
func BipolarLabel(y float64) float64 {
	if y == 0 {
		return -1
	}
	return y
}

// ExportSVMLight writes d as "<label> <idx>:<value> ..." lines. Infinite
// features are written as 0, NaN values are written unchanged.
func ExportSVMLight(d *Dataset, outFile string, opt ExportOptions) (stats ExportStats, err error) {
	nRow, nCol := d.Dims()
	if nRow != len(d.Y) {
		return stats, &ShapeMismatchError{File: outFile, What: "label rows", Want: nRow, Got: len(d.Y)}
	}
	stats.Rows, stats.Cols = nRow, nCol
	base := 1
	if opt.ZeroBased {
		base = 0
	}
	err = WriteAtomic(outFile, func(wr *bufio.Writer) error {
		for i := 0; i < nRow; i++ {
			row := d.X.RawRowView(i)
			if floats.HasNaN(row) {
				for _, v := range row {
					if math.IsNaN(v) {
						stats.NaNKept++
					}
				}
			}
			wr.WriteString(formatValue(BipolarLabel(d.Y[i])))
			for j, v := range row {
				if math.IsInf(v, 0) {
					v = 0
					stats.InfReplaced++
				}
				if opt.OmitZeros && v == 0 {
					continue
				}
				wr.WriteString(" ")
				wr.WriteString(strconv.Itoa(j + base))
				wr.WriteString(":")
				wr.WriteString(formatValue(v))
			}
			if _, err := wr.WriteString("\n"); err != nil {
				return err
			}
		}
		return nil
	})
	return stats, err
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ExportSplit writes the train and test sets into dir and returns their paths.
func ExportSplit(train *Dataset, test *Dataset, dir string, opt ExportOptions, logger *zap.SugaredLogger) (trainFile string, testFile string, err error) {
	trainFile = filepath.Join(dir, TrainFile)
	testFile = filepath.Join(dir, TestFile)
	for _, e := range []struct {
		d    *Dataset
		file string
	}{{train, trainFile}, {test, testFile}} {
		stats, err := ExportSVMLight(e.d, e.file, opt)
		if err != nil {
			return "", "", err
		}
		if stats.InfReplaced > 0 {
			logger.Infof("%s: replaced %d infinite feature values with 0", e.file, stats.InfReplaced)
		}
		if stats.NaNKept > 0 {
			logger.Warnf("%s: %d NaN feature values written as NaN", e.file, stats.NaNKept)
		}
	}
	logger.Info("Saved files to " + dir)
	return trainFile, testFile, nil
}

// ReadSVMLight parses a file written by ExportSVMLight. Missing indices are 0
// and the width is the largest index seen.
func ReadSVMLight(inFile string, zeroBased bool) (*Dataset, error) {
	file, err := os.Open(inFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	base := 1
	if zeroBased {
		base = 0
	}
	type pair struct {
		j int
		v float64
	}
	rows := make([][]pair, 0)
	y := make([]float64, 0)
	nCol := 0
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<28)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		elements := strings.Fields(text)
		if len(elements) == 0 {
			continue
		}
		label, err := strconv.ParseFloat(elements[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad label %q", inFile, line, elements[0])
		}
		row := make([]pair, 0, len(elements)-1)
		for _, ele := range elements[1:] {
			kv := strings.SplitN(ele, ":", 2)
			if len(kv) != 2 {
				return nil, fmt.Errorf("%s:%d: bad feature %q", inFile, line, ele)
			}
			idx, err := strconv.Atoi(kv[0])
			if err != nil || idx < base {
				return nil, fmt.Errorf("%s:%d: bad index %q", inFile, line, kv[0])
			}
			v, err := strconv.ParseFloat(kv[1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad value %q", inFile, line, kv[1])
			}
			row = append(row, pair{idx - base, v})
			if idx-base+1 > nCol {
				nCol = idx - base + 1
			}
		}
		rows = append(rows, row)
		y = append(y, label)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &Dataset{X: mat64.NewDense(0, nCol, nil), Y: y}, nil
	}
	x := mat64.NewDense(len(rows), nCol, nil)
	for i, row := range rows {
		for _, p := range row {
			x.Set(i, p.j, p.v)
		}
	}
	return &Dataset{X: x, Y: y}, nil
}
