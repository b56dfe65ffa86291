package src

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gonum/matrix/mat64"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sbinet/npyio"
)

const (
	DataSuffix   = "_data.npy"
	TargetSuffix = "_target.npy"
)

// Record is the feature matrix and label vector of one recorded file.
type Record struct {
	X *mat64.Dense
	Y []float64
}

type Store interface {
	Load(name string) (*Record, error)
}

// NpyStore reads <Dir>/<name>_data.npy and <Dir>/<name>_target.npy.
type NpyStore struct {
	Dir string
}

func (s NpyStore) Load(name string) (*Record, error) {
	dataFile := filepath.Join(s.Dir, name+DataSuffix)
	targetFile := filepath.Join(s.Dir, name+TargetSuffix)
	data, shape, err := ReadNpy(dataFile)
	if err != nil {
		return nil, missing(name, dataFile, err)
	}
	target, _, err := ReadNpy(targetFile)
	if err != nil {
		return nil, missing(name, targetFile, err)
	}
	nRow, nCol := 0, 0
	switch len(shape) {
	case 1:
		nRow, nCol = shape[0], 1
	case 2:
		nRow, nCol = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("%s: want 1 or 2 dimensions, got shape %v", dataFile, shape)
	}
	if nRow == 0 || nCol == 0 {
		return &Record{X: mat64.NewDense(0, nCol, nil), Y: target}, nil
	}
	return &Record{X: mat64.NewDense(nRow, nCol, data), Y: target}, nil
}

func missing(name string, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return &MissingFileError{File: name, Path: path, Err: err}
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// ReadNpy returns the values of a .npy array as float64 in row-major order,
// together with its shape.
func ReadNpy(inFile string) (data []float64, shape []int, err error) {
	file, err := os.Open(inFile)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r, err := npyio.NewReader(bufio.NewReaderSize(file, 1<<20))
	if err != nil {
		return nil, nil, err
	}
	shape = r.Header.Descr.Shape
	n := 1
	for _, d := range shape {
		n *= d
	}
	data = make([]float64, n)
	switch r.Header.Descr.Type {
	case "<f8", "f8":
		err = r.Read(&data)
	case "<f4", "f4":
		raw := make([]float32, n)
		err = r.Read(&raw)
		for i, v := range raw {
			data[i] = float64(v)
		}
	case "<i8", "i8":
		raw := make([]int64, n)
		err = r.Read(&raw)
		for i, v := range raw {
			data[i] = float64(v)
		}
	case "<i4", "i4":
		raw := make([]int32, n)
		err = r.Read(&raw)
		for i, v := range raw {
			data[i] = float64(v)
		}
	case "|u1", "u1":
		raw := make([]uint8, n)
		err = r.Read(&raw)
		for i, v := range raw {
			data[i] = float64(v)
		}
	case "|b1", "b1":
		raw := make([]bool, n)
		err = r.Read(&raw)
		for i, v := range raw {
			if v {
				data[i] = 1
			}
		}
	default:
		return nil, nil, fmt.Errorf("unsupported npy dtype %q", r.Header.Descr.Type)
	}
	if err != nil {
		return nil, nil, err
	}
	//column major arrays are turned back into row major
	if r.Header.Descr.Fortran && len(shape) == 2 {
		nRow, nCol := shape[0], shape[1]
		rowMajor := make([]float64, n)
		for i := 0; i < nRow; i++ {
			for j := 0; j < nCol; j++ {
				rowMajor[i*nCol+j] = data[j*nRow+i]
			}
		}
		data = rowMajor
	}
	return data, shape, nil
}

// CachedStore keeps the most recently loaded records, so files shared by
// several splits are decoded once.
type CachedStore struct {
	Store Store
	cache *lru.Cache[string, *Record]
}

func NewCachedStore(s Store, size int) (*CachedStore, error) {
	c, err := lru.New[string, *Record](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{Store: s, cache: c}, nil
}

// Load returns the cached record. Callers must not modify it, Assemble copies.
func (s *CachedStore) Load(name string) (*Record, error) {
	if rec, ok := s.cache.Get(name); ok {
		return rec, nil
	}
	rec, err := s.Store.Load(name)
	if err != nil {
		return nil, err
	}
	s.cache.Add(name, rec)
	return rec, nil
}

// WriteAtomic writes through fn into a temp file next to outFile and renames
// it into place only when fn, the flush and the close all succeeded.
func WriteAtomic(outFile string, fn func(w *bufio.Writer) error) (err error) {
	dir := filepath.Dir(outFile)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outFile)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	wr := bufio.NewWriterSize(tmp, 192000)
	if err = fn(wr); err != nil {
		return err
	}
	if err = wr.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), outFile)
}

// openLog creates or truncates a log file for a child process.
func openLog(logFile string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
}
