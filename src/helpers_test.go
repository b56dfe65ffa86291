package src

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gonum/matrix/mat64"
	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// writeNpyRecord writes <dir>/<name>_data.npy and <dir>/<name>_target.npy.
func writeNpyRecord(t *testing.T, dir string, name string, rows [][]float64, y []float64) {
	t.Helper()
	nCol := len(rows[0])
	data := make([]float64, 0, len(rows)*nCol)
	for _, r := range rows {
		data = append(data, r...)
	}
	f, err := os.Create(filepath.Join(dir, name+DataSuffix))
	require.NoError(t, err)
	require.NoError(t, npyio.Write(f, mat.NewDense(len(rows), nCol, data)))
	require.NoError(t, f.Close())

	f, err = os.Create(filepath.Join(dir, name+TargetSuffix))
	require.NoError(t, err)
	require.NoError(t, npyio.Write(f, y))
	require.NoError(t, f.Close())
}

// memStore serves records from memory and counts loads.
type memStore struct {
	recs  map[string]*Record
	loads map[string]int
	mutex sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]*Record), loads: make(map[string]int)}
}

func (s *memStore) add(name string, rows [][]float64, y []float64) {
	x := mat64.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		x.SetRow(i, r)
	}
	s.recs[name] = &Record{X: x, Y: y}
}

func (s *memStore) Load(name string) (*Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.loads[name]++
	rec, ok := s.recs[name]
	if !ok {
		return nil, &MissingFileError{File: name, Path: name, Err: os.ErrNotExist}
	}
	return rec, nil
}

func dataset(rows [][]float64, y []float64) *Dataset {
	x := mat64.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		x.SetRow(i, r)
	}
	return &Dataset{X: x, Y: y}
}
