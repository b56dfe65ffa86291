package src

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeClassifier scores every patient with its test row count and sleeps
// longer for earlier patients so completion order is reversed.
type fakeClassifier struct {
	mutex   sync.Mutex
	fail    string
	delay   map[string]time.Duration
	wait    map[string]chan struct{}
	workDir []string
}

func (c *fakeClassifier) Name() string { return "fake" }

func (c *fakeClassifier) Evaluate(ctx context.Context, train *Dataset, test *Dataset, workDir string) (PerfRecord, error) {
	patient := filepath.Base(workDir)
	c.mutex.Lock()
	c.workDir = append(c.workDir, workDir)
	delay := c.delay[patient]
	wait := c.wait[patient]
	c.mutex.Unlock()
	time.Sleep(delay)
	if wait != nil {
		select {
		case <-wait:
		case <-time.After(5 * time.Second):
			return PerfRecord{}, errors.New("not released")
		}
	}
	if patient == c.fail {
		return PerfRecord{}, errors.New("boom")
	}
	nTs, _ := test.Dims()
	return PerfRecord{Accuracy: 1, Precision: 1, Recall: 1, F1: 1 / float64(nTs)}, nil
}

type memSink struct {
	results []Result
	onWrite func(Result)
}

func (s *memSink) Write(res Result) error {
	s.results = append(s.results, res)
	if s.onWrite != nil {
		s.onWrite(res)
	}
	return nil
}

func (s *memSink) Close() error { return nil }

func runnerManifest(t *testing.T, patients ...string) (*Manifest, *memStore) {
	rows := make([]ManifestRow, 0)
	store := newMemStore()
	for i, p := range patients {
		for j := 0; j <= i+1; j++ {
			name := p + "_0" + string(rune('1'+j)) + ".edf"
			rows = append(rows, ManifestRow{FileName: name, Include: true, Test: j > 0})
			store.add(name, [][]float64{{float64(i), float64(j)}}, []float64{float64(j % 2)})
		}
	}
	m, err := NewManifest(rows)
	require.NoError(t, err)
	return m, store
}

func TestRunnerOrder(t *testing.T) {
	m, store := runnerManifest(t, "chb01", "chb02", "chb03")
	clf := &fakeClassifier{delay: map[string]time.Duration{"chb01": 150 * time.Millisecond, "chb02": 50 * time.Millisecond}}
	sink := &memSink{}
	workDir := t.TempDir()
	r := &Runner{
		RunID:      "run",
		Manifest:   m,
		Store:      store,
		Classifier: clf,
		WorkDir:    workDir,
		Protocol:   Within,
		Jobs:       3,
		Sink:       sink,
		Logger:     zaptest.NewLogger(t).Sugar(),
	}
	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, p := range []string{"chb01", "chb02", "chb03"} {
		assert.Equal(t, p, results[i].Patient)
		assert.Equal(t, p, sink.results[i].Patient)
		assert.Equal(t, "fake", results[i].Model)
		assert.Equal(t, "run", results[i].RunID)
		assert.Equal(t, 1, results[i].NTrain)
		assert.Equal(t, i+1, results[i].NTest)
		assert.InDelta(t, 1/float64(i+1), results[i].Perf.F1, 1e-12)
	}
	assert.ElementsMatch(t, []string{
		filepath.Join(workDir, "chb01"), filepath.Join(workDir, "chb02"), filepath.Join(workDir, "chb03"),
	}, clf.workDir)
}

func TestRunnerWritesBeforeRunEnds(t *testing.T) {
	m, store := runnerManifest(t, "chb01", "chb02", "chb03")
	release := make(chan struct{})
	clf := &fakeClassifier{wait: map[string]chan struct{}{"chb03": release}}
	sink := &memSink{onWrite: func(res Result) {
		if res.Patient == "chb02" {
			close(release)
		}
	}}
	r := &Runner{
		Manifest:   m,
		Store:      store,
		Classifier: clf,
		WorkDir:    t.TempDir(),
		Protocol:   Within,
		Jobs:       3,
		Sink:       sink,
	}
	// chb03 only finishes once chb02 has reached the sink.
	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Len(t, sink.results, 3)
	for i, p := range []string{"chb01", "chb02", "chb03"} {
		assert.Equal(t, p, sink.results[i].Patient)
	}
}

type failSink struct {
	writes int
}

func (s *failSink) Write(res Result) error {
	s.writes++
	return errors.New("disk full")
}

func (s *failSink) Close() error { return nil }

func TestRunnerSinkError(t *testing.T) {
	m, store := runnerManifest(t, "chb01", "chb02")
	sink := &failSink{}
	r := &Runner{
		Manifest:   m,
		Store:      store,
		Classifier: &fakeClassifier{},
		WorkDir:    t.TempDir(),
		Protocol:   Within,
		Sink:       sink,
	}
	results, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chb01")
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, results, 2)
	assert.Equal(t, 1, sink.writes)
}

func TestRunnerCollectsErrors(t *testing.T) {
	m, store := runnerManifest(t, "chb01", "chb02", "chb03")
	sink := &memSink{}
	r := &Runner{
		Manifest:   m,
		Store:      store,
		Classifier: &fakeClassifier{fail: "chb02"},
		WorkDir:    t.TempDir(),
		Patients:   []string{"chb01", "chb02", "chb03", "chb09"},
		Jobs:       1,
		Sink:       sink,
	}
	results, err := r.Run(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "chb01", results[0].Patient)
	assert.Equal(t, "chb03", results[1].Patient)
	assert.Len(t, sink.results, 2)

	var runErr RunErrors
	require.True(t, errors.As(err, &runErr))
	require.Len(t, runErr, 2)
	assert.Equal(t, "chb02", runErr[0].Patient)
	assert.Equal(t, "chb09", runErr[1].Patient)
	var empty *EmptySplitError
	assert.True(t, errors.As(runErr[1], &empty))
	assert.True(t, strings.Contains(err.Error(), "boom"))
}

func TestEvaluatePatientLOPO(t *testing.T) {
	m, store := runnerManifest(t, "chb01", "chb02")
	res, err := EvaluatePatient(context.Background(), Job{
		Patient:    "chb01",
		Protocol:   LOPO,
		Cohort:     []string{"chb01", "chb02"},
		Manifest:   m,
		Store:      store,
		Classifier: &fakeClassifier{},
		WorkDir:    filepath.Join(t.TempDir(), "chb01"),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.NTrain)
	assert.Equal(t, 2, res.NTest)
}

func TestEndToEndSVMLight(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed")
	require.NoError(t, os.MkdirAll(processed, 0755))
	rows := [][]float64{{0.1, 2}, {0.2, 1}, {0.9, -1}, {1.5, 3}}
	for _, name := range []string{"chb01_01.edf", "chb01_02.edf", "chb01_03.edf"} {
		writeNpyRecord(t, processed, name, rows, []float64{0, 0, 1, 1})
	}
	m, err := NewManifest([]ManifestRow{
		{FileName: "chb01_01.edf", Include: true},
		{FileName: "chb01_02.edf", Include: true},
		{FileName: "chb01_03.edf", Include: true, Test: true},
	})
	require.NoError(t, err)

	logger := zaptest.NewLogger(t).Sugar()
	clf, err := NewClassifier("svmlight", BackendConfig{
		LearnBin:    writeScript(t, dir, "svm_learn", fakeLearn),
		ClassifyBin: writeScript(t, dir, "svm_classify", fakeClassify),
	}, logger)
	require.NoError(t, err)

	resultsFile := filepath.Join(dir, "perf_svmlight.csv")
	sink, err := NewCSVSink(resultsFile)
	require.NoError(t, err)
	r := &Runner{
		RunID:      NewRunID(),
		Manifest:   m,
		Store:      NpyStore{Dir: processed},
		Classifier: clf,
		WorkDir:    filepath.Join(dir, "work"),
		Protocol:   Within,
		Sink:       sink,
		Logger:     logger,
	}
	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, "chb01", res.Patient)
	assert.Equal(t, 8, res.NTrain)
	assert.Equal(t, 4, res.NTest)
	for _, v := range []float64{res.Perf.Accuracy, res.Perf.Precision, res.Perf.Recall, res.Perf.F1} {
		assert.True(t, v >= 0 && v <= 1, v)
	}

	back, err := ReadSVMLight(filepath.Join(dir, "work", "chb01", TrainFile), false)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1, 1, 1, -1, -1, 1, 1}, back.Y)

	stored, err := ReadResultsCSV(resultsFile)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, res.RunID, stored[0].RunID)
}
