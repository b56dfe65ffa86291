package src

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const fakeLearn = `#!/bin/sh
echo "Scanning examples...done"
echo "model for $1" > "$2"
`

const fakeClassify = `#!/bin/sh
test -f "$2" || exit 3
echo "1" > "$3"
echo "Accuracy on test set: 92.50% (37 correct, 3 incorrect, 40 total)"
echo "Precision/recall on test set: 80.00%/90.00%"
`

// writeScript puts an executable shell script into dir.
func writeScript(t *testing.T, dir string, name string, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for svm_learn/svm_classify")
	}
	bin := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(bin, []byte(body), 0755))
	return bin
}

func testPaths(dir string) Paths {
	return Paths{
		Train:       filepath.Join(dir, TrainFile),
		Test:        filepath.Join(dir, TestFile),
		Model:       filepath.Join(dir, "model"),
		Predictions: filepath.Join(dir, "predictions"),
		TrainLog:    filepath.Join(dir, "train.log"),
		TestLog:     filepath.Join(dir, "test.log"),
	}
}

func TestTrainAndClassify(t *testing.T) {
	dir := t.TempDir()
	s := &SVMLight{
		LearnBin:    writeScript(t, dir, "svm_learn", fakeLearn),
		ClassifyBin: writeScript(t, dir, "svm_classify", fakeClassify),
		Logger:      zaptest.NewLogger(t).Sugar(),
	}
	p := testPaths(dir)
	require.NoError(t, s.TrainAndClassify(context.Background(), p))

	model, err := os.ReadFile(p.Model)
	require.NoError(t, err)
	assert.Equal(t, "model for "+p.Train+"\n", string(model))
	trainLog, err := os.ReadFile(p.TrainLog)
	require.NoError(t, err)
	assert.Contains(t, string(trainLog), "Scanning examples")

	perf, err := ParseReportFile(p.TestLog)
	require.NoError(t, err)
	assert.InDelta(t, 0.925, perf.Accuracy, 1e-12)
	assert.FileExists(t, p.Predictions)
}

func TestStagesArgs(t *testing.T) {
	s := &SVMLight{LearnBin: "learn", ClassifyBin: "classify", LearnArgs: []string{"-c", "1"}, ClassifyArgs: []string{"-v", "1"}}
	p := testPaths("w")
	stages := s.Stages(p)
	require.Len(t, stages, 2)
	assert.Equal(t, []string{"-c", "1", p.Train, p.Model}, stages[0].Args)
	assert.Equal(t, []string{"-v", "1", p.Test, p.Model, p.Predictions}, stages[1].Args)
	assert.Same(t, stages[0], stages[1].After)
	assert.Equal(t, []string{"-c", "1"}, s.LearnArgs)
}

func TestLearnFailureSkipsClassify(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "classified")
	s := &SVMLight{
		LearnBin:    writeScript(t, dir, "svm_learn", "#!/bin/sh\necho 'out of memory' >&2\nexit 2\n"),
		ClassifyBin: writeScript(t, dir, "svm_classify", "#!/bin/sh\ntouch "+marker+"\n"),
		Logger:      zaptest.NewLogger(t).Sugar(),
	}
	p := testPaths(dir)
	err := s.TrainAndClassify(context.Background(), p)
	var trainErr *TrainingProcessError
	require.True(t, errors.As(err, &trainErr))
	assert.Equal(t, 2, trainErr.ExitCode)
	assert.Equal(t, p.TrainLog, trainErr.LogPath)
	assert.NoFileExists(t, marker)

	trainLog, err := os.ReadFile(p.TrainLog)
	require.NoError(t, err)
	assert.Contains(t, string(trainLog), "out of memory")
}

func TestClassifyFailure(t *testing.T) {
	dir := t.TempDir()
	s := &SVMLight{
		LearnBin:    writeScript(t, dir, "svm_learn", fakeLearn),
		ClassifyBin: writeScript(t, dir, "svm_classify", "#!/bin/sh\nexit 4\n"),
	}
	err := s.TrainAndClassify(context.Background(), testPaths(dir))
	var classifyErr *ClassificationProcessError
	require.True(t, errors.As(err, &classifyErr))
	assert.Equal(t, 4, classifyErr.ExitCode)
}

func TestMissingExecutable(t *testing.T) {
	dir := t.TempDir()
	s := &SVMLight{LearnBin: filepath.Join(dir, "no_such_learn"), ClassifyBin: "svm_classify"}
	err := s.TrainAndClassify(context.Background(), testPaths(dir))
	var trainErr *TrainingProcessError
	require.True(t, errors.As(err, &trainErr))
	assert.Equal(t, -1, trainErr.ExitCode)
}

func TestStageTimeout(t *testing.T) {
	dir := t.TempDir()
	s := &SVMLight{
		LearnBin:    writeScript(t, dir, "svm_learn", "#!/bin/sh\nexec sleep 10\n"),
		ClassifyBin: writeScript(t, dir, "svm_classify", fakeClassify),
		Timeout:     200 * time.Millisecond,
	}
	start := time.Now()
	err := s.TrainAndClassify(context.Background(), testPaths(dir))
	assert.True(t, time.Since(start) < 5*time.Second)
	var trainErr *TrainingProcessError
	require.True(t, errors.As(err, &trainErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
