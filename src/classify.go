package src

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Paths are the files one learn/classify round reads and writes.
type Paths struct {
	Train       string
	Test        string
	Model       string
	Predictions string
	TrainLog    string
	TestLog     string
}

// Stage is one external program run. A stage with After set only starts
// once that stage finished successfully.
type Stage struct {
	Name  string
	Bin   string
	Args  []string
	Log   string
	After *Stage
	fail  func(code int, log string, err error) error
	done  bool
}

// SVMLight drives the svm_learn / svm_classify executables.
type SVMLight struct {
	LearnBin     string
	ClassifyBin  string
	LearnArgs    []string
	ClassifyArgs []string
	// Timeout bounds each stage, 0 waits forever.
	Timeout time.Duration
	Logger  *zap.SugaredLogger
}

// Stages returns the learn and classify stages for p, classify depending on learn.
func (s *SVMLight) Stages(p Paths) []*Stage {
	learn := &Stage{
		Name: "learn",
		Bin:  s.LearnBin,
		Args: append(append([]string{}, s.LearnArgs...), p.Train, p.Model),
		Log:  p.TrainLog,
		fail: func(code int, log string, err error) error {
			return &TrainingProcessError{ExitCode: code, LogPath: log, Err: err}
		},
	}
	classifyArgs := append(append([]string{}, s.ClassifyArgs...), p.Test, p.Model)
	if p.Predictions != "" {
		classifyArgs = append(classifyArgs, p.Predictions)
	}
	classify := &Stage{
		Name:  "classify",
		Bin:   s.ClassifyBin,
		Args:  classifyArgs,
		Log:   p.TestLog,
		After: learn,
		fail: func(code int, log string, err error) error {
			return &ClassificationProcessError{ExitCode: code, LogPath: log, Err: err}
		},
	}
	return []*Stage{learn, classify}
}

// TrainAndClassify runs learn then classify, each blocking until its process
// exits. Nothing is returned in memory, the report is in p.TestLog.
func (s *SVMLight) TrainAndClassify(ctx context.Context, p Paths) error {
	for _, st := range s.Stages(p) {
		if st.After != nil && !st.After.done {
			return fmt.Errorf("stage %s started before %s finished", st.Name, st.After.Name)
		}
		if err := s.run(ctx, st); err != nil {
			return err
		}
		st.done = true
		s.logger().Infof("%sing done", st.Name)
	}
	return nil
}

func (s *SVMLight) run(ctx context.Context, st *Stage) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	logFile, err := openLog(st.Log)
	if err != nil {
		return st.fail(-1, st.Log, err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, st.Bin, st.Args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	s.logger().Debugf("%s: %s %v > %s", st.Name, st.Bin, st.Args, st.Log)
	err = cmd.Run()
	if err == nil {
		return nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		err = fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return st.fail(code, st.Log, err)
}

func (s *SVMLight) logger() *zap.SugaredLogger {
	if s.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.Logger
}
