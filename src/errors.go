package src

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoFiles           = errors.New("no files to assemble")
	ErrDegenerateMetrics = errors.New("precision and recall are both zero")
)

// EmptySplitError is returned when a patient split has no train or no test files.
type EmptySplitError struct {
	Patient string
	Side    string
}

func (e *EmptySplitError) Error() string {
	if e.Patient == "" {
		return fmt.Sprintf("empty %s split", e.Side)
	}
	return fmt.Sprintf("empty %s split for patient %s", e.Side, e.Patient)
}

type MissingFileError struct {
	File string
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("missing data for %s (%s): %v", e.File, e.Path, e.Err)
}

func (e *MissingFileError) Unwrap() error { return e.Err }

// ShapeMismatchError reports a file whose feature width (or label count)
// does not match what the assembled matrix expects.
type ShapeMismatchError struct {
	File string
	What string
	Want int
	Got  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch in %s: %s want %d, got %d", e.File, e.What, e.Want, e.Got)
}

type TrainingProcessError struct {
	ExitCode int
	LogPath  string
	Err      error
}

func (e *TrainingProcessError) Error() string {
	return fmt.Sprintf("learn exited with code %d (log %s): %v", e.ExitCode, e.LogPath, e.Err)
}

func (e *TrainingProcessError) Unwrap() error { return e.Err }

type ClassificationProcessError struct {
	ExitCode int
	LogPath  string
	Err      error
}

func (e *ClassificationProcessError) Error() string {
	return fmt.Sprintf("classify exited with code %d (log %s): %v", e.ExitCode, e.LogPath, e.Err)
}

func (e *ClassificationProcessError) Unwrap() error { return e.Err }

// ReportFormatError means the classify log no longer looks like an svm_classify report.
type ReportFormatError struct {
	Line   string
	Reason string
}

func (e *ReportFormatError) Error() string {
	return fmt.Sprintf("bad report: %s (line %q)", e.Reason, e.Line)
}

type DegenerateMetricsError struct {
	Accuracy float64
}

func (e *DegenerateMetricsError) Error() string {
	return fmt.Sprintf("%v (accuracy %.4f), F1 undefined", ErrDegenerateMetrics, e.Accuracy)
}

func (e *DegenerateMetricsError) Is(target error) bool { return target == ErrDegenerateMetrics }

// PatientError ties a failure to the patient whose evaluation it aborted.
type PatientError struct {
	Patient string
	Err     error
}

func (e *PatientError) Error() string {
	return fmt.Sprintf("patient %s: %v", e.Patient, e.Err)
}

func (e *PatientError) Unwrap() error { return e.Err }

// RunErrors collects the per patient failures of one run.
type RunErrors []*PatientError

func (e RunErrors) Error() string {
	msg := make([]string, 0, len(e))
	for _, pe := range e {
		msg = append(msg, pe.Error())
	}
	return fmt.Sprintf("%d patient(s) failed: %s", len(e), strings.Join(msg, "; "))
}
