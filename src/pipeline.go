package src

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is the evaluation of one patient.
type Job struct {
	RunID      string
	Patient    string
	Protocol   string
	Cohort     []string
	Manifest   *Manifest
	Store      Store
	Classifier Classifier
	WorkDir    string
	Logger     *zap.SugaredLogger
}

// Result is one row of the performance table.
type Result struct {
	RunID   string
	Model   string
	Patient string
	Perf    PerfRecord
	NTrain  int
	NTest   int
	Time    time.Time
}

// EvaluatePatient selects the split, assembles it and scores the classifier.
// Errors carry the patient id.
func EvaluatePatient(ctx context.Context, job Job) (Result, error) {
	res := Result{RunID: job.RunID, Model: job.Classifier.Name(), Patient: job.Patient}
	logger := job.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if job.Patient != "" {
		logger = logger.With("patient", job.Patient)
	}
	fail := func(err error) (Result, error) {
		return res, &PatientError{Patient: job.Patient, Err: err}
	}

	var s Split
	var err error
	if job.Protocol == LOPO {
		s, err = SelectLOPO(job.Manifest, job.Patient, job.Cohort)
	} else {
		s, err = SelectSplit(job.Manifest, job.Patient)
	}
	if err != nil {
		return fail(err)
	}
	train, test, err := AssembleSplit(s, job.Store, logger)
	if err != nil {
		return fail(err)
	}
	res.NTrain, _ = train.Dims()
	res.NTest, _ = test.Dims()

	if err := os.MkdirAll(job.WorkDir, 0755); err != nil {
		return fail(err)
	}
	perf, err := job.Classifier.Evaluate(ctx, train, test, job.WorkDir)
	if err != nil {
		return fail(err)
	}
	res.Perf = perf
	res.Time = time.Now()
	logger.Infof("accuracy %.4f precision %.4f recall %.4f f1 %.4f", perf.Accuracy, perf.Precision, perf.Recall, perf.F1)
	return res, nil
}

// Runner evaluates every patient in turn. With Jobs > 1 up to Jobs patients
// run at once, each in WorkDir/<patient>.
type Runner struct {
	RunID      string
	Manifest   *Manifest
	Store      Store
	Classifier Classifier
	WorkDir    string
	Protocol   string
	Patients   []string
	Jobs       int
	Sink       Sink
	Logger     *zap.SugaredLogger
}

// Run returns the successful results in patient order. A failed patient does
// not stop the others, its error is part of the returned RunErrors. Each
// result goes to Sink as soon as every earlier patient has finished.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	patients := r.Patients
	if len(patients) == 0 {
		patients = r.Manifest.Patients()
	}
	if len(patients) == 0 {
		return nil, ErrNoFiles
	}
	jobs := r.Jobs
	if jobs < 1 {
		jobs = 1
	}

	st := &runState{
		patients: patients,
		results:  make([]*Result, len(patients)),
		errs:     make([]*PatientError, len(patients)),
		done:     make([]bool, len(patients)),
		sink:     r.Sink,
		logger:   logger,
	}
	wg := &sync.WaitGroup{}
	sem := make(chan struct{}, jobs)
	for i, patient := range patients {
		job := Job{
			RunID:      r.RunID,
			Patient:    patient,
			Protocol:   r.Protocol,
			Cohort:     patients,
			Manifest:   r.Manifest,
			Store:      r.Store,
			Classifier: r.Classifier,
			WorkDir:    filepath.Join(r.WorkDir, patient),
			Logger:     logger,
		}
		if jobs == 1 {
			singleEvaluate(ctx, i, job, st, nil)
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, job Job) {
			defer func() { <-sem }()
			singleEvaluate(ctx, i, job, st, wg)
		}(i, job)
	}
	wg.Wait()

	out := make([]Result, 0, len(patients))
	runErr := make(RunErrors, 0)
	for i := range patients {
		if st.errs[i] != nil {
			runErr = append(runErr, st.errs[i])
			continue
		}
		out = append(out, *st.results[i])
	}
	if st.sinkErr != nil {
		return out, st.sinkErr
	}
	if len(runErr) > 0 {
		return out, runErr
	}
	return out, nil
}

// runState holds the per patient outcomes of one Run.
type runState struct {
	mutex    sync.Mutex
	patients []string
	results  []*Result
	errs     []*PatientError
	done     []bool
	next     int
	sink     Sink
	sinkErr  error
	logger   *zap.SugaredLogger
}

// flush writes the finished prefix of patients to the sink. Callers hold mutex.
func (st *runState) flush() {
	for st.next < len(st.done) && st.done[st.next] {
		i := st.next
		st.next++
		if st.errs[i] != nil {
			st.logger.Errorf("patient %s failed: %v", st.patients[i], st.errs[i].Err)
			continue
		}
		if st.sink == nil || st.sinkErr != nil {
			continue
		}
		if err := st.sink.Write(*st.results[i]); err != nil {
			st.sinkErr = fmt.Errorf("writing result of %s: %w", st.patients[i], err)
		}
	}
}

func singleEvaluate(ctx context.Context, i int, job Job, st *runState, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}
	res, err := EvaluatePatient(ctx, job)
	st.mutex.Lock()
	defer st.mutex.Unlock()
	if err != nil {
		pe, ok := err.(*PatientError)
		if !ok {
			pe = &PatientError{Patient: job.Patient, Err: err}
		}
		st.errs[i] = pe
	} else {
		st.results[i] = &res
	}
	st.done[i] = true
	st.flush()
}
