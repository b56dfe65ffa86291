package src

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var resultHeader = []string{"run_id", "model", "patient", "accuracy", "recall", "precision", "f1", "n_train", "n_test", "time"}

// Sink receives finished results.
type Sink interface {
	Write(res Result) error
	Close() error
}

// NewRunID names one invocation of the runner.
func NewRunID() string {
	return uuid.New().String()
}

// CSVSink appends results to a csv file, writing the header only when the
// file is new or empty.
type CSVSink struct {
	file  *os.File
	wr    *csv.Writer
	mutex sync.Mutex
}

func NewCSVSink(outFile string) (*CSVSink, error) {
	file, err := os.OpenFile(outFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	s := &CSVSink{file: file, wr: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := s.wr.Write(resultHeader); err != nil {
			file.Close()
			return nil, err
		}
		s.wr.Flush()
	}
	return s, s.wr.Error()
}

func (s *CSVSink) Write(res Result) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.wr.Write(resultRecord(res)); err != nil {
		return err
	}
	s.wr.Flush()
	return s.wr.Error()
}

func (s *CSVSink) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.wr.Flush()
	if err := s.wr.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

func resultRecord(res Result) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		res.RunID, res.Model, res.Patient,
		f(res.Perf.Accuracy), f(res.Perf.Recall), f(res.Perf.Precision), f(res.Perf.F1),
		strconv.Itoa(res.NTrain), strconv.Itoa(res.NTest),
		res.Time.UTC().Format(time.RFC3339),
	}
}

// ReadResultsCSV reads a file written by CSVSink. Repeated header lines, as
// left by concatenated files, are skipped.
func ReadResultsCSV(inFile string) ([]Result, error) {
	file, err := os.Open(inFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	rd := csv.NewReader(file)
	rd.FieldsPerRecord = len(resultHeader)
	results := make([]Result, 0)
	line := 0
	for {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if rec[0] == resultHeader[0] {
			continue
		}
		res, err := parseResultRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", inFile, line, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func parseResultRecord(rec []string) (res Result, err error) {
	res.RunID, res.Model, res.Patient = rec[0], rec[1], rec[2]
	vals := make([]float64, 4)
	for i := range vals {
		if vals[i], err = strconv.ParseFloat(rec[3+i], 64); err != nil {
			return res, err
		}
	}
	res.Perf = PerfRecord{Accuracy: vals[0], Recall: vals[1], Precision: vals[2], F1: vals[3]}
	if res.NTrain, err = strconv.Atoi(rec[7]); err != nil {
		return res, err
	}
	if res.NTest, err = strconv.Atoi(rec[8]); err != nil {
		return res, err
	}
	if rec[9] != "" {
		if res.Time, err = time.Parse(time.RFC3339, rec[9]); err != nil {
			return res, err
		}
	}
	return res, nil
}

const createResults = `CREATE TABLE IF NOT EXISTS results (
	run_id    TEXT NOT NULL,
	model     TEXT NOT NULL,
	patient   TEXT NOT NULL,
	accuracy  REAL,
	recall    REAL,
	precision REAL,
	f1        REAL,
	n_train   INTEGER,
	n_test    INTEGER,
	time      TEXT,
	PRIMARY KEY (run_id, model, patient)
)`

// SQLiteSink stores results in a sqlite database. Writing the same
// (run_id, model, patient) twice keeps the last row.
type SQLiteSink struct {
	db *sql.DB
}

func NewSQLiteSink(dbFile string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", dbFile)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createResults); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating results table in %s: %w", dbFile, err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(res Result) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO results
		(run_id, model, patient, accuracy, recall, precision, f1, n_train, n_test, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Model, res.Patient,
		res.Perf.Accuracy, res.Perf.Recall, res.Perf.Precision, res.Perf.F1,
		res.NTrain, res.NTest, res.Time.UTC().Format(time.RFC3339))
	return err
}

// Results returns the stored rows of model, or all rows when model is empty.
func (s *SQLiteSink) Results(model string) ([]Result, error) {
	query := `SELECT run_id, model, patient, accuracy, recall, precision, f1, n_train, n_test, time
		FROM results WHERE (? = '' OR model = ?) ORDER BY run_id, patient`
	rows, err := s.db.Query(query, model, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]Result, 0)
	for rows.Next() {
		var res Result
		var ts string
		if err := rows.Scan(&res.RunID, &res.Model, &res.Patient,
			&res.Perf.Accuracy, &res.Perf.Recall, &res.Perf.Precision, &res.Perf.F1,
			&res.NTrain, &res.NTest, &ts); err != nil {
			return nil, err
		}
		if ts != "" {
			if res.Time, err = time.Parse(time.RFC3339, ts); err != nil {
				return nil, err
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// MultiSink writes every result to all its sinks.
type MultiSink []Sink

func (m MultiSink) Write(res Result) error {
	for _, s := range m {
		if err := s.Write(res); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
