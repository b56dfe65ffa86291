package src

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	ColFileName = "File Name"
	ColInclude  = "Include"
	ColTest     = "Test"
)

// protocols
const (
	Within = "within"
	LOPO   = "lopo"
)

type ManifestRow struct {
	FileName string
	Include  bool
	Test     bool
}

// Manifest is the file summary table. Rows keep their file order, which is
// also the concatenation order of the assembled matrices.
type Manifest struct {
	Rows  []ManifestRow
	index map[string]int
}

// Split is the train/test file partition of one patient.
type Split struct {
	Patient string
	Train   []string
	Test    []string
}

func NewManifest(rows []ManifestRow) (*Manifest, error) {
	m := &Manifest{Rows: make([]ManifestRow, 0, len(rows)), index: make(map[string]int)}
	for _, r := range rows {
		r.FileName = strings.TrimSpace(r.FileName)
		if r.FileName == "" {
			continue
		}
		if _, exist := m.index[r.FileName]; exist {
			return nil, fmt.Errorf("duplicate file name %q in manifest", r.FileName)
		}
		m.index[r.FileName] = len(m.Rows)
		m.Rows = append(m.Rows, r)
	}
	return m, nil
}

func ReadManifest(inFile string) (*Manifest, error) {
	file, err := os.Open(inFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	m, err := ParseManifest(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inFile, err)
	}
	return m, nil
}

func ParseManifest(r io.Reader) (*Manifest, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading manifest header: %w", err)
	}
	col := map[string]int{ColFileName: -1, ColInclude: -1, ColTest: -1}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, want := col[h]; want {
			col[h] = i
		}
	}
	for name, i := range col {
		if i < 0 {
			return nil, fmt.Errorf("manifest has no %q column", name)
		}
	}

	rows := make([]ManifestRow, 0)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		name := field(rec, col[ColFileName])
		if strings.TrimSpace(name) == "" {
			continue
		}
		inc, err := parseFlag(field(rec, col[ColInclude]))
		if err != nil {
			return nil, fmt.Errorf("line %d, %s: %w", line, ColInclude, err)
		}
		test, err := parseFlag(field(rec, col[ColTest]))
		if err != nil {
			return nil, fmt.Errorf("line %d, %s: %w", line, ColTest, err)
		}
		rows = append(rows, ManifestRow{FileName: name, Include: inc, Test: test})
	}
	return NewManifest(rows)
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// parseFlag accepts 0/1, 0.0/1.0 and true/false. An empty cell is false.
func parseFlag(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, fmt.Errorf("bad flag value %q", s)
	}
	return v != 0, nil
}

func (m *Manifest) lookup(name string) (ManifestRow, bool) {
	i, exist := m.index[strings.TrimSpace(name)]
	if !exist {
		return ManifestRow{}, false
	}
	return m.Rows[i], true
}

// ForPatient returns a new manifest where only rows that were included and
// belong to patient stay included. m is not modified.
func (m *Manifest) ForPatient(patient string) *Manifest {
	view := &Manifest{Rows: make([]ManifestRow, len(m.Rows)), index: make(map[string]int, len(m.Rows))}
	for i, r := range m.Rows {
		r.Include = r.Include && strings.Contains(r.FileName, patient)
		view.Rows[i] = r
		view.index[r.FileName] = i
	}
	return view
}

// Patients lists the distinct patient ids of the included files, taking the
// id as the part of the file name before the first "_" (chb01_03.edf -> chb01).
func (m *Manifest) Patients() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, r := range m.Rows {
		if !r.Include {
			continue
		}
		id := r.FileName
		if i := strings.Index(id, "_"); i > 0 {
			id = id[:i]
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// SelectSplit partitions the included rows into train (Test false) and test
// (Test true). With a non empty patient only that patient's files count.
func SelectSplit(m *Manifest, patient string) (Split, error) {
	if patient != "" {
		m = m.ForPatient(patient)
	}
	s := Split{Patient: patient, Train: make([]string, 0), Test: make([]string, 0)}
	for _, r := range m.Rows {
		if !r.Include {
			continue
		}
		if r.Test {
			s.Test = append(s.Test, strings.TrimSpace(r.FileName))
		} else {
			s.Train = append(s.Train, strings.TrimSpace(r.FileName))
		}
	}
	return s, s.check()
}

// SelectLOPO leaves patient out: its included files are the test set and the
// included files of every other cohort patient are the train set.
func SelectLOPO(m *Manifest, patient string, cohort []string) (Split, error) {
	s := Split{Patient: patient, Train: make([]string, 0), Test: make([]string, 0)}
	for _, r := range m.Rows {
		if !r.Include {
			continue
		}
		if strings.Contains(r.FileName, patient) {
			s.Test = append(s.Test, r.FileName)
			continue
		}
		for _, other := range cohort {
			if other != patient && strings.Contains(r.FileName, other) {
				s.Train = append(s.Train, r.FileName)
				break
			}
		}
	}
	return s, s.check()
}

func (s Split) check() error {
	if len(s.Train) == 0 {
		return &EmptySplitError{Patient: s.Patient, Side: "train"}
	}
	if len(s.Test) == 0 {
		return &EmptySplitError{Patient: s.Patient, Side: "test"}
	}
	return nil
}
