package src

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// PerfRecord holds the scores of one evaluation, all as fractions.
type PerfRecord struct {
	Accuracy  float64
	Recall    float64
	Precision float64
	F1        float64
}

var hundred = decimal.NewFromInt(100)

// ParseReport reads the tail of an svm_classify report:
//
//	Accuracy on test set: 92.50% (37 correct, 3 incorrect, 40 total)
//	Precision/recall on test set: 80.00%/90.00%
//
// Accuracy is the 5th field of the line before the precision/recall line.
func ParseReport(text string) (PerfRecord, error) {
	perf := PerfRecord{}
	lines := strings.Split(strings.TrimRight(text, " \t\r\n"), "\n")
	if len(lines) < 2 {
		return perf, &ReportFormatError{Line: text, Reason: "report has fewer than two lines"}
	}
	prLine := strings.TrimSpace(lines[len(lines)-1])
	accLine := strings.TrimSpace(lines[len(lines)-2])

	if !strings.Contains(strings.ToLower(prLine), "precision/recall") {
		return perf, &ReportFormatError{Line: prLine, Reason: "no precision/recall line"}
	}
	parts := strings.SplitN(prLine, ": ", 2)
	if len(parts) != 2 {
		return perf, &ReportFormatError{Line: prLine, Reason: "no value after precision/recall"}
	}
	pr := strings.Split(strings.TrimSpace(parts[1]), "/")
	if len(pr) != 2 {
		return perf, &ReportFormatError{Line: prLine, Reason: "want precision%/recall%"}
	}
	precision, err := percent(pr[0], prLine)
	if err != nil {
		return perf, err
	}
	recall, err := percent(pr[1], prLine)
	if err != nil {
		return perf, err
	}

	elements := strings.Fields(accLine)
	if len(elements) < 5 {
		return perf, &ReportFormatError{Line: accLine, Reason: "no accuracy token"}
	}
	accuracy, err := percent(elements[4], accLine)
	if err != nil {
		return perf, err
	}

	perf.Accuracy, _ = accuracy.Float64()
	perf.Precision, _ = precision.Float64()
	perf.Recall, _ = recall.Float64()
	if precision.IsZero() && recall.IsZero() {
		return perf, &DegenerateMetricsError{Accuracy: perf.Accuracy}
	}
	perf.F1 = 2 * perf.Precision * perf.Recall / (perf.Precision + perf.Recall)
	return perf, nil
}

// percent turns "92.50%" into 0.925.
func percent(token string, line string) (decimal.Decimal, error) {
	s := strings.TrimSuffix(strings.TrimSpace(token), "%")
	v, err := decimal.NewFromString(s)
	if err != nil {
		return v, &ReportFormatError{Line: line, Reason: "non numeric percentage " + token}
	}
	if v.IsNegative() || v.GreaterThan(hundred) {
		return v, &ReportFormatError{Line: line, Reason: "percentage out of range " + token}
	}
	return v.Div(hundred), nil
}

func ParseReportFile(logFile string) (PerfRecord, error) {
	content, err := os.ReadFile(logFile)
	if err != nil {
		return PerfRecord{}, err
	}
	return ParseReport(string(content))
}
