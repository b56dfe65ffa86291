// Copyright © 2019 Hao Chen <chenhao.mymail@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/chenhao392/szdetect/src"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "aggregate per patient results",
	Long: `Mean, standard deviation, median, min and max of accuracy, precision,
recall and F1 over the patients of a results csv or sqlite db, followed by
the patients with the lowest F1.

  Sample usages:
  szdetect summary --i resultSzdetect/perf_svmlight.csv
  szdetect summary --db results.db --model forest --worst 5`,
	Run: func(cmd *cobra.Command, args []string) {
		inFile, _ := cmd.Flags().GetString("i")
		dbFile, _ := cmd.Flags().GetString("db")
		model, _ := cmd.Flags().GetString("model")
		run, _ := cmd.Flags().GetString("run")
		worst, _ := cmd.Flags().GetInt("worst")
		if inFile == "" && dbFile == "" {
			cmd.Help()
			os.Exit(0)
		}

		var results []src.Result
		var err error
		if dbFile != "" {
			var db *src.SQLiteSink
			db, err = src.NewSQLiteSink(dbFile)
			if err == nil {
				results, err = db.Results(model)
				db.Close()
			}
		} else {
			results, err = src.ReadResultsCSV(inFile)
		}
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		results = filterResults(results, model, run)
		if len(results) == 0 {
			fmt.Println("no results found.")
			os.Exit(1)
		}
		printSummary(src.Summarize(results, worst))
	},
}

func filterResults(results []src.Result, model string, run string) []src.Result {
	kept := make([]src.Result, 0, len(results))
	for _, r := range results {
		if model != "" && r.Model != model {
			continue
		}
		if run != "" && !strings.HasPrefix(r.RunID, run) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func printSummary(sum src.Summary) {
	head := color.New(color.Bold)
	head.Printf("%-10s %8s %8s %8s %8s %8s\n", "metric", "mean", "sd", "median", "min", "max")
	for _, m := range []struct {
		name string
		s    src.MetricSummary
	}{{"accuracy", sum.Accuracy}, {"precision", sum.Precision}, {"recall", sum.Recall}, {"F1", sum.F1}} {
		fmt.Printf("%-10s %8.4f %8.4f %8.4f %8.4f %8.4f\n", m.name, m.s.Mean, m.s.SD, m.s.Median, m.s.Min, m.s.Max)
	}
	fmt.Printf("%d patients\n", sum.N)
	if len(sum.Worst) == 0 {
		return
	}
	head.Println("lowest F1:")
	for _, r := range sum.Worst {
		c := color.New(color.FgGreen)
		if r.Perf.F1 < 0.5 {
			c = color.New(color.FgRed)
		} else if r.Perf.F1 < 0.8 {
			c = color.New(color.FgYellow)
		}
		c.Printf("  %-10s %-9s F1 %1.4f  acc %1.4f  (%d train, %d test)\n", r.Patient, r.Model, r.Perf.F1, r.Perf.Accuracy, r.NTrain, r.NTest)
	}
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().String("i", "", "results csv")
	summaryCmd.Flags().String("db", "", "results sqlite db")
	summaryCmd.Flags().String("model", "", "only this model")
	summaryCmd.Flags().String("run", "", "only this run id (prefix)")
	summaryCmd.Flags().Int("worst", 3, "number of lowest F1 patients listed")
}
