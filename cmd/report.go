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
	"errors"
	"fmt"
	"os"

	"github.com/chenhao392/szdetect/src"
	"github.com/spf13/cobra"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "read scores from svm_classify logs",
	Long: `Read accuracy, precision and recall from the last two lines of one or
more svm_classify logs and print them with the F1 score.

  Sample usages:
  szdetect report --i work/chb01/test.log
  szdetect report --i work/chb01/test.log,work/chb02/test.log`,
	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("i") {
			cmd.Help()
			os.Exit(0)
		}
		inFiles, _ := cmd.Flags().GetString("i")
		failed := false
		for _, inFile := range splitList(inFiles) {
			perf, err := src.ParseReportFile(inFile)
			var degenerate *src.DegenerateMetricsError
			if errors.As(err, &degenerate) {
				fmt.Printf("%s\tacc: %1.4f precision/recall both 0, F1 undefined\n", inFile, degenerate.Accuracy)
				failed = true
				continue
			}
			if err != nil {
				fmt.Printf("%s\t%v\n", inFile, err)
				failed = true
				continue
			}
			fmt.Printf("%s\tacc: %1.4f precision: %1.4f recall: %1.4f F1: %1.4f\n", inFile, perf.Accuracy, perf.Precision, perf.Recall, perf.F1)
		}
		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("i", "", "comma separated svm_classify logs")
}
