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
	"path/filepath"

	"github.com/chenhao392/szdetect/src"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "write one split as svmlight files",
	Long: `Assemble the train/test split of the manifest and write it as
svmlight_train.dat and svmlight_test.dat, one "<label> <index>:<value> ..."
line per window. Label 0 is written as -1 and infinite features as 0.

With --patient only that patient's files are used, otherwise every
included file. --verify reads the written files back and checks their size.

Sample usages:
  szdetect export --manifest summary.csv --processed data/processed/ --patient chb01 --work out/`,
	Run: func(cmd *cobra.Command, args []string) {
		if viper.GetString("manifest") == "" {
			cmd.Help()
			os.Exit(0)
		}
		logger, closeLog, err := src.Init(viper.GetString("res"), viper.GetBool("v"))
		if err != nil {
			fmt.Println(err)
			return
		}
		defer closeLog()
		logger.Info("Program started.")
		if err := exportSplit(logger); err != nil {
			logger.Error(err)
			closeLog()
			os.Exit(1)
		}
		logger.Info("Program finished.")
	},
}

func exportSplit(logger *zap.SugaredLogger) error {
	manifest, err := src.ReadManifest(viper.GetString("manifest"))
	if err != nil {
		return err
	}
	store, err := newStore()
	if err != nil {
		return err
	}
	patient := viper.GetString("patient")
	split, err := src.SelectSplit(manifest, patient)
	if err != nil {
		return err
	}
	train, test, err := src.AssembleSplit(split, store, logger)
	if err != nil {
		return err
	}
	dir := viper.GetString("work")
	if patient != "" {
		dir = filepath.Join(dir, patient)
	}
	opt := src.ExportOptions{ZeroBased: viper.GetBool("zeroBased"), OmitZeros: viper.GetBool("omitZeros")}
	trainFile, testFile, err := src.ExportSplit(train, test, dir, opt, logger)
	if err != nil {
		return err
	}
	if !viper.GetBool("verify") {
		return nil
	}
	for _, e := range []struct {
		file string
		d    *src.Dataset
	}{{trainFile, train}, {testFile, test}} {
		back, err := src.ReadSVMLight(e.file, opt.ZeroBased)
		if err != nil {
			return err
		}
		nRow, nCol := e.d.Dims()
		bRow, bCol := back.Dims()
		if bRow != nRow {
			return &src.ShapeMismatchError{File: e.file, What: "rows", Want: nRow, Got: bRow}
		}
		// trailing zero columns are not visible when zeros are omitted
		if bCol > nCol || (!opt.OmitZeros && bCol != nCol) {
			return &src.ShapeMismatchError{File: e.file, What: "feature columns", Want: nCol, Got: bCol}
		}
		logger.Infof("%s verified: %d x %d", e.file, bRow, bCol)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	splitFlags(exportCmd)

	exportCmd.Flags().String("patient", "", "patient id, default all included files")
	exportCmd.Flags().Bool("verify", false, "read the files back and check their shape")
}
