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
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chenhao392/szdetect/src"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "train and test every patient",
	Long: `Train and test a classifier for each patient listed.

For every patient the included files of the manifest are split into a
training set (Test = 0) and a test set (Test = 1). With --protocol lopo the
patient's files are the test set and the other patients' files the
training set instead. The sets are assembled from the npy files in the
processed folder and scored with one of the models:

 1) svmlight: exports both sets in SVM-light format and runs svm_learn and
    svm_classify, reading the scores from the classify log.
 2) svc: an in-process support vector classifier.
 3) forest: an in-process random forest.

One row per patient is appended to the results csv (and sqlite db if set).

Sample usages:
  szdetect run --manifest summary.csv --processed data/processed/ --patients chb01,chb02
  szdetect run --manifest summary.csv --processed data/processed/ --model forest --trees 50 --jobs 4`,
	Run: func(cmd *cobra.Command, args []string) {
		if viper.GetString("manifest") == "" {
			cmd.Help()
			os.Exit(0)
		}
		resFolder := viper.GetString("res")
		logger, closeLog, err := src.Init(resFolder, viper.GetBool("v"))
		if err != nil {
			fmt.Println(err)
			return
		}
		defer closeLog()
		logger.Info("Program started.")

		rand.Seed(viper.GetInt64("seed"))
		if err := runPatients(logger); err != nil {
			logger.Error(err)
			closeLog()
			if stopProfile != nil {
				stopProfile()
			}
			os.Exit(1)
		}
		logger.Info("Program finished.")
	},
}

func runPatients(logger *zap.SugaredLogger) error {
	manifest, err := src.ReadManifest(viper.GetString("manifest"))
	if err != nil {
		return err
	}
	store, err := newStore()
	if err != nil {
		return err
	}
	model := viper.GetString("model")
	classifier, err := src.NewClassifier(model, backendConfig(), logger)
	if err != nil {
		return err
	}
	protocol := strings.ToLower(viper.GetString("protocol"))
	if protocol != src.Within && protocol != src.LOPO {
		return fmt.Errorf("unknown protocol %q (%s, %s)", protocol, src.Within, src.LOPO)
	}

	sinks := src.MultiSink{}
	resultsFile := viper.GetString("results")
	if resultsFile == "" {
		resultsFile = filepath.Join(viper.GetString("res"), "perf_"+model+".csv")
	}
	csvSink, err := src.NewCSVSink(resultsFile)
	if err != nil {
		return err
	}
	sinks = append(sinks, csvSink)
	if dbFile := viper.GetString("db"); dbFile != "" {
		dbSink, err := src.NewSQLiteSink(dbFile)
		if err != nil {
			sinks.Close()
			return err
		}
		sinks = append(sinks, dbSink)
	}
	defer sinks.Close()

	runner := &src.Runner{
		RunID:      src.NewRunID(),
		Manifest:   manifest,
		Store:      store,
		Classifier: classifier,
		WorkDir:    viper.GetString("work"),
		Protocol:   protocol,
		Patients:   splitList(viper.GetString("patients")),
		Jobs:       viper.GetInt("jobs"),
		Sink:       sinks,
		Logger:     logger,
	}
	logger.Infof("run %s: model %s, protocol %s", runner.RunID, model, protocol)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results, err := runner.Run(ctx)
	logger.Infof("%d patients scored, results in %s", len(results), resultsFile)
	return err
}

func newStore() (src.Store, error) {
	var store src.Store = src.NpyStore{Dir: viper.GetString("processed")}
	if size := viper.GetInt("cache"); size > 0 {
		return src.NewCachedStore(store, size)
	}
	return store, nil
}

func backendConfig() src.BackendConfig {
	return src.BackendConfig{
		LearnBin:     viper.GetString("learn"),
		ClassifyBin:  viper.GetString("classify"),
		LearnArgs:    strings.Fields(viper.GetString("learnArgs")),
		ClassifyArgs: strings.Fields(viper.GetString("classifyArgs")),
		Timeout:      viper.GetDuration("timeout"),
		Export: src.ExportOptions{
			ZeroBased: viper.GetBool("zeroBased"),
			OmitZeros: viper.GetBool("omitZeros"),
		},
		C:        viper.GetFloat64("C"),
		Kernel:   viper.GetString("kernel"),
		Trees:    viper.GetInt("trees"),
		Features: viper.GetInt("features"),
	}
}

func splitList(s string) []string {
	list := make([]string, 0)
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			list = append(list, e)
		}
	}
	return list
}

// splitFlags are shared by run and export.
func splitFlags(cmd *cobra.Command) {
	cmd.Flags().String("manifest", "", "file summary csv with File Name, Include and Test columns")
	cmd.Flags().String("processed", "data/processed", "folder of <file>_data.npy and <file>_target.npy")
	cmd.Flags().String("work", "work", "folder for svmlight files, models and classify logs")
	cmd.Flags().Bool("zeroBased", false, "zero based feature indices in svmlight files")
	cmd.Flags().Bool("omitZeros", false, "leave zero valued features out of svmlight files")
	cmd.Flags().Int("cache", 0, "number of loaded npy files kept in memory, 0 disables")
}

func init() {
	rootCmd.AddCommand(runCmd)
	splitFlags(runCmd)

	runCmd.Flags().String("patients", "", "comma separated patient ids, default all patients in the manifest")
	runCmd.Flags().String("protocol", src.Within, "within (manifest Test column) or lopo (leave one patient out)")
	runCmd.Flags().String("model", "svmlight", "svmlight, svc or forest")
	runCmd.Flags().Int("jobs", 1, "patients evaluated at once")
	runCmd.Flags().Duration("timeout", 0, "limit for each svm_learn/svm_classify run, 0 for none")
	runCmd.Flags().String("learn", "svm_learn", "svm_learn executable")
	runCmd.Flags().String("classify", "svm_classify", "svm_classify executable")
	runCmd.Flags().String("learnArgs", "", "extra svm_learn options, e.g. \"-c 1 -j 5\"")
	runCmd.Flags().String("classifyArgs", "", "extra svm_classify options")
	runCmd.Flags().Float64("C", 1.0, "svc regularization")
	runCmd.Flags().String("kernel", "rbf", "svc kernel")
	runCmd.Flags().Int("trees", 10, "forest size")
	runCmd.Flags().Int("features", 0, "features per tree, 0 for sqrt of the width")
	runCmd.Flags().Int64("seed", 1, "random seed for the in-process models")
	runCmd.Flags().String("results", "", "results csv (default <res>/perf_<model>.csv)")
	runCmd.Flags().String("db", "", "also store results in this sqlite file")
}
