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

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var stopProfile func()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "szdetect",
	Short: "seizure detection train/test pipeline",
	Long: `
  ____ _________  _____ _____ _____ ____ _____
 / ___|__  /  _ \| ____|_   _| ____/ ___|_   _|
 \___ \ / /| | | |  _|   | | |  _|| |     | |
  ___) / /_| |_| | |___  | | | |__| |___  | |
 |____/____|____/|_____| |_| |_____\____| |_|

Per patient seizure detection experiments on preprocessed EEG windows.
The file summary (manifest) decides which recordings are included and
which of them are held out for testing. Features and labels are read from
<processed>/<file>_data.npy and <processed>/<file>_target.npy.

Settings are taken from flags, then SZDETECT_* environment variables,
then the config file ($HOME/.szdetect.yaml).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.BindPFlags(cmd.Flags())
		if viper.GetBool("profile") {
			stopProfile = profile.Start(profile.MemProfile, profile.ProfilePath(viper.GetString("res")), profile.Quiet).Stop
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopProfile != nil {
			stopProfile()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.szdetect.yaml)")
	rootCmd.PersistentFlags().String("res", "resultSzdetect", "result folder, holds log.txt")
	rootCmd.PersistentFlags().Bool("profile", false, "write a memory profile into the result folder")
	rootCmd.PersistentFlags().Bool("v", false, "debug level messages in log.txt")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".szdetect")
	}

	viper.SetEnvPrefix("szdetect")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
