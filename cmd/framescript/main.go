// Command framescript runs frame scripts and writes the frames they draw.
package main

import (
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fatal(err)
	}
}
