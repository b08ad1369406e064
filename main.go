package main

import (
	"flag"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/prebid/consent-string/cmd"
	"github.com/spf13/viper"
)

func main() {
	root := cmd.NewRootCommand(viper.New(), clock.New())
	// glog registers its flags on the standard flag set.
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	code := cmd.Execute(root)
	glog.Flush()
	os.Exit(code)
}
