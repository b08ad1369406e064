// Package cmd implements the consentstring command line tool.
package cmd

import (
	"fmt"
	"io"

	"github.com/benbjohnson/clock"
	"github.com/prebid/consent-string/config"
	"github.com/prebid/consent-string/consent"
	"github.com/prebid/consent-string/logger"
	prometheusmetrics "github.com/prebid/consent-string/metrics/prometheus"
	"github.com/prebid/consent-string/versions"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configFileName = "consent"

// app is the state shared by every subcommand. It is filled in by the root PersistentPreRunE.
type app struct {
	v     *viper.Viper
	clock clock.Clock

	configFile   string
	outputFormat string

	cfg     *config.Configuration
	codec   *consent.Codec
	metrics *prometheusmetrics.Metrics
}

// NewRootCommand builds the command tree around v. Flags of the subcommands are bound to the
// matching configuration keys, so a flag on the command line wins over the config file and the environment.
func NewRootCommand(v *viper.Viper, c clock.Clock) *cobra.Command {
	a := &app{v: v, clock: c}

	root := &cobra.Command{
		Use:           "consentstring",
		Short:         "Encode, decode and migrate IAB consent strings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.writeMetrics(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file; by default ./consent.yaml or /etc/config/consent.yaml is read when present")
	root.PersistentFlags().StringVarP(&a.outputFormat, "output", "o", "json", "output format: json or yaml")

	root.AddCommand(newEncodeCommand(a), newDecodeCommand(a), newMigrateCommand(a))
	return root
}

func (a *app) setup() error {
	if err := config.SetupViper(a.v, configFileName); err != nil {
		return fmt.Errorf("config file could not be read: %v", err)
	}
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("config file %s could not be read: %v", a.configFile, err)
		}
	}

	cfg, err := config.New(a.v)
	if err != nil {
		return fmt.Errorf("configuration did not pass validation: %v", err)
	}
	if _, err := newPrinter(a.outputFormat); err != nil {
		return err
	}
	a.cfg = cfg

	opts := []consent.CodecOption{consent.WithLogger(logger.Default())}
	if cfg.Metrics.Prometheus.Enabled {
		a.metrics = prometheusmetrics.NewMetrics(cfg.Metrics.Prometheus)
		opts = append(opts, consent.WithMetrics(a.metrics))
	}
	a.codec = consent.NewCodec(versions.Default(), opts...)
	return nil
}

// writeMetrics dumps the collected metrics in the Prometheus text format.
func (a *app) writeMetrics(out io.Writer) error {
	if a.metrics == nil {
		return nil
	}
	families, err := a.metrics.Registry.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(out, family); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) print(out io.Writer, value interface{}) error {
	p, err := newPrinter(a.outputFormat)
	if err != nil {
		return err
	}
	return p(out, value)
}

// Execute runs root and returns the process exit code.
func Execute(root *cobra.Command) int {
	if err := root.Execute(); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "consentstring: %v\n", err)
		return 1
	}
	return 0
}
