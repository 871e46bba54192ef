// Command ecutool codes and diagnoses G-series vehicles over DoIP.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nikolamrkic91-arch/ecutool/config"
	"github.com/nikolamrkic91-arch/ecutool/doip"
	"github.com/nikolamrkic91-arch/ecutool/history"
	"github.com/nikolamrkic91-arch/ecutool/uds"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ecutool",
		Short: "ECU coding and diagnostics over DoIP",
		Long: `ecutool talks to the diagnostic gateway of a G-series vehicle over
DoIP and performs UDS parameter reads, coding writes, security access
and coding-data decoding.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "vehicle profile YAML (built-in G01 X3 B48 profile when omitted)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newVINCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newWriteCmd())
	rootCmd.AddCommand(newUnlockCmd())
	rootCmd.AddCommand(newCodeCmd())
	rootCmd.AddCommand(newCAFDCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newSimulateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).With().Timestamp().Logger().Level(level)
}

func loadProfile() (*config.Profile, error) {
	if flagConfig == "" {
		return config.Default(), nil
	}
	return config.Load(flagConfig)
}

// connect dials the gateway from the profile and activates routing.
func connect(profile *config.Profile, log zerolog.Logger) (*doip.Session, error) {
	sess := doip.NewSession(profile.TesterAddress, profile.Gateway.Addr(),
		doip.WithLogger(log),
		doip.WithReadTimeout(time.Duration(profile.ReadTimeoutMs)*time.Millisecond))
	if err := sess.Connect(); err != nil {
		return nil, fmt.Errorf("connect to gateway %s: %w", profile.Gateway.Addr(), err)
	}
	return sess, nil
}

func newUDSClient(profile *config.Profile, log zerolog.Logger) (*uds.Client, *doip.Session, error) {
	sess, err := connect(profile, log)
	if err != nil {
		return nil, nil, err
	}
	return uds.NewClient(sess, uds.WithLogger(log)), sess, nil
}

func openHistory(profile *config.Profile) (history.Store, error) {
	path := profile.HistoryPath
	if path == "" {
		path = "ecutool-history.cbor"
	}
	return history.NewFileStore(path)
}
