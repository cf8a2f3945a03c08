// Command memhier simulates a trace of memory accesses through a
// configurable TLB/page-table/L1/L2 hierarchy and reports per-access and
// summary statistics.
//
// This entry point mirrors github.com/mknyszek/goat's cmd/goat-sim: parse
// flags, open the trace (mmap'd when it is a real file), feed it through
// the simulator with a progress spinner, and print a report.
package main

import (
	"io"
	"os"

	"memhier/cmd/internal/spinner"
	"memhier/config"
	"memhier/report"
	"memhier/sim"
	"memhier/trace"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/mmap"
)

const configFileName = "trace.config"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.WithError(err).Error("memhier failed")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "memhier [trace-file]",
		Short: "Simulate a memory access trace through a TLB/page-table/cache hierarchy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			var traceFile string
			if len(args) == 1 {
				traceFile = args[0]
			}
			return run(cmd.OutOrStdout(), traceFile)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging of each access")
	return cmd
}

func run(stdout io.Writer, traceFile string) error {
	cfgFile, err := os.Open(configFileName)
	if err != nil {
		return errors.Wrapf(err, "could not open configuration file %q", configFileName)
	}
	defer cfgFile.Close()

	cfg, err := config.Parse(cfgFile)
	if err != nil {
		return errors.Wrap(err, "parsing configuration")
	}

	parser, closeTrace, err := openTrace(traceFile)
	if err != nil {
		return err
	}
	defer closeTrace()

	s := sim.New(cfg)

	spinner.Start(parser.Progress, spinner.Format("Simulating... %.1f%%"))
	out := s.Run(parser)
	spinner.Stop()

	report.WriteConfig(stdout, cfg)
	report.WriteTable(stdout, out)
	report.WriteStatistics(stdout, out)
	return nil
}

// openTrace opens the trace by filename via mmap when one is given
// (mirroring goat's cmd/goat-sim, which maps its trace file instead of
// streaming it), or falls back to standard input. The returned closer must
// be called once the trace has been fully consumed.
func openTrace(filename string) (*trace.Parser, func(), error) {
	if filename == "" {
		logrus.Info("reading trace from standard input")
		return trace.New(os.Stdin), func() {}, nil
	}

	logrus.WithField("file", filename).Info("reading trace from file")
	r, err := mmap.Open(filename)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not open trace file %q", filename)
	}
	return trace.NewFromSource(r), func() { r.Close() }, nil
}
