package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"opsdash/internal/harvest"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	input    string
	output   string
	logLevel string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Extract the materials table from a saved operations page",
	Long: `harvest reads an HTML page holding the materials usage table and
writes its rows as CSV. Rows missing a cell are logged and skipped.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&input, "input", "i", "", "saved HTML page (default stdin)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "materials.csv", "CSV destination, - for stdout")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log := logrus.New()
	log.SetLevel(level)
	log.SetOutput(os.Stderr)

	var in io.Reader = os.Stdin
	if input != "" {
		f, err := os.Open(input) //nolint:gosec // User-provided input path
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	res, err := harvest.ParseMaterials(in, log)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if output != "-" {
		f, err := os.Create(output) //nolint:gosec // User-provided output path
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if err := harvest.WriteCSV(out, res.Materials); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	log.WithFields(logrus.Fields{
		"materials": len(res.Materials),
		"skipped":   res.Skipped,
		"output":    output,
	}).Info("Materials harvested")
	return nil
}
