package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gonum/stat"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate [file]",
	Short: "Suggest a z-score threshold from a recorded series",
	Long: `calibrate reads a recorded series (one value per line, from a file or
stdin), computes its mean and standard deviation, and reports the z-score
threshold that would have flagged a chosen fraction of the series. Use the
reported value as a starting point for run --threshold.`,
	Args: cobra.MaximumNArgs(1),
	RunE: calibrate,
}

func init() {
	calibrateCmd.Flags().Float64("flag-fraction", 0.01,
		"target fraction of the series to flag as anomalous")

	rootCmd.AddCommand(calibrateCmd)
}

func calibrate(cmd *cobra.Command, args []string) error {
	fraction, _ := cmd.Flags().GetFloat64("flag-fraction")
	if fraction <= 0 || fraction >= 1 {
		return errors.New("flag-fraction must be in (0, 1)")
	}

	in := io.Reader(os.Stdin)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	samples, skipped, err := readSeries(in)
	if err != nil {
		return err
	}
	if len(samples) < 2 {
		return errors.New("need at least two samples to calibrate")
	}
	if skipped > 0 {
		logrus.WithField("skipped", skipped).Warn("non-numeric lines ignored")
	}

	mean := stat.Mean(samples, nil)
	stdDev := stat.StdDev(samples, nil)
	if stdDev == 0 {
		return errors.New("series is perfectly flat, nothing to calibrate against")
	}

	absScores := make([]float64, len(samples))
	for i, v := range samples {
		absScores[i] = math.Abs((v - mean) / stdDev)
	}
	sort.Float64s(absScores)

	suggested := stat.Quantile(1-fraction, stat.Empirical, absScores, nil)

	logrus.WithFields(logrus.Fields{
		"samples": len(samples),
		"mean":    mean,
		"std_dev": stdDev,
		"max_abs": absScores[len(absScores)-1],
	}).Info("series analyzed")

	fmt.Fprintf(cmd.OutOrStdout(),
		"suggested threshold: %.3f (flags ~%.1f%% of the recorded series)\n",
		suggested, fraction*100)

	return nil
}

// readSeries parses one float per line, skipping blank and non-numeric
// lines and counting the skips.
func readSeries(in io.Reader) ([]float64, int, error) {
	var (
		samples []float64
		skipped int
	)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		v, err := strconv.ParseFloat(line, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			skipped++
			continue
		}
		samples = append(samples, v)
	}

	return samples, skipped, scanner.Err()
}
