// Command streamguard watches a scalar signal for anomalies using an
// adaptive EMA/z-score detector.
package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "streamguard",
	Short: "Streaming anomaly detection over scalar signals",
	Long: `streamguard consumes a stream of numeric observations, maintains an
exponentially decayed estimate of the signal's level and dispersion, and
flags samples whose normalized distance from the level exceeds a z-score
threshold. Sources: a synthetic simulator, a CSV series, or a packet
capture. Flagged records go to the log and, optionally, to a JSON-lines
file and a WebSocket feed.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}
