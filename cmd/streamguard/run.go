package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hed1ad/streamguard/internal/config"
	"github.com/hed1ad/streamguard/pkg/detectors/ema"
	csvsource "github.com/hed1ad/streamguard/pkg/io/csv"
	"github.com/hed1ad/streamguard/pkg/io/jsonl"
	"github.com/hed1ad/streamguard/pkg/io/logsink"
	pcapsource "github.com/hed1ad/streamguard/pkg/io/pcap"
	"github.com/hed1ad/streamguard/pkg/io/sim"
	"github.com/hed1ad/streamguard/pkg/io/ws"
	"github.com/hed1ad/streamguard/pkg/pipeline"

	streamio "github.com/hed1ad/streamguard/pkg/io"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the detection pipeline until interrupted",
	RunE:  runPipeline,
}

func init() {
	f := runCmd.Flags()
	f.Float64("alpha", 0.1, "EMA smoothing factor in (0, 1]")
	f.Float64("threshold", 3, "z-score above which a sample is flagged")
	f.String("source", "sim", "signal source: sim, csv or pcap")
	f.String("csv", "", "series file for the csv source")
	f.Int("csv-column", 0, "column holding the values")
	f.Bool("csv-header", true, "whether the csv file has a header row")
	f.String("pcap", "", "capture file for the pcap source")
	f.String("pcap-metric", "size", "per-packet scalar: size or interarrival")
	f.Int64("seed", 42, "sim source RNG seed")
	f.Int("interval", 100, "sim source pacing in milliseconds, 0 for unpaced")
	f.String("jsonl", "", "append classification records to this JSON-lines file")
	f.String("listen", "", "serve classification records over WebSocket on this address")
	f.String("log-level", "info", "logrus level: debug, info, warn, error")
	f.Bool("stop-on-error", false, "abort the stream on the first invalid sample or sink failure")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("bad log level %q: %w", cfg.LogLevel, err)
	}
	logrus.SetLevel(level)

	detector, err := ema.New(cfg.Alpha, cfg.Threshold)
	if err != nil {
		return err
	}

	source, err := buildSource(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	sinks := []streamio.Sink{logsink.New(logrus.StandardLogger())}

	if cfg.JSONLPath != "" {
		w, err := jsonl.NewFileWriter(cfg.JSONLPath)
		if err != nil {
			return fmt.Errorf("open record log: %w", err)
		}
		sinks = append(sinks, w)
	}

	var srv *http.Server
	if cfg.ListenAddr != "" {
		hub := ws.NewHub(logrus.StandardLogger())
		sinks = append(sinks, hub)

		mux := http.NewServeMux()
		mux.Handle("/stream", hub)
		srv = &http.Server{Addr: cfg.ListenAddr, Handler: mux}

		go func() {
			logrus.WithField("addr", cfg.ListenAddr).Info("serving record stream at /stream")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("record stream server failed")
			}
		}()
	}

	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				logrus.WithError(err).Warn("sink close failed")
			}
		}
		if srv != nil {
			srv.Shutdown(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(detector, source,
		pipeline.WithSinks(sinks...),
		pipeline.WithContinueOnError(cfg.ContinueOnError),
		pipeline.WithLogger(logrus.StandardLogger()))

	logrus.WithFields(logrus.Fields{
		"source":    cfg.Source,
		"alpha":     cfg.Alpha,
		"threshold": cfg.Threshold,
	}).Info("pipeline starting")

	err = p.Run(ctx)

	stats := p.Stats()
	logrus.WithFields(logrus.Fields{
		"samples":   stats.Samples,
		"anomalies": stats.Anomalies,
		"invalid":   stats.Invalid,
	}).Info("pipeline stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// loadRunConfig resolves settings from file and environment through viper,
// then lets explicitly set flags override.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("alpha") {
		cfg.Alpha, _ = f.GetFloat64("alpha")
	}
	if f.Changed("threshold") {
		cfg.Threshold, _ = f.GetFloat64("threshold")
	}
	if f.Changed("source") {
		cfg.Source, _ = f.GetString("source")
	}
	if f.Changed("csv") {
		cfg.CSVPath, _ = f.GetString("csv")
	}
	if f.Changed("csv-column") {
		cfg.CSVColumn, _ = f.GetInt("csv-column")
	}
	if f.Changed("csv-header") {
		cfg.CSVHeader, _ = f.GetBool("csv-header")
	}
	if f.Changed("pcap") {
		cfg.PcapPath, _ = f.GetString("pcap")
	}
	if f.Changed("pcap-metric") {
		cfg.PcapMetric, _ = f.GetString("pcap-metric")
	}
	if f.Changed("seed") {
		cfg.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("interval") {
		cfg.IntervalMS, _ = f.GetInt("interval")
	}
	if f.Changed("jsonl") {
		cfg.JSONLPath, _ = f.GetString("jsonl")
	}
	if f.Changed("listen") {
		cfg.ListenAddr, _ = f.GetString("listen")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("stop-on-error") {
		stop, _ := f.GetBool("stop-on-error")
		cfg.ContinueOnError = !stop
	}

	return cfg, nil
}

func buildSource(cfg *config.Config) (streamio.Source, error) {
	switch cfg.Source {
	case "sim":
		return sim.New(
			sim.WithSeed(cfg.Seed),
			sim.WithInterval(time.Duration(cfg.IntervalMS)*time.Millisecond),
		), nil

	case "csv":
		if cfg.CSVPath == "" {
			return nil, errors.New("csv source requires a series file (--csv)")
		}
		return csvsource.NewReader(cfg.CSVPath,
			csvsource.WithColumn(cfg.CSVColumn),
			csvsource.WithHeader(cfg.CSVHeader))

	case "pcap":
		if cfg.PcapPath == "" {
			return nil, errors.New("pcap source requires a capture file (--pcap)")
		}
		metric := pcapsource.MetricPacketSize
		switch cfg.PcapMetric {
		case "size":
		case "interarrival":
			metric = pcapsource.MetricInterArrival
		default:
			return nil, fmt.Errorf("unknown pcap metric %q", cfg.PcapMetric)
		}
		return pcapsource.NewFileReader(cfg.PcapPath, pcapsource.WithMetric(metric))

	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}
