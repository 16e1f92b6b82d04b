package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-gridprep/pkg/config"
	"github.com/dd0wney/cluso-gridprep/pkg/logging"
	"github.com/dd0wney/cluso-gridprep/pkg/metrics"
	"github.com/dd0wney/cluso-gridprep/pkg/netio"
	"github.com/dd0wney/cluso-gridprep/pkg/pipeline"
)

func main() {
	configPath := flag.String("config", "gridprep.yaml", "Pipeline configuration file")
	inputDir := flag.String("input", "", "Directory holding the input network CSVs")
	outputDir := flag.String("output", "", "Directory for the transformed network CSVs")
	metricsAddr := flag.String("metrics-addr", "", "Optional address to expose Prometheus metrics on during the run")
	flag.Parse()

	if *inputDir == "" || *outputDir == "" {
		fmt.Fprintln(os.Stderr, "usage: gridprep -config gridprep.yaml -input <dir> -output <dir>")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	reg := metrics.NewRegistry()
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Warn("metrics server stopped", logging.Error(err))
			}
		}()
	}

	n, err := netio.Load(*inputDir)
	if err != nil {
		log.Fatalf("Failed to load network from %s: %v", *inputDir, err)
	}

	result, err := pipeline.New(cfg, logger, reg).Run(n)
	if err != nil {
		log.Fatalf("Pipeline failed: %v", err)
	}

	if err := netio.Save(*outputDir, result); err != nil {
		log.Fatalf("Failed to save network to %s: %v", *outputDir, err)
	}
	logger.Info("network written", logging.String("dir", *outputDir))
}
