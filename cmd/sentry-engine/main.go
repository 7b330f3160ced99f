package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"NetSentry/internal/api"
	"NetSentry/internal/config"
	"NetSentry/internal/engine/pipeline"
	"NetSentry/internal/export"
	"NetSentry/internal/mitigation"
	"NetSentry/internal/model"
	"NetSentry/internal/probe"
	"NetSentry/internal/scorer"
	"NetSentry/pkg/pcap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Optional shared denylist mirror.
	var mirror mitigation.Mirror
	var redisMirror *mitigation.RedisMirror
	if cfg.Redis.Enabled {
		redisMirror, err = mitigation.NewRedisMirror(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Key)
		if err != nil {
			log.Fatalf("Failed to create Redis denylist mirror: %v", err)
		}
		defer redisMirror.Close()
		mirror = redisMirror
	}

	mitigator := mitigation.NewEngine(cfg.Engine.DenylistSize, mirror)

	sc, closeScorer, err := buildScorer(cfg)
	if err != nil {
		log.Fatalf("Failed to create scorer: %v", err)
	}
	defer closeScorer()

	var writer model.FeatureWriter
	if cfg.Export.ClickHouse.Enabled {
		chWriter, err := export.NewClickHouseWriter(cfg.Export.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to create ClickHouse writer: %v", err)
		}
		defer chWriter.Close()
		writer = chWriter
	}

	pl, err := pipeline.New(cfg, sc, mitigator, writer)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	pl.Start()

	attackers, err := loadAttackers(cfg.Engine.AttackersFile)
	if err != nil {
		log.Fatalf("Failed to load attackers file: %v", err)
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API.ListenAddr, mitigator, attackers)
		apiServer.Start()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch cfg.Input.Mode {
	case "pcap":
		runPcap(cfg, pl, sigChan)
	case "nats":
		runNATS(cfg, pl, sigChan)
	default:
		log.Fatalf("Unknown input mode: %q (want \"pcap\" or \"nats\")", cfg.Input.Mode)
	}

	pl.Stop()
	if late := pl.LateDropped(); late > 0 {
		log.Printf("Dropped %d late packets during the run", late)
	}

	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		apiServer.Stop(ctx)
		cancel()
	}

	summary := mitigator.Summary(attackers)
	log.Printf("Run summary: %d sources, %d denylisted, %d pkts allowed, %d pkts denied",
		summary.Sources, summary.Denylisted, summary.PktsAllowed, summary.PktsDenied)
	if len(attackers) > 0 {
		log.Printf("Detection: TP=%d FP=%d TN=%d FN=%d",
			summary.TruePositives, summary.FalsePositives, summary.TrueNegatives, summary.FalseNegatives)
	}

	if cfg.Export.Report.Enabled {
		rw := export.NewReportWriter(cfg.Export.Report.RootPath)
		if err := rw.WriteReport(mitigator.Snapshot(), summary); err != nil {
			log.Printf("Failed to write mitigation report: %v", err)
		} else {
			log.Printf("Mitigation report written under %s", cfg.Export.Report.RootPath)
		}
	}

	log.Println("Engine exited.")
}

// buildScorer constructs the configured scorer plus its cleanup function.
func buildScorer(cfg *config.Config) (model.Scorer, func(), error) {
	switch cfg.Scorer.Type {
	case "builtin":
		return scorer.NewThreshold(scorer.RateBaseline{}, cfg.Engine.Threshold), func() {}, nil
	case "nats":
		ns, err := scorer.NewNATSScorer(cfg.Scorer.NATSURL, cfg.Scorer.Subject)
		if err != nil {
			return nil, nil, err
		}
		return ns, ns.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown scorer type: %q (want \"builtin\" or \"nats\")", cfg.Scorer.Type)
	}
}

// runPcap replays a capture file through the pipeline until the file is
// exhausted or an interrupt arrives.
func runPcap(cfg *config.Config, pl *pipeline.Pipeline, sigChan <-chan os.Signal) {
	reader, err := pcap.NewReader(cfg.Input.PcapPath)
	if err != nil {
		log.Fatalf("Failed to open pcap file '%s': %v", cfg.Input.PcapPath, err)
	}
	defer reader.Close()

	recChan := make(chan *model.PacketRecord, 1024)
	go reader.ReadPackets(recChan)

	log.Printf("Replaying pcap file '%s'...", cfg.Input.PcapPath)
	for {
		select {
		case rec, ok := <-recChan:
			if !ok {
				log.Println("Pcap replay finished.")
				return
			}
			pl.Process(rec)
		case <-sigChan:
			log.Println("Interrupt received, stopping replay...")
			return
		}
	}
}

// runNATS consumes packet records published by remote probes until an
// interrupt arrives.
func runNATS(cfg *config.Config, pl *pipeline.Pipeline, sigChan <-chan os.Signal) {
	sub, err := probe.NewSubscriber(cfg.Input.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	if err := sub.Start(cfg.Input.Subject, pl.Process); err != nil {
		log.Fatalf("Failed to subscribe to '%s': %v", cfg.Input.Subject, err)
	}

	<-sigChan
	log.Println("Interrupt received, shutting down...")
}

// loadAttackers reads the optional ground-truth file: one attacker address
// per line, blank lines and '#' comments ignored.
func loadAttackers(path string) (map[string]bool, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	attackers := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		attackers[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	log.Printf("Loaded %d labelled attacker addresses from %s", len(attackers), path)
	return attackers, nil
}
