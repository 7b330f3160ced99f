// Package pipeline wires the windowing engine, history store, statistics
// engine, scorer, and mitigation engine into a sharded packet-processing
// loop. Sources are hashed onto shard workers so all per-source state is
// owned by exactly one goroutine and windows finalize in id order.
package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"runtime"
	"sync"
	"time"

	"NetSentry/internal/config"
	"NetSentry/internal/engine/history"
	"NetSentry/internal/engine/stats"
	"NetSentry/internal/engine/window"
	"NetSentry/internal/metrics"
	"NetSentry/internal/mitigation"
	"NetSentry/internal/model"
)

const (
	packetChanSize  = 1024
	featureChanSize = 256
	writeBatchSize  = 256
	writerInterval  = 5 * time.Second
	writerTimeout   = 10 * time.Second
)

// shard owns the windowing state for one slice of the source space.
type shard struct {
	input chan *model.PacketRecord
	agg   *window.Aggregator
	hist  *history.Store
}

// Pipeline is the processing engine: packets in, scored mitigation
// decisions and persisted feature vectors out.
type Pipeline struct {
	shards    []*shard
	numShards uint32

	mitigator *mitigation.Engine
	scorer    model.Scorer
	writer    model.FeatureWriter

	featureChan chan *model.FeatureVector
	writeChan   chan *model.FeatureVector

	scorerTimeout time.Duration
	numScorers    int

	shardWg  sync.WaitGroup
	scorerWg sync.WaitGroup
	writerWg sync.WaitGroup
}

// New creates a pipeline from the engine configuration. writer may be nil
// when no feature persistence is configured.
func New(cfg *config.Config, sc model.Scorer, mit *mitigation.Engine, writer model.FeatureWriter) (*Pipeline, error) {
	e := cfg.Engine

	scorerTimeout, err := time.ParseDuration(e.ScorerTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid scorer_timeout: %w", err)
	}

	numShards := e.NumShards
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}

	p := &Pipeline{
		shards:        make([]*shard, numShards),
		numShards:     uint32(numShards),
		mitigator:     mit,
		scorer:        sc,
		writer:        writer,
		featureChan:   make(chan *model.FeatureVector, featureChanSize),
		scorerTimeout: scorerTimeout,
		numScorers:    e.NumScorers,
	}
	for i := 0; i < numShards; i++ {
		p.shards[i] = &shard{
			input: make(chan *model.PacketRecord, packetChanSize),
			agg:   window.NewAggregator(e.WindowLength, e.SamplesSize, e.SampleSeed+int64(i)),
			hist:  history.NewStore(e.HistoryMin, e.HistorySize, e.HistoryTimeout, e.PacketsMin),
		}
	}
	if writer != nil {
		p.writeChan = make(chan *model.FeatureVector, featureChanSize)
	}
	return p, nil
}

// Start launches the shard workers, the scorer pool, and the feature
// writer.
func (p *Pipeline) Start() {
	p.shardWg.Add(len(p.shards))
	for _, sh := range p.shards {
		go p.shardWorker(sh)
	}

	p.scorerWg.Add(p.numScorers)
	for i := 0; i < p.numScorers; i++ {
		go p.scorerWorker()
	}

	if p.writeChan != nil {
		p.writerWg.Add(1)
		go p.writerWorker()
	}

	log.Printf("Pipeline started with %d shards and %d scorer workers.", len(p.shards), p.numScorers)
}

// Process routes one packet record to its shard. Per-source ordering is
// preserved because a source always hashes to the same shard.
func (p *Pipeline) Process(pkt *model.PacketRecord) {
	hasher := fnv.New32a()
	hasher.Write([]byte(pkt.SrcAddr))
	p.shards[hasher.Sum32()%p.numShards].input <- pkt
}

// Stop drains the pipeline: shard inputs are closed, every open window is
// flushed and pushed through scoring, then the scorer pool and writer shut
// down. No accumulated data is silently dropped.
func (p *Pipeline) Stop() {
	log.Println("Pipeline stopping...")
	for _, sh := range p.shards {
		close(sh.input)
	}
	p.shardWg.Wait()

	close(p.featureChan)
	p.scorerWg.Wait()

	if p.writeChan != nil {
		close(p.writeChan)
		p.writerWg.Wait()
	}
	log.Println("Pipeline stopped.")
}

// LateDropped returns the total number of late packets dropped across all
// shards. Only meaningful once the shard workers have stopped.
func (p *Pipeline) LateDropped() uint64 {
	var total uint64
	for _, sh := range p.shards {
		total += sh.agg.LateDropped()
	}
	return total
}

func (p *Pipeline) shardWorker(sh *shard) {
	defer p.shardWg.Done()

	for pkt := range sh.input {
		metrics.PacketsProcessed.Inc()
		p.mitigator.Filter(pkt.SrcAddr, pkt.Timestamp)

		lateBefore := sh.agg.LateDropped()
		rec := sh.agg.Observe(pkt)
		if sh.agg.LateDropped() > lateBefore {
			metrics.LateDropped.Inc()
			continue
		}
		if rec != nil {
			p.emit(sh, pkt.SrcAddr, rec)
		}
	}

	// End of stream: finalize every open window with whatever partial
	// data it accumulated.
	for _, fin := range sh.agg.Flush() {
		p.emit(sh, fin.Src, fin.Record)
	}
}

// emit pushes a finalized window into the source's history and, when the
// history tail becomes eligible, hands the resulting feature vector to the
// scorer pool and the feature writer. At most one vector is produced per
// (source, completed window).
func (p *Pipeline) emit(sh *shard, src string, rec *model.WindowRecord) {
	sh.hist.Push(src, rec)

	tail := sh.hist.EligibleTail(src)
	if tail == nil {
		return
	}

	fv := stats.Summarize(src, tail, sh.hist.Span(src))
	metrics.VectorsEmitted.Inc()
	p.featureChan <- fv

	if p.writeChan != nil {
		select {
		case p.writeChan <- fv:
		default:
			// A stalled sink must not back-pressure the packet path.
			log.Printf("Feature writer queue full, dropping vector for %s (window %d)", src, fv.WindowID)
		}
	}
}

func (p *Pipeline) scorerWorker() {
	defer p.scorerWg.Done()

	for fv := range p.featureChan {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), p.scorerTimeout)
		verdict, err := p.scorer.Score(ctx, fv)
		cancel()
		metrics.ScorerLatency.Observe(time.Since(start).Seconds())

		if err != nil {
			// Fail-open: the source stays monitored until a verdict lands.
			metrics.ScorerErrors.Inc()
			log.Printf("Scorer failed for %s (window %d): %v", fv.SrcAddr, fv.WindowID, err)
			continue
		}
		p.mitigator.Classify(fv.SrcAddr, fv.WindowEnd, verdict)
	}
}

func (p *Pipeline) writerWorker() {
	defer p.writerWg.Done()

	ticker := time.NewTicker(writerInterval)
	defer ticker.Stop()

	batch := make([]*model.FeatureVector, 0, writeBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writerTimeout)
		if err := p.writer.WriteFeatures(ctx, batch); err != nil {
			log.Printf("Error writing feature batch: %v", err)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case fv, ok := <-p.writeChan:
			if !ok {
				flush()
				return
			}
			batch = append(batch, fv)
			if len(batch) >= writeBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
