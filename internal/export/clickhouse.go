package export

import (
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"NetSentry/internal/config"
	"NetSentry/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS source_features (
    SrcAddr                  String,
    WindowID                 Int64,
    WindowEnd                Float64,
    WindowCount              UInt32,
    WindowSpan               UInt32,
    PktsTotal                Float64,
    BytesTotal               Float64,
    PktRate                  Float64,
    ByteRate                 Float64,
    PktArrivalsAvg           Float64,
    PktArrivalsStd           Float64,
    PktSizeMin               UInt32,
    PktSizeMax               UInt32,
    PktSizeAvg               Float64,
    PktSizeStd               Float64,
    ProtoTCPShare            Float64,
    ProtoUDPShare            Float64,
    ProtoICMPShare           Float64,
    PortSrcUnique            Float64,
    PortSrcEntropy           Float64,
    ConnPktsAvg              Float64,
    PktsFragShare            Float64,
    HdrsPayloadRatioAvg      Float64,
    PktsTotalStd             Float64,
    BytesTotalStd            Float64,
    PktSizeAvgStd            Float64,
    PktSizeStdStd            Float64,
    PktArrivalsAvgStd        Float64,
    PortSrcUniqueStd         Float64,
    PortSrcEntropyStd        Float64,
    ConnPktsAvgStd           Float64,
    PktsFragShareStd         Float64,
    HdrsPayloadRatioAvgStd   Float64,
    DominantProtoRatioStd    Float64,
    IntrawindowActivityRatio Float64,
    InterwindowActivityRatio Float64
) ENGINE = MergeTree()
ORDER BY (SrcAddr, WindowID);
`

// ClickHouseWriter persists emitted feature vectors in ClickHouse for
// offline analysis and model training. It implements model.FeatureWriter.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the feature table
// exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// WriteFeatures inserts a batch of feature vectors into source_features.
func (w *ClickHouseWriter) WriteFeatures(ctx context.Context, vectors []*model.FeatureVector) error {
	if len(vectors) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO source_features")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, fv := range vectors {
		err = batch.Append(
			fv.SrcAddr,
			fv.WindowID,
			fv.WindowEnd,
			fv.WindowCount,
			fv.WindowSpan,
			fv.PktsTotal,
			fv.BytesTotal,
			fv.PktRate,
			fv.ByteRate,
			fv.PktArrivalsAvg,
			fv.PktArrivalsStd,
			fv.PktSizeMin,
			fv.PktSizeMax,
			fv.PktSizeAvg,
			fv.PktSizeStd,
			fv.ProtoTCPShare,
			fv.ProtoUDPShare,
			fv.ProtoICMPShare,
			fv.PortSrcUnique,
			fv.PortSrcEntropy,
			fv.ConnPktsAvg,
			fv.PktsFragShare,
			fv.HdrsPayloadRatioAvg,
			fv.PktsTotalStd,
			fv.BytesTotalStd,
			fv.PktSizeAvgStd,
			fv.PktSizeStdStd,
			fv.PktArrivalsAvgStd,
			fv.PortSrcUniqueStd,
			fv.PortSrcEntropyStd,
			fv.ConnPktsAvgStd,
			fv.PktsFragShareStd,
			fv.HdrsPayloadRatioAvgStd,
			fv.DominantProtoRatioStd,
			fv.IntrawindowActivityRatio,
			fv.InterwindowActivityRatio,
		)
		if err != nil {
			return fmt.Errorf("failed to append feature vector to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d feature vectors to ClickHouse", len(vectors))
	return nil
}

// Close releases the ClickHouse connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
