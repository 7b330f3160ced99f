package model

import "fmt"

// TransportProto identifies the transport protocol of a parsed packet.
type TransportProto uint8

const (
	ProtoOther TransportProto = iota
	ProtoTCP
	ProtoUDP
	ProtoICMP
	ProtoARP
)

// String returns a short protocol name, mostly for logs.
func (p TransportProto) String() string {
	switch p {
	case ProtoTCP:
		return "tcp"
	case ProtoUDP:
		return "udp"
	case ProtoICMP:
		return "icmp"
	case ProtoARP:
		return "arp"
	default:
		return "other"
	}
}

// PacketRecord holds the metadata extracted from a single packet.
// Timestamps are fractional seconds on a monotonic capture clock.
type PacketRecord struct {
	Timestamp float64        `json:"timestamp"`
	Length    int            `json:"length"`
	SrcAddr   string         `json:"src_addr"`
	DstAddr   string         `json:"dst_addr"`
	SrcPort   uint16         `json:"src_port"`
	DstPort   uint16         `json:"dst_port"`
	Proto     TransportProto `json:"proto"`
	Fragment  bool           `json:"fragment"`
	HeaderLen int            `json:"header_len"` // L3 + L4 header bytes
	ConnKey   string         `json:"conn_key"`
}

// ConnectionKey derives the socket-pair grouping key when the parser did
// not fill one in.
func (p *PacketRecord) ConnectionKey() string {
	if p.ConnKey != "" {
		return p.ConnKey
	}
	return fmt.Sprintf("%s:%d->%s:%d", p.SrcAddr, p.SrcPort, p.DstAddr, p.DstPort)
}

// WindowRecord is the finalized statistics row for one source over one
// window. It is immutable once produced by the aggregator.
type WindowRecord struct {
	WindowID   int64  `json:"window_id"`
	PktsTotal  uint64 `json:"pkts_total"`
	BytesTotal uint64 `json:"bytes_total"`

	TstampStart float64 `json:"tstamp_start"`
	TstampEnd   float64 `json:"tstamp_end"`
	PktRate     float64 `json:"pkt_rate"`
	ByteRate    float64 `json:"byte_rate"`

	PktArrivalsAvg float64 `json:"pkt_arrivals_avg"`
	PktArrivalsStd float64 `json:"pkt_arrivals_std"`

	PktSizeMin uint32  `json:"pkt_size_min"`
	PktSizeMax uint32  `json:"pkt_size_max"`
	PktSizeAvg float64 `json:"pkt_size_avg"`
	PktSizeStd float64 `json:"pkt_size_std"`

	TCPPktCount  uint64 `json:"tcp_pkt_count"`
	UDPPktCount  uint64 `json:"udp_pkt_count"`
	ICMPPktCount uint64 `json:"icmp_pkt_count"`

	PortSrcUnique  uint32  `json:"port_src_unique"`
	PortSrcEntropy float64 `json:"port_src_entropy"`

	ConnPktsAvg float64 `json:"conn_pkts_avg"`

	PktsFragCount       uint64  `json:"pkts_frag_count"`
	HdrsPayloadRatioAvg float64 `json:"hdrs_payload_ratio_avg"`
}

// ProtoShare returns the window share of the given protocol counter.
func (w *WindowRecord) ProtoShare(count uint64) float64 {
	if w.PktsTotal == 0 {
		return 0
	}
	return float64(count) / float64(w.PktsTotal)
}

// FragShare returns the fragmented-packet share of the window.
func (w *WindowRecord) FragShare() float64 {
	return w.ProtoShare(w.PktsFragCount)
}

// FeatureVector is the inter-window aggregate emitted for scoring. Plain
// fields are means across the summarized tail unless stated otherwise;
// the _std fields are population standard deviations across the same tail.
type FeatureVector struct {
	SrcAddr   string  `json:"src_addr"`
	WindowID  int64   `json:"window_id"`  // finalizing window
	WindowEnd float64 `json:"window_end"` // newest packet timestamp in the tail

	WindowCount uint32 `json:"window_count"`
	WindowSpan  uint32 `json:"window_span"`

	PktsTotal  float64 `json:"pkts_total"`
	BytesTotal float64 `json:"bytes_total"`
	PktRate    float64 `json:"pkt_rate"`
	ByteRate   float64 `json:"byte_rate"`

	PktArrivalsAvg float64 `json:"pkt_arrivals_avg"`
	PktArrivalsStd float64 `json:"pkt_arrivals_std"`

	PktSizeMin uint32  `json:"pkt_size_min"`
	PktSizeMax uint32  `json:"pkt_size_max"`
	PktSizeAvg float64 `json:"pkt_size_avg"`
	PktSizeStd float64 `json:"pkt_size_std"`

	ProtoTCPShare  float64 `json:"proto_tcp_share"`
	ProtoUDPShare  float64 `json:"proto_udp_share"`
	ProtoICMPShare float64 `json:"proto_icmp_share"`

	PortSrcUnique  float64 `json:"port_src_unique"`
	PortSrcEntropy float64 `json:"port_src_entropy"`

	ConnPktsAvg float64 `json:"conn_pkts_avg"`

	PktsFragShare       float64 `json:"pkts_frag_share"`
	HdrsPayloadRatioAvg float64 `json:"hdrs_payload_ratio_avg"`

	PktsTotalStd           float64 `json:"pkts_total_std"`
	BytesTotalStd          float64 `json:"bytes_total_std"`
	PktSizeAvgStd          float64 `json:"pkt_size_avg_std"`
	PktSizeStdStd          float64 `json:"pkt_size_std_std"`
	PktArrivalsAvgStd      float64 `json:"pkt_arrivals_avg_std"`
	PortSrcUniqueStd       float64 `json:"port_src_unique_std"`
	PortSrcEntropyStd      float64 `json:"port_src_entropy_std"`
	ConnPktsAvgStd         float64 `json:"conn_pkts_avg_std"`
	PktsFragShareStd       float64 `json:"pkts_frag_share_std"`
	HdrsPayloadRatioAvgStd float64 `json:"hdrs_payload_ratio_avg_std"`
	DominantProtoRatioStd  float64 `json:"dominant_proto_ratio_std"`

	IntrawindowActivityRatio float64 `json:"intrawindow_activity_ratio"`
	InterwindowActivityRatio float64 `json:"interwindow_activity_ratio"`
}
