// Package stats computes inter-window feature vectors from a tail of
// finalized window records. Summarize is a pure function: accumulation
// always walks the tail front to back, so the output is bit-reproducible
// for identical input.
package stats

import (
	"math"

	"NetSentry/internal/model"
)

// Summarize builds the feature vector for one source from the eligible
// tail of its history. historySpan is the full recorded window-id span of
// the source's entry (history.Store.Span); it feeds the inter-window
// activity ratio.
func Summarize(src string, tail []*model.WindowRecord, historySpan int64) *model.FeatureVector {
	if len(tail) == 0 {
		return nil
	}

	first := tail[0]
	newest := tail[len(tail)-1]
	tailSpan := newest.WindowID - first.WindowID + 1

	fv := &model.FeatureVector{
		SrcAddr:     src,
		WindowID:    newest.WindowID,
		WindowEnd:   newest.TstampEnd,
		WindowCount: uint32(len(tail)),
		WindowSpan:  uint32(tailSpan),
		PktSizeMin:  first.PktSizeMin,
		PktSizeMax:  first.PktSizeMax,
	}

	var sumPkts, sumBytes uint64
	var totalTCP, totalUDP, totalICMP uint64

	for _, rec := range tail {
		fv.PktsTotal += float64(rec.PktsTotal)
		fv.BytesTotal += float64(rec.BytesTotal)
		fv.PktArrivalsAvg += rec.PktArrivalsAvg
		fv.PktArrivalsStd += rec.PktArrivalsStd
		fv.PktSizeAvg += rec.PktSizeAvg
		fv.PktSizeStd += rec.PktSizeStd
		fv.ProtoTCPShare += rec.ProtoShare(rec.TCPPktCount)
		fv.ProtoUDPShare += rec.ProtoShare(rec.UDPPktCount)
		fv.ProtoICMPShare += rec.ProtoShare(rec.ICMPPktCount)
		fv.PortSrcUnique += float64(rec.PortSrcUnique)
		fv.PortSrcEntropy += rec.PortSrcEntropy
		fv.ConnPktsAvg += rec.ConnPktsAvg
		fv.PktsFragShare += rec.FragShare()
		fv.HdrsPayloadRatioAvg += rec.HdrsPayloadRatioAvg

		if rec.PktSizeMin < fv.PktSizeMin {
			fv.PktSizeMin = rec.PktSizeMin
		}
		if rec.PktSizeMax > fv.PktSizeMax {
			fv.PktSizeMax = rec.PktSizeMax
		}

		sumPkts += rec.PktsTotal
		sumBytes += rec.BytesTotal
		totalTCP += rec.TCPPktCount
		totalUDP += rec.UDPPktCount
		totalICMP += rec.ICMPPktCount
	}

	n := float64(len(tail))
	fv.PktsTotal /= n
	fv.BytesTotal /= n
	fv.PktArrivalsAvg /= n
	fv.PktArrivalsStd /= n
	fv.PktSizeAvg /= n
	fv.PktSizeStd /= n
	fv.ProtoTCPShare /= n
	fv.ProtoUDPShare /= n
	fv.ProtoICMPShare /= n
	fv.PortSrcUnique /= n
	fv.PortSrcEntropy /= n
	fv.ConnPktsAvg /= n
	fv.PktsFragShare /= n
	fv.HdrsPayloadRatioAvg /= n

	// Rates across the observed time span of the tail.
	if duration := newest.TstampEnd - first.TstampStart; duration > 0 {
		fv.PktRate = float64(sumPkts) / duration
		fv.ByteRate = float64(sumBytes) / duration
	}

	fv.PktsTotalStd = stdOver(tail, func(r *model.WindowRecord) float64 { return float64(r.PktsTotal) })
	fv.BytesTotalStd = stdOver(tail, func(r *model.WindowRecord) float64 { return float64(r.BytesTotal) })
	fv.PktSizeAvgStd = stdOver(tail, func(r *model.WindowRecord) float64 { return r.PktSizeAvg })
	fv.PktSizeStdStd = stdOver(tail, func(r *model.WindowRecord) float64 { return r.PktSizeStd })
	fv.PktArrivalsAvgStd = stdOver(tail, func(r *model.WindowRecord) float64 { return r.PktArrivalsAvg })
	fv.PortSrcUniqueStd = stdOver(tail, func(r *model.WindowRecord) float64 { return float64(r.PortSrcUnique) })
	fv.PortSrcEntropyStd = stdOver(tail, func(r *model.WindowRecord) float64 { return r.PortSrcEntropy })
	fv.ConnPktsAvgStd = stdOver(tail, func(r *model.WindowRecord) float64 { return r.ConnPktsAvg })
	fv.PktsFragShareStd = stdOver(tail, func(r *model.WindowRecord) float64 { return r.FragShare() })
	fv.HdrsPayloadRatioAvgStd = stdOver(tail, func(r *model.WindowRecord) float64 { return r.HdrsPayloadRatioAvg })

	// Dispersion of the dominant L4 protocol's per-window share.
	// Precedence on ties follows TCP, UDP, ICMP.
	switch {
	case totalTCP >= totalUDP && totalTCP >= totalICMP:
		fv.DominantProtoRatioStd = stdOver(tail, func(r *model.WindowRecord) float64 { return r.ProtoShare(r.TCPPktCount) })
	case totalUDP >= totalICMP:
		fv.DominantProtoRatioStd = stdOver(tail, func(r *model.WindowRecord) float64 { return r.ProtoShare(r.UDPPktCount) })
	default:
		fv.DominantProtoRatioStd = stdOver(tail, func(r *model.WindowRecord) float64 { return r.ProtoShare(r.ICMPPktCount) })
	}

	// Activity ratios: tail windows against the tail span, and tail
	// windows against the full recorded history span.
	if tailSpan > 0 {
		fv.IntrawindowActivityRatio = n / float64(tailSpan)
	}
	if historySpan > 0 {
		fv.InterwindowActivityRatio = n / float64(historySpan)
	}

	return fv
}

// stdOver computes the population standard deviation of one per-window
// statistic across the tail, walking front to back in two passes.
func stdOver(tail []*model.WindowRecord, value func(*model.WindowRecord) float64) float64 {
	n := float64(len(tail))
	if n == 0 {
		return 0
	}

	mean := 0.0
	for _, rec := range tail {
		mean += value(rec)
	}
	mean /= n

	sq := 0.0
	for _, rec := range tail {
		d := value(rec) - mean
		sq += d * d
	}
	return math.Sqrt(sq / n)
}
