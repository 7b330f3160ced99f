package protocol

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"NetSentry/internal/model"
)

// ParsePacket decodes a captured packet into a PacketRecord. Non-IP,
// non-ARP packets and truncated headers are reported as errors so callers
// can skip and count them without aborting the stream.
func ParsePacket(packet gopacket.Packet) (*model.PacketRecord, error) {
	rec := &model.PacketRecord{
		Timestamp: timestampSeconds(packet),
		Length:    len(packet.Data()),
	}

	// ARP has no L3 header; record the sender/target addresses directly.
	if l := packet.Layer(layers.LayerTypeARP); l != nil {
		arp := l.(*layers.ARP)
		rec.Proto = model.ProtoARP
		rec.SrcAddr = fmt.Sprintf("%d.%d.%d.%d", arp.SourceProtAddress[0], arp.SourceProtAddress[1], arp.SourceProtAddress[2], arp.SourceProtAddress[3])
		rec.DstAddr = fmt.Sprintf("%d.%d.%d.%d", arp.DstProtAddress[0], arp.DstProtAddress[1], arp.DstProtAddress[2], arp.DstProtAddress[3])
		rec.HeaderLen = 28
		rec.ConnKey = rec.ConnectionKey()
		return rec, nil
	}

	if l := packet.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		rec.SrcAddr = ip.SrcIP.String()
		rec.DstAddr = ip.DstIP.String()
		rec.HeaderLen = int(ip.IHL) * 4
		rec.Fragment = ip.FragOffset > 0 || ip.Flags&layers.IPv4MoreFragments != 0
	} else if l := packet.Layer(layers.LayerTypeIPv6); l != nil {
		ip := l.(*layers.IPv6)
		rec.SrcAddr = ip.SrcIP.String()
		rec.DstAddr = ip.DstIP.String()
		rec.HeaderLen = 40
		if packet.Layer(layers.LayerTypeIPv6Fragment) != nil {
			rec.Fragment = true
		}
	} else {
		return nil, fmt.Errorf("not an IP or ARP packet")
	}

	switch {
	case packet.Layer(layers.LayerTypeTCP) != nil:
		tcp := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
		rec.Proto = model.ProtoTCP
		rec.SrcPort = uint16(tcp.SrcPort)
		rec.DstPort = uint16(tcp.DstPort)
		rec.HeaderLen += int(tcp.DataOffset) * 4
	case packet.Layer(layers.LayerTypeUDP) != nil:
		udp := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		rec.Proto = model.ProtoUDP
		rec.SrcPort = uint16(udp.SrcPort)
		rec.DstPort = uint16(udp.DstPort)
		rec.HeaderLen += 8
	case packet.Layer(layers.LayerTypeICMPv4) != nil,
		packet.Layer(layers.LayerTypeICMPv6) != nil:
		rec.Proto = model.ProtoICMP
		rec.HeaderLen += 8
	default:
		rec.Proto = model.ProtoOther
	}

	rec.ConnKey = rec.ConnectionKey()
	return rec, nil
}

// timestampSeconds extracts the capture timestamp as fractional seconds,
// falling back to wall-clock time for sources without capture metadata.
func timestampSeconds(packet gopacket.Packet) float64 {
	ts := time.Now()
	if meta := packet.Metadata(); meta != nil && !meta.Timestamp.IsZero() {
		ts = meta.Timestamp
	}
	return float64(ts.UnixNano()) / float64(time.Second)
}
