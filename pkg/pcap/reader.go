package pcap

import (
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"NetSentry/internal/engine/protocol"
	"NetSentry/internal/metrics"
	"NetSentry/internal/model"
)

// Reader reads packets from a pcap file.
type Reader struct {
	handle *pcap.Handle
}

// NewReader creates a new pcap reader for the given file path.
func NewReader(filePath string) (*Reader, error) {
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, err
	}
	return &Reader{handle: handle}, nil
}

// Close closes the pcap handle.
func (r *Reader) Close() {
	r.handle.Close()
}

// ReadPackets reads all packets from the pcap file and sends the parsed
// PacketRecords to the provided channel. Malformed packets are skipped and
// counted, never fatal. The channel is closed when the file is exhausted.
func (r *Reader) ReadPackets(out chan<- *model.PacketRecord) {
	defer close(out)

	skipped := 0
	packetSource := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	for packet := range packetSource.Packets() {
		rec, err := protocol.ParsePacket(packet)
		if err != nil {
			metrics.MalformedSkipped.Inc()
			skipped++
			continue
		}
		out <- rec
	}

	if skipped > 0 {
		log.Printf("Skipped %d unparseable packets while reading pcap", skipped)
	}
}
