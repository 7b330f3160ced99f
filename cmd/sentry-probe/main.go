package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"NetSentry/internal/engine/protocol"
	"NetSentry/internal/model"
	"NetSentry/internal/probe"
)

// sentry-probe captures packets at the network edge, parses them into
// packet records, and publishes them over NATS for a remote engine to
// process. It can read from a live interface or replay a capture file.
// The sub mode tails a record stream for debugging.
func main() {
	mode := flag.String("mode", "pub", "\"pub\" to capture and publish, \"sub\" to tail a record stream")
	iface := flag.String("iface", "", "Network interface to capture from")
	pcapFile := flag.String("pcap", "", "Pcap file to replay instead of live capture")
	natsURL := flag.String("nats", "nats://127.0.0.1:4222", "NATS server URL")
	subject := flag.String("subject", "netsentry.packets", "NATS subject for packet records")
	bpf := flag.String("filter", "", "Optional BPF filter expression")
	snaplen := flag.Int("snaplen", 1600, "Capture snapshot length in bytes")
	flag.Parse()

	if *mode == "sub" {
		runSub(*natsURL, *subject)
		return
	}
	if *mode != "pub" {
		log.Fatalf("Unknown mode: %q (want \"pub\" or \"sub\")", *mode)
	}

	if (*iface == "") == (*pcapFile == "") {
		log.Fatal("Exactly one of -iface or -pcap must be given")
	}

	handle, err := openHandle(*iface, *pcapFile, *snaplen)
	if err != nil {
		log.Fatalf("Failed to open capture source: %v", err)
	}
	defer handle.Close()

	if *bpf != "" {
		if err := handle.SetBPFFilter(*bpf); err != nil {
			log.Fatalf("Failed to set BPF filter %q: %v", *bpf, err)
		}
	}

	publisher, err := probe.NewPublisher(*natsURL, *subject)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer publisher.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packets := packetSource.Packets()

	var published, skipped uint64
	log.Println("Probe started, publishing packet records...")
	for {
		select {
		case packet, ok := <-packets:
			if !ok {
				log.Printf("Capture source exhausted: %d records published, %d packets skipped", published, skipped)
				return
			}
			rec, err := protocol.ParsePacket(packet)
			if err != nil {
				skipped++
				continue
			}
			if err := publisher.Publish(rec); err != nil {
				log.Printf("Failed to publish packet record: %v", err)
				continue
			}
			published++
		case <-sigChan:
			log.Printf("Interrupt received: %d records published, %d packets skipped", published, skipped)
			return
		}
	}
}

// runSub tails the record stream on the given subject and logs each
// received record.
func runSub(natsURL, subject string) {
	sub, err := probe.NewSubscriber(natsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	err = sub.Start(subject, func(rec *model.PacketRecord) {
		log.Printf("[%.6f] %s %s:%d -> %s:%d len=%d frag=%v",
			rec.Timestamp, rec.Proto, rec.SrcAddr, rec.SrcPort, rec.DstAddr, rec.DstPort, rec.Length, rec.Fragment)
	})
	if err != nil {
		log.Fatalf("Failed to subscribe to '%s': %v", subject, err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Interrupt received, shutting down...")
}

func openHandle(iface, pcapFile string, snaplen int) (*pcap.Handle, error) {
	if pcapFile != "" {
		log.Printf("Replaying pcap file '%s'", pcapFile)
		return pcap.OpenOffline(pcapFile)
	}
	log.Printf("Capturing live from interface '%s'", iface)
	return pcap.OpenLive(iface, int32(snaplen), true, pcap.BlockForever)
}
