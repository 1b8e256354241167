package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/sirupsen/logrus"
)

// SweepConfig controls the active ARP sweep.
type SweepConfig struct {
	// RateLimit introduces a delay between ARP requests to avoid overrunning buffers.
	// Defaults to 50µs if unset or <= 0.
	RateLimit time.Duration
	// IdleWait is how long to wait for late replies after sending probes.
	// Defaults to 500ms if unset or <= 0.
	IdleWait time.Duration
	// MaxHosts caps how many hosts are probed. The wireless-debugging use case
	// only needs the local /24, so the default is 254; <= 0 disables the cap.
	MaxHosts int
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.RateLimit <= 0 {
		c.RateLimit = 50 * time.Microsecond
	}
	if c.IdleWait <= 0 {
		c.IdleWait = 500 * time.Millisecond
	}
	if c.MaxHosts == 0 {
		c.MaxHosts = 254
	}
	return c
}

// Sweep broadcasts an ARP request for every address on the interface's IPv4
// subnet and returns the hosts that replied, sorted by address. It needs the
// privileges pcap needs.
func Sweep(ctx context.Context, interfaceName string, cfg SweepConfig) ([]Host, error) {
	config := cfg.withDefaults()

	iface, err := net.InterfaceByName(interfaceName)
	if err != nil {
		return nil, fmt.Errorf("could not get interface: %v", err)
	}
	localIP, localNet, err := interfaceIPv4(iface)
	if err != nil {
		return nil, err
	}
	// One extra slot so skipping our own address still leaves MaxHosts probes.
	limit := config.MaxHosts
	if limit > 0 {
		limit++
	}
	targets := subnetHosts(localIP, localNet, limit)
	if len(targets) == 0 {
		return nil, fmt.Errorf("no addresses to sweep on %s (%s)", interfaceName, localNet)
	}

	handle, err := pcap.OpenLive(interfaceName, 65536, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("could not open handle: %v", err)
	}
	defer handle.Close()

	if err := handle.SetBPFFilter("arp"); err != nil {
		return nil, fmt.Errorf("could not set BPF filter: %v", err)
	}

	found := make(map[string]Host)
	var mu sync.Mutex
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		in := gopacket.NewPacketSource(handle, layers.LayerTypeEthernet).Packets()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case packet, ok := <-in:
				if !ok {
					return
				}
				host, ok := arpReply(packet, localIP, localNet)
				if !ok {
					continue
				}
				mu.Lock()
				if _, exists := found[host.IP.String()]; !exists {
					found[host.IP.String()] = host
				}
				mu.Unlock()
			}
		}
	}()

	ticker := time.NewTicker(config.RateLimit)
	defer ticker.Stop()

	sent := 0
	for _, target := range targets {
		if config.MaxHosts > 0 && sent >= config.MaxHosts {
			break
		}
		if target.Equal(localIP) {
			continue
		}
		select {
		case <-ctx.Done():
			close(done)
			wg.Wait()
			return nil, ctx.Err()
		case <-ticker.C:
		}
		if err := sendARPRequest(handle, iface, localIP, target); err != nil {
			continue
		}
		sent++
	}

	wait := time.NewTimer(config.IdleWait)
	defer wait.Stop()
	select {
	case <-ctx.Done():
	case <-wait.C:
	}
	close(done)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	result := make([]Host, 0, len(found))
	for _, host := range found {
		result = append(result, host)
	}
	sort.Slice(result, func(i, j int) bool {
		return bytes.Compare(result[i].IP, result[j].IP) < 0
	})
	return result, nil
}

func interfaceIPv4(iface *net.Interface) (net.IP, *net.IPNet, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, nil, fmt.Errorf("could not get interface addresses: %v", err)
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4, ipnet, nil
			}
		}
	}
	return nil, nil, errors.New("no IPv4 address found on interface")
}

// subnetHosts lists the addresses to probe around local, excluding the
// network and broadcast addresses. Networks wider than a /24 are narrowed to
// local's own /24; point-to-point links (/31, /32) have nothing to sweep.
// At most limit addresses are returned when limit > 0.
func subnetHosts(local net.IP, n *net.IPNet, limit int) []net.IP {
	base := local.To4()
	if base == nil {
		return nil
	}
	ones, bits := n.Mask.Size()
	if bits != 32 || ones >= 31 {
		return nil
	}
	if ones < 24 {
		ones = 24
	}

	start := make(net.IP, 4)
	broadcast := make(net.IP, 4)
	mask := net.CIDRMask(ones, 32)
	for i := range start {
		start[i] = base[i] & mask[i]
		broadcast[i] = start[i] | ^mask[i]
	}

	var hosts []net.IP
	cur := make(net.IP, 4)
	copy(cur, start)
	for inc(cur); !cur.Equal(broadcast); inc(cur) {
		if limit > 0 && len(hosts) >= limit {
			break
		}
		ip := make(net.IP, 4)
		copy(ip, cur)
		hosts = append(hosts, ip)
	}
	return hosts
}

func inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}

func arpReply(packet gopacket.Packet, localIP net.IP, localNet *net.IPNet) (Host, bool) {
	layer := packet.Layer(layers.LayerTypeARP)
	if layer == nil {
		return Host{}, false
	}
	arp := layer.(*layers.ARP)
	if arp.Operation != layers.ARPReply {
		return Host{}, false
	}
	ip := net.IP(arp.SourceProtAddress)
	if !localNet.Contains(ip) || ip.Equal(localIP) {
		return Host{}, false
	}
	return Host{IP: ip, MAC: net.HardwareAddr(arp.SourceHwAddress)}, true
}

// sendARPRequest sends a single ARP request
func sendARPRequest(handle *pcap.Handle, iface *net.Interface, srcIP, dstIP net.IP) error {
	eth := layers.Ethernet{
		SrcMAC:       iface.HardwareAddr,
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeARP,
	}
	arp := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte(iface.HardwareAddr),
		SourceProtAddress: []byte(srcIP.To4()),
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte(dstIP.To4()),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}
	if err := gopacket.SerializeLayers(buf, opts, &eth, &arp); err != nil {
		return err
	}
	return handle.WritePacketData(buf.Bytes())
}

// SweepFunc matches Sweep so tests can replace the pcap-backed sweep.
type SweepFunc func(ctx context.Context, interfaceName string, cfg SweepConfig) ([]Host, error)

// SweepingSource runs an ARP sweep when an interface is set, then reads the
// neighbor table, which now also holds whatever the sweep stirred up. Hosts
// that answered the sweep but are missing from the table are appended.
type SweepingSource struct {
	Table     NeighborSource
	Interface string
	Config    SweepConfig
	Sweep     SweepFunc
	Log       logrus.FieldLogger
}

func (s *SweepingSource) Neighbors(ctx context.Context) ([]netip.Addr, error) {
	if s.Interface == "" {
		return s.Table.Neighbors(ctx)
	}

	sweep := s.Sweep
	if sweep == nil {
		sweep = Sweep
	}
	hosts, err := sweep(ctx, s.Interface, s.Config)
	if err != nil && s.Log != nil {
		s.Log.WithError(err).WithField("interface", s.Interface).Warn("arp sweep failed")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	addrs, tableErr := s.Table.Neighbors(ctx)
	if len(hosts) == 0 {
		return addrs, tableErr
	}

	seen := make(map[netip.Addr]bool, len(addrs))
	for _, a := range addrs {
		seen[a] = true
	}
	for _, h := range hosts {
		a, ok := netip.AddrFromSlice(h.IP.To4())
		if !ok || seen[a] {
			continue
		}
		seen[a] = true
		addrs = append(addrs, a)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: no neighbors", ErrMethodFailed)
	}
	return addrs, nil
}
