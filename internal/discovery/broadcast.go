// ABOUTME: UDP broadcast discovery spoken by the SoundDrift Android app
// ABOUTME: Requests go to port 55558 and phones answer with a JSON device name
package discovery

import (
	"bytes"
	"encoding/json"
	"net"
	"strconv"
	"time"

	"github.com/SoundDrift/sounddrift-go/pkg/source"
	"github.com/charmbracelet/log"
)

const (
	// DiscoveryPort is the UDP port phones listen on for discovery requests
	DiscoveryPort = 55558

	// DiscoveryMessage is the payload of a discovery request
	DiscoveryMessage = "SoundDriftDiscovery"

	broadcastInterval = 3 * time.Second
	maxReplySize      = 2048
)

// discoveryReply is the answer to a discovery request. Phones send only deviceName and stream
// on the default port; the development server adds its port.
type discoveryReply struct {
	DeviceName string `json:"deviceName"`
	Port       int    `json:"port,omitempty"`
}

// BroadcastAddresses returns the request destinations: the directed broadcast
// address of every IPv4 interface that is up, plus 255.255.255.255.
func BroadcastAddresses() []string {
	var addrs []string
	seen := make(map[string]bool)
	add := func(ip net.IP) {
		addr := net.JoinHostPort(ip.String(), strconv.Itoa(DiscoveryPort))
		if !seen[addr] {
			seen[addr] = true
			addrs = append(addrs, addr)
		}
	}

	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
				continue
			}
			ifAddrs, err := iface.Addrs()
			if err != nil {
				continue
			}
			for _, a := range ifAddrs {
				if ipnet, ok := a.(*net.IPNet); ok {
					if bcast := broadcastAddr(ipnet); bcast != nil {
						add(bcast)
					}
				}
			}
		}
	}

	add(net.IPv4bcast)
	return addrs
}

// broadcastAddr returns ip | ^mask for IPv4 networks, nil otherwise
func broadcastAddr(ipnet *net.IPNet) net.IP {
	ip := ipnet.IP.To4()
	if ip == nil || len(ipnet.Mask) != net.IPv4len {
		return nil
	}
	bcast := make(net.IP, net.IPv4len)
	for i := range ip {
		bcast[i] = ip[i] | ^ipnet.Mask[i]
	}
	return bcast
}

// broadcastLoop sends requests every broadcastInterval and forwards replies until Stop
func (m *Manager) broadcastLoop() {
	conn, err := m.listenPacket("udp4", ":0")
	if err != nil {
		log.Debug("Discovery socket failed", "error", err)
		return
	}
	go func() {
		<-m.ctx.Done()
		conn.Close()
	}()

	go m.readReplies(conn)

	ticker := time.NewTicker(broadcastInterval)
	defer ticker.Stop()

	for {
		m.sendRequests(conn)

		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) sendRequests(conn net.PacketConn) {
	for _, target := range m.targets() {
		addr, err := net.ResolveUDPAddr("udp4", target)
		if err != nil {
			log.Debug("Bad discovery target", "target", target, "error", err)
			continue
		}
		if _, err := conn.WriteTo([]byte(DiscoveryMessage), addr); err != nil {
			log.Debug("Discovery request failed", "target", target, "error", err)
		}
	}
}

func (m *Manager) readReplies(conn net.PacketConn) {
	buf := make([]byte, maxReplySize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}

		server := replyToServer(buf[:n], from)
		if server == nil {
			continue
		}

		log.Debug("Discovered phone", "name", server.Name, "addr", server.Addr())

		select {
		case m.servers <- server:
		case <-m.ctx.Done():
			return
		}
	}
}

// replyToServer parses a discovery reply. The sender's address is the phone.
func replyToServer(msg []byte, from net.Addr) *ServerInfo {
	msg = bytes.TrimSpace(msg)
	if len(msg) < 2 || msg[0] != '{' || msg[len(msg)-1] != '}' {
		return nil
	}

	var reply discoveryReply
	if err := json.Unmarshal(msg, &reply); err != nil || reply.DeviceName == "" {
		return nil
	}

	udp, ok := from.(*net.UDPAddr)
	if !ok || udp.IP == nil {
		return nil
	}

	port := reply.Port
	if port <= 0 || port > 65535 {
		port = source.DefaultPort
	}

	return &ServerInfo{
		Name: reply.DeviceName,
		Host: udp.IP.String(),
		Port: port,
	}
}

// AnswerDiscovery replies to discovery requests on conn with the configured
// service name and port until Stop is called. conn is closed on Stop.
func (m *Manager) AnswerDiscovery(conn net.PacketConn) error {
	reply, err := json.Marshal(discoveryReply{DeviceName: m.config.ServiceName, Port: m.config.Port})
	if err != nil {
		return err
	}

	log.Info("Answering discovery requests", "addr", conn.LocalAddr().String(), "name", m.config.ServiceName)

	go func() {
		<-m.ctx.Done()
		conn.Close()
	}()

	go func() {
		buf := make([]byte, maxReplySize)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if string(bytes.TrimSpace(buf[:n])) != DiscoveryMessage {
				continue
			}
			if _, err := conn.WriteTo(reply, from); err != nil {
				log.Debug("Discovery reply failed", "to", from.String(), "error", err)
			}
		}
	}()

	return nil
}
