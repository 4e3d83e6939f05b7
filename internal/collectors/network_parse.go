package collectors

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// The connection-table and neighbour-table parsers below are positional
// heuristics against human-oriented tool output. Lines that don't match the
// expected shape are dropped without logging.

// parseListeningPorts extracts ports from connection-table lines of the form
//
//	<any> TCP <local-addr>:<port> LISTENING
//
// Duplicates are kept: the same port can listen on several local addresses.
func parseListeningPorts(lines []string) []int {
	ports := []int{}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) != 4 || fields[1] != "TCP" || fields[3] != "LISTENING" {
			continue
		}

		local := fields[2]
		port, err := strconv.Atoi(local[strings.LastIndex(local, ":")+1:])
		if err != nil || port < 1 || port > 65535 {
			continue
		}
		ports = append(ports, port)
	}
	return ports
}

// listeningPorts picks LISTEN sockets out of a native connection list
func listeningPorts(conns []psnet.ConnectionStat) []int {
	ports := []int{}
	for _, c := range conns {
		if c.Status != "LISTEN" || c.Laddr.Port == 0 || c.Laddr.Port > 65535 {
			continue
		}
		ports = append(ports, int(c.Laddr.Port))
	}
	return ports
}

// parseNeighborTable skips headerLines lines, then keeps lines of exactly
// three fields: IP, MAC, type
func parseNeighborTable(lines []string, headerLines int) []ConnectedDevice {
	devices := []ConnectedDevice{}
	if headerLines >= len(lines) {
		return devices
	}

	for _, line := range lines[headerLines:] {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		devices = append(devices, ConnectedDevice{
			IP:   fields[0],
			MAC:  fields[1],
			Type: fields[2],
		})
	}
	return devices
}

// ATF_PERM in the /proc/net/arp flags column marks a static entry
const arpFlagPermanent = 0x4

// parseProcARP reads the kernel ARP table format:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
func parseProcARP(r io.Reader) ([]ConnectedDevice, error) {
	devices := []ConnectedDevice{}
	scanner := bufio.NewScanner(r)

	// Skip header line
	if !scanner.Scan() {
		return devices, scanner.Err()
	}

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}

		ip, flagText, hwAddr := fields[0], fields[2], fields[3]

		flags, err := strconv.ParseUint(strings.TrimPrefix(flagText, "0x"), 16, 32)
		if err != nil || flags == 0 {
			// 0x0 = incomplete entry
			continue
		}
		if hwAddr == "00:00:00:00:00:00" || hwAddr == "*" {
			continue
		}
		if net.ParseIP(ip) == nil {
			continue
		}

		entryType := "dynamic"
		if flags&arpFlagPermanent != 0 {
			entryType = "static"
		}
		devices = append(devices, ConnectedDevice{IP: ip, MAC: hwAddr, Type: entryType})
	}

	return devices, scanner.Err()
}

// interfaceAddresses converts gopsutil's CIDR strings into address entries.
// Netmask comes from the prefix length; broadcast is only computed for IPv4
// on interfaces the OS flags as broadcast-capable.
func interfaceAddresses(iface psnet.InterfaceStat) []InterfaceAddress {
	addrs := []InterfaceAddress{}
	broadcastCapable := false
	for _, f := range iface.Flags {
		if f == "broadcast" {
			broadcastCapable = true
			break
		}
	}

	for _, a := range iface.Addrs {
		ip, ipnet, err := net.ParseCIDR(a.Addr)
		if err != nil {
			if ip = net.ParseIP(a.Addr); ip == nil {
				continue
			}
		}

		entry := InterfaceAddress{Address: ip.String(), Family: FamilyIPv6}
		v4 := ip.To4()
		if v4 != nil {
			entry.Family = FamilyIPv4
		}

		if ipnet != nil {
			entry.Netmask = net.IP(ipnet.Mask).String()
			if v4 != nil && broadcastCapable && len(ipnet.Mask) == net.IPv4len {
				entry.Broadcast = broadcastAddress(v4, ipnet.Mask).String()
			}
		}
		addrs = append(addrs, entry)
	}

	if iface.HardwareAddr != "" {
		addrs = append(addrs, InterfaceAddress{Family: FamilyLink, Address: iface.HardwareAddr})
	}
	return addrs
}

func broadcastAddress(ip net.IP, mask net.IPMask) net.IP {
	out := make(net.IP, len(ip))
	for i := range ip {
		out[i] = ip[i] | ^mask[i]
	}
	return out
}
