//go:build linux

package web

import (
	"net"
	"sort"
	"time"

	"golang.org/x/sys/unix"
)

func snapshotSystem(_ time.Time) *SystemSnapshot {
	snap := &SystemSnapshot{LocalAddrs: localInterfaceAddrs()}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		snap.LastError = err.Error()
		return snap
	}
	snap.HostUptimeSec = int64(info.Uptime)
	snap.Load1 = float64(info.Loads[0]) / 65536.0
	snap.FreeRAMBytes = uint64(info.Freeram) * uint64(info.Unit)
	return snap
}

func localInterfaceAddrs() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	out := make([]string, 0, 8)
	for _, iface := range ifaces {
		if (iface.Flags & net.FlagUp) == 0 {
			continue
		}
		if (iface.Flags & net.FlagLoopback) != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			var ip net.IP
			var ipnet *net.IPNet
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
				ipnet = v
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil {
				continue
			}
			ip4 := ip.To4()
			if ip4 == nil {
				continue
			}
			if ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
				continue
			}
			if ipnet != nil {
				out = append(out, iface.Name+": "+ipnet.String())
			} else {
				out = append(out, iface.Name+": "+ip4.String())
			}
		}
	}

	sort.Strings(out)
	return out
}
