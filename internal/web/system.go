package web

// SystemSnapshot is host-level context for the status page: where to reach
// the appliance and whether the box itself is healthy.
type SystemSnapshot struct {
	HostUptimeSec int64    `json:"host_uptime_sec,omitempty"`
	Load1         float64  `json:"load1,omitempty"`
	FreeRAMBytes  uint64   `json:"free_ram_bytes,omitempty"`
	LocalAddrs    []string `json:"local_addrs,omitempty"`
	LastError     string   `json:"last_error,omitempty"`
}
