package fingerprint

// Report is the hardware description an agent submits during
// registration. Every field is optional: installers on stripped-down or
// virtualized machines routinely omit whole sections, and the engine
// must cope with whatever subset is present.
type Report struct {
	ComputerName      string             `json:"computer_name,omitempty"`
	MachineType       string             `json:"machine_type,omitempty"`
	OS                string             `json:"os,omitempty"`
	AgentVersion      string             `json:"agent_version,omitempty"`
	NetworkInterfaces []NetworkInterface `json:"network_interfaces,omitempty"`
	Hardware          Hardware           `json:"hardware,omitempty"`
}

type NetworkInterface struct {
	Name       string `json:"name,omitempty"`
	MACAddress string `json:"mac_address,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
}

type Hardware struct {
	CPU    *CPU    `json:"cpu,omitempty"`
	Memory *Memory `json:"memory,omitempty"`
	Disks  []Disk  `json:"disks,omitempty"`
}

type CPU struct {
	Cores int    `json:"cores,omitempty"`
	Model string `json:"model,omitempty"`
}

type Memory struct {
	TotalBytes int64 `json:"total_bytes,omitempty"`
}

type Disk struct {
	Name       string `json:"name,omitempty"`
	TotalBytes int64  `json:"total_bytes,omitempty"`
}
