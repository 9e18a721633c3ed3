// Package fingerprint derives a stable device identity from an
// agent-reported hardware description.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Confidence records which identity path produced a fingerprint. A weak
// fingerprint was derived from the computer name (or nothing at all) and
// is far more likely to collide or drift than a strong one.
type Confidence string

const (
	ConfidenceStrong Confidence = "strong"
	ConfidenceWeak   Confidence = "weak"
)

// sentinel is hashed when the report carries no usable data at all, so
// Compute still returns a deterministic value.
const sentinel = "unknown-device"

const hashLength = 32 // hex characters, 128 bits of the SHA-256

type Fingerprint struct {
	Hash       string
	Confidence Confidence
}

// Compute builds "key:value" components from whichever fields are
// present, sorts them, joins them with "|" and hashes the result. It is
// pure and never fails: identical reports always yield the identical
// hash regardless of field ordering, and a report with no identifying
// hardware falls back to the computer name alone (Confidence then being
// weak).
func Compute(r Report) Fingerprint {
	var parts []string
	identifying := 0

	if macs := normalizedMACs(r.NetworkInterfaces); macs != "" {
		parts = append(parts, "macs:"+macs)
		identifying++
	}
	if r.Hardware.CPU != nil && r.Hardware.CPU.Cores > 0 {
		parts = append(parts, fmt.Sprintf("cpu_cores:%d", r.Hardware.CPU.Cores))
		identifying++
	}
	if r.Hardware.CPU != nil && r.Hardware.CPU.Model != "" {
		parts = append(parts, "processor:"+r.Hardware.CPU.Model)
		identifying++
	}
	if r.Hardware.Memory != nil && r.Hardware.Memory.TotalBytes > 0 {
		parts = append(parts, fmt.Sprintf("memory_bytes:%d", r.Hardware.Memory.TotalBytes))
		identifying++
	}
	if disk := totalDiskBytes(r.Hardware.Disks); disk > 0 {
		parts = append(parts, fmt.Sprintf("disk_bytes:%d", disk))
		identifying++
	}
	if r.MachineType != "" {
		parts = append(parts, "machine_type:"+r.MachineType)
		identifying++
	}
	if r.ComputerName != "" {
		parts = append(parts, "computer_name:"+r.ComputerName)
	}

	if identifying > 0 {
		return Fingerprint{Hash: hashParts(parts), Confidence: ConfidenceStrong}
	}

	// No hardware identifiers at all: fall back to the computer name,
	// then to a fixed sentinel.
	if r.ComputerName != "" {
		return Fingerprint{
			Hash:       hashParts([]string{"computer_name:" + r.ComputerName}),
			Confidence: ConfidenceWeak,
		}
	}
	return Fingerprint{
		Hash:       hashParts([]string{sentinel}),
		Confidence: ConfidenceWeak,
	}
}

// normalizedMACs upper-cases, sorts and comma-joins the reported MAC
// addresses so interface enumeration order cannot change the hash.
func normalizedMACs(ifaces []NetworkInterface) string {
	var macs []string
	for _, iface := range ifaces {
		if iface.MACAddress == "" {
			continue
		}
		macs = append(macs, strings.ToUpper(iface.MACAddress))
	}
	if len(macs) == 0 {
		return ""
	}
	sort.Strings(macs)
	return strings.Join(macs, ",")
}

func totalDiskBytes(disks []Disk) int64 {
	var total int64
	for _, d := range disks {
		total += d.TotalBytes
	}
	return total
}

func hashParts(parts []string) string {
	sorted := make([]string, len(parts))
	copy(sorted, parts)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return fmt.Sprintf("%x", sum)[:hashLength]
}
