// Package machineid derives a stable identifier for the host machine.
//
// The identifier is a cryptographic digest of a hardware snapshot, truncated
// to 16 hex characters. The digest is a pure function of the Snapshot so it
// can be tested without touching hardware; Collect gathers the snapshot on a
// best-effort basis, leaving fields it cannot determine empty.
package machineid

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Snapshot is the machine state the identifier is derived from. All fields
// are their string renderings so the seed is unambiguous.
type Snapshot struct {
	Hostname     string
	OSVersion    string
	CPUBrand     string
	CPUFrequency string
	TotalMemory  string
}

// ID returns the 16-hex-character identifier for the snapshot.
func (s Snapshot) ID() string {
	seed := fmt.Sprintf("%s|%s|%s|%s|%s",
		s.Hostname, s.OSVersion, s.CPUBrand, s.CPUFrequency, s.TotalMemory)
	sum := sha256.Sum256([]byte(seed))
	return fmt.Sprintf("%x", sum)[:16]
}

// Collect gathers the current machine's snapshot. Probes that fail leave
// their field empty; the identifier stays stable as long as the reachable
// fields do.
func Collect() Snapshot {
	s := Snapshot{OSVersion: osVersion()}

	if host, err := os.Hostname(); err == nil {
		s.Hostname = host
	}

	s.CPUBrand, s.CPUFrequency = cpuInfo()
	s.TotalMemory = totalMemory()
	return s
}

func osVersion() string {
	if release, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		return runtime.GOOS + " " + strings.TrimSpace(string(release))
	}
	return runtime.GOOS
}

// cpuInfo reads the first CPU's brand and frequency from /proc/cpuinfo.
func cpuInfo() (brand, freq string) {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return "", ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "model name":
			if brand == "" {
				brand = value
			}
		case "cpu MHz":
			if freq == "" {
				freq = value
			}
		}
		if brand != "" && freq != "" {
			break
		}
	}
	return brand, freq
}

// totalMemory reads MemTotal from /proc/meminfo, in kilobytes.
func totalMemory() string {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			return fields[1]
		}
	}
	return ""
}
