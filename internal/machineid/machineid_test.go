package machineid

import (
	"regexp"
	"testing"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{16}$`)

func TestIDShape(t *testing.T) {
	snap := Snapshot{
		Hostname:     "studio-01",
		OSVersion:    "linux 6.8.0",
		CPUBrand:     "AMD Ryzen 9 7950X",
		CPUFrequency: "4500.000",
		TotalMemory:  "65536000",
	}

	id := snap.ID()
	if !hexID.MatchString(id) {
		t.Errorf("expected 16 lowercase hex characters, got %q", id)
	}
}

func TestIDDeterministic(t *testing.T) {
	snap := Snapshot{Hostname: "studio-01", OSVersion: "linux"}

	if snap.ID() != snap.ID() {
		t.Error("expected identical ids for identical snapshots")
	}
}

func TestIDVariesWithSnapshot(t *testing.T) {
	a := Snapshot{Hostname: "studio-01"}
	b := Snapshot{Hostname: "studio-02"}

	if a.ID() == b.ID() {
		t.Error("expected different ids for different hostnames")
	}
}

func TestIDEmptySnapshot(t *testing.T) {
	// Every probe failing still yields a well-formed id.
	if id := (Snapshot{}).ID(); !hexID.MatchString(id) {
		t.Errorf("expected 16 lowercase hex characters, got %q", id)
	}
}

func TestCollectProducesWellFormedID(t *testing.T) {
	if id := Collect().ID(); !hexID.MatchString(id) {
		t.Errorf("expected 16 lowercase hex characters, got %q", id)
	}
}
