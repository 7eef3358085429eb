package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the machine ID so the raw ID is never published.
const AppID = "esclink"

// MachineID retrieves the unique ID identifying the machine.
// It falls back to the hostname when no machine ID is available.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id[:12]
	}
	glog.Warningf("machine ID unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
