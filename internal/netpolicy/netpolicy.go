// Package netpolicy decides whether syncing is allowed on the current
// network and watches for connectivity coming back.
package netpolicy

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrMetered is returned when the unmetered-only preference blocks a sync.
var ErrMetered = errors.New("current network is metered")

// ErrOffline is returned when no usable network interface is up.
var ErrOffline = errors.New("no network connectivity")

// Policy gates sync execution against the network preference.
type Policy interface {
	Check(ctx context.Context) error
}

// AllowAll permits syncing on any network.
type AllowAll struct{}

func (AllowAll) Check(ctx context.Context) error { return nil }

// Unmetered permits syncing only when at least one active interface is not
// in the configured metered set. Interface names stand in for metered
// detection; tethered phones and mobile modems get listed by the user.
type Unmetered struct {
	// MeteredInterfaces names interfaces to treat as metered, for example
	// "wwan0" or "usb0".
	MeteredInterfaces []string

	// interfaces is swappable for tests.
	interfaces func() ([]net.Interface, error)
}

// NewUnmetered builds the unmetered-only policy.
func NewUnmetered(metered []string) *Unmetered {
	return &Unmetered{MeteredInterfaces: metered}
}

// Check reports nil when an active unmetered interface exists.
func (p *Unmetered) Check(ctx context.Context) error {
	list := p.interfaces
	if list == nil {
		list = net.Interfaces
	}
	ifaces, err := list()
	if err != nil {
		return fmt.Errorf("list interfaces: %w", err)
	}

	active := false
	for _, iface := range ifaces {
		if !usable(iface) {
			continue
		}
		active = true
		if !p.metered(iface.Name) {
			return nil
		}
	}
	if !active {
		return ErrOffline
	}
	return ErrMetered
}

func (p *Unmetered) metered(name string) bool {
	for _, m := range p.MeteredInterfaces {
		if m == name {
			return true
		}
	}
	return false
}

// usable reports whether an interface is up, carries addresses and is not
// the loopback.
func usable(iface net.Interface) bool {
	if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
		return false
	}
	addrs, err := iface.Addrs()
	return err == nil && len(addrs) > 0
}

// Online reports whether any usable interface exists at all, regardless of
// metering. The connectivity watcher uses this to detect network return.
func Online() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if usable(iface) {
			return true
		}
	}
	return false
}
