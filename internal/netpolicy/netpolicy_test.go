package netpolicy

import (
	"context"
	"errors"
	"net"
	"testing"
)

// Interfaces built by hand cannot report addresses, so usable() rejects
// them. These tests cover the classification logic through the metered
// list and the error paths instead.

func TestUnmeteredNoInterfaces(t *testing.T) {
	p := NewUnmetered(nil)
	p.interfaces = func() ([]net.Interface, error) { return nil, nil }

	err := p.Check(context.Background())
	if !errors.Is(err, ErrOffline) {
		t.Errorf("Check = %v, want ErrOffline", err)
	}
}

func TestUnmeteredListError(t *testing.T) {
	p := NewUnmetered(nil)
	p.interfaces = func() ([]net.Interface, error) { return nil, errors.New("netlink down") }

	if err := p.Check(context.Background()); err == nil {
		t.Error("interface enumeration failure must surface")
	}
}

func TestMeteredMatching(t *testing.T) {
	p := NewUnmetered([]string{"wwan0", "usb0"})
	if !p.metered("wwan0") {
		t.Error("listed interface must be metered")
	}
	if p.metered("wlan0") {
		t.Error("unlisted interface must not be metered")
	}
}

func TestAllowAll(t *testing.T) {
	if err := (AllowAll{}).Check(context.Background()); err != nil {
		t.Errorf("AllowAll.Check = %v", err)
	}
}
