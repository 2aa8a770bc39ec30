package device

import (
	"net"
	"strconv"
)

// Descriptor identifies one device in the roster. Identity labels every
// report sent for the device.
type Descriptor struct {
	Address  string
	Port     int
	Identity string
}

// Addr returns the host:port dial address.
func (d Descriptor) Addr() string {
	return net.JoinHostPort(d.Address, strconv.Itoa(d.Port))
}
