package comms

import "github.com/google/uuid"

// Reserved addresses. Anything else is a unicast node address.
const (
	// Broadcast addresses a datagram to every node currently able to
	// hear the sender.
	Broadcast = "broadcast"

	// Multicast addresses a datagram to the nodes that bound the
	// multicast group on the destination port.
	Multicast = "multicast"

	// BaseStation is the well-known address of the fixed base station.
	BaseStation = "boo"
)

// Well-known ports.
const (
	// DefaultPort is the port used by robot-to-robot traffic when no
	// explicit port is given.
	DefaultPort uint32 = 4100

	// BasePort is the port the base station listens on.
	BasePort uint32 = 4200
)

// DefaultMTU is the maximum payload size in octets accepted by Send.
const DefaultMTU = 1500

// Datagram is one addressed message unit routed by the broker. The
// Recipients list is computed once at send time from the link state of
// that instant; the datagram is immutable afterwards.
type Datagram struct {
	MsgID      string
	SrcAddress string
	DstAddress string
	DstPort    uint32
	Data       []byte

	// Recipients holds the addresses that will actually receive this
	// datagram, after the neighbor, comms, and drop filters.
	Recipients []string
}

// newDatagram stamps a fresh message ID.
func newDatagram(src, dst string, port uint32, data []byte) Datagram {
	return Datagram{
		MsgID:      uuid.New().String(),
		SrcAddress: src,
		DstAddress: dst,
		DstPort:    port,
		Data:       data,
	}
}
