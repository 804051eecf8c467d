package comms

import "sync/atomic"

// Client is the per-node handle an agent runtime uses: a send
// primitive, receive bindings, and the neighbor list pushed by the
// engine. The neighbor snapshot swap is atomic, so the agent's own
// logic can read it while the engine replaces it.
type Client struct {
	address   string
	broker    *Broker
	neighbors atomic.Pointer[[]string]
}

// NewClient creates a client handle for the address. The caller still
// registers it with the engine to start receiving neighbor updates.
func NewClient(address string, broker *Broker) *Client {
	c := &Client{address: address, broker: broker}
	empty := []string{}
	c.neighbors.Store(&empty)
	return c
}

// Address returns the node's immutable address.
func (c *Client) Address() string {
	return c.address
}

// Send hands a datagram to the broker. dst may be a unicast address,
// Broadcast, or Multicast.
func (c *Client) Send(data []byte, dst string, port uint32) error {
	return c.broker.Send(c.address, data, dst, port)
}

// Bind registers a receive callback on (address, port). address must
// be the client's own address or Multicast.
func (c *Client) Bind(address string, port uint32, h Handler) error {
	return c.broker.Bind(c.address, address, port, h)
}

// Neighbors returns a copy of the most recently pushed neighbor list.
func (c *Client) Neighbors() []string {
	return append([]string(nil), *c.neighbors.Load()...)
}

// OnNeighbors implements Subscriber: it atomically replaces the local
// neighbor cache, discarding the own address if the engine ever
// included it.
func (c *Client) OnNeighbors(neighbors []string) {
	filtered := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		if n != c.address {
			filtered = append(filtered, n)
		}
	}
	c.neighbors.Store(&filtered)
}
