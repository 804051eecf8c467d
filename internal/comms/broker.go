// Message broker: send validation, recipient filtering, and per-tick
// dispatch to bound callbacks.
package comms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"swarmnet-sim/internal/logging"
)

// Handler is a receive callback bound to an (address, port) endpoint.
type Handler func(srcAddress, dstAddress string, dstPort uint32, data []byte)

type listener struct {
	address string
	handler Handler
}

// DeliveryReport describes what happened to one dispatched datagram.
type DeliveryReport struct {
	Datagram    Datagram
	Delivered   int
	UnknownDest bool
}

// Broker queues outgoing datagrams and fans them out to the listeners
// of each destination endpoint. The recipient list of every datagram
// is fixed at Send time from the engine's current link state; dispatch
// re-checks membership before invoking a callback so a node can never
// receive a message it was not eligible for.
type Broker struct {
	engine *Engine
	rng    *Rand

	mu        sync.Mutex
	listeners map[string][]listener
	queue     []Datagram
	stopped   bool
}

// NewBroker creates a broker over the engine's roster and link state.
// rng must be the same source the engine draws from, so a fixed seed
// reproduces outage and drop decisions together.
func NewBroker(engine *Engine, rng *Rand) *Broker {
	return &Broker{
		engine:    engine,
		rng:       rng,
		listeners: make(map[string][]listener),
	}
}

func endpoint(address string, port uint32) string {
	return fmt.Sprintf("%s:%d", address, port)
}

// Bind registers a receive callback for clientAddress on the given
// endpoint. address must be the client's own address or Multicast.
// Binding the own address also subscribes the client to broadcast
// traffic on that port.
func (b *Broker) Bind(clientAddress, address string, port uint32, h Handler) error {
	if address != clientAddress && address != Multicast {
		return fmt.Errorf("%w: %q", ErrBindAddress, address)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	l := listener{address: clientAddress, handler: h}
	b.listeners[endpoint(address, port)] = append(b.listeners[endpoint(address, port)], l)
	if address != Multicast {
		b.listeners[endpoint(Broadcast, port)] = append(b.listeners[endpoint(Broadcast, port)], l)
	}
	return nil
}

// Send validates and enqueues a datagram from src. The recipient set
// is computed here, against the link state of the current tick:
// unicast targets the destination directly, Broadcast considers every
// other roster node, Multicast the nodes bound to the group on that
// port. Each candidate passes the neighbor+comms gate and an
// independent drop draw.
func (b *Broker) Send(src string, data []byte, dst string, port uint32) error {
	if len(data) > b.engine.Params().MTU {
		return fmt.Errorf("%w: %d > %d octets", ErrPayloadTooLarge, len(data), b.engine.Params().MTU)
	}
	if !b.engine.Registered(src) {
		return fmt.Errorf("%w: unknown sender %q", ErrPublishFailure, src)
	}

	d := newDatagram(src, dst, port, data)
	d.Recipients = b.recipients(src, dst, port)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrPublishFailure
	}
	b.queue = append(b.queue, d)
	return nil
}

// recipients applies the per-candidate eligibility and drop filters.
// Candidates are visited in sorted order so a fixed seed yields the
// same draws.
func (b *Broker) recipients(src, dst string, port uint32) []string {
	var candidates []string
	switch dst {
	case Broadcast:
		for _, addr := range b.engine.Addresses() {
			if addr != src {
				candidates = append(candidates, addr)
			}
		}
	case Multicast:
		candidates = b.groupMembers(port, src)
	default:
		if b.engine.Registered(dst) {
			candidates = []string{dst}
		}
	}

	p := b.engine.Params()
	var out []string
	for _, c := range candidates {
		if !b.engine.CommsEligible(src, c) {
			continue
		}
		dropProb := b.rng.Uniform(p.CommsDropProbabilityMin, p.CommsDropProbabilityMax)
		if b.rng.Float64() < dropProb {
			continue
		}
		out = append(out, c)
	}
	return out
}

// groupMembers lists the distinct addresses bound to the multicast
// group on the port, excluding the sender.
func (b *Broker) groupMembers(port uint32, exclude string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	seen := make(map[string]bool)
	for _, l := range b.listeners[endpoint(Multicast, port)] {
		if l.address != exclude {
			seen[l.address] = true
		}
	}
	members := make([]string, 0, len(seen))
	for addr := range seen {
		members = append(members, addr)
	}
	sort.Strings(members)
	return members
}

// Dispatch drains the queue and delivers each datagram to the
// listeners of its destination endpoint. A destination without any
// listener is an UnknownDestination: logged, dropped, and never
// reported to the sender. In a lossy wireless model the sender cannot
// tell "no such destination" from "message dropped".
func (b *Broker) Dispatch(ctx context.Context) []DeliveryReport {
	log := logging.FromContext(ctx)

	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	b.mu.Unlock()

	reports := make([]DeliveryReport, 0, len(pending))
	for _, d := range pending {
		b.mu.Lock()
		ls := append([]listener(nil), b.listeners[endpoint(d.DstAddress, d.DstPort)]...)
		b.mu.Unlock()

		report := DeliveryReport{Datagram: d}
		if len(ls) == 0 {
			report.UnknownDest = true
			log.Debug("unknown destination, dropping datagram",
				"msg_id", d.MsgID, "dst", d.DstAddress, "port", d.DstPort)
			reports = append(reports, report)
			continue
		}

		for _, l := range ls {
			// Double gate: the recipients list was computed at send
			// time; membership is enforced again here.
			if !containsAddress(d.Recipients, l.address) {
				continue
			}
			l.handler(d.SrcAddress, d.DstAddress, d.DstPort, d.Data)
			report.Delivered++
		}
		reports = append(reports, report)
	}
	return reports
}

// Stop makes further Sends fail with ErrPublishFailure.
func (b *Broker) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.mu.Unlock()
}

func containsAddress(list []string, address string) bool {
	for _, a := range list {
		if a == address {
			return true
		}
	}
	return false
}
