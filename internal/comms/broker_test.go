package comms

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"swarmnet-sim/internal/world"
)

type received struct {
	src, dst string
	port     uint32
	data     []byte
}

// testNet wires an engine, broker, and clients over a clear field with
// every node 1 meter apart from its roster predecessor.
type testNet struct {
	field   *world.Field
	engine  *Engine
	broker  *Broker
	clients map[string]*Client
}

func newTestNet(t *testing.T, params Params, addrs ...string) *testNet {
	t.Helper()
	field := newTestField()
	rng := NewRand(42)
	engine := NewEngine(params, field, rng)
	broker := NewBroker(engine, rng)

	n := &testNet{field: field, engine: engine, broker: broker, clients: make(map[string]*Client)}
	for i, addr := range addrs {
		c := NewClient(addr, broker)
		if err := engine.Register(addr, c); err != nil {
			t.Fatal(err)
		}
		field.SetPosition(addr, world.Vec3{X: float64(i)})
		n.clients[addr] = c
	}
	engine.Update(time.Second, time.Second)
	return n
}

func closeRangeParams() Params {
	p := DefaultParams()
	p.NeighborDistanceMax = 100
	p.CommsDistanceMax = 100
	return p
}

func TestSendPayloadTooLarge(t *testing.T) {
	n := newTestNet(t, closeRangeParams(), "a", "b")
	data := make([]byte, DefaultMTU+1)
	err := n.clients["a"].Send(data, "b", DefaultPort)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Send = %v, want ErrPayloadTooLarge", err)
	}
}

func TestSendUnknownSender(t *testing.T) {
	n := newTestNet(t, closeRangeParams(), "a")
	err := n.broker.Send("ghost", []byte("x"), "a", DefaultPort)
	if !errors.Is(err, ErrPublishFailure) {
		t.Errorf("Send = %v, want ErrPublishFailure", err)
	}
}

func TestUnicastDelivery(t *testing.T) {
	n := newTestNet(t, closeRangeParams(), "a", "b")

	var got []received
	if err := n.clients["b"].Bind("b", DefaultPort, func(src, dst string, port uint32, data []byte) {
		got = append(got, received{src, dst, port, data})
	}); err != nil {
		t.Fatal(err)
	}

	if err := n.clients["a"].Send([]byte("hello"), "b", DefaultPort); err != nil {
		t.Fatal(err)
	}
	reports := n.broker.Dispatch(context.Background())

	if len(reports) != 1 || reports[0].Delivered != 1 || reports[0].UnknownDest {
		t.Fatalf("reports = %+v, want one delivery", reports)
	}
	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	if got[0].src != "a" || got[0].dst != "b" || got[0].port != DefaultPort || !bytes.Equal(got[0].data, []byte("hello")) {
		t.Errorf("received %+v", got[0])
	}
}

func TestCertainDropDeliversNothing(t *testing.T) {
	params := closeRangeParams()
	params.CommsDropProbabilityMin = 1
	params.CommsDropProbabilityMax = 1
	n := newTestNet(t, params, "a", "b")

	calls := 0
	_ = n.clients["b"].Bind("b", DefaultPort, func(string, string, uint32, []byte) { calls++ })

	if err := n.clients["a"].Send([]byte("x"), "b", DefaultPort); err != nil {
		t.Fatal(err)
	}
	reports := n.broker.Dispatch(context.Background())

	if calls != 0 {
		t.Errorf("handler called %d times with drop probability 1", calls)
	}
	if reports[0].Delivered != 0 || reports[0].UnknownDest {
		t.Errorf("report = %+v, want zero deliveries without unknown destination", reports[0])
	}
}

func TestUnknownDestinationSilent(t *testing.T) {
	n := newTestNet(t, closeRangeParams(), "a", "b")

	// b is on the roster but bound nothing: the datagram is dropped
	// without surfacing an error to the sender.
	if err := n.clients["a"].Send([]byte("x"), "b", DefaultPort); err != nil {
		t.Fatalf("Send must not report unknown destinations: %v", err)
	}
	reports := n.broker.Dispatch(context.Background())
	if len(reports) != 1 || !reports[0].UnknownDest || reports[0].Delivered != 0 {
		t.Errorf("reports = %+v, want a single unknown destination", reports)
	}

	// Same for an address that is not on the roster at all.
	if err := n.clients["a"].Send([]byte("x"), "nobody", DefaultPort); err != nil {
		t.Fatalf("Send must not report unregistered destinations: %v", err)
	}
	reports = n.broker.Dispatch(context.Background())
	if len(reports) != 1 || !reports[0].UnknownDest {
		t.Errorf("reports = %+v, want a single unknown destination", reports)
	}
}

func TestBindRejectsForeignAddress(t *testing.T) {
	n := newTestNet(t, closeRangeParams(), "a", "b")
	err := n.clients["a"].Bind("b", DefaultPort, func(string, string, uint32, []byte) {})
	if !errors.Is(err, ErrBindAddress) {
		t.Errorf("Bind = %v, want ErrBindAddress", err)
	}
	if err := n.clients["a"].Bind(Multicast, DefaultPort, func(string, string, uint32, []byte) {}); err != nil {
		t.Errorf("Bind(multicast) = %v, want nil", err)
	}
}

func TestBroadcast(t *testing.T) {
	n := newTestNet(t, closeRangeParams(), "a", "b", "c")

	counts := make(map[string]int)
	for _, addr := range []string{"a", "b", "c"} {
		addr := addr
		// Binding the own address also subscribes to broadcast traffic.
		if err := n.clients[addr].Bind(addr, DefaultPort, func(string, string, uint32, []byte) {
			counts[addr]++
		}); err != nil {
			t.Fatal(err)
		}
	}

	if err := n.clients["a"].Send([]byte("x"), Broadcast, DefaultPort); err != nil {
		t.Fatal(err)
	}
	reports := n.broker.Dispatch(context.Background())

	if counts["a"] != 0 {
		t.Error("sender must not receive its own broadcast")
	}
	if counts["b"] != 1 || counts["c"] != 1 {
		t.Errorf("counts = %v, want b and c once each", counts)
	}
	if reports[0].Delivered != 2 {
		t.Errorf("Delivered = %d, want 2", reports[0].Delivered)
	}
}

func TestMulticastGroupMembership(t *testing.T) {
	const groupPort = 5000
	n := newTestNet(t, closeRangeParams(), "a", "b", "c", "d")

	counts := make(map[string]int)
	for _, addr := range []string{"a", "b", "c"} {
		addr := addr
		if err := n.clients[addr].Bind(Multicast, groupPort, func(string, string, uint32, []byte) {
			counts[addr]++
		}); err != nil {
			t.Fatal(err)
		}
	}
	// d never joined the group.
	_ = n.clients["d"].Bind("d", groupPort, func(string, string, uint32, []byte) { counts["d"]++ })

	if err := n.clients["a"].Send([]byte("x"), Multicast, groupPort); err != nil {
		t.Fatal(err)
	}
	reports := n.broker.Dispatch(context.Background())

	if counts["a"] != 0 {
		t.Error("sender must not receive its own multicast")
	}
	if counts["b"] != 1 || counts["c"] != 1 {
		t.Errorf("counts = %v, want group members b and c once each", counts)
	}
	if counts["d"] != 0 {
		t.Error("non-member d must not receive group traffic")
	}
	if reports[0].Delivered != 2 {
		t.Errorf("Delivered = %d, want 2", reports[0].Delivered)
	}
}

func TestDispatchEnforcesRecipientGate(t *testing.T) {
	params := closeRangeParams()
	n := newTestNet(t, params, "a", "b")
	// Move b out of range after the roster was built, then recompute.
	n.field.SetPosition("b", world.Vec3{X: 500})
	n.engine.Update(2*time.Second, time.Second)

	calls := 0
	_ = n.clients["b"].Bind("b", DefaultPort, func(string, string, uint32, []byte) { calls++ })

	if err := n.clients["a"].Send([]byte("x"), "b", DefaultPort); err != nil {
		t.Fatal(err)
	}
	reports := n.broker.Dispatch(context.Background())

	if calls != 0 {
		t.Error("listener outside comms range must not be invoked")
	}
	if reports[0].Delivered != 0 || reports[0].UnknownDest {
		t.Errorf("report = %+v, want zero deliveries with a known listener", reports[0])
	}
}

func TestStopRejectsSends(t *testing.T) {
	n := newTestNet(t, closeRangeParams(), "a", "b")
	n.broker.Stop()
	err := n.clients["a"].Send([]byte("x"), "b", DefaultPort)
	if !errors.Is(err, ErrPublishFailure) {
		t.Errorf("Send after Stop = %v, want ErrPublishFailure", err)
	}
}

func TestBroadcastDeliveryRateApproachesDropComplement(t *testing.T) {
	params := closeRangeParams()
	params.CommsDropProbabilityMin = 0.3
	params.CommsDropProbabilityMax = 0.3
	n := newTestNet(t, params, "a", "b")

	_ = n.clients["b"].Bind("b", DefaultPort, func(string, string, uint32, []byte) {})

	const rounds = 2000
	delivered := 0
	for i := 0; i < rounds; i++ {
		if err := n.clients["a"].Send([]byte("x"), Broadcast, DefaultPort); err != nil {
			t.Fatal(err)
		}
		reports := n.broker.Dispatch(context.Background())
		delivered += reports[0].Delivered
	}

	rate := float64(delivered) / float64(rounds)
	if rate < 0.65 || rate > 0.75 {
		t.Errorf("delivery rate = %.3f, want about 0.70", rate)
	}
}
