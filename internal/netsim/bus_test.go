package netsim_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shardmesh/lagrange/internal/netsim"
	"github.com/shardmesh/lagrange/pkg/party"
)

var _ = Describe("Bus", func() {
	var ids []party.ID

	BeforeEach(func() {
		ids = []party.ID{0, 1, 2}
	})

	It("delivers a point-to-point send to the intended recipient only", func() {
		bus := netsim.NewBus(ids, netsim.Unlimited)
		defer bus.Close()

		Expect(bus.Send(0, 1, []byte("hello"))).To(Succeed())

		from, payload, err := bus.Recv(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(from).To(Equal(party.ID(0)))
		Expect(payload).To(Equal([]byte("hello")))
	})

	It("broadcasts to every other participant", func() {
		bus := netsim.NewBus(ids, netsim.Unlimited)
		defer bus.Close()

		Expect(bus.Broadcast(0, []byte("partial"))).To(Succeed())

		for _, id := range []party.ID{1, 2} {
			from, payload, err := bus.Recv(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(from).To(Equal(party.ID(0)))
			Expect(payload).To(Equal([]byte("partial")))
		}
	})

	It("honors the configured one-way delay as a floor on delivery time", func() {
		profile := netsim.Profile{OneWayDelay: 60 * time.Millisecond}
		bus := netsim.NewBus(ids, profile)
		defer bus.Close()

		start := time.Now()
		Expect(bus.Send(0, 1, []byte("x"))).To(Succeed())
		_, _, err := bus.Recv(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically(">=", profile.OneWayDelay))
	})

	It("preserves FIFO order per sender/receiver pair", func() {
		bus := netsim.NewBus(ids, netsim.Profile{OneWayDelay: 5 * time.Millisecond})
		defer bus.Close()

		for i := byte(0); i < 5; i++ {
			Expect(bus.Send(0, 1, []byte{i})).To(Succeed())
		}
		for i := byte(0); i < 5; i++ {
			_, payload, err := bus.Recv(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(payload).To(Equal([]byte{i}))
		}
	})

	It("unblocks every pending Recv with ErrBusClosed when closed", func() {
		bus := netsim.NewBus(ids, netsim.Unlimited)

		done := make(chan error, 1)
		go func() {
			_, _, err := bus.Recv(2)
			done <- err
		}()

		bus.Close()

		Eventually(done, time.Second).Should(Receive(Equal(netsim.ErrBusClosed)))
	})

	It("rejects sends to a peer once the bus is closed", func() {
		bus := netsim.NewBus(ids, netsim.Unlimited)
		bus.Close()
		Expect(bus.Send(0, 1, []byte("x"))).To(MatchError(netsim.ErrPeerUnreachable))
	})
})
