package eventstream_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/eventstream"
)

func TestEventStream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "eventstream suite")
}

var _ = Describe("Stream", func() {
	It("replays cached activation to late subscribers", func() {
		var pub *eventstream.Publisher[int]
		s := eventstream.New(func(p *eventstream.Publisher[int]) { pub = p })
		pub.Start(nil)

		active := false
		_, err := s.Subscribe(func(int) {}, func(a bool, reason string) { active = a })
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(BeTrue())
	})

	It("delivers published values to all subscribers and reports has-subscribers", func() {
		var pub *eventstream.Publisher[string]
		s := eventstream.New(func(p *eventstream.Publisher[string]) { pub = p })
		pub.Start(nil)

		received := []string{}
		_, _ = s.Subscribe(func(v string) { received = append(received, v) }, nil)
		_, _ = s.Subscribe(func(v string) { received = append(received, v) }, nil)

		has := pub.Publish("hello")
		Expect(has).To(BeTrue())
		Expect(received).To(Equal([]string{"hello", "hello"}))
	})

	It("reports no subscribers once all have stopped", func() {
		var pub *eventstream.Publisher[int]
		s := eventstream.New(func(p *eventstream.Publisher[int]) { pub = p })
		pub.Start(nil)
		sub, _ := s.Subscribe(func(int) {}, nil)
		sub.Stop()
		Expect(pub.Publish(1)).To(BeFalse())
	})

	It("invokes onAllUnsubscribed once the last subscriber stops", func() {
		var pub *eventstream.Publisher[int]
		stopped := make(chan struct{}, 1)
		s := eventstream.New(func(p *eventstream.Publisher[int]) { pub = p })
		pub.Start(func() { stopped <- struct{}{} })

		sub, _ := s.Subscribe(func(int) {}, nil)
		sub.Stop()
		Eventually(stopped).Should(Receive())
	})

	It("rejects Subscribe on a stopped stream with StreamClosedError", func() {
		var pub *eventstream.Publisher[int]
		s := eventstream.New(func(p *eventstream.Publisher[int]) { pub = p })
		pub.Start(func() {})
		sub, _ := s.Subscribe(func(int) {}, nil)
		sub.Stop()

		Eventually(func() error {
			_, err := s.Subscribe(func(int) {}, nil)
			return err
		}).Should(HaveOccurred())
		_, err := s.Subscribe(func(int) {}, nil)
		Expect(acerr.IsStreamClosedError(err)).To(BeTrue())
	})

	It("immediately reports cancellation with reason to existing and late subscribers", func() {
		var pub *eventstream.Publisher[int]
		s := eventstream.New(func(p *eventstream.Publisher[int]) { pub = p })
		pub.Start(nil)

		var reason1, reason2 string
		_, _ = s.Subscribe(func(int) {}, func(active bool, reason string) {
			if !active {
				reason1 = reason
			}
		})
		pub.Cancel("storage unavailable")
		Expect(reason1).To(Equal("storage unavailable"))

		_, err := s.Subscribe(func(int) {}, func(active bool, reason string) {
			if !active {
				reason2 = reason
			}
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reason2).To(Equal("storage unavailable"))
	})

	It("swallows and logs panics from subscriber callbacks without affecting others", func() {
		var pub *eventstream.Publisher[int]
		s := eventstream.New(func(p *eventstream.Publisher[int]) { pub = p })
		pub.Start(nil)

		received := false
		_, _ = s.Subscribe(func(int) { panic("boom") }, nil)
		_, _ = s.Subscribe(func(int) { received = true }, nil)

		Expect(func() { pub.Publish(1) }).NotTo(Panic())
		Expect(received).To(BeTrue())
	})
})
