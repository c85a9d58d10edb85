package emitter_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/emitter"
)

func TestEmitter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "emitter suite")
}

var _ = Describe("Emitter", func() {
	It("invokes on-listeners on emit", func() {
		e := emitter.New()
		got := []any{}
		e.On("ready", func(data any) { got = append(got, data) })
		Expect(e.Emit("ready", 1)).To(Succeed())
		Expect(e.Emit("ready", 2)).To(Succeed())
		Expect(got).To(Equal([]any{1, 2}))
	})

	It("invokes once-listeners exactly once", func() {
		e := emitter.New()
		count := 0
		e.Once("tick", func(data any) { count++ })
		_ = e.Emit("tick", nil)
		_ = e.Emit("tick", nil)
		Expect(count).To(Equal(1))
	})

	It("off removes a specific listener", func() {
		e := emitter.New()
		calledA, calledB := false, false
		a := func(data any) { calledA = true }
		e.On("x", a)
		e.On("x", func(data any) { calledB = true })
		e.Off("x", a)
		_ = e.Emit("x", nil)
		Expect(calledA).To(BeFalse())
		Expect(calledB).To(BeTrue())
	})

	It("emitOnce latches the event and replays it to later subscribers", func() {
		e := emitter.New()
		Expect(e.EmitOnce("ready", "payload")).To(Succeed())

		got := ""
		e.On("ready", func(data any) { got = data.(string) })
		Expect(got).To(Equal("payload"))

		got2 := ""
		e.Once("ready", func(data any) { got2 = data.(string) })
		Expect(got2).To(Equal("payload"))
	})

	It("rejects further emit/emitOnce on a latched event", func() {
		e := emitter.New()
		_ = e.EmitOnce("ready", 1)

		err := e.Emit("ready", 2)
		Expect(err).To(HaveOccurred())
		Expect(acerr.IsEventAlreadyOnceError(err)).To(BeTrue())

		err = e.EmitOnce("ready", 3)
		Expect(err).To(HaveOccurred())
	})

	It("swallows and logs panics from listeners", func() {
		e := emitter.New()
		called := false
		e.On("x", func(data any) { panic("boom") })
		e.On("x", func(data any) { called = true })
		Expect(func() { _ = e.Emit("x", nil) }).NotTo(Panic())
		Expect(called).To(BeTrue())
	})
})
