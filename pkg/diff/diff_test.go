package diff_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/acebase-go/acebase-core/pkg/diff"
	"github.com/acebase-go/acebase-core/pkg/values"
)

func TestDiff(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "diff suite")
}

var _ = Describe("ValuesAreEqual", func() {
	It("compares dates by epoch ms", func() {
		a := time.Date(2022, 4, 22, 7, 49, 23, 0, time.UTC)
		b := time.Date(2022, 4, 22, 7, 49, 23, 0, time.UTC)
		Expect(diff.ValuesAreEqual(a, b)).To(BeTrue())
	})

	It("compares binary buffers by contents", func() {
		a := values.Binary{0x41, 0x63, 0x65}
		b := values.Binary{0x41, 0x63, 0x65}
		c := values.Binary{0x41}
		Expect(diff.ValuesAreEqual(a, b)).To(BeTrue())
		Expect(diff.ValuesAreEqual(a, c)).To(BeFalse())
	})

	It("ignores properties that are void on both sides", func() {
		a := map[string]any{"x": 1, "y": nil}
		b := map[string]any{"x": 1}
		Expect(diff.ValuesAreEqual(a, b)).To(BeTrue())
	})

	It("is true for cloneObject output", func() {
		v := map[string]any{"a": []any{1, 2, map[string]any{"b": "c"}}}
		cloned, err := diff.CloneObject(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.ValuesAreEqual(v, cloned)).To(BeTrue())

		cm := cloned.(map[string]any)
		cm["a"] = "mutated"
		Expect(v["a"]).NotTo(Equal("mutated"))
	})
})

var _ = Describe("CompareValues", func() {
	It("returns identical for equal values", func() {
		v := map[string]any{"a": 1}
		Expect(diff.CompareValues(v, v, false).Kind).To(Equal(diff.Identical))
	})

	It("returns added/removed for void transitions", func() {
		Expect(diff.CompareValues(nil, "x", false).Kind).To(Equal(diff.Added))
		Expect(diff.CompareValues("x", nil, false).Kind).To(Equal(diff.Removed))
	})

	It("returns Differs with sorted changed keys for compatible objects", func() {
		a := map[string]any{"a": 1, "b": 2, "c": 3}
		b := map[string]any{"a": 1, "b": 20, "c": 30, "d": 4}
		res := diff.CompareValues(a, b, true)
		Expect(res.Kind).To(Equal(diff.Differs))
		Expect(res.Differences.AddedKeys).To(Equal([]any{"d"}))
		Expect(res.Differences.ChangedKeys).To(Equal([]any{"b", "c"}))
	})
})

var _ = Describe("GetMutations", func() {
	It("produces one mutation for an added nested key (chat scenario)", func() {
		chat := map[string]any{
			"title":    "hi",
			"messages": map[string]any{"msg1": map[string]any{"text": "hello"}},
		}
		msg2 := map[string]any{"text": "world"}
		chatWithMsg2 := map[string]any{
			"title": "hi",
			"messages": map[string]any{
				"msg1": map[string]any{"text": "hello"},
				"msg2": msg2,
			},
		}
		muts := diff.GetMutations(chat, chatWithMsg2, true)
		Expect(muts).To(HaveLen(1))
		Expect(muts[0].Target).To(Equal([]any{"messages", "msg2"}))
		Expect(muts[0].Prev).To(BeNil())
		Expect(muts[0].Val).To(Equal(msg2))
	})

	It("replaying mutations onto a clone of a reproduces b", func() {
		a := map[string]any{"x": map[string]any{"y": 1}, "z": 3}
		b := map[string]any{"x": map[string]any{"y": 2}, "w": 5}
		muts := diff.GetMutations(a, b, true)
		Expect(muts).NotTo(BeEmpty())

		cloned, err := diff.CloneObject(a)
		Expect(err).NotTo(HaveOccurred())
		applied := cloned.(map[string]any)
		for _, m := range muts {
			applyMutation(applied, m.Target, m.Val)
		}
		Expect(diff.ValuesAreEqual(applied, b)).To(BeTrue())
	})
})

func applyMutation(root map[string]any, target []any, val any) {
	if len(target) == 0 {
		return
	}
	cur := any(root)
	for i := 0; i < len(target)-1; i++ {
		m := cur.(map[string]any)
		cur = m[target[i].(string)]
	}
	lastKey := target[len(target)-1]
	m := cur.(map[string]any)
	if val == nil {
		delete(m, lastKey.(string))
	} else {
		m[lastKey.(string)] = val
	}
}
