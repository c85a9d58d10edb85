package acebase_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/acebase-go/acebase-core/examples/storage/memstore"
	"github.com/acebase-go/acebase-core/pkg/acebase"
	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/storageapi"
)

func TestAcebase(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "acebase suite")
}

func newDb() *acebase.Db {
	return acebase.NewDb(memstore.New(), nil, nil)
}

var _ = Describe("DataReference", func() {
	It("round-trips set then get", func() {
		db := newDb()
		ctx := context.Background()
		ref, err := db.Ref("users/ewout")
		Expect(err).NotTo(HaveOccurred())

		Expect(ref.Set(ctx, map[string]any{"name": "Ewout"})).To(Succeed())
		snap, err := ref.Get(ctx, storageapi.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Exists()).To(BeTrue())
		Expect(snap.Val()).To(Equal(map[string]any{"name": "Ewout"}))
	})

	It("refuses operations on wildcard paths", func() {
		db := newDb()
		ctx := context.Background()
		ref, err := db.Ref("users/$uid")
		Expect(err).NotTo(HaveOccurred())

		_, err = ref.Get(ctx, storageapi.GetOptions{})
		Expect(acerr.IsWildcardError(err)).To(BeTrue())
	})

	It("refuses set on root", func() {
		db := newDb()
		ctx := context.Background()
		ref, err := db.Ref("")
		Expect(err).NotTo(HaveOccurred())
		err = ref.Set(ctx, map[string]any{"a": 1})
		Expect(acerr.IsPathRuleError(err)).To(BeTrue())
	})

	It("push mints a new child id and writes to it", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("messages")
		child, err := ref.Push(ctx, map[string]any{"text": "hi"})
		Expect(err).NotTo(HaveOccurred())
		Expect(child.Key()).NotTo(BeEmpty())

		snap, err := child.Get(ctx, storageapi.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Val()).To(Equal(map[string]any{"text": "hi"}))
	})

	It("forEach streams every child sequentially and honors cancellation", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("users")
		Expect(ref.Set(ctx, map[string]any{
			"a": map[string]any{"name": "A"},
			"b": map[string]any{"name": "B"},
			"c": map[string]any{"name": "C"},
		})).To(Succeed())

		seen := []any{}
		result, err := ref.ForEach(ctx, storageapi.GetOptions{}, func(snap *acebase.DataSnapshot) (bool, error) {
			seen = append(seen, snap.Val())
			return len(seen) < 2, nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Canceled).To(BeTrue())
		Expect(result.Processed).To(Equal(2))
		Expect(result.Total).To(Equal(3))
	})

	It("transaction replaces the current value", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("counter")
		Expect(ref.Set(ctx, map[string]any{"n": float64(1)})).To(Succeed())

		err := ref.Transaction(ctx, func(snap *acebase.DataSnapshot) (any, error) {
			m := snap.Val().(map[string]any)
			return map[string]any{"n": m["n"].(float64) + 1}, nil
		})
		Expect(err).NotTo(HaveOccurred())

		snap, _ := ref.Get(ctx, storageapi.GetOptions{})
		Expect(snap.Val()).To(Equal(map[string]any{"n": float64(2)}))
	})

	It("delivers a value subscription with immediate backfill", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("settings")
		Expect(ref.Set(ctx, map[string]any{"theme": "dark"})).To(Succeed())

		received := make(chan *acebase.EventPayload, 4)
		_, err := ref.On(ctx, "value", func(p *acebase.EventPayload) {
			received <- p
		}, nil)
		Expect(err).NotTo(HaveOccurred())

		var first *acebase.EventPayload
		Eventually(received).Should(Receive(&first))
		Expect(first.Snapshot.Val()).To(Equal(map[string]any{"theme": "dark"}))

		Expect(ref.Set(ctx, map[string]any{"theme": "light"})).To(Succeed())
		var second *acebase.EventPayload
		Eventually(received).Should(Receive(&second))
		Expect(second.Snapshot.Val()).To(Equal(map[string]any{"theme": "light"}))
	})

	It("runs a query with an equality filter", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("users")
		Expect(ref.Set(ctx, map[string]any{
			"a": map[string]any{"age": float64(30)},
			"b": map[string]any{"age": float64(40)},
		})).To(Succeed())

		q, err := acebase.NewQuery(ref).Where("age", storageapi.OpEQ, float64(40))
		Expect(err).NotTo(HaveOccurred())
		snaps, _, err := q.Get(ctx, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(snaps).To(HaveLen(1))
	})

	It("getMutations forwards a cursor-typed argument to storage", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("users")
		Expect(ref.Set(ctx, map[string]any{"a": 1})).To(Succeed())
		recs, err := ref.GetMutations(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(len(recs)).To(BeNumerically(">=", 1))
	})

	It("getChanges accepts a time.Time argument", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("users")
		_, err := ref.GetChanges(ctx, time.Now())
		Expect(err).NotTo(HaveOccurred())
	})
})
