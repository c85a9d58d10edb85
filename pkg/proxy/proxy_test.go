package proxy_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/acebase-go/acebase-core/examples/storage/memstore"
	"github.com/acebase-go/acebase-core/pkg/acebase"
	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/proxy"
	"github.com/acebase-go/acebase-core/pkg/storageapi"
)

func TestProxy(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "proxy suite")
}

func newDb() *acebase.Db {
	return acebase.NewDb(memstore.New(), nil, nil)
}

var _ = Describe("Proxy", func() {
	It("installs a default value when the target is void", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("settings")

		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{"theme": "dark"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Value().Val()).To(Equal(map[string]any{"theme": "dark"}))

		snap, err := ref.Get(ctx, storageapi.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Val()).To(Equal(map[string]any{"theme": "dark"}))
	})

	It("does not overwrite an existing value with the default", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("settings")
		Expect(ref.Set(ctx, map[string]any{"theme": "light"})).To(Succeed())

		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{"theme": "dark"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Value().Val()).To(Equal(map[string]any{"theme": "light"}))
	})

	It("flags a property write and drains it to storage", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("users/ewout")

		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{"name": "Ewout"}})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Value().Child("age").Set(float64(33))).To(Succeed())

		Eventually(func() any {
			snap, _ := ref.Get(ctx, storageapi.GetOptions{})
			m, _ := snap.Val().(map[string]any)
			return m["age"]
		}).Should(Equal(float64(33)))
	})

	It("removes a property via Set(nil)", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("users/ewout")
		Expect(ref.Set(ctx, map[string]any{"name": "Ewout", "age": float64(33)})).To(Succeed())

		p, err := ref.Proxy(ctx, proxy.Options{})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Value().Child("age").Remove()).To(Succeed())

		Eventually(func() any {
			snap, _ := ref.Get(ctx, storageapi.GetOptions{})
			m, _ := snap.Val().(map[string]any)
			_, has := m["age"]
			return has
		}).Should(BeFalse())
	})

	It("pushes a new child under a minted id", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("messages")

		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{}})
		Expect(err).NotTo(HaveOccurred())

		child, err := p.Value().Push(map[string]any{"text": "hi"})
		Expect(err).NotTo(HaveOccurred())
		Expect(child.Target()).To(HaveLen(1))

		Eventually(func() any {
			return p.Value().Child(child.Target()[0]).Val()
		}).Should(Equal(map[string]any{"text": "hi"}))
	})

	It("notifies OnChanged with a single in-scope mutation", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("users/ewout")

		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{"name": "Ewout"}})
		Expect(err).NotTo(HaveOccurred())

		seen := make(chan any, 4)
		stop := p.Value().Child("name").OnChanged(func(newVal, _ any) bool {
			seen <- newVal
			return true
		})
		defer stop()

		Expect(p.Value().Child("name").Set("Ewout Stortenbeker")).To(Succeed())
		Eventually(seen).Should(Receive(Equal("Ewout Stortenbeker")))
	})

	It("derives a scoped change from multiple deeper mutations", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("users/ewout")

		p, err := ref.Proxy(ctx, proxy.Options{
			DefaultValue: map[string]any{"address": map[string]any{"city": "A", "zip": "1"}},
		})
		Expect(err).NotTo(HaveOccurred())

		seen := make(chan map[string]any, 4)
		stop := p.Value().Child("address").OnChanged(func(newVal, _ any) bool {
			m, _ := newVal.(map[string]any)
			seen <- m
			return true
		})
		defer stop()

		addr := p.Value().Child("address")
		Expect(addr.Child("city").Set("B")).To(Succeed())
		Expect(addr.Child("zip").Set("2")).To(Succeed())

		Eventually(seen).Should(Receive(Equal(map[string]any{"city": "B", "zip": "2"})))
	})

	It("rejects overlapping transaction scopes", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("account")
		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{"balance": float64(0)}})
		Expect(err).NotTo(HaveOccurred())

		tx, err := p.Value().StartTransaction(ctx)
		Expect(err).NotTo(HaveOccurred())
		defer tx.Rollback()

		_, err = p.Value().Child("balance").StartTransaction(ctx)
		Expect(acerr.IsTransactionConflictError(err)).To(BeTrue())
	})

	It("commits a transaction's mutations to storage", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("account")
		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{"balance": float64(0)}})
		Expect(err).NotTo(HaveOccurred())

		tx, err := p.Value().StartTransaction(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Value().Child("balance").Set(float64(100))).To(Succeed())
		Expect(tx.HasMutations()).To(BeTrue())
		Expect(tx.Commit()).To(Succeed())

		Eventually(func() any {
			snap, _ := ref.Get(ctx, storageapi.GetOptions{})
			m, _ := snap.Val().(map[string]any)
			return m["balance"]
		}).Should(Equal(float64(100)))
	})

	It("rolls back a transaction's mutations from the cache", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("account")
		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{"balance": float64(0)}})
		Expect(err).NotTo(HaveOccurred())

		tx, err := p.Value().StartTransaction(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Value().Child("balance").Set(float64(100))).To(Succeed())
		Expect(tx.Rollback()).To(Succeed())

		Expect(p.Value().Child("balance").Val()).To(Equal(float64(0)))
	})

	It("maintains order on an ordered collection through add, move and delete", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("tasks")
		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{}})
		Expect(err).NotTo(HaveOccurred())

		oc := p.Value().GetOrderedCollection("order", 10)
		Expect(oc.Add("a", map[string]any{"title": "A"}, nil, nil)).To(Succeed())
		Expect(oc.Add("b", map[string]any{"title": "B"}, nil, nil)).To(Succeed())
		Expect(oc.Add("c", map[string]any{"title": "C"}, nil, nil)).To(Succeed())

		first := 0
		Expect(oc.Add("d", map[string]any{"title": "D"}, &first, nil)).To(Succeed())

		arr := oc.GetArray()
		Expect(arr).To(HaveLen(4))
		titles := make([]string, len(arr))
		for i, v := range arr {
			m, _ := v.(map[string]any)
			titles[i] = m["title"].(string)
		}
		Expect(titles).To(Equal([]string{"D", "A", "B", "C"}))

		Expect(oc.Delete(0)).To(Succeed())
		arr = oc.GetArray()
		Expect(arr).To(HaveLen(3))
	})

	It("destroys cleanly and rejects further writes", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("gone")
		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{"a": float64(1)}})
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Destroy()).To(Succeed())
		err = p.Value().Child("a").Set(float64(2))
		Expect(acerr.IsProxyDestroyedError(err)).To(BeTrue())
	})

	It("ignores its own writes on the remote mutation channel", func() {
		db := newDb()
		ctx := context.Background()
		ref, _ := db.Ref("doc")
		p, err := ref.Proxy(ctx, proxy.Options{DefaultValue: map[string]any{"n": float64(1)}})
		Expect(err).NotTo(HaveOccurred())

		errs := make(chan proxy.ErrorEvent, 4)
		stop := p.On("error", func(data any) {
			if e, ok := data.(proxy.ErrorEvent); ok {
				errs <- e
			}
		})
		defer stop()

		Expect(p.Value().Child("n").Set(float64(2))).To(Succeed())
		Eventually(func() any {
			return p.Value().Child("n").Val()
		}).Should(Equal(float64(2)))
		Expect(errs).NotTo(Receive())
	})
})
