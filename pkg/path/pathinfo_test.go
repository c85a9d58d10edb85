package path_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/acebase-go/acebase-core/pkg/path"
)

func TestPath(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "path suite")
}

var _ = Describe("PathInfo", func() {
	It("parses canonical form and strips slashes", func() {
		pi, err := path.Get("/users/ewout/")
		Expect(err).NotTo(HaveOccurred())
		Expect(pi.Path()).To(Equal("users/ewout"))
	})

	It("parses bracketed array indices attached to the preceding key", func() {
		pi, err := path.Get("posts[0]/title")
		Expect(err).NotTo(HaveOccurred())
		Expect(pi.Path()).To(Equal("posts[0]/title"))
		keys := pi.Keys()
		Expect(keys).To(HaveLen(3))
		Expect(keys[0].Name).To(Equal("posts"))
		Expect(keys[1].IsIndex).To(BeTrue())
		Expect(keys[1].Index).To(Equal(0))
		Expect(keys[2].Name).To(Equal("title"))
	})

	It("round-trips child/parent", func() {
		pi := path.MustGet("a/b")
		child, err := pi.Child("c")
		Expect(err).NotTo(HaveOccurred())
		parent, ok := child.Parent()
		Expect(ok).To(BeTrue())
		Expect(parent.Equals(pi)).To(BeTrue())
	})

	It("accepts a sub-path child and rejects an invalid key", func() {
		x := path.MustGet("x")
		child, err := x.Child("a/b[2]/c")
		Expect(err).NotTo(HaveOccurred())
		Expect(child.Path()).To(Equal("x/a/b[2]/c"))

		_, err = x.Child("bad\\key")
		Expect(err).To(HaveOccurred())
	})

	It("rejects empty, too-long and control-char keys", func() {
		_, err := path.MustGet("a").Child("")
		Expect(err).To(HaveOccurred())

		long := make([]byte, 129)
		for i := range long {
			long[i] = 'a'
		}
		_, err = path.MustGet("a").Child(string(long))
		Expect(err).To(HaveOccurred())

		_, err = path.MustGet("a").Child("x\x01y")
		Expect(err).To(HaveOccurred())
	})

	It("matches wildcards and variables in Equals", func() {
		a := path.MustGet("posts/$id")
		b := path.MustGet("posts/123")
		Expect(a.Equals(b)).To(BeTrue())

		c := path.MustGet("posts/*")
		Expect(c.Equals(b)).To(BeTrue())
	})

	It("is irreflexive and antisymmetric for IsAncestorOf", func() {
		a := path.MustGet("users/ewout")
		Expect(a.IsAncestorOf(a)).To(BeFalse())

		b := path.MustGet("users/ewout/posts")
		Expect(a.IsAncestorOf(b)).To(BeTrue())
		Expect(b.IsAncestorOf(a)).To(BeFalse())
		Expect(path.Root.IsAncestorOf(a)).To(BeTrue())
	})

	It("is reflexive and symmetric for IsOnTrailOf", func() {
		a := path.MustGet("users/ewout")
		b := path.MustGet("users/ewout/posts/post1")
		Expect(a.IsOnTrailOf(a)).To(BeTrue())
		Expect(a.IsOnTrailOf(b)).To(BeTrue())
		Expect(b.IsOnTrailOf(a)).To(BeTrue())
		Expect(path.Root.IsOnTrailOf(a)).To(BeTrue())
	})

	It("extracts variables in order and by name", func() {
		pattern := path.MustGet("users/$uid/posts/$postid")
		concrete := path.MustGet("users/ewout/posts/post1/title")
		res := path.ExtractVariables(pattern, concrete)
		Expect(res.Length()).To(Equal(2))
		Expect(res.Ordered).To(Equal([]any{"ewout", "post1"}))
		Expect(res.Named["uid"]).To(Equal("ewout"))
		Expect(res.Named["$uid"]).To(Equal("ewout"))
		Expect(res.Named["postid"]).To(Equal("post1"))
		Expect(res.Named["$postid"]).To(Equal("post1"))
	})

	It("returns empty extraction when the pattern has no wildcards", func() {
		pattern := path.MustGet("users/ewout")
		concrete := path.MustGet("users/ewout")
		res := path.ExtractVariables(pattern, concrete)
		Expect(res.Length()).To(Equal(0))
	})

	It("fills variables back into a pattern", func() {
		pattern := path.MustGet("users/$uid/posts/$postid")
		concrete := path.MustGet("users/ewout/posts/post1")
		Expect(path.FillVariables(pattern, concrete)).To(Equal("users/ewout/posts/post1"))
	})
})
