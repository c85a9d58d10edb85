package typemapping_test

import (
	"reflect"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/acebase-go/acebase-core/pkg/path"
	"github.com/acebase-go/acebase-core/pkg/typemapping"
)

func TestTypeMapping(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "typemapping suite")
}

type user struct {
	Name string
}

func newRegistryWithUser() *typemapping.Registry {
	r := typemapping.New()
	_ = r.Bind("users", reflect.TypeOf(user{}), typemapping.BindOptions{
		Serializer: func(instance any, ref any) (any, error) {
			u := instance.(*user)
			return map[string]any{"name": u.Name}, nil
		},
		Deserializer: func(snap any) (any, error) {
			m := snap.(map[string]any)
			return &user{Name: m["name"].(string)}, nil
		},
	})
	return r
}

var _ = Describe("Registry", func() {
	It("maps a concrete child path to its container's binding", func() {
		r := newRegistryWithUser()
		p := path.MustGet("users/ewout")
		m, ok := r.Map(p)
		Expect(ok).To(BeTrue())
		Expect(m.Pattern.Path()).To(Equal("users"))
	})

	It("rejects binding a method name the type does not have", func() {
		r := typemapping.New()
		err := r.Bind("users", reflect.TypeOf(user{}), typemapping.BindOptions{SerializerMethod: "ToJSON"})
		Expect(err).To(HaveOccurred())
	})

	It("mapDeep finds bindings at or below the entry path's parent", func() {
		r := newRegistryWithUser()
		ms := r.MapDeep(path.MustGet("users/ewout"))
		Expect(ms).To(HaveLen(1))
	})

	It("serializes every direct child of a bound container without mutating the original", func() {
		r := newRegistryWithUser()
		original := map[string]any{
			"ewout": &user{Name: "Ewout"},
			"marco": &user{Name: "Marco"},
		}
		out, err := r.Serialize(original, path.MustGet("users"), nil)
		Expect(err).NotTo(HaveOccurred())

		plain := out.(map[string]any)
		Expect(plain["ewout"]).To(Equal(map[string]any{"name": "Ewout"}))
		Expect(plain["marco"]).To(Equal(map[string]any{"name": "Marco"}))
		Expect(original["ewout"]).To(Equal(&user{Name: "Ewout"}))
	})

	It("deserializes every direct child of a bound container back into instances", func() {
		r := newRegistryWithUser()
		plain := map[string]any{
			"ewout": map[string]any{"name": "Ewout"},
		}
		out, err := r.Deserialize(plain, path.MustGet("users"), func(v any) any { return v })
		Expect(err).NotTo(HaveOccurred())

		result := out.(map[string]any)
		Expect(result["ewout"]).To(Equal(&user{Name: "Ewout"}))
	})
})
