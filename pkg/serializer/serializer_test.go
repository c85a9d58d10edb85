package serializer_test

import (
	"math/big"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/acebase-go/acebase-core/internal/ascii85"
	"github.com/acebase-go/acebase-core/pkg/acerr"
	"github.com/acebase-go/acebase-core/pkg/diff"
	"github.com/acebase-go/acebase-core/pkg/serializer"
	"github.com/acebase-go/acebase-core/pkg/values"
)

func TestSerializer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "serializer suite")
}

func richValue() map[string]any {
	big, _ := new(big.Int).SetString("2983834762734857652534876237876233438476", 10)
	return map[string]any{
		"when":  time.Date(2022, 4, 22, 7, 49, 23, 0, time.UTC),
		"bytes": values.Binary{0x41, 0x63, 0x65, 0x42, 0x61, 0x73, 0x65},
		"tag":   values.NewRegexp("Ace", "i"),
		"big":   big,
		"ref":   values.NewPathReference("other/path"),
		"sparse": values.PartialArray{
			5:  "x",
			12: time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

var _ = Describe("Codec", func() {
	codec := serializer.New(ascii85.Codec{})

	It("round-trips all rich types through V1", func() {
		v := richValue()
		wire, err := codec.SerializeV1(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(serializer.DetectVersion(wire)).To(Equal(1))

		back, err := codec.DeserializeV1(wire)
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.ValuesAreEqual(back, v)).To(BeTrue())
	})

	It("round-trips all rich types through V2", func() {
		v := richValue()
		wire, err := codec.SerializeV2(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(serializer.DetectVersion(wire)).To(Equal(2))

		back, err := codec.DeserializeV2(wire)
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.ValuesAreEqual(back, v)).To(BeTrue())
	})

	It("round-trips through the auto-detecting Deserialize", func() {
		v := richValue()
		wireV1, _ := codec.SerializeV1(v)
		wireV2, _ := codec.SerializeV2(v)

		back1, err := codec.Deserialize(wireV1)
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.ValuesAreEqual(back1, v)).To(BeTrue())

		back2, err := codec.Deserialize(wireV2)
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.ValuesAreEqual(back2, v)).To(BeTrue())
	})

	It("marks a V2 object whose only key is val with a version marker", func() {
		v := map[string]any{"val": "not actually typed"}
		wire, err := codec.SerializeV2(v)
		Expect(err).NotTo(HaveOccurred())
		m := wire.(map[string]any)
		Expect(m).To(HaveKeyWithValue(".version", 2))
		Expect(serializer.DetectVersion(wire)).To(Equal(2))

		back, err := codec.DeserializeV2(wire)
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.ValuesAreEqual(back, v)).To(BeTrue())
	})

	It("omits map entirely when there are no typed leaves", func() {
		v := map[string]any{"a": 1, "b": "two"}
		wire, err := codec.SerializeV1(v)
		Expect(err).NotTo(HaveOccurred())
		m := wire.(map[string]any)
		Expect(m).NotTo(HaveKey("map"))
		Expect(serializer.DetectVersion(wire)).To(Equal(1))
	})

	It("uses a single type tag when the top-level value itself is typed", func() {
		v := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		wire, err := codec.SerializeV1(v)
		Expect(err).NotTo(HaveOccurred())
		m := wire.(map[string]any)
		Expect(m["map"]).To(Equal(serializer.TypeDate))
	})

	It("raises SerializerFormatError for an unknown V2 type tag", func() {
		wire := map[string]any{".type": "unknown", ".val": "x"}
		_, err := codec.DeserializeV2(wire)
		Expect(err).To(HaveOccurred())
		Expect(acerr.IsSerializerFormatError(err)).To(BeTrue())
	})

	It("raises SerializerFormatError for V1 missing val", func() {
		wire := map[string]any{"map": "date"}
		_, err := codec.DeserializeV1(wire)
		Expect(err).To(HaveOccurred())
		Expect(acerr.IsSerializerFormatError(err)).To(BeTrue())
	})

	It("frames binary payloads with <~ and ~>", func() {
		wire, _ := codec.SerializeV2(values.Binary("AceBase"))
		m := wire.(map[string]any)
		s := m[".val"].(string)
		Expect(s).To(HavePrefix("<~"))
		Expect(s).To(HaveSuffix("~>"))
	})
})
