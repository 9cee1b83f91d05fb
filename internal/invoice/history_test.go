package invoice

import (
	"fmt"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("History", func() {
	var history *History

	BeforeEach(func() {
		path := filepath.Join(GinkgoT().TempDir(), "history.db")
		var err error
		history, err = OpenHistory(path)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(history.Close()).To(Succeed())
	})

	It("starts empty", func() {
		Expect(history.List()).To(BeEmpty())
	})

	It("returns names most recent first", func() {
		Expect(history.Add("alfa")).To(Succeed())
		Expect(history.Add("beta")).To(Succeed())
		Expect(history.Add("gama")).To(Succeed())

		Expect(history.List()).To(Equal([]string{"gama", "beta", "alfa"}))
	})

	It("moves a re-added name to the front without duplicating it", func() {
		Expect(history.Add("alfa")).To(Succeed())
		Expect(history.Add("beta")).To(Succeed())
		Expect(history.Add("alfa")).To(Succeed())

		Expect(history.List()).To(Equal([]string{"alfa", "beta"}))
	})

	It("caps the history at twenty names", func() {
		for i := 0; i < 25; i++ {
			Expect(history.Add(fmt.Sprintf("firma-%d", i))).To(Succeed())
		}

		names := history.List()
		Expect(names).To(HaveLen(20))
		Expect(names[0]).To(Equal("firma-24"))
		Expect(names[19]).To(Equal("firma-5"))
	})

	It("ignores empty names and the placeholder", func() {
		Expect(history.Add("")).To(Succeed())
		Expect(history.Add("moje_firma")).To(Succeed())

		Expect(history.List()).To(BeEmpty())
	})
})
