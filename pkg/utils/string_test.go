package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	It("returns the string unchanged when within the limit", func() {
		Expect(Truncate("short", 10)).To(Equal("short"))
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("truncates with an ellipsis when over the limit", func() {
		Expect(Truncate(`{"pilot": "colapinto"}`, 9)).To(Equal(`{"pilot":...`))
	})

	It("backs off to a rune boundary", func() {
		// "é" is two bytes, the limit falls between them.
		Expect(Truncate("Pérez", 2)).To(Equal("P..."))
	})
})
