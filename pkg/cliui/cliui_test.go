package cliui_test

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/cliui"
	"github.com/papercomputeco/pitch/pkg/vector"
)

var _ = Describe("Step", func() {
	It("writes one result line for a non-terminal writer", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "Embedding", func() error { return nil })
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Count(buf.String(), "\n")).To(Equal(1))
		Expect(buf.String()).To(ContainSubstring("Embedding"))
	})

	It("returns the callback error", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")
		Expect(cliui.Step(&buf, "Upserting", func() error { return boom })).To(MatchError(boom))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("keeps the text in plain mode", func() {
		out, err := cliui.RenderMarkdown("Branch **A** leads.", 60, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Branch"))
		Expect(out).To(ContainSubstring("leads."))
	})

	It("renders with a named style", func() {
		out, err := cliui.RenderMarkdownStyle("Branch **A** leads.", 60, "dark")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("leads."))
	})
})

var _ = Describe("Results", func() {
	It("lists records best first", func() {
		out := cliui.Results([]vector.QueryResult{
			{Record: vector.NewRecord("chunk-1", nil, "Invoice ID: 1, Branch: A"), Score: 0.9},
			{Record: vector.NewRecord("note-ab", nil, "Push health products"), Score: 0.5},
		}, 80)
		Expect(out).To(ContainSubstring("chunk-1"))
		Expect(out).To(ContainSubstring("Push health products"))
		Expect(strings.Index(out, "chunk-1")).To(BeNumerically("<", strings.Index(out, "note-ab")))
	})

	It("truncates long text", func() {
		out := cliui.Results([]vector.QueryResult{
			{Record: vector.NewRecord("x", nil, strings.Repeat("a", 50))},
		}, 10)
		Expect(out).To(ContainSubstring("…"))
		Expect(out).NotTo(ContainSubstring(strings.Repeat("a", 11)))
	})

	It("says so when empty", func() {
		Expect(cliui.Results(nil, 80)).To(ContainSubstring("no matching records"))
	})
})

var _ = Describe("Width", func() {
	It("falls back when the file is not a terminal", func() {
		f, err := os.CreateTemp(GinkgoT().TempDir(), "out")
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()

		Expect(cliui.Width(f, 72)).To(Equal(72))
		Expect(cliui.Plain(f)).To(BeTrue())
	})
})
