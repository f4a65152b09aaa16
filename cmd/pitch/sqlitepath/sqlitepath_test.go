package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolve", func() {
	var origXDG string

	BeforeEach(func() {
		origXDG = os.Getenv("XDG_DATA_HOME")
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Setenv("XDG_DATA_HOME", origXDG)).To(Succeed())
	})

	It("returns the override untouched", func() {
		path, err := Resolve("/tmp/custom.db", "", KnowledgeDB)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("places the file in the config dir", func() {
		dir := GinkgoT().TempDir()

		path, err := Resolve("", dir, TranscriptDB)
		Expect(err).NotTo(HaveOccurred())

		abs, err := filepath.Abs(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(abs, TranscriptDB)))
	})

	It("prefers an existing file under XDG_DATA_HOME", func() {
		xdg := GinkgoT().TempDir()
		Expect(os.Setenv("XDG_DATA_HOME", xdg)).To(Succeed())

		dbPath := filepath.Join(xdg, "pitch", KnowledgeDB)
		Expect(os.MkdirAll(filepath.Dir(dbPath), 0o755)).To(Succeed())
		Expect(os.WriteFile(dbPath, []byte("test"), 0o644)).To(Succeed())

		path, err := Resolve("", GinkgoT().TempDir(), KnowledgeDB)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(dbPath))
	})

	It("ignores XDG_DATA_HOME when the file is absent", func() {
		Expect(os.Setenv("XDG_DATA_HOME", GinkgoT().TempDir())).To(Succeed())
		dir := GinkgoT().TempDir()

		path, err := Resolve("", dir, KnowledgeDB)
		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Base(path)).To(Equal(KnowledgeDB))
		Expect(path).NotTo(ContainSubstring(filepath.Join("pitch", KnowledgeDB)))
	})
})
