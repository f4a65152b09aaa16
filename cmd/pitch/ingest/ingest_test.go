package ingestcmder_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/cmd/pitch/clientcmd/clientcmdtest"
	ingestcmder "github.com/papercomputeco/pitch/cmd/pitch/ingest"
)

const salesHeader = "Invoice ID,Branch,City,Customer type,Gender,Product line,Unit price,Quantity,Tax 5%,Total,Date,Time,Payment,cogs,gross margin percentage,gross income,Rating"

func writeCSV(dir, name string, rows ...string) string {
	path := filepath.Join(dir, name)
	content := salesHeader + "\n" + strings.Join(rows, "\n") + "\n"
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

var _ = Describe("ingest", func() {
	var (
		fixture *clientcmdtest.Fixture
		dir     string
	)

	BeforeEach(func() {
		fixture = clientcmdtest.Start()
		dir = GinkgoT().TempDir()
	})

	It("uploads a file and reports the outcome", func() {
		path := writeCSV(dir, "sales.csv",
			"750-67-8428,A,Yangon,Member,Female,Health and beauty,74.69,7,26.1415,548.9715,1/5/2019,13:08,Ewallet,522.83,4.761904762,26.1415,9.1",
			"226-31-3081,C,Naypyitaw,Normal,Female,Electronic accessories,15.28,5,3.82,80.22,3/8/2019,10:29,Cash,76.4,4.761904762,3.82,9.6",
		)

		out, err := fixture.Execute(ingestcmder.NewIngestCmd(), path)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Ingesting " + path))
		Expect(fixture.Index.Len()).To(Equal(2))
	})

	It("reports malformed rows and keeps the rest", func() {
		path := writeCSV(dir, "mixed.csv",
			"750-67-8428,A,Yangon,Member,Female,Health and beauty,74.69,7,26.1415,548.9715,1/5/2019,13:08,Ewallet,522.83,4.761904762,26.1415,9.1",
			"bad-row,A,Yangon,Member,Female,Health and beauty,lots,7,26.1415,548.9715,1/5/2019,13:08,Ewallet,522.83,4.761904762,26.1415,9.1",
		)

		out, err := fixture.Execute(ingestcmder.NewIngestCmd(), path)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("row 2"))
		Expect(fixture.Index.Len()).To(Equal(1))
	})

	It("rejects unsupported files before uploading", func() {
		path := filepath.Join(dir, "notes.txt")
		Expect(os.WriteFile(path, []byte("hello"), 0o644)).To(Succeed())

		_, err := fixture.Execute(ingestcmder.NewIngestCmd(), path)
		Expect(err).To(MatchError(ContainSubstring("notes.txt")))
	})

	It("fails when the index rejects the batch", func() {
		fixture.Index.FailUpsert = true
		path := writeCSV(dir, "sales.csv",
			"750-67-8428,A,Yangon,Member,Female,Health and beauty,74.69,7,26.1415,548.9715,1/5/2019,13:08,Ewallet,522.83,4.761904762,26.1415,9.1",
		)

		out, err := fixture.Execute(ingestcmder.NewIngestCmd(), path)
		Expect(err).To(HaveOccurred())
		Expect(out).To(ContainSubstring("stored"))
	})
})
