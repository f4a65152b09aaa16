package chunk_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/chunk"
)

func salesRow() chunk.Row {
	return chunk.Row{
		"Invoice ID":              "750-67-8428",
		"Branch":                  "A",
		"City":                    "Yangon",
		"Customer type":           "Member",
		"Gender":                  "Female",
		"Product line":            "Health and beauty",
		"Unit price":              "74.69",
		"Quantity":                "7",
		"Tax 5%":                  "26.1415",
		"Total":                   "548.9715",
		"Date":                    "1/5/2019",
		"Time":                    "13:08",
		"Payment":                 "Ewallet",
		"cogs":                    "522.83",
		"gross margin percentage": "4.761904762",
		"gross income":            "26.1415",
		"Rating":                  "9.1",
	}
}

var _ = Describe("Builder", func() {
	Describe("with the sales schema", func() {
		var b *chunk.Builder

		BeforeEach(func() {
			var err error
			b, err = chunk.NewBuilder(chunk.SalesSchema)
			Expect(err).NotTo(HaveOccurred())
		})

		It("renders labelled values in schema order", func() {
			c, err := b.Build(salesRow())
			Expect(err).NotTo(HaveOccurred())
			Expect(c.ID).To(Equal("chunk-750-67-8428"))
			Expect(c.Text).To(Equal(
				"Invoice ID: 750-67-8428, Branch: A, City: Yangon, Customer type: Member, Gender: Female, " +
					"Product line: Health and beauty, Unit price: 74.69, Quantity: 7, Tax 5%: 26.1415, " +
					"Total: 548.9715, Date: 1/5/2019, Time: 13:08, Payment: Ewallet, COGS: 522.83, " +
					"Gross margin percentage: 4.761904762, Gross income: 26.1415, Rating: 9.1"))
		})

		It("is deterministic", func() {
			a, err := b.Build(salesRow())
			Expect(err).NotTo(HaveOccurred())
			c, err := b.Build(salesRow())
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(Equal(c))
		})

		It("lists every missing field", func() {
			row := salesRow()
			delete(row, "City")
			row["Rating"] = "  "

			_, err := b.Build(row)
			Expect(err).To(MatchError(chunk.ErrSchema))

			var se *chunk.SchemaError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Missing).To(Equal([]string{"City", "Rating"}))
		})

		It("names a field whose value does not parse", func() {
			row := salesRow()
			row["Quantity"] = "seven"

			_, err := b.Build(row)
			var se *chunk.SchemaError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Field).To(Equal("Quantity"))
			Expect(err.Error()).To(ContainSubstring("an integer"))
		})

		It("rejects malformed dates and times", func() {
			row := salesRow()
			row["Date"] = "yesterday"
			_, err := b.Build(row)
			Expect(err).To(MatchError(ContainSubstring(`"Date"`)))

			row = salesRow()
			row["Time"] = "noonish"
			_, err = b.Build(row)
			Expect(err).To(MatchError(ContainSubstring(`"Time"`)))
		})

		It("ignores extra columns", func() {
			row := salesRow()
			row["Notes"] = "ignored"
			c, err := b.Build(row)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Text).NotTo(ContainSubstring("ignored"))
		})

		It("names the id field of a repeated row", func() {
			err := b.Duplicate(salesRow(), 4)
			Expect(err).To(MatchError(chunk.ErrSchema))
			Expect(err.Field).To(Equal("Invoice ID"))
			Expect(err.Value).To(Equal("750-67-8428"))
			Expect(err.Error()).To(ContainSubstring("row 4"))
		})
	})

	Describe("without an id field", func() {
		It("derives the ID from a content hash", func() {
			b, err := chunk.NewBuilder(chunk.FromHeader("notes", []string{"Lead", "Stage"}))
			Expect(err).NotTo(HaveOccurred())

			c, err := b.Build(chunk.Row{"Lead": "Acme", "Stage": "Qualified"})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Text).To(Equal("Lead: Acme, Stage: Qualified"))
			Expect(c.ID).To(Equal("chunk-" + chunk.ContentHash(c.Text)))
			Expect(c.ID).To(HaveLen(len("chunk-") + 16))

			other, err := b.Build(chunk.Row{"Lead": "Globex", "Stage": "Qualified"})
			Expect(err).NotTo(HaveOccurred())
			Expect(other.ID).NotTo(Equal(c.ID))
		})

		It("describes a repeated row without naming a field", func() {
			b, err := chunk.NewBuilder(chunk.FromHeader("notes", []string{"Lead"}))
			Expect(err).NotTo(HaveOccurred())

			dup := b.Duplicate(chunk.Row{"Lead": "Acme"}, 0)
			Expect(dup.Field).To(BeEmpty())
			Expect(dup.Error()).To(Equal("record does not match schema: repeats row 0"))
		})
	})

	It("builds three chunks carrying every value", func() {
		b, err := chunk.NewBuilder(chunk.Schema{
			Name:    "mini",
			IDField: "Invoice ID",
			Fields: []chunk.Field{
				{Name: "Invoice ID", Type: chunk.TypeText},
				{Name: "Branch", Type: chunk.TypeText},
				{Name: "Total", Type: chunk.TypeNumber},
			},
		})
		Expect(err).NotTo(HaveOccurred())

		rows := []chunk.Row{
			{"Invoice ID": "1", "Branch": "A", "Total": "10.5"},
			{"Invoice ID": "2", "Branch": "B", "Total": "20"},
			{"Invoice ID": "3", "Branch": "C", "Total": "30.25"},
		}
		for _, r := range rows {
			c, err := b.Build(r)
			Expect(err).NotTo(HaveOccurred())
			for _, v := range r {
				Expect(c.Text).To(ContainSubstring(v))
			}
		}
	})
})

var _ = Describe("Schema", func() {
	It("rejects an undeclared id field", func() {
		err := chunk.Schema{Name: "x", IDField: "id", Fields: []chunk.Field{{Name: "a", Type: chunk.TypeText}}}.Validate()
		Expect(err).To(MatchError(ContainSubstring("not declared")))
	})

	It("rejects unknown types and duplicates", func() {
		Expect(chunk.Schema{Name: "x", Fields: []chunk.Field{{Name: "a", Type: "blob"}}}.Validate()).NotTo(Succeed())
		Expect(chunk.Schema{Name: "x", Fields: []chunk.Field{
			{Name: "a", Type: chunk.TypeText}, {Name: "a", Type: chunk.TypeText},
		}}.Validate()).NotTo(Succeed())
	})

	It("builds text schemas from headers", func() {
		s := chunk.FromHeader("h", []string{" Lead ", "", "Stage", "Lead"})
		Expect(s.Fields).To(Equal([]chunk.Field{
			{Name: "Lead", Type: chunk.TypeText},
			{Name: "Stage", Type: chunk.TypeText},
		}))
	})

	It("registers and looks up schemas", func() {
		s, err := chunk.Lookup("sales")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Fields).To(HaveLen(17))

		Expect(chunk.Register(chunk.FromHeader("leads", []string{"Lead"}))).To(Succeed())
		Expect(chunk.Names()).To(ContainElements("leads", "sales"))

		_, err = chunk.Lookup("nope")
		Expect(err).To(MatchError(ContainSubstring("unknown schema")))
	})
})
