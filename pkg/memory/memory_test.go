package memory_test

import (
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/memory"
)

func userTurn(i int) memory.Turn {
	return memory.Turn{Role: memory.RoleUser, Text: fmt.Sprintf("turn %d", i)}
}

var _ = Describe("Window", func() {
	It("defaults to a capacity of 40", func() {
		Expect(memory.NewWindow(0).Capacity()).To(Equal(40))
	})

	It("keeps turns in insertion order", func() {
		w := memory.NewWindow(10)
		Expect(w.Append(
			memory.Turn{Role: memory.RoleUser, Text: "hi"},
			memory.Turn{Role: memory.RoleAssistant, Text: "hello"},
		)).To(Succeed())

		Expect(w.Turns()).To(Equal([]memory.Turn{
			{Role: memory.RoleUser, Text: "hi"},
			{Role: memory.RoleAssistant, Text: "hello"},
		}))
	})

	It("keeps exactly the k most recent turns", func() {
		w := memory.NewWindow(4)
		for i := range 7 {
			Expect(w.Append(userTurn(i))).To(Succeed())
			Expect(w.Len()).To(BeNumerically("<=", 4))
		}

		Expect(w.Turns()).To(Equal([]memory.Turn{userTurn(3), userTurn(4), userTurn(5), userTurn(6)}))
	})

	It("evicts across a pair appended at capacity", func() {
		w := memory.NewWindow(3)
		Expect(w.Append(userTurn(0), userTurn(1), userTurn(2))).To(Succeed())
		Expect(w.Append(userTurn(3), userTurn(4))).To(Succeed())
		Expect(w.Turns()).To(Equal([]memory.Turn{userTurn(2), userTurn(3), userTurn(4)}))
	})

	It("rejects the whole append when one role is invalid", func() {
		w := memory.NewWindow(3)
		err := w.Append(userTurn(0), memory.Turn{Role: "robot", Text: "x"})
		Expect(err).To(MatchError(memory.ErrInvalidRole))
		Expect(w.Len()).To(Equal(0))
	})

	It("returns copies", func() {
		w := memory.NewWindow(3)
		Expect(w.Append(userTurn(0))).To(Succeed())
		turns := w.Turns()
		turns[0].Text = "mutated"
		Expect(w.Turns()[0].Text).To(Equal("turn 0"))
	})

	It("clears", func() {
		w := memory.NewWindow(3)
		Expect(w.Append(userTurn(0))).To(Succeed())
		w.Clear()
		Expect(w.Turns()).To(BeEmpty())
	})

	It("never exposes half of a pair to concurrent readers", func() {
		w := memory.NewWindow(40)
		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				Expect(w.Append(
					memory.Turn{Role: memory.RoleUser, Text: fmt.Sprint(i)},
					memory.Turn{Role: memory.RoleAssistant, Text: fmt.Sprint(i)},
				)).To(Succeed())
			}()
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				Expect(w.Len() % 2).To(Equal(0))
			}()
		}
		wg.Wait()
		Expect(w.Len()).To(Equal(40))
	})
})
