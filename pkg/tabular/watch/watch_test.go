package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/logger"
	"github.com/papercomputeco/pitch/pkg/tabular/watch"
)

var _ = Describe("Watcher", func() {
	var (
		dir    string
		mu     sync.Mutex
		seen   []string
		cancel context.CancelFunc
		done   chan struct{}
		w      *watch.Watcher
	)

	handled := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), seen...)
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		seen = nil

		var err error
		w, err = watch.New(watch.Config{
			Dir:    dir,
			Settle: 50 * time.Millisecond,
			Handler: func(_ context.Context, path string) error {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, filepath.Base(path))
				return nil
			},
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan struct{})
		go func() {
			defer close(done)
			_ = w.Run(ctx)
		}()
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(BeClosed())
		Expect(w.Close()).To(Succeed())
	})

	It("handles a dropped spreadsheet once it settles", func() {
		path := filepath.Join(dir, "sales.csv")
		Expect(os.WriteFile(path, []byte("Invoice ID\n1\n"), 0o600)).To(Succeed())
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
		Expect(err).NotTo(HaveOccurred())
		_, err = f.WriteString("2\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())

		Eventually(handled).Should(Equal([]string{"sales.csv"}))
		Consistently(handled, 200*time.Millisecond).Should(HaveLen(1))
	})

	It("ignores unsupported files", func() {
		Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600)).To(Succeed())
		Consistently(handled, 200*time.Millisecond).Should(BeEmpty())
	})

	It("requires a handler", func() {
		_, err := watch.New(watch.Config{Dir: dir})
		Expect(err).To(HaveOccurred())
	})
})
