package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/eventstream"
	"github.com/papercomputeco/pitch/pkg/logger"
	"github.com/papercomputeco/pitch/pkg/storage"
	"github.com/papercomputeco/pitch/pkg/storage/inmemory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e *eventstream.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

type failingDriver struct {
	*inmemory.Driver
}

func (failingDriver) PutExchange(context.Context, *storage.Exchange) error {
	return errors.New("disk full")
}

func exchange(id string) *storage.Exchange {
	now := time.Now()
	return &storage.Exchange{
		ID:          id,
		SessionID:   "s-1",
		Query:       "best branch?",
		Answer:      "C",
		Provider:    "ollama",
		StartedAt:   now.Add(-time.Second),
		CompletedAt: now,
	}
}

var _ = Describe("Worker Pool", func() {
	var (
		driver    *inmemory.Driver
		publisher *recordingPublisher
		ctx       context.Context
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver()
		publisher = &recordingPublisher{}
		ctx = context.Background()
	})

	newPool := func(d storage.Driver, queue uint) *Pool {
		wp, err := NewPool(&Config{
			Driver:     d,
			Publisher:  publisher,
			NumWorkers: 1,
			QueueSize:  queue,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return wp
	}

	It("persists exchanges and publishes an event", func() {
		wp := newPool(driver, 0)
		Expect(wp.Enqueue(Job{Exchange: exchange("ex-1")})).To(BeTrue())
		wp.Close()

		got, err := driver.GetExchange(ctx, "ex-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Answer).To(Equal("C"))

		Expect(publisher.events).To(HaveLen(1))
		e := publisher.events[0]
		Expect(e.EventType).To(Equal(eventstream.EventTypeExchangeCompleted))
		Expect(e.Source.Service).To(Equal("pitch"))
		Expect(e.Exchange.DurationMs).To(BeNumerically("~", 1000, 5))
	})

	It("persists ingest runs", func() {
		wp := newPool(driver, 0)
		Expect(wp.Enqueue(Job{Ingest: &storage.IngestRun{ID: "run-1", SessionID: "s-1", Rows: 3, RecordsUpserted: 3}})).To(BeTrue())
		wp.Close()

		runs, err := driver.ListIngestRuns(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(publisher.events[0].Ingest.RecordsUpserted).To(Equal(3))
	})

	It("does not publish when storage fails", func() {
		wp := newPool(failingDriver{driver}, 0)
		Expect(wp.Enqueue(Job{Exchange: exchange("ex-1")})).To(BeTrue())
		wp.Close()

		Expect(publisher.events).To(BeEmpty())
	})

	It("tolerates publish failures", func() {
		publisher.err = errors.New("broker down")
		wp := newPool(driver, 0)
		Expect(wp.Enqueue(Job{Exchange: exchange("ex-1")})).To(BeTrue())
		wp.Close()

		_, err := driver.GetExchange(ctx, "ex-1")
		Expect(err).NotTo(HaveOccurred())
	})

	It("drops jobs when the queue is full", func() {
		block := make(chan struct{})
		slow := &blockingDriver{Driver: driver, release: block, started: make(chan struct{})}
		wp := newPool(slow, 1)

		// first job occupies the worker, second fills the queue
		Expect(wp.Enqueue(Job{Exchange: exchange("a")})).To(BeTrue())
		Eventually(slow.started).Should(BeClosed())
		Expect(wp.Enqueue(Job{Exchange: exchange("b")})).To(BeTrue())
		Expect(wp.Enqueue(Job{Exchange: exchange("c")})).To(BeFalse())

		close(block)
		wp.Close()
	})

	It("refuses jobs once closed", func() {
		wp := newPool(driver, 0)
		wp.Close()

		Expect(func() {
			Expect(wp.Enqueue(Job{Exchange: exchange("late")})).To(BeFalse())
		}).NotTo(Panic())

		_, err := driver.GetExchange(ctx, "late")
		Expect(err).To(HaveOccurred())
	})

	It("can be closed twice", func() {
		wp := newPool(driver, 0)
		wp.Close()
		wp.Close()
	})
})

type blockingDriver struct {
	*inmemory.Driver
	release chan struct{}

	once    sync.Once
	started chan struct{}
}

func (b *blockingDriver) PutExchange(ctx context.Context, ex *storage.Exchange) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.Driver.PutExchange(ctx, ex)
}
