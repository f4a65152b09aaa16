package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/embeddings"
	"github.com/papercomputeco/pitch/pkg/embeddings/ollama"
)

var _ = Describe("Ollama Embedder", func() {
	var (
		server   *httptest.Server
		lastBody map[string]any
		status   int
		payload  string
	)

	BeforeEach(func() {
		status = http.StatusOK
		payload = `{"embeddings":[[0.5,0.25,0.125]]}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/embed"))
			Expect(r.Method).To(Equal(http.MethodPost))
			lastBody = map[string]any{}
			Expect(json.NewDecoder(r.Body).Decode(&lastBody)).To(Succeed())
			w.WriteHeader(status)
			_, _ = w.Write([]byte(payload))
		}))
		DeferCleanup(server.Close)
	})

	newEmbedder := func(maxChars int) *ollama.Embedder {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, MaxInputChars: maxChars})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	It("returns the first embedding and sends the default model", func() {
		vec, err := newEmbedder(0).Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.5, 0.25, 0.125}))
		Expect(lastBody["model"]).To(Equal(ollama.DefaultEmbeddingModel))
		Expect(lastBody["input"]).To(Equal("hello"))
	})

	It("rejects blank input without calling the server", func() {
		lastBody = nil
		_, err := newEmbedder(0).Embed(context.Background(), "  ")
		Expect(errors.Is(err, embeddings.ErrEmptyInput)).To(BeTrue())
		Expect(lastBody).To(BeNil())
	})

	It("rejects over-long input", func() {
		_, err := newEmbedder(3).Embed(context.Background(), "long text")
		Expect(errors.Is(err, embeddings.ErrInputTooLong)).To(BeTrue())
	})

	It("wraps non-200 responses", func() {
		status = http.StatusInternalServerError
		payload = `model not found`

		_, err := newEmbedder(0).Embed(context.Background(), "hello")
		Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("status 500"))
	})

	It("fails on an empty embeddings list", func() {
		payload = `{"embeddings":[]}`

		_, err := newEmbedder(0).Embed(context.Background(), "hello")
		Expect(err).To(MatchError(ContainSubstring("no embeddings returned")))
	})

	It("fails when the server is unreachable", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: "http://127.0.0.1:1"})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
	})
})
