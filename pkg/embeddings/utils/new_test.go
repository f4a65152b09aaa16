package embeddingutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/embeddings/ollama"
	"github.com/papercomputeco/pitch/pkg/embeddings/openai"
	embeddingutils "github.com/papercomputeco/pitch/pkg/embeddings/utils"
)

var _ = Describe("NewEmbedder", func() {
	It("builds an ollama embedder", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "ollama"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&ollama.Embedder{}))
	})

	It("builds an openai embedder when a key is present", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "openai", APIKey: "sk-test"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&openai.Embedder{}))
	})

	It("rejects unknown providers", func() {
		_, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "sentence-transformers"})
		Expect(err).To(MatchError(ContainSubstring("unsupported embedding provider")))
	})
})
