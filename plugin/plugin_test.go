package plugin_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zijiren233/openapi-plugin-resolver/plugin"
)

var _ = Describe("Fetcher", func() {
	var (
		srv     *httptest.Server
		fetcher *plugin.Fetcher
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		mux := http.NewServeMux()
		mux.HandleFunc("/.well-known/ai-plugin.json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"schema_version":"v1","name_for_model":"notes","api":{"type":"openapi","url":"https://notes.example.com/openapi.yaml"}}`)
		})
		mux.HandleFunc("/bad.json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"name_for_model":"notes","api":{"type":"openapi"}}`)
		})
		mux.HandleFunc("/garbage.json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>`)
		})
		mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "openapi: 3.0.1\n")
		})
		srv = httptest.NewServer(mux)
		fetcher = plugin.NewFetcher(srv.Client(), nil)
	})

	AfterEach(func() {
		srv.Close()
	})

	Describe("FetchManifest", func() {
		It("decodes the api url", func() {
			manifest, err := fetcher.FetchManifest(ctx, srv.URL+"/.well-known/ai-plugin.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(manifest.NameForModel).To(Equal("notes"))
			Expect(manifest.API.URL).To(Equal("https://notes.example.com/openapi.yaml"))
		})

		It("fails on a missing manifest", func() {
			_, err := fetcher.FetchManifest(ctx, srv.URL+"/missing.json")
			Expect(err).To(MatchError(plugin.ErrUnexpectedStatus))
			Expect(err.Error()).To(ContainSubstring("404"))
		})

		It("rejects a manifest without api url", func() {
			_, err := fetcher.FetchManifest(ctx, srv.URL+"/bad.json")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("invalid AI plugin JSON"))
		})

		It("rejects a body that is not JSON", func() {
			_, err := fetcher.FetchManifest(ctx, srv.URL+"/garbage.json")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("FetchDocument", func() {
		It("returns the raw body", func() {
			data, err := fetcher.FetchDocument(ctx, srv.URL+"/openapi.yaml")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("openapi: 3.0.1\n"))
		})

		It("fails on unreachable hosts", func() {
			_, err := fetcher.FetchDocument(ctx, "http://127.0.0.1:1/openapi.yaml")
			Expect(err).To(HaveOccurred())
		})
	})
})
