package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing/fstest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zijiren233/openapi-plugin-resolver/convert"
	"github.com/zijiren233/openapi-plugin-resolver/llm"
	"github.com/zijiren233/openapi-plugin-resolver/plugin"
	"github.com/zijiren233/openapi-plugin-resolver/resolver"
)

const reminderPayload = `{"text":"mom birthday","at":"2024-01-13"}`

func messageKinds(chain *resolver.MessageChain) []resolver.Kind {
	kinds := make([]resolver.Kind, 0, chain.Len())
	for _, m := range chain.Messages() {
		kinds = append(kinds, m.Kind())
	}
	return kinds
}

var _ = Describe("Resolver", func() {
	var (
		srv       *httptest.Server
		client    *fakeLLM
		opts      resolver.Options
		history   []llm.Message
		pluginURL string
		ctx       context.Context
	)

	resolve := func(message string) *resolver.Result {
		return resolver.New(client, opts).Resolve(ctx, history, message, pluginURL)
	}

	BeforeEach(func() {
		ctx = context.Background()
		document, err := os.ReadFile("testdata/plugin.yaml")
		Expect(err).NotTo(HaveOccurred())

		mux := http.NewServeMux()
		mux.HandleFunc("/.well-known/ai-plugin.json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"schema_version":"v1","name_for_model":"reminders","api":{"type":"openapi","url":%q}}`, srv.URL+"/openapi.yaml")
		})
		mux.HandleFunc("/broken/.well-known/ai-plugin.json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"schema_version":"v1","name_for_model":"broken","api":{"type":"openapi","url":%q}}`, srv.URL+"/missing.yaml")
		})
		mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(document)
		})
		srv = httptest.NewServer(mux)

		pluginURL = srv.URL + "/.well-known/ai-plugin.json"
		history = []llm.Message{llm.SystemMessage("User id: 45")}
		opts = resolver.Options{
			Fetcher:  plugin.NewFetcher(srv.Client(), nil),
			Settings: resolver.Settings{Model: "test-model", MaxTokens: 2000},
		}
	})

	AfterEach(func() {
		srv.Close()
	})

	Context("when the plugin resolves fully", func() {
		BeforeEach(func() {
			client = newFakeLLM(
				step{content: "/reminders", prompt: 100, output: 3},
				step{content: reminderPayload, prompt: 200, output: 20},
			)
		})

		It("returns the request definition", func() {
			result := resolve("Remember my mom birthday on 13 Jan 2024")

			Expect(result.Failure).To(BeNil())
			Expect(result.PathFound).To(BeTrue())
			Expect(result.OperationFound).To(BeTrue())
			Expect(result.Request).NotTo(BeNil())
			Expect(result.Request.BaseURL()).To(Equal("https://reminders.example.com"))
			Expect(result.Request.Path()).To(Equal("/reminders"))
			Expect(result.Request.Method()).To(Equal(convert.MethodPost))
			body, ok := result.Request.Body()
			Expect(ok).To(BeTrue())
			Expect(body).To(Equal(reminderPayload))
		})

		It("records both exchanges and their usage", func() {
			result := resolve("Remember my mom birthday on 13 Jan 2024")

			Expect(messageKinds(result.Chain)).To(Equal([]resolver.Kind{
				resolver.KindHumanEval, resolver.KindAIEval,
				resolver.KindHumanEval, resolver.KindAIEval,
			}))
			Expect(result.Usage).To(Equal(resolver.Usage{Prompt: 300, Response: 23, Total: 323}))
			Expect(result.Chain.Usage()).To(Equal(result.Usage))
		})

		It("prompts with the paths and then the operation components", func() {
			resolve("Remember my mom birthday on 13 Jan 2024")

			Expect(client.calls()).To(Equal(2))
			Expect(client.lastPrompt(0)).To(ContainSubstring("/reminders:"))
			Expect(client.lastPrompt(0)).To(ContainSubstring("Remember my mom birthday on 13 Jan 2024"))

			payloadPrompt := client.lastPrompt(1)
			Expect(payloadPrompt).To(ContainSubstring("Target entity: CreateReminderRequest"))
			Expect(payloadPrompt).To(ContainSubstring("CreateReminderRequest:"))
			Expect(payloadPrompt).To(ContainSubstring("Reminder:"))
			Expect(payloadPrompt).NotTo(ContainSubstring("NoteList:"))
		})

		It("sends the history first and leaves it untouched", func() {
			resolve("Remember my mom birthday on 13 Jan 2024")

			Expect(history).To(HaveLen(1))
			for _, req := range client.requests {
				Expect(req.Model).To(Equal("test-model"))
				Expect(req.Messages[0]).To(Equal(llm.SystemMessage("User id: 45")))
				Expect(req.Messages).To(HaveLen(2))
			}
		})
	})

	Context("when the model declines the path", func() {
		BeforeEach(func() {
			client = newFakeLLM(step{content: resolver.DeclineSentinel, prompt: 50, output: 1})
		})

		It("stops after one call", func() {
			result := resolve("What is the weather?")

			Expect(result.Failure).To(BeNil())
			Expect(result.PathFound).To(BeFalse())
			Expect(result.OperationFound).To(BeFalse())
			Expect(result.Request).To(BeNil())
			Expect(result.Usage).To(Equal(resolver.Usage{Prompt: 50, Response: 1, Total: 51}))
			Expect(client.calls()).To(Equal(1))
		})
	})

	Context("when the model answers with an empty path", func() {
		BeforeEach(func() {
			client = newFakeLLM(step{content: ""})
		})

		It("treats it as a decline", func() {
			result := resolve("Hello")
			Expect(result.PathFound).To(BeFalse())
			Expect(result.Failure).To(BeNil())
		})
	})

	Context("when no operation of the path has components", func() {
		BeforeEach(func() {
			client = newFakeLLM(step{content: "/notes/{id}", prompt: 10, output: 2})
		})

		It("reports the path without an operation", func() {
			result := resolve("Delete note 7")

			Expect(result.Failure).To(BeNil())
			Expect(result.PathFound).To(BeTrue())
			Expect(result.OperationFound).To(BeFalse())
			Expect(result.Request).To(BeNil())
			Expect(client.calls()).To(Equal(1))
			Expect(result.Chain.Len()).To(Equal(2))
		})
	})

	Context("when the model picks an undeclared path", func() {
		BeforeEach(func() {
			client = newFakeLLM(step{content: "/calendar"})
		})

		It("reports the path without an operation", func() {
			result := resolve("Book a meeting")

			Expect(result.Failure).To(BeNil())
			Expect(result.PathFound).To(BeTrue())
			Expect(result.OperationFound).To(BeFalse())
			Expect(client.calls()).To(Equal(1))
		})
	})

	Context("when the first method declines the payload", func() {
		BeforeEach(func() {
			client = newFakeLLM(
				step{content: "/notes", prompt: 10, output: 1},
				step{content: resolver.DeclineSentinel, prompt: 20, output: 1},
				step{content: `{"text":"buy milk"}`, prompt: 30, output: 5},
			)
		})

		It("falls through to the next method", func() {
			result := resolve("Note: buy milk")

			Expect(result.Failure).To(BeNil())
			Expect(result.OperationFound).To(BeTrue())
			Expect(result.Request.Method()).To(Equal(convert.MethodPost))
			Expect(result.Request.Path()).To(Equal("/notes"))
			Expect(client.calls()).To(Equal(3))
			Expect(result.Chain.Len()).To(Equal(6))
			Expect(result.Usage.Total).To(Equal(67))
		})

		It("names the entity after the first method", func() {
			resolve("Note: buy milk")

			// GET /notes has no request body, so neither prompt names an entity
			Expect(client.lastPrompt(1)).To(ContainSubstring("Target entity: none declared"))
			Expect(client.lastPrompt(2)).To(ContainSubstring("Target entity: none declared"))
			Expect(client.lastPrompt(1)).To(ContainSubstring("NoteList:"))
			Expect(client.lastPrompt(2)).NotTo(ContainSubstring("NoteList:"))
		})
	})

	Context("when every method declines the payload", func() {
		BeforeEach(func() {
			client = newFakeLLM(
				step{content: "/notes"},
				step{content: resolver.DeclineSentinel},
				step{content: resolver.DeclineSentinel},
			)
		})

		It("reports the path without an operation", func() {
			result := resolve("Notes?")
			Expect(result.PathFound).To(BeTrue())
			Expect(result.OperationFound).To(BeFalse())
			Expect(result.Request).To(BeNil())
		})
	})

	Context("when an operation references a schema that is not a component", func() {
		BeforeEach(func() {
			client = newFakeLLM(step{content: "/labels", prompt: 10, output: 1})
		})

		It("fails with a schema lookup error after finding the path", func() {
			result := resolve("Label this urgent")

			Expect(result.Failure).NotTo(BeNil())
			Expect(result.Failure.Kind).To(Equal(resolver.KindSchemaLookup))
			Expect(result.Failure.Err()).To(MatchError(convert.ErrSchemaNotFound))
			Expect(result.Failure.Message).To(ContainSubstring("text"))
			Expect(result.PathFound).To(BeTrue())
			Expect(result.OperationFound).To(BeFalse())
			Expect(result.Request).To(BeNil())
			Expect(result.Usage).To(Equal(resolver.Usage{Prompt: 10, Response: 1, Total: 11}))
			Expect(client.calls()).To(Equal(1))
		})
	})

	Context("when the manifest is missing", func() {
		BeforeEach(func() {
			client = newFakeLLM()
			pluginURL = srv.URL + "/nowhere/ai-plugin.json"
		})

		It("fails with a plugin load error", func() {
			result := resolve("Remember my mom birthday")

			Expect(result.Failed()).To(BeTrue())
			Expect(result.Failure.Kind).To(Equal(resolver.KindPluginLoad))
			Expect(result.Failure.Err()).To(MatchError(plugin.ErrUnexpectedStatus))
			Expect(result.PathFound).To(BeFalse())
			Expect(result.OperationFound).To(BeFalse())
			Expect(result.Chain.Len()).To(BeZero())
			Expect(result.Usage).To(Equal(resolver.Usage{}))
			Expect(client.calls()).To(BeZero())
		})
	})

	Context("when the OpenAPI document is unavailable", func() {
		BeforeEach(func() {
			client = newFakeLLM()
			pluginURL = srv.URL + "/broken/.well-known/ai-plugin.json"
		})

		It("fails with a spec fetch error", func() {
			result := resolve("Remember my mom birthday")

			Expect(result.Failure).NotTo(BeNil())
			Expect(result.Failure.Kind).To(Equal(resolver.KindSpecFetch))
			Expect(result.Failure.Trace).NotTo(BeEmpty())
			Expect(client.calls()).To(BeZero())
		})
	})

	Context("when the prompts cannot be loaded", func() {
		BeforeEach(func() {
			client = newFakeLLM()
			opts.Prompts = fstest.MapFS{
				"identify_path.tmpl": {Data: []byte("{{.YAML}} {{.Message}}")},
			}
		})

		It("fails with a template load error before calling the model", func() {
			result := resolve("Remember my mom birthday")

			Expect(result.Failure).NotTo(BeNil())
			Expect(result.Failure.Kind).To(Equal(resolver.KindTemplateLoad))
			Expect(client.calls()).To(BeZero())
		})
	})

	Context("when custom prompts are supplied", func() {
		BeforeEach(func() {
			client = newFakeLLM(step{content: resolver.DeclineSentinel})
			opts.Prompts = fstest.MapFS{
				"identify_path.tmpl":    {Data: []byte("PATHS {{.Message}}")},
				"generate_payload.tmpl": {Data: []byte("PAYLOAD {{.Entity}}")},
			}
		})

		It("renders them", func() {
			resolve("hi")
			Expect(client.lastPrompt(0)).To(Equal("PATHS hi"))
		})
	})

	Context("when the path call fails", func() {
		BeforeEach(func() {
			client = newFakeLLM(step{err: errors.New("rate limited")})
		})

		It("fails with an llm call error", func() {
			result := resolve("Remember my mom birthday")

			Expect(result.Failure).NotTo(BeNil())
			Expect(result.Failure.Kind).To(Equal(resolver.KindLLMCall))
			Expect(result.Failure.Message).To(ContainSubstring("rate limited"))
			Expect(result.PathFound).To(BeFalse())
			Expect(messageKinds(result.Chain)).To(Equal([]resolver.Kind{resolver.KindHumanEval}))
		})
	})

	Context("when the payload call fails", func() {
		BeforeEach(func() {
			client = newFakeLLM(
				step{content: "/reminders", prompt: 10, output: 1},
				step{err: errors.New("timeout")},
			)
		})

		It("keeps the path flag and the usage gathered so far", func() {
			result := resolve("Remember my mom birthday")

			Expect(result.Failure).NotTo(BeNil())
			Expect(result.Failure.Kind).To(Equal(resolver.KindLLMCall))
			Expect(result.PathFound).To(BeTrue())
			Expect(result.OperationFound).To(BeFalse())
			Expect(result.Usage).To(Equal(resolver.Usage{Prompt: 10, Response: 1, Total: 11}))
			Expect(result.Chain.Len()).To(Equal(3))
		})
	})

	Context("when the model client panics", func() {
		BeforeEach(func() {
			client = newFakeLLM(step{panic: true})
		})

		It("recovers as an internal failure", func() {
			var result *resolver.Result
			Expect(func() { result = resolve("Remember my mom birthday") }).NotTo(Panic())

			Expect(result.Failure).NotTo(BeNil())
			Expect(result.Failure.Kind).To(Equal(resolver.KindInternal))
			Expect(result.Failure.Message).To(ContainSubstring("provider exploded"))
			Expect(result.Failure.Trace).NotTo(BeEmpty())
		})
	})
})
