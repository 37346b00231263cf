package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/quizankify/internal/fetch"
)

var _ = Describe("Client", func() {
	var (
		ctx      context.Context
		handler  http.HandlerFunc
		server   *httptest.Server
		received http.Header
	)

	BeforeEach(func() {
		ctx = context.Background()
		received = nil
		handler = func(w http.ResponseWriter, r *http.Request) {
			received = r.Header.Clone()
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><head><title>ok</title></head></html>"))
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("should send the default browser headers", func() {
		client := fetch.NewClient(nil, 2*time.Second)

		body, err := client.Get(ctx, server.URL)

		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("<title>ok</title>"))
		Expect(received.Get("User-Agent")).To(Equal(fetch.DefaultUserAgent))
		Expect(received.Get("Accept")).To(ContainSubstring("text/html"))
	})

	It("should not share header state between clients", func() {
		custom := fetch.DefaultHeaders()
		custom.Set("User-Agent", "custom-agent")

		Expect(fetch.DefaultHeaders().Get("User-Agent")).To(Equal(fetch.DefaultUserAgent))

		_, err := fetch.NewClient(custom, 0).Get(ctx, server.URL)
		Expect(err).NotTo(HaveOccurred())
		Expect(received.Get("User-Agent")).To(Equal("custom-agent"))
	})

	It("should decode non UTF-8 pages", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			_, _ = w.Write([]byte("<title>caf\xe9</title>"))
		}

		body, err := fetch.NewClient(nil, 0).Get(ctx, server.URL)

		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("café"))
	})

	It("should fail on non-2xx responses without retrying", func() {
		calls := 0
		handler = func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusForbidden)
		}

		_, err := fetch.NewClient(nil, 0).Get(ctx, server.URL)

		var statusErr *fetch.StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.StatusCode).To(Equal(http.StatusForbidden))
		Expect(calls).To(Equal(1))
	})

	It("should reject non-http schemes", func() {
		_, err := fetch.NewClient(nil, 0).Get(ctx, "file:///etc/passwd")
		Expect(err).To(MatchError(fetch.ErrUnsupportedScheme))
	})

	It("should honor the timeout", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}

		_, err := fetch.NewClient(nil, 50*time.Millisecond).Get(ctx, server.URL)
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})

	DescribeTable("LooksLikeURL",
		func(input string, expected bool) {
			Expect(fetch.LooksLikeURL(input)).To(Equal(expected))
		},
		Entry("https url", "https://quizlet.com/123/set/", true),
		Entry("http url", "http://example.com", true),
		Entry("relative path", "saved/page.html", false),
		Entry("absolute path", "/tmp/page.html", false),
		Entry("scheme without host", "https://", false),
	)
})
