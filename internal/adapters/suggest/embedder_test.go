package suggest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/admit/internal/adapters/suggest"
)

func TestOllamaEmbedder(t *testing.T) {
	Convey("Given an Ollama server", t, func() {
		var inputs []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Model string `json:"model"`
				Input string `json:"input"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			inputs = append(inputs, req.Input)
			w.Header().Set("Content-Type", "application/json")
			if req.Input == "query: empty" {
				_, _ = w.Write([]byte(`{"model":"m","embeddings":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"model":"m","embeddings":[[0.5,0.25]]}`))
		}))
		defer srv.Close()

		e, err := suggest.NewOllamaEmbedder(srv.URL, "multilingual-e5-large", srv.Client())
		So(err, ShouldBeNil)

		Convey("Then passages and queries carry their prefixes", func() {
			v, err := e.EmbedPassage(context.Background(), "Name: Ada.")
			So(err, ShouldBeNil)
			So(v, ShouldResemble, []float32{0.5, 0.25})
			_, err = e.EmbedQuery(context.Background(), "rust")
			So(err, ShouldBeNil)
			So(inputs, ShouldResemble, []string{"passage: Name: Ada.", "query: rust"})
		})

		Convey("Then an empty answer is an error", func() {
			_, err := e.EmbedQuery(context.Background(), "empty")
			So(err, ShouldEqual, suggest.ErrEmptyEmbedding)
		})
	})

	Convey("Given bad settings", t, func() {
		_, err := suggest.NewOllamaEmbedder("not a url", "m", nil)
		So(err, ShouldNotBeNil)
		_, err = suggest.NewOllamaEmbedder("http://localhost:11434", " ", nil)
		So(err, ShouldNotBeNil)
	})
}
