package suggest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/admit/internal/adapters/mq/queue"
	"github.com/okian/admit/internal/adapters/repository"
	"github.com/okian/admit/internal/adapters/suggest"
	"github.com/okian/admit/internal/domain/model"
)

type axisEmbedder struct{ err error }

// EmbedQuery maps "rust" to the first axis and anything else to the second.
func (a axisEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if a.err != nil {
		return nil, a.err
	}
	if strings.Contains(text, "rust") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

type people []model.Person

func (p people) ListPeople(context.Context) ([]model.Person, error) { return p, nil }

func (p people) Person(_ context.Context, id string) (model.Person, error) {
	for _, x := range p {
		if x.ID == id {
			return x, nil
		}
	}
	return model.Person{}, repository.ErrNotFound
}

func newHandler(t *testing.T, emb suggest.QueryEmbedder, q queue.Queue) (*httptest.Server, *suggest.Index) {
	t.Helper()
	ix, err := suggest.OpenIndex(context.Background(), filepath.Join(t.TempDir(), "v.db"))
	So(err, ShouldBeNil)
	t.Cleanup(func() { _ = ix.Close() })
	So(ix.Upsert(context.Background(), "p1", []float32{1, 0}, map[string]string{"name": "Ada"}), ShouldBeNil)
	So(ix.Upsert(context.Background(), "p2", []float32{0, 1}, map[string]string{"name": "Grace"}), ShouldBeNil)

	ppl := people{{ID: "p1", Email: "ada@example.com", FirstName: "Ada"}, {ID: "p2", Email: "grace@example.com"}}
	svc := suggest.NewService(emb, ix, q, ppl, 10000, nil)
	srv := httptest.NewServer(suggest.NewHandler(svc, nil).Router())
	t.Cleanup(srv.Close)
	return srv, ix
}

func post(url, body string) (*http.Response, map[string]any) {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHandler_Suggest(t *testing.T) {
	Convey("Given a suggest server", t, func() {
		srv, _ := newHandler(t, axisEmbedder{}, queue.NewInMemoryQueue())

		Convey("When the query is blank", func() {
			resp, body := post(srv.URL+"/api/suggest-attendees", `{"query":"   "}`)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(body["error"], ShouldEqual, "query is required")
		})

		Convey("When searching for rust", func() {
			resp, body := post(srv.URL+"/api/suggest-attendees", `{"query":"rust engineers"}`)

			Convey("Then the matching profile ranks first with its metadata", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				list := body["suggestions"].([]any)
				So(list, ShouldHaveLength, 2)
				first := list[0].(map[string]any)
				So(first["userId"], ShouldEqual, "p1")
				So(first["score"], ShouldAlmostEqual, 1.0, 1e-6)
				So(first["metadata"].(map[string]any)["name"], ShouldEqual, "Ada")
			})
		})
	})

	Convey("Given an embedder that fails", t, func() {
		srv, _ := newHandler(t, axisEmbedder{err: errors.New("connection refused")}, queue.NewInMemoryQueue())
		resp, body := post(srv.URL+"/api/suggest-attendees", `{"query":"rust"}`)
		So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
		So(body["error"], ShouldEqual, "Internal server error")
	})
}

func TestHandler_Index(t *testing.T) {
	Convey("Given a suggest server with a small queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		srv, _ := newHandler(t, axisEmbedder{}, q)

		Convey("When one profile is queued", func() {
			resp, _ := post(srv.URL+"/api/index/p1", ``)
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

			job := <-q.Dequeue(context.Background())
			So(job.PersonID, ShouldEqual, "p1")
			So(job.Text, ShouldStartWith, "Name: Ada.")
			So(job.Metadata["email"], ShouldEqual, "ada@example.com")
		})

		Convey("When the person is unknown", func() {
			resp, _ := post(srv.URL+"/api/index/nobody", ``)
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When everyone is queued but only one fits", func() {
			resp, body := post(srv.URL+"/api/index", ``)
			So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
			So(body["queued"], ShouldEqual, float64(1))
		})
	})
}
