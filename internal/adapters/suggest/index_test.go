package suggest_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/admit/internal/adapters/suggest"
)

func TestIndex(t *testing.T) {
	ctx := context.Background()

	Convey("Given an index with three profiles", t, func() {
		path := filepath.Join(t.TempDir(), "vectors.db")
		ix, err := suggest.OpenIndex(ctx, path)
		So(err, ShouldBeNil)
		defer ix.Close()

		So(ix.Upsert(ctx, "p1", []float32{1, 0}, map[string]string{"name": "Ada"}), ShouldBeNil)
		So(ix.Upsert(ctx, "p2", []float32{1, 1}, nil), ShouldBeNil)
		So(ix.Upsert(ctx, "p3", []float32{-1, 0}, nil), ShouldBeNil)
		So(ix.Len(), ShouldEqual, 3)

		Convey("When querying along the first axis", func() {
			out := ix.Query([]float32{2, 0}, 10)

			Convey("Then results are cosine ranked and clamped", func() {
				So(out, ShouldHaveLength, 3)
				So(out[0].PersonID, ShouldEqual, "p1")
				So(out[0].Score, ShouldAlmostEqual, 1.0, 1e-9)
				So(out[0].Metadata["name"], ShouldEqual, "Ada")
				So(out[1].PersonID, ShouldEqual, "p2")
				So(out[1].Score, ShouldAlmostEqual, 0.7071, 1e-3)
				So(out[2].Score, ShouldEqual, 0.0)
			})
		})

		Convey("When capping the result count", func() {
			So(ix.Query([]float32{1, 0}, 1), ShouldHaveLength, 1)
		})

		Convey("When a vector of another size is queried", func() {
			So(ix.Query([]float32{1, 0, 0}, 10), ShouldBeEmpty)
		})

		Convey("When a profile is replaced and the file reopened", func() {
			So(ix.Upsert(ctx, "p3", []float32{0, 1}, nil), ShouldBeNil)
			So(ix.Close(), ShouldBeNil)

			again, err := suggest.OpenIndex(ctx, path)
			So(err, ShouldBeNil)
			defer again.Close()

			Convey("Then the latest vectors are loaded", func() {
				So(again.Len(), ShouldEqual, 3)
				out := again.Query([]float32{0, 1}, 1)
				So(out[0].PersonID, ShouldEqual, "p3")
			})
		})

		Convey("When a stored row carries unreadable metadata", func() {
			So(ix.Close(), ShouldBeNil)
			db, err := sql.Open("sqlite", path)
			So(err, ShouldBeNil)
			_, err = db.ExecContext(ctx, `UPDATE profile_vectors SET metadata = '{"name":' WHERE person_id = 'p1'`)
			So(err, ShouldBeNil)
			So(db.Close(), ShouldBeNil)

			_, err = suggest.OpenIndex(ctx, path)

			Convey("Then opening fails and names the person", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "person p1: metadata")
			})
		})

		Convey("When an empty vector is stored", func() {
			So(ix.Upsert(ctx, "p4", nil, nil), ShouldEqual, suggest.ErrEmptyEmbedding)
		})
	})
}
