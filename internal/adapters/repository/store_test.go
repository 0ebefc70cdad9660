package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/guessconv/internal/domain/model"
)

var fixedNow = time.UnixMilli(1_700_000_000_000)

func testOptions() []Option {
	n := 0
	var mu sync.Mutex
	return []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return "row" + strconv.Itoa(n)
		}),
	}
}

func row(name string, avgErr float64, points int) model.LeaderboardEntry {
	return model.LeaderboardEntry{
		Username:         name,
		AverageError:     avgErr,
		TotalGuesses:     3,
		BestError:        avgErr / 2,
		PerformanceLevel: "Funnel Expert",
		TotalPoints:      points,
		AverageAccuracy:  100 - avgErr,
	}
}

func usernames(rows []model.LeaderboardEntry) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Username)
	}
	return out
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, name string, open func(t *testing.T) Store) {
	ctx := context.Background()

	Convey("Given a "+name+" store", t, func() {
		s := open(t)
		defer func() { _ = s.Close() }()

		Convey("When it is empty", func() {
			_, err := s.Get(ctx, "ana")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			top, err := s.TopN(ctx, OrderAverageError, 20)
			So(err, ShouldBeNil)
			So(top, ShouldBeEmpty)
			n, err := s.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
			_, err = s.Update(ctx, row("ana", 1, 1))
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When rows are inserted", func() {
			for _, r := range []model.LeaderboardEntry{
				row("cat", 4, 150), row("ana", 12, 300), row("bob", 4, 90), row("dan", 30, 20),
			} {
				_, err := s.Insert(ctx, r)
				So(err, ShouldBeNil)
			}

			Convey("Then ids and timestamps are assigned", func() {
				got, err := s.Get(ctx, "ana")
				So(err, ShouldBeNil)
				So(got.ID, ShouldNotBeEmpty)
				So(got.LastUpdated.UnixMilli(), ShouldEqual, fixedNow.UnixMilli())
				So(got.TotalPoints, ShouldEqual, 300)
				So(got.AverageAccuracy, ShouldEqual, 88)
			})

			Convey("Then a second insert for the same name conflicts", func() {
				_, err := s.Insert(ctx, row("ana", 1, 1))
				So(errors.Is(err, ErrConflict), ShouldBeTrue)
			})

			Convey("Then average error order is ascending with username tie-break", func() {
				top, err := s.TopN(ctx, OrderAverageError, 20)
				So(err, ShouldBeNil)
				So(usernames(top), ShouldResemble, []string{"bob", "cat", "ana", "dan"})
			})

			Convey("Then total points order is descending", func() {
				top, err := s.TopN(ctx, OrderTotalPoints, 20)
				So(err, ShouldBeNil)
				So(usernames(top), ShouldResemble, []string{"ana", "cat", "bob", "dan"})
			})

			Convey("Then the limit bounds the result", func() {
				top, err := s.TopN(ctx, OrderAverageError, 2)
				So(err, ShouldBeNil)
				So(usernames(top), ShouldResemble, []string{"bob", "cat"})

				_, err = s.TopN(ctx, OrderAverageError, 0)
				So(errors.Is(err, ErrInvalidLimit), ShouldBeTrue)
				_, err = s.TopN(ctx, Order("best_error"), 5)
				So(errors.Is(err, ErrInvalidOrder), ShouldBeTrue)
			})

			Convey("Then ranks follow each order", func() {
				r, e, err := s.Rank(ctx, OrderAverageError, "ana")
				So(err, ShouldBeNil)
				So(r, ShouldEqual, 3)
				So(e.Username, ShouldEqual, "ana")
				r, _, _ = s.Rank(ctx, OrderTotalPoints, "ana")
				So(r, ShouldEqual, 1)
				r, _, _ = s.Rank(ctx, OrderAverageError, "bob")
				So(r, ShouldEqual, 1)
				_, _, err = s.Rank(ctx, OrderAverageError, "zed")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})

			Convey("And a row is updated", func() {
				before, _ := s.Get(ctx, "dan")
				got, err := s.Update(ctx, row("dan", 0.5, 500))
				So(err, ShouldBeNil)

				Convey("Then the id is kept and the row moves", func() {
					So(got.ID, ShouldEqual, before.ID)
					top, _ := s.TopN(ctx, OrderAverageError, 20)
					So(usernames(top), ShouldResemble, []string{"dan", "bob", "cat", "ana"})
					top, _ = s.TopN(ctx, OrderTotalPoints, 1)
					So(usernames(top), ShouldResemble, []string{"dan"})
					n, _ := s.Count(ctx)
					So(n, ShouldEqual, 4)
				})
			})

			Convey("And the store is reset", func() {
				So(s.Reset(ctx), ShouldBeNil)
				n, _ := s.Count(ctx)
				So(n, ShouldEqual, 0)
			})
		})
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, "memory", func(*testing.T) Store { return NewMemoryStore(testOptions()...) })
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, "sqlite", func(t *testing.T) Store {
		s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "lb.db"), testOptions()...)
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return s
	})
}

func TestMemoryStoreManyRows(t *testing.T) {
	Convey("Given many rows in random insertion order", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		for i := 0; i < 200; i++ {
			k := (i * 73) % 200
			_, err := s.Insert(ctx, row(fmt.Sprintf("p%03d", k), float64(k), 200-k))
			So(err, ShouldBeNil)
		}

		Convey("Then rank equals position in TopN for both orders", func() {
			for _, o := range Orders {
				top, err := s.TopN(ctx, o, 200)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 200)
				for i, e := range top {
					r, _, err := s.Rank(ctx, o, e.Username)
					So(err, ShouldBeNil)
					So(r, ShouldEqual, i+1)
					if i > 0 {
						So(o.Less(top[i-1], e), ShouldBeTrue)
					}
				}
			}
		})
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	Convey("Given store drivers", t, func() {
		s, err := Open(ctx, DriverMemory, "")
		So(err, ShouldBeNil)
		So(s, ShouldHaveSameTypeAs, &MemoryStore{})

		Convey("When a persistent driver has no dsn", func() {
			for _, d := range []string{DriverSQLite, DriverPostgres} {
				s, err := Open(ctx, d, "")
				So(err, ShouldBeNil)
				_, err = s.TopN(ctx, OrderAverageError, 20)
				So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
				_, err = s.Get(ctx, "ana")
				So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
				So(s.Close(), ShouldBeNil)
			}
		})

		Convey("When the driver is unknown", func() {
			_, err := Open(ctx, "mongo", "x")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseOrder(t *testing.T) {
	Convey("Given order names", t, func() {
		o, err := ParseOrder("total_points")
		So(err, ShouldBeNil)
		So(o, ShouldEqual, OrderTotalPoints)
		_, err = ParseOrder("nope")
		So(errors.Is(err, ErrInvalidOrder), ShouldBeTrue)
	})
}

func TestPostgresHelpers(t *testing.T) {
	Convey("Given postgres errors", t, func() {
		So(isUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})), ShouldBeTrue)
		So(isUniqueViolation(&pgconn.PgError{Code: "42P01"}), ShouldBeFalse)
		So(isUniqueViolation(errors.New("boom")), ShouldBeFalse)
	})

	Convey("Given a row conversion", t, func() {
		e := row("ana", 3, 75)
		e.ID = "x"
		e.LastUpdated = fixedNow
		So(rowFromEntry(e).entry(), ShouldResemble, e)
	})

	Convey("Given a missing dsn", t, func() {
		_, err := NewPostgresStore(context.Background(), "")
		So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
	})
}
