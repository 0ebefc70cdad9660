package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/guessconv/internal/domain/model"
	types "github.com/okian/guessconv/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLeaderboardEntry(t *testing.T) {
	Convey("Given a stored leaderboard row", t, func() {
		updated := time.UnixMilli(1_700_000_000_123)
		row := model.LeaderboardEntry{ID: "x1", Username: "ana", AverageError: 4.5, TotalGuesses: 3, LastUpdated: updated}

		Convey("When converted to the wire form", func() {
			w := types.FromModel(row)

			Convey("Then lastUpdated is epoch milliseconds", func() {
				So(w.LastUpdated, ShouldEqual, int64(1_700_000_000_123))
				So(w.ToModel().LastUpdated.Equal(updated), ShouldBeTrue)
			})
		})

		Convey("When an empty list is encoded", func() {
			b, err := json.Marshal(types.LeaderboardResponse{Leaderboard: types.FromModels(nil)})

			Convey("Then it is an empty array without an error key", func() {
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `{"leaderboard":[]}`)
			})
		})
	})
}

func TestSubmissionRequest(t *testing.T) {
	Convey("Given a request body without the optional totals", t, func() {
		var req types.SubmissionRequest
		err := json.Unmarshal([]byte(`{"username":"bob","averageError":2,"totalGuesses":1,"bestError":2,"performanceLevel":"Conversion Wizard"}`), &req)
		So(err, ShouldBeNil)

		Convey("Then the totals default to zero", func() {
			s := req.ToModel()
			So(s.Username, ShouldEqual, "bob")
			So(s.TotalPoints, ShouldEqual, 0)
			So(s.AverageAccuracy, ShouldEqual, 0)
		})
	})

	Convey("Given a submission", t, func() {
		s := model.Submission{Username: "bob", TotalPoints: 175, AverageAccuracy: 97.5, IdempotencyKey: "bob:e:2"}

		Convey("Then the request carries every field", func() {
			req := types.NewSubmissionRequest(s)
			So(*req.TotalPoints, ShouldEqual, 175)
			So(*req.AverageAccuracy, ShouldEqual, 97.5)
			So(req.ToModel(), ShouldResemble, s)
		})
	})
}

func TestStoreFailure(t *testing.T) {
	Convey("Given error messages from the leaderboard endpoints", t, func() {
		So(types.StoreFailure(types.MsgFetchFailed+"no such table"), ShouldBeTrue)
		So(types.StoreFailure(types.MsgLookupFailed+"locked"), ShouldBeTrue)
		So(types.StoreFailure(types.MsgUpdateFailed+"locked"), ShouldBeTrue)
		So(types.StoreFailure(types.MsgRefreshFailed+"locked"), ShouldBeTrue)
		So(types.StoreFailure(types.MsgOperationFailed), ShouldBeTrue)
		So(types.StoreFailure(types.MsgNotConfigured), ShouldBeFalse)
		So(types.StoreFailure(types.MsgInvalidBody), ShouldBeFalse)
		So(types.StoreFailure("Username is required"), ShouldBeFalse)
		So(types.StoreFailure(""), ShouldBeFalse)
	})
}
