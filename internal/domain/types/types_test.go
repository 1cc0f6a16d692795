package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/koishow/internal/domain/timeline"
	types "github.com/okian/koishow/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCatalog(t *testing.T) {
	Convey("Given the stage catalog", t, func() {
		catalog := types.Catalog()

		Convey("Then it lists all ten kinds in order", func() {
			So(catalog, ShouldHaveLength, timeline.StageCount)
			for i, e := range catalog {
				So(e.Order, ShouldEqual, i+1)
				So(e.Label, ShouldNotBeEmpty)
				So(e.Description, ShouldNotBeEmpty)
			}
			So(catalog[0].Kind, ShouldEqual, timeline.RegistrationOpen)
			So(catalog[9].Kind, ShouldEqual, timeline.Finished)
		})

		Convey("Then kinds encode by wire name", func() {
			raw, err := json.Marshal(catalog[1])
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"kind":"KoiCheckIn"`)
		})
	})
}

func TestSaveOutcome(t *testing.T) {
	Convey("Given a save outcome", t, func() {
		out := types.SaveOutcome{
			ViewState: types.ViewState{ViewID: "view-1", ShowID: "show-1", Mode: "viewing"},
		}

		Convey("When it is encoded", func() {
			raw, err := json.Marshal(out)
			So(err, ShouldBeNil)

			Convey("Then the view fields are inlined and empty errors omitted", func() {
				var m map[string]any
				So(json.Unmarshal(raw, &m), ShouldBeNil)
				So(m["viewId"], ShouldEqual, "view-1")
				So(m["mode"], ShouldEqual, "viewing")
				So(m, ShouldNotContainKey, "refreshError")
				So(m, ShouldNotContainKey, "buffer")
			})
		})
	})
}
