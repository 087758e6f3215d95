package unit

import (
	"math"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/stream"
)

// CheckConservation compares in.Mass with retained.Mass + waste.Mass. It
// returns a warning and true when the relative drift exceeds eps.
func CheckConservation(stage string, in, retained, waste stream.Stream, eps float64) (errs.ConservationWarning, bool) {
	w := errs.ConservationWarning{
		Stage:    stage,
		Expected: in.Mass,
		Actual:   retained.Mass + waste.Mass,
	}
	scale := math.Max(1, math.Abs(in.Mass))
	return w, math.Abs(w.Drift()) > eps*scale
}
