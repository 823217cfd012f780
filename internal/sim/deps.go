package sim

import (
	"math/rand"

	"rift-and-ruin/server/internal/telemetry"
	"rift-and-ruin/server/logging"
)

// Deps carries shared infrastructure dependencies required by the
// simulation engine. Nil fields are replaced with no-op implementations at
// construction, so callers only wire what they need.
type Deps struct {
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	RNG       *rand.Rand
}
