package sim

import (
	"kosmos-worm/server/internal/telemetry"
	"kosmos-worm/server/logging"
)

// Deps carries shared infrastructure dependencies required by the loop.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
}
