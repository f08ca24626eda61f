package trends

import (
	"fmt"
	"time"

	"github.com/spboyer/evalgate/internal/models"
	"github.com/spboyer/evalgate/internal/runstore"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func pointsWithRates(rates ...float64) []models.TrendPoint {
	points := make([]models.TrendPoint, len(rates))
	for i, r := range rates {
		points[i] = models.TrendPoint{
			RunID:      fmt.Sprintf("run-%d", i+1),
			Timestamp:  t0.Add(time.Duration(i) * time.Hour),
			PassRate:   r,
			EvalStatus: models.EvalStatusComplete,
		}
	}
	return points
}

func finishedRun(id, exp string, hour int, passRate float64, promptVersion string) runstore.Run {
	return runstore.Run{
		RunID:        id,
		ExperimentID: exp,
		StartTime:    t0.Add(time.Duration(hour) * time.Hour),
		Status:       runstore.RunStatusFinished,
		Metrics: map[string]float64{
			"pass_rate":     passRate,
			"average_score": 4.2,
			"total_cases":   10,
			"error_cases":   0,
		},
		Params: map[string]string{"prompt.system": promptVersion},
	}
}
