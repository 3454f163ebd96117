package cpm

import (
	"sort"

	"github.com/hylla/gantry/internal/domain"
)

// Wave represents a group of tasks that share an earliest start and can run in parallel.
type Wave struct {
	Index      int
	Start      float64
	TaskIDs    []string
	IsCritical bool // true if wave contains critical path tasks
}

// Waves groups scheduled tasks by earliest start time.
func Waves(result domain.ScheduleResult) []Wave {
	rows := append([]domain.TaskSchedule(nil), result.Tasks...)
	sort.SliceStable(rows, func(a, b int) bool {
		if !domain.NearlyEqual(rows[a].EarliestStart, rows[b].EarliestStart) {
			return rows[a].EarliestStart < rows[b].EarliestStart
		}
		return rows[a].TaskID < rows[b].TaskID
	})

	var waves []Wave
	for _, row := range rows {
		if len(waves) == 0 || !domain.NearlyEqual(waves[len(waves)-1].Start, row.EarliestStart) {
			waves = append(waves, Wave{Index: len(waves), Start: row.EarliestStart})
		}
		w := &waves[len(waves)-1]
		w.TaskIDs = append(w.TaskIDs, row.TaskID)
		if row.IsCritical {
			w.IsCritical = true
		}
	}

	// Sort critical tasks first within wave
	for i := range waves {
		ids := waves[i].TaskIDs
		sort.SliceStable(ids, func(a, b int) bool {
			aRow, _ := result.Task(ids[a])
			bRow, _ := result.Task(ids[b])
			return aRow.IsCritical && !bRow.IsCritical
		})
	}
	return waves
}
