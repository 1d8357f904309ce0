package checks

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/phasegate/internal/store"
	"github.com/mesh-intelligence/phasegate/pkg/types"
)

// CompletionRemediator fills in phase snapshots and metrics of a workflow
// just archived without them, and flags duration regressions. It reads and
// writes the document itself and always reports Modified=false so the
// dispatcher does not write a second time.
func CompletionRemediator(c *Context) (Result, error) {
	path, ok := writtenStatePath(c)
	if !ok {
		return Allow, nil
	}
	s, err := store.LoadState(path)
	if err != nil {
		return Allow, err
	}
	rec := s.LastWorkflow()
	if s.ActiveWorkflow != nil || rec == nil {
		return Allow, nil
	}
	phases := rec.Phases
	if len(phases) == 0 {
		phases = s.PhaseIDs()
	}
	// With no phases to freeze, metrics alone mark the record as done.
	if rec.Metrics != nil && (len(rec.PhaseSnapshots) > 0 || len(phases) == 0) {
		return Allow, nil
	}
	if rec.ID == "" {
		rec.ID = types.NewID()
	}
	if rec.Status == "" {
		rec.Status = types.WorkflowCompleted
	}
	rec.PhaseSnapshots = Snapshots(s, phases)
	rec.Metrics = Metrics(rec)

	var res Result
	if reg := DetectRegression(s.WorkflowHistory[:len(s.WorkflowHistory)-1], rec, c.Config.Regression); reg != nil {
		rec.Metrics.PerformanceRegression = reg
		c.logger().Warn("workflow duration regression",
			zap.String("tier", rec.Sizing.Tier()),
			zap.Float64("average_minutes", reg.AverageMinutes),
			zap.Float64("current_minutes", reg.CurrentMinutes))
		msg := fmt.Sprintf("performance regression: %.1f min is %.0f%% over the %.1f min average for this tier",
			reg.CurrentMinutes, reg.PercentOver, reg.AverageMinutes)
		if reg.SlowestPhase != "" {
			msg += "; slowest phase " + reg.SlowestPhase
		}
		res.Diagnostics = append(res.Diagnostics, msg)
	}

	if err := store.SaveState(path, s, c.Config.Limits); err != nil {
		return Allow, err
	}
	c.logger().Info("remediated workflow history record", zap.String("id", rec.ID), zap.Int("phases", len(phases)))
	return res, nil
}

// Snapshots freezes the listed phases of s. Phases missing from s are
// recorded as pending.
func Snapshots(s *types.WorkflowState, phases []string) []types.PhaseSnapshot {
	out := make([]types.PhaseSnapshot, 0, len(phases))
	for _, id := range phases {
		snap := types.PhaseSnapshot{Phase: id, Status: types.PhaseStatusPending}
		if ps := s.Phase(id); ps != nil {
			if ps.Status != "" {
				snap.Status = ps.Status
			}
			snap.Started = ps.Started
			snap.Completed = ps.Completed
			snap.DurationMinutes = minutesBetween(ps.Started, ps.Completed)
			if it := ps.TestIteration(); it != nil {
				snap.TestIterations = it.CurrentIteration
			}
			snap.Artifacts = len(ps.Artifacts)
		}
		out = append(out, snap)
	}
	return out
}

// Metrics aggregates the record's snapshots. Total duration comes from the
// record's own start and end times when both parse, else the phase sum.
func Metrics(rec *types.WorkflowHistoryRecord) *types.WorkflowMetrics {
	m := &types.WorkflowMetrics{}
	var sum float64
	for _, snap := range rec.PhaseSnapshots {
		if snap.Status == types.PhaseStatusCompleted {
			m.PhasesCompleted++
		}
		m.TotalTestIterations += snap.TestIterations
		sum += snap.DurationMinutes
	}
	m.TotalDurationMinutes = minutesBetween(rec.StartedAt, rec.CompletedAt)
	if m.TotalDurationMinutes == 0 {
		m.TotalDurationMinutes = round1(sum)
	}
	return m
}

// DetectRegression compares rec against the last cfg.Window completed runs
// of the same tier in prior. It returns nil when there is no baseline or the
// run is within the threshold.
func DetectRegression(prior []*types.WorkflowHistoryRecord, rec *types.WorkflowHistoryRecord, cfg types.Regression) *types.PerformanceRegression {
	if rec.Metrics == nil || rec.Metrics.TotalDurationMinutes <= 0 {
		return nil
	}
	window := cfg.Window
	if window <= 0 {
		window = types.DefaultRegression().Window
	}
	tier := rec.Sizing.Tier()
	var durations []float64
	for i := len(prior) - 1; i >= 0 && len(durations) < window; i-- {
		p := prior[i]
		if p == nil || p.Status == types.WorkflowCancelled || p.Metrics == nil || p.Metrics.TotalDurationMinutes <= 0 {
			continue
		}
		if p.Sizing.Tier() != tier {
			continue
		}
		durations = append(durations, p.Metrics.TotalDurationMinutes)
	}
	if len(durations) == 0 {
		return nil
	}
	var total float64
	for _, d := range durations {
		total += d
	}
	avg := total / float64(len(durations))
	current := rec.Metrics.TotalDurationMinutes
	over := (current - avg) * 100 / avg
	if over <= cfg.ThresholdPercent {
		return nil
	}
	return &types.PerformanceRegression{
		AverageMinutes: round1(avg),
		CurrentMinutes: round1(current),
		PercentOver:    round1(over),
		SlowestPhase:   slowestPhase(rec.PhaseSnapshots),
	}
}

func slowestPhase(snaps []types.PhaseSnapshot) string {
	var name string
	var longest float64
	for _, s := range snaps {
		if s.DurationMinutes > longest {
			name, longest = s.Phase, s.DurationMinutes
		}
	}
	return name
}

func minutesBetween(start, end string) float64 {
	from, ok := types.ParseTimestamp(start)
	if !ok {
		return 0
	}
	to, ok := types.ParseTimestamp(end)
	if !ok || to.Before(from) {
		return 0
	}
	return round1(to.Sub(from).Minutes())
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
