// Package sla computes deadline milestones and countdowns for a case. Nothing
// here is stored: every view is derived from the case and a point in time.
package sla

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"gryork/internal/lifecycle"
	"gryork/pkg/types"

	"gopkg.in/yaml.v3"
)

//go:embed milestones.yaml
var defaultMilestones []byte

const day = 24 * time.Hour

type MilestoneStatus string

const (
	MilestonePending       MilestoneStatus = "PENDING"
	MilestoneCompleted     MilestoneStatus = "COMPLETED"
	MilestoneCompletedLate MilestoneStatus = "COMPLETED_LATE"
	MilestoneOverdue       MilestoneStatus = "OVERDUE"
)

type Milestone struct {
	Key         string           `yaml:"key" json:"key"`
	Name        string           `yaml:"name" json:"name"`
	Day         int              `yaml:"day" json:"day"`
	CompletedBy types.CaseStatus `yaml:"completed_by" json:"completedBy"`
}

type milestoneFile struct {
	Milestones []Milestone `yaml:"milestones"`
}

// ParseMilestones decodes and checks a milestone definition file. The result
// is ordered by target day.
func ParseMilestones(data []byte) ([]Milestone, error) {
	var file milestoneFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode milestones: %w", err)
	}

	if len(file.Milestones) == 0 {
		return nil, fmt.Errorf("no milestones defined")
	}

	seen := make(map[string]bool, len(file.Milestones))
	for _, m := range file.Milestones {
		if m.Key == "" {
			return nil, fmt.Errorf("milestone %q has no key", m.Name)
		}
		if seen[m.Key] {
			return nil, fmt.Errorf("duplicate milestone key %q", m.Key)
		}
		seen[m.Key] = true

		if m.Day <= 0 {
			return nil, fmt.Errorf("milestone %q: day must be positive", m.Key)
		}
		if lifecycle.StageIndex(m.CompletedBy) < 0 {
			return nil, fmt.Errorf("milestone %q: %q is not a forward stage", m.Key, m.CompletedBy)
		}
	}

	sort.SliceStable(file.Milestones, func(i, j int) bool {
		return file.Milestones[i].Day < file.Milestones[j].Day
	})

	return file.Milestones, nil
}

// Tracker evaluates a fixed set of milestones against cases.
type Tracker struct {
	milestones []Milestone
}

func NewTracker(milestones []Milestone) *Tracker {
	return &Tracker{milestones: milestones}
}

// LoadTracker reads milestones from path, or the built-in set when path is empty.
func LoadTracker(path string) (*Tracker, error) {
	data := defaultMilestones
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read milestones file: %w", err)
		}
	}

	milestones, err := ParseMilestones(data)
	if err != nil {
		return nil, err
	}

	return NewTracker(milestones), nil
}

func (t *Tracker) Milestones() []Milestone {
	return t.milestones
}

type MilestoneView struct {
	Milestone
	TargetDate  time.Time       `json:"targetDate"`
	Status      MilestoneStatus `json:"status"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Countdown   *Countdown      `json:"countdown,omitempty"`
}

// EvaluateMilestone classifies a single milestone. completedAt is nil while
// the stage has not been reached.
func EvaluateMilestone(m Milestone, createdAt time.Time, completedAt *time.Time, now time.Time) MilestoneView {
	view := MilestoneView{
		Milestone:   m,
		TargetDate:  createdAt.Add(time.Duration(m.Day) * day),
		CompletedAt: completedAt,
	}

	if completedAt != nil {
		if completedAt.Before(view.TargetDate) {
			view.Status = MilestoneCompleted
		} else {
			view.Status = MilestoneCompletedLate
		}
		return view
	}

	countdown := ComputeCountdown(now, view.TargetDate)
	view.Countdown = &countdown
	if countdown.Breached {
		view.Status = MilestoneOverdue
	} else {
		view.Status = MilestonePending
	}

	return view
}

type Report struct {
	CaseID     string           `json:"caseId"`
	CaseNumber string           `json:"caseNumber"`
	Status     types.CaseStatus `json:"status"`
	StageIndex int              `json:"stageIndex"`
	Progress   int              `json:"progress"`
	AsOf       time.Time        `json:"asOf"`
	Milestones []MilestoneView  `json:"milestones"`
	// Next is the earliest milestone still open, if any.
	Next *MilestoneView `json:"next,omitempty"`
}

// Evaluate builds the SLA report for c at now. Cases halted by rejection or
// cancellation are evaluated as of the moment they halted so their clocks stop.
func (t *Tracker) Evaluate(c *types.Case, now time.Time) *Report {
	asOf := now
	if lifecycle.IsHalted(c.Status) && len(c.Timeline) > 0 {
		if halted := c.Timeline[len(c.Timeline)-1].CreatedAt; halted.Before(now) {
			asOf = halted
		}
	}

	report := &Report{
		CaseID:     c.ID,
		CaseNumber: c.CaseNumber,
		Status:     c.Status,
		StageIndex: lifecycle.StageIndex(c.Status),
		Progress:   lifecycle.Progress(c.Status),
		AsOf:       asOf,
		Milestones: make([]MilestoneView, 0, len(t.milestones)),
	}

	for _, m := range t.milestones {
		view := EvaluateMilestone(m, c.CreatedAt, reachedAt(c.Timeline, m.CompletedBy), asOf)
		report.Milestones = append(report.Milestones, view)
	}

	for i := range report.Milestones {
		if report.Milestones[i].CompletedAt == nil {
			report.Next = &report.Milestones[i]
			break
		}
	}

	return report
}

// reachedAt is the time of the first timeline entry at or beyond stage.
func reachedAt(timeline []*types.TimelineEntry, stage types.CaseStatus) *time.Time {
	target := lifecycle.StageIndex(stage)
	for _, entry := range timeline {
		if lifecycle.StageIndex(entry.Status) >= target {
			at := entry.CreatedAt
			return &at
		}
	}
	return nil
}
