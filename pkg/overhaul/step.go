package overhaul

import (
	"fmt"
	"strings"
	"time"
)

// StepKind classifies the unit of remote work a step performs. The planner
// emits kinds in a fixed precedence order; the executor dispatches on them.
type StepKind string

const (
	StepSettings        StepKind = "settings"
	StepRoleCreate      StepKind = "role-create"
	StepRoleOrder       StepKind = "role-order"
	StepStructureCreate StepKind = "structure-create"
	StepLevelingSetup   StepKind = "leveling-setup"
	StepModuleSetup     StepKind = "module-setup"
	StepFinalize        StepKind = "finalize"
)

// StepStatus is the lifecycle state of a step within one run.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

// IsTerminal reports whether the status is final for the run.
func (s StepStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// Validate checks the status is one of the known values.
func (s StepStatus) Validate() error {
	switch s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed, StatusSkipped:
		return nil
	}
	return fmt.Errorf("unknown step status %q", s)
}

// StepPayload carries the operation-specific parameters for one step.
// Exactly the fields relevant to the step's kind are populated.
type StepPayload struct {
	Settings   *Identity
	GuildName  string
	Roles      []RoleTemplate
	Categories []CategoryTemplate
	Tiers      []TierTemplate
	Feature    FeatureFlag
	Safety     SafetyOptions
}

// Step is one unit of remote work in a planned run. Steps are created by
// the planner, mutated only by the executor, and discarded when the run
// ends. DependsOn records which earlier steps produce identifiers this one
// consumes; the planner's fixed precedence already satisfies every edge.
type Step struct {
	ID        string
	Kind      StepKind
	Label     string
	DependsOn []string
	Payload   StepPayload
	Status    StepStatus
}

// RunStats counts what a run actually did, for the summary report.
type RunStats struct {
	CreatedRoles      int
	CreatedCategories int
	CreatedChannels   int
	CreatedMessages   int
	SkippedExisting   int
	RetriedCalls      int
}

// FailedStep identifies where a run aborted.
type FailedStep struct {
	Index  int // 1-based position in the plan
	StepID string
	Label  string
	Reason string
}

// RunResult is the outcome of one overhaul run, successful or not.
type RunResult struct {
	RunID          string
	GuildID        string
	TotalSteps     int
	CompletedSteps int
	FailedStep     *FailedStep
	Cancelled      bool
	Repair         bool
	Stats          RunStats
	StartedAt      time.Time
	Duration       time.Duration
}

// Succeeded reports whether every step completed.
func (r *RunResult) Succeeded() bool {
	return !r.Cancelled && r.FailedStep == nil && r.CompletedSteps == r.TotalSteps
}

// Summary renders a human-readable run report.
func (r *RunResult) Summary() string {
	var b strings.Builder
	mode := "overhaul"
	if r.Repair {
		mode = "repair"
	}
	switch {
	case r.Succeeded():
		fmt.Fprintf(&b, "%s run %s completed: %d/%d steps in %s\n",
			mode, r.RunID, r.CompletedSteps, r.TotalSteps, r.Duration.Round(time.Second))
	case r.Cancelled:
		fmt.Fprintf(&b, "%s run %s cancelled at step %d of %d\n",
			mode, r.RunID, r.CompletedSteps, r.TotalSteps)
	case r.FailedStep != nil:
		fmt.Fprintf(&b, "%s run %s failed at step %d/%d (%s): %s\n",
			mode, r.RunID, r.FailedStep.Index, r.TotalSteps, r.FailedStep.Label, r.FailedStep.Reason)
	}
	fmt.Fprintf(&b, "  roles created:      %d\n", r.Stats.CreatedRoles)
	fmt.Fprintf(&b, "  categories created: %d\n", r.Stats.CreatedCategories)
	fmt.Fprintf(&b, "  channels created:   %d\n", r.Stats.CreatedChannels)
	if r.Stats.SkippedExisting > 0 {
		fmt.Fprintf(&b, "  already existed:    %d\n", r.Stats.SkippedExisting)
	}
	if r.Stats.RetriedCalls > 0 {
		fmt.Fprintf(&b, "  retried calls:      %d\n", r.Stats.RetriedCalls)
	}
	return b.String()
}
