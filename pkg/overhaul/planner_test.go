package overhaul

import "testing"

func TestPlanStepCountMatchesEnabledFeatures(t *testing.T) {
	// 5 base steps + leveling-setup + reaction-roles module = 7.
	steps, err := Plan(validConfig())
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if len(steps) != 7 {
		t.Fatalf("expected 7 steps, got %d", len(steps))
	}

	wantKinds := []StepKind{
		StepSettings, StepRoleCreate, StepRoleOrder, StepStructureCreate,
		StepLevelingSetup, StepModuleSetup, StepFinalize,
	}
	for i, want := range wantKinds {
		if steps[i].Kind != want {
			t.Errorf("step %d: kind = %s, want %s", i+1, steps[i].Kind, want)
		}
	}
	if steps[5].Payload.Feature != FeatureReactionRoles {
		t.Errorf("module step feature = %s", steps[5].Payload.Feature)
	}
}

func TestPlanOmitsDisabledFeatures(t *testing.T) {
	cfg := validConfig()
	cfg.Features = nil
	cfg.Tiers = nil

	steps, err := Plan(cfg)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if len(steps) != 5 {
		t.Fatalf("expected 5 base steps, got %d", len(steps))
	}
	for _, s := range steps {
		if s.Kind == StepLevelingSetup || s.Kind == StepModuleSetup {
			t.Errorf("disabled feature produced step %s", s.Kind)
		}
	}
}

func TestPlanEmitsOneModuleStepPerFeature(t *testing.T) {
	cfg := validConfig()
	cfg.Features = []FeatureFlag{
		FeatureLeveling, FeatureReactionRoles, FeatureWelcome,
		FeatureVIPLounge, FeatureGaming,
		FeatureReactionRoles, // duplicate, must not double the step
	}

	steps, err := Plan(cfg)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	// 5 base + leveling + 4 modules.
	if len(steps) != 10 {
		t.Fatalf("expected 10 steps, got %d", len(steps))
	}

	seen := map[FeatureFlag]int{}
	for _, s := range steps {
		if s.Kind == StepModuleSetup {
			seen[s.Payload.Feature]++
		}
	}
	for f, n := range seen {
		if n != 1 {
			t.Errorf("feature %s got %d module steps", f, n)
		}
	}
}

func TestPlanRejectsInvalidConfiguration(t *testing.T) {
	cfg := validConfig()
	cfg.Tiers[1].Threshold = 0

	if _, err := Plan(cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestPlanDependenciesReferenceEarlierSteps(t *testing.T) {
	steps, err := Plan(validConfig())
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	earlier := map[string]bool{}
	for i, s := range steps {
		for _, dep := range s.DependsOn {
			if !earlier[dep] {
				t.Errorf("step %d (%s) depends on %s which is not an earlier step", i+1, s.Kind, dep)
			}
		}
		earlier[s.ID] = true
		if s.Status != StatusPending {
			t.Errorf("step %d starts with status %s", i+1, s.Status)
		}
	}
}
