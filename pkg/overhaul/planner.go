package overhaul

import (
	"fmt"

	"github.com/google/uuid"
)

// Plan turns a configuration into the ordered step sequence for one run.
// Steps appear in fixed precedence: settings, role creation, role
// hierarchy, category/channel structure, leveling setup, one module step
// per remaining enabled feature in declared order, finalize. Disabled
// features are wholly omitted so the step count and progress denominator
// reflect the selected scope.
func Plan(cfg *ConfigurationModel) ([]Step, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var steps []Step
	add := func(kind StepKind, label string, payload StepPayload, deps ...string) string {
		id := uuid.New().String()
		steps = append(steps, Step{
			ID:        id,
			Kind:      kind,
			Label:     label,
			DependsOn: deps,
			Payload:   payload,
			Status:    StatusPending,
		})
		return id
	}

	settingsID := add(StepSettings, "Apply guild settings", StepPayload{
		Settings: &cfg.Identity,
		Safety:   cfg.Safety,
	})

	rolesID := add(StepRoleCreate,
		fmt.Sprintf("Create %d roles", len(cfg.RoleTemplates)),
		StepPayload{Roles: cfg.RoleTemplates},
		settingsID)

	orderID := add(StepRoleOrder, "Order role hierarchy",
		StepPayload{Roles: cfg.RoleTemplates, Safety: cfg.Safety},
		rolesID)

	structureDeps := []string{rolesID, orderID}
	channelCount := 0
	for _, ct := range cfg.CategoryTemplates {
		channelCount += len(ct.Channels)
	}
	structureID := add(StepStructureCreate,
		fmt.Sprintf("Create %d categories and %d channels", len(cfg.CategoryTemplates), channelCount),
		StepPayload{Categories: cfg.CategoryTemplates, Roles: cfg.RoleTemplates, Tiers: cfg.Tiers},
		structureDeps...)

	var tailDeps []string
	if cfg.HasFeature(FeatureLeveling) {
		levelingID := add(StepLevelingSetup, "Configure leveling tiers",
			StepPayload{Tiers: cfg.Tiers, Roles: cfg.RoleTemplates},
			rolesID)
		tailDeps = append(tailDeps, levelingID)
	}

	for _, f := range cfg.EnabledFeatures() {
		if f == FeatureLeveling {
			continue
		}
		moduleID := add(StepModuleSetup,
			fmt.Sprintf("Set up %s module", f),
			StepPayload{Feature: f, Roles: cfg.RoleTemplates, Categories: cfg.CategoryTemplates},
			structureID)
		tailDeps = append(tailDeps, moduleID)
	}

	finalizeDeps := append([]string{structureID}, tailDeps...)
	add(StepFinalize, "Verify and finalize",
		StepPayload{Roles: cfg.RoleTemplates, Categories: cfg.CategoryTemplates, GuildName: cfg.Identity.Name},
		finalizeDeps...)

	return steps, nil
}
