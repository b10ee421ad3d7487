package overhaul

import (
	"fmt"
	"strings"
	"testing"
)

func validConfig() *ConfigurationModel {
	return &ConfigurationModel{
		Identity: Identity{Name: "Test Guild", VerificationTier: 2},
		RoleTemplates: []RoleTemplate{
			{Name: "Admin", Color: 0xFF0000, Hoisted: true, Protected: true},
			{Name: "Moderator", Color: 0x00FF00, Hoisted: true, Protected: true},
			{Name: "Gold", Color: 0xFFD700},
			{Name: "Silver", Color: 0xC0C0C0},
			{Name: "Bronze", Color: 0xCD7F32},
		},
		CategoryTemplates: []CategoryTemplate{
			{Name: "General", Channels: []ChannelTemplate{
				{Name: "welcome", Kind: "text", ReadOnly: true},
				{Name: "chat", Kind: "text"},
				{Name: "voice-chat", Kind: "voice"},
			}},
			{Name: "Staff", Channels: []ChannelTemplate{
				{Name: "staff-chat", Kind: "text", StaffOnly: true},
				{Name: "staff-voice", Kind: "voice", StaffOnly: true},
			}},
		},
		Tiers: []TierTemplate{
			{Threshold: 0, RoleName: "Bronze"},
			{Threshold: 500, RoleName: "Silver"},
			{Threshold: 1000, RoleName: "Gold", UnlockedCapabilities: []string{"pin"}},
		},
		Features: []FeatureFlag{FeatureLeveling, FeatureReactionRoles},
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidateRejectsDuplicateRoleNames(t *testing.T) {
	cfg := validConfig()
	cfg.RoleTemplates = append(cfg.RoleTemplates, RoleTemplate{Name: "Admin"})
	assertProblem(t, cfg.Validate(), "duplicate role name")
}

func TestValidateRejectsDuplicateChannelNames(t *testing.T) {
	cfg := validConfig()
	cat := &cfg.CategoryTemplates[0]
	cat.Channels = append(cat.Channels, ChannelTemplate{Name: "chat", Kind: "text"})
	assertProblem(t, cfg.Validate(), "duplicate channel name")
}

func TestValidateRejectsNonIncreasingTiers(t *testing.T) {
	cfg := validConfig()
	cfg.Tiers[2].Threshold = 500
	assertProblem(t, cfg.Validate(), "not strictly greater")
}

func TestValidateRejectsUndeclaredTierRole(t *testing.T) {
	cfg := validConfig()
	cfg.Tiers[0].RoleName = "Platinum"
	assertProblem(t, cfg.Validate(), "not declared in roleTemplates")
}

func TestValidateRejectsProtectedTierReward(t *testing.T) {
	cfg := validConfig()
	cfg.Tiers[2].RoleName = "Admin"
	assertProblem(t, cfg.Validate(), "protected and cannot be a tier reward")
}

func TestValidateRejectsMinimumTierOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.CategoryTemplates[0].Channels[1].MinimumTierToPost = 4
	assertProblem(t, cfg.Validate(), "exceeds the 3 defined tiers")

	cfg = validConfig()
	cfg.Tiers = nil
	cfg.Features = []FeatureFlag{FeatureReactionRoles}
	cfg.CategoryTemplates[0].Channels[1].MinimumTierToPost = 1
	assertProblem(t, cfg.Validate(), "no tiers defined")
}

func TestValidateRejectsUnknownFeature(t *testing.T) {
	cfg := validConfig()
	cfg.Features = append(cfg.Features, FeatureFlag("starboard"))
	assertProblem(t, cfg.Validate(), "unknown feature flag")
}

func TestValidateRejectsTiersWithoutLeveling(t *testing.T) {
	cfg := validConfig()
	cfg.Features = []FeatureFlag{FeatureReactionRoles}
	assertProblem(t, cfg.Validate(), "leveling feature is not enabled")
}

func TestValidateRejectsRoleCountOverPlatformLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Tiers = nil
	cfg.Features = nil
	cfg.RoleTemplates = nil
	for i := 0; i < maxRolesPerGuild+1; i++ {
		cfg.RoleTemplates = append(cfg.RoleTemplates, RoleTemplate{Name: fmt.Sprintf("Role %03d", i)})
	}
	assertProblem(t, cfg.Validate(), "exceeds the platform limit")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.RoleTemplates = append(cfg.RoleTemplates, RoleTemplate{Name: "Admin"})
	cfg.Tiers[1].Threshold = 0
	cfg.Features = append(cfg.Features, FeatureFlag("bogus"))

	err := cfg.Validate()
	verr, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Problems) < 3 {
		t.Fatalf("expected at least 3 problems, got %d: %v", len(verr.Problems), verr.Problems)
	}
}

func TestParseConfigurationRejectsUnknownFields(t *testing.T) {
	doc := []byte(`
identity:
  name: Test Guild
roleTemplates:
  - name: Admin
bogusField: true
`)
	if _, err := ParseConfiguration(doc); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestParseConfigurationRoundTrip(t *testing.T) {
	doc := []byte(`
identity:
  name: Test Guild
  verificationTier: 2
roleTemplates:
  - name: Admin
    protected: true
  - name: Bronze
categoryTemplates:
  - name: General
    channels:
      - name: chat
        kind: text
tiers:
  - threshold: 0
    roleName: Bronze
features: [leveling]
`)
	cfg, err := ParseConfiguration(doc)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Identity.Name != "Test Guild" {
		t.Errorf("identity name = %q", cfg.Identity.Name)
	}
	if !cfg.HasFeature(FeatureLeveling) {
		t.Error("expected leveling feature enabled")
	}
	if len(cfg.RoleTemplates) != 2 || !cfg.RoleTemplates[0].Protected {
		t.Errorf("unexpected role templates: %+v", cfg.RoleTemplates)
	}
}

func TestParseFeatureFlag(t *testing.T) {
	if _, err := ParseFeatureFlag("leveling"); err != nil {
		t.Errorf("leveling should parse: %v", err)
	}
	if _, err := ParseFeatureFlag("reaction_roles"); err == nil {
		t.Error("legacy snake_case flag should be rejected")
	}
}

func assertProblem(t *testing.T, err error, want string) {
	t.Helper()
	verr, ok := AsValidation(err)
	if !ok {
		t.Fatalf("expected *ValidationError, got: %v", err)
	}
	for _, p := range verr.Problems {
		if strings.Contains(p, want) {
			return
		}
	}
	t.Fatalf("no problem mentions %q: %v", want, verr.Problems)
}
