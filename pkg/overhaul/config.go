package overhaul

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/guildforge/guildforge/pkg/remote"
)

// maxRolesPerGuild is the platform ceiling on roles in a single guild. A
// configuration whose templates would exceed it is rejected at validation
// time instead of failing mid-run.
const maxRolesPerGuild = 250

// FeatureFlag selects an optional module for the overhaul. The set is
// closed: unknown flags are rejected when the configuration is parsed, not
// discovered at execution time.
type FeatureFlag string

const (
	FeatureLeveling      FeatureFlag = "leveling"
	FeatureReactionRoles FeatureFlag = "reactionRoles"
	FeatureWelcome       FeatureFlag = "welcome"
	FeatureVIPLounge     FeatureFlag = "vipLounge"
	FeatureGaming        FeatureFlag = "gaming"
)

// knownFeatures is the closed set of valid flags.
var knownFeatures = map[FeatureFlag]bool{
	FeatureLeveling:      true,
	FeatureReactionRoles: true,
	FeatureWelcome:       true,
	FeatureVIPLounge:     true,
	FeatureGaming:        true,
}

// ParseFeatureFlag validates a raw string against the closed flag set.
func ParseFeatureFlag(s string) (FeatureFlag, error) {
	f := FeatureFlag(s)
	if !knownFeatures[f] {
		return "", fmt.Errorf("unknown feature flag %q", s)
	}
	return f, nil
}

// Identity holds guild-level settings applied by the first step of a run.
type Identity struct {
	Name                string `yaml:"name" validate:"required,min=2,max=100"`
	VerificationTier    int    `yaml:"verificationTier" validate:"min=0,max=4"`
	ContentFilterTier   int    `yaml:"contentFilterTier" validate:"min=0,max=2"`
	NotificationDefault int    `yaml:"notificationDefault" validate:"min=0,max=1"`
}

// RoleTemplate declares one role to create. Declaration order is hierarchy
// order: earlier templates sit higher in the guild's role list. Protected
// roles are never removed by leveling reconciliation or panel selection.
type RoleTemplate struct {
	Name        string `yaml:"name" validate:"required,min=1,max=100"`
	Color       int    `yaml:"color" validate:"min=0,max=16777215"`
	Hoisted     bool   `yaml:"hoisted"`
	Mentionable bool   `yaml:"mentionable"`
	Protected   bool   `yaml:"protected"`
}

// ChannelTemplate declares one channel inside a category.
type ChannelTemplate struct {
	Name              string             `yaml:"name" validate:"required,min=1,max=100"`
	Kind              remote.ChannelKind `yaml:"kind" validate:"required,oneof=text voice"`
	MinimumTierToPost int                `yaml:"minimumTierToPost" validate:"min=0"`
	ReadOnly          bool               `yaml:"readOnly"`
	StaffOnly         bool               `yaml:"staffOnly"`
}

// CategoryTemplate declares one category and its channels in order.
type CategoryTemplate struct {
	Name     string            `yaml:"name" validate:"required,min=1,max=100"`
	Channels []ChannelTemplate `yaml:"channels" validate:"dive"`
}

// TierTemplate declares one progression rank: the xp threshold that unlocks
// it, the role rewarded on crossing, and the capabilities it grants.
type TierTemplate struct {
	Threshold            int64    `yaml:"threshold" validate:"min=0"`
	RoleName             string   `yaml:"roleName" validate:"required"`
	UnlockedCapabilities []string `yaml:"unlockedCapabilities"`
}

// SafetyOptions gate destructive behavior during a run.
type SafetyOptions struct {
	PreserveStaffRoles bool `yaml:"preserveStaffRoles"`
	BackupRequired     bool `yaml:"backupRequired"`
}

// ConfigurationModel is the validated declarative end-state of one guild.
// It is immutable for the duration of a run: the planner reads it, the
// executor never writes it back.
type ConfigurationModel struct {
	Identity          Identity           `yaml:"identity" validate:"required"`
	RoleTemplates     []RoleTemplate     `yaml:"roleTemplates" validate:"required,min=1,dive"`
	CategoryTemplates []CategoryTemplate `yaml:"categoryTemplates" validate:"dive"`
	Tiers             []TierTemplate     `yaml:"tiers" validate:"dive"`
	Features          []FeatureFlag      `yaml:"features"`
	Safety            SafetyOptions      `yaml:"safety"`
}

// HasFeature reports whether the flag is enabled in this configuration.
func (c *ConfigurationModel) HasFeature(f FeatureFlag) bool {
	for _, have := range c.Features {
		if have == f {
			return true
		}
	}
	return false
}

// EnabledFeatures returns the enabled flags in declared order with
// duplicates removed.
func (c *ConfigurationModel) EnabledFeatures() []FeatureFlag {
	seen := make(map[FeatureFlag]bool, len(c.Features))
	out := make([]FeatureFlag, 0, len(c.Features))
	for _, f := range c.Features {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// RoleTemplate looks up a template by name.
func (c *ConfigurationModel) RoleTemplate(name string) (RoleTemplate, bool) {
	for _, rt := range c.RoleTemplates {
		if rt.Name == name {
			return rt, true
		}
	}
	return RoleTemplate{}, false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags plus the cross-field invariants the tags
// cannot express. All problems are collected into one ValidationError.
func (c *ConfigurationModel) Validate() error {
	verr := &ValidationError{}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if ok := asFieldErrors(err, &fieldErrs); ok {
			for _, fe := range fieldErrs {
				verr.Add("%s: failed %q constraint", fe.Namespace(), fe.Tag())
			}
		} else {
			verr.Add("%v", err)
		}
	}

	c.validateNames(verr)
	c.validateTiers(verr)
	c.validateFeatures(verr)

	if len(c.RoleTemplates) > maxRolesPerGuild {
		verr.Add("roleTemplates: %d roles exceeds the platform limit of %d",
			len(c.RoleTemplates), maxRolesPerGuild)
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

func (c *ConfigurationModel) validateNames(verr *ValidationError) {
	roleNames := make(map[string]bool, len(c.RoleTemplates))
	for _, rt := range c.RoleTemplates {
		if roleNames[rt.Name] {
			verr.Add("roleTemplates: duplicate role name %q", rt.Name)
		}
		roleNames[rt.Name] = true
	}

	catNames := make(map[string]bool, len(c.CategoryTemplates))
	for _, ct := range c.CategoryTemplates {
		if catNames[ct.Name] {
			verr.Add("categoryTemplates: duplicate category name %q", ct.Name)
		}
		catNames[ct.Name] = true

		chNames := make(map[string]bool, len(ct.Channels))
		for _, ch := range ct.Channels {
			if chNames[ch.Name] {
				verr.Add("categoryTemplates[%s]: duplicate channel name %q", ct.Name, ch.Name)
			}
			chNames[ch.Name] = true
			if ch.MinimumTierToPost > 0 && len(c.Tiers) == 0 {
				verr.Add("categoryTemplates[%s].%s: minimumTierToPost set but no tiers defined", ct.Name, ch.Name)
			} else if ch.MinimumTierToPost > len(c.Tiers) {
				verr.Add("categoryTemplates[%s].%s: minimumTierToPost %d exceeds the %d defined tiers",
					ct.Name, ch.Name, ch.MinimumTierToPost, len(c.Tiers))
			}
		}
	}
}

func (c *ConfigurationModel) validateTiers(verr *ValidationError) {
	var prev int64 = -1
	for i, t := range c.Tiers {
		if t.Threshold <= prev {
			verr.Add("tiers[%d]: threshold %d is not strictly greater than the previous threshold %d",
				i, t.Threshold, prev)
		}
		prev = t.Threshold
		switch rt, ok := c.RoleTemplate(t.RoleName); {
		case !ok:
			verr.Add("tiers[%d]: role %q is not declared in roleTemplates", i, t.RoleName)
		case rt.Protected:
			// A protected role as a reward would be stripped again on the
			// next tier crossing.
			verr.Add("tiers[%d]: role %q is protected and cannot be a tier reward", i, t.RoleName)
		}
	}

	if len(c.Tiers) > 0 && !c.HasFeature(FeatureLeveling) {
		verr.Add("tiers: defined but the leveling feature is not enabled")
	}
}

func (c *ConfigurationModel) validateFeatures(verr *ValidationError) {
	flags := make([]string, 0, len(c.Features))
	for _, f := range c.Features {
		if !knownFeatures[f] {
			flags = append(flags, string(f))
		}
	}
	sort.Strings(flags)
	for _, f := range flags {
		verr.Add("features: unknown feature flag %q", f)
	}
}

func asFieldErrors(err error, out *validator.ValidationErrors) bool {
	fe, ok := err.(validator.ValidationErrors)
	if ok {
		*out = fe
	}
	return ok
}

// LoadConfiguration reads and validates a configuration from a YAML file.
func LoadConfiguration(path string) (*ConfigurationModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration %s: %w", path, err)
	}
	return ParseConfiguration(data)
}

// ParseConfiguration decodes and validates a YAML configuration document.
func ParseConfiguration(data []byte) (*ConfigurationModel, error) {
	var cfg ConfigurationModel
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
