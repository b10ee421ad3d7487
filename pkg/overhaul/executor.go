package overhaul

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guildforge/guildforge/pkg/remote"
	"github.com/guildforge/guildforge/pkg/stores"
	"github.com/guildforge/guildforge/pkg/telemetry"
)

// IDMap maps template keys ("role/Moderator", "category/Support",
// "channel/Support/help") to the remote identifiers created for them.
type IDMap map[string]string

// RoleID looks up a role template's remote identifier.
func (m IDMap) RoleID(name string) (string, bool) {
	id, ok := m["role/"+name]
	return id, ok
}

// ModuleHandler performs the setup work for one optional feature during a
// module-setup step. Handlers receive the identifiers produced by earlier
// steps and must be idempotent: re-running against an already-configured
// guild is a repair, not an error. Retries performed on the handler's
// behalf are accumulated into stats so the run summary counts them.
type ModuleHandler interface {
	Setup(ctx context.Context, guildID string, ids IDMap, cfg StepPayload, stats *RunStats) error
}

// ModuleHandlerFunc adapts a function to the ModuleHandler interface.
type ModuleHandlerFunc func(ctx context.Context, guildID string, ids IDMap, cfg StepPayload, stats *RunStats) error

func (f ModuleHandlerFunc) Setup(ctx context.Context, guildID string, ids IDMap, cfg StepPayload, stats *RunStats) error {
	return f(ctx, guildID, ids, cfg, stats)
}

// ExecutorOptions tune retry behavior. Zero values take the defaults.
type ExecutorOptions struct {
	MaxAttempts int           // per remote call, default 5
	BaseBackoff time.Duration // default 500ms
	MaxBackoff  time.Duration // cap, default 30s
}

func (o ExecutorOptions) withDefaults() ExecutorOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	return o
}

// Executor runs planned step sequences against a guild. It is safe for
// concurrent use across guilds; a per-guild lock rejects a second run
// against a guild that already has one active.
type Executor struct {
	client  remote.Client
	store   stores.Store
	log     *telemetry.Logger
	metrics *telemetry.Metrics
	opts    ExecutorOptions

	handlers map[FeatureFlag]ModuleHandler

	// sleep is swapped in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration)

	mu     sync.Mutex
	active map[string]bool
}

// NewExecutor builds an executor over the given client and store.
func NewExecutor(client remote.Client, store stores.Store, log *telemetry.Logger, metrics *telemetry.Metrics, opts ExecutorOptions) *Executor {
	return &Executor{
		client:   client,
		store:    store,
		log:      log,
		metrics:  metrics,
		opts:     opts.withDefaults(),
		handlers: make(map[FeatureFlag]ModuleHandler),
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
			}
		},
		active: make(map[string]bool),
	}
}

// RegisterModule installs the handler invoked for a feature's module-setup
// step. Executing a plan whose module step has no registered handler fails
// that step permanently.
func (e *Executor) RegisterModule(f FeatureFlag, h ModuleHandler) {
	e.handlers[f] = h
}

// Execute runs the planned sequence as a fresh overhaul.
func (e *Executor) Execute(ctx context.Context, guildID string, steps []Step, reporter *Reporter) (*RunResult, error) {
	if err := e.acquire(guildID); err != nil {
		return nil, err
	}
	defer e.release(guildID)

	known := make(IDMap)
	if e.store != nil {
		// A previous interrupted run may have recorded identifiers; reuse
		// them so re-invocation never duplicates resources.
		if ids, err := e.store.GetRemoteIDs(ctx, guildID); err == nil {
			for k, v := range ids {
				known[k] = v
			}
		}
	}
	return e.run(ctx, guildID, steps, reporter, known, false)
}

// Repair re-runs the planned sequence against a partially-applied guild.
// Remote state is listed fresh and merged with the recorded identifiers so
// creation steps treat an existing same-name resource as success without
// mutation.
func (e *Executor) Repair(ctx context.Context, guildID string, steps []Step, reporter *Reporter) (*RunResult, error) {
	if err := e.acquire(guildID); err != nil {
		return nil, err
	}
	defer e.release(guildID)

	known, err := e.buildKnownState(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("listing remote state for repair: %w", err)
	}
	return e.run(ctx, guildID, steps, reporter, known, true)
}

// buildKnownState merges a fresh remote listing with the identifiers
// recorded by earlier runs. The fresh listing wins on conflict: the remote
// side is the authority on what actually exists.
func (e *Executor) buildKnownState(ctx context.Context, guildID string) (IDMap, error) {
	known := make(IDMap)
	if e.store != nil {
		if ids, err := e.store.GetRemoteIDs(ctx, guildID); err == nil {
			for k, v := range ids {
				known[k] = v
			}
		}
	}

	roles, err := e.client.ListRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.Managed {
			continue
		}
		known["role/"+r.Name] = r.ID
	}

	cats, chans, err := e.client.ListChannels(ctx, guildID)
	if err != nil {
		return nil, err
	}
	catByID := make(map[string]string, len(cats))
	for _, c := range cats {
		known["category/"+c.Name] = c.ID
		catByID[c.ID] = c.Name
	}
	for _, ch := range chans {
		if catName, ok := catByID[ch.CategoryID]; ok {
			known["channel/"+catName+"/"+ch.Name] = ch.ID
		}
	}
	return known, nil
}

func (e *Executor) acquire(guildID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active[guildID] {
		return ErrRunActive
	}
	e.active[guildID] = true
	return nil
}

func (e *Executor) release(guildID string) {
	e.mu.Lock()
	delete(e.active, guildID)
	e.mu.Unlock()
}

func (e *Executor) run(ctx context.Context, guildID string, steps []Step, reporter *Reporter, known IDMap, repair bool) (*RunResult, error) {
	result := &RunResult{
		RunID:      uuid.New().String(),
		GuildID:    guildID,
		TotalSteps: len(steps),
		Repair:     repair,
		StartedAt:  time.Now(),
	}
	log := e.log.WithGuildID(guildID).WithRunID(result.RunID)
	e.metrics.RunStarted(guildID)
	defer func() {
		result.Duration = time.Since(result.StartedAt)
		e.metrics.RunCompleted(runOutcome(result), result.Duration)
	}()

	// Remote calls and retry sleeps never observe caller cancellation
	// directly; cancellation is honored only at step boundaries so a step
	// is never left half-executed.
	stepCtx := context.WithoutCancel(ctx)

	log.WithField("total_steps", len(steps)).WithField("repair", repair).Info("starting run")
	reporter.Begin(stepCtx, len(steps))

	for i := range steps {
		if ctx.Err() != nil {
			result.Cancelled = true
			reporter.CancelledAt(stepCtx, result.CompletedSteps)
			log.WithField("completed", result.CompletedSteps).Info("run cancelled")
			return result, nil
		}

		step := &steps[i]
		index := i + 1
		step.Status = StatusRunning
		reporter.StepStarted(stepCtx, index, step.Label)
		slog := log.WithStepID(step.ID)
		slog.WithField("kind", string(step.Kind)).Info("step started")

		start := time.Now()
		err := e.executeStep(stepCtx, guildID, step, known, result)
		stepStatus := "succeeded"
		if err != nil {
			stepStatus = "failed"
		}
		e.metrics.StepExecuted(string(step.Kind), stepStatus, time.Since(start))

		if err != nil {
			step.Status = StatusFailed
			result.FailedStep = &FailedStep{
				Index:  index,
				StepID: step.ID,
				Label:  step.Label,
				Reason: err.Error(),
			}
			reporter.Failed(stepCtx, index, err)
			slog.WithError(err).Error("step failed, aborting run")
			return result, fmt.Errorf("step %d/%d (%s): %w", index, len(steps), step.Label, err)
		}

		step.Status = StatusSucceeded
		result.CompletedSteps++
		reporter.StepCompleted(stepCtx, index)
		slog.WithField("took", time.Since(start).String()).Info("step succeeded")
	}

	reporter.Completed(stepCtx)
	log.WithField("took", time.Since(result.StartedAt).String()).Info("run completed")
	return result, nil
}

func runOutcome(r *RunResult) string {
	switch {
	case r.Cancelled:
		return "cancelled"
	case r.FailedStep != nil:
		return "failed"
	default:
		return "succeeded"
	}
}

func (e *Executor) executeStep(ctx context.Context, guildID string, step *Step, known IDMap, result *RunResult) error {
	switch step.Kind {
	case StepSettings:
		return e.applySettings(ctx, guildID, step.Payload, known, &result.Stats)
	case StepRoleCreate:
		return e.createRoles(ctx, guildID, step.Payload.Roles, known, result)
	case StepRoleOrder:
		return e.orderRoles(ctx, guildID, step.Payload, known, &result.Stats)
	case StepStructureCreate:
		return e.createStructure(ctx, guildID, step.Payload, known, result)
	case StepLevelingSetup:
		return e.setupLeveling(ctx, guildID, step.Payload, known)
	case StepModuleSetup:
		return e.setupModule(ctx, guildID, step, known, &result.Stats)
	case StepFinalize:
		return e.finalize(ctx, guildID, step.Payload, &result.Stats)
	default:
		return remote.NewPermanentError(fmt.Sprintf("unknown step kind %q", step.Kind), nil)
	}
}

// applySettings is the run's first step. Before any mutation it performs
// the preflight: verify the engine can act in the guild at all, resolve the
// implicit base role into the identifier map, and when the configuration
// demands it, snapshot the pre-run state into the store. Only then are the
// guild settings written.
func (e *Executor) applySettings(ctx context.Context, guildID string, p StepPayload, known IDMap, stats *RunStats) error {
	if p.Settings == nil {
		return remote.NewPermanentError("settings step has no payload", nil)
	}

	err := e.withRetry(ctx, "bot_member", stats, func(ctx context.Context) error {
		_, err := e.client.BotMember(ctx, guildID)
		return err
	})
	if err != nil {
		return fmt.Errorf("preflight: %w", err)
	}

	var roles []remote.Role
	err = e.withRetry(ctx, "list_roles", stats, func(ctx context.Context) error {
		var err error
		roles, err = e.client.ListRoles(ctx, guildID)
		return err
	})
	if err != nil {
		return fmt.Errorf("preflight: %w", err)
	}
	for _, r := range roles {
		if r.Name == remote.EveryoneRoleName {
			known[everyoneRoleKey] = r.ID
			break
		}
	}
	if _, ok := known[everyoneRoleKey]; !ok {
		e.log.WithGuildID(guildID).Warn("base role not found; read-only and staff-only overwrites will be incomplete")
	}

	if p.Safety.BackupRequired {
		if err := e.backupGuild(ctx, guildID, roles, stats); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}

	return e.withRetry(ctx, "update_guild_settings", stats, func(ctx context.Context) error {
		return e.client.UpdateGuildSettings(ctx, guildID, remote.GuildSettings{
			Name:                p.Settings.Name,
			VerificationTier:    p.Settings.VerificationTier,
			ContentFilterTier:   p.Settings.ContentFilterTier,
			NotificationDefault: p.Settings.NotificationDefault,
		})
	})
}

// backupGuild records the pre-run resource listing under backup/ keys so an
// operator can reconstruct what existed before the overhaul changed it. The
// snapshot is required to succeed: a run that demands a backup must not
// proceed without one.
func (e *Executor) backupGuild(ctx context.Context, guildID string, roles []remote.Role, stats *RunStats) error {
	if e.store == nil {
		return remote.NewPermanentError("backup required but no persistence store is configured", nil)
	}

	var (
		cats  []remote.Category
		chans []remote.Channel
	)
	err := e.withRetry(ctx, "list_channels", stats, func(ctx context.Context) error {
		var err error
		cats, chans, err = e.client.ListChannels(ctx, guildID)
		return err
	})
	if err != nil {
		return err
	}

	now := time.Now()
	save := func(key, kind, remoteID string) error {
		return e.store.SaveRemoteID(ctx, &stores.RemoteID{
			GuildID:   guildID,
			Key:       key,
			Kind:      kind,
			RemoteID:  remoteID,
			CreatedAt: now,
		})
	}
	for _, r := range roles {
		if err := save("backup/role/"+r.Name, "backup", r.ID); err != nil {
			return err
		}
	}
	catByID := make(map[string]string, len(cats))
	for _, c := range cats {
		catByID[c.ID] = c.Name
		if err := save("backup/category/"+c.Name, "backup", c.ID); err != nil {
			return err
		}
	}
	for _, ch := range chans {
		if err := save("backup/channel/"+catByID[ch.CategoryID]+"/"+ch.Name, "backup", ch.ID); err != nil {
			return err
		}
	}
	e.log.WithGuildID(guildID).
		WithField("roles", len(roles)).WithField("channels", len(chans)).
		Info("recorded pre-run backup snapshot")
	return nil
}

func (e *Executor) createRoles(ctx context.Context, guildID string, roles []RoleTemplate, known IDMap, result *RunResult) error {
	for _, rt := range roles {
		key := "role/" + rt.Name
		if _, ok := known[key]; ok {
			result.Stats.SkippedExisting++
			continue
		}
		var created *remote.Role
		err := e.withRetry(ctx, "create_role", &result.Stats, func(ctx context.Context) error {
			var err error
			created, err = e.client.CreateRole(ctx, guildID, remote.CreateRoleParams{
				Name:        rt.Name,
				Color:       rt.Color,
				Hoisted:     rt.Hoisted,
				Mentionable: rt.Mentionable,
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("creating role %q: %w", rt.Name, err)
		}
		known[key] = created.ID
		result.Stats.CreatedRoles++
		e.recordRemoteID(ctx, guildID, key, "role", created.ID)
	}
	return nil
}

// orderRoles applies the declared hierarchy: earlier templates get higher
// positions. Roles with no known identifier (removed remotely between
// steps) are left out rather than failing the step. With
// preserveStaffRoles set, protected roles keep whatever position they
// already hold.
func (e *Executor) orderRoles(ctx context.Context, guildID string, p StepPayload, known IDMap, stats *RunStats) error {
	roles := p.Roles
	positions := make([]remote.RolePosition, 0, len(roles))
	for i, rt := range roles {
		if p.Safety.PreserveStaffRoles && rt.Protected {
			continue
		}
		id, ok := known.RoleID(rt.Name)
		if !ok {
			continue
		}
		positions = append(positions, remote.RolePosition{
			RoleID:   id,
			Position: len(roles) - i,
		})
	}
	if len(positions) == 0 {
		return nil
	}
	return e.withRetry(ctx, "reorder_roles", stats, func(ctx context.Context) error {
		return e.client.ReorderRoles(ctx, guildID, positions)
	})
}

func (e *Executor) createStructure(ctx context.Context, guildID string, p StepPayload, known IDMap, result *RunResult) error {
	for ci, ct := range p.Categories {
		catKey := "category/" + ct.Name
		catID, ok := known[catKey]
		if ok {
			result.Stats.SkippedExisting++
		} else {
			var created *remote.Category
			err := e.withRetry(ctx, "create_category", &result.Stats, func(ctx context.Context) error {
				var err error
				created, err = e.client.CreateCategory(ctx, guildID, ct.Name, ci)
				return err
			})
			if err != nil {
				return fmt.Errorf("creating category %q: %w", ct.Name, err)
			}
			catID = created.ID
			known[catKey] = catID
			result.Stats.CreatedCategories++
			e.recordRemoteID(ctx, guildID, catKey, "category", catID)
		}

		for _, cht := range ct.Channels {
			chKey := "channel/" + ct.Name + "/" + cht.Name
			chID, ok := known[chKey]
			if ok {
				result.Stats.SkippedExisting++
			} else {
				var created *remote.Channel
				err := e.withRetry(ctx, "create_channel", &result.Stats, func(ctx context.Context) error {
					var err error
					created, err = e.client.CreateChannel(ctx, guildID, catID, cht.Name, cht.Kind)
					return err
				})
				if err != nil {
					return fmt.Errorf("creating channel %q in %q: %w", cht.Name, ct.Name, err)
				}
				chID = created.ID
				known[chKey] = chID
				result.Stats.CreatedChannels++
				e.recordRemoteID(ctx, guildID, chKey, "channel", chID)
			}

			overwrites := channelOverwrites(cht, p, known)
			if len(overwrites) == 0 {
				continue
			}
			err := e.withRetry(ctx, "set_channel_overwrites", &result.Stats, func(ctx context.Context) error {
				return e.client.SetChannelOverwrites(ctx, guildID, chID, overwrites)
			})
			if err != nil {
				return fmt.Errorf("setting overwrites on %q: %w", cht.Name, err)
			}
		}
	}
	return nil
}

// everyoneRoleKey addresses the implicit base role in the identifier map.
// It is resolved by the settings-step preflight before any structure work.
const everyoneRoleKey = "role/" + remote.EveryoneRoleName

// channelOverwrites translates a channel template's access rules into
// permission overwrites using the role identifiers created earlier.
func channelOverwrites(cht ChannelTemplate, p StepPayload, known IDMap) []remote.Overwrite {
	var out []remote.Overwrite

	everyoneID, hasEveryone := known[everyoneRoleKey]

	if cht.ReadOnly && hasEveryone {
		out = append(out, remote.Overwrite{
			RoleID: everyoneID,
			Allow:  remote.PermView | remote.PermAddReactions,
			Deny:   remote.PermSendMessages,
		})
	}

	if cht.MinimumTierToPost > 0 {
		if hasEveryone {
			out = append(out, remote.Overwrite{
				RoleID: everyoneID,
				Allow:  remote.PermView,
				Deny:   remote.PermSendMessages,
			})
		}
		// Tiers at or above the minimum (1-based) may post.
		for i, t := range p.Tiers {
			if i+1 < cht.MinimumTierToPost {
				continue
			}
			id, ok := known.RoleID(t.RoleName)
			if !ok {
				continue
			}
			out = append(out, remote.Overwrite{RoleID: id, Allow: remote.PermSendMessages})
		}
	}

	if cht.StaffOnly {
		if hasEveryone {
			out = append(out, remote.Overwrite{
				RoleID: everyoneID,
				Deny:   remote.PermView | remote.PermConnect,
			})
		}
		for _, rt := range p.Roles {
			if !rt.Protected {
				continue
			}
			id, ok := known.RoleID(rt.Name)
			if !ok {
				continue
			}
			allow := remote.PermView | remote.PermSendMessages
			if cht.Kind == remote.ChannelKindVoice {
				allow |= remote.PermConnect | remote.PermSpeak
			}
			out = append(out, remote.Overwrite{RoleID: id, Allow: allow})
		}
	}

	return mergeOverwrites(out)
}

// mergeOverwrites folds entries addressing the same role into one. Deny
// bits win over allow bits when the flags disagree.
func mergeOverwrites(in []remote.Overwrite) []remote.Overwrite {
	if len(in) < 2 {
		return in
	}
	idx := make(map[string]int, len(in))
	out := make([]remote.Overwrite, 0, len(in))
	for _, ow := range in {
		if j, ok := idx[ow.RoleID]; ok {
			out[j].Allow |= ow.Allow
			out[j].Deny |= ow.Deny
			continue
		}
		idx[ow.RoleID] = len(out)
		out = append(out, ow)
	}
	for i := range out {
		out[i].Allow &^= out[i].Deny
	}
	return out
}

func (e *Executor) setupLeveling(ctx context.Context, guildID string, p StepPayload, known IDMap) error {
	if e.store == nil {
		return remote.NewPermanentError("leveling setup requires a persistence store", nil)
	}
	rows := make([]stores.TierRow, 0, len(p.Tiers))
	for i, t := range p.Tiers {
		roleID, ok := known.RoleID(t.RoleName)
		if !ok {
			return remote.NewPermanentError(
				fmt.Sprintf("tier role %q was not created by an earlier step", t.RoleName), nil)
		}
		caps, err := json.Marshal(t.UnlockedCapabilities)
		if err != nil {
			return fmt.Errorf("encoding capabilities for tier %d: %w", i, err)
		}
		rows = append(rows, stores.TierRow{
			GuildID:      guildID,
			Idx:          i,
			Threshold:    t.Threshold,
			RoleName:     t.RoleName,
			RoleID:       roleID,
			Capabilities: string(caps),
		})
	}
	return e.store.ReplaceTiers(ctx, guildID, rows)
}

func (e *Executor) setupModule(ctx context.Context, guildID string, step *Step, known IDMap, stats *RunStats) error {
	h, ok := e.handlers[step.Payload.Feature]
	if !ok {
		return remote.NewPermanentError(
			fmt.Sprintf("no handler registered for feature %q", step.Payload.Feature), nil)
	}
	return h.Setup(ctx, guildID, known, step.Payload, stats)
}

// finalize verifies the applied structure against a fresh listing. Missing
// resources fail the run: a successful result must mean the guild matches
// the configuration.
func (e *Executor) finalize(ctx context.Context, guildID string, p StepPayload, stats *RunStats) error {
	var missing []string

	var roles []remote.Role
	err := e.withRetry(ctx, "list_roles", stats, func(ctx context.Context) error {
		var err error
		roles, err = e.client.ListRoles(ctx, guildID)
		return err
	})
	if err != nil {
		return fmt.Errorf("verifying roles: %w", err)
	}
	haveRole := make(map[string]bool, len(roles))
	for _, r := range roles {
		haveRole[r.Name] = true
	}
	for _, rt := range p.Roles {
		if !haveRole[rt.Name] {
			missing = append(missing, "role "+rt.Name)
		}
	}

	var (
		cats  []remote.Category
		chans []remote.Channel
	)
	err = e.withRetry(ctx, "list_channels", stats, func(ctx context.Context) error {
		var err error
		cats, chans, err = e.client.ListChannels(ctx, guildID)
		return err
	})
	if err != nil {
		return fmt.Errorf("verifying channels: %w", err)
	}
	haveCat := make(map[string]bool, len(cats))
	for _, c := range cats {
		haveCat[c.Name] = true
	}
	haveChan := make(map[string]bool, len(chans))
	for _, c := range chans {
		haveChan[c.Name] = true
	}
	for _, ct := range p.Categories {
		if !haveCat[ct.Name] {
			missing = append(missing, "category "+ct.Name)
		}
		for _, cht := range ct.Channels {
			if !haveChan[cht.Name] {
				missing = append(missing, "channel "+cht.Name)
			}
		}
	}

	if len(missing) > 0 {
		return remote.NewPermanentError(
			fmt.Sprintf("verification found %d missing resources: %v", len(missing), missing), nil)
	}
	return nil
}

func (e *Executor) recordRemoteID(ctx context.Context, guildID, key, kind, remoteID string) {
	if e.store == nil {
		return
	}
	err := e.store.SaveRemoteID(ctx, &stores.RemoteID{
		GuildID:   guildID,
		Key:       key,
		Kind:      kind,
		RemoteID:  remoteID,
		CreatedAt: time.Now(),
	})
	if err != nil {
		// Losing a recorded identifier only costs a repair-pass listing.
		e.log.WithGuildID(guildID).WithError(err).WithField("key", key).
			Warn("failed to record remote identifier")
	}
}

// withRetry invokes fn with capped exponential backoff on transient
// failures. Rate-limit errors that carry a wait duration sleep at least
// that long. Permanent errors return immediately.
func (e *Executor) withRetry(ctx context.Context, operation string, stats *RunStats, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < e.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := e.opts.BaseBackoff << (attempt - 1)
			if backoff > e.opts.MaxBackoff {
				backoff = e.opts.MaxBackoff
			}
			if wait := remote.RetryAfter(lastErr); wait > backoff {
				backoff = wait
			}
			stats.RetriedCalls++
			e.metrics.StepRetried(operation)
			e.log.WithField("operation", operation).WithField("attempt", attempt+1).
				WithField("backoff", backoff.String()).Debug("retrying after transient failure")
			e.sleep(ctx, backoff)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !remote.IsRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operation, e.opts.MaxAttempts, lastErr)
}
