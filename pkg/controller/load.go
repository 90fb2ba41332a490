package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/cwlens/pkg/catalog"
	"mercator-hq/cwlens/pkg/session"
	"mercator-hq/cwlens/pkg/telemetry/logging"
	"mercator-hq/cwlens/pkg/telemetry/tracing"
	"mercator-hq/cwlens/pkg/upstream"
	"mercator-hq/cwlens/pkg/window"
)

// Degrade reasons used in metrics.
const (
	reasonProfilesUnavailable   = "profiles_unavailable"
	reasonNoProfiles            = "no_profiles"
	reasonProfileNotFound       = "profile_not_found"
	reasonNoWindowType          = "no_window_type"
	reasonWindowTypeUnavailable = "window_type_unavailable"
)

// SwitchSession makes sessionID the active session and loads profileID,
// or the default profile when profileID is empty. Everything cached for
// the previous session is dropped.
func (c *Controller) SwitchSession(ctx context.Context, sessionID, profileID string) (*Status, error) {
	c.mu.Lock()
	tag := c.cache.ResetSession(sessionID)
	if profileID != "" {
		tag = c.cache.BeginProfile(profileID)
	}
	c.guidance = ""
	c.mu.Unlock()
	c.publish(ctx)

	c.logger.InfoContext(ctx, "session switched", "session", sessionID, "profile", profileID)
	return c.load(ctx, tag, profileID, false)
}

// SelectProfile loads profileID for the active session.
func (c *Controller) SelectProfile(ctx context.Context, profileID string) (*Status, error) {
	c.mu.Lock()
	if c.cache.SessionID() == "" {
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	tag := c.cache.BeginProfile(profileID)
	c.mu.Unlock()

	return c.load(ctx, tag, profileID, false)
}

// Refresh reloads the active session's configuration, keeping the applied
// snapshot. It is used when the configuration source changes underneath.
// Snapshots applied while the reload is in flight are kept as well.
func (c *Controller) Refresh(ctx context.Context) (*Status, error) {
	c.mu.Lock()
	if c.cache.SessionID() == "" {
		c.mu.Unlock()
		return c.Status(), nil
	}
	profileID := c.cache.Tag().ProfileID
	tag := c.cache.BeginProfile(profileID)
	c.mu.Unlock()

	return c.load(ctx, tag, profileID, true)
}

type loadResult struct {
	wt         *window.Type
	wtErr      error
	modelLimit int
	override   *int
}

// load fetches everything for profileID under tag. With keepSnapshot the
// snapshot cached at the moment the configuration is stored is re-applied.
func (c *Controller) load(ctx context.Context, tag session.Tag, profileID string, keepSnapshot bool) (*Status, error) {
	ctx = logging.WithSession(ctx, tag.SessionID)
	ctx, span := c.tracer.Start(ctx, "controller.load")
	defer span.End()
	tracing.SetSessionAttributes(span, tag.SessionID, profileID)

	profiles, err := c.config.Profiles(ctx)
	if err != nil {
		return c.degrade(ctx, tag, reasonProfilesUnavailable, fmt.Sprintf("profiles unavailable: %v", err), nil)
	}
	refs := profileRefs(profiles)
	if len(profiles) == 0 {
		return c.degrade(ctx, tag, reasonNoProfiles, "no profiles available", refs)
	}

	profile, ok := selectProfile(profiles, profileID)
	if !ok {
		return c.degrade(ctx, tag, reasonProfileNotFound, fmt.Sprintf("profile %q not found", profileID), refs)
	}
	ctx = logging.WithProfile(ctx, profile.ID)
	if profile.WindowTypeID == "" {
		return c.degrade(ctx, tag, reasonNoWindowType,
			fmt.Sprintf("no window type bound to profile %s", displayName(profile)), refs)
	}

	res := c.fetch(ctx, tag.SessionID, profile)

	if res.wtErr != nil {
		msg := fmt.Sprintf("window type %q unavailable: %v", profile.WindowTypeID, res.wtErr)
		if upstream.IsNotFound(res.wtErr) || errors.Is(res.wtErr, catalog.ErrNotFound) {
			msg = fmt.Sprintf("window type %q bound to profile %s does not exist", profile.WindowTypeID, displayName(profile))
		}
		return c.degrade(ctx, tag, reasonWindowTypeUnavailable, msg, refs)
	}

	c.mu.Lock()
	if !c.cache.IsCurrent(tag) {
		c.mu.Unlock()
		return nil, c.stale(ctx, "config")
	}
	var keep *window.Snapshot
	if keepSnapshot {
		keep = c.cache.Entry().Snapshot
	}
	c.cache.LoadConfig(&profile, res.wt, res.modelLimit)
	c.cache.SetSessionOverride(res.override)
	if keep != nil {
		_, _ = c.cache.ApplySnapshot(keep)
	}
	c.guidance = ""
	c.profiles = refs
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "configuration loaded",
		"window_type", profile.WindowTypeID,
		"model_limit", res.modelLimit,
	)
	return c.publish(ctx), nil
}

// fetch performs the window type, capability, and override reads
// concurrently.
func (c *Controller) fetch(ctx context.Context, sessionID string, profile window.Profile) loadResult {
	res := loadResult{modelLimit: c.fallback}
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		res.wt, res.wtErr = c.config.WindowType(ctx, profile.WindowTypeID)
	}()

	if c.limits != nil && profile.LLMConfigurationID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			capability, err := c.limits.ModelLimit(ctx, profile.LLMConfigurationID)
			switch {
			case err != nil:
				c.logger.WarnContext(ctx, "model capability unavailable, using fallback limit",
					"llm_configuration", profile.LLMConfigurationID,
					"fallback", c.fallback,
					"error", err,
				)
				c.metrics.RecordCapabilityFallback()
			case capability.MaxContextTokens <= 0:
				c.logger.WarnContext(ctx, "model capability has no context limit, using fallback limit",
					"llm_configuration", profile.LLMConfigurationID,
					"model", capability.Model,
					"fallback", c.fallback,
				)
				c.metrics.RecordCapabilityFallback()
			default:
				res.modelLimit = capability.MaxContextTokens
			}
		}()
	}

	if c.limits != nil && sessionID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			override, err := c.limits.SessionOverride(ctx, sessionID)
			if err != nil {
				c.logger.WarnContext(ctx, "session override unavailable, assuming none", "error", err)
				return
			}
			res.override = override
		}()
	}

	wg.Wait()
	return res
}

// degrade publishes a guidance status unless tag is stale.
func (c *Controller) degrade(ctx context.Context, tag session.Tag, reason, guidance string, refs []ProfileRef) (*Status, error) {
	c.mu.Lock()
	if !c.cache.IsCurrent(tag) {
		c.mu.Unlock()
		return nil, c.stale(ctx, "config")
	}
	c.guidance = guidance
	c.profiles = refs
	c.mu.Unlock()

	c.metrics.RecordDegraded(reason)
	c.logger.WarnContext(ctx, "configuration unavailable", "reason", reason, "guidance", guidance)
	return c.publish(ctx), nil
}

func (c *Controller) stale(ctx context.Context, kind string) error {
	tracing.MarkStale(trace.SpanFromContext(ctx))
	c.metrics.RecordStaleDiscarded(kind)
	c.logger.DebugContext(ctx, "discarding stale response", "kind", kind)
	return ErrStale
}

// selectProfile returns the requested profile, or the default (first
// when none is marked) when id is empty.
func selectProfile(profiles []window.Profile, id string) (window.Profile, bool) {
	if id != "" {
		for _, p := range profiles {
			if p.ID == id {
				return p, true
			}
		}
		return window.Profile{}, false
	}
	for _, p := range profiles {
		if p.IsDefault {
			return p, true
		}
	}
	return profiles[0], true
}

func profileRefs(profiles []window.Profile) []ProfileRef {
	refs := make([]ProfileRef, len(profiles))
	for i, p := range profiles {
		refs[i] = ProfileRef{ID: p.ID, Name: p.Name, IsDefault: p.IsDefault}
	}
	return refs
}

func displayName(p window.Profile) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}
