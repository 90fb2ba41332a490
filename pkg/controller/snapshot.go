package controller

import (
	"context"
	"errors"
	"time"

	"mercator-hq/cwlens/pkg/journal"
	"mercator-hq/cwlens/pkg/limit"
	"mercator-hq/cwlens/pkg/reconcile"
	"mercator-hq/cwlens/pkg/session"
	"mercator-hq/cwlens/pkg/telemetry/logging"
	"mercator-hq/cwlens/pkg/telemetry/tracing"
	"mercator-hq/cwlens/pkg/upstream"
	"mercator-hq/cwlens/pkg/window"
)

// HandleEvent applies a pushed snapshot. It matches upstream.Handler.
// Pushes must name their session; unscoped ones are discarded.
func (c *Controller) HandleEvent(ctx context.Context, ev upstream.Event) {
	if ev.SessionID == "" {
		c.metrics.RecordStaleDiscarded("snapshot")
		c.logger.WarnContext(ctx, "discarding pushed snapshot without session id")
		return
	}
	if _, err := c.HandleSnapshot(ctx, ev.SessionID, ev.Snapshot); err != nil {
		c.logger.DebugContext(ctx, "snapshot not applied", "session", ev.SessionID, "error", err)
	}
}

// HandleSnapshot applies snap to the active session. An empty sessionID
// addresses the active session; only local callers such as the control
// endpoint use that. Snapshots are last-write-wins: one with
// a lower turn number than the current one is still applied, and counted.
func (c *Controller) HandleSnapshot(ctx context.Context, sessionID string, snap *window.Snapshot) (*Status, error) {
	if snap == nil {
		return nil, errors.New("snapshot cannot be nil")
	}
	ctx, span := c.tracer.Start(ctx, "controller.snapshot")
	defer span.End()

	c.mu.Lock()
	active := c.cache.SessionID()
	if active == "" {
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	if sessionID != "" && sessionID != active {
		c.mu.Unlock()
		tracing.MarkStale(span)
		c.metrics.RecordStaleDiscarded("snapshot")
		return nil, ErrSessionMismatch
	}
	outOfOrder, err := c.cache.ApplySnapshot(snap)
	profileID := c.cache.Tag().ProfileID
	c.mu.Unlock()

	ctx = logging.WithSession(ctx, active)
	tracing.SetSessionAttributes(span, active, profileID)
	if err != nil {
		tracing.SetError(span, err)
		return nil, err
	}

	c.metrics.RecordSnapshot(outOfOrder)
	if outOfOrder {
		c.logger.WarnContext(ctx, "snapshot turn number went backwards", "turn", snap.TurnNumber)
	}

	if c.journal != nil {
		e := &journal.Entry{
			SessionID:  active,
			ProfileID:  profileID,
			TurnNumber: snap.TurnNumber,
			OutOfOrder: outOfOrder,
			RecordedAt: c.now(),
			Snapshot:   snap,
		}
		if err := c.journal.Append(ctx, e); err != nil {
			c.logger.ErrorContext(ctx, "failed to journal snapshot", "turn", snap.TurnNumber, "error", err)
		}
	}

	return c.publish(ctx), nil
}

// SetSessionLimit writes the session's context limit override, snapped to
// the slider step and range. A nil tokens clears the override.
func (c *Controller) SetSessionLimit(ctx context.Context, tokens *int) (*Status, error) {
	c.mu.Lock()
	entry := c.cache.Entry()
	tag := c.cache.Tag()
	c.mu.Unlock()

	if entry.SessionID == "" {
		return nil, ErrNoSession
	}
	if entry.State == session.StateEmpty {
		return nil, session.ErrNotConfigured
	}
	ctx = logging.WithSession(ctx, entry.SessionID)
	ctx, span := c.tracer.Start(ctx, "controller.set_session_limit")
	defer span.End()

	var value *int
	if tokens != nil {
		var profileOverride *int
		if entry.Profile != nil {
			profileOverride = entry.Profile.ContextLimitOverride
		}
		lim := limit.Resolve(entry.ModelLimit, profileOverride, nil)
		snapped := limit.SnapToStep(*tokens, lim)
		value = &snapped
		tracing.SetLimitAttributes(span, snapped, string(limit.SourceSession))
	}

	if c.limits != nil {
		if err := c.limits.SetSessionOverride(ctx, entry.SessionID, value); err != nil {
			tracing.SetError(span, err)
			return nil, err
		}
	}

	c.mu.Lock()
	if !c.cache.IsCurrent(tag) {
		c.mu.Unlock()
		return nil, c.stale(ctx, "session_limit")
	}
	c.cache.SetSessionOverride(value)
	c.mu.Unlock()

	if value != nil {
		c.logger.InfoContext(ctx, "session limit set", "requested", *tokens, "tokens", *value)
	} else {
		c.logger.InfoContext(ctx, "session limit cleared")
	}
	return c.publish(ctx), nil
}

// publish reconciles the cache, stores the result, and fans it out.
// Publishes are serialised so subscribers never see an older status after
// a newer one.
func (c *Controller) publish(ctx context.Context) *Status {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	entry := c.cache.Entry()
	st := &Status{
		SessionID: entry.SessionID,
		ProfileID: c.cache.Tag().ProfileID,
		State:     entry.State.String(),
		Guidance:  c.guidance,
		Profiles:  c.profiles,
		UpdatedAt: c.now(),
	}
	c.mu.Unlock()

	if st.Guidance == "" && entry.State != session.StateEmpty {
		st.View = c.buildView(ctx, entry)
	}

	c.status = st
	for _, ch := range c.subs {
		offer(ch, st)
	}
	return st
}

func (c *Controller) buildView(ctx context.Context, entry session.Entry) *reconcile.View {
	_, span := c.tracer.Start(ctx, "controller.reconcile")
	defer span.End()

	start := time.Now()
	view := reconcile.Reconcile(reconcile.Input{
		Window:          entry.Window,
		Profile:         entry.Profile,
		Snapshot:        entry.Snapshot,
		ModelLimit:      entry.ModelLimit,
		SessionOverride: entry.SessionOverride,
	})
	c.metrics.RecordReconcile(entry.Snapshot != nil, time.Since(start))
	c.metrics.SetEffectiveLimit(view.Limit.Tokens, string(view.Limit.Source))
	tracing.SetLimitAttributes(span, view.Limit.Tokens, string(view.Limit.Source))

	util := make(map[string]float64, len(view.Modules))
	for _, m := range view.Modules {
		if m.Usage != nil {
			util[m.ID] = m.Usage.UtilPct
		}
	}
	c.metrics.SetModuleUtilization(util)
	return view
}

// Subscribe returns a channel receiving every published status, starting
// with the current one. Slow subscribers only see the latest status.
// The returned function unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan *Status, func()) {
	ch := make(chan *Status, 1)

	c.pubMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	ch <- c.status
	c.pubMu.Unlock()

	var once bool
	return ch, func() {
		c.pubMu.Lock()
		defer c.pubMu.Unlock()
		if once {
			return
		}
		once = true
		delete(c.subs, id)
		close(ch)
	}
}

// offer replaces any undelivered status with st.
func offer(ch chan *Status, st *Status) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}
