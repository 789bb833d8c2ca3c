// internal/router/router.go
// Package router maps gateway events onto the interview engine and the
// decision workflow. It is the outermost handler boundary: panics stop here
// and every interaction gets an acknowledgement.
package router

import (
	"context"
	"strings"
	"time"

	"gatekeeper/internal/chat"
	apperrors "gatekeeper/internal/common/errors"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/common/metrics"
	"gatekeeper/internal/common/observability"
	"gatekeeper/internal/decision"
	"gatekeeper/internal/interview"
	"gatekeeper/internal/models"
	"gatekeeper/internal/store"
)

// Control and prompt customID prefixes. The application ID rides in the
// customID so button presses and note submissions need no session state.
const (
	idStart        = "wl:start"
	prefixDecision = "wl:decision:"
	prefixReject   = "wl:reject_reason:"
	prefixAdjust   = "wl:adjust_note:"
)

type Router struct {
	engine      *interview.Engine
	workflow    *decision.Workflow
	communities store.CommunityStore
	roles       chat.RoleManager
	responder   chat.Responder
	obs         *observability.Observability
	logger      logger.Logger
}

func New(
	engine *interview.Engine,
	workflow *decision.Workflow,
	communities store.CommunityStore,
	roles chat.RoleManager,
	responder chat.Responder,
	obs *observability.Observability,
	log logger.Logger,
) *Router {
	return &Router{
		engine:      engine,
		workflow:    workflow,
		communities: communities,
		roles:       roles,
		responder:   responder,
		obs:         obs,
		logger:      log.WithFields(map[string]interface{}{"component": "router"}),
	}
}

// HandleInteraction routes one button press or note submission.
func (r *Router) HandleInteraction(ctx context.Context, ev chat.InteractionEvent) {
	route := routeOf(ev.CustomID)
	start := time.Now()
	defer func() {
		metrics.EventDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		r.obs.RecordEventDuration(ctx, time.Since(start), route)
		if rec := recover(); rec != nil {
			r.logger.Error("panic handling interaction", map[string]interface{}{
				"customId": ev.CustomID,
				"panic":    rec,
			})
			r.apologize(ctx, ev)
		}
	}()

	var err error
	switch {
	case ev.CustomID == idStart:
		err = r.engine.Start(ctx, ev.CommunityID, ev.UserID, ev.UserDisplay)
		if err == nil {
			err = r.responder.Reply(ctx, ev.InteractionID, "Your interview has started. Check your thread or DMs.")
		}

	case strings.HasPrefix(ev.CustomID, prefixDecision):
		err = r.routeDecisionButton(ctx, ev)

	case strings.HasPrefix(ev.CustomID, prefixReject):
		err = r.routeNote(ctx, decision.ActionReject, strings.TrimPrefix(ev.CustomID, prefixReject), ev)

	case strings.HasPrefix(ev.CustomID, prefixAdjust):
		err = r.routeNote(ctx, decision.ActionAdjust, strings.TrimPrefix(ev.CustomID, prefixAdjust), ev)

	default:
		r.logger.Debug("unrouted interaction", map[string]interface{}{"customId": ev.CustomID})
		r.obs.RecordEvent(ctx, route, "unrouted")
		return
	}

	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeSurfaceUnavailable) {
			// Not an internal failure: the applicant has to act before a
			// surface can open, so relay the instruction instead of apologising.
			r.obs.RecordEvent(ctx, route, "surface_unavailable")
			r.logger.Warn("no surface for applicant", map[string]interface{}{
				"userId": ev.UserID,
				"error":  err,
			})
			r.reply(ctx, ev, surfaceInstruction(err))
			return
		}
		r.obs.RecordEvent(ctx, route, "error")
		r.logger.Error("interaction failed", map[string]interface{}{
			"customId": ev.CustomID,
			"userId":   ev.UserID,
			"error":    err,
		})
		r.apologize(ctx, ev)
		return
	}
	r.obs.RecordEvent(ctx, route, "success")
}

// HandleMessage routes one inbound channel or DM message.
func (r *Router) HandleMessage(ctx context.Context, ev chat.MessageEvent) {
	start := time.Now()
	defer func() {
		metrics.EventDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			r.logger.Error("panic handling message", map[string]interface{}{
				"channelId": ev.ChannelID,
				"panic":     rec,
			})
		}
	}()

	if err := r.engine.SubmitAnswer(ctx, ev); err != nil {
		r.logger.Error("message handling failed", map[string]interface{}{
			"channelId": ev.ChannelID,
			"userId":    ev.UserID,
			"error":     err,
		})
	}
}

func (r *Router) routeDecisionButton(ctx context.Context, ev chat.InteractionEvent) error {
	rest := strings.TrimPrefix(ev.CustomID, prefixDecision)
	action, applicationID, ok := strings.Cut(rest, ":")
	if !ok {
		r.logger.Warn("malformed decision customId", map[string]interface{}{"customId": ev.CustomID})
		return nil
	}

	allowed, err := r.isStaff(ctx, ev)
	if err != nil {
		return err
	}
	if !allowed {
		return r.responder.Reply(ctx, ev.InteractionID, "Only staff can decide applications.")
	}
	return r.workflow.HandleButton(ctx, decision.Action(action), applicationID, ev)
}

func (r *Router) routeNote(ctx context.Context, action decision.Action, applicationID string, ev chat.InteractionEvent) error {
	allowed, err := r.isStaff(ctx, ev)
	if err != nil {
		return err
	}
	if !allowed {
		return r.responder.Reply(ctx, ev.InteractionID, "Only staff can decide applications.")
	}
	return r.workflow.HandleNote(ctx, action, applicationID, ev)
}

// isStaff gates decision routes on the community staff role. A community
// with no staff role bound has no gate.
func (r *Router) isStaff(ctx context.Context, ev chat.InteractionEvent) (bool, error) {
	cfg, err := r.communities.Get(ctx, ev.CommunityID)
	if err == store.ErrNotFound {
		cfg = &models.CommunityConfig{}
	} else if err != nil {
		return false, err
	}
	if cfg.StaffRoleID == "" {
		return true, nil
	}
	return r.roles.MemberHasRole(ctx, ev.CommunityID, ev.UserID, cfg.StaffRoleID)
}

func (r *Router) apologize(ctx context.Context, ev chat.InteractionEvent) {
	r.reply(ctx, ev, "Something went wrong handling that. Please try again, or contact staff if it keeps happening.")
}

func (r *Router) reply(ctx context.Context, ev chat.InteractionEvent, content string) {
	if err := r.responder.Reply(ctx, ev.InteractionID, content); err != nil {
		r.logger.Warn("failed to send reply", map[string]interface{}{"error": err})
	}
}

// surfaceInstruction extracts the applicant-facing instruction from a
// SURFACE_UNAVAILABLE error.
func surfaceInstruction(err error) string {
	if se, ok := err.(*apperrors.StandardError); ok && se.Details != "" {
		return se.Details
	}
	return "We couldn't open an interview thread or send you a direct message. Ask staff for access, then press Start again."
}

func routeOf(customID string) string {
	switch {
	case customID == idStart:
		return "interview.start"
	case strings.HasPrefix(customID, prefixDecision):
		return "decision.button"
	case strings.HasPrefix(customID, prefixReject), strings.HasPrefix(customID, prefixAdjust):
		return "decision.note"
	default:
		return "unknown"
	}
}
