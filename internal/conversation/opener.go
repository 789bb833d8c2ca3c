// internal/conversation/opener.go
package conversation

import (
	"context"
	"fmt"

	"gatekeeper/internal/chat"
	apperrors "gatekeeper/internal/common/errors"
	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/models"
)

// Opener picks the surface an interview runs on: a private thread under the
// community's interview channel, falling back to a direct-message channel
// when threads are unavailable.
type Opener struct {
	surfaces chat.SurfaceManager
	dms      chat.DirectMessenger
	logger   logger.Logger
}

func NewOpener(surfaces chat.SurfaceManager, dms chat.DirectMessenger, log logger.Logger) *Opener {
	return &Opener{
		surfaces: surfaces,
		dms:      dms,
		logger:   log.WithFields(map[string]interface{}{"component": "conversation"}),
	}
}

// Both surfaces failing is a SURFACE_UNAVAILABLE error; the Details field
// carries the instruction shown to the applicant.
const surfaceUnavailableHint = "Enable direct messages from community members, or ask staff for access to the interview channel, then press Start again."

// Open returns the surface the interview will run on. When both surfaces
// fail the attempt record stays IN_PROGRESS and the next start supersedes it.
func (o *Opener) Open(ctx context.Context, cfg *models.CommunityConfig, applicantID, displayName string) (models.ConversationRef, error) {
	if cfg.InterviewChannelID != "" {
		name := fmt.Sprintf("whitelist-%s", displayName)
		threadID, err := o.surfaces.CreateThread(ctx, cfg.InterviewChannelID, name, applicantID)
		if err == nil {
			return models.ConversationRef{Kind: models.SurfaceThread, ChannelID: threadID}, nil
		}
		o.logger.Warn("thread creation failed, falling back to DM", map[string]interface{}{
			"communityId": cfg.CommunityID,
			"applicantId": applicantID,
			"error":       err,
		})
	}

	dmChannelID, err := o.dms.OpenDM(ctx, applicantID)
	if err != nil {
		o.logger.Error("no interview surface", map[string]interface{}{
			"communityId": cfg.CommunityID,
			"applicantId": applicantID,
			"error":       err,
		})
		return models.ConversationRef{}, apperrors.NewSurfaceUnavailableError(surfaceUnavailableHint)
	}
	return models.ConversationRef{Kind: models.SurfaceDirect, ChannelID: dmChannelID}, nil
}

// Close archives a finished interview surface. Best effort: DM channels have
// nothing to lock, and a failed lock never blocks the decision.
func (o *Opener) Close(ctx context.Context, ref *models.ConversationRef, reason string) {
	if ref == nil || ref.Kind != models.SurfaceThread {
		return
	}
	if err := o.surfaces.LockThread(ctx, ref.ChannelID, reason); err != nil {
		o.logger.Warn("failed to lock interview thread", map[string]interface{}{
			"threadId": ref.ChannelID,
			"error":    err,
		})
	}
}
