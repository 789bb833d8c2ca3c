// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/models"
)

// PostgresStore implements ApplicationStore and CommunityStore on PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

const applicationColumns = `
	id, community_id, applicant_id, applicant_display_name, status,
	current_step, answers, player_id, conversation_kind, conversation_channel_id,
	card_channel_id, card_message_id, created_at, submitted_at, decided_at,
	decided_by_id, decided_by_name, decision_note`

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	answersJSON, err := app.Answers.Marshal()
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	var convKind, convChannel sql.NullString
	if app.Conversation != nil {
		convKind = sql.NullString{String: string(app.Conversation.Kind), Valid: true}
		convChannel = sql.NullString{String: app.Conversation.ChannelID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO whitelist_applications (
			id, community_id, applicant_id, applicant_display_name, status,
			current_step, answers, conversation_kind, conversation_channel_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		app.ID,
		app.CommunityID,
		app.ApplicantID,
		app.ApplicantDisplayName,
		string(app.Status),
		app.CurrentStep,
		answersJSON,
		convKind,
		convChannel,
		app.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}

	s.audit(ctx, "application_created", app.ID, map[string]interface{}{
		"communityId": app.CommunityID,
		"applicantId": app.ApplicantID,
	})
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+applicationColumns+`
		FROM whitelist_applications WHERE id = $1`, id)
	return scanApplication(row)
}

func (s *PostgresStore) FindActive(ctx context.Context, communityID, applicantID string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+applicationColumns+`
		FROM whitelist_applications
		WHERE community_id = $1 AND applicant_id = $2 AND status IN ('IN_PROGRESS', 'SUBMITTED')
		ORDER BY created_at DESC
		LIMIT 1`, communityID, applicantID)
	return scanApplication(row)
}

func (s *PostgresStore) FindByConversation(ctx context.Context, channelID, applicantID string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+applicationColumns+`
		FROM whitelist_applications
		WHERE conversation_channel_id = $1 AND applicant_id = $2 AND status = 'IN_PROGRESS'
		ORDER BY created_at DESC
		LIMIT 1`, channelID, applicantID)
	return scanApplication(row)
}

func (s *PostgresStore) ExpireActive(ctx context.Context, communityID, applicantID, note string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE whitelist_applications
		SET status = 'EXPIRED', decision_note = $3, decided_at = $4, updated_at = $4
		WHERE community_id = $1 AND applicant_id = $2 AND status IN ('IN_PROGRESS', 'SUBMITTED')`,
		communityID, applicantID, note, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire active applications: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.audit(ctx, "applications_expired", "", map[string]interface{}{
			"communityId": communityID,
			"applicantId": applicantID,
			"count":       n,
		})
	}
	return int(n), nil
}

func (s *PostgresStore) BindConversation(ctx context.Context, id string, ref models.ConversationRef) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE whitelist_applications
		SET conversation_kind = $2, conversation_channel_id = $3, updated_at = $4
		WHERE id = $1`,
		id, string(ref.Kind), ref.ChannelID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bind conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendAnswer(ctx context.Context, id string, expectStep int, key, value, playerID string, complete bool) error {
	pair, err := json.Marshal([]models.AnswerPair{{Key: key, Value: value}})
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE whitelist_applications
		SET answers = answers || $2::jsonb,
		    current_step = current_step + 1,
		    player_id = COALESCE(NULLIF($3, ''), player_id),
		    status = CASE WHEN $4 THEN 'SUBMITTED' ELSE status END,
		    submitted_at = CASE WHEN $4 THEN $5 ELSE submitted_at END,
		    updated_at = $5
		WHERE id = $1 AND status = 'IN_PROGRESS' AND current_step = $6`,
		id, pair, playerID, complete, now, expectStep)
	if err != nil {
		return fmt.Errorf("append answer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleStep
	}

	if complete {
		s.audit(ctx, "application_submitted", id, nil)
	}
	return nil
}

func (s *PostgresStore) SetReviewCard(ctx context.Context, id string, channelID, messageID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE whitelist_applications
		SET card_channel_id = $2, card_message_id = $3, updated_at = $4
		WHERE id = $1`,
		id, channelID, messageID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set review card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Decide(ctx context.Context, id string, status models.Status, by models.DecidedBy, note string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE whitelist_applications
		SET status = $2, decided_at = $3, decided_by_id = $4, decided_by_name = $5,
		    decision_note = NULLIF($6, ''), updated_at = $3
		WHERE id = $1 AND status = 'SUBMITTED'`,
		id, string(status), now, by.ID, by.DisplayName, note)
	if err != nil {
		return fmt.Errorf("decide application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM whitelist_applications WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("decide application: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrAlreadyDecided
	}

	s.audit(ctx, "application_decided", id, map[string]interface{}{
		"status":    string(status),
		"decidedBy": by.ID,
	})
	return nil
}

func (s *PostgresStore) ExpireStale(ctx context.Context, olderThan time.Time, note string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE whitelist_applications
		SET status = 'EXPIRED', decision_note = $2, decided_at = $3, updated_at = $3
		WHERE status = 'IN_PROGRESS' AND updated_at < $1`,
		olderThan.UTC(), note, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire stale applications: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// audit writes a non-critical lifecycle row. Failures are logged, never fatal.
func (s *PostgresStore) audit(ctx context.Context, eventType, applicationID string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, application_id, details, created_at)
		VALUES ($1, $2, $3, $4)`,
		eventType, applicationID, detailsJSON, time.Now().UTC())
	if err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":     err,
			"eventType": eventType,
		})
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app           models.Application
		status        string
		answersRaw    []byte
		playerID      sql.NullString
		convKind      sql.NullString
		convChannel   sql.NullString
		cardChannel   sql.NullString
		cardMessage   sql.NullString
		submittedAt   sql.NullTime
		decidedAt     sql.NullTime
		decidedByID   sql.NullString
		decidedByName sql.NullString
		decisionNote  sql.NullString
	)

	err := row.Scan(
		&app.ID, &app.CommunityID, &app.ApplicantID, &app.ApplicantDisplayName, &status,
		&app.CurrentStep, &answersRaw, &playerID, &convKind, &convChannel,
		&cardChannel, &cardMessage, &app.CreatedAt, &submittedAt, &decidedAt,
		&decidedByID, &decidedByName, &decisionNote,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}

	app.Status = models.Status(status)
	app.Answers, err = models.UnmarshalAnswers(answersRaw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	app.PlayerID = playerID.String
	if convKind.Valid && convChannel.Valid {
		app.Conversation = &models.ConversationRef{
			Kind:      models.SurfaceKind(convKind.String),
			ChannelID: convChannel.String,
		}
	}
	app.CardChannelID = cardChannel.String
	app.CardMessageID = cardMessage.String
	if submittedAt.Valid {
		t := submittedAt.Time
		app.SubmittedAt = &t
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		app.DecidedAt = &t
	}
	if decidedByID.Valid {
		app.DecidedBy = &models.DecidedBy{ID: decidedByID.String, DisplayName: decidedByName.String}
	}
	app.DecisionNote = decisionNote.String

	return &app, nil
}

// PostgresCommunityStore implements CommunityStore on PostgreSQL.
type PostgresCommunityStore struct {
	db *sql.DB
}

func NewPostgresCommunityStore(db *sql.DB) *PostgresCommunityStore {
	return &PostgresCommunityStore{db: db}
}

func (s *PostgresCommunityStore) Get(ctx context.Context, communityID string) (*models.CommunityConfig, error) {
	var cfg models.CommunityConfig
	var panel, interview, staff, rejectLog, staffRole, pending, approved, rejected sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT community_id, panel_channel_id, interview_channel_id, staff_channel_id,
		       reject_log_channel_id, staff_role_id, pending_role_id, approved_role_id,
		       rejected_role_id
		FROM community_configs WHERE community_id = $1`, communityID).Scan(
		&cfg.CommunityID, &panel, &interview, &staff, &rejectLog,
		&staffRole, &pending, &approved, &rejected,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get community config: %w", err)
	}

	cfg.PanelChannelID = panel.String
	cfg.InterviewChannelID = interview.String
	cfg.StaffChannelID = staff.String
	cfg.RejectLogChannelID = rejectLog.String
	cfg.StaffRoleID = staffRole.String
	cfg.PendingRoleID = pending.String
	cfg.ApprovedRoleID = approved.String
	cfg.RejectedRoleID = rejected.String
	return &cfg, nil
}

func (s *PostgresCommunityStore) Save(ctx context.Context, cfg *models.CommunityConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO community_configs (
			community_id, panel_channel_id, interview_channel_id, staff_channel_id,
			reject_log_channel_id, staff_role_id, pending_role_id, approved_role_id,
			rejected_role_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (community_id) DO UPDATE SET
			panel_channel_id = EXCLUDED.panel_channel_id,
			interview_channel_id = EXCLUDED.interview_channel_id,
			staff_channel_id = EXCLUDED.staff_channel_id,
			reject_log_channel_id = EXCLUDED.reject_log_channel_id,
			staff_role_id = EXCLUDED.staff_role_id,
			pending_role_id = EXCLUDED.pending_role_id,
			approved_role_id = EXCLUDED.approved_role_id,
			rejected_role_id = EXCLUDED.rejected_role_id,
			updated_at = EXCLUDED.updated_at`,
		cfg.CommunityID, cfg.PanelChannelID, cfg.InterviewChannelID, cfg.StaffChannelID,
		cfg.RejectLogChannelID, cfg.StaffRoleID, cfg.PendingRoleID, cfg.ApprovedRoleID,
		cfg.RejectedRoleID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save community config: %w", err)
	}
	return nil
}

// SetField reads, applies through the typed dispatch table, and upserts.
// No runtime-computed column names.
func (s *PostgresCommunityStore) SetField(ctx context.Context, communityID string, field models.ConfigField, value string) error {
	cfg, err := s.Get(ctx, communityID)
	if err == ErrNotFound {
		cfg = &models.CommunityConfig{CommunityID: communityID}
	} else if err != nil {
		return err
	}
	if err := cfg.Apply(field, value); err != nil {
		return err
	}
	return s.Save(ctx, cfg)
}
