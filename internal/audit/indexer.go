// internal/audit/indexer.go
// Package audit indexes decided applications into Elasticsearch so staff can
// search decision history. Indexing is optional and never fatal.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"gatekeeper/internal/common/logger"
	"gatekeeper/internal/models"
)

type decisionDocument struct {
	ApplicationID string              `json:"applicationId"`
	CommunityID   string              `json:"communityId"`
	ApplicantID   string              `json:"applicantId"`
	ApplicantName string              `json:"applicantName"`
	PlayerID      string              `json:"playerId,omitempty"`
	Status        string              `json:"status"`
	DecidedByID   string              `json:"decidedById,omitempty"`
	DecidedByName string              `json:"decidedByName,omitempty"`
	DecisionNote  string              `json:"decisionNote,omitempty"`
	Answers       []models.AnswerPair `json:"answers"`
	SubmittedAt   *time.Time          `json:"submittedAt,omitempty"`
	DecidedAt     *time.Time          `json:"decidedAt,omitempty"`
	IndexedAt     time.Time           `json:"indexedAt"`
}

// Indexer writes decision documents. A nil Indexer is valid and does
// nothing, so callers never branch on whether Elasticsearch is configured.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// IndexDecision stores the decided application. Failures are logged only.
func (i *Indexer) IndexDecision(ctx context.Context, app *models.Application) {
	if i == nil || i.client == nil {
		return
	}

	doc := decisionDocument{
		ApplicationID: app.ID,
		CommunityID:   app.CommunityID,
		ApplicantID:   app.ApplicantID,
		ApplicantName: app.ApplicantDisplayName,
		PlayerID:      app.PlayerID,
		Status:        string(app.Status),
		DecisionNote:  app.DecisionNote,
		Answers:       app.Answers,
		SubmittedAt:   app.SubmittedAt,
		DecidedAt:     app.DecidedAt,
		IndexedAt:     time.Now().UTC(),
	}
	if app.DecidedBy != nil {
		doc.DecidedByID = app.DecidedBy.ID
		doc.DecidedByName = app.DecidedBy.DisplayName
	}

	body, err := json.Marshal(doc)
	if err != nil {
		i.logger.Error("failed to marshal decision document", map[string]interface{}{"error": err})
		return
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(app.ID),
	)
	if err != nil {
		i.logger.Warn("decision indexing failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.logger.Warn("decision indexing rejected", map[string]interface{}{
			"applicationId": app.ID,
			"status":        res.Status(),
		})
	}
}
