/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package trastore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suparena/trastore/errors"
	"github.com/suparena/trastore/keys"
	"github.com/suparena/trastore/models"
	"github.com/suparena/trastore/router"
	"github.com/suparena/trastore/storagemodels"
)

var knownStates = map[string]bool{
	models.StateDraft:       true,
	models.StateInProgress:  true,
	models.StateSubmitted:   true,
	models.StateUnderReview: true,
	models.StateSentBack:    true,
	models.StateCompleted:   true,
	models.StateFinalized:   true,
}

// putEntity writes e and decodes the stored item. When the store call fails the
// prepared entity, generated id and ts included, is returned with the error so the
// caller can retry the same write.
func putEntity[T models.Entity](ctx context.Context, s *Store, e T) (*T, error) {
	item, err := models.ToItem(e)
	if err != nil {
		return nil, err
	}
	res, err := s.writer.Put(ctx, e.Kind(), item)
	if res == nil {
		return nil, err
	}
	out, decodeErr := models.FromItem[T](res.Item)
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, err
}

// CreateAssessment writes a new assessment and records an assessment_created event.
// The state defaults to draft. If the write fails the assessment is still returned
// with its generated id; passing it back retries the same write.
func (s *Store) CreateAssessment(ctx context.Context, a models.Assessment) (*models.Assessment, error) {
	if a.CurrentState == "" {
		a.CurrentState = models.StateDraft
	}
	if !knownStates[a.CurrentState] {
		return nil, errors.NewValidationError("current_state", fmt.Sprintf("unknown state %q", a.CurrentState))
	}

	created, err := putEntity(ctx, s, a)
	if err != nil {
		return created, err
	}

	_, err = s.RecordEvent(ctx, models.Event{
		AssessmentID: created.ID,
		EventType:    models.EventAssessmentCreated,
		Details:      map[string]interface{}{"title": created.Title},
	})
	if err != nil {
		return created, fmt.Errorf("assessment %s created without its creation event: %w", created.ID, err)
	}

	s.logger.Info("assessment created",
		zap.String("assessment_id", created.ID),
		zap.String("state", created.CurrentState),
	)
	return created, nil
}

// GetAssessment reads an assessment by id.
func (s *Store) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	return GetAs[models.Assessment](ctx, s, id)
}

// UpdateAssessment applies field changes to an assessment. A nil value removes the
// field. The title index follows title changes in the same write.
func (s *Store) UpdateAssessment(ctx context.Context, id string, changes map[string]interface{}) (*models.Assessment, error) {
	if state, ok := changes["current_state"].(string); ok && !knownStates[state] {
		return nil, errors.NewValidationError("current_state", fmt.Sprintf("unknown state %q", state))
	}
	item, err := attributevalue.MarshalMap(changes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal changes: %w", err)
	}
	updated, err := s.Update(ctx, models.KindAssessment, []string{id}, item)
	if err != nil {
		return nil, err
	}
	return models.FromItem[models.Assessment](updated)
}

// SetTitle renames an assessment.
func (s *Store) SetTitle(ctx context.Context, id, title string) (*models.Assessment, error) {
	return s.UpdateAssessment(ctx, id, map[string]interface{}{"title": title})
}

// TransitionState moves an assessment to a new workflow state and records a
// state_changed event. Entering submitted or finalized stamps the matching time.
func (s *Store) TransitionState(ctx context.Context, id, state, actor string) (*models.Assessment, error) {
	if !knownStates[state] {
		return nil, errors.NewValidationError("current_state", fmt.Sprintf("unknown state %q", state))
	}
	current, err := s.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{"current_state": state}
	switch state {
	case models.StateSubmitted:
		changes["submitted_at"] = s.registry.Timestamp()
	case models.StateFinalized:
		changes["finalized_at"] = s.registry.Timestamp()
	}
	updated, err := s.UpdateAssessment(ctx, id, changes)
	if err != nil {
		return nil, err
	}

	_, err = s.RecordEvent(ctx, models.Event{
		AssessmentID: id,
		EventType:    models.EventStateChanged,
		Actor:        actor,
		Details:      map[string]interface{}{"from": current.CurrentState, "to": state},
	})
	if err != nil {
		return updated, fmt.Errorf("assessment %s moved to %s without its event: %w", id, state, err)
	}
	return updated, nil
}

// AddDocument writes document metadata. A missing doc_id is generated. A document
// uploaded to a session before any assessment exists is parked under the session id
// until LinkDocumentsToAssessment moves it. Like CreateAssessment, a failed write
// still returns the document so it can be retried under the same doc_id.
func (s *Store) AddDocument(ctx context.Context, d models.Document) (*models.Document, error) {
	if d.DocID == "" {
		d.DocID = uuid.NewString()
	}
	if d.AssessmentID == "" {
		d.AssessmentID = d.SessionID
	}
	return putEntity(ctx, s, d)
}

// UpdateDocument applies field changes to a document. A nil value removes the field.
// Moving a document to another assessment goes through LinkDocumentsToAssessment.
func (s *Store) UpdateDocument(ctx context.Context, assessmentID, docID string, changes map[string]interface{}) (*models.Document, error) {
	item, err := attributevalue.MarshalMap(changes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal changes: %w", err)
	}
	updated, err := s.Update(ctx, models.KindDocument, []string{assessmentID, docID}, item)
	if err != nil {
		return nil, err
	}
	return models.FromItem[models.Document](updated)
}

// SetDocumentSummary replaces a document's summary and key topics.
func (s *Store) SetDocumentSummary(ctx context.Context, assessmentID, docID, summary string, topics []string) (*models.Document, error) {
	changes := map[string]interface{}{"summary": summary, "key_topics": nil}
	if len(topics) > 0 {
		changes["key_topics"] = topics
	}
	return s.UpdateDocument(ctx, assessmentID, docID, changes)
}

// RefreshLinkedDocuments rewrites an assessment's linked_documents from its current
// documents, in doc_id order.
func (s *Store) RefreshLinkedDocuments(ctx context.Context, assessmentID string) (*models.Assessment, error) {
	it := s.Iterate(router.DocumentsForAssessment, assessmentID)

	linked := []models.LinkedDocument{}
	for it.Next(ctx) {
		d, err := models.FromItem[models.Document](it.Item())
		if err != nil {
			return nil, err
		}
		linked = append(linked, models.LinkedDocument{
			DocID:      d.DocID,
			Filename:   d.Filename,
			Summary:    d.Summary,
			KeyTopics:  d.KeyTopics,
			UploadedAt: d.CreatedAt,
		})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	return s.UpdateAssessment(ctx, assessmentID, map[string]interface{}{"linked_documents": linked})
}

// LinkDocumentsToAssessment moves every document of a session under assessmentID and
// returns how many moved. Documents are found through the session index and re-read
// by key, so a stale index entry is skipped rather than resurrected.
func (s *Store) LinkDocumentsToAssessment(ctx context.Context, sessionID, assessmentID string) (int, error) {
	it := s.Iterate(router.MessagesAndDocsForSession, sessionID, router.WithEquals(models.KindDocument))

	var moved []string
	for it.Next(ctx) {
		item := it.Item()
		from, _ := keys.Format(item["assessment_id"])
		docID, _ := keys.Format(item["doc_id"])
		if from == assessmentID || docID == "" {
			continue
		}

		_, err := s.Move(ctx, models.KindDocument, []string{from, docID}, storagemodels.Item{
			"assessment_id": &types.AttributeValueMemberS{Value: assessmentID},
		})
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return len(moved), fmt.Errorf("failed to link document %s: %w", docID, err)
		}
		moved = append(moved, docID)
	}
	if err := it.Err(); err != nil {
		return len(moved), err
	}
	if len(moved) == 0 {
		return 0, nil
	}

	_, err := s.RecordEvent(ctx, models.Event{
		AssessmentID: assessmentID,
		EventType:    models.EventDocumentLinked,
		Details: map[string]interface{}{
			"session_id":   sessionID,
			"document_ids": moved,
		},
	})
	if err != nil {
		return len(moved), err
	}

	s.logger.Info("documents linked",
		zap.String("session_id", sessionID),
		zap.String("assessment_id", assessmentID),
		zap.Int("documents", len(moved)),
	)
	return len(moved), nil
}

// DocumentsForAssessment lists an assessment's documents by doc_id.
func (s *Store) DocumentsForAssessment(ctx context.Context, assessmentID string, opts ...router.Option) ([]models.Document, string, error) {
	return QueryAs[models.Document](ctx, s, router.DocumentsForAssessment, assessmentID, opts...)
}

// EventsForAssessment lists an assessment's events, reviews included.
func (s *Store) EventsForAssessment(ctx context.Context, assessmentID string, opts ...router.Option) ([]models.Event, string, error) {
	return QueryAs[models.Event](ctx, s, router.EventsForAssessment, assessmentID, opts...)
}

// ReviewsForAssessment lists an assessment's reviews.
func (s *Store) ReviewsForAssessment(ctx context.Context, assessmentID string, opts ...router.Option) ([]models.Event, string, error) {
	return QueryAs[models.Event](ctx, s, router.ReviewsForAssessment, assessmentID, opts...)
}

// SessionMessages lists a session's chat messages in ts order. The order is applied
// per page: with WithLimit, a later page may hold messages older than the previous
// page's last one, so callers paging through a session should merge by ts.
func (s *Store) SessionMessages(ctx context.Context, sessionID string, opts ...router.Option) ([]models.ChatMessage, string, error) {
	opts = append([]router.Option{router.WithEquals(models.KindMessage)}, opts...)
	return QueryAs[models.ChatMessage](ctx, s, router.MessagesAndDocsForSession, sessionID, opts...)
}

// AssessmentsByState lists assessments in a state, most recently updated first.
func (s *Store) AssessmentsByState(ctx context.Context, state string, opts ...router.Option) ([]models.Assessment, string, error) {
	return QueryAs[models.Assessment](ctx, s, router.AssessmentsByState, state, opts...)
}

// SearchAssessments finds assessments whose title matches title ignoring case,
// newest first.
func (s *Store) SearchAssessments(ctx context.Context, title string, limit int32) ([]models.Assessment, error) {
	found, _, err := QueryAs[models.Assessment](ctx, s, router.AssessmentsByTitle, title,
		router.WithLimit(limit),
		router.WithDescending(true),
	)
	return found, err
}

// RecordEvent appends an event to an assessment's audit trail. A missing ts is set
// to a timestamp later than any this Store has issued, and a failed write returns the
// event with that ts so a retry lands on the same key.
func (s *Store) RecordEvent(ctx context.Context, e models.Event) (*models.Event, error) {
	if e.Ts == "" {
		e.Ts = s.nextTimestamp()
	}
	return putEntity(ctx, s, e)
}

// RecordReview records a reviewer decision on an assessment.
func (s *Store) RecordReview(ctx context.Context, assessmentID, reviewer, decision, comments string) (*models.Event, error) {
	return s.RecordEvent(ctx, models.Event{
		AssessmentID: assessmentID,
		EventType:    models.EventAssessmentReview,
		Actor:        reviewer,
		Decision:     decision,
		Comments:     comments,
	})
}

// AppendMessage adds a chat message to a session.
func (s *Store) AppendMessage(ctx context.Context, m models.ChatMessage) (*models.ChatMessage, error) {
	if m.Ts == "" {
		m.Ts = s.nextTimestamp()
	}
	return putEntity(ctx, s, m)
}
