/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package models

import (
	"github.com/go-openapi/strfmt"
)

// Kind names as declared in the schema registry.
const (
	KindAssessment = "assessment"
	KindDocument   = "document"
	KindMessage    = "message"
	KindEvent      = "event"
)

// Assessment workflow states. Transitions are plain overwrites of current_state.
const (
	StateDraft       = "draft"
	StateInProgress  = "in_progress"
	StateSubmitted   = "submitted"
	StateUnderReview = "under_review"
	StateSentBack    = "sent_back"
	StateCompleted   = "completed"
	StateFinalized   = "finalized"
)

// Event types for the assessment audit trail.
const (
	EventAssessmentCreated   = "assessment_created"
	EventQuestionAnswered    = "question_answered"
	EventDocumentUploaded    = "document_uploaded"
	EventDocumentLinked      = "document_linked"
	EventStateChanged        = "state_changed"
	EventAssessmentSubmitted = "assessment_submitted"
	EventAssessmentReview    = "assessment_review"
	EventAssessmentFinalized = "assessment_finalized"
	EventExportGenerated     = "export_generated"
)

// Assessment is a technology risk assessment header.
type Assessment struct {

	// Unique identifier; generated when empty.
	ID string `dynamodbav:"id,omitempty" json:"id"`

	// Session that created the assessment. Optional; when set the assessment is
	// also listed by the session index.
	SessionID string `dynamodbav:"session_id,omitempty" json:"session_id,omitempty"`

	// Required: true
	Title string `dynamodbav:"title,omitempty" json:"title"`

	// Derived from Title on every write.
	TitleLowercase string `dynamodbav:"title_lowercase,omitempty" json:"title_lowercase,omitempty"`

	Description    string `dynamodbav:"description,omitempty" json:"description,omitempty"`
	TechnologyType string `dynamodbav:"technology_type,omitempty" json:"technology_type,omitempty"`
	SystemID       string `dynamodbav:"system_id,omitempty" json:"system_id,omitempty"`
	Classification string `dynamodbav:"classification,omitempty" json:"classification,omitempty"`
	BusinessUnit   string `dynamodbav:"business_unit,omitempty" json:"business_unit,omitempty"`
	RequestorName  string `dynamodbav:"requestor_name,omitempty" json:"requestor_name,omitempty"`
	RequestorEmail string `dynamodbav:"requestor_email,omitempty" json:"requestor_email,omitempty"`

	// Question-answer pairs.
	Answers map[string]interface{} `dynamodbav:"answers,omitempty" json:"answers,omitempty"`

	CompletionPercentage float64 `dynamodbav:"completion_percentage" json:"completion_percentage"`
	CurrentQuestionID    string  `dynamodbav:"current_question_id,omitempty" json:"current_question_id,omitempty"`

	// Workflow state.
	// Required: true
	CurrentState string `dynamodbav:"current_state,omitempty" json:"current_state"`

	// Snapshot of the assessment's documents, refreshed on demand.
	LinkedDocuments []LinkedDocument `dynamodbav:"linked_documents,omitempty" json:"linked_documents,omitempty"`

	Version            int    `dynamodbav:"version,omitempty" json:"version,omitempty"`
	ParentAssessmentID string `dynamodbav:"parent_assessment_id,omitempty" json:"parent_assessment_id,omitempty"`
	AssignedAssessor   string `dynamodbav:"assigned_assessor,omitempty" json:"assigned_assessor,omitempty"`

	// Format: date-time
	SubmittedAt string `dynamodbav:"submitted_at,omitempty" json:"submitted_at,omitempty"`

	// Format: date-time
	FinalizedAt string `dynamodbav:"finalized_at,omitempty" json:"finalized_at,omitempty"`

	// Format: date-time
	CreatedAt string `dynamodbav:"created_at,omitempty" json:"created_at"`

	// Format: date-time
	UpdatedAt string `dynamodbav:"updated_at,omitempty" json:"updated_at"`

	EntityType string `dynamodbav:"entity_type,omitempty" json:"entity_type,omitempty"`
}

// Kind implements Entity.
func (Assessment) Kind() string { return KindAssessment }

// Created parses CreatedAt.
func (a *Assessment) Created() (strfmt.DateTime, error) {
	return strfmt.ParseDateTime(a.CreatedAt)
}

// Updated parses UpdatedAt.
func (a *Assessment) Updated() (strfmt.DateTime, error) {
	return strfmt.ParseDateTime(a.UpdatedAt)
}

// Document is an uploaded document's metadata. The content lives elsewhere.
type Document struct {
	DocID        string `dynamodbav:"doc_id,omitempty" json:"doc_id"`
	AssessmentID string `dynamodbav:"assessment_id,omitempty" json:"assessment_id"`

	// Set while the document belongs to a chat session.
	SessionID string `dynamodbav:"session_id,omitempty" json:"session_id,omitempty"`

	Filename    string `dynamodbav:"filename,omitempty" json:"filename,omitempty"`
	ContentType string `dynamodbav:"content_type,omitempty" json:"content_type,omitempty"`
	SizeBytes   int64  `dynamodbav:"size_bytes,omitempty" json:"size_bytes,omitempty"`
	StorageKey  string `dynamodbav:"storage_key,omitempty" json:"storage_key,omitempty"`
	Summary     string `dynamodbav:"summary,omitempty" json:"summary,omitempty"`

	KeyTopics []string `dynamodbav:"key_topics,omitempty" json:"key_topics,omitempty"`

	// Format: date-time
	CreatedAt string `dynamodbav:"created_at,omitempty" json:"created_at"`

	// Format: date-time
	UpdatedAt string `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`

	EntityType string `dynamodbav:"entity_type,omitempty" json:"entity_type,omitempty"`
}

// Kind implements Entity.
func (Document) Kind() string { return KindDocument }

// LinkedDocument is the summary of a document kept on its assessment.
type LinkedDocument struct {
	DocID      string   `dynamodbav:"doc_id" json:"doc_id"`
	Filename   string   `dynamodbav:"filename,omitempty" json:"filename,omitempty"`
	Summary    string   `dynamodbav:"summary,omitempty" json:"summary,omitempty"`
	KeyTopics  []string `dynamodbav:"key_topics,omitempty" json:"key_topics,omitempty"`
	UploadedAt string   `dynamodbav:"uploaded_at,omitempty" json:"uploaded_at,omitempty"`
}

// Created parses CreatedAt.
func (d *Document) Created() (strfmt.DateTime, error) {
	return strfmt.ParseDateTime(d.CreatedAt)
}

// ChatMessage is one turn of a chat session.
type ChatMessage struct {
	SessionID string `dynamodbav:"session_id,omitempty" json:"session_id"`

	// Format: date-time
	Ts string `dynamodbav:"ts,omitempty" json:"ts"`

	Role    string `dynamodbav:"role,omitempty" json:"role"`
	Content string `dynamodbav:"content,omitempty" json:"content"`

	AssessmentID string            `dynamodbav:"assessment_id,omitempty" json:"assessment_id,omitempty"`
	Metadata     map[string]string `dynamodbav:"metadata,omitempty" json:"metadata,omitempty"`

	// Format: date-time
	UpdatedAt string `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`

	EntityType string `dynamodbav:"entity_type,omitempty" json:"entity_type,omitempty"`
}

// Kind implements Entity.
func (ChatMessage) Kind() string { return KindMessage }

// Event is an assessment lifecycle event. Reviews are events whose event_type is
// assessment_review; they are stored with entity_type "review".
type Event struct {
	AssessmentID string `dynamodbav:"assessment_id,omitempty" json:"assessment_id"`

	// Format: date-time
	Ts string `dynamodbav:"ts,omitempty" json:"ts"`

	EventType string `dynamodbav:"event_type,omitempty" json:"event_type"`
	Actor     string `dynamodbav:"actor,omitempty" json:"actor,omitempty"`

	// Review fields.
	Decision string `dynamodbav:"decision,omitempty" json:"decision,omitempty"`
	Comments string `dynamodbav:"comments,omitempty" json:"comments,omitempty"`

	Details map[string]interface{} `dynamodbav:"details,omitempty" json:"details,omitempty"`

	// Format: date-time
	UpdatedAt string `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`

	EntityType string `dynamodbav:"entity_type,omitempty" json:"entity_type,omitempty"`
}

// Kind implements Entity.
func (Event) Kind() string { return KindEvent }

// IsReview reports whether the event is an assessment review.
func (e *Event) IsReview() bool {
	return e.EventType == EventAssessmentReview
}

// At parses Ts.
func (e *Event) At() (strfmt.DateTime, error) {
	return strfmt.ParseDateTime(e.Ts)
}
