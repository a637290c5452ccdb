/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package models holds the typed entities stored in the assessment table.
//
// Importing the package registers a decoder for every entity_type and maps each
// struct to its schema kind, so streamed items decode into *Assessment, *Document,
// *ChatMessage or *Event. Timestamps are kept as their stored RFC 3339 strings;
// accessor methods parse them as strfmt.DateTime.
package models
