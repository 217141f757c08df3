// Package cogmem holds the shared data model and generator contract for
// the cognitive memory subsystem (its error kinds are in package errs):
// the storage-backed,
// semantically indexed record of past exchanges plus the facts distilled
// from them.
package cogmem

import (
	"time"

	"github.com/hassan123789/cogmem/internal/embedding"
)

// EpisodeStatus is the lifecycle state of an Episode.
type EpisodeStatus string

const (
	// StatusPendingEmbedding marks an episode written but not yet embedded.
	// Invisible to retrieval (invariant I2).
	StatusPendingEmbedding EpisodeStatus = "pending_embedding"
	// StatusActive marks an episode eligible for retrieval.
	StatusActive EpisodeStatus = "active"
	// StatusArchived marks an episode evicted from the active set by Budget.
	StatusArchived EpisodeStatus = "archived"
	// StatusConsolidated marks an episode folded into semantic facts.
	StatusConsolidated EpisodeStatus = "consolidated"
)

// FactStatus is the lifecycle state of a Fact.
type FactStatus string

const (
	// FactStable is a fact that has met the confidence bar at creation time.
	FactStable FactStatus = "stable"
	// FactProvisional is a fact awaiting further confirmation.
	FactProvisional FactStatus = "provisional"
)

// FullText is the structured {user, assistant} record behind an Episode.
type FullText struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Episode is one user/assistant exchange (spec §3).
type Episode struct {
	ID          string           `json:"id"`
	Summary     string           `json:"summary"`
	FullText    FullText         `json:"full_text"`
	Timestamp   time.Time        `json:"timestamp"`
	Embedding   embedding.Vector `json:"embedding,omitempty"`
	Importance  float32          `json:"importance"`
	Status      EpisodeStatus    `json:"status"`
	Topics      []string         `json:"topics,omitempty"`
	Entities    []string         `json:"entities,omitempty"`
	Connections []string         `json:"connections,omitempty"`
}

// Fact is a semantic claim distilled from one or more episodes (spec §3).
type Fact struct {
	ID             string           `json:"id"`
	Fact           string           `json:"fact"`
	Confidence     float32          `json:"confidence"`
	FirstObserved  time.Time        `json:"first_observed"`
	LastConfirmed  time.Time        `json:"last_confirmed"`
	Status         FactStatus       `json:"status"`
	DerivedFrom    []string         `json:"derived_from"`
	Embedding      embedding.Vector `json:"embedding,omitempty"`
	Contradictions []string         `json:"contradictions,omitempty"`
}

// RelationalEntry is an upsert-only row keyed by category (spec §3).
type RelationalEntry struct {
	Category      string         `json:"category"`
	Data          map[string]any `json:"data"`
	Confidence    float32        `json:"confidence"`
	EvidenceCount int            `json:"evidence_count"`
	LastUpdated   time.Time      `json:"last_updated"`
}

// EmotionalThread is the singleton-ish "current mood" record (spec §3).
type EmotionalThread struct {
	CurrentState      string    `json:"current_state"`
	ThreadLength      int       `json:"thread_length"`
	ShouldAcknowledge bool      `json:"should_acknowledge"`
	LastUpdate        time.Time `json:"last_update"`
}

// Filters narrows a Store/Retriever query. Zero value means "no filter".
type Filters struct {
	Status          EpisodeStatus
	ConfidenceGT    *float32
	HasConfidenceGT bool
}

// WithStatus returns a Filters requiring the given status.
func WithStatus(status EpisodeStatus) Filters {
	return Filters{Status: status}
}

// WithConfidenceGT returns a Filters requiring confidence strictly greater
// than the given threshold, in addition to any status already set.
func (f Filters) WithConfidenceGT(threshold float32) Filters {
	f.ConfidenceGT = &threshold
	f.HasConfidenceGT = true
	return f
}
