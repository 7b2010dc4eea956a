package mcp

import (
	"errors"

	"github.com/custodia-labs/docrag/internal/core/ports/driving"
)

var (
	ErrMissingIngestionService = errors.New("mcp: ingestion service is required")
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
	ErrMissingDocumentService  = errors.New("mcp: document service is required")
)

// Ports are the services the tools and resources call into.
type Ports struct {
	Ingestion driving.IngestionService
	Retrieval driving.RetrievalService
	Document  driving.DocumentService
}

// Validate reports the first missing service.
func (p *Ports) Validate() error {
	switch {
	case p.Ingestion == nil:
		return ErrMissingIngestionService
	case p.Retrieval == nil:
		return ErrMissingRetrievalService
	case p.Document == nil:
		return ErrMissingDocumentService
	}
	return nil
}
