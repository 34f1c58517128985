package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ChetanXpro/yesbroker/internal/config"
	"github.com/ChetanXpro/yesbroker/internal/jwt"
	"github.com/ChetanXpro/yesbroker/internal/proofstore"
	"github.com/ChetanXpro/yesbroker/internal/prover"
)

var pdfMagic = []byte("%PDF-")

// DocumentFile is an uploaded ownership document.
type DocumentFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DocumentProof is a generated or archived ownership proof.
type DocumentProof struct {
	PropertyID int64           `json:"property_id"`
	ArchiveID  string          `json:"archive_id,omitempty"`
	Proof      json.RawMessage `json:"proof"`
}

// DocumentService produces and checks zero-knowledge proofs of ownership
// documents through the remote proving service.
type DocumentService struct {
	base
	properties *PropertyService
	prover     prover.Prover
	archive    proofstore.Archive
	maxBytes   int64
}

// NewDocumentService builds the service. archive may be nil.
func NewDocumentService(properties *PropertyService, p prover.Prover, archive proofstore.Archive, cfg config.Config, logger *zap.Logger) *DocumentService {
	maxBytes := cfg.MaxDocumentBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &DocumentService{
		base:       newBase(logger),
		properties: properties,
		prover:     p,
		archive:    archive,
		maxBytes:   maxBytes,
	}
}

// Prove sends the owner's PDF to the proving service and archives the proof.
func (s *DocumentService) Prove(ctx context.Context, claims *jwt.Claims, propertyID int64, doc DocumentFile) (DocumentProof, error) {
	ctx, span := s.startSpan(ctx, "DocumentService.Prove")
	defer span.End()

	if _, err := s.properties.ownedProperty(ctx, claims, propertyID); err != nil {
		return DocumentProof{}, err
	}
	if len(doc.Data) == 0 {
		return DocumentProof{}, validationError("Document is required")
	}
	if ct := strings.ToLower(doc.ContentType); ct != "" && ct != "application/pdf" {
		return DocumentProof{}, validationError(fmt.Sprintf("Invalid file type: %s. Allowed types: application/pdf", doc.ContentType))
	}
	if int64(len(doc.Data)) > s.maxBytes {
		return DocumentProof{}, validationError(fmt.Sprintf("File too large: %s. Maximum size: %dMB", doc.Filename, s.maxBytes>>20))
	}
	if !bytes.HasPrefix(doc.Data, pdfMagic) {
		return DocumentProof{}, validationError("Document is not a PDF")
	}

	proof, err := s.prover.Prove(ctx, propertyID, doc.Data)
	if err != nil {
		span.RecordError(err)
		return DocumentProof{}, proverError(err)
	}

	result := DocumentProof{PropertyID: propertyID, Proof: proof}
	if s.archive != nil {
		rec, err := s.archive.Save(ctx, proofstore.Record{PropertyID: propertyID, OwnerID: claims.UserID, Proof: proof})
		if err != nil {
			s.log().Warn("proof archive write failed", zap.Int64("property_id", propertyID), zap.Error(err))
		} else {
			result.ArchiveID = rec.ID.Hex()
		}
	}

	s.audit("document.proved", "property_id", propertyID)
	return result, nil
}

// Latest returns the most recent archived proof for a property.
func (s *DocumentService) Latest(ctx context.Context, propertyID int64) (DocumentProof, error) {
	ctx, span := s.startSpan(ctx, "DocumentService.Latest")
	defer span.End()

	if s.archive == nil {
		return DocumentProof{}, notFoundError("No proof archived for this property")
	}
	rec, err := s.archive.Latest(ctx, propertyID)
	if err != nil {
		if errors.Is(err, proofstore.ErrNotFound) {
			return DocumentProof{}, notFoundError("No proof archived for this property")
		}
		span.RecordError(err)
		return DocumentProof{}, upstreamError("Proof archive unavailable", err)
	}
	return DocumentProof{PropertyID: rec.PropertyID, ArchiveID: rec.ID.Hex(), Proof: rec.Proof}, nil
}

// VerifyProof asks the proving service whether proof is valid.
func (s *DocumentService) VerifyProof(ctx context.Context, proof json.RawMessage) (prover.Verdict, error) {
	ctx, span := s.startSpan(ctx, "DocumentService.VerifyProof")
	defer span.End()

	if len(bytes.TrimSpace(proof)) == 0 || !json.Valid(proof) {
		return prover.Verdict{}, validationError("Proof is required")
	}
	verdict, err := s.prover.Verify(ctx, proof)
	if err != nil {
		span.RecordError(err)
		return prover.Verdict{}, proverError(err)
	}
	return verdict, nil
}

func proverError(err error) *Error {
	if errors.Is(err, prover.ErrNotConfigured) {
		return upstreamError("Document prover is not configured", err)
	}
	return upstreamError("Document prover failed", err)
}
