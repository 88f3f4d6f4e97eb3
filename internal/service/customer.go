package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/rentals-marketplace/internal/logger"
	"github.com/iliyamo/rentals-marketplace/internal/model"
	"github.com/iliyamo/rentals-marketplace/internal/repository"
	"github.com/iliyamo/rentals-marketplace/internal/storage"
	"github.com/iliyamo/rentals-marketplace/internal/verify"
)

// CustomerService records identity submissions for walk-in customers.
type CustomerService struct {
	customers CustomerStore
	files     FileStore
	verifier  verify.Verifier
	maxBytes  int64
	log       *slog.Logger
}

func NewCustomerService(customers CustomerStore, files FileStore, verifier verify.Verifier, maxUploadBytes int64) *CustomerService {
	return &CustomerService{
		customers: customers,
		files:     files,
		verifier:  verifier,
		maxBytes:  maxUploadBytes,
		log:       logger.WithComponent("customer-info"),
	}
}

// CustomerInput is the identity submission form.
type CustomerInput struct {
	IDNumber      string
	Name          string
	ContactNumber string
	Location      string
	Document      *Upload
}

// Submit validates and verifies the details, stores the document and
// records the submission.  A repeated id number fails with ErrConflict.
func (s *CustomerService) Submit(ctx context.Context, p *model.Principal, in CustomerInput) (model.CustomerInfo, error) {
	if p == nil {
		return model.CustomerInfo{}, ErrUnauthorized
	}
	c := model.CustomerInfo{SubmittedBy: p.RenterID}
	var err error
	c.IDNumber = strings.TrimSpace(in.IDNumber)
	if !reIDNumber.MatchString(c.IDNumber) {
		return model.CustomerInfo{}, invalid("id_number", "must be exactly 12 digits")
	}
	if c.Name, err = required("name", in.Name); err != nil {
		return model.CustomerInfo{}, err
	}
	if c.ContactNumber, err = contactNumber("contact_number", in.ContactNumber); err != nil {
		return model.CustomerInfo{}, err
	}
	if c.Location, err = required("location", in.Location); err != nil {
		return model.CustomerInfo{}, err
	}
	if err := checkUpload("document", in.Document, s.maxBytes); err != nil {
		return model.CustomerInfo{}, err
	}

	err = s.verifier.Verify(ctx, verify.Identity{IDNumber: c.IDNumber, Name: c.Name, ContactNumber: c.ContactNumber})
	if errors.Is(err, verify.ErrMismatch) {
		return model.CustomerInfo{}, invalid("name", "details do not match our records")
	}
	if err != nil {
		return model.CustomerInfo{}, fmt.Errorf("verify identity: %w", err)
	}

	if c.DocumentPath, err = s.files.Save(ctx, storage.KindDocument, in.Document.Content); err != nil {
		return model.CustomerInfo{}, storageError("document", err)
	}
	if err := s.customers.Create(ctx, &c); err != nil {
		if derr := s.files.Delete(context.WithoutCancel(ctx), c.DocumentPath); derr != nil {
			s.log.Warn("failed to delete stored file", "path", c.DocumentPath, "error", derr)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return model.CustomerInfo{}, conflict("id number already submitted")
		}
		return model.CustomerInfo{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}
