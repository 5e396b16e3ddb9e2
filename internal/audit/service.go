package audit

import (
	"context"
	"fmt"

	"github.com/helmdeck/helmdeck/internal/authz"
)

// RepositoryPort defines the read side of the audit log.
type RepositoryPort interface {
	Window(ctx context.Context, filters Filters, offset, limit int) ([]Entry, error)
}

// Service coordinates audit trail reads and writes.
type Service struct {
	repo     RepositoryPort
	recorder RecorderPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder RecorderPort) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// List returns a page of audit entries. Admins see everything; every other
// caller is pinned to their own entries regardless of the requested filter.
func (s *Service) List(ctx context.Context, caller authz.Principal, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	if !caller.IsAdmin() {
		actor := caller.ID
		filters.Actor = &actor
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.Window(ctx, filters, offset, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	if rows == nil {
		rows = []Entry{}
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Record appends an entry on behalf of the caller. The actor is always the
// caller itself; nobody logs actions as someone else.
func (s *Service) Record(ctx context.Context, caller authz.Principal, entry Entry) error {
	if s.recorder == nil {
		return fmt.Errorf("audit: recorder not configured")
	}
	actor := caller.ID
	entry.ID = 0
	entry.ActorID = &actor
	return s.recorder.Record(ctx, entry)
}
