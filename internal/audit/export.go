package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/helmdeck/helmdeck/internal/authz"
)

// Exporter renders audit windows as CSV for offline review.
type Exporter struct {
	service *Service
}

// NewExporter constructs an Exporter.
func NewExporter(service *Service) *Exporter {
	return &Exporter{service: service}
}

// maxExportPages bounds one export run so a filter matching the whole table
// cannot hold a connection forever.
const maxExportPages = 40

// ExportCSV streams every page the caller may see into one CSV document.
// The caller's visibility rules apply unchanged: non-admins only ever
// export their own entries.
func (e *Exporter) ExportCSV(ctx context.Context, caller authz.Principal, filters Filters) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "created_at", "actor_id", "action", "entity", "entity_id", "ip", "meta"}); err != nil {
		return nil, err
	}

	filters.Page = 1
	filters.PageSize = 50
	for page := 0; page < maxExportPages; page++ {
		result, err := e.service.List(ctx, caller, filters)
		if err != nil {
			return nil, err
		}
		for _, row := range result.Rows {
			actor := ""
			if row.ActorID != nil {
				actor = row.ActorID.String()
			}
			meta := ""
			if len(row.Meta) > 0 {
				if data, err := json.Marshal(row.Meta); err == nil {
					meta = string(data)
				}
			}
			record := []string{
				strconv.FormatInt(row.ID, 10),
				row.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
				actor,
				row.Action,
				row.Entity,
				row.EntityID,
				row.IP,
				meta,
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
		if !result.Paging.HasNext {
			break
		}
		filters.Page++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
