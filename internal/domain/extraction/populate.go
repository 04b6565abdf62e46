package extraction

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chartdesk/chartdesk/internal/domain/clinical"
	"github.com/chartdesk/chartdesk/internal/domain/template"
	"github.com/chartdesk/chartdesk/internal/platform/db"
)

const sourceDocumentExtraction = "document_extraction"

// DocumentLocker guards against two concurrent populate runs for the same
// document.
type DocumentLocker interface {
	TryLock(ctx context.Context, documentID uuid.UUID) (bool, error)
	Unlock(ctx context.Context, documentID uuid.UUID) error
}

// AdvisoryLocker locks through the workspace connection's pg advisory locks.
type AdvisoryLocker struct{}

func (AdvisoryLocker) TryLock(ctx context.Context, documentID uuid.UUID) (bool, error) {
	return db.TryDocumentLock(ctx, documentID)
}

func (AdvisoryLocker) Unlock(ctx context.Context, documentID uuid.UUID) error {
	return db.ReleaseDocumentLock(ctx, documentID)
}

// Populator fans a document's resolved mappings out across the clinical
// tables and writes one audit row per run. Extraction only ever adds rows;
// it never updates or deletes an existing clinical record.
type Populator struct {
	stores  map[string]clinical.Store
	engine  *Engine
	history HistoryRepo
	locker  DocumentLocker
	log     zerolog.Logger
}

func NewPopulator(stores map[string]clinical.Store, engine *Engine, history HistoryRepo, locker DocumentLocker, log zerolog.Logger) *Populator {
	return &Populator{
		stores:  stores,
		engine:  engine,
		history: history,
		locker:  locker,
		log:     log.With().Str("component", "populator").Logger(),
	}
}

// Populate applies mappings to the document's raw sections and inserts the
// resulting records. Per-mapping failures are isolated and aggregated into
// population_errors; a store connectivity failure aborts the run and yields a
// failed history with a single top-level error.
func (p *Populator) Populate(ctx context.Context, documentID, patientID uuid.UUID, encounterID, templateID *uuid.UUID, raw map[string]interface{}, mappings []*template.FieldMapping) (*History, error) {
	acquired, err := p.locker.TryLock(ctx, documentID)
	if err != nil {
		return nil, &StoreUnavailableError{Store: "lock", Err: err}
	}
	if !acquired {
		return nil, ErrPopulateInProgress
	}
	defer func() {
		if err := p.locker.Unlock(ctx, documentID); err != nil {
			p.log.Warn().Err(err).Str("document_id", documentID.String()).Msg("release document lock")
		}
	}()

	attempt, err := p.history.NextAttempt(ctx, documentID)
	if err != nil {
		return nil, &StoreUnavailableError{Store: "history", Err: err}
	}

	h := &History{
		ID:                uuid.New(),
		DocumentID:        documentID,
		TemplateID:        templateID,
		Attempt:           attempt,
		TablesPopulated:   map[string][]uuid.UUID{},
		PopulationErrors:  []PopulationError{},
		SkippedDuplicates: []DuplicateNote{},
		ValidationChanges: []ValidationChange{},
	}

	for _, group := range groupByTable(mappings) {
		store, ok := p.stores[group.table]
		if !ok {
			h.PopulationErrors = append(h.PopulationErrors, PopulationError{
				Mapping: group.table,
				Reason:  fmt.Sprintf("unknown target table %q", group.table),
			})
			continue
		}

		rec := store.New(patientID, encounterID, &documentID, sourceDocumentExtraction)
		resolved := map[string]interface{}{}
		fieldsSet := 0

		for _, m := range group.mappings {
			res, err := p.engine.Apply(ctx, m, raw, resolved)
			if err != nil {
				h.PopulationErrors = append(h.PopulationErrors, PopulationError{
					Mapping: mappingLabel(m),
					Reason:  err.Error(),
				})
				continue
			}
			if res.NeedsReview {
				rec.FlagReview()
			}
			if res.Omitted {
				continue
			}
			if err := rec.SetField(m.TargetField, res.Value); err != nil {
				h.PopulationErrors = append(h.PopulationErrors, PopulationError{
					Mapping: mappingLabel(m),
					Reason:  err.Error(),
				})
				continue
			}
			resolved[m.TargetField] = res.Value
			fieldsSet++
			h.FieldsExtracted++
		}

		if fieldsSet == 0 {
			continue
		}

		exists, err := store.Exists(ctx, rec)
		if err != nil {
			return p.failRun(ctx, h, &StoreUnavailableError{Store: group.table, Err: err})
		}
		if exists {
			h.SkippedDuplicates = append(h.SkippedDuplicates, DuplicateNote{
				Table:  group.table,
				Detail: fmt.Sprintf("matching %s record already exists for patient", group.table),
			})
			continue
		}

		id, err := store.Insert(ctx, rec)
		if err != nil {
			return p.failRun(ctx, h, &StoreUnavailableError{Store: group.table, Err: err})
		}
		h.TablesPopulated[group.table] = append(h.TablesPopulated[group.table], id)
		h.RecordsCreated++
	}

	switch {
	case len(h.PopulationErrors) == 0:
		h.ExtractionStatus = StatusSuccess
	case h.RecordsCreated > 0:
		h.ExtractionStatus = StatusPartial
	default:
		h.ExtractionStatus = StatusFailed
	}

	if err := p.history.Create(ctx, h); err != nil {
		return nil, &StoreUnavailableError{Store: "history", Err: err}
	}

	p.log.Info().
		Str("document_id", documentID.String()).
		Int("attempt", h.Attempt).
		Str("status", h.ExtractionStatus).
		Int("records_created", h.RecordsCreated).
		Int("errors", len(h.PopulationErrors)).
		Int("duplicates_skipped", len(h.SkippedDuplicates)).
		Msg("populate run complete")
	return h, nil
}

// failRun records a fatal store failure as a failed history with one
// top-level error. The history write itself is best effort.
func (p *Populator) failRun(ctx context.Context, h *History, cause *StoreUnavailableError) (*History, error) {
	h.ExtractionStatus = StatusFailed
	h.PopulationErrors = []PopulationError{{Mapping: cause.Store, Reason: cause.Error()}}
	if err := p.history.Create(ctx, h); err != nil {
		p.log.Error().Err(err).Str("document_id", h.DocumentID.String()).Msg("persist failed history")
	}
	return h, cause
}

type tableGroup struct {
	table    string
	mappings []*template.FieldMapping
}

// groupByTable buckets mappings by target table, preserving both the order
// tables first appear and the mapping order within each table.
func groupByTable(mappings []*template.FieldMapping) []tableGroup {
	index := map[string]int{}
	var groups []tableGroup
	for _, m := range mappings {
		i, ok := index[m.TargetTable]
		if !ok {
			i = len(groups)
			index[m.TargetTable] = i
			groups = append(groups, tableGroup{table: m.TargetTable})
		}
		groups[i].mappings = append(groups[i].mappings, m)
	}
	return groups
}

func mappingLabel(m *template.FieldMapping) string {
	src := m.SourceFieldPath
	if m.SourceSection != "" {
		src = m.SourceSection + "." + m.SourceFieldPath
	}
	return fmt.Sprintf("%s -> %s.%s", src, m.TargetTable, m.TargetField)
}
