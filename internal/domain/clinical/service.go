package clinical

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service exposes read access to the clinical record tables.
type Service struct {
	stores map[string]Store
	log    zerolog.Logger
}

func NewService(stores map[string]Store, log zerolog.Logger) *Service {
	return &Service{stores: stores, log: log}
}

// Store returns the store for a target table, or an error when the table
// is not one of the supported record types.
func (s *Service) Store(table string) (Store, error) {
	st, ok := s.stores[table]
	if !ok {
		return nil, fmt.Errorf("unknown record table %q", table)
	}
	return st, nil
}

func (s *Service) ListByPatient(ctx context.Context, table string, patientID uuid.UUID, limit, offset int) ([]Record, int, error) {
	st, err := s.Store(table)
	if err != nil {
		return nil, 0, err
	}
	return st.ListByPatient(ctx, patientID, limit, offset)
}
