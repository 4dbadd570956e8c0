package repositories

import (
	"fmt"

	"boutique/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCounterRepository is a GORM implementation of CounterRepository.
type GORMCounterRepository struct {
	db *gorm.DB
}

// NewGORMCounterRepository creates a new instance of GORMCounterRepository.
func NewGORMCounterRepository(db *gorm.DB) *GORMCounterRepository {
	return &GORMCounterRepository{
		db: db,
	}
}

// Next atomically increments the counter with the given name (creating it at
// zero if absent) and returns the new value. The whole allocation is one
// statement:
//
//	INSERT ... ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1 RETURNING seq
//
// so uniqueness holds under concurrent callers across process boundaries.
func (r *GORMCounterRepository) Next(name string) (int64, error) {
	counter := models.Counter{Name: name, Seq: 1}
	res := r.db.Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"seq": gorm.Expr("counters.seq + 1")}),
		},
		clause.Returning{Columns: []clause.Column{{Name: "seq"}}},
	).Create(&counter)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to allocate sequence for counter %s: %w", name, res.Error)
	}
	return counter.Seq, nil
}
