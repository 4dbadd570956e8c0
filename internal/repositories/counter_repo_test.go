package repositories_test

import (
	"sync"
	"testing"

	"boutique/internal/models"
	"boutique/internal/repositories"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB opens a dedicated in-memory sqlite database. Each test gets its
// own named database so state never leaks between tests.
func openTestDB(t *testing.T, name string, models ...interface{}) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestGORMCounterRepository_Next(t *testing.T) {
	db := openTestDB(t, "counter_next", &models.Counter{})
	repo := repositories.NewGORMCounterRepository(db)

	// The first allocation creates the counter at 1; each further call
	// increments by exactly one.
	for want := int64(1); want <= 5; want++ {
		got, err := repo.Next("order")
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Independent counters do not share sequences.
	got, err := repo.Next("support")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), got)

	got, err = repo.Next("order")
	assert.NoError(t, err)
	assert.Equal(t, int64(6), got)
}

func TestMockCounterRepository_ConcurrentAllocations(t *testing.T) {
	repo := repositories.NewMockCounterRepository()

	const n = 100
	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := repo.Next("order")
			assert.NoError(t, err)
			results <- seq
		}()
	}
	wg.Wait()
	close(results)

	// N concurrent allocations yield exactly {1, ..., N} with no duplicates.
	seen := make(map[int64]bool, n)
	for seq := range results {
		assert.False(t, seen[seq], "duplicate sequence value %d", seq)
		assert.GreaterOrEqual(t, seq, int64(1))
		assert.LessOrEqual(t, seq, int64(n))
		seen[seq] = true
	}
	assert.Len(t, seen, n)
}
