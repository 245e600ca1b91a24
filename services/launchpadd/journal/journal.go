package journal

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"launchpad/core/types"
)

// ErrNotFound is returned when no operation matches a digest.
var ErrNotFound = errors.New("journal: operation not found")

// OperationRecord stores one committed operation and the response returned
// to its submitter.
type OperationRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Digest    string    `gorm:"size:64;uniqueIndex"`
	OpHash    string    `gorm:"size:64;index"`
	Type      string    `gorm:"size:32;index"`
	Sender    string    `gorm:"size:40;index"`
	Sale      string    `gorm:"size:64;index"`
	Nonce     uint64
	Status    int
	Response  string
	CreatedAt time.Time     `gorm:"index"`
	Events    []EventRecord `gorm:"foreignKey:OperationID"`
}

// EventRecord stores one event emitted by a committed operation.
type EventRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OperationID uuid.UUID `gorm:"type:uuid;index"`
	Sequence    int
	Type        string `gorm:"size:64;index"`
	Attributes  string
	CreatedAt   time.Time
}

// Journal persists committed operations for idempotent replays and audit
// exports.
type Journal struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to dsn and migrates the schema. DSNs beginning with
// postgres:// or postgresql:// use Postgres; anything else is a SQLite path.
func Open(dsn string) (*Journal, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("journal: dsn required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: db required")
	}
	if err := db.AutoMigrate(&OperationRecord{}, &EventRecord{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Digest identifies a signed operation. Two submissions of the same signed
// bytes share a digest.
func Digest(op *types.Operation) (string, error) {
	if op == nil {
		return "", fmt.Errorf("journal: nil operation")
	}
	hash, err := op.Hash()
	if err != nil {
		return "", err
	}
	h := blake3.New(32, nil)
	_, _ = h.Write(hash)
	for _, part := range []*big.Int{op.R, op.S, op.V} {
		var b []byte
		if part != nil {
			b = part.Bytes()
		}
		_, _ = h.Write([]byte{byte(len(b))})
		_, _ = h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Lookup returns the operation stored under digest.
func (j *Journal) Lookup(ctx context.Context, digest string) (*OperationRecord, error) {
	var rec OperationRecord
	err := j.db.WithContext(ctx).First(&rec, "digest = ?", digest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Record stores rec and its events in a single transaction.
func (j *Journal) Record(ctx context.Context, rec *OperationRecord, evts []*types.Event) error {
	if rec == nil {
		return fmt.Errorf("journal: nil record")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = j.now().UTC()
	}
	rows := make([]EventRecord, 0, len(evts))
	for i, evt := range evts {
		if evt == nil {
			continue
		}
		attrs, err := encodeAttributes(evt.Attributes)
		if err != nil {
			return err
		}
		rows = append(rows, EventRecord{
			ID:          uuid.New(),
			OperationID: rec.ID,
			Sequence:    i,
			Type:        evt.Type,
			Attributes:  attrs,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Events").Create(rec).Error; err != nil {
			return fmt.Errorf("insert operation: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert events: %w", err)
		}
		return nil
	})
}

// Operations lists operations recorded at or after since, oldest first. A
// non-positive limit returns every match.
func (j *Journal) Operations(ctx context.Context, since time.Time, limit int) ([]OperationRecord, error) {
	q := j.db.WithContext(ctx).Where("created_at >= ?", since.UTC()).Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []OperationRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Events returns the events of one operation in emission order.
func (j *Journal) Events(ctx context.Context, operationID uuid.UUID) ([]*types.Event, error) {
	var rows []EventRecord
	if err := j.db.WithContext(ctx).Where("operation_id = ?", operationID).Order("sequence asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*types.Event, 0, len(rows))
	for _, row := range rows {
		attrs, err := decodeAttributes(row.Attributes)
		if err != nil {
			return nil, err
		}
		out = append(out, &types.Event{Type: row.Type, Attributes: attrs})
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
