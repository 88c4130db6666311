package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/paydesk/mp-webhook-service/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// seenTTL bounds the redis dedup fast path; the DB indexes remain the
// authority once the key expires.
const seenTTL = 10 * time.Minute

// RepositoryInterface restricts Repo methods (keeps unit-test mocks easy)
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB
	GetOrCreateEmpresa(ctx context.Context, tx *gorm.DB, nombre string) (*model.Empresa, error)
	FindEmpresaByNombre(ctx context.Context, nombre string) (*model.Empresa, error)
	ExistsByOrderRef(ctx context.Context, empresaID uint64, ordenID string) (bool, error)
	ExistsPlaceholder(ctx context.Context, empresaID uint64, merchantOrderID string) (bool, error)
	ExistsByPayment(ctx context.Context, empresaID uint64, paymentID string) (bool, error)
	CreateEvento(ctx context.Context, tx *gorm.DB, e *model.Evento) error
	FindEventoByOrden(ctx context.Context, empresaID uint64, ordenID string) (*model.Evento, error)
	CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error
	PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uint64) error
	PublishEvent(ctx context.Context, evt model.OutboxEvent) error
	CacheSeenOrder(ctx context.Context, empresaID uint64, ordenID string) error
	SeenOrder(ctx context.Context, empresaID uint64, ordenID string) (bool, error)
}

// Repository implements RepositoryInterface.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewRepository constructs repo.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// GetOrCreateEmpresa resolves a tenant by name, creating it on first
// sight. Concurrent first-notifications race on the unique nombre index;
// the loser of the race re-reads the winner's row.
func (r *Repository) GetOrCreateEmpresa(ctx context.Context, tx *gorm.DB, nombre string) (*model.Empresa, error) {
	var e model.Empresa
	err := tx.WithContext(ctx).Where("nombre = ?", nombre).First(&e).Error
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	e = model.Empresa{Nombre: nombre}
	res := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "nombre"}}, DoNothing: true}).
		Create(&e)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.WithContext(ctx).Where("nombre = ?", nombre).First(&e).Error; err != nil {
			return nil, err
		}
	}
	return &e, nil
}

// FindEmpresaByNombre looks up a tenant without creating it.
func (r *Repository) FindEmpresaByNombre(ctx context.Context, nombre string) (*model.Empresa, error) {
	var e model.Empresa
	if err := r.db.WithContext(ctx).Where("nombre = ?", nombre).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ExistsByOrderRef reports whether any evento already carries the order
// reference as payment_id or merchant_order_id.
func (r *Repository) ExistsByOrderRef(ctx context.Context, empresaID uint64, ordenID string) (bool, error) {
	var e model.Evento
	err := r.db.WithContext(ctx).
		Where("empresa_id = ? AND (payment_id = ? OR merchant_order_id = ?)", empresaID, ordenID, ordenID).
		First(&e).Error
	return found(err)
}

// ExistsPlaceholder reports whether an order-creation placeholder row
// (merchant_order_id set, payment_id NULL) already exists.
func (r *Repository) ExistsPlaceholder(ctx context.Context, empresaID uint64, merchantOrderID string) (bool, error) {
	var e model.Evento
	err := r.db.WithContext(ctx).
		Where("empresa_id = ? AND merchant_order_id = ? AND payment_id IS NULL", empresaID, merchantOrderID).
		First(&e).Error
	return found(err)
}

// ExistsByPayment reports whether the payment id is already recorded.
func (r *Repository) ExistsByPayment(ctx context.Context, empresaID uint64, paymentID string) (bool, error) {
	var e model.Evento
	err := r.db.WithContext(ctx).
		Where("empresa_id = ? AND payment_id = ?", empresaID, paymentID).
		First(&e).Error
	return found(err)
}

func found(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// CreateEvento inserts one evento row. A gorm.ErrDuplicatedKey here is the
// unique indexes rejecting a concurrent duplicate delivery.
func (r *Repository) CreateEvento(ctx context.Context, tx *gorm.DB, e *model.Evento) error {
	return tx.WithContext(ctx).Create(e).Error
}

// FindEventoByOrden fetches the stored evento for (empresa, orden).
func (r *Repository) FindEventoByOrden(ctx context.Context, empresaID uint64, ordenID string) (*model.Evento, error) {
	var e model.Evento
	if err := r.db.WithContext(ctx).Where("empresa_id = ? AND orden_id = ?", empresaID, ordenID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return tx.WithContext(ctx).Create(evt).Error
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed=false").Order("created_at").Limit(limit).Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id=?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}

// PublishEvent sends to Kafka, keyed by empresa so one tenant's events
// stay on one partition.
func (r *Repository) PublishEvent(ctx context.Context, evt model.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", evt.EmpresaID)),
		Value: []byte(evt.Payload),
		Time:  time.Now(),
	}
	return r.writer.WriteMessages(ctx, msg)
}

// CacheSeenOrder marks (empresa, orden) as recorded. Best effort.
func (r *Repository) CacheSeenOrder(ctx context.Context, empresaID uint64, ordenID string) error {
	return r.rdb.Set(ctx, seenKey(empresaID, ordenID), "1", seenTTL).Err()
}

// SeenOrder checks the dedup fast path.
func (r *Repository) SeenOrder(ctx context.Context, empresaID uint64, ordenID string) (bool, error) {
	_, err := r.rdb.Get(ctx, seenKey(empresaID, ordenID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func seenKey(empresaID uint64, ordenID string) string {
	return fmt.Sprintf("dedup:%d:%s", empresaID, ordenID)
}
