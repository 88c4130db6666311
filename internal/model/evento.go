package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Evento is one ingested webhook notification. Rows are insert-only;
// deduplication means skipping the insert, never merging.
//
// Two uniqueness rules back the idempotency guarantees:
//   - one row per (empresa, payment_id)
//   - one placeholder row per (empresa, merchant_order_id) among rows
//     whose payment_id is NULL (partial index)
//
// A payment row and an order-creation placeholder for the same real-world
// order may therefore coexist; the two keys are deliberately independent.
type Evento struct {
	ID                uint64           `gorm:"primaryKey"`
	EmpresaID         uint64           `gorm:"not null;index;uniqueIndex:ux_eventos_pago;uniqueIndex:ux_eventos_orden"`
	OrdenID           *string          `gorm:"size:64;index"`
	EventoID          *string          `gorm:"size:64;index"`
	Action            *string          `gorm:"size:64"`
	Type              *string          `gorm:"size:32"`
	DateCreated       *string          `gorm:"size:64"`
	PaymentID         *string          `gorm:"size:64;uniqueIndex:ux_eventos_pago"`
	Status            *string          `gorm:"size:32"`
	MerchantOrderID   *string          `gorm:"size:64;uniqueIndex:ux_eventos_orden,where:payment_id IS NULL"`
	ExternalReference *string          `gorm:"size:128"`
	Amount            *decimal.Decimal `gorm:"type:numeric(20,8)"`
	Contenido         string           `gorm:"type:jsonb;not null"`
	CreatedAt         time.Time        `gorm:"autoCreateTime"`
}

func (Evento) TableName() string { return "eventos" }
