package model

import "time"

// OutboxEvent queues an accepted Evento for downstream publication.
// Written in the same transaction as the Evento insert; the poller
// publishes pending rows and marks them processed.
type OutboxEvent struct {
	ID          uint64    `gorm:"primaryKey"`
	EmpresaID   uint64    `gorm:"not null;index"`
	EventoID    uint64    `gorm:"not null"`
	EventType   string    `gorm:"size:64;not null"`
	Payload     string    `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	Processed   bool      `gorm:"not null;default:false"`
	ProcessedAt *time.Time
}

func (OutboxEvent) TableName() string { return "eventos_outbox" }
