package model

import "time"

// Empresa is a tenant scope. Created lazily on the first notification for
// an unseen name and immutable afterwards.
type Empresa struct {
	ID        uint64    `gorm:"primaryKey"`
	Nombre    string    `gorm:"size:128;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Empresa) TableName() string { return "empresas" }
