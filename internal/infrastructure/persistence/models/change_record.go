package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// ChangeRecordModel is the persistence model for a journaled change.
type ChangeRecordModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	RunID          uuid.UUID `gorm:"type:uuid;not null;index:idx_change_records_run"`
	Task           string    `gorm:"type:varchar(128);not null;index:idx_change_records_task"`
	Operation      string    `gorm:"type:varchar(16);not null"`
	MainIdentifier string    `gorm:"type:varchar(320)"`
	Succeeded      bool      `gorm:"not null"`
	Diagnostic     string    `gorm:"type:text"`
	AppliedAt      time.Time `gorm:"not null;index:idx_change_records_applied_at"`
}

// TableName returns the table name for GORM
func (ChangeRecordModel) TableName() string {
	return "change_records"
}

// ToDomain converts the persistence model to a domain ChangeRecord.
func (m *ChangeRecordModel) ToDomain() directory.ChangeRecord {
	return directory.ChangeRecord{
		ID:             m.ID,
		RunID:          m.RunID,
		Task:           m.Task,
		Operation:      directory.OperationKind(m.Operation),
		MainIdentifier: m.MainIdentifier,
		Succeeded:      m.Succeeded,
		Diagnostic:     m.Diagnostic,
		AppliedAt:      m.AppliedAt,
	}
}

// FromDomain populates the persistence model from a domain ChangeRecord.
func (m *ChangeRecordModel) FromDomain(r directory.ChangeRecord) {
	m.ID = r.ID
	m.RunID = r.RunID
	m.Task = r.Task
	m.Operation = r.Operation.String()
	m.MainIdentifier = r.MainIdentifier
	m.Succeeded = r.Succeeded
	m.Diagnostic = r.Diagnostic
	m.AppliedAt = r.AppliedAt.UTC()
}
