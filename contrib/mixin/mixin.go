// Package mixin provides common column groups for mapped records.
//
// Each mixin is a struct carrying `dal` tags. Embedding it in a record
// flattens its columns into the record's table:
//
//	type Order struct {
//	    mixin.ID
//	    mixin.Time
//	    Total int64 `dal:"column=total"`
//	}
//
// Available mixins:
//   - ID: UUID identity column
//   - CreateTime, UpdateTime, Time: audit timestamps
//   - SoftDelete: nullable deleted_at column
//   - TenantID: tenant_id column
//   - TimeSoftDelete: Time and SoftDelete combined
package mixin

import (
	"time"

	"github.com/google/uuid"
)

// ID adds an application assigned UUID identity column. uuid.UUID
// implements driver.Valuer and sql.Scanner, so it binds and scans as a
// single value.
//
//	id CHAR(36) PRIMARY KEY
type ID struct {
	ID uuid.UUID `dal:"id,assigned,column=id"`
}

// NewID assigns a fresh random UUID unless one is already set.
func (m *ID) NewID() uuid.UUID {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return m.ID
}

// CreateTime adds a created_at column.
type CreateTime struct {
	CreatedAt time.Time `dal:"column=created_at"`
}

// Created stamps the creation time unless one is already set.
func (m *CreateTime) Created(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
}

// UpdateTime adds an updated_at column.
type UpdateTime struct {
	UpdatedAt time.Time `dal:"column=updated_at"`
}

// Updated stamps the modification time.
func (m *UpdateTime) Updated(now time.Time) {
	m.UpdatedAt = now
}

// Time composes CreateTime and UpdateTime.
type Time struct {
	CreateTime
	UpdateTime
}

// Touch stamps both timestamps; the creation time is set only once.
func (m *Time) Touch(now time.Time) {
	m.Created(now)
	m.Updated(now)
}

// SoftDelete adds a nullable deleted_at column. Rows are marked instead of
// removed; statements filter on DELETED_AT IS NULL.
type SoftDelete struct {
	DeletedAt *time.Time `dal:"column=deleted_at"`
}

// Delete marks the record as deleted.
func (m *SoftDelete) Delete(now time.Time) {
	m.DeletedAt = &now
}

// Deleted reports whether the record is marked as deleted.
func (m SoftDelete) Deleted() bool {
	return m.DeletedAt != nil
}

// TenantID adds a tenant_id column for multi-tenancy.
type TenantID struct {
	TenantID string `dal:"column=tenant_id"`
}

// TimeSoftDelete composes Time and SoftDelete.
type TimeSoftDelete struct {
	Time
	SoftDelete
}
