package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EntityKind выбирает целевую сущность импорта/экспорта.
type EntityKind string

const (
	EntityCustomers EntityKind = "customers"
	EntityTickets   EntityKind = "tickets"
)

func ParseEntityKind(s string) (EntityKind, bool) {
	switch EntityKind(s) {
	case EntityCustomers, EntityTickets:
		return EntityKind(s), true
	}
	return "", false
}

// RawRow: одна запись исходного файла, колонка -> значение как есть
// (string, float64, bool, nil).
type RawRow map[string]any

// FieldMapping: исходная колонка -> целевое поле. Пустая строка = игнорировать.
type FieldMapping map[string]string

// Used возвращает множество целевых полей, уже занятых в маппинге.
func (m FieldMapping) Used() map[string]bool {
	used := make(map[string]bool, len(m))
	for _, t := range m {
		if t != "" {
			used[t] = true
		}
	}
	return used
}

// MappedCount: число непустых записей.
func (m FieldMapping) MappedCount() int {
	n := 0
	for _, t := range m {
		if t != "" {
			n++
		}
	}
	return n
}

// SourceFor ищет колонку, сопоставленную целевому полю. Если после ручной
// правки колонок несколько, берётся первая по алфавиту.
func (m FieldMapping) SourceFor(target string) (string, bool) {
	found, ok := "", false
	for src, t := range m {
		if t == target && (!ok || src < found) {
			found, ok = src, true
		}
	}
	return found, ok
}

type FieldType string

const (
	FieldText     FieldType = "TEXT"
	FieldNumber   FieldType = "NUMBER"
	FieldDate     FieldType = "DATE"
	FieldDueDate  FieldType = "DUE_DATE"
	FieldCheckbox FieldType = "CHECKBOX"
)

// FieldDefinition: пользовательское поле шаблона типа тикета.
type FieldDefinition struct {
	Name       string    `json:"name"`
	FieldType  FieldType `json:"fieldType"`
	IsRequired bool      `json:"isRequired"`
}

type ImportOptions struct {
	SkipExisting   bool `json:"skipExisting"`
	UpdateExisting bool `json:"updateExisting"`
}

// CustomerDraft: нормализованная строка для создания клиента.
type CustomerDraft struct {
	RowNumber int `json:"-"`

	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Address     string `json:"address,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	ExternalID  string `json:"externalId,omitempty"`
	// DateOfBirth: ISO-строка, либо исходное значение, если разобрать не удалось
	DateOfBirth   string         `json:"dateOfBirth,omitempty"`
	Newsletter    *bool          `json:"newsletter,omitempty"`
	Loyal         *bool          `json:"loyal,omitempty"`
	DynamicFields map[string]any `json:"dynamicFields,omitempty"`
}

// TicketDraft: нормализованная строка для создания тикета.
type TicketDraft struct {
	RowNumber int `json:"-"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	// Status: в верхнем регистре; OPEN по умолчанию ставит слой хранения
	Status             string         `json:"status,omitempty"`
	DueDate            string         `json:"dueDate,omitempty"`
	TicketTypeID       *int64         `json:"ticketTypeId,omitempty"`
	TicketTypeName     string         `json:"ticketTypeName,omitempty"`
	CustomerID         *int64         `json:"customerId,omitempty"`
	CustomerEmail      string         `json:"customerEmail,omitempty"`
	CustomerExternalID string         `json:"customerExternalId,omitempty"`
	DynamicFields      map[string]any `json:"dynamicFields"`
}

// HasCustomerReference: есть ли хоть один способ найти клиента.
func (t TicketDraft) HasCustomerReference() bool {
	return t.CustomerID != nil || t.CustomerEmail != "" || t.CustomerExternalID != ""
}

// RowError: ошибка обработки одной строки.
type RowError struct {
	RowNumber int
	Message   string
}

func (e RowError) Error() string { return RowLabel(e.RowNumber) + ": " + e.Message }

func RowLabel(n int) string { return "Rad " + strconv.Itoa(n) }

// RowResult: либо готовый черновик, либо ошибка строки.
type RowResult[T any] struct {
	Value T
	Err   *RowError
}

func (r RowResult[T]) OK() bool { return r.Err == nil }

// BatchOutcome: ответ слоя хранения на одну пачку.
type BatchOutcome struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// ImportResult: итог импорта. success + failed == total.
type ImportResult struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

type Validation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

type Suggestion struct {
	Field string  `json:"field"`
	Score float64 `json:"score"`
}

// ===== статусы =====

type SystemStatus string

const (
	StatusOpen       SystemStatus = "OPEN"
	StatusInProgress SystemStatus = "IN_PROGRESS"
	StatusResolved   SystemStatus = "RESOLVED"
	StatusClosed     SystemStatus = "CLOSED"
)

func IsSystemStatus(s string) bool {
	switch SystemStatus(s) {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

type StatusKind string

const (
	StatusKindSystem StatusKind = "system"
	StatusKindCustom StatusKind = "custom"
)

// Status: либо системный статус, либо ссылка на пользовательский.
type Status struct {
	Kind     StatusKind   `json:"kind"`
	System   SystemStatus `json:"value,omitempty"`
	CustomID int64        `json:"id,omitempty"`
	// имя пользовательского статуса, для экспорта
	CustomName string `json:"name,omitempty"`
}

func SystemStatusOf(s SystemStatus) Status { return Status{Kind: StatusKindSystem, System: s} }

func CustomStatusOf(id int64, name string) Status {
	return Status{Kind: StatusKindCustom, CustomID: id, CustomName: name}
}

func (s Status) String() string {
	if s.Kind == StatusKindCustom {
		return s.CustomName
	}
	return string(s.System)
}

// ===== сохранённые записи (для экспорта) =====

type CustomerRecord struct {
	ID            int64
	TenantID      uuid.UUID
	FirstName     string
	LastName      string
	Email         string
	PhoneNumber   string
	Address       string
	PostalCode    string
	City          string
	Country       string
	ExternalID    string
	DateOfBirth   *time.Time
	Newsletter    bool
	Loyal         bool
	DynamicFields map[string]any
	CreatedAt     time.Time
	// заполняется только при выгрузке со связями; nil = связь не загружена
	Tickets []TicketRef
}

type TicketRef struct {
	ID int64
}

type MessageRef struct {
	ID        int64
	CreatedAt time.Time
}

type TicketRecord struct {
	ID                int64
	TenantID          uuid.UUID
	Title             string
	Description       string
	Status            Status
	DueDate           *time.Time
	TicketTypeName    string
	CustomerID        int64
	CustomerEmail     string
	CustomerName      string
	DynamicFields     map[string]any
	CreatedAt         time.Time
	AssignedUserEmail string
	Messages          []MessageRef
}
