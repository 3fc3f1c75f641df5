package model

import (
	"encoding/json"
	"time"
)

type ThemeID string

const (
	ThemeDark      ThemeID = "dark"
	ThemeLight     ThemeID = "light"
	ThemeCyberpunk ThemeID = "cyberpunk"
	ThemeMatrix    ThemeID = "matrix"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeveritySuccess, SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

type Notification struct {
	ID        uint64    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultSubject is used when a contact form is submitted without a subject.
const DefaultSubject = "No subject"

// MaxContactBytes caps the JSON-encoded size of a contact submission.
const MaxContactBytes = 64 * 1024

type ContactFields struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// PendingContact is a submission held in the local fallback queue.
type PendingContact struct {
	ContactFields
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactRecord is one line of the backend's append-only contact log.
type ContactRecord struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
}

type PageView struct {
	ID         string          `json:"id"`
	Page       string          `json:"page"`
	Referrer   string          `json:"referrer"`
	ScreenSize string          `json:"screenSize,omitempty"`
	ClientTime string          `json:"timestamp,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	RawJSON    json.RawMessage `json:"raw_json,omitempty"`
}

type ProjectView struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type PageCount struct {
	Page  string `json:"page"`
	Views int64  `json:"views"`
}

type HealthStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// Ack is the envelope every write endpoint answers with.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
