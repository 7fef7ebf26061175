package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Default values applied to an event configuration when a field is absent
// from the stored JSON document.
const (
	DefaultDateFormat                = "MM/DD/YYYY HH:mm"
	DefaultMaxTicketsPerRegistration = 2
	DefaultTimezone                  = "UTC"
	DefaultCurrency                  = "USD"
)

// Event represents a row of the `events` table.
//
// Fields:
//
//	ID                – primary key identifier.
//	ClubID            – organization that owns the event.
//	Name, Description – display texts.
//	Slug              – unique URL-safe identifier derived from Name.
//	StartDatetime     – start instant (UTC); zero when not yet scheduled.
//	EndDatetime       – end instant (UTC); nil for single-day events.
//	Location          – free-form venue text.
//	Banner            – optional banner file name.
//	Currency          – ISO 4217 currency code for prices.
//	TaxType, TaxAmount – tax settings recorded for the event (percent or fixed).
//	RegistrationCount – number of completed registrations.
//	Config            – typed event configuration, see EventConfig.
type Event struct {
	ID                uint64      `json:"id"`
	ClubID            uint64      `json:"club_id"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	Slug              string      `json:"slug"`
	StartDatetime     time.Time   `json:"start_datetime"`
	EndDatetime       *time.Time  `json:"end_datetime"`
	Location          string      `json:"location"`
	Banner            *string     `json:"banner,omitempty"`
	Currency          string      `json:"currency"`
	TaxType           *string     `json:"tax_type,omitempty"`
	TaxAmount         *int64      `json:"tax_amount,omitempty"`
	CreatedBy         uint64      `json:"created_by"`
	RegistrationCount int         `json:"registration_count"`
	Config            EventConfig `json:"config"`
	CreatedAt         time.Time   `json:"created_at"`
}

// CurrencyOrDefault returns the event currency, falling back to USD.
func (e Event) CurrencyOrDefault() string {
	if c := strings.TrimSpace(e.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return DefaultCurrency
}

// EventConfig is the per-event behaviour switchboard stored as JSON in the
// `events.config` column. It is resolved once at the boundary with defaults
// applied, so downstream code never deals with string-typed booleans.
type EventConfig struct {
	IsAllDay                  bool   `json:"isAllDay"`
	IsSingleDayEvent          bool   `json:"isSingleDayEvent"`
	MaxTicketsPerRegistration int    `json:"maxTicketsPerRegistration" validate:"gte=1,lte=100"`
	SaveAllAttendeesDetails   bool   `json:"saveAllAttendeesDetails"`
	DateFormat                string `json:"dateFormat" validate:"required,max=64"`
	ShowEndTime               bool   `json:"showEndTime"`
	Timezone                  string `json:"timezone" validate:"required,max=64"`
}

// DefaultEventConfig returns the configuration used when nothing is stored.
func DefaultEventConfig() EventConfig {
	return EventConfig{
		IsAllDay:                  false,
		IsSingleDayEvent:          true,
		MaxTicketsPerRegistration: DefaultMaxTicketsPerRegistration,
		SaveAllAttendeesDetails:   false,
		DateFormat:                DefaultDateFormat,
		ShowEndTime:               false,
		Timezone:                  DefaultTimezone,
	}
}

// rawEventConfig mirrors EventConfig with lenient field types. Older rows
// were written by a form that stored booleans as "true"/"false" strings and
// numbers as strings.
type rawEventConfig struct {
	IsAllDay                  *looseBool   `json:"isAllDay"`
	IsSingleDayEvent          *looseBool   `json:"isSingleDayEvent"`
	MaxTicketsPerRegistration *looseInt    `json:"maxTicketsPerRegistration"`
	SaveAllAttendeesDetails   *looseBool   `json:"saveAllAttendeesDetails"`
	DateFormat                *string      `json:"dateFormat"`
	ShowEndTime               *looseBool   `json:"showEndTime"`
	Timezone                  *string      `json:"timezone"`
}

// ParseEventConfig decodes a stored configuration document. Empty input or
// the JSON literal null yields DefaultEventConfig. Missing fields keep their
// defaults; malformed JSON is reported.
func ParseEventConfig(data []byte) (EventConfig, error) {
	cfg := DefaultEventConfig()
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return cfg, nil
	}
	var raw rawEventConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return cfg, err
	}
	if raw.IsAllDay != nil {
		cfg.IsAllDay = bool(*raw.IsAllDay)
	}
	if raw.IsSingleDayEvent != nil {
		cfg.IsSingleDayEvent = bool(*raw.IsSingleDayEvent)
	}
	if raw.MaxTicketsPerRegistration != nil && *raw.MaxTicketsPerRegistration > 0 {
		cfg.MaxTicketsPerRegistration = int(*raw.MaxTicketsPerRegistration)
	}
	if raw.SaveAllAttendeesDetails != nil {
		cfg.SaveAllAttendeesDetails = bool(*raw.SaveAllAttendeesDetails)
	}
	if raw.DateFormat != nil && strings.TrimSpace(*raw.DateFormat) != "" {
		cfg.DateFormat = *raw.DateFormat
	}
	if raw.ShowEndTime != nil {
		cfg.ShowEndTime = bool(*raw.ShowEndTime)
	}
	if raw.Timezone != nil && strings.TrimSpace(*raw.Timezone) != "" {
		cfg.Timezone = strings.TrimSpace(*raw.Timezone)
	}
	return cfg, nil
}

// UnmarshalJSON lets EventConfig be bound straight from request bodies with
// the same leniency and defaults as stored rows.
func (c *EventConfig) UnmarshalJSON(data []byte) error {
	cfg, err := ParseEventConfig(data)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

// Scan implements sql.Scanner for the JSON config column.
func (c *EventConfig) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		data = nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for event config")
	}
	cfg, err := ParseEventConfig(data)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}

// Value implements driver.Valuer so the config can be written back as JSON.
func (c EventConfig) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		*b = true
	case "false", "0", "no", "off", "", "null":
		*b = false
	default:
		return errors.New("invalid boolean value: " + s)
	}
	return nil
}

type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("invalid integer value: " + s)
	}
	*n = looseInt(v)
	return nil
}
