package models

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/containerhouse/leadrelay/pkg/errors"
)

// CustomerID is the Shopify customer identifier. Shopify sends it as a JSON
// number; manual replays often send it as a string, so both are accepted.
type CustomerID string

// UnmarshalJSON accepts either a JSON string or a JSON number
func (id *CustomerID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = CustomerID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("customer id must be a string or number: %w", err)
	}
	*id = CustomerID(n.String())
	return nil
}

// String returns the identifier as sent by the webhook
func (id CustomerID) String() string {
	return string(id)
}

// CustomerEvent represents the customer webhook payload coming from Shopify
type CustomerEvent struct {
	ID        CustomerID `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone"`
}

// Validate requires the customer id and the email
func (e CustomerEvent) Validate() error {
	if e.ID == "" {
		return &apperrors.ErrValidation{Field: "id"}
	}
	if strings.TrimSpace(e.Email) == "" {
		return &apperrors.ErrValidation{Field: "email"}
	}
	return nil
}

// Metafields holds the resolved custom fields of a customer. Every field is
// either a real value or a sentinel, never empty.
type Metafields struct {
	Model       string `json:"model"`
	Price       string `json:"price"`
	Description string `json:"description"`
	PlanURL     string `json:"plan_url"`
	Address     string `json:"address"`
	Budget      string `json:"budget"`
	PersonType  string `json:"person_type"`
}

// EnrichedProfile is the customer event plus everything looked up for it
type EnrichedProfile struct {
	CustomerEvent
	Metafields Metafields `json:"metafields"`

	// NormalizedPhone is empty when PhoneValid is false
	NormalizedPhone string `json:"normalized_phone,omitempty"`
	PhoneValid      bool   `json:"phone_valid"`
}

// FullName joins first and last name, skipping empty parts
func (p EnrichedProfile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}
