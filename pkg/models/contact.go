package models

// Brevo contact attribute names
const (
	AttrFirstName   = "NOMBRE"
	AttrLastName    = "APELLIDOS"
	AttrSMS         = "SMS"
	AttrWhatsApp    = "WHATSAPP"
	AttrModel       = "MODELO"
	AttrPrice       = "PRECIO"
	AttrDescription = "DESCRIPCION"
	AttrPlanURL     = "PLANO_URL"
	AttrAddress     = "DIRECCION"
	AttrBudget      = "PRESUPUESTO"
	AttrPersonType  = "TIPO_PERSONA"
	AttrShopifyID   = "SHOPIFY_ID"
)

// PhoneAttributes are the attributes derived from the phone number
var PhoneAttributes = []string{AttrSMS, AttrWhatsApp}

// ContactAttributes maps Brevo attribute names to values
type ContactAttributes map[string]string

// NewContactAttributes derives the Brevo attributes for a profile. The phone
// attributes are only set when the phone normalized successfully.
func NewContactAttributes(p EnrichedProfile) ContactAttributes {
	attrs := ContactAttributes{
		AttrFirstName:   p.FirstName,
		AttrLastName:    p.LastName,
		AttrShopifyID:   p.ID.String(),
		AttrModel:       p.Metafields.Model,
		AttrPrice:       p.Metafields.Price,
		AttrDescription: p.Metafields.Description,
		AttrPlanURL:     p.Metafields.PlanURL,
		AttrAddress:     p.Metafields.Address,
		AttrBudget:      p.Metafields.Budget,
		AttrPersonType:  p.Metafields.PersonType,
	}
	if p.PhoneValid && p.NormalizedPhone != "" {
		attrs[AttrSMS] = p.NormalizedPhone
		attrs[AttrWhatsApp] = p.NormalizedPhone
	}
	return attrs.Compact()
}

// Compact returns a copy without empty values
func (a ContactAttributes) Compact() ContactAttributes {
	out := make(ContactAttributes, len(a))
	for k, v := range a {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// WithoutPhone returns a copy with every phone-derived attribute removed
func (a ContactAttributes) WithoutPhone() ContactAttributes {
	out := make(ContactAttributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	for _, k := range PhoneAttributes {
		delete(out, k)
	}
	return out
}

// UpsertAction tags what the contact upsert did
type UpsertAction string

const (
	ActionCreated UpsertAction = "created"
	ActionUpdated UpsertAction = "updated"
	ActionFailed  UpsertAction = "failed"
)

// UpsertResult is the outcome of a contact upsert
type UpsertResult struct {
	Success      bool         `json:"success"`
	Action       UpsertAction `json:"action"`
	StatusCode   int          `json:"status_code,omitempty"`
	Body         string       `json:"body,omitempty"`
	Error        string       `json:"error,omitempty"`
	PhoneDropped bool         `json:"phone_dropped,omitempty"`
}
