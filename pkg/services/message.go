package services

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/containerhouse/leadrelay/pkg/models"
)

var leadEmailTemplate = template.Must(template.New("lead").Parse(`<h2>Nuevo lead desde Shopify</h2>
<table cellpadding="4" cellspacing="0" border="1">
<tr><td><b>Nombre</b></td><td>{{.Name}}</td></tr>
<tr><td><b>Email</b></td><td>{{.Email}}</td></tr>
<tr><td><b>Teléfono</b></td><td>{{.Phone}}</td></tr>
<tr><td><b>Modelo</b></td><td>{{.Metafields.Model}}</td></tr>
<tr><td><b>Precio</b></td><td>{{.Metafields.Price}}</td></tr>
<tr><td><b>Descripción</b></td><td>{{.Metafields.Description}}</td></tr>
<tr><td><b>Plano</b></td><td>{{if .PlanLink}}<a href="{{.PlanLink}}">{{.PlanLink}}</a>{{else}}{{.Metafields.PlanURL}}{{end}}</td></tr>
<tr><td><b>Dirección</b></td><td>{{.Metafields.Address}}</td></tr>
<tr><td><b>Presupuesto</b></td><td>{{.Metafields.Budget}}</td></tr>
<tr><td><b>Tipo de persona</b></td><td>{{.Metafields.PersonType}}</td></tr>
<tr><td><b>ID Shopify</b></td><td>{{.CustomerID}}</td></tr>
</table>`))

type leadEmailData struct {
	Name       string
	Email      string
	Phone      string
	CustomerID string
	PlanLink   string
	Metafields models.Metafields
}

// BuildLeadNotification formats the notification for an enriched profile
func BuildLeadNotification(p models.EnrichedProfile, recipients, tags []string) (models.Notification, error) {
	data := leadEmailData{
		Name:       orDefault(p.FullName(), "Sin nombre"),
		Email:      p.Email,
		Phone:      displayPhone(p),
		CustomerID: p.ID.String(),
		Metafields: p.Metafields,
	}
	if strings.HasPrefix(p.Metafields.PlanURL, "http://") || strings.HasPrefix(p.Metafields.PlanURL, "https://") {
		data.PlanLink = p.Metafields.PlanURL
	}

	var html bytes.Buffer
	if err := leadEmailTemplate.Execute(&html, data); err != nil {
		return models.Notification{}, fmt.Errorf("error rendering notification: %w", err)
	}

	text := fmt.Sprintf("Nuevo lead: %s\nEmail: %s\nTeléfono: %s\nModelo: %s\nPrecio: %s\nDescripción: %s\nPlano: %s\nDirección: %s\nPresupuesto: %s\nTipo de persona: %s\n",
		data.Name, data.Email, data.Phone,
		p.Metafields.Model, p.Metafields.Price, p.Metafields.Description, p.Metafields.PlanURL,
		p.Metafields.Address, p.Metafields.Budget, p.Metafields.PersonType,
	)

	return models.Notification{
		Subject:    fmt.Sprintf("Nuevo lead: %s (%s)", data.Name, p.Metafields.Model),
		HTMLBody:   html.String(),
		TextBody:   text,
		Recipients: recipients,
		Tags:       tags,
	}, nil
}

// BuildTestNotification is the message sent by the debug endpoint and CLI
func BuildTestNotification(to string) models.Notification {
	return models.Notification{
		Subject:    "Prueba de notificación",
		HTMLBody:   "<p>Hola, prueba directa desde el servidor.</p>",
		TextBody:   "Hola, prueba directa desde el servidor.",
		Recipients: []string{to},
		Tags:       []string{"debug"},
	}
}

func displayPhone(p models.EnrichedProfile) string {
	if p.PhoneValid {
		return p.NormalizedPhone
	}
	if p.CustomerEvent.Phone != "" {
		return p.CustomerEvent.Phone + " (no válido)"
	}
	return "Sin teléfono"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
