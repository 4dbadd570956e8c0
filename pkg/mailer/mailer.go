// Package mailer renders and sends the operator order-confirmation email.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"boutique/internal/models"

	gomail "gopkg.in/gomail.v2"
)

// Config holds SMTP connection details and the fixed operator address every
// confirmation is sent to.
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	OperatorEmail string
}

// Mailer sends order confirmations over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	cfg    Config
	tmpl   *template.Template
}

// New creates a new Mailer.
func New(cfg Config) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
		tmpl:   template.Must(template.New("order").Parse(orderEmailTemplate)),
	}
}

// SendOrderConfirmation renders the confirmation for the given order and
// sends it to the operator address.
func (m *Mailer) SendOrderConfirmation(n models.OrderNotification) error {
	body, err := m.render(n)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.OperatorEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Nouvelle commande reçue - %s", n.OrderCode))
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send order email: %w", err)
	}
	return nil
}

func (m *Mailer) render(n models.OrderNotification) (string, error) {
	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, n); err != nil {
		return "", fmt.Errorf("failed to render order email: %w", err)
	}
	return body.String(), nil
}

const orderEmailTemplate = `<!DOCTYPE html>
<html lang="fr">
<head>
  <meta charset="UTF-8">
  <title>Nouvelle Commande</title>
</head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto;">
  <div style="background: #1e6f41; color: white; padding: 24px; text-align: center;">
    <h1>Nouvelle commande reçue</h1>
  </div>
  <div style="padding: 24px; background: #f8f9fa;">
    <p><strong>Numéro de commande :</strong> {{.OrderCode}}</p>
    <p><strong>Client :</strong> {{.CustomerName}} ({{.CustomerEmail}})</p>
    <p><strong>Date de commande :</strong> {{.OrderDate}}</p>

    <h3>Produits commandés</h3>
    <table style="width: 100%; border-collapse: collapse;">
      <thead>
        <tr>
          <th style="text-align: left; border-bottom: 1px solid #ddd;">Produit</th>
          <th style="text-align: left; border-bottom: 1px solid #ddd;">Prix unitaire</th>
          <th style="text-align: left; border-bottom: 1px solid #ddd;">Quantité</th>
          <th style="text-align: left; border-bottom: 1px solid #ddd;">Sous-total</th>
        </tr>
      </thead>
      <tbody>
        {{range .Products}}
        <tr>
          <td>{{.Name}}</td>
          <td>{{printf "%.2f" .Price}}</td>
          <td>{{.Quantity}}</td>
          <td>{{printf "%.2f" .Subtotal}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <p style="background: #1e6f41; color: white; padding: 12px; text-align: center; font-weight: bold;">
      Total de la commande : {{printf "%.2f" .TotalPrice}}
    </p>

    <h3>Adresse de livraison</h3>
    <p><strong>Rue :</strong> {{.Address.Street}}</p>
    <p><strong>Ville :</strong> {{.Address.City}}</p>
    <p><strong>Code postal :</strong> {{.Address.Zip}}</p>
    <p><strong>Téléphone :</strong> {{.Address.Phone}}</p>
    {{if .Address.Note}}<p><strong>Notes :</strong> {{.Address.Note}}</p>{{end}}

    <p>Veuillez traiter cette commande dans les plus brefs délais.</p>
  </div>
</body>
</html>`
