package notification

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"
)

var (
	verificationTemplate = template.Must(template.New("verification").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome, {{.Name}}!</h2>
  <p>Please confirm your email address to finish setting up your account.</p>
  <p><a href="{{.VerifyURL}}">Verify email</a></p>
  {{if .SetupURL}}<p>An account was created for you at checkout. Choose a password to start using it:</p>
  <p><a href="{{.SetupURL}}">Complete account setup</a></p>{{end}}
  <p>This link expires in {{.ExpiresIn}}.</p>
</div>`))

	orderTemplate = template.Must(template.New("order").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Thank you for your order, {{.Name}}!</h2>
  <p>Order number: <strong>{{.OrderNumber}}</strong></p>
  <p>Items: {{.ItemCount}}</p>
  <p>Total: {{.Total}}</p>
  <p><a href="{{.OrdersURL}}">View your orders</a></p>
</div>`))

	statusTemplate = template.Must(template.New("status").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Hello {{.Name}},</h2>
  <p>Your order <strong>{{.OrderNumber}}</strong> is now <strong>{{.Status}}</strong>.</p>
  <p><a href="{{.OrdersURL}}">View your orders</a></p>
</div>`))

	cancelledTemplate = template.Must(template.New("cancelled").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Hello {{.Name}},</h2>
  <p>Your order <strong>{{.OrderNumber}}</strong> has been {{.Status}}.</p>
  <p><a href="{{.OrdersURL}}">View your orders</a></p>
</div>`))
)

type verificationView struct {
	Name      string
	VerifyURL string
	SetupURL  string
	ExpiresIn string
}

type orderView struct {
	Name        string
	OrderNumber string
	ItemCount   int
	Total       string
	OrdersURL   string
}

type statusView struct {
	Name        string
	OrderNumber string
	Status      string
	OrdersURL   string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// link builds siteURL + path with the given query parameters
func link(siteURL, path string, query url.Values) string {
	u := strings.TrimRight(siteURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
