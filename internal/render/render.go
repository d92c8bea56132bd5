// Package render formats payments into printable HTML notices and receipts and
// writes CSV exports of schedules and investor positions.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var ErrNotPaid = errors.New("payment has not been collected")

// Issuer is the company printed in the header of every document
type Issuer struct {
	Name    string
	Address string
}

// Document holds everything printed on a notice or receipt
type Document struct {
	DevelopmentName string
	Address         string
	ClientName      string
	ContactName     string
	Period          string
	PeriodIndex     int
	DurationMonths  int
	DueDate         time.Time
	Amount          decimal.Decimal
	Overdue         bool
	PaidAt          *time.Time
	Method          string
	Reference       string
	CollectedBy     string
	IssuedAt        time.Time
}

// Renderer holds the parsed document templates. It is safe for concurrent use.
type Renderer struct {
	issuer  Issuer
	notice  *template.Template
	receipt *template.Template
}

var funcs = template.FuncMap{
	"money": FormatMoney,
	"date":  func(t time.Time) string { return t.Format(dateLayout) },
	"inc":   func(i int) int { return i + 1 },
}

func New(issuer Issuer) (*Renderer, error) {
	notice, err := template.New("notice").Funcs(funcs).Parse(layout + noticeBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notice template: %w", err)
	}
	receipt, err := template.New("receipt").Funcs(funcs).Parse(layout + receiptBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse receipt template: %w", err)
	}
	return &Renderer{issuer: issuer, notice: notice, receipt: receipt}, nil
}

type page struct {
	Title  string
	Issuer Issuer
	Doc    Document
}

// PaymentNotice writes the notice asking the client to pay a scheduled payment
func (r *Renderer) PaymentNotice(w io.Writer, doc Document) error {
	return r.execute(w, r.notice, page{Title: "Payment notice", Issuer: r.issuer, Doc: doc})
}

// Receipt writes the proof of a collected payment
func (r *Renderer) Receipt(w io.Writer, doc Document) error {
	if doc.PaidAt == nil {
		return ErrNotPaid
	}
	return r.execute(w, r.receipt, page{Title: "Payment receipt", Issuer: r.issuer, Doc: doc})
}

// execute renders into a buffer so a template error never leaves half a document in w
func (r *Renderer) execute(w io.Writer, tmpl *template.Template, data page) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// FormatMoney prints an amount with two decimals and thousands separators, e.g. $12,500.00
func FormatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "$" + b.String() + "." + frac
}

const layout = `{{define "header"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} {{.Doc.Period}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
header { border-bottom: 2px solid #222; margin-bottom: 1.5em; }
table { border-collapse: collapse; width: 100%; }
td { padding: .4em; border-bottom: 1px solid #ddd; }
td.label { width: 35%; color: #555; }
.total { font-size: 1.4em; font-weight: bold; }
.overdue { color: #b00020; font-weight: bold; }
</style>
</head>
<body>
<header>
<h1>{{.Issuer.Name}}</h1>
{{with .Issuer.Address}}<p>{{.}}</p>{{end}}
<h2>{{.Title}}</h2>
</header>
<table>
<tr><td class="label">Development</td><td>{{.Doc.DevelopmentName}}</td></tr>
{{with .Doc.Address}}<tr><td class="label">Address</td><td>{{.}}</td></tr>{{end}}
{{with .Doc.ClientName}}<tr><td class="label">Client</td><td>{{.}}</td></tr>{{end}}
{{with .Doc.ContactName}}<tr><td class="label">Contact</td><td>{{.}}</td></tr>{{end}}
<tr><td class="label">Period</td><td>{{.Doc.Period}} ({{inc .Doc.PeriodIndex}} of {{.Doc.DurationMonths}})</td></tr>
{{end}}
{{define "footer"}}</table>
<footer><p>Issued {{date .Doc.IssuedAt}}</p></footer>
</body>
</html>
{{end}}`

const noticeBody = `{{template "header" .}}
<tr><td class="label">Due date</td><td>{{date .Doc.DueDate}}{{if .Doc.Overdue}} <span class="overdue">OVERDUE</span>{{end}}</td></tr>
<tr><td class="label">Amount due</td><td class="total">{{money .Doc.Amount}}</td></tr>
{{template "footer" .}}`

const receiptBody = `{{template "header" .}}
<tr><td class="label">Due date</td><td>{{date .Doc.DueDate}}</td></tr>
<tr><td class="label">Paid on</td><td>{{date .Doc.PaidAt}}</td></tr>
{{with .Doc.Method}}<tr><td class="label">Method</td><td>{{.}}</td></tr>{{end}}
{{with .Doc.Reference}}<tr><td class="label">Reference</td><td>{{.}}</td></tr>{{end}}
{{with .Doc.CollectedBy}}<tr><td class="label">Received by</td><td>{{.}}</td></tr>{{end}}
<tr><td class="label">Amount paid</td><td class="total">{{money .Doc.Amount}}</td></tr>
{{template "footer" .}}`
