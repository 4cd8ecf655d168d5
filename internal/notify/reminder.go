package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatAmount renders amount with its ISO currency code and digit grouping,
// e.g. "KES 1,234.50". Unknown codes fall back to the bare number.
func FormatAmount(amount decimal.Decimal, code string) string {
	f := amount.Round(2).InexactFloat64()
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return printer.Sprintf("%.2f", f)
	}
	return printer.Sprintf("%s %.2f", unit.String(), f)
}

// PaymentReminder is the data behind a landlord payment reminder.
type PaymentReminder struct {
	Email        string
	LandlordName string
	PropertyName string
	DueDate      time.Time
	Amount       decimal.Decimal
	Currency     string
	Overdue      bool
}

// Message renders the reminder as an email.
func (r PaymentReminder) Message() Message {
	amount := FormatAmount(r.Amount, r.Currency)
	due := r.DueDate.Format("2 January 2006")
	subject := fmt.Sprintf("Rent payment due %s for %s", due, r.PropertyName)
	lead := fmt.Sprintf("This is a reminder that a rent payment of %s for %s falls due on %s.", amount, r.PropertyName, due)
	if r.Overdue {
		subject = fmt.Sprintf("Overdue rent payment for %s", r.PropertyName)
		lead = fmt.Sprintf("The rent payment of %s for %s was due on %s and is now overdue.", amount, r.PropertyName, due)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n%s\n\n", r.LandlordName, lead)
	b.WriteString("Reply to this email if the payment has already been settled.\n\nOdyssey Rentals\n")
	return Message{To: r.Email, Subject: subject, Body: b.String()}
}

// InvoiceReminder is the data behind a customer invoicing reminder.
type InvoiceReminder struct {
	Email    string
	Customer string
	Project  string
	DueDate  time.Time
	Amount   decimal.Decimal
	Currency string
	Overdue  bool
}

// Message renders the reminder as an email.
func (r InvoiceReminder) Message() Message {
	amount := FormatAmount(r.Amount, r.Currency)
	due := r.DueDate.Format("2 January 2006")
	subject := fmt.Sprintf("Payment of %s due %s (%s)", amount, due, r.Project)
	lead := fmt.Sprintf("Your instalment of %s for %s falls due on %s.", amount, r.Project, due)
	if r.Overdue {
		subject = fmt.Sprintf("Overdue payment for %s", r.Project)
		lead = fmt.Sprintf("Your instalment of %s for %s was due on %s and has not been received.", amount, r.Project, due)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n%s\n\n", r.Customer, lead)
	b.WriteString("Please disregard this message if payment has already been made.\n\nOdyssey Rentals\n")
	return Message{To: r.Email, Subject: subject, Body: b.String()}
}
