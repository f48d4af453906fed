package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rgi-trading/procure/internal/invoice"
	"github.com/rgi-trading/procure/internal/order"
	"github.com/rgi-trading/procure/internal/quotation"
	"github.com/rgi-trading/procure/internal/shared"
	"github.com/rgi-trading/procure/jobs"
)

// Recipient is a resolved notification target.
type Recipient struct {
	Email string
	Role  shared.Role
}

// Directory resolves recipients for an event.
type Directory interface {
	RecipientOf(ctx context.Context, userID int64) (Recipient, error)
	PrivilegedEmails(ctx context.Context) ([]string, error)
}

// Enqueuer submits mail tasks. Satisfied by the jobs client.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// Dispatcher turns workflow events into queued emails. Every method is
// fire-and-forget: failures are logged and never propagated, a lost email
// must not fail the transition that caused it.
type Dispatcher struct {
	directory Directory
	enqueuer  Enqueuer
	logger    *slog.Logger
	printer   *message.Printer
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(directory Directory, enqueuer Enqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		directory: directory,
		enqueuer:  enqueuer,
		logger:    logger,
		printer:   message.NewPrinter(language.Indonesian),
	}
}

func (d *Dispatcher) amount(v float64) string {
	return d.printer.Sprintf("Rp %.2f", v)
}

func (d *Dispatcher) send(ctx context.Context, recipients []string, subject, body string) {
	for _, to := range recipients {
		if to == "" {
			continue
		}
		if _, err := d.enqueuer.EnqueueSendEmail(ctx, jobs.SendEmailPayload{To: to, Subject: subject, Body: body}); err != nil {
			d.logger.Warn("enqueue email", slog.String("to", to), slog.Any("error", err))
		}
	}
}

func (d *Dispatcher) recipient(ctx context.Context, userID int64) (Recipient, bool) {
	rec, err := d.directory.RecipientOf(ctx, userID)
	if err != nil {
		d.logger.Warn("resolve recipient", slog.Int64("user_id", userID), slog.Any("error", err))
		return Recipient{}, false
	}
	return rec, true
}

func (d *Dispatcher) privilegedEmails(ctx context.Context, excluding []string) []string {
	emails, err := d.directory.PrivilegedEmails(ctx)
	if err != nil {
		d.logger.Warn("resolve privileged emails", slog.Any("error", err))
		return nil
	}
	skip := make(map[string]bool, len(excluding))
	for _, e := range excluding {
		skip[e] = true
	}
	out := emails[:0]
	for _, e := range emails {
		if !skip[e] {
			out = append(out, e)
		}
	}
	return out
}

// QuotationTransition notifies the audience the negotiation machine picked.
func (d *Dispatcher) QuotationTransition(ctx context.Context, q quotation.Quotation, from, to quotation.Status, audience quotation.Audience) {
	if audience == quotation.NotifyNone {
		return
	}

	var requester, exclude []string
	if rec, ok := d.recipient(ctx, q.RequesterID); ok {
		exclude = []string{rec.Email}
		// Top-tier requesters are not notified of their own negotiation.
		if rec.Role != shared.RoleSuperadmin {
			requester = []string{rec.Email}
		}
	}
	var recipients []string
	switch audience {
	case quotation.NotifyRequester:
		recipients = requester
	case quotation.NotifyPrivileged:
		recipients = d.privilegedEmails(ctx, exclude)
	case quotation.NotifyAll:
		recipients = append(requester, d.privilegedEmails(ctx, exclude)...)
	}

	subject := fmt.Sprintf("Quotation #%d is now %s", q.ID, to)
	body := fmt.Sprintf(
		"Quotation #%d moved from %s to %s (negotiation round %d).\nGrand total: %s.",
		q.ID, from, to, q.NegotiationRound, d.amount(q.GrandTotal))
	d.send(ctx, recipients, subject, body)
}

// OrderReadyForApproval tells the manager tier a sales order is fully
// shipped.
func (d *Dispatcher) OrderReadyForApproval(ctx context.Context, o order.SalesOrder) {
	subject := fmt.Sprintf("Sales order %s awaits approval", o.OrderNumber)
	body := fmt.Sprintf(
		"Sales order %s for %s is fully shipped and awaits approval.\nGrand total: %s.",
		o.OrderNumber, o.CompanyName, d.amount(o.GrandTotal))
	d.send(ctx, d.privilegedEmails(ctx, nil), subject, body)
}

// InvoiceIssued tells the creator of the order an invoice now exists.
func (d *Dispatcher) InvoiceIssued(ctx context.Context, inv invoice.Invoice) {
	subject := fmt.Sprintf("Invoice %s issued", inv.InvoiceNumber)
	body := fmt.Sprintf(
		"Invoice %s was issued to %s.\nAmount due: %s.",
		inv.InvoiceNumber, inv.CompanyName, d.amount(inv.GrandTotal))
	if rec, ok := d.recipient(ctx, inv.CreatedBy); ok {
		d.send(ctx, []string{rec.Email}, subject, body)
	}
}

// InvoicePaid announces settlement to the manager tier.
func (d *Dispatcher) InvoicePaid(ctx context.Context, inv invoice.Invoice) {
	subject := fmt.Sprintf("Invoice %s paid", inv.InvoiceNumber)
	body := fmt.Sprintf(
		"Invoice %s from %s was settled.\nAmount: %s.",
		inv.InvoiceNumber, inv.CompanyName, d.amount(inv.GrandTotal))
	d.send(ctx, d.privilegedEmails(ctx, nil), subject, body)
}
