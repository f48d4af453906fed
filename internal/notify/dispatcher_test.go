package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"

	"github.com/rgi-trading/procure/internal/order"
	"github.com/rgi-trading/procure/internal/quotation"
	"github.com/rgi-trading/procure/internal/shared"
	"github.com/rgi-trading/procure/jobs"
)

type mockDirectory struct {
	users      map[int64]Recipient
	privileged []string
}

func (m *mockDirectory) RecipientOf(_ context.Context, userID int64) (Recipient, error) {
	rec, ok := m.users[userID]
	if !ok {
		return Recipient{}, errors.New("no such user")
	}
	return rec, nil
}

func (m *mockDirectory) PrivilegedEmails(context.Context) ([]string, error) {
	out := make([]string, len(m.privileged))
	copy(out, m.privileged)
	return out, nil
}

type mockEnqueuer struct {
	sent []jobs.SendEmailPayload
	err  error
}

func (m *mockEnqueuer) EnqueueSendEmail(_ context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.sent = append(m.sent, payload)
	return &asynq.TaskInfo{}, nil
}

func recipients(sent []jobs.SendEmailPayload) []string {
	var out []string
	for _, p := range sent {
		out = append(out, p.To)
	}
	return out
}

func newTestDispatcher() (*Dispatcher, *mockEnqueuer) {
	directory := &mockDirectory{
		users:      map[int64]Recipient{7: {Email: "requester@rgi.example", Role: shared.RoleEmployee}},
		privileged: []string{"manager@rgi.example", "requester@rgi.example", "super@rgi.example"},
	}
	enqueuer := &mockEnqueuer{}
	return NewDispatcher(directory, enqueuer, slog.Default()), enqueuer
}

func TestQuotationTransitionAudiences(t *testing.T) {
	q := quotation.Quotation{ID: 1, RequesterID: 7, GrandTotal: 1500}

	t.Run("requester", func(t *testing.T) {
		d, enq := newTestDispatcher()
		d.QuotationTransition(context.Background(), q, quotation.StatusWaiting, quotation.StatusNegotiation, quotation.NotifyRequester)
		assert.Equal(t, []string{"requester@rgi.example"}, recipients(enq.sent))
	})

	t.Run("privileged excludes requester", func(t *testing.T) {
		d, enq := newTestDispatcher()
		d.QuotationTransition(context.Background(), q, quotation.StatusNegotiation, quotation.StatusRenegotiation, quotation.NotifyPrivileged)
		assert.Equal(t, []string{"manager@rgi.example", "super@rgi.example"}, recipients(enq.sent))
	})

	t.Run("all", func(t *testing.T) {
		d, enq := newTestDispatcher()
		d.QuotationTransition(context.Background(), q, quotation.StatusNegotiation, quotation.StatusProcess, quotation.NotifyAll)
		assert.ElementsMatch(t,
			[]string{"requester@rgi.example", "manager@rgi.example", "super@rgi.example"},
			recipients(enq.sent))
	})

	t.Run("none", func(t *testing.T) {
		d, enq := newTestDispatcher()
		d.QuotationTransition(context.Background(), q, quotation.StatusWaiting, quotation.StatusWaiting, quotation.NotifyNone)
		assert.Empty(t, enq.sent)
	})
}

func TestQuotationTransitionSkipsSuperadminRequester(t *testing.T) {
	q := quotation.Quotation{ID: 1, RequesterID: 7, GrandTotal: 1500}
	newSuperadminDispatcher := func() (*Dispatcher, *mockEnqueuer) {
		directory := &mockDirectory{
			users:      map[int64]Recipient{7: {Email: "super@rgi.example", Role: shared.RoleSuperadmin}},
			privileged: []string{"manager@rgi.example", "super@rgi.example"},
		}
		enqueuer := &mockEnqueuer{}
		return NewDispatcher(directory, enqueuer, slog.Default()), enqueuer
	}

	t.Run("no requester notification", func(t *testing.T) {
		d, enq := newSuperadminDispatcher()
		d.QuotationTransition(context.Background(), q, quotation.StatusWaiting, quotation.StatusNegotiation, quotation.NotifyRequester)
		assert.Empty(t, enq.sent)
	})

	t.Run("still excluded from privileged fan-out", func(t *testing.T) {
		d, enq := newSuperadminDispatcher()
		d.QuotationTransition(context.Background(), q, quotation.StatusNegotiation, quotation.StatusRenegotiation, quotation.NotifyPrivileged)
		assert.Equal(t, []string{"manager@rgi.example"}, recipients(enq.sent))
	})
}

func TestOrderReadyForApprovalGoesToManagers(t *testing.T) {
	d, enq := newTestDispatcher()

	d.OrderReadyForApproval(context.Background(), order.SalesOrder{OrderNumber: "SO-1", CompanyName: "PT Mitra", GrandTotal: 55})

	assert.Equal(t,
		[]string{"manager@rgi.example", "requester@rgi.example", "super@rgi.example"},
		recipients(enq.sent))
	assert.Contains(t, enq.sent[0].Subject, "SO-1")
}

func TestEnqueueFailureIsSwallowed(t *testing.T) {
	d, enq := newTestDispatcher()
	enq.err = errors.New("redis down")

	d.OrderReadyForApproval(context.Background(), order.SalesOrder{OrderNumber: "SO-1"})

	assert.Empty(t, enq.sent)
}
