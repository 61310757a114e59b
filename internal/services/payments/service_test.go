package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FnipsDanil/crashTest-sub001/internal/domain/enums"
	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
	redrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/redis"
)

type fakeLinker struct {
	calls int
}

func (f *fakeLinker) CreateInvoiceLink(_ context.Context, _, _, payload string, amount int) (string, error) {
	f.calls++
	return fmt.Sprintf("https://t.me/$%s-%d", payload, amount), nil
}

type stubUsers struct{}

func (stubUsers) GetOrCreate(_ context.Context, telegramID int64, _, _, _, _ string) (pgrepo.UserRecord, error) {
	return pgrepo.UserRecord{ID: 1, TelegramID: telegramID}, nil
}

func (stubUsers) LockByTelegramID(_ context.Context, _ pgx.Tx, telegramID int64) (pgrepo.UserRecord, error) {
	return pgrepo.UserRecord{ID: 1, TelegramID: telegramID}, nil
}

func (stubUsers) ApplyBalanceDelta(context.Context, pgx.Tx, int64, float64, float64) (float64, error) {
	return 0, nil
}

func (stubUsers) RecordDeposit(context.Context, pgx.Tx, int64, float64) error {
	return nil
}

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

func nowFunc() func() time.Time {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return fixed }
}

type fakeTxnStore struct {
	byPayload map[string]pgrepo.TransactionRecord
}

func (f *fakeTxnStore) Insert(context.Context, pgx.Tx, pgrepo.NewTransaction) (int64, error) {
	return 0, nil
}

func (f *fakeTxnStore) FindByPaymentPayload(_ context.Context, payload string) (pgrepo.TransactionRecord, error) {
	record, ok := f.byPayload[payload]
	if !ok {
		return pgrepo.TransactionRecord{}, pgrepo.ErrTransactionNotFound
	}
	return record, nil
}

func newInvoiceStore(t *testing.T) (*miniredis.Miniredis, *redrepo.InvoiceRepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redrepo.NewInvoiceRepo(client)
}

func TestCreateInvoice(t *testing.T) {
	_, invoices := newInvoiceStore(t)
	linker := &fakeLinker{}

	svc := &Service{
		invoices: invoices,
		users:    stubUsers{},
		linker:   linker,
		logger:   nopLogger(),
		now:      nowFunc(),
	}

	invoice, err := svc.CreateInvoice(context.Background(), 42, 50)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if !strings.HasPrefix(invoice.Payload, "deposit_42_") {
		t.Fatalf("unexpected payload %q", invoice.Payload)
	}
	if invoice.Status != enums.InvoiceStatusPending || invoice.Amount != 50 {
		t.Fatalf("unexpected invoice: %+v", invoice)
	}
	if linker.calls != 1 {
		t.Fatalf("expected one invoice link call, got %d", linker.calls)
	}

	stored, err := invoices.Get(context.Background(), invoice.Payload)
	if err != nil {
		t.Fatalf("load stored invoice: %v", err)
	}
	if stored.TelegramID != 42 {
		t.Fatalf("unexpected stored invoice: %+v", stored)
	}
}

func TestCreateInvoiceRejectsAmounts(t *testing.T) {
	_, invoices := newInvoiceStore(t)
	svc := &Service{invoices: invoices, users: stubUsers{}, linker: &fakeLinker{}, logger: nopLogger(), now: nowFunc()}

	for _, amount := range []int{0, -5, 10001} {
		if _, err := svc.CreateInvoice(context.Background(), 42, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestStatusFallsBackToLedger(t *testing.T) {
	mr, invoices := newInvoiceStore(t)
	txns := &fakeTxnStore{byPayload: map[string]pgrepo.TransactionRecord{
		"deposit_42_gone": {Amount: 75, BalanceAfter: 100},
	}}
	svc := &Service{invoices: invoices, txns: txns, logger: nopLogger(), now: nowFunc()}
	ctx := context.Background()

	record := redrepo.InvoiceRecord{
		Payload: "deposit_42_live", TelegramID: 42, Amount: 50,
		Status: enums.InvoiceStatusPending, CreatedAt: nowFunc()(),
	}
	if err := invoices.Put(ctx, record); err != nil {
		t.Fatalf("put invoice: %v", err)
	}

	status, err := svc.Status(ctx, "deposit_42_live")
	if err != nil {
		t.Fatalf("status of live invoice: %v", err)
	}
	if status.Status != enums.InvoiceStatusPending {
		t.Fatalf("expected pending, got %s", status.Status)
	}

	// The redis record for the second payload is gone, but the ledger
	// still proves the payment went through.
	mr.FlushAll()
	status, err = svc.Status(ctx, "deposit_42_gone")
	if err != nil {
		t.Fatalf("status via ledger: %v", err)
	}
	if status.Status != enums.InvoiceStatusPaid || status.Amount != 75 {
		t.Fatalf("unexpected ledger status: %+v", status)
	}

	if _, err := svc.Status(ctx, "deposit_42_unknown"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestApprove(t *testing.T) {
	_, invoices := newInvoiceStore(t)
	svc := &Service{invoices: invoices, logger: nopLogger(), now: nowFunc()}
	ctx := context.Background()

	record := redrepo.InvoiceRecord{
		Payload: "deposit_42_x", TelegramID: 42, Amount: 50,
		Status: enums.InvoiceStatusPending, CreatedAt: nowFunc()(),
	}
	if err := invoices.Put(ctx, record); err != nil {
		t.Fatalf("put invoice: %v", err)
	}

	if ok, _ := svc.Approve(ctx, 42, "deposit_42_x"); !ok {
		t.Fatal("expected approval for pending invoice")
	}
	if ok, msg := svc.Approve(ctx, 99, "deposit_42_x"); ok || msg == "" {
		t.Fatal("expected rejection for foreign invoice")
	}
	if ok, msg := svc.Approve(ctx, 42, "deposit_42_missing"); ok || msg == "" {
		t.Fatal("expected rejection for unknown invoice")
	}

	if _, err := invoices.MarkStatus(ctx, "deposit_42_x", enums.InvoiceStatusPaid); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if ok, _ := svc.Approve(ctx, 42, "deposit_42_x"); ok {
		t.Fatal("expected rejection for already paid invoice")
	}
}
