package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"

	"ideaforge/entity"
	"ideaforge/internal/codestore"
)

type fakeStore struct {
	allocated   string
	allocateErr error
	resolveRec  *entity.CodeRecord
	resolveErr  error
}

func (f *fakeStore) Allocate(_ context.Context) (string, error) {
	return f.allocated, f.allocateErr
}

func (f *fakeStore) SaveSession(_ context.Context, state *entity.SessionState) (*entity.CodeRecord, error) {
	rec := &entity.CodeRecord{}
	rec.ApplySession(state, "2026-08-29T10:00:00Z")
	return rec, nil
}

func (f *fakeStore) Resolve(_ context.Context, _ string) (*entity.CodeRecord, error) {
	return f.resolveRec, f.resolveErr
}

type fakePayments struct {
	code    string
	payment *entity.Payment
	err     error
}

func (f *fakePayments) CreateCheckout(_ *entity.CheckoutRequest, code string) (*entity.Payment, error) {
	f.code = code
	return f.payment, f.err
}

func (f *fakePayments) VerifySignature(_ []byte, _ string, _ time.Duration) bool { return true }

func (f *fakePayments) HandleEvent(_ context.Context, _ *stripe.Event) {}

func newCore(store codestore.Store) *Core {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewPanicsWithoutStore(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on nil store")
		}
	}()
	newCore(nil)
}

func TestResolveCodeUnknownIsNotAnError(t *testing.T) {
	c := newCore(&fakeStore{resolveErr: codestore.ErrNotFound})

	view, err := c.ResolveCode(context.Background(), "ZZZZ")
	if err != nil {
		t.Fatalf("unknown code must not error: %v", err)
	}
	if view.Valid {
		t.Error("unknown code must resolve to an invalid view")
	}
}

func TestResolveCodeStorageErrorPropagates(t *testing.T) {
	boom := errors.New("disk gone")
	c := newCore(&fakeStore{resolveErr: boom})

	if _, err := c.ResolveCode(context.Background(), "ABCD"); !errors.Is(err, boom) {
		t.Errorf("expected storage error, got %v", err)
	}
}

func TestCreateCheckoutReservesThenPays(t *testing.T) {
	payments := &fakePayments{payment: &entity.Payment{SessionId: "cs_1", Link: "https://pay"}}
	c := newCore(&fakeStore{allocated: "DEV-A7K9"})
	c.SetPayments(payments)

	payment, err := c.CreateCheckout(context.Background(), &entity.CheckoutRequest{ProjectId: "p1", ProjectName: "My App"})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if payments.code != "DEV-A7K9" {
		t.Errorf("reserved code not passed to payments: %q", payments.code)
	}
	if payment.SessionId != "cs_1" {
		t.Errorf("payment = %+v", payment)
	}
}

func TestCreateCheckoutNoCodesLeft(t *testing.T) {
	c := newCore(&fakeStore{allocateErr: codestore.ErrNoneAvailable})
	c.SetPayments(&fakePayments{})

	if _, err := c.CreateCheckout(context.Background(), &entity.CheckoutRequest{ProjectId: "p1", ProjectName: "X"}); !errors.Is(err, codestore.ErrNoneAvailable) {
		t.Errorf("expected ErrNoneAvailable, got %v", err)
	}
}

func TestCreateCheckoutStripeFailure(t *testing.T) {
	boom := errors.New("stripe down")
	c := newCore(&fakeStore{allocated: "DEV-A7K9"})
	c.SetPayments(&fakePayments{err: boom})

	if _, err := c.CreateCheckout(context.Background(), &entity.CheckoutRequest{ProjectId: "p1", ProjectName: "X"}); !errors.Is(err, boom) {
		t.Errorf("expected stripe error, got %v", err)
	}
}

func TestServicesNotConnected(t *testing.T) {
	c := newCore(&fakeStore{})

	if _, err := c.CreateCheckout(context.Background(), &entity.CheckoutRequest{}); err == nil {
		t.Error("checkout must fail without payments")
	}
	if c.StripeVerifySignature(nil, "", time.Minute) {
		t.Error("signature must not verify without payments")
	}
	if _, err := c.SearchOpportunities(context.Background(), &entity.SearchCriteria{}); err == nil {
		t.Error("search must fail without advisor")
	}
	if _, err := c.DevelopmentGuide(context.Background(), &entity.GuideRequest{}); err == nil {
		t.Error("guide must fail without advisor")
	}
}
