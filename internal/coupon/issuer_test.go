package coupon

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hamropasal/backend-storefront/internal/events"
)

type stubStore struct {
	replaced []Coupon
	active   Coupon
	err      error
}

func (s *stubStore) GetActive(ctx context.Context, code string, userID uuid.UUID) (Coupon, error) {
	if s.err != nil {
		return Coupon{}, s.err
	}
	return s.active, nil
}

func (s *stubStore) Deactivate(ctx context.Context, code string, userID uuid.UUID) error {
	return s.err
}

func (s *stubStore) ReplaceForUser(ctx context.Context, c Coupon) (Coupon, error) {
	if s.err != nil {
		return Coupon{}, s.err
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	s.replaced = append(s.replaced, c)
	return c, nil
}

func TestIssueForMintsGiftCode(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &stubStore{}
	issuer := &Issuer{
		Store:    store,
		Percent:  10,
		Validity: 30 * 24 * time.Hour,
		Log:      zerolog.Nop(),
		Now:      func() time.Time { return now },
	}

	userID := uuid.New()
	c, err := issuer.IssueFor(context.Background(), userID)
	if err != nil {
		t.Fatalf("IssueFor: %v", err)
	}
	if !strings.HasPrefix(c.Code, "GIFT") || len(c.Code) != len("GIFT")+6 {
		t.Fatalf("code = %q, want GIFT prefix plus 6 characters", c.Code)
	}
	for _, r := range c.Code[len("GIFT"):] {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("code %q contains character outside alphabet", c.Code)
		}
	}
	if c.DiscountPercentage != 10 {
		t.Fatalf("percent = %d, want 10", c.DiscountPercentage)
	}
	if !c.IsActive {
		t.Fatal("issued coupon should be active")
	}
	if want := now.Add(30 * 24 * time.Hour); !c.ExpiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", c.ExpiresAt, want)
	}
	if len(store.replaced) != 1 || store.replaced[0].UserID != userID {
		t.Fatalf("ReplaceForUser calls = %+v", store.replaced)
	}
}

func TestIssueForDefaults(t *testing.T) {
	store := &stubStore{}
	issuer := &Issuer{Store: store, Log: zerolog.Nop()}

	c, err := issuer.IssueFor(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("IssueFor: %v", err)
	}
	if c.DiscountPercentage != 10 {
		t.Fatalf("default percent = %d, want 10", c.DiscountPercentage)
	}
	if remaining := time.Until(c.ExpiresAt); remaining < 29*24*time.Hour {
		t.Fatalf("default validity too short: %v", remaining)
	}
}

func TestGeneratedCodesVary(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode: %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate code %q after %d draws", code, i)
		}
		seen[code] = true
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	c := Coupon{ExpiresAt: now.Add(-time.Minute)}
	if !c.Expired(now) {
		t.Fatal("past coupon should be expired")
	}
	c.ExpiresAt = now.Add(time.Minute)
	if c.Expired(now) {
		t.Fatal("future coupon should not be expired")
	}
}

type memEventStore struct {
	inserted []events.Event
}

func (s *memEventStore) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	s.inserted = append(s.inserted, ev)
	return ev, nil
}

func TestIssueForEmitsCouponIssuedEvent(t *testing.T) {
	store := &stubStore{}
	evStore := &memEventStore{}
	issuer := &Issuer{
		Store: store,
		Bus:   &events.Bus{Store: evStore},
		Log:   zerolog.Nop(),
	}

	userID := uuid.New()
	c, err := issuer.IssueFor(context.Background(), userID)
	if err != nil {
		t.Fatalf("IssueFor: %v", err)
	}
	if len(evStore.inserted) != 1 {
		t.Fatalf("events emitted = %d, want 1", len(evStore.inserted))
	}
	ev := evStore.inserted[0]
	if ev.Topic != events.TopicCouponIssued {
		t.Fatalf("topic = %q, want %q", ev.Topic, events.TopicCouponIssued)
	}
	if ev.AggregateID != c.ID {
		t.Fatalf("aggregate = %s, want coupon id %s", ev.AggregateID, c.ID)
	}
	var payload map[string]string
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["code"] != c.Code || payload["userId"] != userID.String() {
		t.Fatalf("payload = %v", payload)
	}
}

func TestIssueForSucceedsWithoutBus(t *testing.T) {
	issuer := &Issuer{Store: &stubStore{}, Log: zerolog.Nop()}
	if _, err := issuer.IssueFor(context.Background(), uuid.New()); err != nil {
		t.Fatalf("IssueFor: %v", err)
	}
}
