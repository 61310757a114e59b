package bonus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/FnipsDanil/crashTest-sub001/internal/domain/enums"
	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
	redrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/redis"
)

func TestNormalizeChannel(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"public username", "@crash_news", "@crash_news", false},
		{"trimmed", "  @crash_news ", "@crash_news", false},
		{"supergroup id", "-1001234567890", "-1001234567890", false},
		{"missing at sign", "crash_news", "", true},
		{"username too short", "@abc", "", true},
		{"plain negative id", "-12345", "", true},
		{"empty", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeChannel(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidChannel) {
					t.Fatalf("expected ErrInvalidChannel, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeChannel(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeChannel(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCheckAndClaimDisabled(t *testing.T) {
	svc := NewService(Dependencies{Enabled: false})

	if _, err := svc.CheckAndClaim(context.Background(), 42, "@crash_news"); !errors.Is(err, ErrBonusDisabled) {
		t.Fatalf("expected ErrBonusDisabled, got %v", err)
	}
}

type fakeSettings struct {
	values map[string]json.RawMessage
}

func (f *fakeSettings) Get(_ context.Context, key string) (json.RawMessage, error) {
	raw, ok := f.values[key]
	if !ok {
		return nil, pgrepo.ErrSettingNotFound
	}
	return raw, nil
}

func TestBonusAmountOverrides(t *testing.T) {
	svc := NewService(Dependencies{Enabled: true, DefaultAmount: "5.0"})
	ctx := context.Background()

	if got := svc.bonusAmount(ctx, "@crash_news"); got != 5.0 {
		t.Fatalf("expected configured default without settings store, got %v", got)
	}

	svc.settings = &fakeSettings{values: map[string]json.RawMessage{
		"channel_bonus_amounts": json.RawMessage(`{"@crash_news": "7.5", "default": "3.0"}`),
	}}

	if got := svc.bonusAmount(ctx, "@crash_news"); got != 7.5 {
		t.Fatalf("expected per-channel override 7.5, got %v", got)
	}
	if got := svc.bonusAmount(ctx, "@other_chan"); got != 3.0 {
		t.Fatalf("expected settings default 3.0, got %v", got)
	}

	svc.settings = &fakeSettings{values: map[string]json.RawMessage{
		"channel_bonus_amounts": json.RawMessage(`"broken"`),
	}}
	if got := svc.bonusAmount(ctx, "@crash_news"); got != 5.0 {
		t.Fatalf("expected fallback on malformed settings, got %v", got)
	}
}

type bonusStoreStub struct {
	existing  *pgrepo.BonusRecord
	insertErr error
	inserted  int
	attempts  int
}

func (s *bonusStoreStub) Find(context.Context, int64, string) (pgrepo.BonusRecord, error) {
	if s.existing != nil {
		return *s.existing, nil
	}
	return pgrepo.BonusRecord{}, pgrepo.ErrBonusNotFound
}

func (s *bonusStoreStub) Insert(_ context.Context, _ pgx.Tx, userID int64, channelID string, amount float64, verifiedAt time.Time) (pgrepo.BonusRecord, error) {
	if s.insertErr != nil {
		return pgrepo.BonusRecord{}, s.insertErr
	}
	s.inserted++
	return pgrepo.BonusRecord{
		ID:          1,
		UserID:      userID,
		ChannelID:   channelID,
		BonusAmount: amount,
		VerifiedAt:  &verifiedAt,
		ClaimedAt:   verifiedAt,
	}, nil
}

func (s *bonusStoreStub) RecordAttempt(context.Context, int64, string) error {
	s.attempts++
	return nil
}

func (s *bonusStoreStub) ListByUser(context.Context, int64) ([]pgrepo.BonusRecord, error) {
	return nil, nil
}

type userStoreStub struct {
	user           pgrepo.UserRecord
	newBalance     float64
	balanceApplied int
	balanceDelta   float64
}

func (s *userStoreStub) FindByTelegramID(context.Context, int64) (pgrepo.UserRecord, error) {
	return s.user, nil
}

func (s *userStoreStub) LockByTelegramID(context.Context, pgx.Tx, int64) (pgrepo.UserRecord, error) {
	return s.user, nil
}

func (s *userStoreStub) ApplyBalanceDelta(_ context.Context, _ pgx.Tx, _ int64, balanceDelta, _ float64) (float64, error) {
	s.balanceApplied++
	s.balanceDelta = balanceDelta
	return s.newBalance, nil
}

type txStoreStub struct {
	inserted []pgrepo.NewTransaction
}

func (s *txStoreStub) Insert(_ context.Context, _ pgx.Tx, txn pgrepo.NewTransaction) (int64, error) {
	s.inserted = append(s.inserted, txn)
	return int64(len(s.inserted)), nil
}

type membershipStub struct {
	subscribed bool
}

func (s membershipStub) IsChannelMember(context.Context, string, int64) (bool, error) {
	return s.subscribed, nil
}

type lockStoreStub struct {
	acquireErr error
	acquired   []string
	released   []string
}

func (s *lockStoreStub) Acquire(_ context.Context, name string, _ time.Duration) (string, error) {
	if s.acquireErr != nil {
		return "", s.acquireErr
	}
	s.acquired = append(s.acquired, name)
	return "token", nil
}

func (s *lockStoreStub) Release(_ context.Context, name, _ string) error {
	s.released = append(s.released, name)
	return nil
}

func newClaimService(bonuses *bonusStoreStub, users *userStoreStub, txns *txStoreStub, member membershipStub, locks *lockStoreStub) *Service {
	svc := &Service{
		runTx: func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
			return fn(ctx, nil)
		},
		bonuses:       bonuses,
		users:         users,
		txns:          txns,
		membership:    member,
		logger:        zap.NewNop(),
		enabled:       true,
		defaultAmount: 5.0,
		now:           func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) },
	}
	if locks != nil {
		svc.locks = locks
	}
	return svc
}

func TestCheckAndClaimPaysBonusOnce(t *testing.T) {
	bonuses := &bonusStoreStub{}
	users := &userStoreStub{user: pgrepo.UserRecord{ID: 7, TelegramID: 42}, newBalance: 105}
	txns := &txStoreStub{}
	locks := &lockStoreStub{}
	svc := newClaimService(bonuses, users, txns, membershipStub{subscribed: true}, locks)

	claim, err := svc.CheckAndClaim(context.Background(), 42, "@crash_news")
	if err != nil {
		t.Fatalf("CheckAndClaim: %v", err)
	}
	if claim.ChannelID != "@crash_news" || claim.BonusAmount != 5.0 || claim.NewBalance != 105 {
		t.Fatalf("unexpected claim: %+v", claim)
	}
	if bonuses.inserted != 1 || users.balanceApplied != 1 || users.balanceDelta != 5.0 {
		t.Fatalf("claim not persisted: bonuses=%+v users=%+v", bonuses, users)
	}
	if len(txns.inserted) != 1 || txns.inserted[0].Type != enums.TransactionTypeChannelBonus {
		t.Fatalf("audit transaction missing: %+v", txns.inserted)
	}
	if len(locks.acquired) != 1 || len(locks.released) != 1 {
		t.Fatalf("claim lock not acquired and released: %+v", locks)
	}
}

func TestCheckAndClaimRejectsNonSubscriber(t *testing.T) {
	bonuses := &bonusStoreStub{}
	users := &userStoreStub{user: pgrepo.UserRecord{ID: 7, TelegramID: 42}}
	svc := newClaimService(bonuses, users, &txStoreStub{}, membershipStub{subscribed: false}, nil)

	if _, err := svc.CheckAndClaim(context.Background(), 42, "@crash_news"); !errors.Is(err, ErrNotSubscribed) {
		t.Fatalf("expected ErrNotSubscribed, got %v", err)
	}
	if bonuses.inserted != 0 || users.balanceApplied != 0 {
		t.Fatalf("nothing must be persisted for a non-subscriber")
	}
}

func TestCheckAndClaimWhileLockHeld(t *testing.T) {
	bonuses := &bonusStoreStub{}
	users := &userStoreStub{user: pgrepo.UserRecord{ID: 7, TelegramID: 42}}
	locks := &lockStoreStub{acquireErr: redrepo.ErrLockNotAcquired}
	svc := newClaimService(bonuses, users, &txStoreStub{}, membershipStub{subscribed: true}, locks)

	if _, err := svc.CheckAndClaim(context.Background(), 42, "@crash_news"); !errors.Is(err, ErrClaimBusy) {
		t.Fatalf("expected ErrClaimBusy, got %v", err)
	}
	if bonuses.inserted != 0 || users.balanceApplied != 0 {
		t.Fatalf("claim must not proceed while the lock is held")
	}
}

func TestCheckAndClaimDuplicateInsertMapsToAlreadyClaimed(t *testing.T) {
	bonuses := &bonusStoreStub{insertErr: pgrepo.ErrBonusAlreadyClaimed}
	users := &userStoreStub{user: pgrepo.UserRecord{ID: 7, TelegramID: 42}}
	svc := newClaimService(bonuses, users, &txStoreStub{}, membershipStub{subscribed: true}, nil)

	if _, err := svc.CheckAndClaim(context.Background(), 42, "@crash_news"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestNewServiceDefaultAmountFallback(t *testing.T) {
	svc := NewService(Dependencies{Enabled: true, DefaultAmount: "garbage"})
	if svc.defaultAmount != 5.0 {
		t.Fatalf("expected fallback default amount 5.0, got %v", svc.defaultAmount)
	}
}
