package quota

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	"github.com/scribehq/scribe/internal/clock"
	entitlementdomain "github.com/scribehq/scribe/internal/entitlement/domain"
	plandomain "github.com/scribehq/scribe/internal/plan/domain"
	usagedomain "github.com/scribehq/scribe/internal/usage/domain"
)

type usageStub struct {
	used      int64
	lastSince time.Time
}

func (u *usageStub) Append(ctx context.Context, record *usagedomain.UsageRecord) error {
	return nil
}

func (u *usageStub) SumSince(ctx context.Context, ownerID string, serviceType catalogdomain.ServiceType, metric usagedomain.Metric, since time.Time) (int64, error) {
	u.lastSince = since
	return u.used, nil
}

func (u *usageStub) History(ctx context.Context, req usagedomain.HistoryRequest) (usagedomain.HistoryResponse, error) {
	return usagedomain.HistoryResponse{}, nil
}

func (u *usageStub) Summary(ctx context.Context, ownerID string, serviceType catalogdomain.ServiceType, at time.Time) (usagedomain.Summary, error) {
	return usagedomain.Summary{}, nil
}

func wordsGrant(max int64) *entitlementdomain.Grant {
	return &entitlementdomain.Grant{
		OwnerID:  "owner-1",
		Source:   entitlementdomain.GrantSourceFree,
		PlanType: plandomain.PlanFree,
		Limits: plandomain.FeatureSet{
			TextWriter: plandomain.FeatureLimit{Enabled: true, WordsPerDay: max, RequestsPerDay: 10},
		},
	}
}

func newTestEnforcer(used int64, at time.Time) (*Enforcer, *usageStub) {
	usage := &usageStub{used: used}
	enforcer := NewEnforcer(EnforcerParam{
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(at),
		UsageSvc: usage,
	})
	return enforcer, usage
}

func TestEstimateWords(t *testing.T) {
	cases := []struct {
		length string
		want   int64
	}{
		{"short", 150},
		{"medium", 400},
		{"long", 500},
		{"", 400},
		{"LONG", 500},
	}
	for _, tc := range cases {
		if got := EstimateWords(tc.length); got != tc.want {
			t.Fatalf("EstimateWords(%q) = %d, want %d", tc.length, got, tc.want)
		}
	}
}

func TestCheckAllowsExactBoundary(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	enforcer, _ := newTestEnforcer(100, at)

	// 100 used + 400 estimate lands exactly on the 500 allowance.
	assessment, err := enforcer.Check(context.Background(), wordsGrant(500), catalogdomain.ServiceTextWriter, usagedomain.MetricWords, 400)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !assessment.Allowed() {
		t.Fatalf("expected boundary estimate allowed, got %s", assessment.Decision)
	}
	if assessment.Remaining != 400 {
		t.Fatalf("expected 400 remaining, got %d", assessment.Remaining)
	}
}

func TestCheckEstimatedOverage(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	enforcer, _ := newTestEnforcer(450, at)

	assessment, err := enforcer.Check(context.Background(), wordsGrant(500), catalogdomain.ServiceTextWriter, usagedomain.MetricWords, 400)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if assessment.Decision != DecisionEstimatedOverage {
		t.Fatalf("expected estimated overage, got %s", assessment.Decision)
	}
	if assessment.Remaining != 50 {
		t.Fatalf("expected 50 remaining, got %d", assessment.Remaining)
	}
}

func TestCheckHardLimitBeatsEstimate(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	enforcer, _ := newTestEnforcer(500, at)

	assessment, err := enforcer.Check(context.Background(), wordsGrant(500), catalogdomain.ServiceTextWriter, usagedomain.MetricWords, 150)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if assessment.Decision != DecisionLimitReached {
		t.Fatalf("expected limit reached, got %s", assessment.Decision)
	}
	if assessment.Remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", assessment.Remaining)
	}
}

func TestCheckHardCheckOnlyWithZeroEstimate(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	enforcer, _ := newTestEnforcer(499, at)

	assessment, err := enforcer.Check(context.Background(), wordsGrant(500), catalogdomain.ServiceTextWriter, usagedomain.MetricWords, 0)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !assessment.Allowed() {
		t.Fatalf("expected allowed under the hard check, got %s", assessment.Decision)
	}
}

func TestCheckThresholdFlags(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		used     int64
		warn     bool
		critical bool
	}{
		{399, false, false},
		{400, true, false},
		{475, true, true},
	}
	for _, tc := range cases {
		enforcer, _ := newTestEnforcer(tc.used, at)
		assessment, err := enforcer.Check(context.Background(), wordsGrant(500), catalogdomain.ServiceTextWriter, usagedomain.MetricWords, 0)
		if err != nil {
			t.Fatalf("check used=%d: %v", tc.used, err)
		}
		if assessment.Warn != tc.warn || assessment.Critical != tc.critical {
			t.Fatalf("used=%d: warn=%v critical=%v, want warn=%v critical=%v",
				tc.used, assessment.Warn, assessment.Critical, tc.warn, tc.critical)
		}
	}
}

func TestCheckWindowStartsAtUTCMidnight(t *testing.T) {
	at := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	enforcer, usage := newTestEnforcer(0, at)

	if _, err := enforcer.Check(context.Background(), wordsGrant(500), catalogdomain.ServiceTextWriter, usagedomain.MetricWords, 0); err != nil {
		t.Fatalf("check: %v", err)
	}

	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !usage.lastSince.Equal(want) {
		t.Fatalf("expected window start %s, got %s", want, usage.lastSince)
	}
}

func TestCheckRejectsMissingGrantAndDisabledFeature(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	enforcer, _ := newTestEnforcer(0, at)

	if _, err := enforcer.Check(context.Background(), nil, catalogdomain.ServiceTextWriter, usagedomain.MetricWords, 0); err != ErrMissingGrant {
		t.Fatalf("expected ErrMissingGrant, got %v", err)
	}

	disabled := wordsGrant(500)
	disabled.Limits.TextWriter.Enabled = false
	if _, err := enforcer.Check(context.Background(), disabled, catalogdomain.ServiceTextWriter, usagedomain.MetricWords, 0); err != ErrFeatureNotEntitled {
		t.Fatalf("expected ErrFeatureNotEntitled, got %v", err)
	}

	// Images are not part of the free text grant.
	if _, err := enforcer.Check(context.Background(), wordsGrant(500), catalogdomain.ServiceImageGenerator, usagedomain.MetricImages, 0); err != ErrFeatureNotEntitled {
		t.Fatalf("expected ErrFeatureNotEntitled for disabled service, got %v", err)
	}
}
