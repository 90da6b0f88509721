package derive

import (
	"encoding/json"
	"testing"

	"market-context-lab/internal/domain"
)

func decodeGlobal(t *testing.T, raw string) *domain.RawGlobalSnapshot {
	t.Helper()
	var s domain.RawGlobalSnapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("decode global snapshot: %v", err)
	}
	return &s
}

func TestDeriveGlobal_EnvelopedShape(t *testing.T) {
	s := decodeGlobal(t, `{
		"data": {
			"total_market_cap": {"usd": 2500000000000},
			"total_volume": {"usd": 125000000000},
			"market_cap_percentage": {"btc": 52.3, "eth": 16.1},
			"market_cap_change_percentage_24h_usd": -1.2,
			"updated_at": 1700000000
		}
	}`)

	m := deriveGlobal(s)

	if m.TotalMarketCapUSD == nil || *m.TotalMarketCapUSD != 2.5e12 {
		t.Errorf("unexpected TotalMarketCapUSD: %v", m.TotalMarketCapUSD)
	}
	if m.BTCDominancePct == nil || *m.BTCDominancePct != 52.3 {
		t.Errorf("unexpected BTCDominancePct: %v", m.BTCDominancePct)
	}
	if m.ETHDominancePct == nil || *m.ETHDominancePct != 16.1 {
		t.Errorf("unexpected ETHDominancePct: %v", m.ETHDominancePct)
	}
	if m.VolumeRatio == nil {
		t.Fatal("expected non-nil VolumeRatio")
	}
	if *m.VolumeRatio != 125000000000.0/2500000000000.0 {
		t.Errorf("unexpected VolumeRatio: %v", *m.VolumeRatio)
	}
	if m.ProviderUpdatedAt == nil || *m.ProviderUpdatedAt != 1700000000 {
		t.Errorf("unexpected ProviderUpdatedAt: %v", m.ProviderUpdatedAt)
	}
}

func TestDeriveGlobal_FlatShape(t *testing.T) {
	s := decodeGlobal(t, `{
		"total_market_cap": {"usd": 1000},
		"total_volume": {"usd": 100},
		"market_cap_percentage": {"btc": 50}
	}`)

	m := deriveGlobal(s)

	if m.TotalMarketCapUSD == nil || *m.TotalMarketCapUSD != 1000 {
		t.Errorf("flat shape not accepted: %v", m.TotalMarketCapUSD)
	}
	if m.VolumeRatio == nil || *m.VolumeRatio != 0.1 {
		t.Errorf("unexpected VolumeRatio: %v", m.VolumeRatio)
	}
}

func TestDeriveGlobal_EnvelopeTakesPriority(t *testing.T) {
	s := decodeGlobal(t, `{
		"data": {"total_market_cap": {"usd": 111}, "total_volume": {"usd": 11}},
		"total_market_cap": {"usd": 999}
	}`)

	m := deriveGlobal(s)
	if m.TotalMarketCapUSD == nil || *m.TotalMarketCapUSD != 111 {
		t.Errorf("expected enveloped value 111, got %v", m.TotalMarketCapUSD)
	}
}

func TestDeriveGlobal_VolumeRatioNilOnZeroMarketCap(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"zero mcap", `{"total_market_cap": {"usd": 0}, "total_volume": {"usd": 100}}`},
		{"zero mcap zero volume", `{"total_market_cap": {"usd": 0}, "total_volume": {"usd": 0}}`},
		{"missing mcap", `{"total_volume": {"usd": 100}}`},
		{"missing volume", `{"total_market_cap": {"usd": 100}}`},
		{"non-numeric mcap", `{"total_market_cap": {"usd": "n/a"}, "total_volume": {"usd": 100}}`},
		{"large volume no mcap", `{"total_volume": {"usd": 9e18}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := deriveGlobal(decodeGlobal(t, tc.raw))
			if m.VolumeRatio != nil {
				t.Errorf("expected nil VolumeRatio, got %v", *m.VolumeRatio)
			}
		})
	}
}

func TestDeriveGlobal_StringEncodedNumbers(t *testing.T) {
	s := decodeGlobal(t, `{
		"total_market_cap": {"usd": "2000"},
		"total_volume": {"usd": "500"}
	}`)

	m := deriveGlobal(s)
	if m.VolumeRatio == nil || *m.VolumeRatio != 0.25 {
		t.Errorf("string-encoded numbers not coerced: %v", m.VolumeRatio)
	}
}

func TestDeriveGlobal_NilSnapshot(t *testing.T) {
	m := deriveGlobal(nil)
	if m.TotalMarketCapUSD != nil || m.VolumeRatio != nil || m.ProviderUpdatedAt != nil {
		t.Errorf("expected all-nil metrics for nil snapshot, got %+v", m)
	}
}
