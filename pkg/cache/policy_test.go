package cache

import (
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		kind ResourceKind
		want time.Duration
	}{
		{KindList, 120 * time.Second},
		{KindDetail, 300 * time.Second},
		{KindTaxonomy, 900 * time.Second},
		{KindRelated, 120 * time.Second},
		{KindNavigation, 120 * time.Second},
		{KindSearch, 60 * time.Second},
		{"unknown", 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := policy.TTL(tt.kind); got != tt.want {
				t.Errorf("TTL(%s) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}

	if err := policy.Validate(); err != nil {
		t.Errorf("DefaultPolicy should be valid: %v", err)
	}
}

func TestPolicy_Validate(t *testing.T) {
	policy := Policy{KindList: -time.Second}
	if err := policy.Validate(); err == nil {
		t.Error("negative TTL should fail validation")
	}
}
