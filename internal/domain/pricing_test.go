package domain

import (
	"testing"
	"time"
)

func TestPricingRule_AppliesAt(t *testing.T) {
	// Monday-Friday, 09:00-18:00
	rule := PricingRule{
		Weekdays:    []int{1, 2, 3, 4, 5},
		StartMinute: 9 * 60,
		EndMinute:   18 * 60,
	}

	// 2026-08-24 is a Monday
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday inside window", monday.Add(10 * time.Hour), true},
		{"start of window is inclusive", monday.Add(9 * time.Hour), true},
		{"end of window is exclusive", monday.Add(18 * time.Hour), false},
		{"weekday before window", monday.Add(8 * time.Hour), false},
		{"saturday not covered", monday.AddDate(0, 0, 5).Add(10 * time.Hour), false},
		{"sunday not covered", monday.AddDate(0, 0, 6).Add(10 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.AppliesAt(tt.at); got != tt.want {
				t.Errorf("AppliesAt(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestPricingRule_Validate(t *testing.T) {
	cap := 10.0
	valid := PricingRule{
		Name:        "weekday daytime",
		Weekdays:    []int{1, 2, 3, 4, 5},
		StartMinute: 9 * 60,
		EndMinute:   18 * 60,
		BaseRate:    5,
		MaxRate:     &cap,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *PricingRule)
	}{
		{"empty name", func(r *PricingRule) { r.Name = "" }},
		{"no weekdays", func(r *PricingRule) { r.Weekdays = nil }},
		{"weekday out of range", func(r *PricingRule) { r.Weekdays = []int{7} }},
		{"negative start", func(r *PricingRule) { r.StartMinute = -1 }},
		{"window ends before it starts", func(r *PricingRule) { r.EndMinute = r.StartMinute }},
		{"negative base rate", func(r *PricingRule) { r.BaseRate = -1 }},
		{"surge threshold over 100", func(r *PricingRule) { r.SurgeActive = true; r.SurgeThreshold = 150 }},
		{"surge without threshold", func(r *PricingRule) { r.SurgeActive = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			if err := r.Validate(); err == nil {
				t.Error("Validate() expected an error")
			}
		})
	}
}
