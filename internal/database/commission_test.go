package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-ledger-go/internal/models"
	"wallet-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestUpsertRule_ReplacesByServiceAndOperator(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	operator := "mtn"
	rule := models.CommissionRule{
		ServiceType:     "airtime",
		OperatorId:      &operator,
		CommissionType:  models.CommissionPercentage,
		CommissionValue: decimal.RequireFromString("2.5"),
		CurrencyCode:    "NGN",
		MinAmount:       decimal.NewNullDecimal(decimal.NewFromInt(50)),
		IsActive:        true,
	}
	if _, err := service.UpsertRule(ctx, rule); err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}

	rule.CommissionValue = decimal.RequireFromString("3")
	second, err := service.UpsertRule(ctx, rule)
	if err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}
	if !second.CommissionValue.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected commission value 3, got %s", second.CommissionValue)
	}
	if second.OperatorId == nil || *second.OperatorId != "mtn" {
		t.Errorf("Expected operator mtn, got %v", second.OperatorId)
	}
	if !second.MinAmount.Valid || second.MaxAmount.Valid {
		t.Errorf("Expected min set and max unset, got %v / %v", second.MinAmount, second.MaxAmount)
	}

	rules, err := service.FindActiveRules(ctx, "airtime")
	if err != nil {
		t.Fatalf("FindActiveRules failed: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("Expected 1 rule after upsert, got %d", len(rules))
	}
}

func TestDisableRule(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	_, err := service.UpsertRule(ctx, models.CommissionRule{
		ServiceType:     "data",
		CommissionType:  models.CommissionFixedAmount,
		CommissionValue: decimal.NewFromInt(10),
		IsActive:        true,
	})
	if err != nil {
		t.Fatalf("UpsertRule failed: %v", err)
	}

	if err := service.DisableRule(ctx, "data", nil); err != nil {
		t.Fatalf("DisableRule failed: %v", err)
	}

	active, err := service.FindActiveRules(ctx, "data")
	if err != nil {
		t.Fatalf("FindActiveRules failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Expected no active rules, got %d", len(active))
	}

	all, err := service.ListRules(ctx, true)
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(all) != 1 || all[0].IsActive {
		t.Errorf("Expected one inactive rule, got %+v", all)
	}

	operator := "glo"
	if err := service.DisableRule(ctx, "data", &operator); !errors.Is(err, store.ErrRuleNotFound) {
		t.Errorf("Expected ErrRuleNotFound, got %v", err)
	}
}

func TestGetCommissionStats(t *testing.T) {
	service := setupTestDb(t)
	ctx := context.Background()

	now := time.Now().UTC()
	records := []models.CommissionTransaction{
		{ServiceType: "airtime", CommissionType: models.CommissionPercentage, CommissionAmount: decimal.RequireFromString("2.5")},
		{ServiceType: "airtime", CommissionType: models.CommissionFixedAmount, CommissionAmount: decimal.RequireFromString("10")},
		{ServiceType: "data", CommissionType: models.CommissionPercentage, CommissionAmount: decimal.RequireFromString("0.75")},
		{ServiceType: "data", CommissionType: models.CommissionPercentage, CommissionAmount: decimal.RequireFromString("99"), CreatedAt: now.AddDate(0, 0, -10)},
	}
	for _, ct := range records {
		ct.TransactionId = "tx"
		ct.UserId = "user1"
		ct.BaseAmount = decimal.NewFromInt(100)
		ct.TotalCharged = decimal.NewFromInt(100).Add(ct.CommissionAmount)
		ct.CurrencyCode = "NGN"
		if _, err := service.InsertCommissionTransaction(ctx, ct); err != nil {
			t.Fatalf("InsertCommissionTransaction failed: %v", err)
		}
	}

	stats, err := service.GetCommissionStats(ctx, now.AddDate(0, 0, -1), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetCommissionStats failed: %v", err)
	}
	if stats.TotalTransactions != 3 {
		t.Errorf("Expected 3 transactions in range, got %d", stats.TotalTransactions)
	}
	if !stats.TotalCommission.Equal(decimal.RequireFromString("13.25")) {
		t.Errorf("Expected total 13.25, got %s", stats.TotalCommission)
	}
	if !stats.ByServiceType["airtime"].Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Expected airtime 12.5, got %s", stats.ByServiceType["airtime"])
	}
	if !stats.ByCommissionType["percentage"].Equal(decimal.RequireFromString("3.25")) {
		t.Errorf("Expected percentage 3.25, got %s", stats.ByCommissionType["percentage"])
	}
}
