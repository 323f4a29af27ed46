package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"dropship_erp/internal/model"
)

func TestMarginLogRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMarginLogRepository(db)
	ctx := context.Background()

	log := &model.MarginLog{
		ProductID:          1,
		Event:              model.MarginEventProductCreated,
		Source:             model.SourceCJ,
		CostPrice:          decimal.RequireFromString("10"),
		SellingPriceBefore: decimal.Zero,
		SellingPriceAfter:  decimal.RequireFromString("13"),
		StatusAfter:        string(model.ProductStatusDraft),
	}
	if err := repo.Create(ctx, log); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if log.ID == 0 {
		t.Error("ID 应该被自动分配")
	}

	found, err := repo.GetByID(ctx, log.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Event != model.MarginEventProductCreated {
		t.Errorf("Event = %s, want product_created", found.Event)
	}
}

func TestMarginLogRepo_GetStatsByProduct(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMarginLogRepository(db)
	ctx := context.Background()

	d := decimal.RequireFromString
	variantID := int64(7)
	logs := []*model.MarginLog{
		{ProductID: 1, Event: model.MarginEventProductCreated, SellingPriceBefore: d("0"), SellingPriceAfter: d("13")},
		{ProductID: 1, Event: model.MarginEventProductUpdated, SellingPriceBefore: d("13"), SellingPriceAfter: d("13")},
		{ProductID: 1, VariantID: &variantID, Event: model.MarginEventVariantSynced, SellingPriceBefore: d("5"), SellingPriceAfter: d("6")},
		{ProductID: 2, Event: model.MarginEventProductCreated, SellingPriceBefore: d("0"), SellingPriceAfter: d("9")},
	}
	for _, l := range logs {
		repo.Create(ctx, l)
	}

	stats, err := repo.GetStatsByProduct(ctx, 1)
	if err != nil {
		t.Fatalf("GetStatsByProduct() error = %v", err)
	}
	if stats.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", stats.TotalEvents)
	}
	if stats.CreatedEvents != 1 || stats.UpdatedEvents != 1 || stats.VariantEvents != 1 {
		t.Errorf("events = %+v", stats)
	}
	if stats.RaisedCount != 2 {
		t.Errorf("RaisedCount = %d, want 2", stats.RaisedCount)
	}

	recent, _ := repo.ListByProduct(ctx, 1, 2)
	if len(recent) != 2 {
		t.Errorf("len(recent) = %d, want 2", len(recent))
	}
}
