package database

import (
	"context"
	"errors"
	"testing"

	"promo-sales-go/internal/models"
	"promo-sales-go/internal/store"
)

func TestCreateUser_ClaimsPromoCode(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	pc, err := service.CreatePromoCode(ctx, "SUMMER-123", models.PromoCodeUnregistered)
	if err != nil {
		t.Fatalf("CreatePromoCode failed: %v", err)
	}

	user, err := service.CreateUser(ctx, store.CreateUserParams{
		Id:          "user-1",
		Name:        "Test User",
		Email:       "test@example.com",
		PromoCodeId: &pc.Id,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.PromoCodeId == nil || *user.PromoCodeId != pc.Id {
		t.Errorf("Expected user to hold promo code %d, got %v", pc.Id, user.PromoCodeId)
	}
	if user.IsAdmin {
		t.Error("Expected regular user")
	}

	claimed, err := service.GetPromoCodeById(ctx, pc.Id)
	if err != nil {
		t.Fatalf("GetPromoCodeById failed: %v", err)
	}
	if claimed.Status != models.PromoCodeRegistered {
		t.Errorf("Expected registered, got %s", claimed.Status)
	}

	_, err = service.CreateUser(ctx, store.CreateUserParams{
		Id:          "user-2",
		Name:        "Other User",
		Email:       "other@example.com",
		PromoCodeId: &pc.Id,
	})
	if !errors.Is(err, store.ErrPromoCodeClaimed) {
		t.Errorf("Expected ErrPromoCodeClaimed, got %v", err)
	}
}

func TestCreateUser_Errors(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	params := store.CreateUserParams{Id: "user-1", Name: "Test User", Email: "test@example.com"}
	if _, err := service.CreateUser(ctx, params); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	params.Id = "user-2"
	if _, err := service.CreateUser(ctx, params); !errors.Is(err, store.ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}

	missing := int64(404)
	_, err := service.CreateUser(ctx, store.CreateUserParams{Id: "user-3", Name: "X", Email: "x@example.com", PromoCodeId: &missing})
	if !errors.Is(err, store.ErrPromoCodeNotFound) {
		t.Errorf("Expected ErrPromoCodeNotFound, got %v", err)
	}

	if _, err := service.GetUserById(ctx, "nobody"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	users, err := service.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers failed: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("Expected 1 user, got %d", len(users))
	}
}
