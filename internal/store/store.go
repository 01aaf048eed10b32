package store

import (
	"context"
	"errors"

	"promo-sales-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrPromoCodeNotFound  = errors.New("promo code not found")
	ErrPromoCodeExists    = errors.New("promo code already exists")
	ErrPromoCodeClaimed   = errors.New("promo code already claimed by another user")
	ErrUploadNotFound     = errors.New("upload batch not found")
	ErrUploadNotPending   = errors.New("upload batch is not pending")
	ErrUploadNotCompleted = errors.New("only completed upload batches can be rolled back")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)

// SaleKey identifies a sale: at most one row exists per key.
// SaleDate uses models.DateLayout so the key is comparable.
type SaleKey struct {
	PromoCodeId int64
	ProductName string
	SaleDate    string
}

// BeginUploadParams contains the parameters for opening a ledger entry.
type BeginUploadParams struct {
	UploaderId *string
	FileName   string
	Period     models.Period
}

// InsertSaleParams contains the parameters for inserting a sale.
type InsertSaleParams struct {
	Key           SaleKey
	Quantity      int64
	UploadBatchId int64
}

// CreateUserParams contains the parameters for creating a user.
// A non-nil PromoCodeId claims that code and marks it registered.
type CreateUserParams struct {
	Id          string
	Name        string
	Email       string
	PromoCodeId *int64
	IsAdmin     bool
}

// PromoCodeLookup is the promo code surface shared by the store and an open batch.
type PromoCodeLookup interface {
	// FindPromoCodeByCode returns nil, nil when no code matches exactly.
	FindPromoCodeByCode(ctx context.Context, code string) (*models.PromoCode, error)
	FindPromoCodesBySuffix(ctx context.Context, suffix string) ([]models.PromoCode, error)
	CreatePromoCode(ctx context.Context, code string, status models.PromoCodeStatus) (*models.PromoCode, error)
}

// BatchTx is one open write-phase transaction. Nothing is visible to other
// connections until Commit; Rollback after Commit is a no-op.
type BatchTx interface {
	PromoCodeLookup

	ListSaleKeysInPeriod(ctx context.Context, period models.Period) (map[SaleKey]struct{}, error)
	DeleteSalesInPeriod(ctx context.Context, period models.Period) (int64, error)
	// FindSale returns nil, nil when no sale has the key.
	FindSale(ctx context.Context, key SaleKey) (*models.Sale, error)
	InsertSale(ctx context.Context, params InsertSaleParams) (int64, error)
	UpdateSaleQuantity(ctx context.Context, saleId, quantity, uploadBatchId int64) error
	RecomputeTotals(ctx context.Context) (int64, error)
	// FinalizeUpload marks a pending ledger entry completed in the same
	// transaction as the sales it describes.
	FinalizeUpload(ctx context.Context, uploadId int64, rowsProcessed, rowsCommitted int, message string) error

	Commit() error
	Rollback() error
}

// SalesStore defines the contract that every backend must satisfy.
type SalesStore interface {
	PromoCodeLookup

	// --- Promo codes ---
	GetPromoCodes(ctx context.Context) ([]models.PromoCode, error)
	GetPromoCodeById(ctx context.Context, id int64) (*models.PromoCode, error)

	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)

	// --- Upload ledger ---
	BeginUpload(ctx context.Context, params BeginUploadParams) (int64, error)
	DiscardUpload(ctx context.Context, uploadId int64) error
	MarkUploadFailed(ctx context.Context, uploadId int64, summary string) error
	GetUpload(ctx context.Context, uploadId int64) (*models.UploadBatch, error)
	ListUploads(ctx context.Context, limit, offset int) ([]models.UploadBatch, error)
	RollbackUpload(ctx context.Context, uploadId int64) (int64, error)

	// --- Sales ---
	BeginBatch(ctx context.Context) (BatchTx, error)
	GetSalesByPromoCode(ctx context.Context, promoCodeId int64) ([]models.Sale, error)
	GetSalesInPeriod(ctx context.Context, period models.Period) ([]models.Sale, error)

	// --- Aggregates ---
	RecomputeTotals(ctx context.Context) (int64, error)
	VerifyTotals(ctx context.Context) ([]models.TotalMismatch, error)

	// --- Lifecycle ---
	Close()
}
