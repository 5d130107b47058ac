package inventory

import "github.com/larder/backend/internal/domain/shared"

// Structural violations. These are never retried; the caller fixes the input.
var (
	ErrInvalidTransactionQuantity = shared.NewDomainError("INVALID_TRANSACTION_QUANTITY", "Transaction line quantity must be positive")
	ErrInvalidUnitCost            = shared.NewDomainError("INVALID_UNIT_COST", "Unit cost is missing, negative or not allowed for this transaction type")
	ErrMissingDestinationLocation = shared.NewDomainError("MISSING_DESTINATION_LOCATION", "Destination location is required")
	ErrMissingSourceLocation      = shared.NewDomainError("MISSING_SOURCE_LOCATION", "Source location is required")
	ErrInvalidTransferRoute       = shared.NewDomainError("INVALID_TRANSFER_ROUTE", "Source and destination locations must differ")
	ErrUnknownTransactionType     = shared.NewDomainError("UNKNOWN_TRANSACTION_TYPE", "Unknown transaction type")
	ErrEmptyTransaction           = shared.NewDomainError("EMPTY_TRANSACTION", "Transaction must contain at least one line")
	ErrTransactionCommitted       = shared.NewDomainError("TRANSACTION_COMMITTED", "Transaction has already been committed")
	ErrBatchRequired              = shared.NewDomainError("BATCH_REQUIRED", "A batch id is required for this line")
	ErrReasonRequired             = shared.NewDomainError("REASON_REQUIRED", "A reason is required for waste")
	ErrMissingExpirationDate      = shared.NewDomainError("MISSING_EXPIRATION_DATE", "Expiration date is required for expiration-tracked items")
	ErrInvalidExpirationDate      = shared.NewDomainError("INVALID_EXPIRATION_DATE", "Expiration date must be after the received date")
	ErrDuplicateSKU               = shared.NewDomainError("DUPLICATE_SKU", "An item with this SKU already exists")
	ErrDuplicateBatchNumber       = shared.NewDomainError("DUPLICATE_BATCH_NUMBER", "Batch number already used for this item")
	ErrInvalidItem                = shared.NewDomainError("INVALID_ITEM", "Invalid inventory item")
	ErrInvalidBatch               = shared.NewDomainError("INVALID_BATCH", "Invalid batch")
	ErrInvalidCostingMethod       = shared.NewDomainError("INVALID_COSTING_METHOD", "Unknown costing method")
	ErrItemInactive               = shared.NewDomainError("ITEM_INACTIVE", "Inventory item is inactive")
	ErrNonPositiveQuantity        = shared.NewDomainError("NON_POSITIVE_QUANTITY", "Quantity must be greater than zero")
	ErrQuantityExceedsStock       = shared.NewDomainError("QUANTITY_EXCEEDS_STOCK", "Quantity exceeds current stock")
	ErrReservationNotActive       = shared.NewDomainError("RESERVATION_NOT_ACTIVE", "Reservation is not active")
	ErrKeyNotLocked               = shared.NewDomainError("KEY_NOT_LOCKED", "Stock key is not held by this ledger transaction")
)

// Not-found conditions, distinct from shortages.
var (
	ErrItemNotFound        = shared.NewDomainError("ITEM_NOT_FOUND", "Inventory item not found")
	ErrBatchNotFound       = shared.NewDomainError("BATCH_NOT_FOUND", "Batch not found")
	ErrStockLevelNotFound  = shared.NewDomainError("STOCK_LEVEL_NOT_FOUND", "Stock level not found")
	ErrVendorNotFound      = shared.NewDomainError("VENDOR_NOT_FOUND", "Vendor not found")
	ErrLocationNotFound    = shared.NewDomainError("LOCATION_NOT_FOUND", "Location not found")
	ErrReservationNotFound = shared.NewDomainError("RESERVATION_NOT_FOUND", "Reservation not found")
	ErrTransactionNotFound = shared.NewDomainError("TRANSACTION_NOT_FOUND", "Transaction not found")
)
