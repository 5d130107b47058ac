package logger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Field helpers keep ledger log keys consistent across packages.

// ItemID logs an item id
func ItemID(id uuid.UUID) zap.Field {
	return zap.String("item_id", id.String())
}

// LocationID logs a location id
func LocationID(id uuid.UUID) zap.Field {
	return zap.String("location_id", id.String())
}

// TransactionID logs a transaction id
func TransactionID(id uuid.UUID) zap.Field {
	return zap.String("transaction_id", id.String())
}

// Reference logs an external reference such as an order number
func Reference(ref string) zap.Field {
	return zap.String("reference", ref)
}

// Quantity logs a decimal under key
func Quantity(key string, q decimal.Decimal) zap.Field {
	return zap.String(key, q.String())
}
