package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/larder/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func cloneItem(item *inventory.InventoryItem) inventory.InventoryItem {
	c := *item
	c.PreferredVendorID = cloneID(item.PreferredVendorID)
	if item.AlternativeItemIDs != nil {
		c.AlternativeItemIDs = append([]uuid.UUID(nil), item.AlternativeItemIDs...)
	}
	return c
}

func cloneBatch(b *inventory.Batch) inventory.Batch {
	c := *b
	c.VendorID = cloneID(b.VendorID)
	c.ParentBatchID = cloneID(b.ParentBatchID)
	return c
}

func cloneReservation(r *inventory.Reservation) inventory.Reservation {
	c := *r
	c.ReleasedAt = cloneTime(r.ReleasedAt)
	return c
}

func cloneTransaction(tx *inventory.Transaction) inventory.Transaction {
	c := *tx
	c.SourceLocationID = cloneID(tx.SourceLocationID)
	c.DestinationLocationID = cloneID(tx.DestinationLocationID)
	c.CommittedAt = cloneTime(tx.CommittedAt)
	c.Items = make([]inventory.TransactionItem, len(tx.Items))
	for i := range tx.Items {
		c.Items[i] = cloneLine(&tx.Items[i])
	}
	return c
}

func cloneLine(line *inventory.TransactionItem) inventory.TransactionItem {
	c := *line
	c.BatchID = cloneID(line.BatchID)
	c.UnitCost = cloneDecimal(line.UnitCost)
	c.ExpirationDate = cloneTime(line.ExpirationDate)
	c.VendorID = cloneID(line.VendorID)
	c.PreviousQuantity = cloneDecimal(line.PreviousQuantity)
	c.Variance = cloneDecimal(line.Variance)
	if line.Movements != nil {
		c.Movements = make([]inventory.LotMovement, len(line.Movements))
		for i, m := range line.Movements {
			m.ChildBatchID = cloneID(m.ChildBatchID)
			c.Movements[i] = m
		}
	}
	return c
}
