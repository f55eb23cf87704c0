package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/foodflow/pos-api/internal/money"
)

var opened = time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC)

func openOrder(t *testing.T) *Order {
	t.Helper()
	o, err := Open(uuid.New(), uuid.New(), 1, opened)
	require.NoError(t, err)
	return o
}

func testItem(price string, qty int) LineItem {
	return LineItem{
		ID:          uuid.New(),
		ProductID:   uuid.New(),
		CategoryID:  uuid.New(),
		ProductName: "classic burger",
		Quantity:    qty,
		UnitPrice:   money.MustFromString(price),
	}
}

func TestOpenRejectsNonPositiveNumber(t *testing.T) {
	_, err := Open(uuid.New(), uuid.New(), 0, opened)
	require.Error(t, err)
	_, err = Open(uuid.New(), uuid.New(), -3, opened)
	require.Error(t, err)
}

func TestAddItemValidatesLine(t *testing.T) {
	o := openOrder(t)

	require.NoError(t, o.AddItem(testItem("10.00", 1)))
	require.Len(t, o.Items, 1)

	err := o.AddItem(testItem("10.00", 0))
	require.ErrorIs(t, err, ErrInvalidQuantity)

	err = o.AddItem(testItem("-1.00", 1))
	require.ErrorIs(t, err, ErrNegativePrice)
}

func TestSameProductOnSeparateLines(t *testing.T) {
	o := openOrder(t)
	productID := uuid.New()

	a := testItem("10.00", 1)
	a.ProductID = productID
	b := testItem("10.00", 1)
	b.ProductID = productID
	b.Note = "no onions"

	require.NoError(t, o.AddItem(a))
	require.NoError(t, o.AddItem(b))
	require.Len(t, o.Items, 2)
}

func TestSetItemQuantityZeroRemovesLine(t *testing.T) {
	o := openOrder(t)
	li := testItem("4.00", 2)
	require.NoError(t, o.AddItem(li))

	require.NoError(t, o.SetItemQuantity(li.ID, 5))
	require.Equal(t, 5, o.Items[0].Quantity)

	require.NoError(t, o.SetItemQuantity(li.ID, 0))
	require.Empty(t, o.Items)

	err := o.SetItemQuantity(li.ID, 1)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestSetItemQuantityRejectsNegative(t *testing.T) {
	o := openOrder(t)
	li := testItem("4.00", 2)
	require.NoError(t, o.AddItem(li))
	require.Error(t, o.SetItemQuantity(li.ID, -1))
}

func TestAddExtra(t *testing.T) {
	o := openOrder(t)
	li := testItem("10.00", 1)
	require.NoError(t, o.AddItem(li))

	extra := Extra{ID: uuid.New(), Name: "bacon", UnitPrice: money.MustFromString("2.00")}
	require.NoError(t, o.AddExtra(li.ID, extra))
	require.Len(t, o.Items[0].Extras, 1)

	err := o.AddExtra(uuid.New(), extra)
	require.ErrorIs(t, err, ErrItemNotFound)

	bad := Extra{ID: uuid.New(), Name: "bad", UnitPrice: money.MustFromString("-1.00")}
	require.ErrorIs(t, o.AddExtra(li.ID, bad), ErrNegativePrice)
}

func TestApplyManualDiscountRejectsPromotionOrigin(t *testing.T) {
	o := openOrder(t)

	promoID := uuid.New()
	auto, err := NewPromotionDiscount(o.ID, promoID, nil, money.MustFromString("1.00"), opened)
	require.NoError(t, err)
	require.Error(t, o.ApplyManualDiscount(auto))

	pct := money.MustPercent("10")
	manual, err := NewManualDiscount(o.ID, ManualSpec{Percent: &pct, AppliedBy: uuid.New()}, opened)
	require.NoError(t, err)
	require.NoError(t, o.ApplyManualDiscount(manual))
	require.Len(t, o.ManualDiscounts, 1)
}

func TestCloseFreezesAndBlocksMutation(t *testing.T) {
	o := openOrder(t)
	li := testItem("10.00", 2)
	require.NoError(t, o.AddItem(li))

	closedAt := opened.Add(2 * time.Hour)
	subtotal := money.MustFromString("20.00")
	discount := money.MustFromString("5.00")
	total := money.MustFromString("15.00")
	require.NoError(t, o.Close(subtotal, discount, total, PaymentCash, closedAt))

	require.Equal(t, StatusClosed, o.Status)
	require.NotNil(t, o.Payment)
	require.Equal(t, PaymentCash, *o.Payment)
	require.True(t, o.FinalTotal.Equal(total))

	require.ErrorIs(t, o.AddItem(testItem("3.00", 1)), ErrOrderClosed)
	require.ErrorIs(t, o.SetItemQuantity(li.ID, 1), ErrOrderClosed)
	require.ErrorIs(t, o.Close(subtotal, discount, total, PaymentCard, closedAt), ErrOrderClosed)
}

func TestReopenDiscardsFrozenSnapshot(t *testing.T) {
	o := openOrder(t)
	require.NoError(t, o.AddItem(testItem("10.00", 1)))

	require.ErrorIs(t, o.Reopen(), ErrOrderOpen)

	total := money.MustFromString("10.00")
	require.NoError(t, o.Close(total, money.Zero(), total, PaymentCard, opened.Add(time.Hour)))
	require.NoError(t, o.Reopen())

	require.Equal(t, StatusOpen, o.Status)
	require.Nil(t, o.ClosedAt)
	require.Nil(t, o.Payment)
	require.Nil(t, o.FinalSubtotal)
	require.Nil(t, o.FinalDiscount)
	require.Nil(t, o.FinalTotal)
	require.Len(t, o.Items, 1)
}

func TestSnapshotIsACopy(t *testing.T) {
	o := openOrder(t)
	li := testItem("10.00", 1)
	require.NoError(t, o.AddItem(li))

	snap := o.Snapshot()
	require.Equal(t, o.ID, snap.OrderID)
	require.Len(t, snap.Items, 1)

	snap.Items[0].Quantity = 99
	require.Equal(t, 1, o.Items[0].Quantity)
}

func TestLineItemTotals(t *testing.T) {
	li := testItem("10.00", 3)
	li.Extras = []Extra{
		{ID: uuid.New(), Name: "cheese", UnitPrice: money.MustFromString("1.50")},
		{ID: uuid.New(), Name: "bacon", UnitPrice: money.MustFromString("2.00")},
	}

	require.Equal(t, "30.00", li.BaseTotal().String())
	require.Equal(t, "10.50", li.ExtrasTotal().String())
	require.Equal(t, "40.50", li.LineTotal().String())
}

func TestSnapshotSubtotals(t *testing.T) {
	a := testItem("10.00", 2)
	a.Extras = []Extra{{ID: uuid.New(), Name: "cheese", UnitPrice: money.MustFromString("1.00")}}
	b := testItem("4.00", 1)

	snap := Snapshot{OrderID: uuid.New(), Items: []LineItem{a, b}}
	require.Equal(t, "26.00", snap.Subtotal().String())
	require.Equal(t, "24.00", snap.ItemsSubtotal().String())
	require.Equal(t, 2, snap.QuantityOf(a.ProductID))
	require.Equal(t, 0, snap.QuantityOf(uuid.New()))
}
