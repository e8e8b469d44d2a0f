package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestProductIsPromo(t *testing.T) {
	cases := []struct {
		name     string
		price    int64
		original *int64
		want     bool
	}{
		{"no original", 10000, nil, false},
		{"equal", 10000, ptr(10000), false},
		{"lower original", 10000, ptr(9000), false},
		{"higher original", 10000, ptr(12500), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Product{Price: tc.price, OriginalPrice: tc.original}
			assert.Equal(t, tc.want, p.IsPromo())
		})
	}
}

func TestDiscountPercent(t *testing.T) {
	assert.Equal(t, 20, Product{Price: 8000, OriginalPrice: ptr(10000)}.DiscountPercent())
	assert.Equal(t, 0, Product{Price: 8000}.DiscountPercent())
}

func TestTagList(t *testing.T) {
	p := Product{Tags: "demam, sakit kepala,,nyeri "}
	assert.Equal(t, []string{"demam", "sakit kepala", "nyeri"}, p.TagList())
}

func TestNormalizeOrderStatus(t *testing.T) {
	assert.Equal(t, OrderShipped, NormalizeOrderStatus("Dikirim"))
	assert.Equal(t, OrderShipped, NormalizeOrderStatus("otw"))
	assert.Equal(t, OrderDelivered, NormalizeOrderStatus("SELESAI"))
	assert.Equal(t, OrderProcessing, NormalizeOrderStatus("dikemas"))
	assert.Equal(t, OrderCancelled, NormalizeOrderStatus("canceled"))
	assert.Equal(t, OrderPending, NormalizeOrderStatus(""))
	assert.Equal(t, OrderPending, NormalizeOrderStatus("whatever"))

	_, ok := ParseOrderStatus("whatever")
	assert.False(t, ok)
}

func TestOrderStatusScanNormalizes(t *testing.T) {
	var s OrderStatus
	require.NoError(t, s.Scan([]byte("dikirim")))
	assert.Equal(t, OrderShipped, s)
	require.NoError(t, s.Scan(nil))
	assert.Equal(t, OrderPending, s)
	assert.Error(t, s.Scan(42))
}

func TestStatusAliases(t *testing.T) {
	assert.Equal(t, []string{"dikirim", "otw", "shipped"}, OrderShipped.Aliases())
	assert.Contains(t, OrderPending.Aliases(), "paid")
	assert.NotContains(t, OrderPending.OtherAliases(), "paid")
	assert.Contains(t, OrderPending.OtherAliases(), "dikirim")
	assert.Len(t, OrderShipped.Aliases(), 3)
	assert.Len(t, OrderShipped.OtherAliases(), len(orderAliases)-3)
	assert.True(t, OrderPending.Fallback())
	assert.False(t, OrderShipped.Fallback())

	assert.Equal(t, []string{"approved", "diproses", "processing"}, PrescriptionProcessing.Aliases())
	assert.True(t, PrescriptionPending.Fallback())
}

func TestOrderTransitions(t *testing.T) {
	assert.True(t, OrderPending.CanTransition(OrderProcessing))
	assert.True(t, OrderShipped.CanTransition(OrderCancelled))
	assert.False(t, OrderPending.CanTransition(OrderDelivered))
	assert.False(t, OrderDelivered.CanTransition(OrderPending))
	assert.True(t, OrderCancelled.Terminal())
	assert.True(t, OrderDelivered.Terminal())
	assert.False(t, OrderShipped.Terminal())
}

func TestPrescriptionTransitions(t *testing.T) {
	assert.Equal(t, PrescriptionProcessing, NormalizePrescriptionStatus("approved"))
	assert.ElementsMatch(t, []PrescriptionStatus{PrescriptionProcessing, PrescriptionRejected}, PrescriptionPending.AdminActions())
	assert.Empty(t, PrescriptionProcessing.AdminActions())
	assert.Equal(t, []PrescriptionStatus{PrescriptionCompleted}, PrescriptionPaid.AdminActions())
	assert.Empty(t, PrescriptionRejected.AdminActions())
	assert.True(t, PrescriptionRejected.Terminal())
	assert.False(t, PrescriptionProcessing.CanTransition(PrescriptionRejected))
}

func TestFormatRupiah(t *testing.T) {
	assert.Equal(t, "Rp 0", FormatRupiah(0))
	assert.Equal(t, "Rp 999", FormatRupiah(999))
	assert.Equal(t, "Rp 40.000", FormatRupiah(40000))
	assert.Equal(t, "Rp 1.250.000", FormatRupiah(1250000))
	assert.Equal(t, "-Rp 5.000", FormatRupiah(-5000))
}

func TestAddressCompose(t *testing.T) {
	a := Address{Label: "Rumah", AddressLine: "Jl. Melati 5", City: "Bandung", Province: "Jawa Barat", PostalCode: "40115"}
	assert.Equal(t, "Rumah - Jl. Melati 5, Bandung, Jawa Barat, 40115", a.Compose())
}
