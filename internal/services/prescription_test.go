package services_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apotek/internal/domain"
	"apotek/internal/events"
	"apotek/internal/services"
)

func TestPrescriptionQuotePayComplete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	budi, admin := e.user(t, "u-budi"), e.user(t, "u-admin")

	p, err := e.rx.Upload(ctx, budi, bytes.NewReader(pngBytes), "untuk batuk")
	require.NoError(t, err)
	assert.Equal(t, domain.PrescriptionPending, p.Status)
	assert.True(t, strings.HasPrefix(p.ImageURL, "/media/prescription-images/u-budi/"))

	// cannot pay before it is quoted
	_, _, err = e.checkout.PayPrescription(ctx, budi, p.ID, homeAddress, "transfer")
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = e.rx.Quote(ctx, admin, p.ID, 0, "")
	assert.ErrorIs(t, err, services.ErrPriceRequired)

	quoted, err := e.rx.Quote(ctx, admin, p.ID, 50000, "3x sehari")
	require.NoError(t, err)
	assert.Equal(t, domain.PrescriptionProcessing, quoted.Status)
	require.NotNil(t, quoted.Price)
	assert.Equal(t, int64(50000), *quoted.Price)

	_, _, err = e.checkout.PayPrescription(ctx, e.user(t, "u-siti"), p.ID, homeAddress, "transfer")
	assert.ErrorIs(t, err, services.ErrPhoneNotVerified)

	paid, q, err := e.checkout.PayPrescription(ctx, budi, p.ID, homeAddress, "cod")
	require.NoError(t, err)
	assert.Equal(t, domain.PrescriptionPaid, paid.Status)
	assert.Equal(t, int64(65000), q.Total)
	assert.Equal(t, "cod", paid.PaymentMethod)
	assert.Equal(t, "Rumah - Jl. Melati No. 5, Bandung, Jawa Barat, 40115", paid.ShippingAddress)

	done, err := e.rx.Complete(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PrescriptionCompleted, done.Status)
	require.NotNil(t, done.Price)
	assert.Equal(t, int64(50000), *done.Price)

	assert.Equal(t, []string{
		events.PrescriptionStatusChanged,
		events.PrescriptionStatusChanged,
		events.PrescriptionStatusChanged,
	}, e.events.Types())
}

func TestPrescriptionRejectNeedsNoteAndIsTerminal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	budi, admin := e.user(t, "u-budi"), e.user(t, "u-admin")

	p, err := e.rx.Upload(ctx, budi, bytes.NewReader(pngBytes), "")
	require.NoError(t, err)

	_, err = e.rx.Reject(ctx, admin, p.ID, "   ")
	assert.ErrorIs(t, err, services.ErrNoteRequired)

	rejected, err := e.rx.Reject(ctx, admin, p.ID, "Resep tidak terbaca")
	require.NoError(t, err)
	assert.Equal(t, domain.PrescriptionRejected, rejected.Status)
	assert.Equal(t, "Resep tidak terbaca", rejected.PharmacistNotes)

	_, err = e.rx.Quote(ctx, admin, p.ID, 10000, "")
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
	_, err = e.rx.Complete(ctx, admin, p.ID)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestPrescriptionOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	budi := e.user(t, "u-budi")

	p, err := e.rx.Upload(ctx, budi, bytes.NewReader(pngBytes), "")
	require.NoError(t, err)

	_, err = e.rx.GetOwned(ctx, "u-siti", p.ID)
	assert.ErrorIs(t, err, services.ErrNotOwner)

	mine, err := e.rx.ListMine(ctx, budi.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	queue, err := e.rx.List(ctx, "menunggu")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "Budi", queue[0].CustomerName)
}

func TestPrescriptionUploadRejectsNonImage(t *testing.T) {
	e := newEnv(t)
	_, err := e.rx.Upload(context.Background(), e.user(t, "u-budi"), strings.NewReader("hello"), "")
	assert.Error(t, err)
}
