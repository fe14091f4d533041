package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"payment_pending", "cod_pending", "processing", "shipped", "delivered", "cancelled"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), st)
	}

	_, err := ParseStatus("refunded")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusCODPending, InitialStatus(PaymentCOD))
	assert.Equal(t, StatusPaymentPending, InitialStatus("card"))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusCODPending, StatusProcessing, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusCODPending, StatusShipped, true},
		{StatusPaymentPending, StatusProcessing, true},
		{StatusCODPending, StatusCancelled, true},
		{StatusShipped, StatusCancelled, true},
		{StatusProcessing, StatusProcessing, true},

		// backwards
		{StatusShipped, StatusProcessing, false},
		{StatusProcessing, StatusCODPending, false},
		{StatusCODPending, StatusPaymentPending, false},
		// terminal states are frozen
		{StatusDelivered, StatusCODPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusProcessing, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderValidate(t *testing.T) {
	o := Order{Status: StatusCODPending, Subtotal: 2500, DeliveryCharge: 60, GrandTotal: 2560}
	require.NoError(t, o.Validate())

	o.GrandTotal = 2500
	assert.ErrorIs(t, o.Validate(), ErrInvalidTotals)

	o.GrandTotal = 2560
	o.Status = "lost"
	assert.ErrorIs(t, o.Validate(), ErrInvalidStatus)
}

func TestPrincipalOwns(t *testing.T) {
	assert.True(t, Principal{UserID: "u1", Role: RoleCustomer}.Owns("u1"))
	assert.False(t, Principal{UserID: "u2", Role: RoleCustomer}.Owns("u1"))
	assert.False(t, Principal{Role: RoleCustomer}.Owns(""))
	assert.True(t, Principal{UserID: "a", Role: RoleAdmin}.Owns("u1"))
}
