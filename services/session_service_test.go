package services

import (
	"sync"
	"testing"

	"github.com/hikarusato/tablelink/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lines(subtotals ...int64) []models.OrderLine {
	var out []models.OrderLine
	for _, price := range subtotals {
		out = append(out, models.OrderLine{
			MenuItemID: 1,
			Name:       "Karaage Set",
			UnitPrice:  price,
			Quantity:   1,
		})
	}
	return out
}

func TestStartOrJoinSessionCreatesAndJoins(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 3)
	ss := NewSessionService(db)

	session, joined, err := ss.StartOrJoinSession(3, table.SessionToken, StartInput{
		CustomerName: "Tanaka",
		PartySize:    4,
	})
	require.NoError(t, err)
	assert.False(t, joined)
	assert.Equal(t, models.SessionActive, session.Status)
	assert.Equal(t, 3, session.TableNumber)
	assert.Equal(t, int64(0), session.TotalAmount)

	// A second device at the same table joins, never forks.
	second, joined, err := ss.StartOrJoinSession(3, table.SessionToken, StartInput{})
	require.NoError(t, err)
	assert.True(t, joined)
	assert.Equal(t, session.PublicID, second.PublicID)
}

func TestStartOrJoinSessionRejectsBadToken(t *testing.T) {
	db := setupTestDB(t)
	seedTable(t, db, 1)
	ss := NewSessionService(db)

	_, _, err := ss.StartOrJoinSession(1, "wrong-token", StartInput{})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = ss.StartOrJoinSession(99, "token-test", StartInput{})
	assert.ErrorIs(t, err, ErrTableNotFound)
}

// Two simultaneous scans of the same QR code must never produce two open
// sessions; the unique guard on open_table_ref forces the loser to join.
func TestConcurrentScansYieldOneOpenSession(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 7)
	ss := NewSessionService(db)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ss.StartOrJoinSession(7, table.SessionToken, StartInput{})
		}()
	}
	wg.Wait()

	var open int64
	db.Model(&models.TableSession{}).
		Where("table_id = ? AND status IN ?", table.ID, models.OpenSessionStatuses).
		Count(&open)
	assert.Equal(t, int64(1), open)
}

func TestSessionTotalEqualsSumOfSubtotals(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 2)
	ss := NewSessionService(db)

	session, _, err := ss.StartOrJoinSession(2, table.SessionToken, StartInput{})
	require.NoError(t, err)

	_, err = ss.SubmitOrder(session.PublicID, lines(800, 1200))
	require.NoError(t, err)
	_, err = ss.SubmitOrder(session.PublicID, lines(450))
	require.NoError(t, err)

	got, err := ss.GetSession(session.PublicID)
	require.NoError(t, err)
	assert.Equal(t, int64(2450), got.TotalAmount)
	assert.Equal(t, models.SessionOrdering, got.Status)
	assert.Len(t, got.Orders, 2)
}

func TestSubmitOrderComputesSubtotalWithAddOns(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 4)
	ss := NewSessionService(db)

	session, _, err := ss.StartOrJoinSession(4, table.SessionToken, StartInput{})
	require.NoError(t, err)

	order, err := ss.SubmitOrder(session.PublicID, []models.OrderLine{
		{
			MenuItemID: 10,
			Name:       "Miso Ramen",
			UnitPrice:  900,
			Quantity:   2,
			SpiceLevel: "hot",
			AddOns:     []models.OrderAddOn{{Name: "Extra Chashu", Price: 250}},
			Variation:  "large",
		},
	})
	require.NoError(t, err)
	// (900 + 250) * 2
	assert.Equal(t, int64(2300), order.Subtotal)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.False(t, order.Printed)
}

func TestSubmitOrderValidation(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 5)
	ss := NewSessionService(db)

	session, _, err := ss.StartOrJoinSession(5, table.SessionToken, StartInput{})
	require.NoError(t, err)

	_, err = ss.SubmitOrder(session.PublicID, nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)

	_, err = ss.SubmitOrder(session.PublicID, []models.OrderLine{
		{Name: "Gyoza", UnitPrice: 400, Quantity: 0},
	})
	assert.Error(t, err)

	_, err = ss.SubmitOrder("no-such-session", lines(100))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitOrderRejectedAfterBillRequest(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 6)
	ss := NewSessionService(db)

	session, _, err := ss.StartOrJoinSession(6, table.SessionToken, StartInput{})
	require.NoError(t, err)
	_, err = ss.SubmitOrder(session.PublicID, lines(1000))
	require.NoError(t, err)

	_, err = ss.RequestBill(session.PublicID)
	require.NoError(t, err)

	_, err = ss.SubmitOrder(session.PublicID, lines(500))
	assert.ErrorIs(t, err, ErrSessionClosedForOrders)

	// The rejected ticket must not touch the total.
	got, err := ss.GetSession(session.PublicID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.TotalAmount)
}

func TestRequestBillIdempotent(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 8)
	ss := NewSessionService(db)

	session, _, err := ss.StartOrJoinSession(8, table.SessionToken, StartInput{})
	require.NoError(t, err)

	first, err := ss.RequestBill(session.PublicID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionBillRequested, first.Status)

	again, err := ss.RequestBill(session.PublicID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionBillRequested, again.Status)
}

func TestRequestBillOnClosedSession(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 9)
	ss := NewSessionService(db)

	session, _, err := ss.StartOrJoinSession(9, table.SessionToken, StartInput{})
	require.NoError(t, err)
	_, err = ss.ReleaseTable(session.PublicID, "Yamada")
	require.NoError(t, err)

	_, err = ss.RequestBill(session.PublicID)
	assert.ErrorIs(t, err, ErrSessionAlreadyClosed)

	_, err = ss.RequestBill("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// A terminal session must stay terminal: a bill request racing the release
// cannot flip the row back to an open status, no matter how the two
// interleave.
func TestReleasedSessionStaysReleased(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 14)
	ss := NewSessionService(db)

	for i := 0; i < 10; i++ {
		session, _, err := ss.StartOrJoinSession(14, table.SessionToken, StartInput{})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			ss.RequestBill(session.PublicID)
		}()
		go func() {
			defer wg.Done()
			ss.ReleaseTable(session.PublicID, "Yamada")
		}()
		wg.Wait()

		// Settle: the release may have lost to lock contention, in which
		// case a plain retry must land (or report an already-closed row).
		if _, err := ss.ReleaseTable(session.PublicID, "Yamada"); err != nil {
			require.ErrorIs(t, err, ErrSessionAlreadyClosed)
		}

		_, err = ss.RequestBill(session.PublicID)
		assert.ErrorIs(t, err, ErrSessionAlreadyClosed)

		got, err := ss.GetSession(session.PublicID)
		require.NoError(t, err)
		require.Equal(t, models.SessionReleased, got.Status)
	}
}

func TestReleaseTableRequiresStaffIdentity(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 10)
	ss := NewSessionService(db)

	session, _, err := ss.StartOrJoinSession(10, table.SessionToken, StartInput{})
	require.NoError(t, err)

	for _, name := range []string{"", "   ", "\t"} {
		_, err = ss.ReleaseTable(session.PublicID, name)
		assert.ErrorIs(t, err, ErrMissingStaffIdentity)
	}

	// Identity check comes first, even for sessions that do not exist.
	_, err = ss.ReleaseTable("missing", " ")
	assert.ErrorIs(t, err, ErrMissingStaffIdentity)
}

func TestReleaseTableFreesTheTable(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 11)
	ss := NewSessionService(db)

	session, _, err := ss.StartOrJoinSession(11, table.SessionToken, StartInput{})
	require.NoError(t, err)

	released, err := ss.ReleaseTable(session.PublicID, "Yamada")
	require.NoError(t, err)
	assert.Equal(t, models.SessionReleased, released.Status)
	assert.Equal(t, "Yamada", released.ReleasedBy)
	assert.NotNil(t, released.ReleasedAt)

	// Releasing twice reads as "action no longer valid".
	_, err = ss.ReleaseTable(session.PublicID, "Yamada")
	assert.ErrorIs(t, err, ErrSessionAlreadyClosed)

	// A fresh scan now opens a brand new session.
	next, joined, err := ss.StartOrJoinSession(11, table.SessionToken, StartInput{})
	require.NoError(t, err)
	assert.False(t, joined)
	assert.NotEqual(t, session.PublicID, next.PublicID)
}

func TestMarkPaidFlow(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 12)
	ss := NewSessionService(db)

	session, _, err := ss.StartOrJoinSession(12, table.SessionToken, StartInput{})
	require.NoError(t, err)

	// Paying before the bill was requested is out of order.
	_, err = ss.MarkPaid(session.PublicID)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = ss.RequestBill(session.PublicID)
	require.NoError(t, err)

	paid, err := ss.MarkPaid(session.PublicID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPaid, paid.Status)

	_, err = ss.MarkPaid(session.PublicID)
	assert.ErrorIs(t, err, ErrSessionAlreadyClosed)
}

func TestSetSplit(t *testing.T) {
	db := setupTestDB(t)
	table := seedTable(t, db, 13)
	ss := NewSessionService(db)

	session, _, err := ss.StartOrJoinSession(13, table.SessionToken, StartInput{})
	require.NoError(t, err)

	updated, err := ss.SetSplit(session.PublicID, 3)
	require.NoError(t, err)
	assert.True(t, updated.SplitBill)
	assert.Equal(t, 3, updated.NumberOfSplits)

	updated, err = ss.SetSplit(session.PublicID, 1)
	require.NoError(t, err)
	assert.False(t, updated.SplitBill)

	_, err = ss.ReleaseTable(session.PublicID, "Sato")
	require.NoError(t, err)
	_, err = ss.SetSplit(session.PublicID, 2)
	assert.ErrorIs(t, err, ErrSessionAlreadyClosed)
}
