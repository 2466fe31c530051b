package alert

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/apperr"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/stream"

	"github.com/pashagolub/pgxmock/v3"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(func() { mock.Close() })
	return mock
}

func expectSender(mock pgxmock.PgxPoolIface, active bool, endedAt *time.Time) {
	mock.ExpectQuery(`SELECT p.session_id, p.is_active, s.session_code, s.ended_at`).
		WithArgs("part-1").
		WillReturnRows(pgxmock.NewRows([]string{"session_id", "is_active", "session_code", "ended_at"}).
			AddRow("sess-1", active, "ABC123", endedAt))
}

func TestSendFanout(t *testing.T) {
	mock := newMock(t)

	expectSender(mock, true, nil)
	lat, lng := 42.69, 23.32
	mock.ExpectQuery(`SELECT latitude, longitude FROM locations`).
		WithArgs("part-1").
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude"}).AddRow(&lat, &lng))
	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs("sess-1", "part-1", "alice needs your attention", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	hub := stream.NewHub(nil)
	client := hub.Register("ABC123")
	defer hub.Unregister(client)

	svc := NewService(mock, hub)
	count, err := svc.Send(context.Background(), "part-1", "alice")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two recipients, got %d", count)
	}

	select {
	case msg := <-client.Send:
		var event stream.Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if event.Type != "alert" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("expected stream event")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSendNoRecipients(t *testing.T) {
	mock := newMock(t)

	expectSender(mock, true, nil)
	mock.ExpectQuery(`SELECT latitude, longitude FROM locations`).
		WithArgs("part-1").
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude"}))
	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs("sess-1", "part-1", "alice needs your attention", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	svc := NewService(mock, nil)
	count, err := svc.Send(context.Background(), "part-1", "alice")
	if err != nil {
		t.Fatalf("send to empty session: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero recipients, got %d", count)
	}
}

func TestSendInactiveSender(t *testing.T) {
	mock := newMock(t)
	expectSender(mock, false, nil)

	svc := NewService(mock, nil)
	_, err := svc.Send(context.Background(), "part-1", "alice")
	if !errors.Is(err, apperr.ErrNotActiveMember) {
		t.Fatalf("expected not-active-member, got %v", err)
	}
}

func TestSendEndedSession(t *testing.T) {
	mock := newMock(t)
	endedAt := time.Now()
	expectSender(mock, true, &endedAt)

	svc := NewService(mock, nil)
	_, err := svc.Send(context.Background(), "part-1", "alice")
	if !errors.Is(err, apperr.ErrNotActiveMember) {
		t.Fatalf("expected not-active-member, got %v", err)
	}
}

func TestSendUnknownSender(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT p.session_id, p.is_active, s.session_code, s.ended_at`).
		WithArgs("gone").
		WillReturnRows(pgxmock.NewRows([]string{"session_id", "is_active", "session_code", "ended_at"}))

	svc := NewService(mock, nil)
	_, err := svc.Send(context.Background(), "gone", "alice")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUnreadOldestFirst(t *testing.T) {
	mock := newMock(t)

	base := time.Now().Add(-time.Hour)
	mock.ExpectQuery(`WHERE n.recipient_participant_id = \$1 AND NOT n.is_read`).
		WithArgs("part-2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "sender_participant_id", "display_name", "message", "sender_latitude", "sender_longitude", "created_at"}).
			AddRow("n-1", "part-1", "alice", "alice needs your attention", nil, nil, base).
			AddRow("n-2", "part-1", "alice", "alice needs your attention", nil, nil, base.Add(time.Minute)))

	svc := NewService(mock, nil)
	notifications, err := svc.Unread(context.Background(), "part-2")
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected two notifications, got %d", len(notifications))
	}
	if !notifications[0].CreatedAt.Before(notifications[1].CreatedAt) {
		t.Fatalf("expected oldest first")
	}
}

func TestMarkRead(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE`).
		WithArgs("part-2", []string{"n-1", "n-9"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(mock, nil)
	// n-9 does not exist; the call still succeeds.
	if err := svc.MarkRead(context.Background(), "part-2", []string{"n-1", "n-9"}); err != nil {
		t.Fatalf("mark read: %v", err)
	}
}

func TestMarkReadEmpty(t *testing.T) {
	svc := NewService(nil, nil)
	if err := svc.MarkRead(context.Background(), "part-2", nil); err != nil {
		t.Fatalf("mark read with no ids: %v", err)
	}
}
