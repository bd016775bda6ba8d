package tickets

import (
	"testing"

	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	"github.com/google/uuid"
)

func messages(ids ...int64) []*Message {
	out := make([]*Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, &Message{ID: id, SenderType: enums.SenderTypeBuyer, Content: "msg"})
	}
	return out
}

func detail(status enums.TicketStatus, msgs []*Message) *TicketDetail {
	return &TicketDetail{
		ID:           uuid.MustParse("5b0f6a0e-54a8-4f59-9d6a-0f3fb2a6a001"),
		TicketNumber: "TK202401010001",
		Status:       status,
		Messages:     msgs,
	}
}

func assertIDs(t *testing.T, got *TicketDetail, want ...int64) {
	t.Helper()
	var ids []int64
	if got != nil {
		for _, msg := range got.Messages {
			ids = append(ids, msg.ID)
		}
	}
	if len(ids) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, ids)
		}
	}
}

func TestReconcileAppendsNewMessages(t *testing.T) {
	local := detail(enums.TicketStatusOpen, messages(1, 2, 3))
	remote := detail(enums.TicketStatusInProgress, messages(1, 2, 3, 4))

	next, changed := Reconcile(local, remote)
	if !changed {
		t.Fatal("expected change")
	}
	assertIDs(t, next, 1, 2, 3, 4)
	for i := 0; i < 3; i++ {
		if next.Messages[i] != local.Messages[i] {
			t.Fatalf("message %d should be carried over by reference", i+1)
		}
	}
	if next.Messages[3] != remote.Messages[3] {
		t.Fatal("new message should come from remote")
	}
	if next.Status != enums.TicketStatusInProgress {
		t.Fatalf("expected remote status swapped in, got %s", next.Status)
	}
	if local.Status != enums.TicketStatusOpen || len(local.Messages) != 3 {
		t.Fatal("local detail must not be mutated")
	}
}

func TestReconcileUnchangedIsNoop(t *testing.T) {
	local := detail(enums.TicketStatusOpen, messages(1, 2))
	for i := 0; i < 3; i++ {
		next, changed := Reconcile(local, detail(enums.TicketStatusOpen, messages(1, 2)))
		if changed {
			t.Fatal("expected no change")
		}
		if next != local {
			t.Fatal("expected the same pointer back")
		}
	}
}

func TestReconcileStatusOnlyChangeIsIgnored(t *testing.T) {
	local := detail(enums.TicketStatusOpen, messages(1))
	next, changed := Reconcile(local, detail(enums.TicketStatusClosed, messages(1)))
	if changed || next != local {
		t.Fatal("a status change without new messages is not applied")
	}
}

func TestReconcileEmptyLocal(t *testing.T) {
	remote := detail(enums.TicketStatusOpen, messages(7))

	next, changed := Reconcile(nil, remote)
	if !changed || next != remote {
		t.Fatal("nil local adopts remote")
	}

	empty := detail(enums.TicketStatusOpen, nil)
	next, changed = Reconcile(empty, remote)
	if !changed || next != remote {
		t.Fatal("empty local adopts non-empty remote")
	}

	next, changed = Reconcile(empty, detail(enums.TicketStatusOpen, nil))
	if changed || next != empty {
		t.Fatal("empty local with empty remote is a no-op")
	}
}

func TestReconcileIgnoresStaleRemote(t *testing.T) {
	local := detail(enums.TicketStatusOpen, messages(1, 2, 3))
	next, changed := Reconcile(local, detail(enums.TicketStatusOpen, messages(1, 3, 4)))
	if changed || next != local {
		t.Fatal("a remote log missing a seen message must be ignored")
	}
}

func TestReconcileKeepsStoreOrder(t *testing.T) {
	local := detail(enums.TicketStatusOpen, messages(10))
	next, changed := Reconcile(local, detail(enums.TicketStatusOpen, messages(10, 12, 11)))
	if !changed {
		t.Fatal("expected change")
	}
	assertIDs(t, next, 10, 12, 11)
}

func TestReconcileNilRemote(t *testing.T) {
	local := detail(enums.TicketStatusOpen, messages(1))
	if next, changed := Reconcile(local, nil); changed || next != local {
		t.Fatal("nil remote is a no-op")
	}
}
