package mailbox

import (
	"testing"

	"github.com/leadsieve/leadsieve/internal/extract"
)

func TestDedupeByID(t *testing.T) {
	messages := []extract.Message{
		{ID: "msg-1", Subject: "Pre-MQL ready for validation: Acme"},
		{ID: "msg-2", Subject: "Pre-MQL ready for review: Beta"},
		{ID: "msg-1", Subject: "Pre-MQL ready for validation: Acme"},
		{ID: "", Subject: "no message id"},
		{ID: "", Subject: "another without id"},
	}

	got := dedupeByID(messages)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0].ID != "msg-1" || got[1].ID != "msg-2" {
		t.Errorf("order not preserved: %q, %q", got[0].ID, got[1].ID)
	}
	for _, msg := range got[2:] {
		if msg.ID != "" {
			t.Errorf("unexpected message %q in id-less tail", msg.ID)
		}
	}
}

func TestDedupeByIDEmpty(t *testing.T) {
	if got := dedupeByID(nil); len(got) != 0 {
		t.Errorf("dedupe of nil = %d messages", len(got))
	}
}
