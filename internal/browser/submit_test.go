package browser

import (
	"errors"
	"strings"
	"testing"

	"github.com/leadsieve/leadsieve/internal/history"
)

func TestSubmitDecisionSkips(t *testing.T) {
	// These paths return before any page interaction, so a zero-value
	// Browser is enough.
	b := &Browser{}

	tests := []struct {
		name string
		req  FormRequest
		want string
	}{
		{
			name: "no take action",
			req:  FormRequest{Link: "https://forms.example.com/v?id=1"},
			want: "Skipped - No Take Action",
		},
		{
			name: "missing link",
			req:  FormRequest{TakeAction: "Reject", Kind: history.KindReview},
			want: "Skipped - No Link",
		},
		{
			name: "non-http link",
			req:  FormRequest{TakeAction: "Reject", Kind: history.KindReview, Link: "mailto:x@y.com"},
			want: "Skipped - No Link",
		},
		{
			name: "unknown action",
			req:  FormRequest{TakeAction: "Escalate", Kind: history.KindValidation, Link: "https://forms.example.com/v?id=1"},
			want: `Failed - Unknown action "Escalate"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := b.SubmitDecision(tt.req)
			if res.Success {
				t.Fatalf("SubmitDecision(%+v) reported success", tt.req)
			}
			if res.Message != tt.want {
				t.Errorf("message = %q, want %q", res.Message, tt.want)
			}
		})
	}
}

func TestRadioMapsCoverActions(t *testing.T) {
	for _, action := range []string{"Valid Company → MQL", "Valid Company → Reject", "Invalid Company"} {
		if _, ok := validationRadios[action]; !ok {
			t.Errorf("validation form has no radio for %q", action)
		}
	}
	for _, action := range []string{"MQL - Send to Sales", "Reject"} {
		if _, ok := reviewRadios[action]; !ok {
			t.Errorf("review form has no radio for %q", action)
		}
	}
}

func TestEscapeJS(t *testing.T) {
	got := escapeJS(`select[name="x"]` + "\nnext")
	want := `select[name=\"x\"]\nnext`
	if got != want {
		t.Errorf("escapeJS = %q, want %q", got, want)
	}
}

func TestTrimError(t *testing.T) {
	multi := errors.New("timeout loading page\ncontext deadline exceeded")
	if got := trimError(multi); got != "timeout loading page" {
		t.Errorf("trimError = %q", got)
	}
	long := errors.New(strings.Repeat("x", 150))
	if got := trimError(long); len(got) != 100 {
		t.Errorf("trimError length = %d, want 100", len(got))
	}
}
