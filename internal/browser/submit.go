package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/leadsieve/leadsieve/internal/history"
)

// FormRequest carries one report verdict to replay into a Pre-MQL form.
type FormRequest struct {
	Link          string
	Kind          history.Kind
	TakeAction    string
	Company       string
	RejectReason  string
	InvalidReason string
	ScoringInfo   string
	SendTo        string
}

// FormResult is the outcome of a single form submission
type FormResult struct {
	Success bool
	Message string
}

// Radio button IDs on the validation form, keyed by Take Action value.
var validationRadios = map[string]string{
	"Valid Company → MQL":    "valid-acc",
	"Valid Company → Reject": "valid-rej",
	"Invalid Company":        "invalid",
}

// Radio button IDs on the review form.
var reviewRadios = map[string]string{
	"MQL - Send to Sales": "acc",
	"Reject":              "rej",
}

// SubmitDecision navigates to the lead's validation link, selects the
// Take Action radio, fills the section the selection reveals, and
// submits. The returned FormResult.Message is suitable for storing as
// the decision's form submission status.
func (b *Browser) SubmitDecision(req FormRequest) FormResult {
	if req.TakeAction == "" {
		return FormResult{Message: "Skipped - No Take Action"}
	}
	if !strings.HasPrefix(req.Link, "http") {
		return FormResult{Message: "Skipped - No Link"}
	}

	radios := validationRadios
	if req.Kind == history.KindReview {
		radios = reviewRadios
	}
	radioID, ok := radios[req.TakeAction]
	if !ok {
		return FormResult{Message: fmt.Sprintf("Failed - Unknown action %q", req.TakeAction)}
	}

	err := b.Run(
		chromedp.Navigate(req.Link),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.Click("#"+radioID, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second), // form section animates in
	)
	if err != nil {
		return FormResult{Message: "Failed - " + trimError(err)}
	}

	if err := b.fillSection(req); err != nil {
		return FormResult{Message: "Failed - " + trimError(err)}
	}

	if err := b.submit(); err != nil {
		return FormResult{Message: "Failed - " + trimError(err)}
	}

	stamp := time.Now().Format("2006-01-02 15:04:05")
	return FormResult{Success: true, Message: "Success - " + stamp}
}

// fillSection fills whichever form section the Take Action choice revealed
func (b *Browser) fillSection(req FormRequest) error {
	switch {
	case strings.Contains(req.TakeAction, "MQL"):
		if req.Kind == history.KindValidation && req.Company != "" {
			if err := b.fillInput(`input[name="company"]`, req.Company); err != nil {
				return fmt.Errorf("company field: %w", err)
			}
		}
		if req.ScoringInfo != "" {
			if err := b.fillInput(`[name="leadDetails1"]`, req.ScoringInfo); err != nil {
				return fmt.Errorf("scoring info: %w", err)
			}
		}
		if req.SendTo != "" {
			if err := b.fillInput(`[name="Assignment_compass1"]`, req.SendTo); err != nil {
				return fmt.Errorf("send to: %w", err)
			}
		}
	case strings.Contains(req.TakeAction, "Reject"):
		if req.RejectReason != "" {
			if !b.selectOption(`select[name="rejectionReason"]`, req.RejectReason) {
				return fmt.Errorf("reject reason %q not in dropdown", req.RejectReason)
			}
		}
	case strings.Contains(req.TakeAction, "Invalid"):
		if req.InvalidReason != "" {
			if !b.selectOption(`select[name="excludedReason"]`, req.InvalidReason) {
				return fmt.Errorf("invalid reason %q not in dropdown", req.InvalidReason)
			}
		}
	}
	return nil
}

// fillInput clears a visible field and types the value into it
func (b *Browser) fillInput(selector, value string) error {
	var exists bool
	err := b.Run(chromedp.Evaluate(
		fmt.Sprintf(`(function() {
			var el = document.querySelector("%s");
			return el !== null && el.offsetParent !== null;
		})()`, escapeJS(selector)),
		&exists,
	))
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("field %s not visible", selector)
	}

	return b.Run(
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// selectOption picks a dropdown option matching the value, trying exact,
// case-insensitive and partial text matches in that order.
func (b *Browser) selectOption(selector, value string) bool {
	js := fmt.Sprintf(`(function() {
		var select = document.querySelector("%s");
		if (!select) return false;

		var want = "%s";
		var lower = want.toLowerCase();
		var i, opt, text;
		for (i = 0; i < select.options.length; i++) {
			opt = select.options[i];
			if (opt.text.trim() === want) {
				select.value = opt.value;
				select.dispatchEvent(new Event('change', { bubbles: true }));
				return true;
			}
		}
		for (i = 0; i < select.options.length; i++) {
			opt = select.options[i];
			if (opt.text.trim().toLowerCase() === lower) {
				select.value = opt.value;
				select.dispatchEvent(new Event('change', { bubbles: true }));
				return true;
			}
		}
		for (i = 0; i < select.options.length; i++) {
			opt = select.options[i];
			text = opt.text.trim().toLowerCase();
			if (text.includes(lower) || lower.includes(text)) {
				select.value = opt.value;
				select.dispatchEvent(new Event('change', { bubbles: true }));
				return true;
			}
		}
		return false;
	})()`, escapeJS(selector), escapeJS(value))

	var success bool
	err := b.Run(chromedp.Evaluate(js, &success))
	return err == nil && success
}

// submit clicks the form's submit button, falling back to a generic
// submit input when the expected button is missing.
func (b *Browser) submit() error {
	err := b.Run(
		chromedp.Click("#submitBtn", chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	)
	if err == nil {
		return nil
	}
	return b.Run(
		chromedp.Click(`input[type="submit"]`, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	)
}

// escapeJS escapes a string for embedding in a double-quoted JS literal
func escapeJS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// trimError keeps submission status messages to one short line
func trimError(err error) string {
	msg := err.Error()
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	if len(msg) > 100 {
		msg = msg[:100]
	}
	return msg
}
