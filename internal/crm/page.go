package crm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// operator is a search-criterion operator of the registration form
type operator struct {
	label string
	code  string
}

var (
	operatorContains   = operator{label: "contains", code: "CP"}
	operatorStartsWith = operator{label: "starts with", code: "SW"}
)

const valueInputTitle = "Enter the value of criterion End Customer Name"

// jsWalkFrames recursively applies a function to every same-origin
// frame document until one returns a truthy result.
const jsWalkFrames = `
	function walk(win, fn) {
		var r = null;
		try { r = fn(win.document); } catch (e) {}
		if (r) return r;
		for (var i = 0; i < win.frames.length; i++) {
			try { r = walk(win.frames[i], fn); } catch (e) { r = null; }
			if (r) return r;
		}
		return null;
	}`

// ensureSearchPage loads the design-registration search and waits until
// the End Customer Name criterion is reachable in some frame.
func (l *Lookup) ensureSearchPage() error {
	l.mu.Lock()
	ready := l.ready
	l.mu.Unlock()
	if ready {
		return nil
	}

	err := l.browser.Run(
		chromedp.Navigate(l.cfg.SearchURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(time.Second),
	)
	if err != nil {
		return fmt.Errorf("crm navigate: %w", err)
	}

	// The shell builds its frame tree after load; poll until the
	// search form shows up.
	deadline := time.Now().Add(40 * time.Second)
	for {
		var found bool
		js := fmt.Sprintf(`(function() {%s
			return walk(window, function(doc) {
				return doc.querySelector('input[title="%s"]') !== null;
			}) === true;
		})()`, jsWalkFrames, valueInputTitle)
		if err := l.browser.Run(chromedp.Evaluate(js, &found)); err != nil {
			return fmt.Errorf("crm search page: %w", err)
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("crm search page: criterion input not found")
		}
		if err := l.browser.Run(chromedp.Sleep(500 * time.Millisecond)); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.ready = true
	l.mu.Unlock()
	return nil
}

// runSearch clears the form, sets the operator and criterion value, and
// triggers the search, then waits for the result table or the no-result
// banner.
func (l *Lookup) runSearch(op operator, term string) error {
	js := fmt.Sprintf(`(function() {%s
		return walk(window, function(doc) {
			var input = doc.querySelector('input[title="%s"]');
			if (!input) return null;

			var links = doc.querySelectorAll('a');
			var search = null;
			for (var i = 0; i < links.length; i++) {
				var text = (links[i].textContent || '').trim();
				if (text === 'Clear') { links[i].click(); }
				if (text === 'Search') { search = links[i]; }
			}

			var hidden = doc.querySelector('input[id*="OPERATOR__key"]');
			if (hidden) hidden.value = %q;
			var opInput = doc.querySelector('input[title="Choose the operator of criterion End Customer Name"]');
			if (opInput) {
				opInput.value = %q;
				opInput.dispatchEvent(new Event('change', { bubbles: true }));
			}

			input.value = %q;
			input.dispatchEvent(new Event('change', { bubbles: true }));

			if (search) {
				search.click();
			} else {
				input.dispatchEvent(new KeyboardEvent('keydown', { key: 'Enter', keyCode: 13, bubbles: true }));
			}
			return true;
		}) === true;
	})()`, jsWalkFrames, valueInputTitle, op.code, op.label, truncate(term, maxFieldLen))

	var triggered bool
	if err := l.browser.Run(chromedp.Evaluate(js, &triggered)); err != nil {
		return err
	}
	if !triggered {
		return fmt.Errorf("search form not reachable")
	}
	return l.waitForResults()
}

// waitForResults polls until a result table or "No result found" shows up
func (l *Lookup) waitForResults() error {
	js := fmt.Sprintf(`(function() {%s
		return walk(window, function(doc) {
			var heads = doc.querySelectorAll('th');
			for (var i = 0; i < heads.length; i++) {
				if ((heads[i].textContent || '').indexOf('Registration Date') !== -1) return true;
			}
			if ((doc.body && doc.body.textContent || '').indexOf('No result found') !== -1) return true;
			return null;
		}) === true;
	})()`, jsWalkFrames)

	deadline := time.Now().Add(12 * time.Second)
	for {
		var ready bool
		if err := l.browser.Run(chromedp.Evaluate(js, &ready)); err != nil {
			return err
		}
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("result list did not load")
		}
		if err := l.browser.Run(chromedp.Sleep(300 * time.Millisecond)); err != nil {
			return err
		}
	}
}

// collectLastPages pages to the end of the result list and gathers rows
// from the last pages, walking backward.
func (l *Lookup) collectLastPages(pagesBack int) ([]registration, error) {
	for i := 0; i < maxForwardPages; i++ {
		moved, err := l.clickPager("Forward", ">")
		if err != nil {
			return nil, err
		}
		if !moved {
			break
		}
	}

	var rows []registration
	for page := 0; page <= pagesBack; page++ {
		pageRows, err := l.currentPageRows()
		if err != nil {
			return nil, err
		}
		rows = append(rows, pageRows...)

		moved, err := l.clickPager("Back", "<")
		if err != nil {
			return nil, err
		}
		if !moved {
			break
		}
	}
	return rows, nil
}

// clickPager clicks a pagination link matching either label, reporting
// whether one was found.
func (l *Lookup) clickPager(labels ...string) (bool, error) {
	quoted := make([]string, len(labels))
	for i, label := range labels {
		quoted[i] = fmt.Sprintf("%q", label)
	}
	js := fmt.Sprintf(`(function() {%s
		var wanted = [%s];
		return walk(window, function(doc) {
			var links = doc.querySelectorAll('a');
			for (var i = 0; i < links.length; i++) {
				var text = (links[i].textContent || '').trim();
				for (var j = 0; j < wanted.length; j++) {
					if (text === wanted[j]) { links[i].click(); return true; }
				}
			}
			return null;
		}) === true;
	})()`, jsWalkFrames, strings.Join(quoted, ","))

	var clicked bool
	if err := l.browser.Run(chromedp.Evaluate(js, &clicked)); err != nil {
		return false, err
	}
	if clicked {
		if err := l.browser.Run(chromedp.Sleep(pageSettle)); err != nil {
			return false, err
		}
	}
	return clicked, nil
}

// currentPageRows extracts date, status and sold-to-party from the
// result table of the current page.
func (l *Lookup) currentPageRows() ([]registration, error) {
	js := fmt.Sprintf(`(function() {%s
		function headerIndex(table, names) {
			var heads = table.querySelectorAll('th');
			for (var i = 0; i < heads.length; i++) {
				var text = (heads[i].textContent || '').trim().toLowerCase();
				for (var j = 0; j < names.length; j++) {
					if (text.indexOf(names[j]) !== -1) return i;
				}
			}
			return -1;
		}
		var result = walk(window, function(doc) {
			var tables = doc.querySelectorAll('table');
			for (var t = 0; t < tables.length; t++) {
				var dateCol = headerIndex(tables[t], ['registration date']);
				if (dateCol < 0) continue;
				var statusCol = headerIndex(tables[t], ['registration status', 'status']);
				var soldCol = headerIndex(tables[t], ['sold-to-party name', 'sold-to party name', 'sold-to party', 'sold-to-party']);
				if (statusCol < 0 || soldCol < 0) continue;

				var rows = [];
				var trs = tables[t].querySelectorAll('tbody tr');
				for (var r = 0; r < trs.length; r++) {
					var tds = trs[r].querySelectorAll('td');
					if (tds.length <= dateCol || tds.length <= statusCol || tds.length <= soldCol) continue;
					rows.push({
						date: (tds[dateCol].innerText || tds[dateCol].textContent || '').trim(),
						status: (tds[statusCol].innerText || tds[statusCol].textContent || '').trim(),
						soldTo: (tds[soldCol].innerText || tds[soldCol].textContent || '').trim()
					});
				}
				return { rows: rows };
			}
			return null;
		});
		return JSON.stringify(result ? result.rows : []);
	})()`, jsWalkFrames)

	var raw string
	if err := l.browser.Run(chromedp.Evaluate(js, &raw)); err != nil {
		return nil, err
	}
	var rows []registration
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("parse result rows: %w", err)
	}
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
