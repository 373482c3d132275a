// Package refdata loads and serves the reference lists that drive lead
// triage: academic domains, excluded domains, direct-account companies,
// blacklisted countries, and free-mailer domains.
package refdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// File names looked up inside the reference-data directory. Each file is a
// CSV whose first column ("Option Values") carries the entries; an optional
// second column carries a display name.
const (
	academicDomainsFile     = "academic_domains.csv"
	excludedDomainsFile     = "excluded_domains.csv"
	directAccountsFile      = "direct_accounts.csv"
	blacklistedCountryFile  = "blacklisted_countries.csv"
	freemailDomainsFile     = "freemail_domains.csv"
	knownInstitutionsPrefix = "institutions_"
)

// defaultFreeMailers backs the free-mailer check when no file is present.
var defaultFreeMailers = []string{
	"gmail.com", "yahoo.com", "outlook.com", "hotmail.com", "live.com",
	"aol.com", "icloud.com", "mail.com", "proton.me", "protonmail.com",
	"gmx.com", "gmx.de", "web.de", "yandex.com", "zoho.com", "qq.com",
	"mail.ru", "163.com", "126.com", "sina.com", "sohu.com",
}

// Set is a lowercase membership set with optional display names.
type Set struct {
	members map[string]bool
	display map[string]string
}

// NewSet builds a Set from raw entries, lowercasing and trimming each.
func NewSet(entries ...string) *Set {
	s := &Set{members: make(map[string]bool), display: make(map[string]string)}
	for _, e := range entries {
		s.add(e, "")
	}
	return s
}

func (s *Set) add(entry, name string) {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return
	}
	s.members[entry] = true
	if name = strings.TrimSpace(name); name != "" {
		s.display[entry] = name
	}
}

// Contains reports exact membership of the lowercased entry.
func (s *Set) Contains(entry string) bool {
	if s == nil {
		return false
	}
	return s.members[strings.ToLower(strings.TrimSpace(entry))]
}

// ContainsDomain reports membership of a domain, treating entries as
// suffixes: sub.acme.com matches an acme.com entry.
func (s *Set) ContainsDomain(domain string) bool {
	if s == nil {
		return false
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	if s.members[domain] {
		return true
	}
	for i := strings.IndexByte(domain, '.'); i >= 0; i = strings.IndexByte(domain, '.') {
		domain = domain[i+1:]
		if s.members[domain] {
			return true
		}
	}
	return false
}

// DisplayName returns the display name recorded for an entry, or the entry
// itself when none was provided.
func (s *Set) DisplayName(entry string) string {
	if s == nil {
		return entry
	}
	key := strings.ToLower(strings.TrimSpace(entry))
	if name, ok := s.display[key]; ok {
		return name
	}
	return entry
}

// Len returns the number of entries.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Entries returns the members in unspecified order.
func (s *Set) Entries() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.members))
	for m := range s.members {
		out = append(out, m)
	}
	return out
}

// Store holds every loaded reference list.
type Store struct {
	AcademicDomains      *Set
	ExcludedDomains      *Set
	DirectAccounts       *Set
	BlacklistedCountries *Set
	FreemailDomains      *Set

	// Institutions maps a lowercased country name to the known academic
	// institutions of that country.
	Institutions map[string]*Set
}

// Load reads every reference list from dir. Missing files are skipped with
// a log line; a missing free-mailer file falls back to the built-in list.
func Load(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("reference data directory not set")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reference data directory: %w", err)
	}

	st := &Store{
		AcademicDomains:      loadSet(filepath.Join(dir, academicDomainsFile)),
		ExcludedDomains:      loadSet(filepath.Join(dir, excludedDomainsFile)),
		DirectAccounts:       loadSet(filepath.Join(dir, directAccountsFile)),
		BlacklistedCountries: loadSet(filepath.Join(dir, blacklistedCountryFile)),
		FreemailDomains:      loadSet(filepath.Join(dir, freemailDomainsFile)),
		Institutions:         loadInstitutions(dir),
	}
	if st.FreemailDomains.Len() == 0 {
		st.FreemailDomains = NewSet(defaultFreeMailers...)
	}
	return st, nil
}

func loadSet(path string) *Set {
	s := NewSet()
	f, err := os.Open(path)
	if err != nil {
		log.Printf("Reference list %s not found, skipping", filepath.Base(path))
		return s
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("Skipping malformed row in %s: %v", filepath.Base(path), err)
			continue
		}
		if len(rec) == 0 {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(rec[0]), "Option Values") {
				continue
			}
		}
		name := ""
		if len(rec) > 1 {
			name = rec[1]
		}
		s.add(rec[0], name)
	}
	return s
}

// loadInstitutions reads institutions_<country>.csv files into per-country
// sets keyed by the lowercased country name.
func loadInstitutions(dir string) map[string]*Set {
	out := make(map[string]*Set)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, knownInstitutionsPrefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		country := strings.TrimSuffix(strings.TrimPrefix(name, knownInstitutionsPrefix), ".csv")
		country = strings.ToLower(strings.ReplaceAll(country, "_", " "))
		out[country] = loadSet(filepath.Join(dir, name))
	}
	return out
}

// InstitutionsFor returns the known institutions of a country, or nil.
func (st *Store) InstitutionsFor(country string) *Set {
	if st == nil {
		return nil
	}
	return st.Institutions[strings.ToLower(strings.TrimSpace(country))]
}
