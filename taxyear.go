package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TaxYearLabel returns the UK tax year label for the year starting 6 April
// of startYear, e.g. 2024 -> "2024/25"
func TaxYearLabel(startYear int) string {
	return fmt.Sprintf("%d/%02d", startYear, (startYear+1)%100)
}

// TaxYearLabelShort returns the two-digit form, e.g. 2024 -> "24/25"
func TaxYearLabelShort(startYear int) string {
	return fmt.Sprintf("%02d/%02d", startYear%100, (startYear+1)%100)
}

// ParseTaxYearLabel parses "2024/25" (or "2024-25") back to its start year.
// The suffix must be the year after the start year.
func ParseTaxYearLabel(label string) (int, error) {
	label = strings.TrimSpace(label)
	sep := strings.IndexAny(label, "/-")
	if sep < 0 {
		return 0, fmt.Errorf("invalid tax year %q: expected format YYYY/YY", label)
	}
	start, err := strconv.Atoi(label[:sep])
	if err != nil || sep != 4 {
		return 0, fmt.Errorf("invalid tax year %q: expected format YYYY/YY", label)
	}
	suffix, err := strconv.Atoi(label[sep+1:])
	if err != nil || len(label)-sep-1 != 2 {
		return 0, fmt.Errorf("invalid tax year %q: expected format YYYY/YY", label)
	}
	if suffix != (start+1)%100 {
		return 0, fmt.Errorf("invalid tax year %q: %02d does not follow %d", label, suffix, start)
	}
	return start, nil
}

// TaxYearStartFor returns the start year of the UK tax year containing t.
// Tax years run from 6 April to 5 April.
func TaxYearStartFor(t time.Time) int {
	if t.Month() < time.April || (t.Month() == time.April && t.Day() < 6) {
		return t.Year() - 1
	}
	return t.Year()
}

// TaxYearRegistry holds validated tax-year tables keyed by label
type TaxYearRegistry struct {
	years       map[string]TaxYearConstants
	defaultYear string
}

// NewTaxYearRegistry validates every table once and refuses to build a
// registry from malformed or duplicated tables
func NewTaxYearRegistry(years []TaxYearConstants, defaultYear string) (*TaxYearRegistry, error) {
	if len(years) == 0 {
		return nil, errors.New("no tax years configured")
	}

	reg := &TaxYearRegistry{years: make(map[string]TaxYearConstants, len(years))}
	var errs []error
	for _, ty := range years {
		if err := ty.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tax year %q: %w", ty.Label, err))
			continue
		}
		if _, dup := reg.years[ty.Label]; dup {
			errs = append(errs, fmt.Errorf("tax year %q defined more than once", ty.Label))
			continue
		}
		reg.years[ty.Label] = ty
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if defaultYear == "" {
		labels := reg.Labels()
		defaultYear = labels[len(labels)-1]
	}
	if _, ok := reg.years[defaultYear]; !ok {
		return nil, fmt.Errorf("default tax year %q is not configured", defaultYear)
	}
	reg.defaultYear = defaultYear

	return reg, nil
}

// Get returns the table for label. An empty label selects the default
// year; "current" selects the tax year containing today.
func (r *TaxYearRegistry) Get(label string) (TaxYearConstants, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "":
		label = r.defaultYear
	case "current":
		label = TaxYearLabel(TaxYearStartFor(time.Now()))
	}
	ty, ok := r.years[label]
	if !ok {
		return TaxYearConstants{}, fmt.Errorf("unknown tax year %q (available: %s)", label, strings.Join(r.Labels(), ", "))
	}
	return ty, nil
}

// Default returns the default tax year table
func (r *TaxYearRegistry) Default() TaxYearConstants {
	return r.years[r.defaultYear]
}

// DefaultLabel returns the label of the default tax year
func (r *TaxYearRegistry) DefaultLabel() string {
	return r.defaultYear
}

// Labels returns all configured labels in chronological order
func (r *TaxYearRegistry) Labels() []string {
	labels := make([]string, 0, len(r.years))
	for label := range r.years {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// All returns every table in chronological order
func (r *TaxYearRegistry) All() []TaxYearConstants {
	labels := r.Labels()
	all := make([]TaxYearConstants, len(labels))
	for i, label := range labels {
		all[i] = r.years[label]
	}
	return all
}
