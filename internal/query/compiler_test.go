package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	apperrors "salud-dashboard/internal/errors"
	"salud-dashboard/internal/models"
)

func baseFilter() models.FilterState {
	return models.FilterState{
		DateFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestCompile_DefaultsToDateBoundsOnly(t *testing.T) {
	p, err := Compile(baseFilter(), nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	want := " WHERE sent_date >= ? AND sent_date <= ?"
	if p.Clause() != want {
		t.Errorf("Clause() = %q, want %q", p.Clause(), want)
	}

	wantArgs := []any{"2025-01-01", "2025-12-31"}
	if !reflect.DeepEqual(p.Args(), wantArgs) {
		t.Errorf("Args() = %v, want %v", p.Args(), wantArgs)
	}
}

func TestCompile_ClausePresence(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*models.FilterState)
		categories []string
		contains   string
		extraArgs  int
	}{
		{
			name:      "health only",
			mutate:    func(f *models.FilterState) { f.HealthOnly = true },
			contains:  "commodity_lc",
			extraArgs: 0,
		},
		{
			name:      "supplier region",
			mutate:    func(f *models.FilterState) { f.SupplierRegion = "Maule" },
			contains:  "supplier_region = ?",
			extraArgs: 1,
		},
		{
			name:      "purchase region",
			mutate:    func(f *models.FilterState) { f.PurchaseRegion = "Biobío" },
			contains:  "purchase_region = ?",
			extraArgs: 1,
		},
		{
			name:       "category",
			mutate:     func(f *models.FilterState) { f.Category = "Servicios Médicos" },
			categories: []string{"Servicios Médicos"},
			contains:   "category = ?",
			extraArgs:  1,
		},
		{
			name:      "search term",
			mutate:    func(f *models.FilterState) { f.SearchTerm = "clinica" },
			contains:  "supplier_tax_id",
			extraArgs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseFilter()
			tt.mutate(&f)

			p, err := Compile(f, tt.categories)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}

			if !strings.Contains(p.Clause(), tt.contains) {
				t.Errorf("Clause() = %q, missing %q", p.Clause(), tt.contains)
			}

			if got := len(p.Args()); got != 2+tt.extraArgs {
				t.Errorf("len(Args()) = %d, want %d", got, 2+tt.extraArgs)
			}
		})
	}
}

func TestCompile_SearchTermStaysOutOfQueryText(t *testing.T) {
	f := baseFilter()
	f.SearchTerm = "' OR 1=1 --"

	p, err := Compile(f, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if strings.Contains(p.Clause(), "1=1") {
		t.Errorf("search term leaked into query text: %q", p.Clause())
	}

	found := false
	for _, arg := range p.Args() {
		if arg == "' OR 1=1 --" {
			found = true
		}
	}
	if !found {
		t.Errorf("search term not bound as literal argument: %v", p.Args())
	}
}

func TestCompile_SearchTermTrimming(t *testing.T) {
	f := baseFilter()
	f.SearchTerm = "   "

	p, err := Compile(f, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if strings.Contains(p.Clause(), "supplier") {
		t.Errorf("blank search term produced a clause: %q", p.Clause())
	}
}

func TestCompile_InvalidFilters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.FilterState)
	}{
		{"unknown supplier region", func(f *models.FilterState) { f.SupplierRegion = "Atlantis" }},
		{"unknown purchase region", func(f *models.FilterState) { f.PurchaseRegion = "Narnia" }},
		{"category absent from data", func(f *models.FilterState) { f.Category = "No Existe" }},
		{"inverted date range", func(f *models.FilterState) {
			f.DateFrom, f.DateTo = f.DateTo, f.DateFrom
		}},
		{"zero date bound", func(f *models.FilterState) { f.DateFrom = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseFilter()
			tt.mutate(&f)

			_, err := Compile(f, []string{"Servicios Médicos"})
			if err == nil {
				t.Fatal("Compile() expected error, got nil")
			}

			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeInvalidFilter {
				t.Errorf("error = %v, want code %s", err, apperrors.CodeInvalidFilter)
			}
		})
	}
}

func TestCompile_Deterministic(t *testing.T) {
	f := baseFilter()
	f.HealthOnly = true
	f.SupplierRegion = "Ñuble"
	f.SearchTerm = "hospital"

	p1, err := Compile(f, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	p2, err := Compile(f, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if p1.Clause() != p2.Clause() || !reflect.DeepEqual(p1.Args(), p2.Args()) {
		t.Error("identical filter states compiled to different predicates")
	}
}

func TestPredicate_AndDoesNotAliasBase(t *testing.T) {
	base, err := Compile(baseFilter(), nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	a := base.And("category IS NOT NULL")
	b := base.And("supplier_region IS NOT NULL")

	if !strings.Contains(a.Clause(), "category IS NOT NULL") {
		t.Errorf("a.Clause() = %q", a.Clause())
	}
	if strings.Contains(b.Clause(), "category IS NOT NULL") {
		t.Errorf("b inherited a's clause: %q", b.Clause())
	}
	if strings.Contains(base.Clause(), "IS NOT NULL") {
		t.Errorf("base predicate mutated: %q", base.Clause())
	}
}
