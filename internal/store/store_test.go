package store

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	apperrors "salud-dashboard/internal/errors"
)

const fixtureHeader = "codigoOC,FechaEnvioOC,Proveedor,ProveedorRUT,RegionProveedor,RegionUnidadCompra,ONUProducto,RubroN1,MontoTotalOC_CLP"

func loadFixture(t *testing.T, csv string) *Store {
	t.Helper()
	s, err := Load(context.Background(), strings.NewReader(csv), slog.Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoad_ValidData(t *testing.T) {
	csv := fixtureHeader + "\n" +
		"OC-1,2025-03-10,Clinica Sur,11111111-1,Maule,Maule,Servicios Médicos,Salud,150000\n" +
		"OC-2,2025-04-02,Insumos Norte,22222222-2,Biobío,Maule,Insumos,Salud,98000\n"

	s := loadFixture(t, csv)

	if s.RecordCount() != 2 {
		t.Errorf("RecordCount() = %d, want 2", s.RecordCount())
	}

	want := []string{"Insumos", "Servicios Médicos"}
	if !reflect.DeepEqual(s.Categories(), want) {
		t.Errorf("Categories() = %v, want %v", s.Categories(), want)
	}

	if s.LoadedAt().IsZero() {
		t.Error("LoadedAt() should be set after a successful load")
	}
}

func TestLoad_CastFailuresBecomeNulls(t *testing.T) {
	csv := fixtureHeader + "\n" +
		"OC-1,not-a-date,Clinica Sur,11111111-1,Maule,Maule,Servicios Médicos,Salud,abc\n" +
		"OC-2,2025-04-02,Insumos Norte,22222222-2,,,,Salud,98000\n"

	s := loadFixture(t, csv)

	if s.RecordCount() != 2 {
		t.Fatalf("RecordCount() = %d, want 2 (bad rows must not fail the load)", s.RecordCount())
	}

	var nullDates, nullAmounts, nullRegions int
	row := s.QueryRowContext(context.Background(),
		`SELECT
			SUM(CASE WHEN sent_date IS NULL THEN 1 ELSE 0 END),
			SUM(CASE WHEN amount IS NULL THEN 1 ELSE 0 END),
			SUM(CASE WHEN supplier_region IS NULL THEN 1 ELSE 0 END)
		FROM orders`)
	if err := row.Scan(&nullDates, &nullAmounts, &nullRegions); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if nullDates != 1 {
		t.Errorf("null sent_date rows = %d, want 1", nullDates)
	}
	if nullAmounts != 1 {
		t.Errorf("null amount rows = %d, want 1", nullAmounts)
	}
	if nullRegions != 1 {
		t.Errorf("null supplier_region rows = %d, want 1", nullRegions)
	}
}

func TestLoad_DateLayouts(t *testing.T) {
	csv := fixtureHeader + "\n" +
		"OC-1,2025-03-10,A,1-1,Maule,Maule,X,Salud,1\n" +
		"OC-2,2025-03-10 14:30:00,B,2-2,Maule,Maule,X,Salud,1\n" +
		"OC-3,10-03-2025,C,3-3,Maule,Maule,X,Salud,1\n"

	s := loadFixture(t, csv)

	var parsed int
	row := s.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM orders WHERE sent_date = '2025-03-10'`)
	if err := row.Scan(&parsed); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if parsed != 3 {
		t.Errorf("parsed dates = %d, want 3", parsed)
	}
}

func TestLoad_ShortRowsSkipped(t *testing.T) {
	csv := fixtureHeader + "\n" +
		"OC-1,2025-03-10,A,1-1,Maule,Maule,X,Salud,1\n" +
		"OC-2,broken\n"

	s := loadFixture(t, csv)

	if s.RecordCount() != 1 {
		t.Errorf("RecordCount() = %d, want 1", s.RecordCount())
	}
	if s.SkippedRows() != 1 {
		t.Errorf("SkippedRows() = %d, want 1", s.SkippedRows())
	}
}

func TestLoad_HeaderOnlyIsEmptyStore(t *testing.T) {
	s := loadFixture(t, fixtureHeader+"\n")

	if s.RecordCount() != 0 {
		t.Errorf("RecordCount() = %d, want 0", s.RecordCount())
	}
	if len(s.Categories()) != 0 {
		t.Errorf("Categories() = %v, want empty", s.Categories())
	}
}

func TestLoad_MissingColumnFails(t *testing.T) {
	csv := "codigoOC,Proveedor\nOC-1,A\n"

	_, err := Load(context.Background(), strings.NewReader(csv), slog.Default())
	if err == nil {
		t.Fatal("Load() expected error for missing columns")
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeDataLoad {
		t.Errorf("error = %v, want code %s", err, apperrors.CodeDataLoad)
	}
}

func TestLoad_EmptySourceFails(t *testing.T) {
	_, err := Load(context.Background(), strings.NewReader(""), slog.Default())
	if err == nil {
		t.Fatal("Load() expected error for empty source")
	}
}
