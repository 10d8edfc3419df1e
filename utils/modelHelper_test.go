package utils

import (
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestTranslateFetchError_MissingRowBecomesRecordNotFound(t *testing.T) {
	if got := TranslateFetchError(gorm.ErrRecordNotFound); !errors.Is(got, ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound, got %v", got)
	}
	wrapped := errors.Join(errors.New("lookup gagal"), gorm.ErrRecordNotFound)
	if got := TranslateFetchError(wrapped); !errors.Is(got, ErrorRecordNotFound) {
		t.Fatalf("expected wrapped sentinel to translate, got %v", got)
	}
}

func TestTranslateFetchError_InfrastructureErrorPassesThrough(t *testing.T) {
	dbDown := errors.New("dial tcp 10.0.0.5:3306: connect: connection refused")
	got := TranslateFetchError(dbDown)
	if !errors.Is(got, dbDown) {
		t.Fatalf("expected error to pass through, got %v", got)
	}
	if errors.Is(got, ErrorRecordNotFound) {
		t.Fatalf("infrastructure error must not look like a missing row")
	}
}
