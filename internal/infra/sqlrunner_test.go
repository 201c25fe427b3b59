package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"

	"mediagen/internal/sqlinline"
)

func TestExtractMarker(t *testing.T) {
	marker, body, err := extractMarker("\n--sql 515f3ef1-f7c6-4a26-9a07-1e87dfb9ebbf\nselect 1;\n")
	if err != nil {
		t.Fatalf("extractMarker returned error: %v", err)
	}
	if marker != "515f3ef1-f7c6-4a26-9a07-1e87dfb9ebbf" {
		t.Fatalf("marker = %q", marker)
	}
	if body != "select 1;" {
		t.Fatalf("body = %q, want %q", body, "select 1;")
	}

	for _, q := range []string{"select 1;", "--sql not-a-uuid\nselect 1;", ""} {
		if _, _, err := extractMarker(q); err == nil {
			t.Fatalf("extractMarker(%q) succeeded, want error", q)
		}
	}
}

func TestInlineQueriesCarryMarkers(t *testing.T) {
	queries := map[string]string{
		"QEnsureSchema":               sqlinline.QEnsureSchema,
		"QInsertGenerationJob":        sqlinline.QInsertGenerationJob,
		"QUpdateGenerationJobState":   sqlinline.QUpdateGenerationJobState,
		"QSelectGenerationJob":        sqlinline.QSelectGenerationJob,
		"QCountGenerationJobsByState": sqlinline.QCountGenerationJobsByState,
		"QSelectUserContext":          sqlinline.QSelectUserContext,
		"QUpsertUserContext":          sqlinline.QUpsertUserContext,
	}
	seen := make(map[string]string)
	for name, q := range queries {
		marker, _, err := extractMarker(q)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if other, dup := seen[marker]; dup {
			t.Fatalf("%s reuses marker of %s", name, other)
		}
		seen[marker] = name
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatalf("wrapped ErrNoRows not detected")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatalf("unrelated error reported as no rows")
	}
}
