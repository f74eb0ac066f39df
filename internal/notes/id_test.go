package notes

import (
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

func TestNewIDProviderKinds(t *testing.T) {
	uuidIDs, err := NewIDProvider("uuid")
	if err != nil {
		t.Fatalf("unexpected uuid provider error: %v", err)
	}
	value, err := uuidIDs.NewID()
	if err != nil {
		t.Fatalf("unexpected uuid error: %v", err)
	}
	parsed, err := uuid.Parse(value)
	if err != nil || parsed.Version() != 7 {
		t.Fatalf("expected a UUIDv7, got %q (%v)", value, err)
	}

	ulidIDs, err := NewIDProvider("ULID")
	if err != nil {
		t.Fatalf("unexpected ulid provider error: %v", err)
	}
	first, err := ulidIDs.NewID()
	if err != nil {
		t.Fatalf("unexpected ulid error: %v", err)
	}
	second, err := ulidIDs.NewID()
	if err != nil {
		t.Fatalf("unexpected ulid error: %v", err)
	}
	if _, err := ulid.ParseStrict(first); err != nil {
		t.Fatalf("expected a valid ULID, got %q (%v)", first, err)
	}
	if second <= first {
		t.Fatalf("expected monotonic ULIDs, got %s then %s", first, second)
	}

	if _, err := NewIDProvider("snowflake"); err == nil {
		t.Fatalf("expected unsupported kind to fail")
	}
}
