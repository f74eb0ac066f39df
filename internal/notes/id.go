package notes

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Identifier kinds accepted by NewIDProvider.
const (
	IDKindUUID = "uuid"
	IDKindULID = "ulid"
)

// IDProvider issues unique identifiers for notes, pages, recordings, folders and audio blobs.
type IDProvider interface {
	NewID() (string, error)
}

// NewIDProvider returns the provider registered for kind. An empty kind selects UUIDv7.
func NewIDProvider(kind string) (IDProvider, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", IDKindUUID:
		return NewUUIDProvider(), nil
	case IDKindULID:
		return NewULIDProvider(), nil
	default:
		return nil, fmt.Errorf("notes: unsupported id kind %q", kind)
	}
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

type ulidProvider struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDProvider constructs an IDProvider that issues monotonic ULIDs.
func NewULIDProvider() IDProvider {
	source := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &ulidProvider{entropy: ulid.Monotonic(source, 0)}
}

func (p *ulidProvider) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	value, err := ulid.New(ulid.Timestamp(time.Now()), p.entropy)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
