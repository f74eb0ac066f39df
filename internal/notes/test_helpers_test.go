package notes

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jclarke67/voice-canvas-scribe/internal/storage"
)

var errInjectedWrite = errors.New("quota exceeded")

type sequenceIDProvider struct {
	mu   sync.Mutex
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("id-%03d", p.next), nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type notification struct {
	kind    NotificationKind
	message string
}

type recordingNotifier struct {
	mu       sync.Mutex
	received []notification
}

func (n *recordingNotifier) Notify(kind NotificationKind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, notification{kind: kind, message: message})
}

func (n *recordingNotifier) has(kind NotificationKind, message string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, entry := range n.received {
		if entry.kind == kind && entry.message == message {
			return true
		}
	}
	return false
}

// failingStore rejects writes to the configured keys.
type failingStore struct {
	storage.Store
	mu       sync.Mutex
	failKeys map[string]bool
}

func (s *failingStore) failWrites(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failKeys == nil {
		s.failKeys = make(map[string]bool)
	}
	s.failKeys[key] = true
}

func (s *failingStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	fail := s.failKeys[key]
	s.mu.Unlock()
	if fail {
		return errInjectedWrite
	}
	return s.Store.Set(ctx, key, value)
}

type harness struct {
	repo     *Repository
	store    *failingStore
	gateway  *storage.Gateway
	clock    *manualClock
	ids      *sequenceIDProvider
	notifier *recordingNotifier
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "notes.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&storage.Entry{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	store, err := storage.NewSQLStore(db)
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := &failingStore{Store: newTestStore(t)}
	gateway, err := storage.NewGateway(store)
	if err != nil {
		t.Fatalf("failed to build gateway: %v", err)
	}
	h := &harness{
		store:    store,
		gateway:  gateway,
		clock:    newManualClock(),
		ids:      &sequenceIDProvider{},
		notifier: &recordingNotifier{},
	}
	h.repo = h.reopen(t)
	return h
}

// reopen builds a fresh repository over the same store.
func (h *harness) reopen(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), RepositoryConfig{
		Gateway:    h.gateway,
		Clock:      h.clock.Now,
		IDProvider: h.ids,
		Notifier:   h.notifier,
	})
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	return repo
}

func (h *harness) storedNotes(t *testing.T) []Note {
	t.Helper()
	var stored []Note
	if _, err := h.gateway.LoadJSON(context.Background(), storage.NotesKey, &stored); err != nil {
		t.Fatalf("failed to load stored notes: %v", err)
	}
	return stored
}

func (h *harness) mirrored(t *testing.T) []Note {
	t.Helper()
	mirrored, err := NewMirror(h.gateway).Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load mirror: %v", err)
	}
	return mirrored
}

func mustCreateNote(t *testing.T, repo *Repository, folderID string) Note {
	t.Helper()
	note, err := repo.CreateNote(context.Background(), folderID)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	return note
}

func mustSaveRecording(t *testing.T, repo *Repository, noteID, audioRef string) Recording {
	t.Helper()
	recording, err := repo.SaveRecording(context.Background(), noteID, RecordingInput{AudioURL: audioRef, Duration: 1.5}, "")
	if err != nil {
		t.Fatalf("unexpected save recording error: %v", err)
	}
	return recording
}

func mustNote(t *testing.T, repo *Repository, id string) Note {
	t.Helper()
	note, ok := repo.Note(id)
	if !ok {
		t.Fatalf("expected note %s to exist", id)
	}
	return note
}

func assertRecordingsConsistent(t *testing.T, note Note) {
	t.Helper()
	flat := make(map[string]int)
	for _, recording := range note.Recordings {
		flat[recording.ID]++
	}
	paged := make(map[string]int)
	for _, page := range note.Pages {
		for _, recording := range page.Recordings {
			paged[recording.ID]++
		}
	}
	if len(flat) != len(paged) {
		t.Fatalf("flattened recordings %v differ from page recordings %v", flat, paged)
	}
	for id, count := range flat {
		if paged[id] != count {
			t.Fatalf("flattened recordings %v differ from page recordings %v", flat, paged)
		}
	}
}

// testWAV builds a mono 16-bit PCM file holding the given number of samples.
func testWAV(t *testing.T, sampleRate, samples int) []byte {
	t.Helper()
	dataSize := samples * 2
	var buffer bytes.Buffer
	write := func(value any) {
		if err := binary.Write(&buffer, binary.LittleEndian, value); err != nil {
			t.Fatalf("failed to write wav header: %v", err)
		}
	}
	buffer.WriteString("RIFF")
	write(uint32(36 + dataSize))
	buffer.WriteString("WAVEfmt ")
	write(uint32(16))
	write(uint16(1))
	write(uint16(1))
	write(uint32(sampleRate))
	write(uint32(sampleRate * 2))
	write(uint16(2))
	write(uint16(16))
	buffer.WriteString("data")
	write(uint32(dataSize))
	buffer.Write(make([]byte, dataSize))
	return buffer.Bytes()
}

// testMP3 builds an ID3-tagged stream of silent MPEG-1 Layer III frames at 128kbps and 44.1kHz.
func testMP3(frames int) []byte {
	const frameSize = 417
	var buffer bytes.Buffer
	buffer.Write([]byte{'I', 'D', '3', 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})
	for i := 0; i < frames; i++ {
		frame := make([]byte, frameSize)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0x00})
		buffer.Write(frame)
	}
	return buffer.Bytes()
}

// testOgg builds the first page of an Ogg Opus stream.
func testOgg() []byte {
	var buffer bytes.Buffer
	buffer.WriteString("OggS")
	buffer.Write([]byte{0x00, 0x02})
	buffer.Write(make([]byte, 20))
	buffer.Write([]byte{0x01, 19})
	buffer.WriteString("OpusHead")
	buffer.Write([]byte{0x01, 0x01, 0x38, 0x01, 0x80, 0xBB, 0x00, 0x00, 0x00, 0x00, 0x00})
	return buffer.Bytes()
}
