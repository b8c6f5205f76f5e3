package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nudriin/humbet-cli/internal/core/domain"
	"github.com/nudriin/humbet-cli/internal/core/ports"
)

// notifier implements the observer half of ports.SessionStore. Observers
// are invoked synchronously, outside the store lock.
type notifier struct {
	mu        sync.Mutex
	nextID    int
	observers map[int]func(ports.SessionEvent)
}

func newNotifier() *notifier {
	return &notifier{observers: make(map[int]func(ports.SessionEvent))}
}

// Subscribe registers an observer and returns its unsubscribe function.
func (n *notifier) Subscribe(fn func(ports.SessionEvent)) func() {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.observers[id] = fn
	n.mu.Unlock()
	return func() {
		n.mu.Lock()
		delete(n.observers, id)
		n.mu.Unlock()
	}
}

func (n *notifier) notify(evt ports.SessionEvent) {
	n.mu.Lock()
	observers := make([]func(ports.SessionEvent), 0, len(n.observers))
	for _, fn := range n.observers {
		observers = append(observers, fn)
	}
	n.mu.Unlock()
	for _, fn := range observers {
		fn(evt)
	}
}

// FileSessionStore persists the credential bundle to an encrypted file so a
// login survives process restarts. The encryption key is derived from
// machine identity; the file carries 0600 permissions.
type FileSessionStore struct {
	*notifier
	sessionFile string
	encryptKey  []byte
	mu          sync.RWMutex
}

// NewFileSessionStore creates a session store rooted at stateDir, creating
// the directory when missing. A leading ~/ is expanded to the home dir.
func NewFileSessionStore(stateDir string) (*FileSessionStore, error) {
	if strings.HasPrefix(stateDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		stateDir = filepath.Join(home, stateDir[2:])
	}

	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &FileSessionStore{
		notifier:    newNotifier(),
		sessionFile: filepath.Join(stateDir, ".session"),
		encryptKey:  deriveEncryptionKey(),
	}, nil
}

// Load reads the persisted session. A missing or undecodable file yields a
// zero session, never an error: a corrupt session is simply a logout.
func (s *FileSessionStore) Load() (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.sessionFile)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Session{}, nil
		}
		return domain.Session{}, fmt.Errorf("failed to read session file: %w", err)
	}

	decrypted, err := s.decrypt(data)
	if err != nil {
		return domain.Session{}, nil
	}

	var session domain.Session
	if err := json.Unmarshal(decrypted, &session); err != nil {
		return domain.Session{}, nil
	}
	if !session.Valid() {
		return domain.Session{}, nil
	}
	return session, nil
}

// Save replaces the session wholesale and notifies observers that the
// session was updated.
func (s *FileSessionStore) Save(session domain.Session) error {
	if !session.Valid() {
		return fmt.Errorf("refusing to persist access token without refresh token")
	}

	s.mu.Lock()
	data, err := json.Marshal(session)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	encrypted, err := s.encrypt(data)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to encrypt session: %w", err)
	}
	if err := os.WriteFile(s.sessionFile, encrypted, 0600); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	s.mu.Unlock()

	s.notify(ports.SessionEvent{Kind: ports.SessionUpdated})
	return nil
}

// Clear wipes all credential fields together. When message is non-empty,
// observers receive a session-expired notification carrying it.
func (s *FileSessionStore) Clear(message string) error {
	s.mu.Lock()
	err := os.Remove(s.sessionFile)
	s.mu.Unlock()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	if message != "" {
		s.notify(ports.SessionEvent{Kind: ports.SessionExpired, Message: message})
	}
	return nil
}

func (s *FileSessionStore) encrypt(data []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.encryptKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nonce, nonce, data, nil)
	return []byte(base64.StdEncoding.EncodeToString(ciphertext)), nil
}

func (s *FileSessionStore) decrypt(data []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(s.encryptKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// deriveEncryptionKey builds a machine-specific key from hostname and user.
func deriveEncryptionKey() []byte {
	hostname, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	keyMaterial := fmt.Sprintf("humbet-cli:%s:%s", hostname, user)
	hash := sha256.Sum256([]byte(keyMaterial))
	return hash[:]
}

// MemorySessionStore keeps the session in memory. Used by tests.
type MemorySessionStore struct {
	*notifier
	mu      sync.RWMutex
	session domain.Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{notifier: newNotifier()}
}

// Load returns the current session.
func (s *MemorySessionStore) Load() (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, nil
}

// Save replaces the session and notifies observers.
func (s *MemorySessionStore) Save(session domain.Session) error {
	if !session.Valid() {
		return fmt.Errorf("refusing to persist access token without refresh token")
	}
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	s.notify(ports.SessionEvent{Kind: ports.SessionUpdated})
	return nil
}

// Clear wipes the session and notifies observers when a message is given.
func (s *MemorySessionStore) Clear(message string) error {
	s.mu.Lock()
	s.session = domain.Session{}
	s.mu.Unlock()
	if message != "" {
		s.notify(ports.SessionEvent{Kind: ports.SessionExpired, Message: message})
	}
	return nil
}
