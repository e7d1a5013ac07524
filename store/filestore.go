// Package store provides the durable TokenStore backing the console session:
// a single-file sqlite database holding the refresh token sealed at rest and
// the last-known user profile.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/chacha20poly1305"

	session "github.com/classdesk/go-session"
)

// DefaultScope is the record scope used when no backend/account pair is
// configured. One scope holds at most one credential set.
const DefaultScope = "default"

type credentialRecord struct {
	bun.BaseModel `bun:"table:console_credentials,alias:cred"`

	ID           string    `bun:"id,pk"`
	RefreshToken []byte    `bun:"refresh_token"`
	UserProfile  []byte    `bun:"user_profile"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// FileStore is a session.TokenStore over a sqlite file. The refresh token is
// sealed with XChaCha20-Poly1305 before it touches disk; the profile is kept
// plain, it holds nothing secret.
type FileStore struct {
	db       *bun.DB
	aeadKey  []byte
	recordID string
	logger   session.Logger
}

var _ session.TokenStore = (*FileStore)(nil)

// Option customizes FileStore construction.
type Option func(*FileStore)

// WithScope namespaces the credential record by backend base URL and account
// so one store file can hold sessions for several deployments.
func WithScope(baseURL, account string) Option {
	return func(s *FileStore) {
		s.recordID = recordIDFor(baseURL + "|" + account)
	}
}

func WithLogger(logger session.Logger) Option {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New opens (creating if needed) the store at path. key must be exactly 32
// bytes; generate one with NewKey and keep it outside the store file.
func New(path string, key []byte, opts ...Option) (*FileStore, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, goerrors.New("store key must be 32 bytes", goerrors.CategoryBadInput)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to open credential store")
	}

	s := &FileStore{
		db:       bun.NewDB(sqldb, sqlitedialect.New()),
		aeadKey:  append([]byte(nil), key...),
		recordID: recordIDFor(DefaultScope),
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.db.NewCreateTable().
		Model((*credentialRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to initialize credential store")
	}

	return s, nil
}

// NewKey generates a fresh random sealing key.
func NewKey() ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to generate store key")
	}
	return key, nil
}

// Save overwrites the stored refresh token and profile as a single record,
// so a reader can never observe one updated and the other stale.
func (s *FileStore) Save(ctx context.Context, creds session.Credentials) error {
	sealed, err := s.seal([]byte(creds.RefreshToken))
	if err != nil {
		return err
	}

	var profile []byte
	if creds.User != nil {
		profile, err = json.Marshal(creds.User)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode user profile")
		}
	}

	rec := &credentialRecord{
		ID:           s.recordID,
		RefreshToken: sealed,
		UserProfile:  profile,
		UpdatedAt:    time.Now(),
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*credentialRecord)(nil)).
			Where("id = ?", s.recordID).
			Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to replace stored credentials")
		}
		if _, err := tx.NewInsert().Model(rec).Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to persist credentials")
		}
		return nil
	})
}

// Read returns the stored credentials, or zero credentials when the store is
// empty. A record sealed under a different key reads as empty; the caller
// will simply re-authenticate.
func (s *FileStore) Read(ctx context.Context) (session.Credentials, error) {
	rec := &credentialRecord{}
	err := s.db.NewSelect().
		Model(rec).
		Where("id = ?", s.recordID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Credentials{}, nil
	}
	if err != nil {
		return session.Credentials{}, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to read stored credentials")
	}

	token, err := s.open(rec.RefreshToken)
	if err != nil {
		s.logger.Error("stored refresh token unreadable, treating store as empty", "error", err)
		return session.Credentials{}, nil
	}

	creds := session.Credentials{RefreshToken: string(token)}
	if len(rec.UserProfile) > 0 {
		user := &session.User{}
		if err := json.Unmarshal(rec.UserProfile, user); err != nil {
			s.logger.Error("stored profile unreadable, dropping it", "error", err)
		} else {
			creds.User = user
		}
	}
	return creds, nil
}

// Clear removes the credential record. Clearing an empty store is a no-op.
func (s *FileStore) Clear(ctx context.Context) error {
	if _, err := s.db.NewDelete().
		Model((*credentialRecord)(nil)).
		Where("id = ?", s.recordID).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to clear stored credentials")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *FileStore) Close() error {
	return s.db.Close()
}

func (s *FileStore) seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.aeadKey)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to initialize cipher")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to generate nonce")
	}
	return append(nonce, aead.Seal(nil, nonce, plaintext, nil)...), nil
}

func (s *FileStore) open(sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.aeadKey)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to initialize cipher")
	}
	if len(sealed) < aead.NonceSize() {
		return nil, goerrors.New("sealed token too short", goerrors.CategoryBadInput)
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "unable to unseal refresh token")
	}
	return plaintext, nil
}

// recordIDFor derives a stable record id from the scope string. Falls back
// to the raw scope when hashing fails, the id only needs to be stable.
func recordIDFor(scope string) string {
	if id, err := hashid.NewUUID(scope); err == nil {
		return id.String()
	}
	return scope
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
