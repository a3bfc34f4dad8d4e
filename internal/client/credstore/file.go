package credstore

import (
	"context"
	"crypto/cipher"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	credentialFile = "credentials.bin"
	deviceKeyFile  = "device.key"
)

// FileStore persists the credential record as an encrypted JSON map in a
// single file. Every operation reads, mutates, and rewrites the whole file;
// the record holds three small strings so this stays cheap.
type FileStore struct {
	path string
	aead cipher.AEAD
	mu   sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens (or initializes) the credential store under dir,
// creating the directory and the device key file as needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create credstore dir: %w", err)
	}
	key, err := loadDeviceKey(filepath.Join(dir, deviceKeyFile))
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return &FileStore{
		path: filepath.Join(dir, credentialFile),
		aead: aead,
	}, nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := record[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set implements Store.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load()
	if err != nil {
		return err
	}
	record[key] = value
	return s.save(record)
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := record[key]; !ok {
		return nil
	}
	delete(record, key)
	return s.save(record)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	plain, err := open(s.aead, data)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential file: %w", err)
	}
	record := map[string]string{}
	if err := json.Unmarshal(plain, &record); err != nil {
		return nil, fmt.Errorf("parse credential file: %w", err)
	}
	return record, nil
}

func (s *FileStore) save(record map[string]string) error {
	plain, err := json.Marshal(record)
	if err != nil {
		return err
	}
	sealed, err := seal(s.aead, plain)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, sealed, 0600)
}
