// Package localstore 是店面客户端的本地键值存储，整个文件是一个 JSON 对象，
// 每个键保存一段任意 JSON。读写都是整文件进行，数据量只有购物车大小。
package localstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"huerta/internal/pkg/logger"
)

// FileStore 把所有键保存在同一个文件中，写入时先写临时文件再 rename。
type FileStore struct {
	path string

	mu      sync.Mutex
	entries map[string]json.RawMessage
}

// Open 打开 path 处的存储文件，文件不存在时视为空存储。
// 文件损坏时同样视为空存储，下一次写入会覆盖它。
func Open(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: make(map[string]json.RawMessage)}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, errors.Wrapf(err, "read local store %s", path)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.entries); err != nil {
		logger.L().Warn().Err(err).Str("path", path).Msg("local store is corrupt, starting empty")
		s.entries = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Get 返回 key 对应的原始 JSON，不存在时 ok 为 false。
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set 写入一个键并立即落盘。value 必须是合法 JSON。
func (s *FileStore) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return errors.Errorf("local store: value for %q is not valid json", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.entries[key]
	s.entries[key] = append(json.RawMessage(nil), value...)
	if err := s.flush(); err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return err
	}
	return nil
}

// Delete 删除一个键，键不存在时什么也不做。
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.entries[key]
	if !had {
		return nil
	}
	delete(s.entries, key)
	if err := s.flush(); err != nil {
		s.entries[key] = prev
		return err
	}
	return nil
}

func (s *FileStore) flush() error {
	raw, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode local store")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".huerta-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), s.path), "replace %s", s.path)
}
