// Package kv is the key-value persistence boundary used by the board and the
// session gate. Backends report errors; Store absorbs them.
package kv

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
)

var ErrNotFound = errors.New("kv: key not found")

// Backend is a raw byte store. Load returns ErrNotFound for absent keys.
type Backend interface {
	Name() string
	Load(key string) ([]byte, error)
	Save(key string, value []byte) error
	Delete(key string) error
}

var failuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "taskorbit_kv_failures_total",
		Help: "Key-value operations that failed and were dropped",
	},
	[]string{"backend", "op"},
)

func init() {
	prometheus.MustRegister(failuresTotal)
}

// Store serializes values as JSON and never surfaces backend failures.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

func NewStore(b Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: b, logger: logger.With(slog.String("backend", b.Name()))}
}

func (s *Store) Backend() string { return s.backend.Name() }

// Get decodes the value stored under key into dst. It reports false when the
// key is absent, the backend fails, or the stored bytes do not decode into
// dst's type; dst is left untouched in those cases.
func (s *Store) Get(key string, dst any) bool {
	raw, err := s.backend.Load(key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		s.fail("get", key, err)
		return false
	}
	if err := decodeInto(raw, dst); err != nil {
		s.logger.Warn("kv_malformed_value", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *Store) Set(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.fail("set", key, err)
		return
	}
	if err := s.backend.Save(key, raw); err != nil {
		s.fail("set", key, err)
	}
}

func (s *Store) Remove(key string) {
	if err := s.backend.Delete(key); err != nil && !errors.Is(err, ErrNotFound) {
		s.fail("remove", key, err)
	}
}

func (s *Store) fail(op, key string, err error) {
	failuresTotal.WithLabelValues(s.backend.Name(), op).Inc()
	s.logger.Warn("kv_"+op+"_failed", slog.String("key", key), slog.String("error", err.Error()))
}

// decodeInto unmarshals into a scratch value of dst's element type so that a
// partial decode never leaks into dst. A JSON null counts as malformed.
func decodeInto(raw []byte, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("destination must be a non-nil pointer")
	}
	if string(bytes.TrimSpace(raw)) == "null" {
		return errors.New("null value")
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(raw, tmp.Interface()); err != nil {
		return err
	}
	rv.Elem().Set(tmp.Elem())
	return nil
}
