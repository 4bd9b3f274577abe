// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package headerstore implements a flat, append-only on-disk store of
// block headers: one fixed-size 80-byte record per header, addressed by a
// 1-based disk index. The genesis header is never written to the file; it
// lives only in chaincfg.Params and is conceptually height 0.
package headerstore

import (
	"errors"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/shellreserve/bchspv/wire"
)

// ErrCorrupt is returned by Check, Len and Put when the file's length is
// not a multiple of the header record size. Open does not check it.
var ErrCorrupt = errors.New("headerstore: file length is not a multiple of the header record size")

// Store is a single append-only file of fixed 80-byte header records,
// guarded by an exclusive advisory flock for the lifetime of the process
// that holds it open. The configured genesis header answers reads at
// index 0 without ever touching the file.
type Store struct {
	mu      sync.RWMutex
	file    *os.File
	genesis wire.BlockHeader
}

// Create creates a new, empty header store file at path, failing if one
// already exists.
func Create(path string, genesis wire.BlockHeader) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return &Store{file: f, genesis: genesis}, nil
}

// Open opens an existing header store file at path, creating it if it
// does not exist.
func Open(path string, genesis wire.BlockHeader) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return &Store{file: f, genesis: genesis}, nil
}

// Close releases the store's lock and closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unix.Flock(int(s.file.Fd()), unix.LOCK_UN)
	return s.file.Close()
}

// Put appends headers to the end of the store and returns the disk index
// (1-based height) of the last header written.
func (s *Store) Put(headers ...wire.BlockHeader) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Seek(0, io.SeekEnd); err != nil {
		return 0, err
	}
	for i := range headers {
		b := wire.HeaderBytes(&headers[i])
		if _, err := s.file.Write(b[:]); err != nil {
			return 0, err
		}
	}
	n, err := s.lenLocked()
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// Get returns the header at the given disk index. Index 0 is the
// configured genesis header, which is never physically stored.
func (s *Store) Get(index uint32) (wire.BlockHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index == 0 {
		return s.genesis, nil
	}
	off := int64(index-1) * wire.BlockHeaderLen
	buf := make([]byte, wire.BlockHeaderLen)
	if _, err := s.file.ReadAt(buf, off); err != nil {
		return wire.BlockHeader{}, err
	}
	h, err := wire.NewBlockHeaderFromBytes(buf)
	if err != nil {
		return wire.BlockHeader{}, err
	}
	return *h, nil
}

// Len returns the total number of headers the store holds, counting the
// implicit genesis header at index 0, so it is always the on-disk record
// count plus one.
func (s *Store) Len() (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err := s.lenLocked()
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

func (s *Store) lenLocked() (uint32, error) {
	info, err := s.file.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()
	if size%wire.BlockHeaderLen != 0 {
		return 0, ErrCorrupt
	}
	return uint32(size / wire.BlockHeaderLen), nil
}

// Check verifies the file's integrity without modifying it.
func (s *Store) Check() error {
	_, err := s.Len()
	return err
}

// Heal truncates away a trailing partial record, recovering from a crash
// that interrupted a Put mid-write. It is a no-op if the file is already
// a whole multiple of the record size.
func (s *Store) Heal() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	extraneous := size % wire.BlockHeaderLen
	if extraneous == 0 {
		return nil
	}
	log.Warnf("truncating %d trailing bytes of partial header record", extraneous)
	return s.file.Truncate(size - extraneous)
}

// Truncate drops every record past the given 1-based disk index, used to
// roll a store back after a reorg invalidates headers beyond a fork
// point.
func (s *Store) Truncate(index uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Truncate(int64(index) * wire.BlockHeaderLen)
}

// Sync flushes pending writes to durable storage.
func (s *Store) Sync() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.Sync()
}

// Iter calls fn for every header in ascending index order starting at
// the genesis, stopping early if fn returns false or an error.
func (s *Store) Iter(fn func(index uint32, h wire.BlockHeader) (bool, error)) error {
	n, err := s.Len()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		h, err := s.Get(i)
		if err != nil {
			return err
		}
		cont, err := fn(i, h)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}
