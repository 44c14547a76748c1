//go:build !deadlock_test

// Package lock provides mutexes which can be swapped for deadlock
// detecting implementations in tests via the 'deadlock_test' build tag.
package lock

import "sync"

type Mutex = sync.Mutex
type RWMutex = sync.RWMutex
