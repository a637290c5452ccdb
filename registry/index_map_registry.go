/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"sync"
)

// kindRegistry associates Go entity types with the kind they are stored as.
var (
	kindRegistry = make(map[reflect.Type]string)
	mu           sync.RWMutex
)

// RegisterKind associates a Go type T with a schema kind name.
func RegisterKind[T any](kind string) {
	var zero T
	t := reflect.TypeOf(zero)

	mu.Lock()
	defer mu.Unlock()
	kindRegistry[t] = kind
}

// KindOf retrieves the kind registered for type T, if any.
func KindOf[T any]() (string, bool) {
	var zero T
	t := reflect.TypeOf(zero)

	mu.RLock()
	defer mu.RUnlock()
	k, ok := kindRegistry[t]
	return k, ok
}
