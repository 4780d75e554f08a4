package sim

import (
	"sync"

	"github.com/flight-bridge/fcb/internal/dji"
)

// KeyManager is a simulated key-value flight parameter store.
type KeyManager struct {
	sdk *SDK

	mu       sync.Mutex
	values   map[dji.Key]any
	failures map[dji.Key]error
}

var _ dji.KeyManager = (*KeyManager)(nil)

func newKeyManager(sdk *SDK) *KeyManager {
	return &KeyManager{
		sdk: sdk,
		values: map[dji.Key]any{
			dji.KeyTerrainFollowModeEnabled:       false,
			dji.KeyUltrasonicHeightInMeters:       float32(0),
			dji.KeyVirtualStickControlModeEnabled: false,
		},
		failures: make(map[dji.Key]error),
	}
}

// GetValue implements dji.KeyManager.
func (k *KeyManager) GetValue(key dji.Key, done dji.GetFunc) {
	k.mu.Lock()
	value, ok := k.values[key]
	err := k.failures[key]
	k.mu.Unlock()

	if err == nil && !k.sdk.isConnected() {
		err = dji.Errorf("The aircraft is not connected")
	}
	if err == nil && !ok {
		err = dji.Errorf("Key %s is not supported", key)
	}
	if err != nil {
		k.sdk.deliver(func() { done(nil, err) })
		return
	}
	k.sdk.deliver(func() { done(value, nil) })
}

// SetValue implements dji.KeyManager.
func (k *KeyManager) SetValue(key dji.Key, value any, done dji.CompletionFunc) {
	k.mu.Lock()
	err := k.failures[key]
	if err == nil && k.sdk.isConnected() {
		k.values[key] = value
	}
	k.mu.Unlock()

	if err == nil && !k.sdk.isConnected() {
		err = dji.Errorf("The aircraft is not connected")
	}
	k.sdk.deliver(func() { done(err) })
}

// Set stores a value directly.
func (k *KeyManager) Set(key dji.Key, value any) {
	k.mu.Lock()
	k.values[key] = value
	k.mu.Unlock()
}

// Value returns the stored value.
func (k *KeyManager) Value(key dji.Key) (any, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.values[key]
	return v, ok
}

// Fail makes every access to key report err. Nil clears it.
func (k *KeyManager) Fail(key dji.Key, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err == nil {
		delete(k.failures, key)
		return
	}
	k.failures[key] = err
}
