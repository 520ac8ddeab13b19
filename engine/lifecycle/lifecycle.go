// Package lifecycle provides the destroy notification registry shared by GPU-backed entities.
//
// An owning entity embeds a Notifier and calls Destroy exactly once; every registered DestroyObserver
// is notified directly, in registration order, before the entity becomes unusable.
package lifecycle

import (
	"fmt"

	"github.com/Carmen-Shannon/keel/common"
)

// DestroyObserver is implemented by subsystems that hold resources derived from an entity
// (for example GPU buffers) and must release them when the entity is destroyed.
type DestroyObserver interface {
	// OnDestroy is invoked once when owner is destroyed.
	//
	// Parameters:
	//   - owner: the entity being destroyed
	OnDestroy(owner any)
}

// Notifier is an explicit registry of DestroyObservers for a single owning entity.
// The zero value is ready to use.
type Notifier struct {
	observers []DestroyObserver
	destroyed bool
}

// Observe registers o to be notified on destroy. Registering the same observer twice has no effect.
//
// Parameters:
//   - o: the observer to register
//
// Returns:
//   - error: ErrAlreadyDestroyed if the owner has already been destroyed
func (n *Notifier) Observe(o DestroyObserver) error {
	if n.destroyed {
		return fmt.Errorf("observe: %w", common.ErrAlreadyDestroyed)
	}
	for _, existing := range n.observers {
		if existing == o {
			return nil
		}
	}
	n.observers = append(n.observers, o)
	return nil
}

// Unobserve removes o from the registry if present.
//
// Parameters:
//   - o: the observer to remove
func (n *Notifier) Unobserve(o DestroyObserver) {
	for i, existing := range n.observers {
		if existing == o {
			n.observers = append(n.observers[:i], n.observers[i+1:]...)
			return
		}
	}
}

// Observers returns the number of registered observers.
//
// Returns:
//   - int: the observer count
func (n *Notifier) Observers() int {
	return len(n.observers)
}

// Destroyed reports whether Destroy has been called.
//
// Returns:
//   - bool: true after the first Destroy
func (n *Notifier) Destroyed() bool {
	return n.destroyed
}

// Destroy marks the owner destroyed and notifies every registered observer once.
// The registry is emptied afterwards. A second call notifies nobody and fails.
//
// Parameters:
//   - owner: the entity passed to each observer
//
// Returns:
//   - error: ErrAlreadyDestroyed on every call after the first
func (n *Notifier) Destroy(owner any) error {
	if n.destroyed {
		return fmt.Errorf("destroy: %w", common.ErrAlreadyDestroyed)
	}
	n.destroyed = true
	observers := n.observers
	n.observers = nil
	for _, o := range observers {
		o.OnDestroy(owner)
	}
	return nil
}

// Observable is implemented by entities that emit a destroy notification.
type Observable interface {
	// Observe registers o to be notified when the entity is destroyed.
	//
	// Parameters:
	//   - o: the observer to register
	//
	// Returns:
	//   - error: ErrAlreadyDestroyed if the entity has already been destroyed
	Observe(o DestroyObserver) error

	// Unobserve removes a previously registered observer.
	//
	// Parameters:
	//   - o: the observer to remove
	Unobserve(o DestroyObserver)

	// Destroyed reports whether the entity has been destroyed.
	//
	// Returns:
	//   - bool: true after Destroy has succeeded
	Destroyed() bool
}
