// Package registry is the prompt-registry collaborator: it resolves a prompt
// name plus alias to an immutable version and moves aliases between versions.
package registry

//go:generate go tool mockgen -source=registry.go -destination=mock_registry.go -package=registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

var (
	// ErrAliasNotFound is returned when a prompt has no version behind an alias.
	ErrAliasNotFound = errors.New("prompt alias not found")
	// ErrAliasConflict is returned when an alias keeps moving away from the
	// version it was just set to.
	ErrAliasConflict = errors.New("prompt alias changed concurrently")
)

// PromptVersion is one immutable version of a prompt template. It is returned by
// value from every load; nothing is cached between calls.
type PromptVersion struct {
	Name     string            `json:"name"`
	Version  int               `json:"version"`
	Template string            `json:"template"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// Registry resolves and moves prompt aliases.
type Registry interface {
	// LoadVersion returns the version currently behind alias, or ErrAliasNotFound.
	LoadVersion(ctx context.Context, name, alias string) (PromptVersion, error)
	// SetAlias points alias at version.
	SetAlias(ctx context.Context, name, alias string, version int) error
}

// CurrentVersion returns the version number behind alias, or 0 when it cannot be read.
func CurrentVersion(ctx context.Context, reg Registry, name, alias string) (int, error) {
	v, err := reg.LoadVersion(ctx, name, alias)
	if err != nil {
		return 0, err
	}
	return v.Version, nil
}

// SwapOptions tunes SwapAlias.
type SwapOptions struct {
	MaxRetries uint64
	Backoff    time.Duration
}

// DefaultSwapOptions retries a lost alias write three times, 200ms apart.
var DefaultSwapOptions = SwapOptions{MaxRetries: 3, Backoff: 200 * time.Millisecond}

// SwapResult describes a completed alias move.
type SwapResult struct {
	// Previous is the version observed behind the alias right before the winning
	// write, or 0 if it could not be read.
	Previous int
	Current  int
	Attempts int
	// Unverified holds the read-back error when the write could not be
	// confirmed. The write itself succeeded.
	Unverified error
}

// SwapAlias points alias at version and reads it back. When a concurrent writer
// moved the alias in between, the write is retried; after opts.MaxRetries the
// call fails with ErrAliasConflict. A failed read-back accepts the write and is
// reported in SwapResult.Unverified.
func SwapAlias(ctx context.Context, reg Registry, name, alias string, version int, opts SwapOptions) (SwapResult, error) {
	var result SwapResult

	backoff := retry.WithMaxRetries(opts.MaxRetries, retry.NewConstant(opts.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result.Attempts++

		previous, _ := CurrentVersion(ctx, reg, name, alias)

		if err := reg.SetAlias(ctx, name, alias, version); err != nil {
			return fmt.Errorf("setting %s@%s to v%d: %w", name, alias, version, err)
		}

		result.Previous = previous
		result.Current = version

		after, err := CurrentVersion(ctx, reg, name, alias)
		if err != nil {
			// The write succeeded; an unreadable alias is not a conflict.
			result.Unverified = err
			return nil
		}
		result.Unverified = nil
		if after != version {
			return retry.RetryableError(fmt.Errorf("%w: %s@%s is v%d, want v%d", ErrAliasConflict, name, alias, after, version))
		}
		return nil
	})
	return result, err
}
