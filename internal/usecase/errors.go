package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrRepository    = errors.New("repository error")
	ErrTranscoder    = errors.New("transcoder error")
	ErrIO            = errors.New("io failure")
	ErrStreamErrored = errors.New("stream is in error state")
)

// The wrap helpers keep the original error in the chain so callers can
// still match domain sentinels like domain.ErrNotFound.
func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}

func wrapTranscoder(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTranscoder, err)
}

func wrapIO(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
