// SPDX-License-Identifier: MIT
//
// Package transport mirrors rendered frames to outside consumers. Every
// transport is best effort: a failed send is reported to the caller and
// never retried.
package transport

import (
	"github.com/pkg/errors"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe and must not block the caller for
// longer than a single non-blocking write.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans every Send out to several transports.
type Multi []Transport

// Send delivers data to every transport. All transports are tried; the first
// failure is returned.
func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every transport and returns the first failure.
func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = errors.Wrap(err, "failed to close transport")
		}
	}
	return first
}

var _ Transport = Multi(nil)
