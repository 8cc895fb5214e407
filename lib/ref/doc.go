// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated Matrix identifier types.
//
// Raw identifier strings from flags, config files, and homeserver
// responses are parsed into these types at the boundary; everything
// past the boundary works with validated values. All types are
// immutable value types whose zero value is invalid — use IsZero to
// check. Each implements encoding.TextMarshaler/TextUnmarshaler so
// JSON decoding of homeserver responses validates identifiers as a
// side effect.
package ref
