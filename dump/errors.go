// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package dump

import "fmt"

// DecodeError reports a structural failure while parsing snapshot bytes: a
// truncated message, a malformed varint, an oversize length prefix, or a
// message that violates the schema expected of it (wrong wire type, unknown
// required field). Once a DecodeError is returned, the Reader that produced
// it is left in an unspecified state and must not be reused, matching §4.1.
type DecodeError struct {
	// Offset is the byte offset at which decoding failed. For a bad message
	// length prefix, or a node message missing its id, it is relative to
	// the whole snapshot buffer; for an error while decoding the fields of a
	// message body it is relative to the start of that body (or of the
	// nested edge/alloc-stack entry). FromBytes's wrapping error adds the
	// buffer offset of the node message being read.
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode snapshot at offset %d: %s", e.Offset, e.Reason)
}

func decodeErrf(offset int, format string, args ...any) error {
	return &DecodeError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
