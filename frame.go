// Copyright 2026 The OpenHearth Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package opentherm

import "math/bits"

// Frame is a single OpenTherm frame. The 32-bit wire layout is fixed by the
// OpenTherm protocol specification v2.2 section 4:
//
//	bit  31    parity (odd parity over all 32 bits)
//	bits 30-28 message type
//	bits 27-24 spare, always 0
//	bits 23-16 data id
//	bits 15-0  data value (u16 or signed f8.8 depending on the data id)
//
// Frame is kept as an opaque fixed-width integer rather than a struct so the
// exact bit-for-bit layout survives to the wire.
type Frame uint32

// MsgType is the 3-bit message type field of a frame.
type MsgType byte

// Message types from OpenTherm specification v2.2 section 4.2.
// The first four are master-to-slave, the rest slave-to-master.
const (
	MsgReadData      MsgType = 0x0
	MsgWriteData     MsgType = 0x1
	MsgInvalidData   MsgType = 0x2
	MsgReserved      MsgType = 0x3
	MsgReadACK       MsgType = 0x4
	MsgWriteACK      MsgType = 0x5
	MsgDataInvalid   MsgType = 0x6
	MsgUnknownDataID MsgType = 0x7
)

// String returns the specification name of the message type.
func (t MsgType) String() string {
	switch t {
	case MsgReadData:
		return "READ_DATA"
	case MsgWriteData:
		return "WRITE_DATA"
	case MsgInvalidData:
		return "INVALID_DATA"
	case MsgReserved:
		return "RESERVED"
	case MsgReadACK:
		return "READ_ACK"
	case MsgWriteACK:
		return "WRITE_ACK"
	case MsgDataInvalid:
		return "DATA_INVALID"
	case MsgUnknownDataID:
		return "UNKNOWN_DATA_ID"
	default:
		return "UNKNOWN"
	}
}

// BuildRequest packs a request frame from a message type, data id and raw
// 16-bit data value, and sets the parity bit. Requests built by this library
// use MsgReadData and MsgWriteData only; any other type is encoded as
// MsgReadData, matching the two request kinds a master may originate.
// Inputs wider than their fields are truncated.
func BuildRequest(msgType MsgType, id DataID, data uint16) Frame {
	frame := Frame(data)
	if msgType == MsgWriteData {
		frame |= 1 << 28
	}
	frame |= Frame(id) << 16
	if Parity(frame) {
		frame |= 1 << 31
	}
	return frame
}

// Parity reports whether the population count of all 32 bits is odd.
// A transmitted frame always carries even total parity: the parity bit is
// set during construction exactly when the other 31 bits count odd.
func Parity(frame Frame) bool {
	return bits.OnesCount32(uint32(frame))&1 == 1
}

// IsValidResponse reports whether frame is a well-formed acknowledgment: the
// full 32-bit parity must be even and the message type must be READ_ACK or
// WRITE_ACK. Any other type is not a valid response to a request, even with
// correct parity. Field extraction helpers assume this check passed.
func IsValidResponse(frame Frame) bool {
	if Parity(frame) {
		return false
	}
	t := frame.MsgType()
	return t == MsgReadACK || t == MsgWriteACK
}

// MsgType extracts the message type field.
func (f Frame) MsgType() MsgType {
	return MsgType((f >> 28) & 0x7)
}

// DataID extracts the data id field.
func (f Frame) DataID() DataID {
	return DataID((f >> 16) & 0xFF)
}

// Uint16 extracts the data value as a raw unsigned 16-bit quantity.
func (f Frame) Uint16() uint16 {
	return uint16(f & 0xFFFF)
}

// Float extracts the data value as a signed f8.8 fixed-point quantity
// (8 fractional bits, sign in bit 15, two's complement).
func (f Frame) Float() float64 {
	u := f.Uint16()
	if u&0x8000 != 0 {
		return -float64(0x10000-uint32(u)) / 256.0
	}
	return float64(u) / 256.0
}

// TemperatureToData converts a temperature in degrees Celsius to the f8.8
// data value used by temperature data points. The input is clamped to the
// [0, 100] range the protocol allows for setpoints.
func TemperatureToData(celsius float64) uint16 {
	if celsius < 0 {
		celsius = 0
	}
	if celsius > 100 {
		celsius = 100
	}
	return uint16(celsius * 256)
}
