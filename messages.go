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

import "context"

// DataID identifies which data point a frame's value refers to.
type DataID byte

// Data ids from OpenTherm specification v2.2 section 5. Only the ids this
// library builds helpers for are named here; any 8-bit value can be passed
// to BuildRequest directly.
const (
	IDStatus           DataID = 0   // Master/slave status flags
	IDTSet             DataID = 1   // Control setpoint (f8.8, write)
	IDASFFlags         DataID = 5   // Application-specific fault flags
	IDMaxRelModLevel   DataID = 14  // Maximum relative modulation level
	IDTrSet            DataID = 16  // Room setpoint
	IDRelModLevel      DataID = 17  // Relative modulation level
	IDCHPressure       DataID = 18  // Central heating water pressure
	IDDHWFlowRate      DataID = 19  // Hot water flow rate
	IDTr               DataID = 24  // Room temperature
	IDTboiler          DataID = 25  // Boiler flow water temperature
	IDTdhw             DataID = 26  // Hot water temperature
	IDToutside         DataID = 27  // Outside temperature
	IDTret             DataID = 28  // Return water temperature
	IDTdhwSet          DataID = 56  // Hot water setpoint
	IDMaxTSet          DataID = 57  // Maximum allowable setpoint
	IDOEMDiagnostic    DataID = 115 // OEM diagnostic code
	IDBurnerStarts     DataID = 116 // Number of burner starts
	IDBurnerOpHours    DataID = 120 // Burner operation hours
	IDOTVersionMaster  DataID = 124 // Master OpenTherm protocol version
	IDOTVersionSlave   DataID = 125 // Slave OpenTherm protocol version
	IDMasterVersion    DataID = 126 // Master product version
	IDSlaveVersion     DataID = 127 // Slave product version
)

// Master status bits, packed into the high byte of the IDStatus data value.
const (
	statusCHEnabled      = 1 << 0
	statusDHWEnabled     = 1 << 1
	statusCoolingEnabled = 1 << 2
	statusOTCActive      = 1 << 3
	statusCH2Enabled     = 1 << 4
)

// BuildStatusRequest builds the master status frame (data id 0). The enable
// flags occupy the high byte of the data value; the low byte is reserved for
// the slave status in the acknowledgment. Status is a READ_DATA exchange:
// the master publishes its flags and reads the slave's back.
func BuildStatusRequest(enableCH, enableDHW, enableCooling, enableOTC, enableCH2 bool) Frame {
	var flags uint16
	if enableCH {
		flags |= statusCHEnabled
	}
	if enableDHW {
		flags |= statusDHWEnabled
	}
	if enableCooling {
		flags |= statusCoolingEnabled
	}
	if enableOTC {
		flags |= statusOTCActive
	}
	if enableCH2 {
		flags |= statusCH2Enabled
	}
	return BuildRequest(MsgReadData, IDStatus, flags<<8)
}

// BuildSetBoilerTemperatureRequest builds a write of the control setpoint
// (data id 1) in degrees Celsius.
func BuildSetBoilerTemperatureRequest(celsius float64) Frame {
	return BuildRequest(MsgWriteData, IDTSet, TemperatureToData(celsius))
}

// BuildGetBoilerTemperatureRequest builds a read of the boiler flow water
// temperature (data id 25).
func BuildGetBoilerTemperatureRequest() Frame {
	return BuildRequest(MsgReadData, IDTboiler, 0)
}

// Slave status flags, low byte of the IDStatus acknowledgment value.
// Callers are expected to check IsValidResponse before extracting.

// Fault reports the slave fault indication bit.
func (f Frame) Fault() bool {
	return f&0x01 != 0
}

// CentralHeatingActive reports the slave central heating mode bit.
func (f Frame) CentralHeatingActive() bool {
	return f&0x02 != 0
}

// HotWaterActive reports the slave domestic hot water mode bit.
func (f Frame) HotWaterActive() bool {
	return f&0x04 != 0
}

// FlameOn reports the slave flame status bit.
func (f Frame) FlameOn() bool {
	return f&0x08 != 0
}

// CoolingActive reports the slave cooling status bit.
func (f Frame) CoolingActive() bool {
	return f&0x10 != 0
}

// DiagnosticIndication reports the slave diagnostic event bit.
func (f Frame) DiagnosticIndication() bool {
	return f&0x40 != 0
}

// Temperature extracts the f8.8 temperature from a response, or 0 if the
// frame is not a valid acknowledgment.
func (f Frame) Temperature() float64 {
	if !IsValidResponse(f) {
		return 0
	}
	return f.Float()
}

// SetBoilerStatus performs the status exchange and returns the slave's
// acknowledgment frame. The returned frame carries the slave status flags in
// its low byte. A non-SUCCESS outcome is reported as an error.
func (e *Engine) SetBoilerStatus(
	ctx context.Context, enableCH, enableDHW, enableCooling, enableOTC, enableCH2 bool,
) (Frame, error) {
	req := BuildStatusRequest(enableCH, enableDHW, enableCooling, enableOTC, enableCH2)
	resp, outcome, err := e.SendAndWait(ctx, req)
	if err != nil {
		return 0, err
	}
	if err := outcome.Err(); err != nil {
		return 0, err
	}
	return resp, nil
}

// SetBoilerTemperature writes the control setpoint in degrees Celsius.
func (e *Engine) SetBoilerTemperature(ctx context.Context, celsius float64) error {
	_, outcome, err := e.SendAndWait(ctx, BuildSetBoilerTemperatureRequest(celsius))
	if err != nil {
		return err
	}
	return outcome.Err()
}

// BoilerTemperature reads the boiler flow water temperature in degrees
// Celsius.
func (e *Engine) BoilerTemperature(ctx context.Context) (float64, error) {
	resp, outcome, err := e.SendAndWait(ctx, BuildGetBoilerTemperatureRequest())
	if err != nil {
		return 0, err
	}
	if err := outcome.Err(); err != nil {
		return 0, err
	}
	return resp.Float(), nil
}
