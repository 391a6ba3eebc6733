package domain

import (
	"fmt"
	"strings"
)

// AcquisitionKind classifies why a device could not be acquired.
type AcquisitionKind string

const (
	AcquisitionPermissionDenied AcquisitionKind = "permission_denied"
	AcquisitionNoDevice         AcquisitionKind = "no_device"
	AcquisitionDeviceBusy       AcquisitionKind = "device_busy"
	AcquisitionUnavailable      AcquisitionKind = "unavailable"
)

// AcquisitionError is fatal to the capture view.
type AcquisitionError struct {
	Kind   AcquisitionKind
	Device string
	Err    error
}

func (e *AcquisitionError) Error() string {
	msg := fmt.Sprintf("camera/mic access error (%s)", e.Kind)
	if e.Device != "" {
		msg += " on " + e.Device
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// DispatchError reports a transport failure or a non-success status.
type DispatchError struct {
	Endpoint   string
	StatusCode int
	Detail     string
	Err        error
}

func (e *DispatchError) Error() string {
	var b strings.Builder
	b.WriteString("dispatch to ")
	b.WriteString(e.Endpoint)
	b.WriteString(" failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " with status %d", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports a relay body that is not the agreed structure.
type MalformedResponseError struct {
	Endpoint string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
