package domain

import (
	"encoding/json"
	"fmt"
)

// RequestStatus is a request's position in its journey from origin to completion.
// The zero value is the initial state.
type RequestStatus int

const (
	// StatusOriginToGateway: travelling from the client to the load balancer
	StatusOriginToGateway RequestStatus = iota
	// StatusAwaitingDecision: parked at the load balancer until a policy decision
	StatusAwaitingDecision
	// StatusGatewayToServer: travelling to the chosen server
	StatusGatewayToServer
	// StatusAtServer: being served until resolved
	StatusAtServer
	// StatusServerToGateway: response travelling back to the load balancer
	StatusServerToGateway
	// StatusGatewayToOrigin: response (or drop notice) travelling to the client
	StatusGatewayToOrigin
	// StatusDone is terminal; the request leaves the live set
	StatusDone
)

var statusNames = map[RequestStatus]string{
	StatusOriginToGateway:  "ORIGIN_TO_GATEWAY",
	StatusAwaitingDecision: "AWAITING_DECISION",
	StatusGatewayToServer:  "GATEWAY_TO_SERVER",
	StatusAtServer:         "AT_SERVER",
	StatusServerToGateway:  "SERVER_TO_GATEWAY",
	StatusGatewayToOrigin:  "GATEWAY_TO_ORIGIN",
	StatusDone:             "DONE",
}

// String returns the canonical upper-case name of the status
func (s RequestStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseRequestStatus is the inverse of String
func ParseRequestStatus(name string) (RequestStatus, error) {
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown request status %q", name)
}

// MarshalJSON encodes the status by name
func (s RequestStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name
func (s *RequestStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	status, err := ParseRequestStatus(name)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// IsTravelling reports whether the request is in motion, i.e. whether the
// next transition is driven purely by an arrival signal.
func (s RequestStatus) IsTravelling() bool {
	switch s {
	case StatusOriginToGateway, StatusGatewayToServer, StatusServerToGateway, StatusGatewayToOrigin:
		return true
	default:
		return false
	}
}

// Next returns the state reached when travel in s finishes.
// AWAITING_DECISION and AT_SERVER are gated by a decision or a resolve and
// DONE is terminal, so Next reports false for them.
func (s RequestStatus) Next() (RequestStatus, bool) {
	switch s {
	case StatusOriginToGateway:
		return StatusAwaitingDecision, true
	case StatusGatewayToServer:
		return StatusAtServer, true
	case StatusServerToGateway:
		return StatusGatewayToOrigin, true
	case StatusGatewayToOrigin:
		return StatusDone, true
	default:
		return s, false
	}
}
