package model

import (
	"sort"
	"strings"
)

// Order status values
const (
	OrderStatusReceived  = "received"
	OrderStatusInDesign  = "in_design"
	OrderStatusApproved  = "approved"
	OrderStatusInProcess = "in_process"
	OrderStatusFinished  = "finished"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// OrderStatuses lists every status in workflow order.
var OrderStatuses = []string{
	OrderStatusReceived,
	OrderStatusInDesign,
	OrderStatusApproved,
	OrderStatusInProcess,
	OrderStatusFinished,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ActiveOrderStatuses are orders still being worked on.
var ActiveOrderStatuses = []string{
	OrderStatusReceived,
	OrderStatusInDesign,
	OrderStatusApproved,
	OrderStatusInProcess,
	OrderStatusFinished,
}

// IsValidOrderStatus reports whether s is a known status.
func IsValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// StatusPolicy is the table of allowed status transitions.
type StatusPolicy struct {
	transitions map[string][]string
}

// NewStatusPolicy builds the default transition table. When allowReactivation is
// set a cancelled order may go back to received.
func NewStatusPolicy(allowReactivation bool) *StatusPolicy {
	t := map[string][]string{
		OrderStatusReceived:  {OrderStatusInDesign, OrderStatusApproved, OrderStatusInProcess, OrderStatusCancelled},
		OrderStatusInDesign:  {OrderStatusReceived, OrderStatusApproved, OrderStatusCancelled},
		OrderStatusApproved:  {OrderStatusInDesign, OrderStatusInProcess, OrderStatusCancelled},
		OrderStatusInProcess: {OrderStatusApproved, OrderStatusFinished, OrderStatusCancelled},
		OrderStatusFinished:  {OrderStatusInProcess, OrderStatusDelivered},
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
	}
	if allowReactivation {
		t[OrderStatusCancelled] = []string{OrderStatusReceived}
	}
	return &StatusPolicy{transitions: t}
}

// NewStatusPolicyFromTable builds a policy from an explicit table.
func NewStatusPolicyFromTable(table map[string][]string) *StatusPolicy {
	t := make(map[string][]string, len(table))
	for from, to := range table {
		t[from] = append([]string(nil), to...)
	}
	return &StatusPolicy{transitions: t}
}

// CanTransition reports whether from -> to is allowed.
func (p *StatusPolicy) CanTransition(from, to string) bool {
	for _, next := range p.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Allowed returns the statuses reachable from the given one, sorted.
func (p *StatusPolicy) Allowed(from string) []string {
	out := append([]string{}, p.transitions[from]...)
	sort.Strings(out)
	return out
}

// AllowedString joins Allowed for error messages.
func (p *StatusPolicy) AllowedString(from string) string {
	allowed := p.Allowed(from)
	if len(allowed) == 0 {
		return "none"
	}
	return strings.Join(allowed, ", ")
}
