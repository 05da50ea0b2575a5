// Package rate implements Redis fixed-window counters used to throttle
// login attempts and password reset requests.
//
// Callers name a scope ("login", "login_ip", "reset") and a subject (email,
// IP); the [Policy] passed per call decides the budget.
package rate
