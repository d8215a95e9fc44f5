package logic

import "time"

// AlertPolicy decides when to alert, enforcing a minimum interval between alerts.
//
// The policy is READY until an alert is sent, then COOLDOWN until
// MinInterval has elapsed since that alert.
type AlertPolicy struct {
	thresholds Thresholds
	lastAlert  time.Time
	alerted    bool
	sent       int
}

// NewAlertPolicy creates a policy in the READY state.
func NewAlertPolicy(t Thresholds) *AlertPolicy {
	return &AlertPolicy{thresholds: t}
}

// Evaluate returns true if an alert must be sent now: a person or animal is
// present, CO2 or temperature is above its threshold, and the policy is READY.
// On true the policy records now as the last alert time and enters COOLDOWN;
// the caller is responsible for delivering the notification.
func (p *AlertPolicy) Evaluate(env SmoothedEnvironment, count DetectionCount, now time.Time) bool {
	if !count.Occupied() {
		return false
	}
	if len(p.thresholds.Exceeded(env)) == 0 {
		return false
	}
	if p.State(now) != StateReady {
		return false
	}

	p.lastAlert = now
	p.alerted = true
	p.sent++
	return true
}

// Reason lists the thresholds env exceeds ("co2", "temperature").
func (p *AlertPolicy) Reason(env SmoothedEnvironment) []string {
	return p.thresholds.Exceeded(env)
}

// State returns READY or COOLDOWN as of now.
func (p *AlertPolicy) State(now time.Time) PolicyState {
	if !p.alerted {
		return StateReady
	}
	if now.Sub(p.lastAlert) >= p.thresholds.MinInterval {
		return StateReady
	}
	return StateCooldown
}

// LastAlert returns the time of the last alert and whether one was ever sent.
func (p *AlertPolicy) LastAlert() (time.Time, bool) {
	return p.lastAlert, p.alerted
}

// Sent returns the number of alerts decided since startup.
func (p *AlertPolicy) Sent() int {
	return p.sent
}

// Heartbeat fires at most once per interval.
type Heartbeat struct {
	interval time.Duration
	last     time.Time
}

// NewHeartbeat creates a heartbeat whose first beat is due one interval after start.
// An interval <= 0 disables it.
func NewHeartbeat(interval time.Duration, start time.Time) *Heartbeat {
	return &Heartbeat{interval: interval, last: start}
}

// Due reports whether the interval has elapsed since the last beat and, if so,
// records now as the last beat.
func (h *Heartbeat) Due(now time.Time) bool {
	if h.interval <= 0 {
		return false
	}
	if now.Sub(h.last) < h.interval {
		return false
	}
	h.last = now
	return true
}
