package throttle

import "time"

// Tier maps a failure count to a lockout duration.
type Tier struct {
	Failures int
	Lockout  time.Duration
}

// Schedule is the escalation policy: failures inside Window count toward
// the tiers, and the highest tier reached decides the lockout. The defaults
// are tunable configuration, not contract.
type Schedule struct {
	Window time.Duration
	Tiers  []Tier
}

// DefaultSchedule escalates super-linearly: casual mistakes recover in
// minutes, sustained attacks are punished increasingly.
func DefaultSchedule() Schedule {
	return Schedule{
		Window: 15 * time.Minute,
		Tiers: []Tier{
			{Failures: 5, Lockout: 5 * time.Minute},
			{Failures: 10, Lockout: 30 * time.Minute},
			{Failures: 15, Lockout: 2 * time.Hour},
		},
	}
}

// lockoutFor returns the lockout duration for a failure count, or zero when
// no tier has been reached yet.
func (s Schedule) lockoutFor(failures int) time.Duration {
	var lockout time.Duration
	for _, tier := range s.Tiers {
		if failures >= tier.Failures {
			lockout = tier.Lockout
		}
	}
	return lockout
}
