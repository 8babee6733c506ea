package querycontext

// ThresholdPolicy turns qualitative keywords into numeric cut-offs.
type ThresholdPolicy struct {
	LeaveMaximum    float64 `mapstructure:"leave_maximum"`
	LeaveMinimum    float64 `mapstructure:"leave_minimum"`
	LeaveHigh       float64 `mapstructure:"leave_high"`
	PerformanceHigh float64 `mapstructure:"performance_high"`
	PerformanceLow  float64 `mapstructure:"performance_low"`
	EngagementHigh  float64 `mapstructure:"engagement_high"`
	EngagementLow   float64 `mapstructure:"engagement_low"`
}

func DefaultPolicy() ThresholdPolicy {
	return ThresholdPolicy{
		LeaveMaximum:    20,
		LeaveMinimum:    5,
		LeaveHigh:       15,
		PerformanceHigh: 4,
		PerformanceLow:  2,
		EngagementHigh:  4,
		EngagementLow:   3,
	}
}

// WithDefaults fills zero entries from DefaultPolicy.
func (p ThresholdPolicy) WithDefaults() ThresholdPolicy {
	d := DefaultPolicy()
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&p.LeaveMaximum, d.LeaveMaximum)
	fill(&p.LeaveMinimum, d.LeaveMinimum)
	fill(&p.LeaveHigh, d.LeaveHigh)
	fill(&p.PerformanceHigh, d.PerformanceHigh)
	fill(&p.PerformanceLow, d.PerformanceLow)
	fill(&p.EngagementHigh, d.EngagementHigh)
	fill(&p.EngagementLow, d.EngagementLow)
	return p
}
