package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "listing_sub"

// Recorder 订阅相关的业务指标，nil 接收者上的调用都是空操作
type Recorder struct {
	claimsSubmitted        *prometheus.CounterVec
	claimsDecided          *prometheus.CounterVec
	verificationIncomplete prometheus.Counter
	remindersSent          *prometheus.CounterVec
	sweepDuration          prometheus.Histogram
	sweepRuns              *prometheus.CounterVec
}

// New 创建并注册指标，reg 为空时使用默认注册表
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		claimsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_submitted_total",
			Help:      "Payment claims accepted as pending, by purpose.",
		}, []string{"purpose"}),
		claimsDecided: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_decided_total",
			Help:      "Admin decisions on payment claims.",
		}, []string{"decision"}),
		verificationIncomplete: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_incomplete_total",
			Help:      "Verifications rolled back because the ledger write failed.",
		}),
		remindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Expiry reminders dispatched, by type and outcome.",
		}, []string{"type", "status"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_sweep_duration_seconds",
			Help:      "Wall time of a reminder sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_sweeps_total",
			Help:      "Reminder sweeps, by result.",
		}, []string{"result"}),
	}

	collectors := []prometheus.Collector{
		r.claimsSubmitted, r.claimsDecided, r.verificationIncomplete,
		r.remindersSent, r.sweepDuration, r.sweepRuns,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return r, nil
}

func (r *Recorder) ClaimSubmitted(purpose string) {
	if r == nil {
		return
	}
	r.claimsSubmitted.WithLabelValues(purpose).Inc()
}

// ClaimDecided decision 为 verified 或 rejected
func (r *Recorder) ClaimDecided(decision string) {
	if r == nil {
		return
	}
	r.claimsDecided.WithLabelValues(decision).Inc()
}

func (r *Recorder) VerificationIncomplete() {
	if r == nil {
		return
	}
	r.verificationIncomplete.Inc()
}

func (r *Recorder) ReminderSent(reminderType, status string) {
	if r == nil {
		return
	}
	r.remindersSent.WithLabelValues(reminderType, status).Inc()
}

// SweepFinished result 为 ok、error 或 locked
func (r *Recorder) SweepFinished(result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.sweepRuns.WithLabelValues(result).Inc()
	r.sweepDuration.Observe(elapsed.Seconds())
}
