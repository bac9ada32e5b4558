package jobs

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper evicts expired sessions; satisfied by service.LoginService.
type Sweeper interface {
	SweepExpired(now time.Time) int
}

// SweepJob runs the session sweep on a fixed interval. The sweep is the
// sole timeout authority for session lifetime.
type SweepJob struct {
	sweeper  Sweeper
	interval time.Duration
	done     chan struct{}
}

func NewSweepJob(sweeper Sweeper, interval time.Duration) *SweepJob {
	return &SweepJob{
		sweeper:  sweeper,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("sweep job started")
}

func (j *SweepJob) Stop() {
	close(j.done)
	log.Info().Msg("sweep job stopped")
}

func (j *SweepJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SweepJob) sweep() {
	if count := j.sweeper.SweepExpired(time.Now().UTC()); count > 0 {
		log.Info().Int("count", count).Msg("swept expired sessions")
	}
}
