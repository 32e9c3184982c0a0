package main

import (
	"context"
	"time"

	"MarketPulse/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartDigestCron starts the daily digest scheduler. Each tick drains
// the fan-out page by page, so a run interrupted mid-way resumes from
// its persisted cursor on the next tick.
func StartDigestCron(task *biz.DigestTask, logger log.Logger) *cron.Cron {
	helper := log.NewHelper(logger)

	c := cron.New(cron.WithSeconds())

	// Daily at 08:00 UTC: 0 0 8 * * * (sec min hour dom month dow)
	_, err := c.AddFunc("0 0 8 * * *", func() {
		helper.Infow("msg", "Starting digest fan-out", "type", "scheduler")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		for {
			processed, done, err := task.RunOnce(ctx)
			if err != nil {
				helper.Errorw("msg", "Digest page failed, will resume next tick",
					"processed", processed, "error", err, "type", "scheduler")
				return
			}
			if done {
				helper.Infow("msg", "Digest fan-out completed", "type", "scheduler")
				return
			}
		}
	})

	if err != nil {
		helper.Errorw("msg", "failed to register digest cron job", "error", err)
		return nil
	}

	c.Start()
	helper.Infow("msg", "Digest cron job started: runs daily at 08:00 UTC", "type", "scheduler")

	return c
}
