package cron

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/pkg/clock"
)

// Sweeper 到期提醒扫描，实现见 service.ReminderService
type Sweeper interface {
	Sweep(ctx context.Context) (*dto.SweepReport, error)
}

// Service 每日定时执行提醒扫描；凭证清理只通过管理命令显式执行
type Service struct {
	sweeper  Sweeper
	runHour  int
	loc      *time.Location
	clock    clock.Clock
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewService(sweeper Sweeper, runHour int, timezone string, clk clock.Clock) *Service {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("Cron: unknown timezone %q, using UTC: %v", timezone, err)
		loc = time.UTC
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{
		sweeper:  sweeper,
		runHour:  runHour,
		loc:      loc,
		clock:    clk,
		stopChan: make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	s.wg.Add(1)
	go s.runDaily()
	log.Printf("Cron service started (reminder sweep daily at %02d:00 %s)", s.runHour, s.loc)
}

// Stop 停止定时任务并等待正在执行的任务结束
func (s *Service) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	log.Println("Cron service stopped")
}

// NextRun 返回 now 之后最近一次 hour:00（loc 时区）
func NextRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.UTC()
}

// runDaily 每日定时执行
func (s *Service) runDaily() {
	defer s.wg.Done()

	now := s.clock.Now()
	timer := time.NewTimer(NextRun(now, s.runHour, s.loc).Sub(now))
	defer timer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-timer.C:
			s.runOnce()
			now := s.clock.Now()
			timer.Reset(NextRun(now, s.runHour, s.loc).Sub(now))
		}
	}
}

// runOnce 执行一次扫描，stop 时取消
func (s *Service) runOnce() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := s.RunNow(ctx); err != nil {
		log.Printf("Cron: reminder sweep failed: %v", err)
	}
}

// RunNow 立即执行一次提醒扫描
func (s *Service) RunNow(ctx context.Context) (*dto.SweepReport, error) {
	if s.sweeper == nil {
		return nil, errors.New("reminder sweeper not configured")
	}
	log.Println("Cron: starting reminder sweep...")
	return s.sweeper.Sweep(ctx)
}
