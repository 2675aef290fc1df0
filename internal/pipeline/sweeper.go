package pipeline

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"smartdoc/internal/store"
)

// Sweeper 定时清理超期未补全的暂存明细
type Sweeper struct {
	store *store.Store
	ttl   time.Duration
	cron  *cron.Cron
}

// NewSweeper 创建清理器
func NewSweeper(st *store.Store, ttl time.Duration) *Sweeper {
	return &Sweeper{
		store: st,
		ttl:   ttl,
		cron:  cron.New(),
	}
}

// Start 按 cron 表达式启动周期清理
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.SweepOnce(); err != nil {
			log.Printf("暂存明细清理失败: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule pending sweep: %w", err)
	}
	s.cron.Start()
	return nil
}

// SweepOnce 立即执行一次清理，返回删除行数
func (s *Sweeper) SweepOnce() (int64, error) {
	cutoff := time.Now().Add(-s.ttl)
	n, err := s.store.ExpirePendingBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("清理超期暂存明细 %d 条 (早于 %s)", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// Stop 停止周期清理，等待进行中的任务结束
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
