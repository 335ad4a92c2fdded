package batch

import (
	"context"

	"github.com/chaos-io/chromakey/util"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler 按 cron 表达式定时执行批处理
type Scheduler struct {
	cron      *cron.Cron
	processor *Processor
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler spec 支持标准 5 段表达式以及 @every 1m 等描述符
func NewScheduler(spec string, processor *Processor) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	if _, err := s.processor.Run(s.ctx); err != nil {
		util.Logger.Error("scheduled batch failed", zap.Error(err))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的批次结束
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
