package notify

import (
	"context"
	"sync"

	"richmenu_console/internal/logger"
)

// Task 待执行的通知任务
type Task func(ctx context.Context)

// WorkerPool 通知发送工作池
type WorkerPool struct {
	taskQueue chan Task
	wg        sync.WaitGroup
	workers   int

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool 创建工作池
// workers: worker 协程数量
// queueSize: 任务队列大小
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	pool := &WorkerPool{
		taskQueue: make(chan Task, queueSize),
		workers:   workers,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	logger.L().Debugf("Notify worker pool started with %d workers, queue size %d", workers, queueSize)
	return pool
}

// worker 工作协程
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.L().Errorf("Notify worker %d: task panic recovered: %v", id, r)
				}
			}()
			task(context.Background())
		}()
	}

	logger.L().Debugf("Notify worker %d stopped", id)
}

// Submit 提交任务到工作池，队列已满或已关闭时丢弃并返回 false
func (p *WorkerPool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.taskQueue <- task:
		return true
	default:
		logger.L().Warn("Notify worker pool queue is full, task dropped")
		return false
	}
}

// Shutdown 关闭工作池，等待已提交的任务执行完
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskQueue)
	p.mu.Unlock()

	p.wg.Wait()
	logger.L().Debug("Notify worker pool stopped")
}
