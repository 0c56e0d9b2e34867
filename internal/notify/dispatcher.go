package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Songmu/retry"
	"github.com/kube-rca/sage/internal/metrics"
	"go.uber.org/zap"
)

// ErrDelivery - 재시도 후에도 채널 전송 실패 (로그로만 남김)
var ErrDelivery = errors.New("notification delivery failed")

// Channel - 알림 전송 채널 (Slack, 사용자 웹훅)
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

type RetryPolicy struct {
	Retries  uint
	Interval time.Duration
	// 전송 1회당 제한 시간
	Timeout time.Duration
}

// Dispatcher - 이벤트를 모든 채널로 비동기 전송
// 같은 채널, 같은 인시던트의 이벤트는 Notify 호출 순서대로 전송됨
type Dispatcher struct {
	channels []Channel
	policy   RetryPolicy
	metrics  *metrics.Metrics
	logger   *zap.Logger
	wg       sync.WaitGroup

	mu sync.Mutex
	// channel/incident 별 마지막 전송의 완료 신호
	tails map[string]chan struct{}
}

func NewDispatcher(logger *zap.Logger, m *metrics.Metrics, policy RetryPolicy, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.Timeout <= 0 {
		policy.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		channels: channels,
		policy:   policy,
		metrics:  m,
		logger:   logger.Named("notify"),
		tails:    make(map[string]chan struct{}),
	}
}

// Notify - 즉시 반환하며 전송은 백그라운드에서 수행
// 호출자의 ctx 가 취소되어도 전송은 계속됨
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	if len(d.channels) == 0 {
		return
	}
	msg := NewMessage(ev)
	base := context.WithoutCancel(ctx)

	for _, ch := range d.channels {
		key := ch.Name() + "/" + msg.IncidentID
		prev, done := d.enqueue(key)
		d.wg.Add(1)
		go func(ch Channel) {
			defer d.wg.Done()
			defer d.release(key, done)
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("notification channel panicked",
						zap.String("channel", ch.Name()),
						zap.String("incident_id", msg.IncidentID),
						zap.Any("panic", r),
					)
					d.metrics.ObserveNotification(ch.Name(), false)
				}
			}()
			if prev != nil {
				<-prev
			}
			d.deliver(base, ch, msg)
		}(ch)
	}
}

// enqueue - key 의 직전 전송 완료 신호와 이번 전송의 완료 신호를 반환
func (d *Dispatcher) enqueue(key string) (prev <-chan struct{}, done chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if tail, ok := d.tails[key]; ok {
		prev = tail
	}
	done = make(chan struct{})
	d.tails[key] = done
	return prev, done
}

func (d *Dispatcher) release(key string, done chan struct{}) {
	d.mu.Lock()
	if d.tails[key] == done {
		delete(d.tails, key)
	}
	d.mu.Unlock()
	close(done)
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, msg Message) {
	attempt := 0
	err := retry.Retry(d.policy.Retries+1, d.policy.Interval, func() error {
		attempt++
		sendCtx, cancel := context.WithTimeout(ctx, d.policy.Timeout)
		defer cancel()

		err := ch.Send(sendCtx, msg)
		if err != nil {
			d.logger.Warn("notification attempt failed",
				zap.String("channel", ch.Name()),
				zap.String("incident_id", msg.IncidentID),
				zap.String("event", string(msg.Kind)),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	})

	if err != nil {
		d.logger.Error("notification dropped",
			zap.String("channel", ch.Name()),
			zap.String("incident_id", msg.IncidentID),
			zap.String("event", string(msg.Kind)),
			zap.Error(fmt.Errorf("%w: %v", ErrDelivery, err)),
		)
		d.metrics.ObserveNotification(ch.Name(), false)
		return
	}
	d.metrics.ObserveNotification(ch.Name(), true)
}

// Wait - 진행 중인 전송이 모두 끝날 때까지 대기 (종료, 테스트용)
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
