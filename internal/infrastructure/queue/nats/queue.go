package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/infrastructure/resilience"
)

// Queue carries ingestion events and merge jobs between the api and worker
// binaries. Ingest messages are bare manual ids, merge jobs travel as JSON.
type Queue struct {
	conn          *nats.Conn
	ingestSubject string
	mergeSubject  string
	executor      *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, ingestSubject, mergeSubject string) (*Queue, error) {
	return NewWithOptions(url, ingestSubject, mergeSubject, Options{})
}

func NewWithOptions(url, ingestSubject, mergeSubject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("manual-search"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:          conn,
		ingestSubject: ingestSubject,
		mergeSubject:  mergeSubject,
		executor:      options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishManualIngested(ctx context.Context, manualID string) error {
	return q.publish(ctx, q.ingestSubject, []byte(manualID))
}

func (q *Queue) PublishMergeRequested(ctx context.Context, job domain.MergeJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal merge job: %w", err)
	}
	return q.publish(ctx, q.mergeSubject, data)
}

func (q *Queue) publish(ctx context.Context, subject string, data []byte) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

func (q *Queue) SubscribeManualIngested(ctx context.Context, handler func(context.Context, string) error) error {
	return q.subscribe(ctx, q.ingestSubject, func(handlerCtx context.Context, msg *nats.Msg) {
		if err := handler(handlerCtx, string(msg.Data)); err != nil {
			slog.Error("ingest_handler_failed", "manual_id", string(msg.Data), "error", err)
		}
	})
}

func (q *Queue) SubscribeMergeRequested(ctx context.Context, handler func(context.Context, domain.MergeJob) error) error {
	return q.subscribe(ctx, q.mergeSubject, func(handlerCtx context.Context, msg *nats.Msg) {
		var job domain.MergeJob
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			slog.Error("merge_job_decode_failed", "error", err)
			return
		}
		if err := handler(handlerCtx, job); err != nil {
			slog.Error("merge_handler_failed", "job_id", job.ID, "error", err)
		}
	})
}

func (q *Queue) subscribe(ctx context.Context, subject string, dispatch func(context.Context, *nats.Msg)) error {
	sub, err := q.conn.QueueSubscribe(subject, "workers", func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		dispatch(handlerCtx, msg)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
